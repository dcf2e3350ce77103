package mqtt

import "fmt"

// Topic prefixes for the AgriSense MQTT namespace.
//
// Field devices publish under a per-farm hierarchy:
//
//	agrisense/{farmID}/sensors/{deviceID}            telemetry readings
//	agrisense/{farmID}/devices/{deviceID}/status     lifecycle status
//	agrisense/{farmID}/devices/{deviceID}/heartbeat  liveness pings
//	agrisense/{farmID}/alerts/{deviceID}             device-originated alarms
//
// Core publishes commands back on agrisense/{farmID}/commands/{deviceID}.
const (
	// TopicPrefix is the base for all AgriSense topics.
	TopicPrefix = "agrisense"

	// TopicPrefixSystem is the base for platform-level topics.
	TopicPrefixSystem = "agrisense/system"
)

// Topic class segments. Decoders in the ingest package switch on these.
const (
	ClassSensors  = "sensors"
	ClassDevices  = "devices"
	ClassAlerts   = "alerts"
	ClassCommands = "commands"

	SubclassStatus    = "status"
	SubclassHeartbeat = "heartbeat"
)

// Topics provides builders for AgriSense MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
//
//	topics := mqtt.Topics{}
//	t := topics.SensorData("farm-001", "soil-probe-7")
//	// Returns: "agrisense/farm-001/sensors/soil-probe-7"
type Topics struct{}

// SensorData returns the telemetry topic for a device.
//
// Example: agrisense/farm-001/sensors/soil-probe-7
func (Topics) SensorData(farmID, deviceID string) string {
	return fmt.Sprintf("%s/%s/%s/%s", TopicPrefix, farmID, ClassSensors, deviceID)
}

// DeviceStatus returns the lifecycle status topic for a device.
//
// Example: agrisense/farm-001/devices/valve-3/status
func (Topics) DeviceStatus(farmID, deviceID string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", TopicPrefix, farmID, ClassDevices, deviceID, SubclassStatus)
}

// DeviceHeartbeat returns the liveness topic for a device.
//
// Example: agrisense/farm-001/devices/valve-3/heartbeat
func (Topics) DeviceHeartbeat(farmID, deviceID string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", TopicPrefix, farmID, ClassDevices, deviceID, SubclassHeartbeat)
}

// DeviceAlert returns the device-originated alarm topic.
//
// Example: agrisense/farm-001/alerts/pump-2
func (Topics) DeviceAlert(farmID, deviceID string) string {
	return fmt.Sprintf("%s/%s/%s/%s", TopicPrefix, farmID, ClassAlerts, deviceID)
}

// Command returns the topic Core uses to send commands to a device.
// Actuators subscribe to their own command topic.
//
// Example: agrisense/farm-001/commands/valve-3
func (Topics) Command(farmID, deviceID string) string {
	return fmt.Sprintf("%s/%s/%s/%s", TopicPrefix, farmID, ClassCommands, deviceID)
}

// SystemStatus returns the platform status topic.
// Core publishes online/offline here, including via LWT.
//
// Example: agrisense/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllSensorData returns a pattern matching telemetry from every farm and device.
//
// Pattern: agrisense/+/sensors/+
func (Topics) AllSensorData() string {
	return fmt.Sprintf("%s/+/%s/+", TopicPrefix, ClassSensors)
}

// AllDeviceStatus returns a pattern matching all device status updates.
//
// Pattern: agrisense/+/devices/+/status
func (Topics) AllDeviceStatus() string {
	return fmt.Sprintf("%s/+/%s/+/%s", TopicPrefix, ClassDevices, SubclassStatus)
}

// AllDeviceHeartbeats returns a pattern matching all device heartbeats.
//
// Pattern: agrisense/+/devices/+/heartbeat
func (Topics) AllDeviceHeartbeats() string {
	return fmt.Sprintf("%s/+/%s/+/%s", TopicPrefix, ClassDevices, SubclassHeartbeat)
}

// AllDeviceAlerts returns a pattern matching all device-originated alarms.
//
// Pattern: agrisense/+/alerts/+
func (Topics) AllDeviceAlerts() string {
	return fmt.Sprintf("%s/+/%s/+", TopicPrefix, ClassAlerts)
}

// AllTelemetry returns a pattern matching every AgriSense topic.
// Use with caution, this receives ALL traffic including commands.
//
// Pattern: agrisense/#
func (Topics) AllTelemetry() string {
	return TopicPrefix + "/#"
}
