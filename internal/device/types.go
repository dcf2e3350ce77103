package device

import "time"

// Device represents a registered field device: a sensor publishing
// telemetry or an actuator accepting commands.
// This matches the database schema in migrations/20260815_120000_initial_schema.up.sql.
type Device struct {
	// Identity
	ID     string `json:"id"`
	FarmID string `json:"farm_id"`
	Name   string `json:"name"`

	// Location within the farm (optional)
	ZoneID *string `json:"zone_id,omitempty"`

	// Classification
	Type DeviceType `json:"type"`

	// Lifecycle
	Status Status `json:"status"`

	// Thresholds define the acceptable value range per data type.
	// Readings outside a threshold raise alerts. Keyed by data type
	// (e.g. "soil_moisture", "temperature").
	Thresholds map[string]Threshold `json:"thresholds,omitempty"`

	// Health
	BatteryLevel   *float64   `json:"battery_level,omitempty"`
	SignalStrength *float64   `json:"signal_strength,omitempty"`
	LastSeen       *time.Time `json:"last_seen,omitempty"`
	LastHeartbeat  *time.Time `json:"last_heartbeat,omitempty"`

	// Metadata
	FirmwareVersion *string        `json:"firmware_version,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Threshold is the acceptable range for one data type on one device.
// Nil Min or Max means unbounded on that side.
type Threshold struct {
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
	Unit string   `json:"unit,omitempty"`
}

// Contains reports whether a value sits inside the threshold range.
func (t Threshold) Contains(value float64) bool {
	if t.Min != nil && value < *t.Min {
		return false
	}
	if t.Max != nil && value > *t.Max {
		return false
	}
	return true
}

// DeepCopy creates a complete independent copy of the Device.
// All map fields are cloned so modifications to the copy do not affect
// the original. This is essential for cache isolation.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d // Shallow copy of value fields

	if d.Thresholds != nil {
		cpy.Thresholds = make(map[string]Threshold, len(d.Thresholds))
		for k, v := range d.Thresholds {
			t := v
			if v.Min != nil {
				minCopy := *v.Min
				t.Min = &minCopy
			}
			if v.Max != nil {
				maxCopy := *v.Max
				t.Max = &maxCopy
			}
			cpy.Thresholds[k] = t
		}
	}

	cpy.Metadata = deepCopyMap(d.Metadata)

	// Pointer fields (*string, *time.Time, *float64) don't need deep copy
	// because their values are never mutated in place

	return &cpy
}

// deepCopyMap creates a deep copy of a map[string]any.
// Nested maps and slices are recursively copied.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		return v
	}
}

// DeviceType represents the specific kind of field device.
type DeviceType string //nolint:revive // device.DeviceType is clearer than device.Type in calling code

// Sensor device types.
const (
	DeviceTypeSoilMoistureSensor DeviceType = "soil_moisture_sensor"
	DeviceTypeTemperatureSensor  DeviceType = "temperature_sensor"
	DeviceTypeHumiditySensor     DeviceType = "humidity_sensor"
	DeviceTypePHSensor           DeviceType = "ph_sensor"
	DeviceTypeLightSensor        DeviceType = "light_sensor"
	DeviceTypeWaterLevelSensor   DeviceType = "water_level_sensor"
	DeviceTypeWeatherStation     DeviceType = "weather_station"
	DeviceTypeMultiSensor        DeviceType = "multi_sensor"
)

// Actuator device types.
const (
	DeviceTypeIrrigationValve DeviceType = "irrigation_valve"
	DeviceTypePump            DeviceType = "pump"
	DeviceTypeGreenhouseVent  DeviceType = "greenhouse_vent"
	DeviceTypeShadeScreen     DeviceType = "shade_screen"
	DeviceTypeFertilizerDoser DeviceType = "fertilizer_doser"
)

// Infrastructure device types.
const (
	DeviceTypeGateway DeviceType = "gateway"
)

// AllDeviceTypes returns all valid device type values.
func AllDeviceTypes() []DeviceType {
	return []DeviceType{
		// Sensors
		DeviceTypeSoilMoistureSensor, DeviceTypeTemperatureSensor,
		DeviceTypeHumiditySensor, DeviceTypePHSensor, DeviceTypeLightSensor,
		DeviceTypeWaterLevelSensor, DeviceTypeWeatherStation, DeviceTypeMultiSensor,
		// Actuators
		DeviceTypeIrrigationValve, DeviceTypePump, DeviceTypeGreenhouseVent,
		DeviceTypeShadeScreen, DeviceTypeFertilizerDoser,
		// Infrastructure
		DeviceTypeGateway,
	}
}

// Status represents the device lifecycle state.
type Status string

// Status constants.
const (
	StatusOnline      Status = "online"
	StatusOffline     Status = "offline"
	StatusMaintenance Status = "maintenance"
	StatusError       Status = "error"
	StatusSleeping    Status = "sleeping"
	StatusLowBattery  Status = "low_battery"
)

// AllStatuses returns all valid status values.
func AllStatuses() []Status {
	return []Status{
		StatusOnline, StatusOffline, StatusMaintenance,
		StatusError, StatusSleeping, StatusLowBattery,
	}
}
