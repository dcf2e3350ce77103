package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/damirbriga107-creator/agrisense-core/internal/infrastructure/mqtt"
	"github.com/damirbriga107-creator/agrisense-core/internal/reading"
)

// MessageKind classifies a decoded MQTT message.
type MessageKind string

const (
	KindSensorData MessageKind = "sensor_data"
	KindStatus     MessageKind = "status"
	KindHeartbeat  MessageKind = "heartbeat"
	KindAlert      MessageKind = "alert"
)

// TopicInfo is the result of parsing a telemetry topic.
type TopicInfo struct {
	FarmID   string
	DeviceID string
	Kind     MessageKind
}

// DecodeTopic parses a topic of the form
// agrisense/<farmId>/<class>/<deviceId>[/<subclass>].
//
// Classes are "sensors", "devices", and "alerts"; the devices class
// carries a "status" or "heartbeat" subclass. Anything else returns
// ErrMalformedTopic.
func DecodeTopic(topic string) (TopicInfo, error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 4 || parts[0] != mqtt.TopicPrefix {
		return TopicInfo{}, fmt.Errorf("%w: %q", ErrMalformedTopic, topic)
	}

	farmID, class, deviceID := parts[1], parts[2], parts[3]
	if farmID == "" || deviceID == "" {
		return TopicInfo{}, fmt.Errorf("%w: empty segment in %q", ErrMalformedTopic, topic)
	}

	info := TopicInfo{FarmID: farmID, DeviceID: deviceID}

	switch class {
	case mqtt.ClassSensors:
		if len(parts) != 4 {
			return TopicInfo{}, fmt.Errorf("%w: %q", ErrMalformedTopic, topic)
		}
		info.Kind = KindSensorData
	case mqtt.ClassDevices:
		if len(parts) != 5 {
			return TopicInfo{}, fmt.Errorf("%w: %q", ErrMalformedTopic, topic)
		}
		switch parts[4] {
		case mqtt.SubclassStatus:
			info.Kind = KindStatus
		case mqtt.SubclassHeartbeat:
			info.Kind = KindHeartbeat
		default:
			return TopicInfo{}, fmt.Errorf("%w: unknown subclass %q", ErrMalformedTopic, parts[4])
		}
	case mqtt.ClassAlerts:
		if len(parts) != 4 {
			return TopicInfo{}, fmt.Errorf("%w: %q", ErrMalformedTopic, topic)
		}
		info.Kind = KindAlert
	default:
		return TopicInfo{}, fmt.Errorf("%w: unknown class %q", ErrMalformedTopic, class)
	}

	return info, nil
}

// sensorPayload is the wire format devices publish on sensors topics.
//
// Each entry under "data" is one measurement. The device-asserted
// timestamp applies to the whole batch; when absent, receipt time
// stands in.
type sensorPayload struct {
	Data      map[string]measurement `json:"data"`
	Metadata  *DeviceMetadata        `json:"metadata,omitempty"`
	Timestamp *time.Time             `json:"timestamp,omitempty"`
}

type measurement struct {
	Value *float64 `json:"value"`
	Unit  string   `json:"unit,omitempty"`
}

// DeviceMetadata carries device health fields piggybacked on sensor
// messages.
type DeviceMetadata struct {
	BatteryLevel   *float64 `json:"battery_level,omitempty"`
	SignalStrength *float64 `json:"signal_strength,omitempty"`
}

// SensorBatch is a decoded and quality-scored sensor message.
type SensorBatch struct {
	FarmID    string
	DeviceID  string
	Readings  []reading.Reading
	Metadata  *DeviceMetadata
	Timestamp time.Time // Device-asserted, or receipt time when absent
}

// DecodeSensorPayload parses a sensors-topic payload into a scored
// reading batch.
//
// The decoder is pure: it touches no store and no registry. Every
// measurement is scored; nothing is rejected for bad values, a garbage
// value simply arrives with quality "error" and Validated false so
// downstream evaluators skip it.
//
// Parameters:
//   - info: Parsed topic identifying farm and device
//   - payload: Raw message payload
//   - receivedAt: Receipt time, used when the device asserts no timestamp
//
// Returns ErrMalformedPayload when the JSON cannot be parsed or the
// batch carries no measurements.
func DecodeSensorPayload(info TopicInfo, payload []byte, receivedAt time.Time) (*SensorBatch, error) {
	var p sensorPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if len(p.Data) == 0 {
		return nil, fmt.Errorf("%w: no measurements", ErrMalformedPayload)
	}

	timestamp := receivedAt.UTC()
	if p.Timestamp != nil {
		timestamp = p.Timestamp.UTC()
	}

	batch := &SensorBatch{
		FarmID:    info.FarmID,
		DeviceID:  info.DeviceID,
		Metadata:  p.Metadata,
		Timestamp: timestamp,
		Readings:  make([]reading.Reading, 0, len(p.Data)),
	}

	for dataType, m := range p.Data {
		result := Score(reading.DataType(dataType), m.Value, m.Unit)

		var value float64
		if m.Value != nil {
			value = *m.Value
		}

		batch.Readings = append(batch.Readings, reading.Reading{
			ID:           uuid.NewString(),
			DeviceID:     info.DeviceID,
			FarmID:       info.FarmID,
			DataType:     reading.DataType(dataType),
			Value:        value,
			Unit:         m.Unit,
			Timestamp:    timestamp,
			QualityScore: result.Score,
			Quality:      result.Quality,
			Validated:    result.Validated,
			Issues:       result.Issues,
			CreatedAt:    receivedAt.UTC(),
		})
	}

	return batch, nil
}

// statusPayload is the wire format for devices/<id>/status messages.
type statusPayload struct {
	Status    string     `json:"status"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// StatusEvent is a decoded device status message.
type StatusEvent struct {
	FarmID   string
	DeviceID string
	Status   string
	At       time.Time
}

// DecodeStatusPayload parses a status-topic payload.
func DecodeStatusPayload(info TopicInfo, payload []byte, receivedAt time.Time) (*StatusEvent, error) {
	var p statusPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if p.Status == "" {
		return nil, fmt.Errorf("%w: missing status", ErrMalformedPayload)
	}

	at := receivedAt.UTC()
	if p.Timestamp != nil {
		at = p.Timestamp.UTC()
	}
	return &StatusEvent{
		FarmID:   info.FarmID,
		DeviceID: info.DeviceID,
		Status:   p.Status,
		At:       at,
	}, nil
}

// heartbeatPayload is the wire format for devices/<id>/heartbeat messages.
type heartbeatPayload struct {
	BatteryLevel   *float64   `json:"battery_level,omitempty"`
	SignalStrength *float64   `json:"signal_strength,omitempty"`
	Timestamp      *time.Time `json:"timestamp,omitempty"`
}

// HeartbeatEvent is a decoded device heartbeat.
type HeartbeatEvent struct {
	FarmID         string
	DeviceID       string
	BatteryLevel   *float64
	SignalStrength *float64
	At             time.Time
}

// DecodeHeartbeatPayload parses a heartbeat-topic payload. An empty
// JSON object is a valid heartbeat; presence is the signal.
func DecodeHeartbeatPayload(info TopicInfo, payload []byte, receivedAt time.Time) (*HeartbeatEvent, error) {
	var p heartbeatPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
	}

	at := receivedAt.UTC()
	if p.Timestamp != nil {
		at = p.Timestamp.UTC()
	}
	return &HeartbeatEvent{
		FarmID:         info.FarmID,
		DeviceID:       info.DeviceID,
		BatteryLevel:   p.BatteryLevel,
		SignalStrength: p.SignalStrength,
		At:             at,
	}, nil
}
