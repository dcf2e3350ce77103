package ingest

import (
	"errors"
	"testing"
	"time"

	"github.com/damirbriga107-creator/agrisense-core/internal/reading"
)

// ============================================================================
// Topic Decoding Tests
// ============================================================================

func TestDecodeTopic(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		want    TopicInfo
		wantErr bool
	}{
		{
			name:  "sensor data",
			topic: "agrisense/farm-001/sensors/probe-7",
			want:  TopicInfo{FarmID: "farm-001", DeviceID: "probe-7", Kind: KindSensorData},
		},
		{
			name:  "device status",
			topic: "agrisense/farm-001/devices/probe-7/status",
			want:  TopicInfo{FarmID: "farm-001", DeviceID: "probe-7", Kind: KindStatus},
		},
		{
			name:  "device heartbeat",
			topic: "agrisense/farm-001/devices/probe-7/heartbeat",
			want:  TopicInfo{FarmID: "farm-001", DeviceID: "probe-7", Kind: KindHeartbeat},
		},
		{
			name:  "device alert",
			topic: "agrisense/farm-001/alerts/probe-7",
			want:  TopicInfo{FarmID: "farm-001", DeviceID: "probe-7", Kind: KindAlert},
		},
		{
			name:    "wrong prefix",
			topic:   "graylogic/farm-001/sensors/probe-7",
			wantErr: true,
		},
		{
			name:    "too few segments",
			topic:   "agrisense/farm-001/sensors",
			wantErr: true,
		},
		{
			name:    "unknown class",
			topic:   "agrisense/farm-001/actuators/valve-1",
			wantErr: true,
		},
		{
			name:    "unknown subclass",
			topic:   "agrisense/farm-001/devices/probe-7/firmware",
			wantErr: true,
		},
		{
			name:    "sensors with trailing segment",
			topic:   "agrisense/farm-001/sensors/probe-7/extra",
			wantErr: true,
		},
		{
			name:    "empty farm segment",
			topic:   "agrisense//sensors/probe-7",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeTopic(tt.topic)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedTopic) {
					t.Errorf("DecodeTopic(%q) error = %v, want ErrMalformedTopic", tt.topic, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeTopic(%q) error = %v", tt.topic, err)
			}
			if got != tt.want {
				t.Errorf("DecodeTopic(%q) = %+v, want %+v", tt.topic, got, tt.want)
			}
		})
	}
}

// ============================================================================
// Payload Decoding Tests
// ============================================================================

func sensorInfo() TopicInfo {
	return TopicInfo{FarmID: "farm-001", DeviceID: "probe-7", Kind: KindSensorData}
}

func TestDecodeSensorPayload(t *testing.T) {
	payload := []byte(`{
		"data": {
			"temperature": {"value": 21.5, "unit": "C"},
			"soil_moisture": {"value": 34.2, "unit": "%"}
		},
		"metadata": {"battery_level": 87, "signal_strength": -61},
		"timestamp": "2026-08-30T06:15:00Z"
	}`)

	batch, err := DecodeSensorPayload(sensorInfo(), payload, time.Now())
	if err != nil {
		t.Fatalf("DecodeSensorPayload() error = %v", err)
	}

	if len(batch.Readings) != 2 {
		t.Fatalf("decoded %d readings, want 2", len(batch.Readings))
	}
	wantTS := time.Date(2026, 8, 30, 6, 15, 0, 0, time.UTC)
	if !batch.Timestamp.Equal(wantTS) {
		t.Errorf("batch timestamp = %v, want %v", batch.Timestamp, wantTS)
	}

	byType := make(map[reading.DataType]reading.Reading)
	for _, r := range batch.Readings {
		byType[r.DataType] = r
		if r.DeviceID != "probe-7" || r.FarmID != "farm-001" {
			t.Errorf("reading identity = %s/%s, want farm-001/probe-7", r.FarmID, r.DeviceID)
		}
		if !r.Timestamp.Equal(wantTS) {
			t.Errorf("reading timestamp = %v, want device-asserted %v", r.Timestamp, wantTS)
		}
	}

	temp := byType[reading.DataTypeTemperature]
	if temp.Value != 21.5 || temp.Unit != "C" {
		t.Errorf("temperature = %v %s, want 21.5 C", temp.Value, temp.Unit)
	}
	if !temp.Validated || temp.Quality != reading.QualityGood {
		t.Errorf("temperature validated/quality = %v/%s, want true/good", temp.Validated, temp.Quality)
	}

	if batch.Metadata == nil || batch.Metadata.BatteryLevel == nil || *batch.Metadata.BatteryLevel != 87 {
		t.Errorf("metadata battery = %v, want 87", batch.Metadata)
	}
}

func TestDecodeSensorPayloadFallsBackToReceiptTime(t *testing.T) {
	payload := []byte(`{"data": {"humidity": {"value": 55, "unit": "%"}}}`)
	receivedAt := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	batch, err := DecodeSensorPayload(sensorInfo(), payload, receivedAt)
	if err != nil {
		t.Fatalf("DecodeSensorPayload() error = %v", err)
	}
	if !batch.Timestamp.Equal(receivedAt) {
		t.Errorf("batch timestamp = %v, want receipt time %v", batch.Timestamp, receivedAt)
	}
}

func TestDecodeSensorPayloadMalformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"invalid json", `{"data": {`},
		{"empty data", `{"data": {}}`},
		{"no data key", `{"timestamp": "2026-08-30T06:15:00Z"}`},
		{"data wrong type", `{"data": [1, 2]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSensorPayload(sensorInfo(), []byte(tt.payload), time.Now())
			if !errors.Is(err, ErrMalformedPayload) {
				t.Errorf("DecodeSensorPayload() error = %v, want ErrMalformedPayload", err)
			}
		})
	}
}

func TestDecodeSensorPayloadMissingValueStillDecodes(t *testing.T) {
	payload := []byte(`{"data": {"temperature": {"unit": "C"}}}`)

	batch, err := DecodeSensorPayload(sensorInfo(), payload, time.Now())
	if err != nil {
		t.Fatalf("DecodeSensorPayload() error = %v", err)
	}

	r := batch.Readings[0]
	if r.Validated {
		t.Error("reading with missing value marked validated")
	}
	if len(r.Issues) == 0 {
		t.Error("reading with missing value carries no issues")
	}
}

func TestDecodeStatusPayload(t *testing.T) {
	info := TopicInfo{FarmID: "farm-001", DeviceID: "probe-7", Kind: KindStatus}

	event, err := DecodeStatusPayload(info, []byte(`{"status": "maintenance"}`), time.Now())
	if err != nil {
		t.Fatalf("DecodeStatusPayload() error = %v", err)
	}
	if event.Status != "maintenance" {
		t.Errorf("status = %q, want maintenance", event.Status)
	}

	if _, err := DecodeStatusPayload(info, []byte(`{}`), time.Now()); !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("DecodeStatusPayload(empty) error = %v, want ErrMalformedPayload", err)
	}
}

func TestDecodeHeartbeatPayload(t *testing.T) {
	info := TopicInfo{FarmID: "farm-001", DeviceID: "probe-7", Kind: KindHeartbeat}

	event, err := DecodeHeartbeatPayload(info, []byte(`{"battery_level": 42.5}`), time.Now())
	if err != nil {
		t.Fatalf("DecodeHeartbeatPayload() error = %v", err)
	}
	if event.BatteryLevel == nil || *event.BatteryLevel != 42.5 {
		t.Errorf("battery = %v, want 42.5", event.BatteryLevel)
	}

	// Bare heartbeat with no body is valid
	if _, err := DecodeHeartbeatPayload(info, nil, time.Now()); err != nil {
		t.Errorf("DecodeHeartbeatPayload(nil) error = %v, want nil", err)
	}
}
