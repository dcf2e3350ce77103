package mqtt

import (
	"errors"
	"testing"
)

// Tests here run without a broker. Validation happens before any network
// call, and a zero-value Client reports disconnected, so the error paths
// are fully exercisable offline.

// =============================================================================
// Topics Tests
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	tests := []struct {
		name     string
		builder  func() string
		expected string
	}{
		{
			name: "SensorData",
			builder: func() string {
				return Topics{}.SensorData("farm-001", "soil-probe-7")
			},
			expected: "agrisense/farm-001/sensors/soil-probe-7",
		},
		{
			name: "DeviceStatus",
			builder: func() string {
				return Topics{}.DeviceStatus("farm-001", "valve-3")
			},
			expected: "agrisense/farm-001/devices/valve-3/status",
		},
		{
			name: "DeviceHeartbeat",
			builder: func() string {
				return Topics{}.DeviceHeartbeat("farm-001", "valve-3")
			},
			expected: "agrisense/farm-001/devices/valve-3/heartbeat",
		},
		{
			name: "DeviceAlert",
			builder: func() string {
				return Topics{}.DeviceAlert("farm-001", "pump-2")
			},
			expected: "agrisense/farm-001/alerts/pump-2",
		},
		{
			name: "Command",
			builder: func() string {
				return Topics{}.Command("farm-001", "valve-3")
			},
			expected: "agrisense/farm-001/commands/valve-3",
		},
		{
			name: "SystemStatus",
			builder: func() string {
				return Topics{}.SystemStatus()
			},
			expected: "agrisense/system/status",
		},
		{
			name: "AllSensorData",
			builder: func() string {
				return Topics{}.AllSensorData()
			},
			expected: "agrisense/+/sensors/+",
		},
		{
			name: "AllDeviceStatus",
			builder: func() string {
				return Topics{}.AllDeviceStatus()
			},
			expected: "agrisense/+/devices/+/status",
		},
		{
			name: "AllDeviceHeartbeats",
			builder: func() string {
				return Topics{}.AllDeviceHeartbeats()
			},
			expected: "agrisense/+/devices/+/heartbeat",
		},
		{
			name: "AllDeviceAlerts",
			builder: func() string {
				return Topics{}.AllDeviceAlerts()
			},
			expected: "agrisense/+/alerts/+",
		},
		{
			name: "AllTelemetry",
			builder: func() string {
				return Topics{}.AllTelemetry()
			},
			expected: "agrisense/#",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.builder()
			if result != tt.expected {
				t.Errorf("%s() = %q, want %q", tt.name, result, tt.expected)
			}
		})
	}
}

// =============================================================================
// Validation Tests
// =============================================================================

func TestPublishEmptyTopic(t *testing.T) {
	client := &Client{}

	err := client.Publish("", []byte("test"), 1, false)
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Publish() error = %v, want ErrInvalidTopic", err)
	}
}

func TestPublishInvalidQoS(t *testing.T) {
	client := &Client{}

	err := client.Publish("agrisense/test", []byte("test"), 3, false)
	if !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Publish() error = %v, want ErrInvalidQoS", err)
	}
}

func TestPublishOversizedPayload(t *testing.T) {
	client := &Client{}

	payload := make([]byte, maxPayloadSize+1)
	err := client.Publish("agrisense/test", payload, 1, false)
	if !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish() error = %v, want ErrPublishFailed", err)
	}
}

func TestPublishDisconnected(t *testing.T) {
	client := &Client{}

	err := client.Publish("agrisense/test", []byte("test"), 1, false)
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
}

func TestSubscribeEmptyTopic(t *testing.T) {
	client := &Client{}

	err := client.Subscribe("", 1, func(string, []byte) error { return nil })
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe() error = %v, want ErrInvalidTopic", err)
	}
}

func TestSubscribeInvalidQoS(t *testing.T) {
	client := &Client{}

	err := client.Subscribe("agrisense/test", 3, func(string, []byte) error { return nil })
	if !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Subscribe() error = %v, want ErrInvalidQoS", err)
	}
}

func TestSubscribeNilHandler(t *testing.T) {
	client := &Client{}

	err := client.Subscribe("agrisense/test", 1, nil)
	if !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe() error = %v, want ErrSubscribeFailed", err)
	}
}

func TestSubscribeDisconnected(t *testing.T) {
	client := &Client{}

	err := client.Subscribe("agrisense/test", 1, func(string, []byte) error { return nil })
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() error = %v, want ErrNotConnected", err)
	}
}

func TestUnsubscribeDisconnected(t *testing.T) {
	client := &Client{}

	err := client.Unsubscribe("agrisense/test")
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Unsubscribe() error = %v, want ErrNotConnected", err)
	}
}

// =============================================================================
// Edge Case Tests
// =============================================================================

func TestCloseNil(t *testing.T) {
	client := &Client{}
	err := client.Close()
	if err != nil {
		t.Errorf("Close() on unconnected client error = %v, want nil", err)
	}
}

func TestIsConnected_InitialState(t *testing.T) {
	client := &Client{}

	if client.IsConnected() {
		t.Error("IsConnected() should be false for uninitialised client")
	}
}

func TestSubscriptionCount_Empty(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}

	if client.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", client.SubscriptionCount())
	}
}

func TestHasSubscription_NotSubscribed(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}

	if client.HasSubscription("agrisense/none") {
		t.Error("HasSubscription() should be false for unsubscribed topic")
	}
}
