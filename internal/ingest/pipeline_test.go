package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/damirbriga107-creator/agrisense-core/internal/device"
	"github.com/damirbriga107-creator/agrisense-core/internal/infrastructure/config"
	"github.com/damirbriga107-creator/agrisense-core/internal/reading"
)

// ============================================================================
// Test Fixtures
// ============================================================================

// mockStore records inserts and signals each one on a channel.
type mockStore struct {
	mu        sync.Mutex
	inserted  []reading.Reading
	duplicate bool // When true, Insert reports the reading as a duplicate
	signal    chan struct{}
}

func newMockStore() *mockStore {
	return &mockStore{signal: make(chan struct{}, 64)}
}

func (m *mockStore) Insert(_ context.Context, r reading.Reading) (bool, error) {
	m.mu.Lock()
	dup := m.duplicate
	if !dup {
		m.inserted = append(m.inserted, r)
	}
	m.mu.Unlock()
	m.signal <- struct{}{}
	return !dup, nil
}

func (m *mockStore) insertedReadings() []reading.Reading {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]reading.Reading, len(m.inserted))
	copy(out, m.inserted)
	return out
}

// mockDevices is a minimal DeviceRegistry.
type mockDevices struct {
	mu         sync.Mutex
	device     *device.Device
	heartbeats []string
	statuses   map[string]device.Status
	signal     chan struct{}
}

func newMockDevices(dev *device.Device) *mockDevices {
	return &mockDevices{
		device:   dev,
		statuses: make(map[string]device.Status),
		signal:   make(chan struct{}, 64),
	}
}

func (m *mockDevices) GetDevice(_ context.Context, id string) (*device.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device != nil && m.device.ID == id {
		return m.device.DeepCopy(), nil
	}
	return nil, device.ErrDeviceNotFound
}

func (m *mockDevices) SetDeviceStatus(_ context.Context, id string, status device.Status, _ time.Time) error {
	m.mu.Lock()
	m.statuses[id] = status
	m.mu.Unlock()
	m.signal <- struct{}{}
	return nil
}

func (m *mockDevices) RecordHeartbeat(_ context.Context, id string, _ time.Time, _, _ *float64) error {
	m.mu.Lock()
	m.heartbeats = append(m.heartbeats, id)
	m.mu.Unlock()
	m.signal <- struct{}{}
	return nil
}

// mockBroadcaster records broadcast readings.
type mockBroadcaster struct {
	mu       sync.Mutex
	readings []reading.Reading
}

func (m *mockBroadcaster) BroadcastReading(r reading.Reading) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readings = append(m.readings, r)
}

func (m *mockBroadcaster) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.readings)
}

func pipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{Workers: 2, QueueSize: 16, DrainTimeout: 5}
}

func waitSignal(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for pipeline stage")
	}
}

func sensorDevice() *device.Device {
	return &device.Device{
		ID:     "probe-7",
		FarmID: "farm-001",
		Name:   "Field Probe 7",
		Type:   device.DeviceTypeMultiSensor,
		Status: device.StatusOnline,
	}
}

// ============================================================================
// Pipeline Tests
// ============================================================================

func TestPipelineProcessesSensorData(t *testing.T) {
	store := newMockStore()
	devices := newMockDevices(sensorDevice())
	hub := &mockBroadcaster{}

	p := NewPipeline(pipelineConfig(), Deps{
		Store:   store,
		Devices: devices,
		Tracker: reading.NewTracker(),
		Hub:     hub,
	}, nil)
	p.Start(context.Background())
	defer p.Stop()

	payload := []byte(`{"data": {"temperature": {"value": 21.5, "unit": "C"}}}`)
	if err := p.HandleMessage("agrisense/farm-001/sensors/probe-7", payload); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	waitSignal(t, store.signal)
	p.Stop()

	inserted := store.insertedReadings()
	if len(inserted) != 1 {
		t.Fatalf("inserted %d readings, want 1", len(inserted))
	}
	if inserted[0].DataType != reading.DataTypeTemperature || inserted[0].Value != 21.5 {
		t.Errorf("inserted reading = %s %v, want temperature 21.5", inserted[0].DataType, inserted[0].Value)
	}
	if hub.count() != 1 {
		t.Errorf("broadcast %d readings, want 1", hub.count())
	}
}

func TestPipelineSkipsDownstreamOnDuplicate(t *testing.T) {
	store := newMockStore()
	store.duplicate = true
	devices := newMockDevices(sensorDevice())
	hub := &mockBroadcaster{}

	p := NewPipeline(pipelineConfig(), Deps{
		Store:   store,
		Devices: devices,
		Hub:     hub,
	}, nil)
	p.Start(context.Background())

	payload := []byte(`{"data": {"temperature": {"value": 21.5, "unit": "C"}}}`)
	if err := p.HandleMessage("agrisense/farm-001/sensors/probe-7", payload); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	waitSignal(t, store.signal)
	p.Stop()

	if hub.count() != 0 {
		t.Errorf("duplicate reading broadcast %d times, want 0", hub.count())
	}
}

func TestPipelineRoutesStatusAndHeartbeat(t *testing.T) {
	store := newMockStore()
	devices := newMockDevices(sensorDevice())

	p := NewPipeline(pipelineConfig(), Deps{Store: store, Devices: devices}, nil)
	p.Start(context.Background())

	if err := p.HandleMessage("agrisense/farm-001/devices/probe-7/status", []byte(`{"status": "maintenance"}`)); err != nil {
		t.Fatalf("HandleMessage(status) error = %v", err)
	}
	waitSignal(t, devices.signal)

	if err := p.HandleMessage("agrisense/farm-001/devices/probe-7/heartbeat", []byte(`{"battery_level": 55}`)); err != nil {
		t.Fatalf("HandleMessage(heartbeat) error = %v", err)
	}
	waitSignal(t, devices.signal)
	p.Stop()

	devices.mu.Lock()
	defer devices.mu.Unlock()
	if devices.statuses["probe-7"] != device.StatusMaintenance {
		t.Errorf("status = %s, want maintenance", devices.statuses["probe-7"])
	}
	if len(devices.heartbeats) != 1 {
		t.Errorf("recorded %d heartbeats, want 1", len(devices.heartbeats))
	}
}

func TestPipelineRejectsMalformedTopic(t *testing.T) {
	p := NewPipeline(pipelineConfig(), Deps{Store: newMockStore(), Devices: newMockDevices(nil)}, nil)

	err := p.HandleMessage("agrisense/garbage", []byte(`{}`))
	if !errors.Is(err, ErrMalformedTopic) {
		t.Errorf("HandleMessage() error = %v, want ErrMalformedTopic", err)
	}
}

func TestPipelineDropsOnFullQueue(t *testing.T) {
	cfg := config.PipelineConfig{Workers: 1, QueueSize: 1, DrainTimeout: 1}
	p := NewPipeline(cfg, Deps{Store: newMockStore(), Devices: newMockDevices(nil)}, nil)
	// Workers never started, so the queue only drains on Stop

	payload := []byte(`{"data": {"temperature": {"value": 1}}}`)
	if err := p.HandleMessage("agrisense/farm-001/sensors/probe-7", payload); err != nil {
		t.Fatalf("first HandleMessage() error = %v", err)
	}

	err := p.HandleMessage("agrisense/farm-001/sensors/probe-7", payload)
	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("second HandleMessage() error = %v, want ErrQueueFull", err)
	}
	if p.DroppedCount() != 1 {
		t.Errorf("DroppedCount() = %d, want 1", p.DroppedCount())
	}
}

func TestPipelineRejectsAfterStop(t *testing.T) {
	p := NewPipeline(pipelineConfig(), Deps{Store: newMockStore(), Devices: newMockDevices(nil)}, nil)
	p.Start(context.Background())
	p.Stop()

	err := p.HandleMessage("agrisense/farm-001/sensors/probe-7", []byte(`{"data": {"temperature": {"value": 1}}}`))
	if !errors.Is(err, ErrPipelineClosed) {
		t.Errorf("HandleMessage() after Stop error = %v, want ErrPipelineClosed", err)
	}
}

func TestPipelineSameDeviceSameWorker(t *testing.T) {
	p := NewPipeline(config.PipelineConfig{Workers: 8, QueueSize: 4, DrainTimeout: 1}, Deps{}, nil)

	first := p.workerFor("probe-7")
	for i := 0; i < 10; i++ {
		if got := p.workerFor("probe-7"); got != first {
			t.Fatalf("workerFor() not stable: %d vs %d", got, first)
		}
	}
}
