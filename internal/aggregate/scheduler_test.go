package aggregate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/damirbriga107-creator/agrisense-core/internal/infrastructure/config"
	"github.com/damirbriga107-creator/agrisense-core/internal/reading"
)

// ============================================================================
// Mocks
// ============================================================================

type mockRepository struct {
	mu      sync.Mutex
	series  []Series
	rollups []Rollup

	seriesErr error
	upsertErr error
}

func (m *mockRepository) Upsert(_ context.Context, r *Rollup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}

	for i := range m.rollups {
		existing := &m.rollups[i]
		if existing.DeviceID == r.DeviceID && existing.DataType == r.DataType &&
			existing.Period == r.Period && existing.WindowStart.Equal(r.WindowStart) {
			existing.Stats = r.Stats
			return nil
		}
	}
	m.rollups = append(m.rollups, *r)
	return nil
}

func (m *mockRepository) DistinctSeries(_ context.Context, _, _ time.Time) ([]Series, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seriesErr != nil {
		return nil, m.seriesErr
	}
	return m.series, nil
}

func (m *mockRepository) ListByDevice(_ context.Context, deviceID string, period Period, limit int) ([]Rollup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Rollup
	for _, r := range m.rollups {
		if r.DeviceID == deviceID && r.Period == period {
			out = append(out, r)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockRepository) stored() []Rollup {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Rollup(nil), m.rollups...)
}

type mockReadings struct {
	mu       sync.Mutex
	readings map[string][]reading.Reading
	calls    int
}

func seriesKey(deviceID string, dataType reading.DataType) string {
	return deviceID + "/" + string(dataType)
}

func (m *mockReadings) set(deviceID string, dataType reading.DataType, values ...float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readings == nil {
		m.readings = make(map[string][]reading.Reading)
	}
	var rds []reading.Reading
	for _, v := range values {
		rds = append(rds, reading.Reading{
			DeviceID: deviceID,
			DataType: dataType,
			Value:    v,
			Quality:  reading.QualityGood,
		})
	}
	m.readings[seriesKey(deviceID, dataType)] = rds
}

func (m *mockReadings) ListWindow(_ context.Context, deviceID string, dataType reading.DataType, _, _ time.Time) ([]reading.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.readings[seriesKey(deviceID, dataType)], nil
}

type mockTelemetry struct {
	mu      sync.Mutex
	rollups []string
}

func (m *mockTelemetry) WriteRollup(_, deviceID, dataType, period string, _ map[string]interface{}, _ time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollups = append(m.rollups, deviceID+"/"+dataType+"/"+period)
}

// ============================================================================
// Setup
// ============================================================================

func setupScheduler(t *testing.T) (*Scheduler, *mockRepository, *mockReadings, *mockTelemetry) {
	t.Helper()

	repo := &mockRepository{}
	readings := &mockReadings{}
	telemetry := &mockTelemetry{}

	s := NewScheduler(config.AggregationConfig{Enabled: true, Interval: 60},
		repo, readings, telemetry, nil)
	s.now = func() time.Time {
		return time.Date(2026, 8, 30, 14, 30, 0, 0, time.UTC)
	}
	return s, repo, readings, telemetry
}

// ============================================================================
// Tick Behavior
// ============================================================================

func TestSchedulerAggregatesClosedWindows(t *testing.T) {
	s, repo, readings, telemetry := setupScheduler(t)

	repo.series = []Series{
		{DeviceID: "dev-1", FarmID: "farm-001", DataType: reading.DataTypeTemperature},
	}
	readings.set("dev-1", reading.DataTypeTemperature, 20, 22, 24)

	s.Tick(context.Background())

	stored := repo.stored()
	if len(stored) != 3 {
		t.Fatalf("stored %d rollups, want 3 (hourly, daily, weekly)", len(stored))
	}

	byPeriod := make(map[Period]Rollup)
	for _, r := range stored {
		byPeriod[r.Period] = r
	}

	hourly, ok := byPeriod[PeriodHourly]
	if !ok {
		t.Fatal("missing hourly rollup")
	}
	if hourly.Stats.Count != 3 || hourly.Stats.Min != 20 || hourly.Stats.Max != 24 || hourly.Stats.Avg != 22 {
		t.Errorf("hourly stats = %+v", hourly.Stats)
	}
	// At 14:30 the last closed hourly window is 13:00-14:00.
	if want := time.Date(2026, 8, 30, 13, 0, 0, 0, time.UTC); !hourly.WindowStart.Equal(want) {
		t.Errorf("hourly window start = %v, want %v", hourly.WindowStart, want)
	}
	if hourly.FarmID != "farm-001" {
		t.Errorf("hourly farm = %q, want farm-001", hourly.FarmID)
	}

	telemetry.mu.Lock()
	defer telemetry.mu.Unlock()
	if len(telemetry.rollups) != 3 {
		t.Errorf("telemetry received %d rollups, want 3", len(telemetry.rollups))
	}
}

func TestSchedulerSkipsHandledWindows(t *testing.T) {
	s, repo, readings, _ := setupScheduler(t)

	repo.series = []Series{
		{DeviceID: "dev-1", FarmID: "farm-001", DataType: reading.DataTypeHumidity},
	}
	readings.set("dev-1", reading.DataTypeHumidity, 55, 57)

	s.Tick(context.Background())
	first := readings.calls

	// Second tick in the same windows must not re-aggregate.
	s.Tick(context.Background())
	if readings.calls != first {
		t.Errorf("second tick re-read windows: %d calls, want %d", readings.calls, first)
	}
}

func TestSchedulerAggregatesNextHourAfterClockAdvance(t *testing.T) {
	s, repo, readings, _ := setupScheduler(t)

	repo.series = []Series{
		{DeviceID: "dev-1", FarmID: "farm-001", DataType: reading.DataTypeTemperature},
	}
	readings.set("dev-1", reading.DataTypeTemperature, 21)

	s.Tick(context.Background())
	before := len(repo.stored())

	s.now = func() time.Time {
		return time.Date(2026, 8, 30, 15, 5, 0, 0, time.UTC)
	}
	s.Tick(context.Background())

	after := len(repo.stored())
	if after != before+1 {
		t.Errorf("rollups after clock advance = %d, want %d (one new hourly window)", after, before+1)
	}
}

func TestSchedulerRetriesFailedWindowNextTick(t *testing.T) {
	s, repo, readings, _ := setupScheduler(t)

	repo.series = []Series{
		{DeviceID: "dev-1", FarmID: "farm-001", DataType: reading.DataTypeTemperature},
	}
	readings.set("dev-1", reading.DataTypeTemperature, 21)
	repo.upsertErr = errors.New("disk full")

	s.Tick(context.Background())
	if len(repo.stored()) != 0 {
		t.Fatal("rollups stored despite upsert failure")
	}

	// Failure must not mark the window done.
	repo.mu.Lock()
	repo.upsertErr = nil
	repo.mu.Unlock()

	s.Tick(context.Background())
	if len(repo.stored()) != 3 {
		t.Errorf("stored %d rollups after retry, want 3", len(repo.stored()))
	}
}

func TestSchedulerExcludesErrorQualityReadings(t *testing.T) {
	s, repo, readings, _ := setupScheduler(t)

	repo.series = []Series{
		{DeviceID: "dev-1", FarmID: "farm-001", DataType: reading.DataTypeSoilPH},
	}
	readings.readings = map[string][]reading.Reading{
		seriesKey("dev-1", reading.DataTypeSoilPH): {
			{DeviceID: "dev-1", DataType: reading.DataTypeSoilPH, Value: 6.5, Quality: reading.QualityGood},
			{DeviceID: "dev-1", DataType: reading.DataTypeSoilPH, Value: 99, Quality: reading.QualityError},
		},
	}

	s.Tick(context.Background())

	stored := repo.stored()
	if len(stored) == 0 {
		t.Fatal("no rollups stored")
	}
	if stored[0].Stats.Count != 1 || stored[0].Stats.Max != 6.5 {
		t.Errorf("stats = %+v, want error-quality reading excluded", stored[0].Stats)
	}
}

func TestSchedulerEmptyWindowStoresNothing(t *testing.T) {
	s, repo, _, _ := setupScheduler(t)

	s.Tick(context.Background())
	if len(repo.stored()) != 0 {
		t.Errorf("stored %d rollups for empty window, want 0", len(repo.stored()))
	}
}

// ============================================================================
// Lifecycle
// ============================================================================

func TestSchedulerRunStopsOnCancel(t *testing.T) {
	s, _, _, _ := setupScheduler(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop on context cancel")
	}
}
