package aggregate

import (
	"context"
	"time"

	"github.com/damirbriga107-creator/agrisense-core/internal/infrastructure/config"
	"github.com/damirbriga107-creator/agrisense-core/internal/reading"
)

// ReadingSource supplies readings for a closed window.
type ReadingSource interface {
	ListWindow(ctx context.Context, deviceID string, dataType reading.DataType, start, end time.Time) ([]reading.Reading, error)
}

// TelemetryWriter mirrors rollups into the time-series store.
type TelemetryWriter interface {
	WriteRollup(farmID, deviceID, dataType, period string, stats map[string]interface{}, windowStart time.Time)
}

// Logger is the minimal logging interface used by the scheduler.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

const defaultTickInterval = 5 * time.Minute

// Scheduler computes periodic rollups over closed reading windows.
//
// It runs off the ingestion hot path: a ticker wakes it, it finds the
// most recently closed window for each period, and it aggregates every
// series that produced readings in that window. Upserts make the work
// idempotent, so a failed tick is simply retried on the next one.
type Scheduler struct {
	repo      Repository
	readings  ReadingSource
	telemetry TelemetryWriter
	logger    Logger
	interval  time.Duration
	now       func() time.Time

	// Last fully aggregated window start per period, to skip windows
	// that were already handled this run.
	done map[Period]time.Time
}

// NewScheduler creates a rollup scheduler. The telemetry writer may be
// nil, disabling the time-series mirror.
func NewScheduler(cfg config.AggregationConfig, repo Repository, readings ReadingSource, telemetry TelemetryWriter, logger Logger) *Scheduler {
	interval := time.Duration(cfg.Interval) * time.Second
	if interval <= 0 {
		interval = defaultTickInterval
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Scheduler{
		repo:      repo,
		readings:  readings,
		telemetry: telemetry,
		logger:    logger,
		interval:  interval,
		now:       time.Now,
		done:      make(map[Period]time.Time),
	}
}

// Run ticks until the context is cancelled. It blocks; run it in its
// own goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("aggregation scheduler started", "interval", s.interval.String())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("aggregation scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick aggregates the most recently closed window for every period
// that has not been handled yet. Exported so operators can trigger a
// pass manually and tests can drive the scheduler without the ticker.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now().UTC()

	for _, period := range AllPeriods() {
		// The window containing now is still open; aggregate the one
		// before it.
		closedStart := windowStart(period, now).Add(-time.Nanosecond)
		start := windowStart(period, closedStart)
		end := windowEnd(period, start)

		if last, ok := s.done[period]; ok && !start.After(last) {
			continue
		}

		if err := s.aggregateWindow(ctx, period, start, end); err != nil {
			s.logger.Error("rollup window failed, will retry next tick",
				"period", string(period),
				"window_start", start.Format(time.RFC3339),
				"error", err)
			continue
		}
		s.done[period] = start
	}
}

// aggregateWindow rolls up every series with data in [start, end).
func (s *Scheduler) aggregateWindow(ctx context.Context, period Period, start, end time.Time) error {
	series, err := s.repo.DistinctSeries(ctx, start, end)
	if err != nil {
		return err
	}
	if len(series) == 0 {
		return nil
	}

	for _, sr := range series {
		readings, err := s.readings.ListWindow(ctx, sr.DeviceID, sr.DataType, start, end)
		if err != nil {
			return err
		}
		if len(readings) == 0 {
			continue
		}

		values := make([]float64, 0, len(readings))
		for _, rd := range readings {
			// Error-quality readings are excluded from aggregates.
			if rd.Quality == reading.QualityError {
				continue
			}
			values = append(values, rd.Value)
		}
		if len(values) == 0 {
			continue
		}

		stats := Compute(values)
		rollup := &Rollup{
			DeviceID:    sr.DeviceID,
			FarmID:      sr.FarmID,
			DataType:    sr.DataType,
			Period:      period,
			WindowStart: start,
			WindowEnd:   end,
			Stats:       stats,
		}
		if err := s.repo.Upsert(ctx, rollup); err != nil {
			return err
		}

		if s.telemetry != nil {
			s.telemetry.WriteRollup(sr.FarmID, sr.DeviceID, string(sr.DataType),
				string(period), stats.fields(), start)
		}
	}

	s.logger.Debug("rollup window aggregated",
		"period", string(period),
		"window_start", start.Format(time.RFC3339),
		"series", len(series))
	return nil
}
