package aggregate

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/damirbriga107-creator/agrisense-core/internal/reading"
)

// Repository persists rollups and discovers which series have data in
// a window.
type Repository interface {
	// Upsert stores a rollup, replacing any previous stats for the same
	// (device, data type, period, window start). Re-aggregating a window
	// is therefore always safe.
	Upsert(ctx context.Context, r *Rollup) error

	// DistinctSeries returns the series with at least one reading in
	// [start, end).
	DistinctSeries(ctx context.Context, start, end time.Time) ([]Series, error)

	// ListByDevice returns rollups for a device and period, newest first.
	ListByDevice(ctx context.Context, deviceID string, period Period, limit int) ([]Rollup, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed rollup repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Upsert stores a rollup, replacing stats on conflict.
func (r *SQLiteRepository) Upsert(ctx context.Context, rollup *Rollup) error {
	if rollup.ID == "" {
		rollup.ID = uuid.NewString()
	}
	if rollup.CreatedAt.IsZero() {
		rollup.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO reading_rollups (
			id, device_id, farm_id, data_type, period, window_start, window_end,
			sample_count, min_value, max_value, avg_value, stddev_value, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(device_id, data_type, period, window_start) DO UPDATE SET
			sample_count = excluded.sample_count,
			min_value = excluded.min_value,
			max_value = excluded.max_value,
			avg_value = excluded.avg_value,
			stddev_value = excluded.stddev_value`

	_, err := r.db.ExecContext(ctx, query,
		rollup.ID,
		rollup.DeviceID,
		rollup.FarmID,
		string(rollup.DataType),
		string(rollup.Period),
		rollup.WindowStart.UTC().Format(time.RFC3339),
		rollup.WindowEnd.UTC().Format(time.RFC3339),
		rollup.Stats.Count,
		rollup.Stats.Min,
		rollup.Stats.Max,
		rollup.Stats.Avg,
		rollup.Stats.StdDev,
		rollup.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting rollup: %w", err)
	}
	return nil
}

// DistinctSeries returns series with readings in [start, end).
func (r *SQLiteRepository) DistinctSeries(ctx context.Context, start, end time.Time) ([]Series, error) {
	query := `
		SELECT DISTINCT device_id, farm_id, data_type
		FROM readings
		WHERE timestamp >= ? AND timestamp < ?`

	rows, err := r.db.QueryContext(ctx, query,
		start.UTC().Format(time.RFC3339Nano),
		end.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("querying series: %w", err)
	}
	defer rows.Close()

	var series []Series
	for rows.Next() {
		var s Series
		var dataType string
		if err := rows.Scan(&s.DeviceID, &s.FarmID, &dataType); err != nil {
			return nil, fmt.Errorf("scanning series: %w", err)
		}
		s.DataType = reading.DataType(dataType)
		series = append(series, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating series: %w", err)
	}
	return series, nil
}

// ListByDevice returns rollups for a device and period, newest first.
func (r *SQLiteRepository) ListByDevice(ctx context.Context, deviceID string, period Period, limit int) ([]Rollup, error) {
	query := `
		SELECT id, device_id, farm_id, data_type, period, window_start, window_end,
			sample_count, min_value, max_value, avg_value, stddev_value, created_at
		FROM reading_rollups
		WHERE device_id = ? AND period = ?
		ORDER BY window_start DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, deviceID, string(period), limit)
	if err != nil {
		return nil, fmt.Errorf("querying rollups: %w", err)
	}
	defer rows.Close()

	var rollups []Rollup
	for rows.Next() {
		rollup, err := scanRollupRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning rollup: %w", err)
		}
		rollups = append(rollups, *rollup)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rollups: %w", err)
	}
	return rollups, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRollupRow scans a row or rows result into a Rollup.
func scanRollupRow(scanner rowScanner) (*Rollup, error) {
	var rollup Rollup
	var dataType, period string
	var windowStart, windowEnd, createdAt string

	err := scanner.Scan(
		&rollup.ID,
		&rollup.DeviceID,
		&rollup.FarmID,
		&dataType,
		&period,
		&windowStart,
		&windowEnd,
		&rollup.Stats.Count,
		&rollup.Stats.Min,
		&rollup.Stats.Max,
		&rollup.Stats.Avg,
		&rollup.Stats.StdDev,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	rollup.DataType = reading.DataType(dataType)
	rollup.Period = Period(period)

	var parseErr error
	rollup.WindowStart, parseErr = time.Parse(time.RFC3339, windowStart)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing window_start: %w", parseErr)
	}
	rollup.WindowEnd, parseErr = time.Parse(time.RFC3339, windowEnd)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing window_end: %w", parseErr)
	}
	rollup.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}

	return &rollup, nil
}
