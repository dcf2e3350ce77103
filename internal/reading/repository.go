package reading

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for reading persistence operations.
type Repository interface {
	// Insert stores a reading. Duplicate deliveries (same device, data
	// type, and device-asserted timestamp) are silently ignored; the
	// returned bool reports whether a row was actually inserted.
	Insert(ctx context.Context, r *Reading) (bool, error)

	// InsertBatch stores a batch of readings from one message, returning
	// the number of rows actually inserted after deduplication.
	InsertBatch(ctx context.Context, readings []Reading) (int, error)

	// GetLatest returns the most recent reading for a device and data type.
	// Returns ErrReadingNotFound if none exists.
	GetLatest(ctx context.Context, deviceID string, dataType DataType) (*Reading, error)

	// ListWindow returns readings for a device and data type within
	// [start, end), ordered by timestamp. Used by the aggregation scheduler.
	ListWindow(ctx context.Context, deviceID string, dataType DataType, start, end time.Time) ([]Reading, error)

	// ListByDevice returns the most recent readings for a device, newest
	// first, up to limit rows.
	ListByDevice(ctx context.Context, deviceID string, limit int) ([]Reading, error)

	// DeleteBefore removes readings older than the cutoff. Used by
	// retention cleanup once rollups cover the window.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SQLiteRepository implements Repository using SQLite.
//
// Deduplication relies on the UNIQUE(device_id, data_type, timestamp)
// index plus INSERT OR IGNORE, so redelivered QoS 1 messages never
// create double rows regardless of worker interleaving.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const readingColumns = `id, device_id, farm_id, data_type, value, unit,
		timestamp, quality_score, quality, validated, issues, created_at`

// Insert stores a reading, ignoring duplicates.
func (r *SQLiteRepository) Insert(ctx context.Context, rd *Reading) (bool, error) {
	if rd.ID == "" {
		rd.ID = uuid.NewString()
	}
	if rd.CreatedAt.IsZero() {
		rd.CreatedAt = time.Now().UTC()
	}

	issuesJSON, err := json.Marshal(rd.Issues)
	if err != nil {
		return false, fmt.Errorf("marshalling issues: %w", err)
	}

	query := `
		INSERT OR IGNORE INTO readings (
			id, device_id, farm_id, data_type, value, unit,
			timestamp, quality_score, quality, validated, issues, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		rd.ID,
		rd.DeviceID,
		rd.FarmID,
		string(rd.DataType),
		rd.Value,
		rd.Unit,
		rd.Timestamp.UTC().Format(time.RFC3339Nano),
		rd.QualityScore,
		string(rd.Quality),
		boolToInt(rd.Validated),
		string(issuesJSON),
		rd.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return false, fmt.Errorf("inserting reading: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// InsertBatch stores a batch of readings, returning the inserted count.
func (r *SQLiteRepository) InsertBatch(ctx context.Context, readings []Reading) (int, error) {
	inserted := 0
	for i := range readings {
		ok, err := r.Insert(ctx, &readings[i])
		if err != nil {
			return inserted, err
		}
		if ok {
			inserted++
		}
	}
	return inserted, nil
}

// GetLatest returns the most recent reading for a device and data type.
func (r *SQLiteRepository) GetLatest(ctx context.Context, deviceID string, dataType DataType) (*Reading, error) {
	query := `SELECT ` + readingColumns + `
		FROM readings
		WHERE device_id = ? AND data_type = ?
		ORDER BY timestamp DESC
		LIMIT 1`

	row := r.db.QueryRowContext(ctx, query, deviceID, string(dataType))
	rd, err := scanReadingRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReadingNotFound
		}
		return nil, fmt.Errorf("querying latest reading: %w", err)
	}
	return rd, nil
}

// ListWindow returns readings within [start, end), ordered by timestamp.
func (r *SQLiteRepository) ListWindow(ctx context.Context, deviceID string, dataType DataType, start, end time.Time) ([]Reading, error) {
	query := `SELECT ` + readingColumns + `
		FROM readings
		WHERE device_id = ? AND data_type = ? AND timestamp >= ? AND timestamp < ?
		ORDER BY timestamp`

	return r.queryReadings(ctx, query,
		deviceID,
		string(dataType),
		start.UTC().Format(time.RFC3339Nano),
		end.UTC().Format(time.RFC3339Nano),
	)
}

// ListByDevice returns the most recent readings for a device, newest first.
func (r *SQLiteRepository) ListByDevice(ctx context.Context, deviceID string, limit int) ([]Reading, error) {
	query := `SELECT ` + readingColumns + `
		FROM readings
		WHERE device_id = ?
		ORDER BY timestamp DESC
		LIMIT ?`

	return r.queryReadings(ctx, query, deviceID, limit)
}

// DeleteBefore removes readings older than the cutoff.
func (r *SQLiteRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM readings WHERE timestamp < ?",
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting old readings: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return rowsAffected, nil
}

// queryReadings executes a query and returns a slice of readings.
func (r *SQLiteRepository) queryReadings(ctx context.Context, query string, args ...any) ([]Reading, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	defer rows.Close()

	var readings []Reading
	for rows.Next() {
		rd, err := scanReadingRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning reading: %w", err)
		}
		readings = append(readings, *rd)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating readings: %w", err)
	}

	return readings, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanReadingRow scans a row or rows result into a Reading.
func scanReadingRow(scanner rowScanner) (*Reading, error) {
	var rd Reading
	var dataType, quality string
	var validated int
	var issuesJSON string
	var timestamp, createdAt string

	err := scanner.Scan(
		&rd.ID,
		&rd.DeviceID,
		&rd.FarmID,
		&dataType,
		&rd.Value,
		&rd.Unit,
		&timestamp,
		&rd.QualityScore,
		&quality,
		&validated,
		&issuesJSON,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	rd.DataType = DataType(dataType)
	rd.Quality = Quality(quality)
	rd.Validated = validated != 0

	var parseErr error
	rd.Timestamp, parseErr = time.Parse(time.RFC3339Nano, timestamp)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing timestamp: %w", parseErr)
	}
	rd.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}

	if err := json.Unmarshal([]byte(issuesJSON), &rd.Issues); err != nil {
		return nil, fmt.Errorf("unmarshalling issues: %w", err)
	}

	return &rd, nil
}

// boolToInt converts a boolean to 0/1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
