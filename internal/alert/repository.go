package alert

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/damirbriga107-creator/agrisense-core/internal/reading"
)

// Repository defines the interface for alert persistence operations.
type Repository interface {
	// GetByID retrieves an alert by its unique identifier.
	// Returns ErrAlertNotFound if the alert does not exist.
	GetByID(ctx context.Context, id string) (*Alert, error)

	// FindOpen returns the open alert of the given type for a device.
	// Returns ErrAlertNotFound if no open alert exists.
	FindOpen(ctx context.Context, deviceID string, alertType AlertType) (*Alert, error)

	// CreateIfAbsent inserts an alert unless an open alert of the same
	// type already exists for the device, in which case it returns
	// ErrAlertExists. The check-and-insert is atomic: the partial unique
	// index decides the single winner under concurrency.
	CreateIfAbsent(ctx context.Context, a *Alert) error

	// Resolve marks an alert resolved. Returns ErrAlertNotFound if the
	// alert does not exist, ErrAlreadyResolved if already resolved.
	Resolve(ctx context.Context, id, resolvedBy string) (*Alert, error)

	// ResolveOpen resolves the open alert of the given type for a device,
	// returning the resolved alert. Returns ErrAlertNotFound if no open
	// alert exists.
	ResolveOpen(ctx context.Context, deviceID string, alertType AlertType, resolvedBy string) (*Alert, error)

	// ListOpen returns all open alerts, newest first.
	ListOpen(ctx context.Context) ([]Alert, error)

	// ListByFarm returns alerts for a farm, newest first, up to limit rows.
	ListByFarm(ctx context.Context, farmID string, limit int) ([]Alert, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const alertColumns = `id, device_id, farm_id, type, severity, message,
		data_type, value, threshold_min, threshold_max,
		resolved, resolved_at, resolved_by, created_at, updated_at`

// GetByID retrieves an alert by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	a, err := scanAlertRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("querying alert by id: %w", err)
	}
	return a, nil
}

// FindOpen returns the open alert of the given type for a device.
func (r *SQLiteRepository) FindOpen(ctx context.Context, deviceID string, alertType AlertType) (*Alert, error) {
	query := `SELECT ` + alertColumns + `
		FROM alerts
		WHERE device_id = ? AND type = ? AND resolved = 0`

	row := r.db.QueryRowContext(ctx, query, deviceID, string(alertType))
	a, err := scanAlertRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("querying open alert: %w", err)
	}
	return a, nil
}

// CreateIfAbsent inserts an alert unless an open one already exists.
func (r *SQLiteRepository) CreateIfAbsent(ctx context.Context, a *Alert) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	query := `
		INSERT INTO alerts (
			id, device_id, farm_id, type, severity, message,
			data_type, value, threshold_min, threshold_max,
			resolved, resolved_at, resolved_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NULL, NULL, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		a.ID,
		a.DeviceID,
		a.FarmID,
		string(a.Type),
		string(a.Severity),
		a.Message,
		string(a.DataType),
		nullableFloat(a.Value),
		nullableFloat(a.ThresholdMin),
		nullableFloat(a.ThresholdMax),
		a.CreatedAt.Format(time.RFC3339),
		a.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		// The partial unique index on (device_id, type) WHERE resolved = 0
		// fires when an open alert already exists.
		if isUniqueConstraintError(err) {
			return ErrAlertExists
		}
		return fmt.Errorf("inserting alert: %w", err)
	}

	return nil
}

// Resolve marks an alert resolved.
func (r *SQLiteRepository) Resolve(ctx context.Context, id, resolvedBy string) (*Alert, error) {
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Resolved {
		return nil, ErrAlreadyResolved
	}

	now := time.Now().UTC()
	query := `
		UPDATE alerts
		SET resolved = 1, resolved_at = ?, resolved_by = ?, updated_at = ?
		WHERE id = ? AND resolved = 0`

	result, err := r.db.ExecContext(ctx, query,
		now.Format(time.RFC3339),
		resolvedBy,
		now.Format(time.RFC3339),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("resolving alert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Lost a race with another resolver
		return nil, ErrAlreadyResolved
	}

	existing.Resolved = true
	existing.ResolvedAt = &now
	existing.ResolvedBy = &resolvedBy
	existing.UpdatedAt = now
	return existing, nil
}

// ResolveOpen resolves the open alert of the given type for a device.
func (r *SQLiteRepository) ResolveOpen(ctx context.Context, deviceID string, alertType AlertType, resolvedBy string) (*Alert, error) {
	open, err := r.FindOpen(ctx, deviceID, alertType)
	if err != nil {
		return nil, err
	}
	return r.Resolve(ctx, open.ID, resolvedBy)
}

// ListOpen returns all open alerts, newest first.
func (r *SQLiteRepository) ListOpen(ctx context.Context) ([]Alert, error) {
	query := `SELECT ` + alertColumns + `
		FROM alerts
		WHERE resolved = 0
		ORDER BY created_at DESC`

	return r.queryAlerts(ctx, query)
}

// ListByFarm returns alerts for a farm, newest first.
func (r *SQLiteRepository) ListByFarm(ctx context.Context, farmID string, limit int) ([]Alert, error) {
	query := `SELECT ` + alertColumns + `
		FROM alerts
		WHERE farm_id = ?
		ORDER BY created_at DESC
		LIMIT ?`

	return r.queryAlerts(ctx, query, farmID, limit)
}

// queryAlerts executes a query and returns a slice of alerts.
func (r *SQLiteRepository) queryAlerts(ctx context.Context, query string, args ...any) ([]Alert, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying alerts: %w", err)
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		a, err := scanAlertRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning alert: %w", err)
		}
		alerts = append(alerts, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating alerts: %w", err)
	}

	return alerts, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanAlertRow scans a row or rows result into an Alert.
func scanAlertRow(scanner rowScanner) (*Alert, error) {
	var a Alert
	var alertType, severity, dataType string
	var value, thresholdMin, thresholdMax sql.NullFloat64
	var resolved int
	var resolvedAt, resolvedBy sql.NullString
	var createdAt, updatedAt string

	err := scanner.Scan(
		&a.ID,
		&a.DeviceID,
		&a.FarmID,
		&alertType,
		&severity,
		&a.Message,
		&dataType,
		&value,
		&thresholdMin,
		&thresholdMax,
		&resolved,
		&resolvedAt,
		&resolvedBy,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Type = AlertType(alertType)
	a.Severity = Severity(severity)
	a.DataType = reading.DataType(dataType)
	a.Resolved = resolved != 0

	if value.Valid {
		a.Value = &value.Float64
	}
	if thresholdMin.Valid {
		a.ThresholdMin = &thresholdMin.Float64
	}
	if thresholdMax.Valid {
		a.ThresholdMax = &thresholdMax.Float64
	}
	if resolvedBy.Valid {
		a.ResolvedBy = &resolvedBy.String
	}
	if resolvedAt.Valid {
		t, err := time.Parse(time.RFC3339, resolvedAt.String)
		if err == nil {
			a.ResolvedAt = &t
		}
	}

	var parseErr error
	a.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	a.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	return &a, nil
}

// nullableFloat returns a sql.NullFloat64 for optional float pointers.
func nullableFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
