package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for device persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByID retrieves a device by its unique identifier.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, id string) (*Device, error)

	// List retrieves all devices.
	List(ctx context.Context) ([]Device, error)

	// ListByFarm retrieves all devices registered to a farm.
	ListByFarm(ctx context.Context, farmID string) ([]Device, error)

	// ListByType retrieves all devices of a specific type.
	ListByType(ctx context.Context, deviceType DeviceType) ([]Device, error)

	// ListByStatus retrieves all devices in a specific lifecycle state.
	ListByStatus(ctx context.Context, status Status) ([]Device, error)

	// Create inserts a new device.
	// Returns ErrDeviceExists if a device with the same ID already exists.
	Create(ctx context.Context, device *Device) error

	// Update modifies an existing device.
	// Returns ErrDeviceNotFound if the device does not exist.
	Update(ctx context.Context, device *Device) error

	// Delete removes a device by ID.
	// Returns ErrDeviceNotFound if the device does not exist.
	Delete(ctx context.Context, id string) error

	// UpdateStatus updates only the lifecycle status and last seen timestamp.
	// This is optimised for frequent status messages from gateways.
	UpdateStatus(ctx context.Context, id string, status Status, seenAt time.Time) error

	// RecordHeartbeat updates the heartbeat and last seen timestamps and,
	// when provided, the battery level and signal strength.
	RecordHeartbeat(ctx context.Context, id string, at time.Time, battery, signal *float64) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const deviceColumns = `id, farm_id, zone_id, name, type, status, thresholds,
		battery_level, signal_strength, last_seen, last_heartbeat,
		firmware_version, metadata, created_at, updated_at`

// GetByID retrieves a device by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	dev, err := scanDeviceRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}
	return dev, nil
}

// List retrieves all devices.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices ORDER BY farm_id, name`
	return r.queryDevices(ctx, query)
}

// ListByFarm retrieves all devices registered to a farm.
func (r *SQLiteRepository) ListByFarm(ctx context.Context, farmID string) ([]Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE farm_id = ? ORDER BY name`
	return r.queryDevices(ctx, query, farmID)
}

// ListByType retrieves all devices of a specific type.
func (r *SQLiteRepository) ListByType(ctx context.Context, deviceType DeviceType) ([]Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE type = ? ORDER BY farm_id, name`
	return r.queryDevices(ctx, query, string(deviceType))
}

// ListByStatus retrieves all devices in a specific lifecycle state.
func (r *SQLiteRepository) ListByStatus(ctx context.Context, status Status) ([]Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE status = ? ORDER BY farm_id, name`
	return r.queryDevices(ctx, query, string(status))
}

// Create inserts a new device.
func (r *SQLiteRepository) Create(ctx context.Context, device *Device) error {
	thresholdsJSON, err := json.Marshal(device.Thresholds)
	if err != nil {
		return fmt.Errorf("marshalling thresholds: %w", err)
	}

	metadataJSON, err := json.Marshal(device.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	now := time.Now().UTC()
	if device.CreatedAt.IsZero() {
		device.CreatedAt = now
	}
	device.UpdatedAt = now

	query := `
		INSERT INTO devices (
			id, farm_id, zone_id, name, type, status, thresholds,
			battery_level, signal_strength, last_seen, last_heartbeat,
			firmware_version, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		device.ID,
		device.FarmID,
		nullableString(device.ZoneID),
		device.Name,
		string(device.Type),
		string(device.Status),
		string(thresholdsJSON),
		nullableFloat(device.BatteryLevel),
		nullableFloat(device.SignalStrength),
		nullableTime(device.LastSeen),
		nullableTime(device.LastHeartbeat),
		nullableString(device.FirmwareVersion),
		string(metadataJSON),
		device.CreatedAt.Format(time.RFC3339),
		device.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("inserting device: %w", err)
	}

	return nil
}

// Update modifies an existing device.
func (r *SQLiteRepository) Update(ctx context.Context, device *Device) error {
	thresholdsJSON, err := json.Marshal(device.Thresholds)
	if err != nil {
		return fmt.Errorf("marshalling thresholds: %w", err)
	}

	metadataJSON, err := json.Marshal(device.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	device.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE devices SET
			farm_id = ?, zone_id = ?, name = ?, type = ?, status = ?,
			thresholds = ?, battery_level = ?, signal_strength = ?,
			last_seen = ?, last_heartbeat = ?, firmware_version = ?,
			metadata = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		device.FarmID,
		nullableString(device.ZoneID),
		device.Name,
		string(device.Type),
		string(device.Status),
		string(thresholdsJSON),
		nullableFloat(device.BatteryLevel),
		nullableFloat(device.SignalStrength),
		nullableTime(device.LastSeen),
		nullableTime(device.LastHeartbeat),
		nullableString(device.FirmwareVersion),
		string(metadataJSON),
		device.UpdatedAt.Format(time.RFC3339),
		device.ID,
	)
	if err != nil {
		return fmt.Errorf("updating device: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

// Delete removes a device by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM devices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

// UpdateStatus updates only the lifecycle status and last seen timestamp.
func (r *SQLiteRepository) UpdateStatus(ctx context.Context, id string, status Status, seenAt time.Time) error {
	now := time.Now().UTC()
	query := `
		UPDATE devices
		SET status = ?, last_seen = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		string(status),
		seenAt.UTC().Format(time.RFC3339),
		now.Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("updating device status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

// RecordHeartbeat updates the heartbeat and last seen timestamps and,
// when provided, the battery level and signal strength. A heartbeat from
// a device previously marked offline brings it back online.
func (r *SQLiteRepository) RecordHeartbeat(ctx context.Context, id string, at time.Time, battery, signal *float64) error {
	now := time.Now().UTC()
	query := `
		UPDATE devices
		SET last_heartbeat = ?,
		    last_seen = ?,
		    battery_level = COALESCE(?, battery_level),
		    signal_strength = COALESCE(?, signal_strength),
		    status = CASE WHEN status = 'offline' THEN 'online' ELSE status END,
		    updated_at = ?
		WHERE id = ?`

	ts := at.UTC().Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx, query,
		ts,
		ts,
		nullableFloat(battery),
		nullableFloat(signal),
		now.Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("recording heartbeat: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

// queryDevices executes a query and returns a slice of devices.
func (r *SQLiteRepository) queryDevices(ctx context.Context, query string, args ...any) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		dev, err := scanDeviceRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *dev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}

	return devices, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDeviceRow scans a row or rows result into a Device.
func scanDeviceRow(scanner rowScanner) (*Device, error) {
	var d Device
	var zoneID, firmwareVersion sql.NullString
	var lastSeen, lastHeartbeat sql.NullString
	var batteryLevel, signalStrength sql.NullFloat64
	var thresholdsJSON, metadataJSON string
	var deviceType, status string
	var createdAt, updatedAt string

	err := scanner.Scan(
		&d.ID,
		&d.FarmID,
		&zoneID,
		&d.Name,
		&deviceType,
		&status,
		&thresholdsJSON,
		&batteryLevel,
		&signalStrength,
		&lastSeen,
		&lastHeartbeat,
		&firmwareVersion,
		&metadataJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.Type = DeviceType(deviceType)
	d.Status = Status(status)

	if zoneID.Valid {
		d.ZoneID = &zoneID.String
	}
	if firmwareVersion.Valid {
		d.FirmwareVersion = &firmwareVersion.String
	}
	if batteryLevel.Valid {
		d.BatteryLevel = &batteryLevel.Float64
	}
	if signalStrength.Valid {
		d.SignalStrength = &signalStrength.Float64
	}

	if lastSeen.Valid {
		t, err := time.Parse(time.RFC3339, lastSeen.String)
		if err == nil {
			d.LastSeen = &t
		}
	}
	if lastHeartbeat.Valid {
		t, err := time.Parse(time.RFC3339, lastHeartbeat.String)
		if err == nil {
			d.LastHeartbeat = &t
		}
	}

	var parseErr error
	d.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	d.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	if err := json.Unmarshal([]byte(thresholdsJSON), &d.Thresholds); err != nil {
		return nil, fmt.Errorf("unmarshalling thresholds: %w", err)
	}
	if err := json.Unmarshal([]byte(metadataJSON), &d.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshalling metadata: %w", err)
	}

	return &d, nil
}

// nullableString returns a sql.NullString for optional string pointers.
func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullableTime returns a sql.NullString for optional time pointers (as RFC3339 strings).
func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
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
