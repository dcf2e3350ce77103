package device

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry provides device management with caching and thread safety.
// It wraps a Repository and adds an in-memory cache for fast lookups.
//
// The ingest pipeline resolves every incoming reading's device through
// the registry, so lookups must not hit SQLite on the hot path. The
// cache is populated on startup via RefreshCache() and kept in sync by
// cache-invalidating CRUD operations.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Device // Cached devices by ID
	cacheMu sync.RWMutex       // Protects cache
	logger  Logger
}

// NewRegistry creates a new device registry.
// The repository is used for persistence; the registry adds caching.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Device),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all devices from the repository into the cache.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	devices, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	// Clear and rebuild cache with deep copies
	r.cache = make(map[string]*Device, len(devices))
	for i := range devices {
		d := devices[i]
		r.cache[d.ID] = d.DeepCopy()
	}

	r.logger.Info("device cache refreshed", "count", len(devices))
	return nil
}

// GetDevice retrieves a device by ID.
// Returns ErrDeviceNotFound if the device does not exist.
// The returned device is a deep copy; callers can safely modify it.
func (r *Registry) GetDevice(ctx context.Context, id string) (*Device, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[id]
	r.cacheMu.RUnlock()

	if ok {
		return cached.DeepCopy(), nil
	}

	// Fall back to repository (might be a new device not yet cached)
	dev, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	r.cache[id] = dev.DeepCopy()
	r.cacheMu.Unlock()

	return dev, nil
}

// ListDevices retrieves all devices.
// The returned devices are deep copies; callers can safely modify them.
func (r *Registry) ListDevices(ctx context.Context) ([]Device, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	if len(r.cache) > 0 {
		devices := make([]Device, 0, len(r.cache))
		for _, d := range r.cache {
			devices = append(devices, *d.DeepCopy())
		}
		return devices, nil
	}

	return r.repo.List(ctx)
}

// GetDevicesByFarm retrieves all devices registered to a farm.
// The returned devices are deep copies; callers can safely modify them.
func (r *Registry) GetDevicesByFarm(ctx context.Context, farmID string) ([]Device, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	if len(r.cache) > 0 {
		var devices []Device
		for _, d := range r.cache {
			if d.FarmID == farmID {
				devices = append(devices, *d.DeepCopy())
			}
		}
		return devices, nil
	}

	return r.repo.ListByFarm(ctx, farmID)
}

// GetDevicesByType retrieves all devices of a specific type.
// The returned devices are deep copies; callers can safely modify them.
func (r *Registry) GetDevicesByType(ctx context.Context, deviceType DeviceType) ([]Device, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	if len(r.cache) > 0 {
		var devices []Device
		for _, d := range r.cache {
			if d.Type == deviceType {
				devices = append(devices, *d.DeepCopy())
			}
		}
		return devices, nil
	}

	return r.repo.ListByType(ctx, deviceType)
}

// GetDevicesByStatus retrieves all devices in a specific lifecycle state.
// The returned devices are deep copies; callers can safely modify them.
func (r *Registry) GetDevicesByStatus(ctx context.Context, status Status) ([]Device, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	if len(r.cache) > 0 {
		var devices []Device
		for _, d := range r.cache {
			if d.Status == status {
				devices = append(devices, *d.DeepCopy())
			}
		}
		return devices, nil
	}

	return r.repo.ListByStatus(ctx, status)
}

// CreateDevice creates a new device.
// It validates the device, generates an ID if needed, and persists it.
func (r *Registry) CreateDevice(ctx context.Context, dev *Device) error {
	if dev != nil && dev.ID == "" {
		dev.ID = GenerateID()
	}
	if dev != nil && dev.Status == "" {
		dev.Status = StatusOffline
	}

	if err := ValidateDevice(dev); err != nil {
		return err
	}

	if err := r.repo.Create(ctx, dev); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[dev.ID] = dev.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("device created", "id", dev.ID, "farm_id", dev.FarmID, "name", dev.Name)
	return nil
}

// UpdateDevice updates an existing device.
// It validates the device and persists the changes.
func (r *Registry) UpdateDevice(ctx context.Context, dev *Device) error {
	if err := ValidateDevice(dev); err != nil {
		return err
	}

	if err := r.repo.Update(ctx, dev); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[dev.ID] = dev.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("device updated", "id", dev.ID, "name", dev.Name)
	return nil
}

// DeleteDevice removes a device.
func (r *Registry) DeleteDevice(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.cache, id)
	r.cacheMu.Unlock()

	r.logger.Info("device deleted", "id", id)
	return nil
}

// SetDeviceStatus updates the lifecycle status of a device.
// This is optimised for frequent status messages from gateways.
func (r *Registry) SetDeviceStatus(ctx context.Context, id string, status Status, seenAt time.Time) error {
	if err := r.repo.UpdateStatus(ctx, id, status, seenAt); err != nil {
		return err
	}

	// Update cache using deep copy so readers never see partial writes
	r.cacheMu.Lock()
	if cached, ok := r.cache[id]; ok {
		updated := cached.DeepCopy()
		updated.Status = status
		seen := seenAt.UTC()
		updated.LastSeen = &seen
		r.cache[id] = updated
	}
	r.cacheMu.Unlock()

	r.logger.Debug("device status updated", "id", id, "status", status)
	return nil
}

// RecordHeartbeat records a liveness ping from a device.
// Battery and signal are optional; an offline device that heartbeats is
// brought back online.
func (r *Registry) RecordHeartbeat(ctx context.Context, id string, at time.Time, battery, signal *float64) error {
	if err := r.repo.RecordHeartbeat(ctx, id, at, battery, signal); err != nil {
		return err
	}

	r.cacheMu.Lock()
	if cached, ok := r.cache[id]; ok {
		updated := cached.DeepCopy()
		ts := at.UTC()
		updated.LastHeartbeat = &ts
		updated.LastSeen = &ts
		if battery != nil {
			b := *battery
			updated.BatteryLevel = &b
		}
		if signal != nil {
			s := *signal
			updated.SignalStrength = &s
		}
		if updated.Status == StatusOffline {
			updated.Status = StatusOnline
		}
		r.cache[id] = updated
	}
	r.cacheMu.Unlock()

	r.logger.Debug("device heartbeat recorded", "id", id)
	return nil
}

// GetDeviceCount returns the number of cached devices.
func (r *Registry) GetDeviceCount() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}

// Stats returns registry statistics for monitoring.
type Stats struct {
	TotalDevices int
	ByFarm       map[string]int
	ByType       map[DeviceType]int
	ByStatus     map[Status]int
}

// GetStats returns current registry statistics.
func (r *Registry) GetStats() Stats {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	stats := Stats{
		TotalDevices: len(r.cache),
		ByFarm:       make(map[string]int),
		ByType:       make(map[DeviceType]int),
		ByStatus:     make(map[Status]int),
	}

	for _, d := range r.cache {
		stats.ByFarm[d.FarmID]++
		stats.ByType[d.Type]++
		stats.ByStatus[d.Status]++
	}

	return stats
}
