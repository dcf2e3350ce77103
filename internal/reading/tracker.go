package reading

import "sync"

// Tracker keeps the latest known reading per device and data type in
// memory. The rule engine evaluates conditions against this snapshot so
// it never queries SQLite on the ingest hot path.
//
// "Latest" means latest device-asserted timestamp: an out-of-order or
// redelivered reading with an older timestamp never replaces a newer one.
//
// All methods are safe for concurrent use.
type Tracker struct {
	mu     sync.RWMutex
	latest map[string]map[DataType]Reading // deviceID -> dataType -> reading
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		latest: make(map[string]map[DataType]Reading),
	}
}

// Update records a reading if it is newer than the current latest for
// its device and data type. Returns true if the reading was accepted.
func (t *Tracker) Update(r Reading) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	byType, ok := t.latest[r.DeviceID]
	if !ok {
		byType = make(map[DataType]Reading)
		t.latest[r.DeviceID] = byType
	}

	if current, ok := byType[r.DataType]; ok && !r.Timestamp.After(current.Timestamp) {
		return false
	}

	byType[r.DataType] = r
	return true
}

// Latest returns the latest reading for a device and data type.
func (t *Tracker) Latest(deviceID string, dataType DataType) (Reading, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	byType, ok := t.latest[deviceID]
	if !ok {
		return Reading{}, false
	}
	r, ok := byType[dataType]
	return r, ok
}

// Snapshot returns a copy of all latest readings for a device.
func (t *Tracker) Snapshot(deviceID string) map[DataType]Reading {
	t.mu.RLock()
	defer t.mu.RUnlock()

	byType, ok := t.latest[deviceID]
	if !ok {
		return nil
	}

	snapshot := make(map[DataType]Reading, len(byType))
	for k, v := range byType {
		snapshot[k] = v
	}
	return snapshot
}

// Forget drops all tracked readings for a device.
// Called when a device is deleted from the registry.
func (t *Tracker) Forget(deviceID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.latest, deviceID)
}
