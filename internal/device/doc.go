// Package device manages the field device registry for AgriSense Core.
//
// A device is a sensor or actuator registered to a farm. The package
// provides:
//   - Device types, lifecycle statuses, and per-data-type thresholds
//   - Repository: SQLite persistence
//   - Registry: cached, thread-safe access layer over the repository
//
// # Caching
//
// The ingest pipeline resolves the owning device for every reading, so
// the Registry keeps a full in-memory cache populated at startup. Reads
// return deep copies; callers never share memory with the cache.
//
// # Liveness
//
// Devices report liveness two ways: explicit status messages and
// heartbeats. RecordHeartbeat refreshes last_seen/last_heartbeat and
// revives devices previously marked offline. Battery and signal values
// piggybacked on heartbeats update the health fields.
package device
