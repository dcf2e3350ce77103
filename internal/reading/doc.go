// Package reading defines the sensor reading model and its stores.
//
// Readings arrive over MQTT at QoS 1, so the same measurement can be
// delivered more than once. The SQLite repository makes persistence
// idempotent with INSERT OR IGNORE against the unique
// (device_id, data_type, timestamp) index; the device-asserted
// timestamp is the identity, receipt time is diagnostics only.
//
// The Tracker holds the latest reading per device and data type in
// memory for the rule engine and threshold evaluator.
package reading
