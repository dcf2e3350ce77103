// Package automation implements the rule engine.
//
// A Rule couples conditions over a device's latest readings with
// actions: actuator commands published over MQTT and notifications
// pushed to WebSocket subscribers. The Engine evaluates rules on every
// reading the ingest pipeline delivers.
//
// # Firing Semantics
//
// A rule fires when all of the following hold:
//   - the rule is active and lists the triggering device
//   - the schedule window (if any) is open
//   - the cooldown since the last firing has elapsed
//   - every condition holds against the device's latest readings
//
// Conditions use AND semantics, and a condition on a data type the
// device has never reported is not satisfied. The execution count and
// last_executed stamp update on every firing, regardless of whether
// the actions then succeed.
//
// # Execution
//
// Actions run concurrently, each after its own optional delay. One
// failing action never blocks the rest; failures are collected into
// the execution record, which persists for audit via the repository.
package automation
