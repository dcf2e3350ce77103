// Package alert raises, stores, and resolves device alerts.
//
// # Deduplication
//
// At most one open alert exists per (device, type). A partial unique
// index on alerts(device_id, type) WHERE resolved = 0 enforces this in
// the database, so CreateIfAbsent is the single atomic path for
// raising: when two evaluations race on the same breach, one insert
// wins and the other observes ErrAlertExists.
//
// # Evaluation
//
// The Evaluator compares validated readings against the owning
// device's thresholds. Out-of-range values raise a threshold alert
// typed per data type ("threshold_temperature" and a
// "threshold_humidity" dedup independently). An in-range validated
// reading auto-resolves the matching open alert with resolved_by set
// to "system". Unvalidated readings are ignored in both directions.
package alert
