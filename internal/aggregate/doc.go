// Package aggregate maintains periodic rollups of sensor readings.
//
// Raw readings accumulate fast; dashboards and trend queries rarely
// need individual points beyond the recent past. The scheduler rolls
// closed hourly, daily, and weekly windows into per-series summary
// rows (count, min, max, avg, stddev) in the reading_rollups table,
// optionally mirroring them to the time-series store.
//
// Rollups are upserted keyed on (device, data type, period, window
// start), so re-aggregating a window after a failure or restart is
// harmless. The scheduler never touches the ingestion hot path.
package aggregate
