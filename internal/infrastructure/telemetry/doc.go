// Package telemetry writes long-term time-series history to InfluxDB.
//
// The canonical store for recent readings is SQLite; InfluxDB carries the
// multi-season history that dashboards and agronomy reports chart. The
// integration is optional (telemetry.enabled in config.yaml): when it is
// off or unreachable, ingestion continues and only history is lost.
//
// Writes go through the non-blocking batched WriteAPI, so a slow or down
// InfluxDB never applies backpressure to the ingest pipeline. Async write
// failures surface through the SetOnError callback for logging.
package telemetry
