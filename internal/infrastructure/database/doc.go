// Package database provides SQLite connectivity for AgriSense Core.
//
// The DB type wraps database/sql with WAL-mode configuration, a single
// pooled writer connection, embedded migration support, and health checks.
// All domain stores (devices, readings, alerts, automation rules, rollups)
// share one DB instance; each package defines its own repository on top.
package database
