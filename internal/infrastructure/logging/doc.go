// Package logging provides structured logging for AgriSense Core.
//
// The Logger type wraps log/slog with service-wide default attributes
// and configuration-driven level, format, and output selection. Domain
// packages accept a small Logger interface instead of this concrete
// type so tests can pass a no-op implementation.
package logging
