package alert

import "errors"

// Domain-specific errors for alert operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrAlertNotFound is returned when no alert matches the query.
	ErrAlertNotFound = errors.New("alert: not found")

	// ErrAlertExists is returned by CreateIfAbsent when an open alert of
	// the same type already exists for the device.
	ErrAlertExists = errors.New("alert: open alert already exists")

	// ErrAlreadyResolved is returned when resolving an alert twice.
	ErrAlreadyResolved = errors.New("alert: already resolved")
)
