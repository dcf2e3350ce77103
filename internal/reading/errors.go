package reading

import "errors"

// Domain-specific errors for reading operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrReadingNotFound is returned when no reading matches the query.
	ErrReadingNotFound = errors.New("reading: not found")

	// ErrInvalidReading is returned when a reading fails basic validation.
	ErrInvalidReading = errors.New("reading: invalid")
)
