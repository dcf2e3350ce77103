package alert

import (
	"context"
	"errors"
	"time"
)

// Retry tuning for repository calls. SQLite under WAL rarely fails, but
// a busy database surfaces as a transient error worth one more try.
const (
	retryAttempts     = 3
	retryInitialDelay = 50 * time.Millisecond
)

// retryWithBackoff runs fn up to retryAttempts times with doubling
// delay. Domain sentinel errors are terminal: an existing open alert or
// a missing row will not change on retry.
func retryWithBackoff(ctx context.Context, fn func() error) error {
	delay := retryInitialDelay
	var err error

	for attempt := 1; attempt <= retryAttempts; attempt++ {
		err = fn()
		if err == nil || isTerminal(err) {
			return err
		}
		if attempt == retryAttempts {
			break
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
	return err
}

// isTerminal reports whether an error will not resolve by retrying.
func isTerminal(err error) bool {
	return errors.Is(err, ErrAlertExists) ||
		errors.Is(err, ErrAlertNotFound) ||
		errors.Is(err, ErrAlreadyResolved) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
