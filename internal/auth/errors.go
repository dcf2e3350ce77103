package auth

import "errors"

// Domain-specific errors for authentication.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrTokenInvalid is returned when a JWT fails signature, expiry,
	// or required-claim validation.
	ErrTokenInvalid = errors.New("auth: token invalid")

	// ErrForbidden is returned when a valid token lacks access to the
	// requested farm or operation.
	ErrForbidden = errors.New("auth: forbidden")
)
