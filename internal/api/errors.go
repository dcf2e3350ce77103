package api

import "errors"

// Domain-specific errors for the API layer.
var (
	// ErrAuthenticationFailed is returned when a WebSocket connection
	// presents a missing or invalid token.
	ErrAuthenticationFailed = errors.New("api: authentication failed")

	// ErrInvalidTopic is returned when a subscription topic does not
	// match the topic grammar.
	ErrInvalidTopic = errors.New("api: invalid topic")

	// ErrForbiddenTopic is returned when a client subscribes to a topic
	// outside its farm scope.
	ErrForbiddenTopic = errors.New("api: forbidden topic")
)
