package ingest

import "errors"

// Domain-specific errors for ingestion.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrMalformedTopic is returned when an MQTT topic does not match
	// the platform's topic grammar.
	ErrMalformedTopic = errors.New("ingest: malformed topic")

	// ErrMalformedPayload is returned when a message payload cannot be
	// decoded.
	ErrMalformedPayload = errors.New("ingest: malformed payload")

	// ErrQueueFull is returned when a worker queue cannot accept a
	// message. The message is dropped; QoS 1 redelivery or the next
	// sample covers the gap.
	ErrQueueFull = errors.New("ingest: worker queue full")

	// ErrPipelineClosed is returned when submitting to a pipeline that
	// has begun shutdown.
	ErrPipelineClosed = errors.New("ingest: pipeline closed")
)
