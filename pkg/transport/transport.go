// Package transport delivers serialized telemetry payloads to a ThingsBoard
// style backend. Each Deliver call is exactly one attempt.
package transport

import (
	"context"
	"fmt"
)

// Response is what a successful delivery reports back.
type Response struct {
	StatusCode int
	Body       string // truncated like StatusError.Body
}

// Transport delivers one payload per call.
type Transport interface {
	Deliver(ctx context.Context, payload []byte) (*Response, error)
	Close() error
}

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	// Body holds at most 64 KiB of the response; a longer body is cut there
	// and ends in "...".
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d", e.StatusCode)
}
