package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies a failed round trip.
type ErrorKind string

const (
	// KindTimeout marks a deadline hit before the response was read.
	KindTimeout ErrorKind = "timeout"

	// KindNetwork marks any other transport failure (DNS, refused
	// connection, reset, TLS).
	KindNetwork ErrorKind = "network"
)

// Error represents a failed upstream round trip with its classification.
type Error struct {
	URL  string
	Kind ErrorKind
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("upstream %s error fetching %s: %v", e.Kind, e.URL, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a deadline hit.
func (e *Error) Timeout() bool {
	return e.Kind == KindTimeout
}

// classify categorizes a transport error for metrics and status mapping.
func classify(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindNetwork
}
