package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ConnectionError reports that the helper could not be reached, or that an
// established connection failed mid-call.
type ConnectionError struct {
	Endpoint string
	cause    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cannot connect to %s: %s", e.Endpoint, e.cause)
}

func (e *ConnectionError) Unwrap() error { return e.cause }

// TimeoutError reports that a reply did not arrive in time. The operation
// may still have run on the page; only the reply is lost.
type TimeoutError struct {
	Endpoint string
	cause    error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for reply from %s", e.Endpoint)
}

func (e *TimeoutError) Unwrap() error { return e.cause }

// Timeout reports true so the error also reads as a net.Error timeout.
func (e *TimeoutError) Timeout() bool { return true }

func (e *TimeoutError) Temporary() bool { return true }

// wrapNetErr sorts a network failure into the timeout and connection kinds.
// Cancellation passes through untouched: the caller asked for it.
func wrapNetErr(err error, endpoint string) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Endpoint: endpoint, cause: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &TimeoutError{Endpoint: endpoint, cause: err}
	}
	return &ConnectionError{Endpoint: endpoint, cause: err}
}
