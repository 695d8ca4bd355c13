package js9

import (
	"fmt"

	"github.com/gojs9/gojs9/js9/transport"
	"github.com/gojs9/gojs9/wire"
)

// The connection, timeout, and codec kinds are defined next to the code
// that raises them; aliases here let callers branch with errors.As without
// importing the subpackages.
type (
	ConnectionError = transport.ConnectionError
	TimeoutError    = transport.TimeoutError
	CodecError      = wire.CodecError
)

// RemoteError is the helper's own failure report: the display received the
// operation and answered with an error message. Message carries the
// server's text intact, "ERROR:" prefix included.
type RemoteError struct {
	Op      string
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

// UnknownOperationError means the operation is in neither the advertised
// nor the built-in operation list. Nothing was sent.
type UnknownOperationError struct {
	Op string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("unknown operation %q", e.Op)
}

// CallError wraps any failure of a dispatched call with the operation that
// failed; errors.As digs out the underlying kind.
type CallError struct {
	Op  string
	Err error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("calling %s: %s", e.Op, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }
