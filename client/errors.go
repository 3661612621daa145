package client

import (
	"errors"
	"fmt"
)

var (
	// ErrClientClosed is returned for calls submitted after Close.
	ErrClientClosed = errors.New("runner client is closed")

	// ErrTimeout marks a call that exceeded its total-duration timeout.
	// Distinct from RemoteError: the remote never answered in time.
	ErrTimeout = errors.New("runner call timed out")

	// ErrBatchSizeMismatch marks a batchable call whose arguments declare
	// different batch sizes. Raised before any network I/O.
	ErrBatchSizeMismatch = errors.New("all batchable arguments must have the same batch size")
)

// RemoteError is a non-200 response from the runner. The remote-side error
// body is surfaced verbatim for diagnosis.
type RemoteError struct {
	Runner     string
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote runner %s failed: [%d] %s", e.Runner, e.StatusCode, e.Body)
}

// ProtocolError is a structurally non-conformant response: a required header
// is missing or the content type is outside the protocol namespace. It
// usually means the remote faulted without producing a proper error reply.
type ProtocolError struct {
	Runner     string
	Reason     string
	StatusCode int
	Body       string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("runner %s payload decode error: %s; the remote may have faulted silently [%d] %s",
		e.Runner, e.Reason, e.StatusCode, e.Body)
}
