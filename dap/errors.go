package dap

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the dap package. Wrap with fmt.Errorf("%w",
// ...) when more context is useful; callers should match with errors.Is.
var (
	// ErrClientClosed is returned by RequestCB and the typed request
	// methods once the client is closing (Close was called or the
	// transport went away), and delivered to every request that was
	// pending at that moment.
	ErrClientClosed = errors.New("dap: client closed")

	// ErrRequestTimeout is delivered to a request's callback when its
	// deadline fires before a response arrives.
	ErrRequestTimeout = errors.New("dap: request timeout")

	// ErrMalformedFrame is fatal for a Framer: a header without a parseable
	// Content-Length was received.
	ErrMalformedFrame = errors.New("dap: malformed frame")

	// ErrConnectTimeout is returned by the tcp/server adapter paths when
	// the connection attempt does not complete within the configured
	// deadline.
	ErrConnectTimeout = errors.New("dap: connect timeout")

	// ErrConnectRefused is returned when the peer actively refused the
	// connection attempt.
	ErrConnectRefused = errors.New("dap: connect refused")
)

// AdapterExitedError reports that a stdio-spawned adapter process exited
// with a non-zero code or that waiting on it failed. StdioTransport passes
// it to the onClose callback given to Start; a clean exit (code 0) is
// reported to onClose as a nil error instead.
type AdapterExitedError struct {
	ExitCode int
	Err      error
}

func (e *AdapterExitedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dap: adapter exited (code %d): %v", e.ExitCode, e.Err)
	}
	return fmt.Sprintf("dap: adapter exited (code %d)", e.ExitCode)
}

func (e *AdapterExitedError) Unwrap() error {
	return e.Err
}

// RequestError reports a response with success=false. Callers that want
// the original command or request_seq can type-assert or errors.As this
// instead of string-matching resp.Message.
type RequestError struct {
	Command    string
	RequestSeq int
	Message    string
}

func (e *RequestError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "Error"
	}
	return fmt.Sprintf("%s failed: %s", e.Command, msg)
}
