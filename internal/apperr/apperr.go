// Package apperr is the single failure type surfaced by the front desk.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by how the user can react to it.
type Kind string

const (
	// KindValidation blocks the action until the input changes.
	KindValidation Kind = "validation"
	// KindTransport means the remote API could not be reached or understood.
	KindTransport Kind = "transport"
	// KindServer means the remote API answered with an error.
	KindServer Kind = "server"
)

// Error carries the kind, the failing operation and a user-facing message.
type Error struct {
	Kind       Kind
	Op         string
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindServer:
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether repeating the same action may succeed.
func (e *Error) Retryable() bool {
	return e.Kind == KindTransport || (e.Kind == KindServer && e.StatusCode >= 500)
}

// Validation returns a validation failure for op.
func Validation(op, msg string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: msg}
}

// Transport wraps a network or decoding failure for op.
func Transport(op string, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Err: err}
}

// Server records a non-2xx answer from the remote API.
func Server(op string, status int, msg string) *Error {
	return &Error{Kind: KindServer, Op: op, StatusCode: status, Message: msg}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	e, ok := As(err)
	return ok && e.Kind == KindValidation
}

// UserMessage picks the message to show for err, falling back to fallback.
func UserMessage(err error, fallback string) string {
	if e, ok := As(err); ok && e.Message != "" {
		return e.Message
	}
	return fallback
}
