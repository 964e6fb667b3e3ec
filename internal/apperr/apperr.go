// Package apperr defines the operational error type that handlers and
// middleware return instead of writing error responses themselves. The
// terminal Echo error handler turns these into the client envelope.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
)

// Error is an expected, client-attributable failure whose message is always
// safe to show. Err optionally carries the underlying cause for logs.
type Error struct {
	Code        int
	Message     string
	Operational bool
	Err         error

	stack []byte
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns "fail" for 4xx codes and "error" otherwise.
func (e *Error) Status() string {
	return StatusFor(e.Code)
}

// StatusFor maps an HTTP code to the envelope status string.
func StatusFor(code int) string {
	if code >= 400 && code < 500 {
		return "fail"
	}
	return "error"
}

// New returns an operational error with the given code and message.
func New(code int, msg string) *Error {
	return &Error{Code: code, Message: msg, Operational: true}
}

// Newf is New with fmt formatting.
func Newf(code int, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

func BadRequest(msg string) *Error   { return New(http.StatusBadRequest, msg) }
func Unauthorized(msg string) *Error { return New(http.StatusUnauthorized, msg) }
func Forbidden(msg string) *Error    { return New(http.StatusForbidden, msg) }
func NotFound(msg string) *Error     { return New(http.StatusNotFound, msg) }

// Wrap attaches a cause to an operational error. The cause is logged but
// never shown to the client.
func Wrap(err error, code int, msg string) *Error {
	return &Error{Code: code, Message: msg, Operational: true, Err: err}
}

const msgInternal = "Something went very wrong!"

// Internal marks err as a non-operational failure and records the stack
// of the goroutine that raised it.
func Internal(err error) *Error {
	return &Error{Code: http.StatusInternalServerError, Message: msgInternal, Err: err, stack: debug.Stack()}
}

// Unexpected is Internal without a recorded stack, for failures that are
// only classified once they reach the error handler.
func Unexpected(err error) *Error {
	return &Error{Code: http.StatusInternalServerError, Message: msgInternal, Err: err}
}

// Panic wraps a recovered panic together with the stack it unwound.
func Panic(err error, stack []byte) *Error {
	return &Error{Code: http.StatusInternalServerError, Message: msgInternal, Err: err, stack: stack}
}

// Stack returns the stack recorded when e was raised, or nil.
func (e *Error) Stack() []byte { return e.stack }

// As reports whether err is, or wraps, an *Error.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
