// Package errors defines structured error types for the document store.
//
// Every failure that reaches a client is an *Error carrying an ErrorCode. The
// code selects the reason string written in an ERROR response.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode defines specific error types for the store.
type ErrorCode string

const (
	// ErrMalformedValue is returned when text is not valid JSON.
	ErrMalformedValue ErrorCode = "MALFORMED_VALUE"
	// ErrMalformedRequest is returned when a request has a missing or invalid
	// operation, path or value.
	ErrMalformedRequest ErrorCode = "MALFORMED_REQUEST"
	// ErrNoSuchKey is returned when a path does not resolve.
	ErrNoSuchKey ErrorCode = "NO_SUCH_KEY"
	// ErrPersistenceFailure is returned when the backing file cannot be written.
	ErrPersistenceFailure ErrorCode = "PERSISTENCE_FAILURE"
	// ErrValueTooLarge is returned when a response does not fit in one frame.
	ErrValueTooLarge ErrorCode = "VALUE_TOO_LARGE"
	// ErrRateLimited is returned when a client exceeded its connection budget.
	ErrRateLimited ErrorCode = "RATE_LIMITED"
	// ErrInternal is returned when an unexpected server error occurs.
	ErrInternal ErrorCode = "INTERNAL_ERROR"
)

// Reason returns the reason string sent to clients for this code.
func (c ErrorCode) Reason() string {
	switch c {
	case ErrMalformedValue, ErrMalformedRequest:
		return "malformed request"
	case ErrNoSuchKey:
		return "no such key"
	case ErrPersistenceFailure:
		return "failed to persist document"
	case ErrValueTooLarge:
		return "value too large"
	case ErrRateLimited:
		return "rate limit exceeded"
	case ErrInternal:
		return "internal error"
	default:
		return "internal error"
	}
}

// Error is a concrete error type with a code and an optional wrapped cause.
type Error struct {
	code       ErrorCode
	message    string
	wrappedErr error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap wraps an underlying error.
func (e *Error) Wrap(err error) *Error {
	e.wrappedErr = err
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.wrappedErr != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrappedErr)
	}
	return e.message
}

// Code returns the error code.
func (e *Error) Code() ErrorCode {
	return e.code
}

// Reason returns the client-facing reason string.
func (e *Error) Reason() string {
	return e.code.Reason()
}

// Unwrap returns the wrapped error if any.
func (e *Error) Unwrap() error {
	return e.wrappedErr
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.code == e.code
}

// CodeOf returns the code of the first *Error in err's chain, or ErrInternal.
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.code
	}
	return ErrInternal
}

// Predefined error constructors for common cases

// NoSuchKey creates an error for a path that did not resolve.
func NoSuchKey(path string) *Error {
	return New(ErrNoSuchKey, fmt.Sprintf("no such key: %s", path))
}

// MalformedValue creates an error for invalid JSON text.
func MalformedValue(err error) *Error {
	return New(ErrMalformedValue, "malformed value").Wrap(err)
}

// MalformedRequest creates an error for a request that fails validation.
func MalformedRequest(message string) *Error {
	return New(ErrMalformedRequest, message)
}

// PersistenceFailure creates an error wrapping a backing file failure.
func PersistenceFailure(err error) *Error {
	return New(ErrPersistenceFailure, "persistence failure").Wrap(err)
}

// ValueTooLarge creates an error for an encoded response of size bytes that
// exceeds the frame limit.
func ValueTooLarge(size int) *Error {
	return New(ErrValueTooLarge, fmt.Sprintf("value too large: %d bytes", size))
}

// RateLimited creates an error for a client over its connection budget.
func RateLimited(client string) *Error {
	return New(ErrRateLimited, fmt.Sprintf("rate limit exceeded for %s", client))
}

// Internal returns an unexpected server error.
func Internal(message string) *Error {
	return New(ErrInternal, message)
}
