package toolerr

import (
	"errors"
	"fmt"
	"time"
)

// Code identifies a category of failure in the execution pipeline.
type Code string

const (
	InvalidParams     Code = "INVALID_PARAMS"
	AuthError         Code = "AUTH_ERROR"
	AuthExpired       Code = "AUTH_EXPIRED"
	PermissionDenied  Code = "PERMISSION_DENIED"
	NotFound          Code = "NOT_FOUND"
	Conflict          Code = "CONFLICT"
	RateLimit         Code = "RATE_LIMIT"
	QuotaExceeded     Code = "QUOTA_EXCEEDED"
	CircuitOpen       Code = "CIRCUIT_OPEN"
	Timeout           Code = "TIMEOUT"
	Cancelled         Code = "CANCELLED"
	RemoteUnavailable Code = "REMOTE_UNAVAILABLE"
	TransactionFailed Code = "TRANSACTION_FAILED"
	SnapshotTooLarge  Code = "SNAPSHOT_TOO_LARGE"
	SnapshotMissing   Code = "SNAPSHOT_MISSING"
	InternalError     Code = "INTERNAL_ERROR"
)

// retryableByCode is the authoritative retryability table from the error
// taxonomy: a client may retry RateLimit/CircuitOpen/Timeout/Conflict/
// AuthExpired/RemoteUnavailable on its own schedule, using RetryAfter when
// present. Every other code is terminal for the given request.
var retryableByCode = map[Code]bool{
	InvalidParams:     false,
	AuthError:         false,
	AuthExpired:       true,
	PermissionDenied:  false,
	NotFound:          false,
	Conflict:          true,
	RateLimit:         true,
	QuotaExceeded:     false,
	CircuitOpen:       true,
	Timeout:           true,
	Cancelled:         false,
	RemoteUnavailable: true,
	TransactionFailed: false,
	SnapshotTooLarge:  false,
	SnapshotMissing:   false,
	InternalError:     false,
}

// Error is the structured error type returned across the tool-call surface.
type Error struct {
	Code        Code
	Message     string
	Retryable   bool
	Resolution  string        // hint naming the required user action, if any
	RetryAfter  time.Duration // meaningful for RateLimit
	NextAttempt time.Time     // meaningful for CircuitOpen
	Details     map[string]any
	cause       error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs an *Error with the retryability implied by code.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Retryable: retryableByCode[code]}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap annotates cause with a taxonomy code, preserving it for errors.Is/As.
func Wrap(code Code, cause error, message string) *Error {
	e := New(code, message)
	e.cause = cause
	return e
}

// WithResolution attaches a resolution hint and returns e for chaining.
func (e *Error) WithResolution(hint string) *Error {
	e.Resolution = hint
	return e
}

// WithRetryAfter attaches a retry-after duration (RateLimit) and returns e.
func (e *Error) WithRetryAfter(d time.Duration) *Error {
	e.RetryAfter = d
	return e
}

// WithNextAttempt attaches the breaker's next probe time (CircuitOpen).
func (e *Error) WithNextAttempt(t time.Time) *Error {
	e.NextAttempt = t
	return e
}

// WithDetails attaches structured details and returns e.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// Is reports whether target is a *Error with the same Code, so that
// errors.Is(err, toolerr.New(toolerr.NotFound, "")) matches any NOT_FOUND
// error regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// CodeOf extracts the Code from err, returning InternalError if err is not
// (or does not wrap) a *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return InternalError
}

// IsRetryable reports whether err is a *Error marked retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}
