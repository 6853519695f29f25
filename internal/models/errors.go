package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the engine can surface.
type ErrorKind string

const (
	// ErrInvalidRequest is a caller-side precondition violation. Never retried.
	ErrInvalidRequest ErrorKind = "invalid_request"
	// ErrProviderUnavailable is a transient provider failure (timeout,
	// rate limit, 5xx). Retried with backoff, escalated after exhaustion.
	ErrProviderUnavailable ErrorKind = "provider_unavailable"
	// ErrProviderRejected is a permanent provider-side rejection
	// (auth failure, input rejected). Never retried.
	ErrProviderRejected ErrorKind = "provider_rejected"
	// ErrMalformedScript is a serialization or parse failure, with a locator.
	ErrMalformedScript ErrorKind = "malformed_script"
	// ErrCoordinationIncomplete means the multi-agent turn budget ran out
	// before a complete merge. Soft by default: the planner proceeds with
	// whatever partial draft exists.
	ErrCoordinationIncomplete ErrorKind = "coordination_incomplete"
	// ErrDurationNotConverged is a soft warning on a successful result:
	// the fit loop exhausted its iterations outside the tolerance band.
	ErrDurationNotConverged ErrorKind = "duration_not_converged"
	// ErrUnsupportedFormat is returned by document ingestion for
	// unrecognized input.
	ErrUnsupportedFormat ErrorKind = "unsupported_format"
	// ErrNotFound is returned when a job or episode ID is unknown.
	ErrNotFound ErrorKind = "not_found"
)

// Error is the single error type crossing component boundaries.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	// Locator points at the offending location for malformed scripts,
	// e.g. "line 12" or "segments[3]". Empty when not applicable.
	Locator string `json:"locator,omitempty"`

	cause error
}

func (e *Error) Error() string {
	if e.Locator != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Locator)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// NewError builds an Error of the given kind.
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds an Error of the given kind that wraps cause.
func WrapError(kind ErrorKind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// WithLocator attaches a locator and returns the same error for chaining.
func (e *Error) WithLocator(format string, args ...interface{}) *Error {
	e.Locator = fmt.Sprintf(format, args...)
	return e
}

// IsKind reports whether err is (or wraps) an Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var me *Error
	if errors.As(err, &me) {
		return me.Kind == kind
	}
	return false
}

// AsError extracts the *Error from err, wrapping foreign errors under the
// fallback kind so the job always records a classified first cause.
func AsError(err error, fallback ErrorKind) *Error {
	var me *Error
	if errors.As(err, &me) {
		return me
	}
	return &Error{Kind: fallback, Message: err.Error(), cause: err}
}
