package api

import (
	"errors"
	"fmt"
)

// ErrorKind represents the category of a pipeline error.
type ErrorKind string

const (
	// ErrorKindService is a transient generation-service failure. The item
	// is dropped for the current run and retried on the next resumed run.
	ErrorKindService ErrorKind = "service_error"

	// ErrorKindUnsafeCode marks a candidate function rejected by the static
	// denylist. The function is discarded; its bundle continues.
	ErrorKindUnsafeCode ErrorKind = "unsafe_code"

	// ErrorKindMalformedOutput marks a model response that could not be parsed.
	ErrorKindMalformedOutput ErrorKind = "malformed_output"

	// ErrorKindSandboxTimeout marks an execution that exceeded its deadline.
	ErrorKindSandboxTimeout ErrorKind = "sandbox_timeout"

	// ErrorKindLowDensity marks a bundle with too few surviving functions or
	// test cases.
	ErrorKindLowDensity ErrorKind = "low_density"

	// ErrorKindSystemic halts the current run (invalid stage range, stale
	// cache, unusable configuration). Flushed cache data stays valid.
	ErrorKindSystemic ErrorKind = "systemic_error"
)

// Error is a structured pipeline error with a kind, message and optional
// wrapped cause.
type Error struct {
	Kind    ErrorKind
	Message string

	// StatusCode is the HTTP status returned by the generation service, if any.
	StatusCode int

	// RateLimited is set when the service rejected the call for rate reasons.
	RateLimited bool

	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err or any error it wraps is an *Error of the
// given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// NewServiceError creates an Error for a failed generation call.
func NewServiceError(message string, err error) *Error {
	return &Error{Kind: ErrorKindService, Message: message, Err: err}
}

// NewUnsafeCodeError creates an Error for a denylisted function.
func NewUnsafeCodeError(pattern string) *Error {
	return &Error{Kind: ErrorKindUnsafeCode, Message: fmt.Sprintf("matched denylist pattern %q", pattern)}
}

// NewMalformedOutputError creates an Error for an unparseable model response.
func NewMalformedOutputError(message string, err error) *Error {
	return &Error{Kind: ErrorKindMalformedOutput, Message: message, Err: err}
}

// NewSandboxTimeoutError creates an Error for an execution past its deadline.
func NewSandboxTimeoutError(message string) *Error {
	return &Error{Kind: ErrorKindSandboxTimeout, Message: message}
}

// NewLowDensityError creates an Error for a bundle below the density thresholds.
func NewLowDensityError(functions, cases int) *Error {
	return &Error{
		Kind:    ErrorKindLowDensity,
		Message: fmt.Sprintf("%d functions and %d test cases survived", functions, cases),
	}
}

// NewSystemicError creates an Error that halts the current run.
func NewSystemicError(message string) *Error {
	return &Error{Kind: ErrorKindSystemic, Message: message}
}

// IsRateLimited reports whether err is a service error raised because the
// generation service throttled the call.
func IsRateLimited(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == ErrorKindService && e.RateLimited
	}
	return false
}
