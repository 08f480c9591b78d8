package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is a machine-readable failure classification reported back to the
// caller in response payloads.
type ErrorKind string

const (
	// KindDataUnavailable covers collaborator fetch failures and timeouts.
	// Retryable without changing the request.
	KindDataUnavailable ErrorKind = "DATA_UNAVAILABLE"

	// KindInfeasibleConstraints covers filter combinations no weight vector
	// can satisfy. Not retryable without changing filters.
	KindInfeasibleConstraints ErrorKind = "INFEASIBLE_CONSTRAINTS"

	// KindInvalidLiquidity covers securities with a missing or non-positive
	// liquidity proxy. Surfaces per security.
	KindInvalidLiquidity ErrorKind = "INVALID_LIQUIDITY"

	// KindInvalidTransition covers acknowledgement calls against an order
	// already in a terminal state.
	KindInvalidTransition ErrorKind = "INVALID_TRANSITION"

	// KindNotFound covers lookups of unknown order or batch identifiers.
	// A typo'd id is neither a retryable outage nor a state-machine
	// violation, so it gets its own kind.
	KindNotFound ErrorKind = "NOT_FOUND"
)

// Error is the engine's typed error. It carries a kind for the response
// payload and wraps an optional cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors of the same kind, so callers can use errors.Is with a
// bare kind sentinel.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

// NewError creates a typed error without a cause
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates a typed error wrapping a cause
func WrapError(kind ErrorKind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the error kind, defaulting to DATA_UNAVAILABLE for
// untyped errors so no failure leaves the taxonomy.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindDataUnavailable
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
