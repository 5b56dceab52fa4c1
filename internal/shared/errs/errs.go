// Package errs defines the error-kind taxonomy from the error-handling
// design: each kind carries its own retry/surface policy, so callers
// switch on kind with errors.As rather than string-matching messages.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for retry/surface policy purposes.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindSSRF               Kind = "ssrf_domain"
	KindFetchTransient     Kind = "fetch_transient"
	KindFetchPermanent     Kind = "fetch_permanent"
	KindParse              Kind = "parse"
	KindProvider           Kind = "provider"
	KindConflict           Kind = "optimistic_lock_conflict"
	KindUniqueViolation    Kind = "unique_violation"
	KindWorkerCrash        Kind = "worker_crash"
	KindInvalidTransition  Kind = "invalid_state_transition"
)

// Error wraps an underlying cause with a Kind so policy code can branch
// on it without parsing strings.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an *Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap constructs an *Error of the given kind wrapping cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// Is reports whether err (or something it wraps) is an *Error of kind k.
func Is(err error, k Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == k
}

// Retryable reports whether an error of this kind should be retried with
// backoff rather than surfaced/failed immediately.
func (k Kind) Retryable() bool {
	switch k {
	case KindFetchTransient, KindProvider:
		return true
	default:
		return false
	}
}
