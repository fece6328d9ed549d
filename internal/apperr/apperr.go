// Package apperr defines the error taxonomy shared by every service
// boundary. Business logic never returns bare errors or HTTP statuses;
// it returns a *Error carrying a stable Kind, which the outermost HTTP
// handler translates into a status code and machine-readable body.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a stable, machine-readable error classification.
type Kind string

const (
	BadInput            Kind = "bad_input"
	Unauthenticated     Kind = "unauthenticated"
	AccessDenied        Kind = "access_denied"
	NotFound            Kind = "not_found"
	ProviderUnavailable Kind = "provider_unavailable"
	StoreUnavailable    Kind = "store_unavailable"
	ProjectionFailed    Kind = "projection_failed"
	Internal            Kind = "internal"
)

// Status returns the HTTP status code associated with a Kind.
func (k Kind) Status() int {
	switch k {
	case BadInput:
		return http.StatusBadRequest
	case Unauthenticated:
		return http.StatusUnauthorized
	case AccessDenied:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case ProviderUnavailable, StoreUnavailable, ProjectionFailed, Internal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Error wraps an underlying error with a Kind and the operation that
// produced it, mirroring the teacher's *MemoryError{Op, Err} pattern.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Error returns a formatted error message: "memoryd: <Op>: <Err>".
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("memoryd: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("memoryd: %s: %v", e.Op, e.Err)
}

// Unwrap allows errors.Is/errors.As to see through to the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an *Error of the given Kind, wrapping err. If err is nil
// New returns nil.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf creates an *Error of the given Kind with a formatted message.
func Newf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the Kind from err, defaulting to Internal when err
// was not produced by this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Detail returns the human-readable message to surface to a caller;
// never leaks anything below the wrapped error's top-level message.
func Detail(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err.Error()
	}
	return err.Error()
}
