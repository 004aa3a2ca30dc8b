// Package errors defines the error taxonomy shared by the reader service.
// Components return kinded errors; the API layer translates them to HTTP
// statuses exactly once.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for HTTP translation and retry policy.
type Kind string

const (
	// KindValidation is a bad or missing input. Never retried.
	KindValidation Kind = "validation"
	// KindAuth is a missing or invalid bearer token. Never retried.
	KindAuth Kind = "auth"
	// KindNotFound is a lookup miss surfaced as-is, e.g. simplify
	// requested before the source was extracted.
	KindNotFound Kind = "not_found"
	// KindBlocked means the fetch target actively refused the request.
	KindBlocked Kind = "blocked"
	// KindExtraction means no main content could be identified in a page.
	KindExtraction Kind = "extraction"
	// KindUpstream is a model or third-party API failure.
	KindUpstream Kind = "upstream"
	// KindStore is a document-store read or write failure.
	KindStore Kind = "store"
)

// Error is a kinded service error with an optional human-readable detail.
type Error struct {
	Kind    Kind
	Message string
	Detail  string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error kind to an HTTP status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindBlocked:
		return http.StatusForbidden
	case KindExtraction:
		return http.StatusUnprocessableEntity
	case KindUpstream, KindStore:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// New creates a kinded error with the given message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a kinded error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithDetail returns a copy of the error carrying a human-readable detail
// string for the response body.
func (e *Error) WithDetail(detail string) *Error {
	out := *e
	out.Detail = detail
	return &out
}

// KindOf extracts the kind from an error chain. Unkinded errors report
// KindUpstream so unexpected failures surface as 500s.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUpstream
}

// Is reports whether the error chain contains a kinded error of the given kind.
func Is(err error, kind Kind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == kind
}

// AsError extracts the kinded error from a chain, if present.
func AsError(err error) (*Error, bool) {
	var se *Error
	ok := errors.As(err, &se)
	return se, ok
}

// WrapWithContext wraps an error with additional context information.
func WrapWithContext(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}
