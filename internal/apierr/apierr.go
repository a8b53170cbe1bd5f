// Package apierr defines the error taxonomy shared by every request path and
// renders it as the JSON error body clients display.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for the HTTP boundary.
type Kind int

const (
	// Internal is the zero value: anything unclassified is a server fault.
	Internal Kind = iota
	InvalidArgument
	Unauthorized
	Conflict
	NotFound
	StorageUnavailable
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "INVALID_ARGUMENT"
	case Unauthorized:
		return "UNAUTHORIZED"
	case Conflict:
		return "CONFLICT"
	case NotFound:
		return "NOT_FOUND"
	case StorageUnavailable:
		return "STORAGE_UNAVAILABLE"
	}
	return "INTERNAL"
}

// Status maps a Kind onto its HTTP status code.
func Status(k Kind) int {
	switch k {
	case InvalidArgument:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Conflict:
		return http.StatusConflict
	case NotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// Error is a classified failure. Message is safe to show to callers; Err is
// the underlying cause and is only logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same Kind, so callers can compare against
// the sentinel values below with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidArgument    = &Error{Kind: InvalidArgument}
	ErrUnauthorized       = &Error{Kind: Unauthorized}
	ErrConflict           = &Error{Kind: Conflict}
	ErrNotFound           = &Error{Kind: NotFound}
	ErrStorageUnavailable = &Error{Kind: StorageUnavailable}
)

func New(k Kind, msg string) *Error { return &Error{Kind: k, Message: msg} }

func Wrap(k Kind, msg string, err error) *Error { return &Error{Kind: k, Message: msg, Err: err} }

func Invalid(format string, args ...interface{}) *Error {
	return New(InvalidArgument, fmt.Sprintf(format, args...))
}

func Unauthenticated(msg string) *Error { return New(Unauthorized, msg) }

func Missing(msg string) *Error { return New(NotFound, msg) }

func Duplicate(msg string) *Error { return New(Conflict, msg) }

// Storage wraps a store I/O failure.
func Storage(err error) *Error { return Wrap(StorageUnavailable, "storage unavailable", err) }

// KindOf returns the Kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Message returns the caller-facing text for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "internal error"
}
