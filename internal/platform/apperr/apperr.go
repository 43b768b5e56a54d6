// Package apperr defines the error kinds produced by the domain core.
// Handlers map kinds to HTTP statuses at the boundary; services never
// translate or retry.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	Internal Kind = iota
	Validation
	Conflict
	SlotUnavailable
	InvalidTransition
	ExpiredToken
	NotFound
	Authorization
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Conflict:
		return "conflict"
	case SlotUnavailable:
		return "slot_unavailable"
	case InvalidTransition:
		return "invalid_transition"
	case ExpiredToken:
		return "expired_token"
	case NotFound:
		return "not_found"
	case Authorization:
		return "authorization"
	default:
		return "internal"
	}
}

// Error carries a kind alongside the message so callers can branch on the
// failure class without string matching.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Msg != "" {
		return e.Msg + ": " + e.Err.Error()
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// E builds an Error of the given kind with a formatted message.
func E(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a kind and message prefix.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf reports the kind of err, or Internal for plain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error kind to the status the boundary layer returns.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Validation:
		return http.StatusBadRequest
	case Conflict:
		return http.StatusConflict
	case SlotUnavailable:
		return http.StatusConflict
	case InvalidTransition:
		return http.StatusConflict
	case ExpiredToken:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	case Authorization:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
