// Package apperr defines the application error taxonomy for Bazario.
//
// Every failure a service returns is one of a small set of kinds, so
// controllers can map errors to HTTP status codes without inspecting
// messages, and callers always receive a stable, safe payload:
//
//	return apperr.Conflictf("insufficient stock for product %d", id)
//
//	if apperr.KindOf(err) == apperr.Conflict { ... }
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping and retry decisions.
type Kind int

const (
	// Internal is any error without a known kind. Logged with full
	// context server-side, surfaced to the caller as a generic failure.
	Internal Kind = iota
	// Validation — malformed or missing input; caller can correct and retry.
	Validation
	// Authentication — identity not established; message never reveals
	// which factor was wrong.
	Authentication
	// Authorization — identity established but insufficient privilege.
	Authorization
	// Conflict — state precondition violated (duplicate email, insufficient
	// stock, illegal status transition); retry after refreshing state.
	Conflict
	// NotFound — referenced entity absent.
	NotFound
	// Unavailable — downstream dependency timeout or outage; retry with backoff.
	Unavailable
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Authentication:
		return "authentication"
	case Authorization:
		return "authorization"
	case Conflict:
		return "conflict"
	case NotFound:
		return "not_found"
	case Unavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
	// Fields carries per-field validation messages, when present.
	Fields map[string]string
	// Err is the wrapped cause, if any. Never shown to callers.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validationf(format string, args ...any) *Error {
	return New(Validation, fmt.Sprintf(format, args...))
}

// ValidationFields wraps a field→message map from the validator.
func ValidationFields(fields map[string]string) *Error {
	return &Error{Kind: Validation, Message: "validation failed", Fields: fields}
}

func Authenticationf(format string, args ...any) *Error {
	return New(Authentication, fmt.Sprintf(format, args...))
}

func Authorizationf(format string, args ...any) *Error {
	return New(Authorization, fmt.Sprintf(format, args...))
}

func Conflictf(format string, args ...any) *Error {
	return New(Conflict, fmt.Sprintf(format, args...))
}

func NotFoundf(format string, args ...any) *Error {
	return New(NotFound, fmt.Sprintf(format, args...))
}

func Unavailablef(format string, args ...any) *Error {
	return New(Unavailable, fmt.Sprintf(format, args...))
}

// KindOf returns the kind of err, or Internal when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err has the given kind.
func Is(err error, kind Kind) bool { return KindOf(err) == kind }

// MessageFor returns the caller-safe message for err. Internal errors get a
// generic message so no internal detail leaks.
func MessageFor(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != Internal {
		return e.Message
	}
	return "something went wrong"
}

// FieldsFor returns per-field validation messages, or nil.
func FieldsFor(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}
