// Package errors provides the client's coded domain errors.
//
// Remote failures are reported by the remote package as *remote.RemoteError.
// Everything the client decides on its own (form validation, missing session,
// local persistence) is an *Error from this package:
//
//	if errors.Is(err, domainerrors.ErrValidation) {
//	    for field, msg := range domainerrors.FieldsOf(err) { ... }
//	}
package errors

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
)

// Code is a machine-readable error class.
type Code string

// Error codes.
const (
	CodeNotFound       Code = "NOT_FOUND"
	CodeUnauthorized   Code = "UNAUTHORIZED"
	CodeSessionExpired Code = "SESSION_EXPIRED"
	CodeValidation     Code = "VALIDATION"
	CodeUnavailable    Code = "UNAVAILABLE"
	CodeInternal       Code = "INTERNAL"
)

// HTTPStatus maps a code onto the status the companion API responds with.
// Unavailable means the legado server could not be reached, so the
// companion answers as a gateway.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized, CodeSessionExpired:
		return http.StatusUnauthorized
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a coded error. Validation errors carry one message per
// offending field, keyed by the field's JSON name.
type Error struct {
	Code    Code              `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error carrying the same Code, so constructed errors
// satisfy errors.Is against the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code
}

// HTTPStatus returns the companion API status for e.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithCause returns a copy of e wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Fields: maps.Clone(e.Fields), cause: err}
}

// Sentinels for errors.Is.
var (
	ErrNotFound       = &Error{Code: CodeNotFound, Message: "not found"}
	ErrUnauthorized   = &Error{Code: CodeUnauthorized, Message: "not logged in"}
	ErrSessionExpired = &Error{Code: CodeSessionExpired, Message: "session expired"}
	ErrValidation     = &Error{Code: CodeValidation, Message: "validation error"}
	ErrUnavailable    = &Error{Code: CodeUnavailable, Message: "server unavailable"}
	ErrInternal       = &Error{Code: CodeInternal, Message: "internal error"}
)

// NotFoundf creates a not found error.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error without field details.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with a formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationFields creates a validation error with per-field messages.
func ValidationFields(msg string, fields map[string]string) *Error {
	return &Error{Code: CodeValidation, Message: msg, Fields: fields}
}

// Unavailable creates an unavailable error.
func Unavailable(msg string) *Error {
	return &Error{Code: CodeUnavailable, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Wrap wraps err with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// FieldsOf returns the per-field messages of the first *Error in err's
// chain, or nil.
func FieldsOf(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}
