// Package errors defines the typed failures returned by the collection
// engine. Every caller-visible failure is an *Error carrying one Code; store
// and driver failures are wrapped as CodeInternal by the transports.
//
//	if errors.Is(err, errors.ErrNotOwner) {
//	    ...
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	New    = errors.New
	Unwrap = errors.Unwrap
)

// Code represents a machine-readable error code.
type Code string

const (
	CodeNotFound                Code = "NOT_FOUND"
	CodeNotOwner                Code = "NOT_OWNER"
	CodeValidation              Code = "VALIDATION"
	CodeConflict                Code = "CONFLICT"
	CodeForbiddenSystemMutation Code = "FORBIDDEN_SYSTEM_MUTATION"
	CodeInternal                Code = "INTERNAL"
)

// HTTPStatus returns the HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeNotOwner, CodeForbiddenSystemMutation:
		return http.StatusForbidden
	case CodeValidation:
		return http.StatusBadRequest
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Label returns the lower-case form used in metrics labels.
func (c Code) Label() string {
	switch c {
	case CodeNotFound:
		return "not_found"
	case CodeNotOwner:
		return "not_owner"
	case CodeValidation:
		return "validation"
	case CodeConflict:
		return "conflict"
	case CodeForbiddenSystemMutation:
		return "forbidden_system_mutation"
	default:
		return "internal"
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound                = &Error{Code: CodeNotFound, Message: "not found"}
	ErrNotOwner                = &Error{Code: CodeNotOwner, Message: "not the owner of this list"}
	ErrValidation              = &Error{Code: CodeValidation, Message: "validation error"}
	ErrConflict                = &Error{Code: CodeConflict, Message: "conflict"}
	ErrForbiddenSystemMutation = &Error{Code: CodeForbiddenSystemMutation, Message: "cannot modify system list"}
	ErrInternal                = &Error{Code: CodeInternal, Message: "internal error"}
)

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// NotOwner creates a not-owner error for the given list.
func NotOwner(listID int64) *Error {
	return &Error{Code: CodeNotOwner, Message: fmt.Sprintf("list %d belongs to another user", listID)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Conflictf creates a conflict error with formatted message.
func Conflictf(format string, args ...any) *Error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

// ForbiddenSystemMutation creates the error returned when a generic
// operation targets a system list.
func ForbiddenSystemMutation(listID int64) *Error {
	return &Error{Code: CodeForbiddenSystemMutation, Message: fmt.Sprintf("cannot modify system list %d", listID)}
}

// Wrap wraps err with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// CodeOf returns the code carried by err, CodeInternal for foreign errors
// and the empty code for nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
