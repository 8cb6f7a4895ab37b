// Package domainerrors defines the coded error type shared by all services.
//
// Stores report infrastructure facts with pkg/platform/sentinel errors;
// services translate those into coded errors so handlers can map them onto
// HTTP statuses without inspecting storage internals.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for callers and the transport layer.
type Code string

const (
	// CodeValidation marks client-correctable input problems (bad counts,
	// future dates, unknown nodes). Carries the offending field when known.
	CodeValidation Code = "VALIDATION"
	// CodeBadRequest marks malformed requests before domain validation runs.
	CodeBadRequest Code = "BAD_REQUEST"
	// CodeNotFound marks lookups of entities that do not exist.
	CodeNotFound Code = "NOT_FOUND"
	// CodeConflict marks uniqueness violations, e.g. a second report for the
	// same (node, date).
	CodeConflict Code = "CONFLICT"
	// CodeUnauthorized marks failed node authentication.
	CodeUnauthorized Code = "UNAUTHORIZED"
	// CodeTimeout marks aborted work due to context cancellation/deadline.
	CodeTimeout Code = "TIMEOUT"
	// CodeInternal marks storage or infrastructure faults. The transactional
	// intake unit rolls back before surfacing one of these.
	CodeInternal Code = "INTERNAL"
)

// Error is a coded domain error. Field and Value are populated for
// validation errors so clients can correct the exact input that failed.
type Error struct {
	Code    Code
	Message string
	Field   string
	Value   any
	cause   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a coded error with a static message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause. The cause stays
// reachable through errors.Is/errors.As.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// Validation builds a CodeValidation error annotated with the failing field
// and the rejected value.
func Validation(field, message string, value any) *Error {
	return &Error{Code: CodeValidation, Message: message, Field: field, Value: value}
}

// WithField annotates an existing error with the failing field.
func (e *Error) WithField(field string, value any) *Error {
	e.Field = field
	e.Value = value
	return e
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is a readability alias for HasCode used at call sites that branch on a
// single expected code.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the code from err, defaulting to CodeInternal for uncoded
// errors so unexpected faults never leak as client errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code onto the HTTP status the transport layer writes.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
