package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is the machine-readable error code returned in the response envelope.
type Code string

const (
	CodeAuthFail            Code = "auth_fail"
	CodeValidation          Code = "validation_error"
	CodeStateTransition     Code = "state_transition_error"
	CodeConflict            Code = "conflict"
	CodeIdempotencyConflict Code = "idempotency_conflict"
	CodeThirdParty          Code = "third_party_fail"
	CodeNotFound            Code = "not_found"
	CodeInternal            Code = "internal_error"
)

// Error carries a taxonomy code, a human-readable message and structured
// details for the caller. It maps onto the {ok:false, code, message, details}
// envelope at the HTTP boundary.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
	Status  int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HTTPStatus returns the HTTP status associated with the error code.
func (e *Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Code {
	case CodeAuthFail:
		return http.StatusUnauthorized
	case CodeValidation:
		return http.StatusUnprocessableEntity
	case CodeStateTransition, CodeConflict, CodeIdempotencyConflict:
		return http.StatusConflict
	case CodeThirdParty:
		return http.StatusServiceUnavailable
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func newError(code Code, message string, details map[string]any) *Error {
	return &Error{Code: code, Message: message, Details: details}
}

func AuthFail(message string) *Error {
	return newError(CodeAuthFail, message, nil)
}

func Validation(message string, details map[string]any) *Error {
	return newError(CodeValidation, message, details)
}

func StateTransition(message string, details map[string]any) *Error {
	return newError(CodeStateTransition, message, details)
}

func Conflict(message string, details map[string]any) *Error {
	return newError(CodeConflict, message, details)
}

func IdempotencyConflict(message string, details map[string]any) *Error {
	return newError(CodeIdempotencyConflict, message, details)
}

func ThirdParty(message string, details map[string]any) *Error {
	return newError(CodeThirdParty, message, details)
}

func NotFound(message string, details map[string]any) *Error {
	return newError(CodeNotFound, message, details)
}

func Internal(message string) *Error {
	return newError(CodeInternal, message, nil)
}

// From extracts an *Error from err, wrapping unknown errors as internal so
// the boundary never leaks raw error strings with a 200-family status.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal error")
}

// IsCode reports whether err carries the given taxonomy code.
func IsCode(err error, code Code) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
