package apperrors

import (
	"fmt"
	"net/http"
)

// APIError is the error shape returned to HTTP clients.
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Status  int       `json:"-"`
	cause   error
}

func (e *APIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// NotFound reports a reference that does not resolve.
func NotFound(resource string) *APIError {
	return &APIError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("No valid entry found for provided %s id.", resource),
		Status:  http.StatusNotFound,
	}
}

func Unauthorized(message string) *APIError {
	return &APIError{Code: ErrUnauthorized, Message: message, Status: http.StatusUnauthorized}
}

func Forbidden(message string) *APIError {
	return &APIError{Code: ErrForbidden, Message: message, Status: http.StatusForbidden}
}

func Conflict(message string) *APIError {
	return &APIError{Code: ErrConflict, Message: message, Status: http.StatusConflict}
}

func BadRequest(message string) *APIError {
	return &APIError{Code: ErrBadRequest, Message: message, Status: http.StatusBadRequest}
}

// RangeNotSatisfiable is returned for byte ranges outside the media object.
func RangeNotSatisfiable(size int64) *APIError {
	return &APIError{
		Code:    ErrRangeNotValid,
		Message: fmt.Sprintf("requested range not satisfiable for %d bytes", size),
		Status:  http.StatusRequestedRangeNotSatisfiable,
	}
}

// Internal wraps an unexpected persistence or dependency failure.
func Internal(err error) *APIError {
	return &APIError{
		Code:    ErrInternalError,
		Message: "internal server error",
		Status:  http.StatusInternalServerError,
		cause:   err,
	}
}
