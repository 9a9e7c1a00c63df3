package apperrors

import "net/http"

// ErrorCode identifies the class of an API failure.
type ErrorCode string

const (
	ErrNotFound      ErrorCode = "NOT_FOUND"
	ErrUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrForbidden     ErrorCode = "FORBIDDEN"
	ErrConflict      ErrorCode = "CONFLICT"
	ErrBadRequest    ErrorCode = "BAD_REQUEST"
	ErrRangeNotValid ErrorCode = "RANGE_NOT_SATISFIABLE"
	ErrInternalError ErrorCode = "INTERNAL_ERROR"
)

var statusCodeMap = map[ErrorCode]int{
	ErrNotFound:      http.StatusNotFound,
	ErrUnauthorized:  http.StatusUnauthorized,
	ErrForbidden:     http.StatusForbidden,
	ErrConflict:      http.StatusConflict,
	ErrBadRequest:    http.StatusBadRequest,
	ErrRangeNotValid: http.StatusRequestedRangeNotSatisfiable,
	ErrInternalError: http.StatusInternalServerError,
}

// StatusCode returns the HTTP status for the code, 500 when unknown.
func (e ErrorCode) StatusCode() int {
	if code, ok := statusCodeMap[e]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// codeForStatus is the reverse lookup used when wrapping echo errors.
func codeForStatus(status int) ErrorCode {
	for code, s := range statusCodeMap {
		if s == status {
			return code
		}
	}
	if status >= 500 {
		return ErrInternalError
	}
	return ErrBadRequest
}
