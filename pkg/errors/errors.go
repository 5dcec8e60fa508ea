package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Codes rendered in the error envelope.
const (
	CodeBadRequest      = "BAD_REQUEST"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeNotFound        = "NOT_FOUND"
	CodeTooManyRequests = "TOO_MANY_REQUESTS"
	CodeInternal        = "INTERNAL_ERROR"
	CodeValidation      = "VALIDATION_ERROR"
)

type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newError(code string, status int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Status: status, Err: err}
}

// NotFound is also returned when the caller is not a participant, so a
// missing thread and a foreign one look the same.
func NotFound(resource string, err error) *AppError {
	return newError(CodeNotFound, http.StatusNotFound, resource+" not found", err)
}

func BadRequest(message string, err error) *AppError {
	return newError(CodeBadRequest, http.StatusBadRequest, message, err)
}

func Unauthorized(message string, err error) *AppError {
	return newError(CodeUnauthorized, http.StatusUnauthorized, message, err)
}

// Internal keeps err for logs; only message reaches the client outside
// development.
func Internal(message string, err error) *AppError {
	return newError(CodeInternal, http.StatusInternalServerError, message, err)
}

func TooManyRequests(message string, err error) *AppError {
	return newError(CodeTooManyRequests, http.StatusTooManyRequests, message, err)
}

// Is reports whether err carries an AppError with the given code.
func Is(err error, code string) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

func As(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}
