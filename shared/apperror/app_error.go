// Package apperror classifies errors that carry an HTTP status chosen where they are raised.
package apperror

import (
	"errors"
	"net/http"
)

// AppError is an operational error: its message is safe to show to clients.
type AppError struct {
	StatusCode int
	Message    string
	Errors     interface{}
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an operational error with the given status and message
func New(statusCode int, message string) *AppError {
	return &AppError{StatusCode: statusCode, Message: message}
}

// Wrap attaches a status and client-facing message to an underlying error
func Wrap(err error, statusCode int, message string) *AppError {
	return &AppError{StatusCode: statusCode, Message: message, Err: err}
}

func BadRequest(message string) *AppError {
	return New(http.StatusBadRequest, message)
}

func Unauthorized(message string) *AppError {
	return New(http.StatusUnauthorized, message)
}

func Forbidden(message string) *AppError {
	return New(http.StatusForbidden, message)
}

func NotFound(message string) *AppError {
	return New(http.StatusNotFound, message)
}

// Validation builds the 400 returned for rejected input with per-field messages
func Validation(fieldErrors []string) *AppError {
	return &AppError{StatusCode: http.StatusBadRequest, Message: "Validation Error", Errors: fieldErrors}
}

// As returns the AppError in err's chain, if any
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
