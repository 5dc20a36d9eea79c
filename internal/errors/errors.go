// Package errors defines the error taxonomy shared by the workflow controller,
// the backend client and the HTTP layer.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// User-facing messages.
const (
	MsgNoImage        = "Please upload an image."
	MsgGenericFailure = "An error occurred. Please try again."
	MsgInFlight       = "A submission is already in progress."
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeServer     ErrorType = "server"
	ErrorTypeDecode     ErrorType = "decode"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeInternal   ErrorType = "internal"
)

// ErrSubmissionInFlight is returned when a submission is attempted while
// another one has not settled yet.
var ErrSubmissionInFlight = &AppError{
	Type:       ErrorTypeConflict,
	Message:    MsgInFlight,
	StatusCode: http.StatusConflict,
}

// AppError represents a structured application error.
// Remote holds the backend's own error text, when it sent one.
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Remote     string    `json:"remote,omitempty"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := e.Message
	if e.Remote != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Remote)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, msg)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Cause:      cause,
	}
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeNetwork,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeTimeout,
		Message:    message,
		StatusCode: http.StatusGatewayTimeout,
		Cause:      cause,
	}
}

// NewServerError records a non-success response from the backend.
func NewServerError(status int, remote string) *AppError {
	return &AppError{
		Type:       ErrorTypeServer,
		Message:    fmt.Sprintf("backend responded with status %d", status),
		Remote:     remote,
		StatusCode: http.StatusBadGateway,
	}
}

// NewDecodeError creates an error for a success response that could not be read.
func NewDecodeError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeDecode,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// FromTransport classifies an error returned by the HTTP client.
func FromTransport(message string, err error) *AppError {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(message, err)
	}
	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return NewTimeoutError(message, err)
	}
	return NewNetworkError(message, err)
}

// IsType checks if the error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// UserMessage maps an error to the text shown to the user. Validation and
// conflict errors carry their own message, backend errors show the backend's
// error field when present, and everything else gets the generic fallback.
func UserMessage(err error) string {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return MsgGenericFailure
	}
	switch {
	case appErr.Type == ErrorTypeValidation || appErr.Type == ErrorTypeConflict:
		return appErr.Message
	case appErr.Remote != "":
		return appErr.Remote
	default:
		return MsgGenericFailure
	}
}
