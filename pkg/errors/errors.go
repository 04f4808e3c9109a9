// Package errors defines the application error type shared by all Raterly
// services, together with sentinel errors and their HTTP status mapping.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard sentinel errors for common cases.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrAlreadyExists  = errors.New("resource already exists")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInternal       = errors.New("internal error")
	ErrConflict       = errors.New("conflict")
	ErrServiceUnavail = errors.New("service unavailable")
	ErrGone           = errors.New("gone")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
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

func newAppError(code string, status int, sentinel error, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     sentinel,
	}
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return newAppError("NOT_FOUND", http.StatusNotFound, ErrNotFound,
		fmt.Sprintf("%s with id %s not found", resource, id))
}

// AlreadyExists creates a 409 error.
func AlreadyExists(resource, field, value string) *AppError {
	return newAppError("ALREADY_EXISTS", http.StatusConflict, ErrAlreadyExists,
		fmt.Sprintf("%s with %s %q already exists", resource, field, value))
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return newAppError("INVALID_INPUT", http.StatusBadRequest, ErrInvalidInput, message)
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return newAppError("UNAUTHORIZED", http.StatusUnauthorized, ErrUnauthorized, message)
}

// Forbidden creates a 403 error.
func Forbidden(message string) *AppError {
	return newAppError("FORBIDDEN", http.StatusForbidden, ErrForbidden, message)
}

// Internal creates a 500 error. The cause is wrapped but the message stays
// generic so internals never leak to API clients.
func Internal(err error) *AppError {
	return newAppError("INTERNAL_ERROR", http.StatusInternalServerError, err,
		"an internal error occurred")
}

// Conflict creates a 409 error for optimistic-concurrency conflicts.
func Conflict(message string) *AppError {
	return newAppError("CONFLICT", http.StatusConflict, ErrConflict, message)
}

// Gone creates a 410 error for resources that existed but are no longer available.
func Gone(message string) *AppError {
	return newAppError("GONE", http.StatusGone, ErrGone, message)
}

// Unavailable creates a 503 error for transient infrastructure failures.
func Unavailable(message string) *AppError {
	return newAppError("UNAVAILABLE", http.StatusServiceUnavailable, ErrServiceUnavail, message)
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// sentinelStatus maps each sentinel to its HTTP status.
var sentinelStatus = []struct {
	sentinel error
	status   int
}{
	{ErrNotFound, http.StatusNotFound},
	{ErrAlreadyExists, http.StatusConflict},
	{ErrConflict, http.StatusConflict},
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrUnauthorized, http.StatusUnauthorized},
	{ErrForbidden, http.StatusForbidden},
	{ErrGone, http.StatusGone},
	{ErrServiceUnavail, http.StatusServiceUnavailable},
}

// HTTPStatus returns the HTTP status code for the given error. An AppError
// takes precedence; otherwise the sentinel chain decides, and anything
// unrecognized maps to 500.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	for _, m := range sentinelStatus {
		if errors.Is(err, m.sentinel) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}
