package errors

import (
	"fmt"
	"net/http"
)

// Error codes
const (
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeInternal         = "INTERNAL_ERROR"
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeUnavailable      = "UNAVAILABLE"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	ErrCodeTooLarge         = "PAYLOAD_TOO_LARGE"
)

// AppError is an error that knows its HTTP status and its stable,
// machine-readable code. Message is safe to show to clients; Err is not.
type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newError(status int, code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Status: status}
}

func NewNotFoundError(resource string, id any) *AppError {
	return newError(http.StatusNotFound, ErrCodeNotFound, "%s not found: %v", resource, id)
}

// NewValidationError reports one invalid request field. The field name is
// part of the message so clients can point at it.
func NewValidationError(field string, reason string) *AppError {
	return newError(http.StatusBadRequest, ErrCodeValidation, "validation failed for %s: %s", field, reason)
}

// NewInternalError hides err from the client; it is still logged.
func NewInternalError(err error) *AppError {
	e := newError(http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	e.Err = err
	return e
}

func NewBadRequestError(message string) *AppError {
	return newError(http.StatusBadRequest, ErrCodeBadRequest, "%s", message)
}

func NewConflictError(resource string, id any) *AppError {
	return newError(http.StatusConflict, ErrCodeConflict, "%s already exists: %v", resource, id)
}

func NewUnavailableError(err error) *AppError {
	e := newError(http.StatusServiceUnavailable, ErrCodeUnavailable, "service unavailable")
	e.Err = err
	return e
}

func NewMethodNotAllowedError(method, path string) *AppError {
	return newError(http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method %s not allowed on %s", method, path)
}

func NewPayloadTooLargeError(limit int64) *AppError {
	return newError(http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "request body exceeds %d bytes", limit)
}
