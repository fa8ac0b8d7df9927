// Package errors defines custom error types and error handling utilities for the item service.
// Every error carries a machine-readable code and the HTTP status it maps to.
package errors

import (
	stderrors "errors"
	"net/http"

	"github.com/turtacn/itemsvc/pkg/constants"
)

// ================================================================================
// Base Error Interface
// ================================================================================

// ServiceError represents a structured error with additional metadata
type ServiceError interface {
	error

	// Code returns the machine-readable error code
	Code() constants.ErrorCode

	// HTTPStatus returns the HTTP status code
	HTTPStatus() int

	// Description returns a client-safe description
	Description() string

	// Unwrap returns the underlying error for error chain support
	Unwrap() error

	// WithCause adds a cause error to the error chain
	WithCause(cause error) ServiceError
}

// ================================================================================
// Base Error Implementation
// ================================================================================

type baseError struct {
	code        constants.ErrorCode
	httpStatus  int
	description string
	cause       error
}

func (e *baseError) Error() string {
	if e.cause != nil {
		return e.description + ": " + e.cause.Error()
	}
	return e.description
}

func (e *baseError) Code() constants.ErrorCode { return e.code }

func (e *baseError) HTTPStatus() int { return e.httpStatus }

func (e *baseError) Description() string { return e.description }

func (e *baseError) Unwrap() error { return e.cause }

// WithCause returns a copy carrying cause, so shared instances are never mutated.
func (e *baseError) WithCause(cause error) ServiceError {
	cp := *e
	cp.cause = cause
	return &cp
}

// Is matches any ServiceError with the same code.
func (e *baseError) Is(target error) bool {
	t, ok := target.(*baseError)
	return ok && t.code == e.code
}

// NewError creates a new ServiceError with the specified parameters
func NewError(code constants.ErrorCode, httpStatus int, description string) ServiceError {
	return &baseError{
		code:        code,
		httpStatus:  httpStatus,
		description: description,
	}
}

// ================================================================================
// Predefined Errors
// ================================================================================

// Sentinels for errors.Is comparisons.
var (
	ErrValidationKind = NewError(constants.ErrCodeInvalidRequest, http.StatusBadRequest, "invalid request")
	ErrNotFoundKind   = NewError(constants.ErrCodeNotFound, http.StatusNotFound, "not found")
	ErrUpstreamKind   = NewError(constants.ErrCodeServiceUnavailable, http.StatusServiceUnavailable, "service unavailable")
	ErrInternalKind   = NewError(constants.ErrCodeInternal, http.StatusInternalServerError, "internal error")
	ErrInvalidCfgKind = NewError(constants.ErrCodeInvalidConfig, http.StatusInternalServerError, "invalid configuration")
)

// ErrValidation is a client fault: bad input, never retried.
func ErrValidation(message string) ServiceError {
	return NewError(constants.ErrCodeInvalidRequest, http.StatusBadRequest, message)
}

// ErrNotFound reports a missing record.
func ErrNotFound(message string) ServiceError {
	return NewError(constants.ErrCodeNotFound, http.StatusNotFound, message)
}

// ErrUpstreamUnavailable reports a data-store connectivity or timeout failure. Safe to retry.
func ErrUpstreamUnavailable(message string) ServiceError {
	return NewError(constants.ErrCodeServiceUnavailable, http.StatusServiceUnavailable, message)
}

// ErrInternalFault reports an unexpected handler fault.
func ErrInternalFault(message string) ServiceError {
	return NewError(constants.ErrCodeInternal, http.StatusInternalServerError, message)
}

// ErrInvalidConfig reports a configuration problem detected at startup.
func ErrInvalidConfig(message string) ServiceError {
	return NewError(constants.ErrCodeInvalidConfig, http.StatusInternalServerError, message)
}

// ================================================================================
// Error Utilities
// ================================================================================

// AsServiceError finds the first ServiceError in err's chain
func AsServiceError(err error) (ServiceError, bool) {
	var svcErr ServiceError
	if stderrors.As(err, &svcErr) {
		return svcErr, true
	}
	return nil, false
}

// HTTPStatusOf returns the status an error maps to; unknown errors are internal faults.
func HTTPStatusOf(err error) int {
	if svcErr, ok := AsServiceError(err); ok {
		return svcErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// IsTransientError reports whether the client may retry
func IsTransientError(err error) bool {
	return stderrors.Is(err, ErrUpstreamKind)
}

// IsNotFoundError checks if an error is a not found error.
func IsNotFoundError(err error) bool {
	return stderrors.Is(err, ErrNotFoundKind)
}

// ShouldLogError determines if an error should be logged at error level
func ShouldLogError(err error) bool {
	return HTTPStatusOf(err) >= http.StatusInternalServerError
}
