package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrInvalidInput indicates that the request filters are invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrServiceUnavailable indicates that the remote store failed or the
	// request deadline expired before the pipeline completed.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrInternalError indicates an internal server error.
	ErrInternalError = errors.New("internal error")
)

// ValidationError represents a validation error for a specific filter.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// StoreError describes a failed request against the remote store.
// It matches both ErrServiceUnavailable and its cause under errors.Is.
type StoreError struct {
	Backend    string
	Op         string
	Table      string
	StatusCode int
	Cause      error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s %s (status %d): %v", e.Backend, e.Op, e.Table, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("%s %s %s: %v", e.Backend, e.Op, e.Table, e.Cause)
}

// Unwrap returns the sentinel and the cause.
func (e *StoreError) Unwrap() []error {
	return []error{ErrServiceUnavailable, e.Cause}
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewStoreError creates a new StoreError.
func NewStoreError(backend, op, table string, statusCode int, cause error) *StoreError {
	return &StoreError{
		Backend:    backend,
		Op:         op,
		Table:      table,
		StatusCode: statusCode,
		Cause:      cause,
	}
}
