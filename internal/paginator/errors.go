package paginator

import (
	"errors"
	"fmt"
)

// ErrorCode represents a specific error condition in pagination operations.
// Error codes help with error classification, monitoring, and deciding
// whether a failure should abort session disposal.
type ErrorCode string

const (
	// ErrCodeSessionInactive indicates a control was registered against a
	// session that has already completed or been disposed
	ErrCodeSessionInactive ErrorCode = "SESSION_INACTIVE"

	// ErrCodeInvalidInput indicates invalid session or page data
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// ErrCodeCapability indicates a control token the session's binding
	// set does not support
	ErrCodeCapability ErrorCode = "CAPABILITY_ERROR"

	// ErrCodeTransport indicates a remote render or cleanup call failed
	ErrCodeTransport ErrorCode = "TRANSPORT_ERROR"

	// ErrCodeTimeout indicates an operation timed out or was cancelled
	ErrCodeTimeout ErrorCode = "TIMEOUT_ERROR"

	// ErrCodeConfig indicates a configuration error
	ErrCodeConfig ErrorCode = "CONFIG_ERROR"

	// ErrCodeInternal indicates an unexpected internal error
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with additional context for
// pagination operations. It includes an error code for categorization
// and the underlying error when one exists.
type Error struct {
	// Code categorizes the error type for monitoring and handling
	Code ErrorCode

	// Message provides a human-readable error description
	Message string

	// Err is the underlying error that caused this error
	Err error
}

// Error implements the error interface, returning a formatted error message.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error, allowing errors.Is and errors.As to work.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error constructors for convenience

// ErrSessionInactive creates a session inactive error.
func ErrSessionInactive(message string) *Error {
	return NewError(ErrCodeSessionInactive, message, nil)
}

// ErrInvalidInput creates an invalid input error.
func ErrInvalidInput(message string, err error) *Error {
	return NewError(ErrCodeInvalidInput, message, err)
}

// ErrCapability creates a capability mismatch error.
func ErrCapability(message string) *Error {
	return NewError(ErrCodeCapability, message, nil)
}

// ErrTransport creates a transport error.
func ErrTransport(message string, err error) *Error {
	return NewError(ErrCodeTransport, message, err)
}

// ErrTimeout creates a timeout error.
func ErrTimeout(message string, err error) *Error {
	return NewError(ErrCodeTimeout, message, err)
}

// ErrConfig creates a configuration error.
func ErrConfig(message string, err error) *Error {
	return NewError(ErrCodeConfig, message, err)
}

// ErrInternal creates an internal error.
func ErrInternal(message string, err error) *Error {
	return NewError(ErrCodeInternal, message, err)
}

// GetErrorCode extracts the ErrorCode from an error if it's a paginator
// Error, otherwise returns ErrCodeInternal.
func GetErrorCode(err error) ErrorCode {
	var pErr *Error
	if errors.As(err, &pErr) {
		return pErr.Code
	}
	return ErrCodeInternal
}

// IsSessionInactive reports whether err marks a control registered
// against a completed or disposed session.
func IsSessionInactive(err error) bool {
	return GetErrorCode(err) == ErrCodeSessionInactive
}
