// Package errors defines the structured error type used by livepane's
// configuration, exercise loading and transport layers.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeSecurity   ErrorType = "security"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeTransport  ErrorType = "transport"
	ErrorTypeInternal   ErrorType = "internal"
)

// LivepaneError is a structured error type with context.
type LivepaneError struct {
	Type    ErrorType
	Code    string
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *LivepaneError) Error() string {
	var parts []string
	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}
	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}
	return result
}

// Unwrap returns the underlying cause error.
func (e *LivepaneError) Unwrap() error {
	return e.Cause
}

// Is matches another LivepaneError with the same type and code.
func (e *LivepaneError) Is(target error) bool {
	var t *LivepaneError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}
	return false
}

// WithContext adds context information to the error.
func (e *LivepaneError) WithContext(key string, value interface{}) *LivepaneError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Error creation functions

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *LivepaneError {
	return &LivepaneError{Type: ErrorTypeValidation, Code: code, Message: message}
}

// NewSecurityError creates a security error.
func NewSecurityError(code, message string) *LivepaneError {
	return &LivepaneError{Type: ErrorTypeSecurity, Code: code, Message: message}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *LivepaneError {
	return &LivepaneError{Type: ErrorTypeIO, Code: code, Message: message, Cause: cause}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string, cause error) *LivepaneError {
	return &LivepaneError{Type: ErrorTypeConfig, Code: code, Message: message, Cause: cause}
}

// NewTransportError creates a transport error.
func NewTransportError(code, message string, cause error) *LivepaneError {
	return &LivepaneError{Type: ErrorTypeTransport, Code: code, Message: message, Cause: cause}
}

// WrapError wraps err as an internal error unless it already is a
// LivepaneError.
func WrapError(err error, code, message string) error {
	if err == nil {
		return nil
	}
	var le *LivepaneError
	if errors.As(err, &le) {
		return err
	}
	return &LivepaneError{Type: ErrorTypeInternal, Code: code, Message: message, Cause: err}
}

// IsType reports whether err is a LivepaneError of the given type.
func IsType(err error, errorType ErrorType) bool {
	var le *LivepaneError
	return errors.As(err, &le) && le.Type == errorType
}

// Common error codes
const (
	ErrCodeInvalidKind      = "ERR_INVALID_KIND"
	ErrCodeBufferTooLarge   = "ERR_BUFFER_TOO_LARGE"
	ErrCodeRateLimited      = "ERR_RATE_LIMITED"
	ErrCodeInvalidMessage   = "ERR_INVALID_MESSAGE"
	ErrCodeExerciseNotFound = "ERR_EXERCISE_NOT_FOUND"
	ErrCodeExerciseInvalid  = "ERR_EXERCISE_INVALID"
	ErrCodeConfigInvalid    = "ERR_CONFIG_INVALID"
	ErrCodeOriginRejected   = "ERR_ORIGIN_REJECTED"
	ErrCodeSendQueueFull    = "ERR_SEND_QUEUE_FULL"
	ErrCodeServeFailed      = "ERR_SERVE_FAILED"
	ErrCodeSessionNotFound  = "ERR_SESSION_NOT_FOUND"
)
