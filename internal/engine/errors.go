// internal/engine/errors.go
package engine

import (
	"errors"
	"fmt"
)

// ErrorCode is the failure kind of an EngineError. Retry policies match on it.
type ErrorCode string

const (
	ErrCodePoolLaunch        ErrorCode = "POOL_LAUNCH"
	ErrCodePool              ErrorCode = "POOL"
	ErrCodeNavigationTimeout ErrorCode = "NAVIGATION_TIMEOUT"
	ErrCodeRequestTimeout    ErrorCode = "REQUEST_TIMEOUT"
	ErrCodeTLSHandshake      ErrorCode = "TLS_HANDSHAKE"
	ErrCodeRetry             ErrorCode = "RETRY"
	ErrCodeEmptyOutput       ErrorCode = "EMPTY_OUTPUT"
	ErrCodeExhausted         ErrorCode = "RETRIES_EXHAUSTED"
	ErrCodeFetch             ErrorCode = "FETCH"
	ErrCodeTransform         ErrorCode = "TRANSFORM"
	ErrCodeQueueFull         ErrorCode = "QUEUE_FULL"
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeValidation        ErrorCode = "VALIDATION"
)

// Sentinels for errors.Is. Matching is by code, so any EngineError with the
// same code satisfies them.
var (
	ErrPoolLaunch        = NewEngineError(ErrCodePoolLaunch, "driver pool launch failed", nil)
	ErrPool              = NewEngineError(ErrCodePool, "driver pool error", nil)
	ErrNavigationTimeout = NewEngineError(ErrCodeNavigationTimeout, "navigation timeout", nil)
	ErrRequestTimeout    = NewEngineError(ErrCodeRequestTimeout, "request timeout", nil)
	ErrTLSHandshake      = NewEngineError(ErrCodeTLSHandshake, "tls handshake failed", nil)
	ErrRetry             = NewEngineError(ErrCodeRetry, "retry requested", nil)
	ErrEmptyOutput       = NewEngineError(ErrCodeEmptyOutput, "fetch returned no output", nil)
	ErrExhausted         = NewEngineError(ErrCodeExhausted, "retries exhausted", nil)
	ErrQueueFull         = NewEngineError(ErrCodeQueueFull, "worker queue is full", nil)
	ErrNotFound          = NewEngineError(ErrCodeNotFound, "not found", nil)
	ErrValidation        = NewEngineError(ErrCodeValidation, "invalid input", nil)
)

// EngineError wraps errors with a failure kind and optional details
type EngineError struct {
	Code       ErrorCode
	Message    string
	Underlying error
	Details    map[string]interface{}
}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *EngineError) Unwrap() error {
	return e.Underlying
}

// Is reports whether target is an EngineError with the same code.
func (e *EngineError) Is(target error) bool {
	if t, ok := target.(*EngineError); ok {
		return e.Code == t.Code
	}
	return false
}

// NewEngineError creates a new EngineError
func NewEngineError(code ErrorCode, message string, err error) *EngineError {
	return &EngineError{
		Code:       code,
		Message:    message,
		Underlying: err,
		Details:    make(map[string]interface{}),
	}
}

// RetryError is the explicit "retry me" signal a fetch can raise.
func RetryError(message string, err error) *EngineError {
	return NewEngineError(ErrCodeRetry, message, err)
}

// WithDetail adds a detail to the error
func (e *EngineError) WithDetail(key string, value interface{}) *EngineError {
	e.Details[key] = value
	return e
}

// CodeOf returns the failure kind of err. Errors that are not EngineErrors
// report ErrCodeFetch.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ErrCodeFetch
}

// wrap ensures err carries a kind, defaulting to code.
func wrap(code ErrorCode, message string, err error) error {
	var ee *EngineError
	if errors.As(err, &ee) {
		return err
	}
	return NewEngineError(code, message, err)
}
