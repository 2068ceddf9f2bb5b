// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Analysis errors
	ErrInsufficientData   = &Error{Code: "INSUFFICIENT_DATA", Message: "insufficient data for analysis"}
	ErrUndefinedIndicator = &Error{Code: "UNDEFINED_INDICATOR", Message: "indicator undefined"}
	ErrModelUnavailable   = &Error{Code: "MODEL_UNAVAILABLE", Message: "no trained model"}
	ErrEmptyInput         = &Error{Code: "EMPTY_INPUT", Message: "empty input"}
	ErrInvalidSeries      = &Error{Code: "INVALID_SERIES", Message: "price series not strictly increasing"}
	ErrSchemaMismatch     = &Error{Code: "SCHEMA_MISMATCH", Message: "feature vector does not match model schema"}

	// Collaborator errors
	ErrProviderFailed = &Error{Code: "PROVIDER_FAILED", Message: "data provider failed"}
	ErrSinkFailed     = &Error{Code: "SINK_FAILED", Message: "result sink failed"}
	ErrNotFound       = &Error{Code: "NOT_FOUND", Message: "not found"}
	ErrUnauthorized   = &Error{Code: "UNAUTHORIZED", Message: "missing or invalid api key"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}
)
