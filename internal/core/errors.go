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
	// Spec errors
	ErrSpecInvalid   = &Error{Code: "SPEC_INVALID", Message: "strategy spec failed validation"}
	ErrSpecNotObject = &Error{Code: "SPEC_NOT_OBJECT", Message: "strategy spec must be a JSON object"}
	ErrSpecNotFound  = &Error{Code: "SPEC_NOT_FOUND", Message: "spec not found"}

	// Generator errors
	ErrGeneratorFailed     = &Error{Code: "GENERATOR_FAILED", Message: "spec generation failed"}
	ErrCorrectionExhausted = &Error{Code: "CORRECTION_EXHAUSTED", Message: "spec still invalid after all correction passes"}
	ErrResponseNotJSON     = &Error{Code: "RESPONSE_NOT_JSON", Message: "generator response is not a JSON object"}

	// Job errors
	ErrJobNotFound = &Error{Code: "JOB_NOT_FOUND", Message: "job not found"}

	// Auth errors
	ErrUnauthorized = &Error{Code: "UNAUTHORIZED", Message: "missing or invalid API key"}

	// Request errors
	ErrBadRequest = &Error{Code: "BAD_REQUEST", Message: "malformed request"}

	// Archive errors
	ErrArchiveFailed = &Error{Code: "ARCHIVE_FAILED", Message: "spec archive operation failed"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// LLM errors
	ErrLLMFailed  = &Error{Code: "LLM_FAILED", Message: "LLM request failed"}
	ErrLLMTimeout = &Error{Code: "LLM_TIMEOUT", Message: "LLM request timeout"}
)
