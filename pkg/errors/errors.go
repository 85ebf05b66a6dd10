// Package errors provides structured error types for the Previewforge pipeline.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI and the local serve endpoint
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input-contract violations (bad colors, overflowing text, bad plans)
//   - *_DEGRADED / *_EXHAUSTED: Bounded fallbacks that still produced a usable result
//   - NETWORK_* / TIMEOUT: Transport-level failures
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidColor, "invalid color format: %q", s)
//	if errors.Is(err, errors.ErrCodeInvalidColor) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeExtractionDegraded, origErr, "vision service unreachable")
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input-contract violations
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidColor    Code = "INVALID_COLOR_FORMAT"
	ErrCodeInvalidPlan     Code = "INVALID_PLAN"
	ErrCodeInvalidPlatform Code = "INVALID_PLATFORM"
	ErrCodeInvalidTemplate Code = "INVALID_TEMPLATE"
	ErrCodeTextOverflow    Code = "TEXT_OVERFLOW"

	// Bounded fallbacks: the pipeline degraded but still produced output
	ErrCodeExtractionDegraded   Code = "EXTRACTION_DEGRADED"
	ErrCodeCropUnavailable      Code = "CROP_UNAVAILABLE"
	ErrCodeQualityGateExhausted Code = "QUALITY_GATE_EXHAUSTED"

	// Transport / deadline errors
	ErrCodeNetwork  Code = "NETWORK_ERROR"
	ErrCodeTimeout  Code = "PIPELINE_TIMEOUT"
	ErrCodeNotFound Code = "NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Fatal reports whether the error should abort the render task it occurred in.
// Only structural/programmer errors are fatal; degraded-but-usable conditions
// (extraction fallbacks, exhausted quality gates, unavailable crops) are not.
func Fatal(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidPlan, ErrCodeInternal:
		return true
	}
	return false
}
