// Package errors provides structured error types for repairgraph.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, pipeline and HTTP API
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The codes mirror the failure taxonomy of the analysis core:
//   - MALFORMED_ALIGNMENT: one read's alignment is unusable (recovered per read)
//   - INCONSISTENT_REFERENCE: repeats or experiments disagree on the reference window
//   - DISCONNECTED_GRAPH: variant graph invariant violated (a bug, never recovered)
//   - VERSION_CONFLICT: a concurrent writer replaced a persisted layout
//   - INVALID_*: input and configuration validation failures
//
// # Usage
//
//	err := errors.New(errors.ErrCodeMalformedAlignment, "length mismatch: %d != %d", a, b)
//	if errors.Is(err, errors.ErrCodeMalformedAlignment) {
//	    dropped++
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInternal, origErr, "build graph for %s", group)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidName   Code = "INVALID_NAME"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Analysis errors
	ErrCodeMalformedAlignment    Code = "MALFORMED_ALIGNMENT"
	ErrCodeInconsistentReference Code = "INCONSISTENT_REFERENCE"
	ErrCodeDisconnectedGraph     Code = "DISCONNECTED_GRAPH"

	// Persistence errors
	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodeVersionConflict Code = "VERSION_CONFLICT"
	ErrCodeStorage         Code = "STORAGE_ERROR"

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
// It unwraps the error chain looking for an *Error with a matching code,
// so a MALFORMED_ALIGNMENT error wrapped as INTERNAL_ERROR still matches both.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// GetCodeOr returns the outermost error code of err, or fallback when err
// carries none.
func GetCodeOr(err error, fallback Code) Code {
	if code := GetCode(err); code != "" {
		return code
	}
	return fallback
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

// MalformedAlignment returns a MALFORMED_ALIGNMENT error.
func MalformedAlignment(format string, args ...any) *Error {
	return New(ErrCodeMalformedAlignment, format, args...)
}

// InconsistentReference returns an INCONSISTENT_REFERENCE error.
func InconsistentReference(format string, args ...any) *Error {
	return New(ErrCodeInconsistentReference, format, args...)
}

// DisconnectedGraph returns a DISCONNECTED_GRAPH error.
func DisconnectedGraph(format string, args ...any) *Error {
	return New(ErrCodeDisconnectedGraph, format, args...)
}

// VersionConflictError reports a lost compare-and-swap on a persisted layout.
type VersionConflictError struct {
	Group    string // Layout group name
	Expected string // Version the writer expected to replace
	Actual   string // Version found in the store
}

// Error implements the error interface.
func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("layout %q: version conflict: expected %q, found %q", e.Group, shortVersion(e.Expected), shortVersion(e.Actual))
}

// Code returns the error code for this error type.
func (e *VersionConflictError) Code() Code {
	return ErrCodeVersionConflict
}

// IsVersionConflict reports whether err is or wraps a VersionConflictError.
func IsVersionConflict(err error) bool {
	var vc *VersionConflictError
	return errors.As(err, &vc) || Is(err, ErrCodeVersionConflict)
}

func shortVersion(v string) string {
	if len(v) > 12 {
		return v[:12]
	}
	return v
}
