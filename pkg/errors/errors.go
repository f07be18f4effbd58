// Package errors provides structured error types for normalizr.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the engine, builder, and CLI
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//
// # Error Codes
//
//   - INVALID_INPUT: normalize was given something other than an object or array
//   - CONFIGURATION: a schema was declared incorrectly (e.g. an entity without a key)
//   - UNRESOLVED_RELATION: a schema config references a type that never got registered
//   - NOT_FOUND: a lookup missed where the caller required a hit
//   - INVALID_FORMAT: a config or document could not be decoded
//   - INTERNAL_ERROR: unexpected internal failures
//
// # Usage
//
//	err := errors.New(errors.ErrCodeConfiguration, "expected a string key for entity, found %q", key)
//	if errors.Is(err, errors.ErrCodeConfiguration) {
//	    // Handle the bad schema declaration
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidFormat, origErr, "decode %s", path)
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidName   Code = "INVALID_NAME"

	// Schema declaration errors
	ErrCodeConfiguration      Code = "CONFIGURATION"
	ErrCodeUnresolvedRelation Code = "UNRESOLVED_RELATION"

	// Lookup errors
	ErrCodeNotFound Code = "NOT_FOUND"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
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
// It unwraps the error chain looking for an *Error or *UnresolvedError.
func Is(err error, code Code) bool {
	c := GetCode(err)
	return c != "" && c == code
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var u *UnresolvedError
	if errors.As(err, &u) {
		return u.Code()
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

// Unresolved describes one schema config that could not be resolved.
type Unresolved struct {
	Module   string   // Module of the config
	Resource string   // Resource of the config
	Missing  []string // References ("module.resource") that never resolved
}

// String renders the unresolved config as "module.resource (missing: a.b, c.d)".
func (u Unresolved) String() string {
	return fmt.Sprintf("%s.%s (missing: %s)", u.Module, u.Resource, strings.Join(u.Missing, ", "))
}

// UnresolvedError lists every schema config left unresolved after the
// builder reached its fixed point.
type UnresolvedError struct {
	Configs []Unresolved
}

// Error implements the error interface.
func (e *UnresolvedError) Error() string {
	parts := make([]string, len(e.Configs))
	for i, c := range e.Configs {
		parts[i] = c.String()
	}
	return fmt.Sprintf("%s: %d unresolved schema configs: %s",
		ErrCodeUnresolvedRelation, len(e.Configs), strings.Join(parts, "; "))
}

// Code returns the error code for this error type.
func (e *UnresolvedError) Code() Code {
	return ErrCodeUnresolvedRelation
}
