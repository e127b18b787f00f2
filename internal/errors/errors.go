package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing errors
const (
	ErrConfig          = "CONFIG"
	ErrFilesystem      = "FILESYSTEM"
	ErrKeygen          = "KEYGEN"
	ErrKeygenTimeout   = "KEYGEN_TIMEOUT"
	ErrKeyCollision    = "KEY_COLLISION"
	ErrNotGitRepo      = "NOT_GIT_REPO"
	ErrMalformedConfig = "MALFORMED_CONFIG"
	ErrDuplicateHost   = "DUPLICATE_HOST_ALIAS"
	ErrNotFound        = "NOT_FOUND"
	ErrConflict        = "CONFLICT"
	ErrInUse           = "IN_USE"
	ErrInvalid         = "INVALID"
	ErrStore           = "STORE"
	ErrLock            = "LOCK"
	ErrExec            = "EXEC"
	ErrSSH             = "SSH"
)

// Error represents a structured error with code, message, suggestion, and optional cause.
// Rendered as:
//
//	✗ <What failed>
//
//	  <Why it failed - technical details>
//
//	  <How to fix it - actionable steps>
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New creates a new structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Wrap wraps an existing error with a message, defaulting to ErrFilesystem code.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    ErrFilesystem,
		Message: message,
		Cause:   err,
	}
}

// WrapWithCode wraps an existing error with a specific code, message, and suggestion.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("✗ %s\n", e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Cause.Error()))
	}

	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Suggestion))
	}

	return b.String()
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode checks if an error is a structured Error with the given code.
// The outermost structured error in the chain decides.
func IsCode(err error, code string) bool {
	return CodeOf(err) == code
}

// CodeOf returns the code of the outermost structured Error in err's chain,
// or an empty string when there is none.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var gaErr *Error
	if errors.As(err, &gaErr) {
		return gaErr.Code
	}
	return ""
}

// As is errors.As, re-exported so callers importing this package under the
// name "errors" still reach the standard helpers.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is is errors.Is, re-exported for the same reason as As.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
