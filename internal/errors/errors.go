package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing errors
const (
	ErrInput     = "INPUT"     // missing or unreadable input, bad prompt value
	ErrNoTags    = "NO_TAGS"   // an operation found nothing to rewrite (non-fatal)
	ErrIO        = "IO"        // read/write failure on a specific stage
	ErrArchive   = "ARCHIVE"   // corrupt CAR or no XML inside it
	ErrCancelled = "CANCELLED" // user declined at a confirmation prompt
	ErrConfig    = "CONFIG"
	ErrSFTP      = "SFTP"
)

// ErrNoXMLInArchive is returned when an extracted CAR holds no .xml file.
var ErrNoXMLInArchive = New(ErrArchive,
	"No XML files found in the CAR archive",
	"Export the configuration again from BLDM and make sure it contains an XML file")

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

// Wrap wraps an existing error with a message, defaulting to ErrIO code.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    ErrIO,
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

// Cancelled creates the error returned when the user declines to continue.
func Cancelled(message string) *Error {
	return &Error{
		Code:    ErrCancelled,
		Message: message,
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

// Is reports whether target is a structured Error with the same code and message.
// This lets package-level values like ErrNoXMLInArchive work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// IsCode checks if an error is a structured Error with the given code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var locErr *Error
	if errors.As(err, &locErr) {
		return locErr.Code == code
	}
	return false
}

// ExitError carries a process exit code through cobra's error return.
type ExitError struct {
	Code int
}

// NewExitError creates an ExitError with the given code.
func NewExitError(code int) *ExitError {
	return &ExitError{Code: code}
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// GetExitCode extracts the exit code from an ExitError anywhere in the chain.
func GetExitCode(err error) (int, bool) {
	if err == nil {
		return 0, false
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}
