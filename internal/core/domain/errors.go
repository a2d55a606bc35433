// Package domain defines the core domain models for metasnap.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain error with a structured error code.
type DomainError struct {
	Code    string // Error code (e.g., "MS-SNAP-4220")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithDetailsf is WithDetails with fmt.Sprintf formatting.
func (e *DomainError) WithDetailsf(format string, args ...any) *DomainError {
	return e.WithDetails(fmt.Sprintf(format, args...))
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Snapshot Errors (SNAP)
// ============================================================================

var (
	// ErrCorruptSnapshot indicates a malformed or truncated snapshot stream.
	// Callers discard the whole file and treat it as absent.
	ErrCorruptSnapshot = NewDomainError("MS-SNAP-4220", "corrupt snapshot record")

	// ErrUnsupportedTableShape indicates a string table that is neither
	// compact nor flat. It is never produced by a well-behaved metadata layer.
	ErrUnsupportedTableShape = NewDomainError("MS-SNAP-5000", "unsupported string table shape")

	// ErrInvalidRecord indicates a record that cannot be written as given.
	ErrInvalidRecord = NewDomainError("MS-SNAP-4001", "invalid metadata record")

	// ErrStringTooLong indicates a string field exceeding the 65535 byte limit.
	ErrStringTooLong = NewDomainError("MS-SNAP-4002", "string exceeds field limit")
)

// ============================================================================
// Name Errors (NAME)
// ============================================================================

var (
	// ErrInvalidName indicates a malformed fully-qualified name.
	ErrInvalidName = NewDomainError("MS-NAME-4000", "invalid qualified name")
)

// IsFormatError reports whether err describes a corrupt snapshot.
func IsFormatError(err error) bool {
	return errors.Is(err, ErrCorruptSnapshot)
}
