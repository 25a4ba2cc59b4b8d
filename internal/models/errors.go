package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies export failures for user messaging and HTTP mapping.
type ErrorKind string

const (
	ErrPermission  ErrorKind = "permission"  // role not allow-listed, or 401/403 from the CMS
	ErrValidation  ErrorKind = "validation"  // empty result set, malformed filters
	ErrConcurrency ErrorKind = "concurrency" // duplicate fingerprint in flight
	ErrTransient   ErrorKind = "transient"   // timeout, unreachable CMS, encoder unavailable
	ErrGenerator   ErrorKind = "generator"   // format-specific rendering failure
)

// ExportError is the typed error surfaced by the export pipeline.
// Message is always human-readable; Format is set for generator failures so
// the originating format can be named in the response.
type ExportError struct {
	Kind    ErrorKind
	Format  ExportFormat
	Message string
	Err     error
}

func (e *ExportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// NewPermissionError builds a permission-denied export error.
func NewPermissionError(msg string) *ExportError {
	return &ExportError{Kind: ErrPermission, Message: msg}
}

// NewValidationError builds a validation export error.
func NewValidationError(msg string) *ExportError {
	return &ExportError{Kind: ErrValidation, Message: msg}
}

// NewConcurrencyError builds a duplicate-in-flight export error.
func NewConcurrencyError(msg string) *ExportError {
	return &ExportError{Kind: ErrConcurrency, Message: msg}
}

// NewTransientError builds a retryable export error.
func NewTransientError(msg string, err error) *ExportError {
	return &ExportError{Kind: ErrTransient, Message: msg, Err: err}
}

// NewGeneratorError builds a format-specific generation error.
func NewGeneratorError(format ExportFormat, msg string, err error) *ExportError {
	return &ExportError{Kind: ErrGenerator, Format: format, Message: msg, Err: err}
}

// AsExportError unwraps err into an *ExportError, or nil when it is not one.
func AsExportError(err error) *ExportError {
	var ee *ExportError
	if errors.As(err, &ee) {
		return ee
	}
	return nil
}
