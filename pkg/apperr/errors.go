// Package apperr provides the standardized error type used across every
// component of the extraction engine: a code, the component/operation that
// raised it, an optional cause, and a severity that the CLI uses to decide
// whether a run can be retried.
package apperr

import (
	"fmt"
	"runtime"
	"time"
)

// Severity classifies how an error should be handled by a caller.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Error codes, one per error kind in the component design.
const (
	CodeConfigInvalid           = "CONFIG_INVALID"
	CodeRecordCorruption        = "RECORD_CORRUPTION"
	CodeExtractionFailed        = "EXTRACTION_FAILED"
	CodeIndexCollisionExhausted = "INDEX_COLLISION_EXHAUSTED"
	CodeManifestMismatch        = "MANIFEST_MISMATCH"
)

// AppError is the standardized error type raised by every component.
type AppError struct {
	Code       string
	Message    string
	Component  string
	Operation  string
	Cause      error
	StackTrace string
	Metadata   map[string]any
	Timestamp  time.Time
	Severity   Severity
}

// New creates a new AppError at medium severity.
func New(code, component, operation, message string) *AppError {
	_, file, line, _ := runtime.Caller(1)

	return &AppError{
		Code:       code,
		Message:    message,
		Component:  component,
		Operation:  operation,
		StackTrace: fmt.Sprintf("%s:%d", file, line),
		Metadata:   make(map[string]any),
		Timestamp:  time.Now(),
		Severity:   SeverityMedium,
	}
}

// NewCritical creates an AppError at critical severity; every error kind in
// the component design except ManifestMismatch (low severity) is critical.
func NewCritical(code, component, operation, message string) *AppError {
	err := New(code, component, operation, message)
	err.Severity = SeverityCritical
	return err
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Component, e.Operation, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Component, e.Operation, e.Code, e.Message)
}

// Unwrap allows errors.Is/errors.As to see through to Cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Wrap sets the cause of the error and returns the receiver for chaining.
func (e *AppError) Wrap(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithMetadata attaches a key/value pair of diagnostic context.
func (e *AppError) WithMetadata(key string, value any) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[key] = value
	return e
}

// IsRecoverable reports whether the caller might retry after this error.
// Critical and high severity errors are fatal; medium severity (the default
// of New) and low severity (ManifestMismatch) errors are recoverable.
func (e *AppError) IsRecoverable() bool {
	switch e.Severity {
	case SeverityCritical, SeverityHigh:
		return false
	default:
		return true
	}
}

// Fields renders the error as a flat map suitable for structured logging.
func (e *AppError) Fields() map[string]any {
	fields := map[string]any{
		"error_code":      e.Code,
		"error_component": e.Component,
		"error_operation": e.Operation,
		"error_severity":  string(e.Severity),
	}
	if e.Cause != nil {
		fields["error_cause"] = e.Cause.Error()
	}
	for k, v := range e.Metadata {
		fields["error_meta_"+k] = v
	}
	return fields
}

// ConfigError builds a ConfigError (spec §7): missing password/credentials
// or an unwritable cache root. Always fatal at entry.
func ConfigError(operation, message string) *AppError {
	return NewCritical(CodeConfigInvalid, "config", operation, message)
}

// RecordCorruptionError builds a RecordCorruption error (spec §7): the
// file-processing start/end records disagree at startup.
func RecordCorruptionError(operation, message string) *AppError {
	return NewCritical(CodeRecordCorruption, "records", operation, message)
}

// ExtractionFailedError builds an ExtractionFailed error (spec §7): the
// per-line scan hit a catastrophic I/O failure on a specific file.
func ExtractionFailedError(operation, message string, filePath string, cause error) *AppError {
	return NewCritical(CodeExtractionFailed, "extract", operation, message).
		WithMetadata("file_path", filePath).
		Wrap(cause)
}

// IndexCollisionExhaustedError builds an IndexCollisionExhausted error
// (spec §7): the IP indexer could not find an unused u64 within the retry
// budget.
func IndexCollisionExhaustedError(operation, message string) *AppError {
	return NewCritical(CodeIndexCollisionExhausted, "ipindex", operation, message)
}

// ManifestMismatchError builds a ManifestMismatch error (spec §7): a flat
// manifest date has an empty remote listing. Non-fatal — the date is
// skipped by the caller.
func ManifestMismatchError(operation, message string) *AppError {
	err := New(CodeManifestMismatch, "remote", operation, message)
	err.Severity = SeverityLow
	return err
}

// As reports whether err is an *AppError, mirroring errors.As for the common
// single-type case used throughout the CLI's error handling.
func As(err error) (*AppError, bool) {
	appErr, ok := err.(*AppError)
	return appErr, ok
}
