// Package scanerr provides the scanning engine's tagged fatal-error type.
// Per-file failures never reach here; they become error-status ScanResults
// instead. Only process-wide failures are wrapped as a ScanError.
package scanerr

import (
	"errors"
	"fmt"
)

// Kind classifies a fatal scan error.
type Kind int

// Supported error kinds.
const (
	// KindInput indicates the scan root is missing, not a directory, or
	// not readable.
	KindInput Kind = iota
	// KindDriver indicates the inspector binary could not be launched or
	// its output could not be read.
	KindDriver
	// KindWAL indicates the resume log could not be created, written, or
	// fsynced.
	KindWAL
	// KindCancelled is not an error; it tags an incomplete summary
	// produced by an interrupt signal.
	KindCancelled
	// KindClassifier indicates an internal failure in the (pure,
	// by-construction infallible) classifier. Its appearance is a bug.
	KindClassifier
)

// String returns the lowercase tag used in logs and error messages.
func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input_error"
	case KindDriver:
		return "driver_error"
	case KindWAL:
		return "wal_error"
	case KindCancelled:
		return "cancelled"
	case KindClassifier:
		return "classifier_error"
	default:
		return "unknown"
	}
}

// ScanError is a structured, kind-tagged fatal error returned by the
// Controller.
type ScanError struct {
	Kind    Kind
	Message string
	Cause   error
}

// New builds a ScanError of the given kind.
func New(kind Kind, message string, cause error) *ScanError {
	return &ScanError{Kind: kind, Message: message, Cause: cause}
}

// Error implements the error interface.
func (e *ScanError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/errors.As.
func (e *ScanError) Unwrap() error {
	return e.Cause
}

// Is reports whether err is a ScanError of the given kind.
func Is(err error, kind Kind) bool {
	var se *ScanError
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}
