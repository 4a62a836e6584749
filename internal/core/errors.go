package core

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies failures for the session trail.
type ErrorKind string

const (
	ErrKindNone                      ErrorKind = ""
	ErrKindMalformedMessage          ErrorKind = "malformed_message"
	ErrKindClassificationUnavailable ErrorKind = "classification_unavailable"
	ErrKindToolInvocationFailed      ErrorKind = "tool_invocation_failed"
	ErrKindNotFound                  ErrorKind = "not_found"
	ErrKindCancelled                 ErrorKind = "cancelled"
)

// ErrNotFound is returned by BusinessDirectory lookups for unknown
// identifiers. It is a validation failure, never retried.
var ErrNotFound = errors.New("not found")

// TriageError attaches a kind and a retryability flag to an underlying error.
type TriageError struct {
	Kind      ErrorKind
	Retryable bool
	Err       error
}

func (e *TriageError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *TriageError) Unwrap() error {
	return e.Err
}

// MalformedMessage wraps err as a non-retryable email-level failure.
func MalformedMessage(err error) error {
	return &TriageError{Kind: ErrKindMalformedMessage, Err: err}
}

// ClassificationUnavailable wraps err as a retryable classifier-transport
// failure.
func ClassificationUnavailable(err error) error {
	return &TriageError{Kind: ErrKindClassificationUnavailable, Retryable: true, Err: err}
}

// ToolFailed wraps err as a tool invocation failure. Transient causes are
// retryable; validation causes are terminal for the entry.
func ToolFailed(err error, retryable bool) error {
	return &TriageError{Kind: ErrKindToolInvocationFailed, Retryable: retryable, Err: err}
}

// KindOf extracts the error kind, defaulting unknown errors to
// ErrKindToolInvocationFailed and nil to ErrKindNone. Bare context errors
// are cancellations, not tool failures.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrKindNone
	}
	var te *TriageError
	if errors.As(err, &te) {
		return te.Kind
	}
	if errors.Is(err, ErrNotFound) {
		return ErrKindNotFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrKindCancelled
	}
	return ErrKindToolInvocationFailed
}

// IsRetryable reports whether err may be retried within a stage's retry budget.
func IsRetryable(err error) bool {
	var te *TriageError
	if errors.As(err, &te) {
		return te.Retryable
	}
	return false
}
