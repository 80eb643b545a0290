// Package exception provides the custom error type and error classification
// utilities for the orchestrator. It standardizes errors raised by the job
// store, the planning components, and the assignment tracker so that callers
// (and the HTTP surface) can branch on a small, fixed set of error kinds.
package exception

import (
	"errors"
	"fmt"
	"runtime"
)

// Kind classifies an OrchestratorError into one of the fixed error categories
// of the orchestrator's error taxonomy.
type Kind string

const (
	// KindInvalidInput marks malformed creation parameters (non-positive sizes/counts).
	// These are rejected before any state mutation.
	KindInvalidInput Kind = "INVALID_INPUT"
	// KindInvalidTransition marks a job status change that violates the state machine.
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	// KindNotFound marks a reference to a job/assignment/session id that does not exist.
	KindNotFound Kind = "NOT_FOUND"
	// KindOutOfRange marks a progress update that would violate counter invariants.
	KindOutOfRange Kind = "OUT_OF_RANGE"
	// KindStaleProgress marks a progress update reporting lower counters than currently
	// recorded. It is treated as a benign idempotent duplicate, logged for audit.
	KindStaleProgress Kind = "STALE_PROGRESS"
	// KindSessionAborted is recorded on assignments left non-terminal when a session is aborted.
	KindSessionAborted Kind = "SESSION_ABORTED"
	// KindInternal marks unexpected failures (storage errors, broken invariants).
	KindInternal Kind = "INTERNAL"
)

// OrchestratorError is the error type raised by orchestrator components.
// It carries the component where the error occurred, the taxonomy kind,
// a message, the wrapped original error, and a stack trace for debugging.
type OrchestratorError struct {
	// Module indicates the component where the error occurred (e.g., "job_store", "tracker").
	Module string
	// Kind is the taxonomy classification of this error.
	Kind Kind
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped original error, if any.
	OriginalErr error
	// StackTrace is the stack trace captured at construction time.
	StackTrace string
}

// New creates a new OrchestratorError with the given module, kind and message.
func New(module string, kind Kind, message string) *OrchestratorError {
	return &OrchestratorError{
		Module:     module,
		Kind:       kind,
		Message:    message,
		StackTrace: captureStack(),
	}
}

// Newf creates a new OrchestratorError with a formatted message.
func Newf(module string, kind Kind, format string, a ...interface{}) *OrchestratorError {
	return New(module, kind, fmt.Sprintf(format, a...))
}

// Wrap creates a new OrchestratorError wrapping an underlying cause.
func Wrap(module string, kind Kind, message string, err error) *OrchestratorError {
	return &OrchestratorError{
		Module:      module,
		Kind:        kind,
		Message:     message,
		OriginalErr: err,
		StackTrace:  captureStack(),
	}
}

// Error implements the error interface.
func (e *OrchestratorError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", e.Module, e.Kind, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Module, e.Kind, e.Message)
}

// Unwrap returns the wrapped original error, enabling errors.Is / errors.As chains.
func (e *OrchestratorError) Unwrap() error {
	return e.OriginalErr
}

// KindOf extracts the Kind from an error chain. Errors that are not
// OrchestratorErrors are classified as KindInternal.
func KindOf(err error) Kind {
	var oe *OrchestratorError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return KindInternal
}

// IsKind reports whether any error in the chain is an OrchestratorError of the given kind.
func IsKind(err error, kind Kind) bool {
	var oe *OrchestratorError
	if errors.As(err, &oe) {
		return oe.Kind == kind
	}
	return false
}

// IsInvalidInput reports whether err is classified as KindInvalidInput.
func IsInvalidInput(err error) bool { return IsKind(err, KindInvalidInput) }

// IsInvalidTransition reports whether err is classified as KindInvalidTransition.
func IsInvalidTransition(err error) bool { return IsKind(err, KindInvalidTransition) }

// IsNotFound reports whether err is classified as KindNotFound.
func IsNotFound(err error) bool { return IsKind(err, KindNotFound) }

// IsOutOfRange reports whether err is classified as KindOutOfRange.
func IsOutOfRange(err error) bool { return IsKind(err, KindOutOfRange) }

// IsStaleProgress reports whether err is classified as KindStaleProgress.
func IsStaleProgress(err error) bool { return IsKind(err, KindStaleProgress) }

// IsSessionAborted reports whether err is classified as KindSessionAborted.
func IsSessionAborted(err error) bool { return IsKind(err, KindSessionAborted) }

// captureStack captures the current goroutine's stack trace.
func captureStack() string {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
