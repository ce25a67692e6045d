// Package apperrors defines the error kinds surfaced by the translation
// pipeline. Callers match them with errors.Is / errors.As.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrSchemaUnavailable = errors.New("schema unavailable")
	ErrUnsafeQuery       = errors.New("unsafe query")
	ErrNoTablesResolved  = errors.New("no tables resolved")
	ErrExecution         = errors.New("execution error")
)

// UnsafeQueryError reports a statement rejected by the safety gate.
type UnsafeQueryError struct {
	SQL    string
	Reason string
}

func (e *UnsafeQueryError) Error() string {
	return fmt.Sprintf("unsafe query: %s", e.Reason)
}

func (e *UnsafeQueryError) Is(target error) bool { return target == ErrUnsafeQuery }

// NoTablesResolvedError carries the original request text so the caller can
// ask the user to rephrase.
type NoTablesResolvedError struct {
	Text string
}

func (e *NoTablesResolvedError) Error() string {
	return fmt.Sprintf("no tables resolved for %q", e.Text)
}

func (e *NoTablesResolvedError) Is(target error) bool { return target == ErrNoTablesResolved }

// ExecutionError wraps a failure from the execution collaborator.
type ExecutionError struct {
	SQL string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution error: %v", e.Err)
}

func (e *ExecutionError) Is(target error) bool { return target == ErrExecution }

func (e *ExecutionError) Unwrap() error { return e.Err }

// SchemaUnavailable wraps an introspection failure.
func SchemaUnavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrSchemaUnavailable, err)
}

// AttemptedSQL returns the statement attached to err, if any.
func AttemptedSQL(err error) string {
	var unsafe *UnsafeQueryError
	if errors.As(err, &unsafe) {
		return unsafe.SQL
	}
	var exec *ExecutionError
	if errors.As(err, &exec) {
		return exec.SQL
	}
	return ""
}
