package lifecycle

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports business-rule failures surfaced from the
// validation stage. It is non-fatal: the operation ends with a Failed
// outcome carrying this error, distinguishable from hook and executor
// failures via IsValidationError.
type ValidationError struct {
	Failures []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Failures) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(e.Failures, "; ")
}

// IsValidationError returns true if the error is a validation failure.
// Uses errors.As to handle wrapped errors.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ExecutorError wraps an error from the external executor. Fatal to the
// current operation; triggers rollback of any open transaction.
type ExecutorError struct {
	Op  string // "insert", "update", "delete", "begin", "commit"
	Err error
}

// Error implements the error interface.
func (e *ExecutorError) Error() string {
	return fmt.Sprintf("executor %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying executor error.
func (e *ExecutorError) Unwrap() error { return e.Err }

// IsExecutorError returns true if the error originated in the executor.
// Uses errors.As to handle wrapped errors.
func IsExecutorError(err error) bool {
	var ee *ExecutorError
	return errors.As(err, &ee)
}

// HookError wraps an error raised inside a hook, annotated with its stage
// and layer for diagnostics.
type HookError struct {
	Stage Stage
	Layer string
	Err   error
}

// Error implements the error interface.
func (e *HookError) Error() string {
	return fmt.Sprintf("hook %s (layer %s): %v", e.Stage, e.Layer, e.Err)
}

// Unwrap returns the underlying hook error.
func (e *HookError) Unwrap() error { return e.Err }
