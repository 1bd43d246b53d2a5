package sqlgen

import (
	"errors"
	"fmt"
)

// CompileError represents an error detected while normalizing or rendering
// an expression tree.
//
// Compile errors include:
//   - Invalid expression: malformed tree, unsupported operator/operand
//     combination, or a literal of an unsupported scalar type
//   - Missing placeholder: a named placeholder with no corresponding binding
//   - Placeholder mismatch: positional placeholder count differs from the
//     supplied argument count
//
// Structural errors are always surfaced synchronously to the caller, never
// silently defaulted.
type CompileError struct {
	// Code identifies the error category.
	Code CompileErrorCode

	// Message is a human-readable description.
	Message string

	// Placeholder identifies the offending named placeholder, when any.
	Placeholder string
}

// CompileErrorCode categorizes compile errors.
type CompileErrorCode string

const (
	// ErrCodeInvalidExpression indicates a malformed tree or an unsupported
	// operator combination.
	ErrCodeInvalidExpression CompileErrorCode = "INVALID_EXPRESSION"

	// ErrCodeMissingPlaceholder indicates a named placeholder absent from
	// the bindings map.
	ErrCodeMissingPlaceholder CompileErrorCode = "MISSING_PLACEHOLDER"
)

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Placeholder != "" {
		return fmt.Sprintf("%s: %s (placeholder=%s)", e.Code, e.Message, e.Placeholder)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsInvalidExpression returns true if the error is an invalid-expression
// compile error. Uses errors.As to handle wrapped errors.
func IsInvalidExpression(err error) bool {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeInvalidExpression
	}
	return false
}

// IsMissingPlaceholder returns true if the error is a missing-placeholder
// compile error. Uses errors.As to handle wrapped errors.
func IsMissingPlaceholder(err error) bool {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeMissingPlaceholder
	}
	return false
}

// newInvalidf creates an invalid-expression CompileError.
func newInvalidf(format string, args ...any) *CompileError {
	return &CompileError{
		Code:    ErrCodeInvalidExpression,
		Message: fmt.Sprintf(format, args...),
	}
}

// newMissingPlaceholder creates a missing-placeholder CompileError.
func newMissingPlaceholder(name string) *CompileError {
	return &CompileError{
		Code:        ErrCodeMissingPlaceholder,
		Message:     "named placeholder has no binding",
		Placeholder: name,
	}
}
