// Package errors provides standardized error types for store operations.
// This package defines StoreError for consistent error handling across
// all public APIs, with operation context, an error kind usable with
// errors.Is and error wrapping support.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Kind classifies a StoreError.
type Kind int

const (
	KindInternal Kind = iota
	KindSchemaValidation
	KindNotFound
	KindColumnNotFound
	KindStaleView
	KindDependencyCycle
	KindDuplicateFrame
)

// String returns the name of the kind
func (k Kind) String() string {
	switch k {
	case KindSchemaValidation:
		return "schema validation"
	case KindNotFound:
		return "not found"
	case KindColumnNotFound:
		return "column not found"
	case KindStaleView:
		return "stale view"
	case KindDependencyCycle:
		return "dependency cycle"
	case KindDuplicateFrame:
		return "duplicate frame"
	default:
		return "internal"
	}
}

// StoreError represents standardized errors across all store operations
type StoreError struct {
	Op      string // Operation name (e.g., "Update", "Drop", "AddComputed")
	Frame   string // Frame key if applicable
	Column  string // Column name if applicable
	Message string // Human-readable error description
	Kind    Kind   // Error class, matched by errors.Is against the sentinels below
	Cause   error  // Underlying error cause
}

// Error implements the error interface
func (e *StoreError) Error() string {
	if e.Op == "" {
		return e.Message
	}

	var sb strings.Builder
	sb.WriteString(e.Op)
	sb.WriteString(" operation failed")
	if e.Frame != "" {
		fmt.Fprintf(&sb, " on frame '%s'", e.Frame)
	}
	if e.Column != "" {
		fmt.Fprintf(&sb, " column '%s'", e.Column)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause for error wrapping support
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// Is implements error equality checking for errors.Is().
// A target without an Op is a sentinel and matches every error of its Kind.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	if t.Op == "" {
		return e.Kind == t.Kind
	}
	return e.Op == t.Op && e.Frame == t.Frame && e.Column == t.Column && e.Message == t.Message
}

// Sentinels for errors.Is checks
var (
	// ErrSchemaValidation indicates a value that does not fit the frame's schema
	ErrSchemaValidation = &StoreError{Kind: KindSchemaValidation, Message: "schema validation failed"}

	// ErrNotFound indicates an unregistered frame or an absent row key
	ErrNotFound = &StoreError{Kind: KindNotFound, Message: "not found"}

	// ErrColumnNotFound indicates a column that is not declared by the schema
	ErrColumnNotFound = &StoreError{Kind: KindColumnNotFound, Message: "column does not exist"}

	// ErrStaleView indicates a view whose root table was replaced under it
	ErrStaleView = &StoreError{Kind: KindStaleView, Message: "view is stale"}

	// ErrDependencyCycle indicates computed columns that depend on each other
	ErrDependencyCycle = &StoreError{Kind: KindDependencyCycle, Message: "computed column dependency cycle"}

	// ErrDuplicateFrame indicates a second frame registered under the same key
	ErrDuplicateFrame = &StoreError{Kind: KindDuplicateFrame, Message: "frame already registered"}
)

// Common error constructors for consistent error creation

// NewValidationError creates an error for values rejected by a schema
func NewValidationError(op, frame, column, message string) *StoreError {
	return &StoreError{
		Op:      op,
		Frame:   frame,
		Column:  column,
		Message: message,
		Kind:    KindSchemaValidation,
	}
}

// NewFrameNotFoundError creates an error for lookups of unregistered frames
func NewFrameNotFoundError(op, frame string) *StoreError {
	return &StoreError{
		Op:      op,
		Frame:   frame,
		Message: "frame is not registered",
		Kind:    KindNotFound,
	}
}

// NewRowNotFoundError creates an error for row keys absent from a table
func NewRowNotFoundError(op, frame string, key fmt.Stringer) *StoreError {
	return &StoreError{
		Op:      op,
		Frame:   frame,
		Message: fmt.Sprintf("row %s does not exist", key),
		Kind:    KindNotFound,
	}
}

// NewColumnNotFoundError creates an error for operations on undeclared columns
func NewColumnNotFoundError(op, frame, column string) *StoreError {
	return &StoreError{
		Op:      op,
		Frame:   frame,
		Column:  column,
		Message: "column does not exist",
		Kind:    KindColumnNotFound,
	}
}

// NewStaleViewError creates an error for views whose root table was replaced
func NewStaleViewError(op, frame string) *StoreError {
	return &StoreError{
		Op:      op,
		Frame:   frame,
		Message: "root table was replaced after the view was created",
		Kind:    KindStaleView,
	}
}

// NewDependencyCycleError creates an error describing a cycle between computed columns
func NewDependencyCycleError(op string, path []string) *StoreError {
	return &StoreError{
		Op:      op,
		Message: "computed columns form a cycle: " + strings.Join(path, " -> "),
		Kind:    KindDependencyCycle,
	}
}

// NewDuplicateFrameError creates an error for a frame key registered twice
func NewDuplicateFrameError(op, frame string) *StoreError {
	return &StoreError{
		Op:      op,
		Frame:   frame,
		Message: "frame already registered",
		Kind:    KindDuplicateFrame,
	}
}

// NewInvalidInputError creates an error for invalid operation inputs
func NewInvalidInputError(op, message string) *StoreError {
	return &StoreError{
		Op:      op,
		Message: message,
		Kind:    KindInternal,
	}
}

// NewComputeError wraps an error returned by a computed column function
func NewComputeError(frame, column string, cause error) *StoreError {
	return &StoreError{
		Op:      "Compute",
		Frame:   frame,
		Column:  column,
		Message: "compute function failed",
		Kind:    KindInternal,
		Cause:   cause,
	}
}

// NewInternalError creates an error for internal operation failures
func NewInternalError(op string, cause error) *StoreError {
	return &StoreError{
		Op:      op,
		Message: "internal error occurred",
		Kind:    KindInternal,
		Cause:   cause,
	}
}

// AsStoreError returns the first StoreError in err's chain
func AsStoreError(err error) (*StoreError, bool) {
	var se *StoreError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsNotFound reports whether err is a missing frame or row
func IsNotFound(err error) bool {
	return stderrors.Is(err, ErrNotFound)
}
