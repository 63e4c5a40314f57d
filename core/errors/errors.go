// Package errors provides standardized error types and helpers for the circuitlens codebase.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the analysis taxonomy
var (
	// ErrParse indicates malformed source syntax
	ErrParse = errors.New("parse error")
	// ErrUnknownGate indicates a gate name that resolves through neither the
	// canonical table nor an inlined standard library
	ErrUnknownGate = errors.New("unknown gate")
	// ErrRegisterBounds indicates a register index outside its declared size
	ErrRegisterBounds = errors.New("register index out of bounds")
	// ErrUnsupportedLanguage indicates a dialect tag that is not registered
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrResourceLimit indicates input exceeding a configured size/time ceiling
	ErrResourceLimit = errors.New("resource limit exceeded")
	// ErrInternal indicates an unexpected internal failure
	ErrInternal = errors.New("internal analysis error")
)

// ParseError represents a syntax error with source position context
type ParseError struct {
	Line    int    // 1-based source line
	Column  int    // 1-based source column (0 if unknown)
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Column > 0 {
		return fmt.Sprintf("parse error at line %d, column %d: %s", e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error at line %d: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrParse
}

// UnknownGateError represents a gate reference that could not be resolved
// after alias and include resolution
type UnknownGateError struct {
	Gate string // Gate name as written in the source
	Line int    // Source line of the offending statement
	Err  error  // Underlying error, if any
}

func (e *UnknownGateError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("unknown gate %q at line %d", e.Gate, e.Line)
	}
	return fmt.Sprintf("unknown gate %q", e.Gate)
}

func (e *UnknownGateError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrUnknownGate
}

// RegisterBoundsError represents an index outside a register's declared size
type RegisterBoundsError struct {
	Register string // Register name
	Index    int    // Offending index
	Size     int    // Declared register size
	Line     int    // Source line of the reference
}

func (e *RegisterBoundsError) Error() string {
	msg := fmt.Sprintf("index %d out of bounds for register %s[%d]", e.Index, e.Register, e.Size)
	if e.Line > 0 {
		return fmt.Sprintf("%s at line %d", msg, e.Line)
	}
	return msg
}

func (e *RegisterBoundsError) Unwrap() error {
	return ErrRegisterBounds
}

// UnsupportedLanguageError represents a dialect tag with no registered front-end
type UnsupportedLanguageError struct {
	Tag       string   // Requested dialect tag
	Supported []string // Registered dialect tags
}

func (e *UnsupportedLanguageError) Error() string {
	if len(e.Supported) > 0 {
		return fmt.Sprintf("unsupported language %q (supported: %s)", e.Tag, strings.Join(e.Supported, ", "))
	}
	return fmt.Sprintf("unsupported language %q", e.Tag)
}

func (e *UnsupportedLanguageError) Unwrap() error {
	return ErrUnsupportedLanguage
}

// ResourceLimitError represents input exceeding a configured per-request ceiling
type ResourceLimitError struct {
	Limit  string // Which limit was exceeded (e.g., "source size", "operation count")
	Max    int    // Configured ceiling
	Actual int    // Observed value
}

func (e *ResourceLimitError) Error() string {
	return fmt.Sprintf("%s %d exceeds limit %d", e.Limit, e.Actual, e.Max)
}

func (e *ResourceLimitError) Unwrap() error {
	return ErrResourceLimit
}

// InternalError represents an unexpected failure inside the analysis pipeline
type InternalError struct {
	Op  string // Pipeline phase that failed (e.g., "lower", "recognize")
	Err error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("internal analysis error in %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("internal analysis error: %v", e.Err)
}

func (e *InternalError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInternal
}

// Helper functions for creating common errors

// NewParse creates a ParseError
func NewParse(line, column int, message string) *ParseError {
	return &ParseError{
		Line:    line,
		Column:  column,
		Message: message,
	}
}

// NewUnknownGate creates an UnknownGateError
func NewUnknownGate(gate string, line int) *UnknownGateError {
	return &UnknownGateError{
		Gate: gate,
		Line: line,
	}
}

// NewRegisterBounds creates a RegisterBoundsError
func NewRegisterBounds(register string, index, size, line int) *RegisterBoundsError {
	return &RegisterBoundsError{
		Register: register,
		Index:    index,
		Size:     size,
		Line:     line,
	}
}

// NewUnsupportedLanguage creates an UnsupportedLanguageError
func NewUnsupportedLanguage(tag string, supported []string) *UnsupportedLanguageError {
	return &UnsupportedLanguageError{
		Tag:       tag,
		Supported: supported,
	}
}

// NewResourceLimit creates a ResourceLimitError
func NewResourceLimit(limit string, max, actual int) *ResourceLimitError {
	return &ResourceLimitError{
		Limit:  limit,
		Max:    max,
		Actual: actual,
	}
}

// NewInternal creates an InternalError
func NewInternal(op string, err error) *InternalError {
	return &InternalError{
		Op:  op,
		Err: err,
	}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
