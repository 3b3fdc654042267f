package validation

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParameter is the sentinel wrapped by every rejected input.
var ErrInvalidParameter = errors.New("invalid parameter")

// ParameterError provides structured information about a rejected input.
type ParameterError struct {
	Op     string // Operation that received the value (e.g., "GenerateEdges")
	Param  string // Parameter name (e.g., "p")
	Value  any    // Offending value
	Reason string // Human readable constraint
}

// Error implements the error interface.
func (e *ParameterError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%v: %s=%v: %s", ErrInvalidParameter, e.Param, e.Value, e.Reason)
	}
	return fmt.Sprintf("%s: %v: %s=%v: %s", e.Op, ErrInvalidParameter, e.Param, e.Value, e.Reason)
}

// Unwrap returns the sentinel so errors.Is(err, ErrInvalidParameter) holds.
func (e *ParameterError) Unwrap() error {
	return ErrInvalidParameter
}

// ErrorBuilder provides a fluent interface for building ParameterErrors.
type ErrorBuilder struct {
	err ParameterError
}

// NewError creates a new error builder for the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: ParameterError{Op: op}}
}

// Param sets the parameter name.
func (b *ErrorBuilder) Param(name string) *ErrorBuilder {
	b.err.Param = name
	return b
}

// Value sets the offending value.
func (b *ErrorBuilder) Value(v any) *ErrorBuilder {
	b.err.Value = v
	return b
}

// Reason sets the violated constraint.
func (b *ErrorBuilder) Reason(format string, args ...any) *ErrorBuilder {
	b.err.Reason = fmt.Sprintf(format, args...)
	return b
}

// Build returns the constructed ParameterError.
func (b *ErrorBuilder) Build() *ParameterError {
	return &b.err
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	return &b.err
}

// Probability rejects NaN and values outside [0, 1].
func Probability(op, name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return NewError(op).Param(name).Value(v).Reason("must be within [0, 1]").Err()
	}
	return nil
}

// NonNegative rejects values below zero.
func NonNegative(op, name string, v int) error {
	if v < 0 {
		return NewError(op).Param(name).Value(v).Reason("must be non-negative").Err()
	}
	return nil
}

// AtMost rejects values above max.
func AtMost(op, name string, v, max int) error {
	if v > max {
		return NewError(op).Param(name).Value(v).Reason("must not exceed %d", max).Err()
	}
	return nil
}

// InRange rejects integers outside [min, max).
func InRange(op, name string, v, min, max int) error {
	if v < min || v >= max {
		return NewError(op).Param(name).Value(v).Reason("must be within [%d, %d)", min, max).Err()
	}
	return nil
}

// IsInvalidParameter reports whether err was caused by a rejected input.
func IsInvalidParameter(err error) bool {
	return errors.Is(err, ErrInvalidParameter)
}
