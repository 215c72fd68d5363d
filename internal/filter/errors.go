package filter

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat reports a filter string that does not match the clause grammar.
	ErrFormat = errors.New("filter: malformed filter string")
	// ErrUnsupportedOperator reports an operator the evaluator does not implement.
	ErrUnsupportedOperator = errors.New("filter: unsupported operator")
	// ErrTypeMismatch reports an ordered comparison between incomparable values.
	ErrTypeMismatch = errors.New("filter: type mismatch")
	// ErrUnsupportedScope reports an unknown scope name.
	ErrUnsupportedScope = errors.New("filter: unsupported scope")
	// ErrUnsupportedFlag reports an unknown case-sensitivity flag.
	ErrUnsupportedFlag = errors.New("filter: unsupported flag")
	// ErrUnsupportedCombinator reports an unknown combinator token.
	ErrUnsupportedCombinator = errors.New("filter: unsupported combinator")
)

// FormatError describes where a filter string stopped matching the grammar.
type FormatError struct {
	Input  string
	Offset int
	Reason string
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("invalid filter string %q at offset %d: %s", e.Input, e.Offset, e.Reason)
}

// Unwrap returns ErrFormat so callers can match with errors.Is.
func (e *FormatError) Unwrap() error { return ErrFormat }

// OperatorError names the operator that could not be evaluated.
type OperatorError struct {
	Operator Operator
}

// Error implements the error interface.
func (e *OperatorError) Error() string {
	return fmt.Sprintf("unsupported operator %q", string(e.Operator))
}

// Unwrap returns ErrUnsupportedOperator.
func (e *OperatorError) Unwrap() error { return ErrUnsupportedOperator }

// TypeMismatchError describes an ordered comparison between values that have
// no common ordering.
type TypeMismatchError struct {
	Operator Operator
	Left     any
	Right    any
}

// Error implements the error interface.
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("cannot compare %T %s %T", e.Left, string(e.Operator), e.Right)
}

// Unwrap returns ErrTypeMismatch.
func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }
