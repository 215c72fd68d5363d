package filter

import (
	"fmt"
	"strings"
)

// Scope modifies how a clause's match result takes part in aggregation.
type Scope string

const (
	// ScopeWildcard is the "*" scope; it behaves like ScopeAll.
	ScopeWildcard Scope = "*"
	// ScopeAll keeps the clause result as is.
	ScopeAll Scope = "ALL"
	// ScopeAny keeps the clause result as is.
	ScopeAny Scope = "ANY"
	// ScopeNone inverts the clause result before aggregation.
	ScopeNone Scope = "NONE"
)

// ParseScope normalizes a scope name, case-insensitively.
func ParseScope(s string) (Scope, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "*":
		return ScopeWildcard, nil
	case "ALL":
		return ScopeAll, nil
	case "ANY":
		return ScopeAny, nil
	case "NONE":
		return ScopeNone, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScope, s)
	}
}

// Flag selects case handling for string comparisons.
type Flag string

const (
	// CaseSensitive compares strings byte for byte.
	CaseSensitive Flag = "CASE_SENSITIVE"
	// CaseInsensitive lower-cases both sides before comparing strings.
	CaseInsensitive Flag = "CASE_INSENSITIVE"
)

// ParseFlag normalizes a flag name, case-insensitively.
func ParseFlag(s string) (Flag, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(CaseSensitive):
		return CaseSensitive, nil
	case string(CaseInsensitive):
		return CaseInsensitive, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFlag, s)
	}
}

// Operator is a normalized comparison operator.
type Operator string

const (
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpLess         Operator = "<"
	OpGreater      Operator = ">"
	OpLessEqual    Operator = "<="
	OpGreaterEqual Operator = ">="
	OpIn           Operator = "in"
	OpNotIn        Operator = "not in"
	OpIs           Operator = "is"
	OpIsNot        Operator = "is not"
)

// ParseOperator lower-cases the operator and collapses inner whitespace, so
// "NOT   IN" becomes OpNotIn.
func ParseOperator(s string) (Operator, error) {
	op := Operator(strings.ToLower(strings.Join(strings.Fields(s), " ")))
	switch op {
	case OpEqual, OpNotEqual, OpLess, OpGreater, OpLessEqual, OpGreaterEqual,
		OpIn, OpNotIn, OpIs, OpIsNot:
		return op, nil
	default:
		return "", &OperatorError{Operator: Operator(s)}
	}
}

// Combinator merges the per-clause results of one record.
type Combinator string

const (
	// And requires every clause result to be true.
	And Combinator = "AND"
	// Or requires at least one clause result to be true.
	Or Combinator = "OR"
)

// ParseCombinator accepts AND, and, &, && and OR, or, |, ||.
func ParseCombinator(s string) (Combinator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "and", "&", "&&":
		return And, nil
	case "or", "|", "||":
		return Or, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCombinator, s)
	}
}

// IsCombinator reports whether s is a combinator token.
func IsCombinator(s string) bool {
	_, err := ParseCombinator(s)
	return err == nil
}
