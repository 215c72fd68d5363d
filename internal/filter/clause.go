package filter

import (
	"strings"
)

// Clause is one parsed filter string. Clauses are immutable once parsed.
type Clause struct {
	raw    string
	table  string
	field  string
	scope  Scope
	op     Operator
	value  Value
	quoted bool
	flag   Flag
}

// Table returns the table segment.
func (c *Clause) Table() string { return c.table }

// Field returns the field segment; "*" is kept literally.
func (c *Clause) Field() string { return c.field }

// Scope returns the scope parsed from the string.
func (c *Clause) Scope() Scope { return c.scope }

// Operator returns the normalized operator.
func (c *Clause) Operator() Operator { return c.op }

// Value returns the coerced clause value.
func (c *Clause) Value() Value { return c.value }

// Quoted reports whether the value was written as a quoted string.
func (c *Clause) Quoted() bool { return c.quoted }

// Flag returns the case-sensitivity flag.
func (c *Clause) Flag() Flag { return c.flag }

// String returns the filter string the clause was parsed from, trimmed.
func (c *Clause) String() string { return c.raw }

// Parts returns the five segments of the clause in grammar order.
func (c *Clause) Parts() []string {
	return []string{c.table, c.field, string(c.scope), string(c.op), c.value.Raw}
}

// Summary renders field, operator and scope as used in query descriptions,
// e.g. "age.>=.ALL".
func (c *Clause) Summary() string {
	return c.field + "." + string(c.op) + "." + string(c.scope)
}

// Description is the structured view of a clause.
type Description struct {
	Table    string           `json:"table"`
	Field    string           `json:"field"`
	Scope    Scope            `json:"scope"`
	Operator Operator         `json:"operator"`
	String   string           `json:"string"`
	Value    ValueDescription `json:"value"`
}

// ValueDescription names the coerced type next to the value itself.
type ValueDescription struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// Describe returns the structured view of the clause.
func (c *Clause) Describe() Description {
	return Description{
		Table:    c.table,
		Field:    c.field,
		Scope:    c.scope,
		Operator: c.op,
		String:   c.raw,
		Value: ValueDescription{
			Type:  c.value.Kind.String(),
			Value: c.value.Interface(),
		},
	}
}

// WithFlag returns a copy of the clause that evaluates with flag.
func (c *Clause) WithFlag(flag Flag) *Clause {
	cp := *c
	cp.flag = flag
	return &cp
}

// Evaluate tests one record. An absent or nil field never matches. Ordered
// comparisons between incompatible types return *TypeMismatchError.
func (c *Clause) Evaluate(record map[string]any) (bool, error) {
	got, ok := record[c.field]
	if !ok || got == nil {
		return false, nil
	}
	want := c.value.Interface()
	got = coerceRecordValue(got, c.value.Kind)

	if c.flag == CaseInsensitive {
		if gs, ok := got.(string); ok {
			if ws, ok := want.(string); ok {
				got, want = strings.ToLower(gs), strings.ToLower(ws)
			}
		}
	}
	return Compare(c.op, got, want)
}
