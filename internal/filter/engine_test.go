package filter

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

func TestClauseEvaluate(t *testing.T) {
	alice := Record{"name": "Alice", "age": 30, "tags": []any{"admin", "ops"}, "meta": map[string]any{"team": "core"}, "score": nil, "active": false}

	tests := []struct {
		name   string
		clause string
		flag   Flag
		record Record
		want   bool
	}{
		{"age at least 18", "users.age.ALL.>=.18", CaseInsensitive, alice, true},
		{"age below 18", "users.age.ALL.<.18", CaseInsensitive, alice, false},
		{"case insensitive equality", "users.name.ALL.==.'alice'", CaseInsensitive, alice, true},
		{"case sensitive equality", "users.name.ALL.==.'alice'", CaseSensitive, alice, false},
		{"bob insensitive", "users.name.ALL.==.'bob'", CaseInsensitive, Record{"name": "Bob"}, true},
		{"absent field", "users.email.ALL.!=.x", CaseInsensitive, alice, false},
		{"absent field with not in", "users.email.ALL.not in.x", CaseInsensitive, alice, false},
		{"nil field", "users.score.ALL.is.null", CaseInsensitive, alice, false},
		{"false still matchable", "users.active.ALL.is.false", CaseInsensitive, alice, true},
		{"substring", "users.name.ALL.in.LIC", CaseInsensitive, alice, true},
		{"substring sensitive", "users.name.ALL.in.LIC", CaseSensitive, alice, false},
		{"list membership", "users.tags.ALL.in.admin", CaseInsensitive, alice, true},
		{"list non membership", "users.tags.ALL.not in.guest", CaseInsensitive, alice, true},
		{"map key membership", "users.meta.ALL.in.team", CaseInsensitive, alice, true},
		{"in on number fails closed", "users.age.ALL.in.3", CaseInsensitive, alice, false},
		{"not in on number fails open", "users.age.ALL.not in.3", CaseInsensitive, alice, true},
		{"int against decimal", "users.age.ALL.<.-1", CaseInsensitive, Record{"age": -2.5}, true},
		{"json number", "users.age.ALL.==.30", CaseInsensitive, Record{"age": json.Number("30")}, true},
		{"float equals int", "users.age.ALL.==.30", CaseInsensitive, Record{"age": 30.0}, true},
		{"is not", "users.name.ALL.is not.'carol'", CaseInsensitive, alice, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := MustParseClause(tt.clause, WithFlag(tt.flag))
			got, err := c.Evaluate(tt.record)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Evaluate(%v) = %v, want %v", tt.record, got, tt.want)
			}
		})
	}
}

func TestClauseEvaluateTypeMismatch(t *testing.T) {
	c := MustParseClause("users.name.ALL.>.5")
	_, err := c.Evaluate(Record{"name": "Alice"})
	if !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
	var tm *TypeMismatchError
	if !errors.As(err, &tm) || tm.Operator != OpGreater {
		t.Fatalf("expected *TypeMismatchError for >, got %#v", err)
	}
}

func TestClauseEvaluateRecordText(t *testing.T) {
	id := "5f0c6a8e-8a0a-4f43-9c1e-2d1e7c3b9a10"
	tests := []struct {
		name     string
		clause   string
		record   Record
		want     bool
		mismatch bool
	}{
		{"date text equals date", "users.born.ALL.==.1990-06-15", Record{"born": "1990-06-15"}, true, false},
		{"date text orders", "users.born.ALL.>=.1990-06-15", Record{"born": "1991-01-01"}, true, false},
		{"datetime text", "users.seen.ALL.<.2024-01-01T00:00:00", Record{"seen": "2023-12-31T23:59:59"}, true, false},
		{"uuid text", "users.id.ALL.==." + id, Record{"id": strings.ToUpper(id)}, true, false},
		{"unparsable text is not a date", "users.born.ALL.==.1990-06-15", Record{"born": "June 1990"}, false, false},
		{"unparsable text does not order", "users.born.ALL.<.1990-06-15", Record{"born": "June 1990"}, false, true},
		{"number text is not taken out", "users.age.ALL.==.30", Record{"age": "30"}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MustParseClause(tt.clause).Evaluate(tt.record)
			if tt.mismatch {
				var tm *TypeMismatchError
				if !errors.As(err, &tm) {
					t.Fatalf("expected *TypeMismatchError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Evaluate(%v) = %v, want %v", tt.record, got, tt.want)
			}
		})
	}
}

func TestCompareUnsupportedOperator(t *testing.T) {
	_, err := Compare(Operator("~="), 1, 1)
	if !errors.Is(err, ErrUnsupportedOperator) {
		t.Fatalf("expected ErrUnsupportedOperator, got %v", err)
	}
}

func TestCompareDecimal(t *testing.T) {
	ok, err := Compare(OpEqual, 0.1, decimal.RequireFromString("0.1"))
	if err != nil || !ok {
		t.Fatalf("0.1 == decimal 0.1: %v %v", ok, err)
	}
	ok, err = Compare(OpLess, uint64(1<<63), decimal.RequireFromString("9223372036854775809"))
	if err != nil || !ok {
		t.Fatalf("uint64 < decimal: %v %v", ok, err)
	}
}

func people() Collection {
	return Collection{
		"0":  {"name": "Alice", "age": 30, "city": "Berlin"},
		"1":  {"name": "Bob", "age": 17, "city": "Paris"},
		"2":  {"name": "Carol", "age": 45},
		"10": {"name": "Dave", "age": 52, "city": "Berlin"},
	}
}

func names(values []Record) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, v["name"].(string))
	}
	return out
}

func TestCollectionNaturalOrder(t *testing.T) {
	got := names(people().Records())
	want := []string{"Alice", "Bob", "Carol", "Dave"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestEngineFilter(t *testing.T) {
	adult := MustParseClause("users.age.ALL.>=.18")
	berlin := MustParseClause("users.city.ALL.==.'berlin'")

	tests := []struct {
		name  string
		setup func(e *Engine)
		want  []string
		desc  string
	}{
		{
			name:  "single clause",
			setup: func(e *Engine) { e.SetFilter(adult, ScopeAll) },
			want:  []string{"Alice", "Carol", "Dave"},
			desc:  "users.age.ALL.>=.18.AND.ALL",
		},
		{
			name:  "and",
			setup: func(e *Engine) { e.SetFilters([]*Clause{adult, berlin}, And, ScopeAll) },
			want:  []string{"Alice", "Dave"},
			desc:  "users.age.ALL.>=.18.AND.ALL.users.city.ALL.==.'berlin'.AND.ALL",
		},
		{
			name:  "or",
			setup: func(e *Engine) { e.SetFilters([]*Clause{adult, berlin}, Or, ScopeAll) },
			want:  []string{"Alice", "Carol", "Dave"},
		},
		{
			name:  "none inverts",
			setup: func(e *Engine) { e.SetFilter(adult, ScopeNone) },
			want:  []string{"Bob"},
		},
		{
			name: "none inside and",
			setup: func(e *Engine) {
				e.SetFilter(adult, ScopeAll)
				e.SetFilter(berlin, ScopeNone)
			},
			want: []string{"Carol"},
		},
		{
			name: "last combinator wins",
			setup: func(e *Engine) {
				e.SetFilters([]*Clause{adult}, And, ScopeAll)
				e.SetFilters([]*Clause{berlin}, Or, ScopeAll)
			},
			want: []string{"Alice", "Carol", "Dave"},
		},
		{
			name:  "unset scope uses clause scope",
			setup: func(e *Engine) { e.SetFilter(MustParseClause("users.age.NONE.>=.18"), "") },
			want:  []string{"Bob"},
			desc:  "users.age.NONE.>=.18.AND.NONE",
		},
		{
			name:  "no clauses",
			setup: func(*Engine) {},
			want:  []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(people())
			tt.setup(e)
			res, err := e.Filter()
			if err != nil {
				t.Fatalf("Filter: %v", err)
			}
			if diff := cmp.Diff(tt.want, names(res.Values)); diff != "" {
				t.Fatalf("values mismatch (-want +got):\n%s", diff)
			}
			if res.Total != len(tt.want) {
				t.Fatalf("total = %d, want %d", res.Total, len(tt.want))
			}
			if tt.desc != "" && res.Filter != tt.desc {
				t.Fatalf("filter = %q, want %q", res.Filter, tt.desc)
			}
		})
	}
}

func TestEngineRegistrationIdempotent(t *testing.T) {
	e := NewEngine(people())
	e.SetFilter(MustParseClause("users.age.ALL.>=.18"), ScopeAll)
	before, err := e.Filter()
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	e.SetFilter(MustParseClause("users.age.ALL.>=.18"), ScopeAll)
	if e.Len() != 1 {
		t.Fatalf("Len = %d after duplicate registration", e.Len())
	}
	after, err := e.Filter()
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if diff := cmp.Diff(before, after); diff != "" {
		t.Fatalf("duplicate registration changed result (-before +after):\n%s", diff)
	}
}

func TestEngineSetSource(t *testing.T) {
	e := NewEngine(people())
	e.SetFilter(MustParseClause("users.age.ALL.>=.18"), "")
	before, err := e.Filter()
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}

	after, err := e.SetSource(Collection{"0": {"age": 70}}).Filter()
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if after.Total != 1 || after.Total == before.Total {
		t.Fatalf("total before=%d after=%d", before.Total, after.Total)
	}
	if after.Filter != before.Filter {
		t.Fatalf("registrations changed with the source: %q vs %q", before.Filter, after.Filter)
	}

	empty, err := e.SetSource(nil).Filter()
	if err != nil || empty.Total != 0 {
		t.Fatalf("nil source: %+v %v", empty, err)
	}
}

func TestEngineFilterPropagatesError(t *testing.T) {
	e := NewEngine(Records{{"name": "Alice"}})
	e.SetFilter(MustParseClause("users.name.ALL.<.3"), ScopeAll)
	if _, err := e.Filter(); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
}
