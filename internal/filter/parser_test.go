package filter

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestTokenizeCoversInput(t *testing.T) {
	input := `users.name.ALL.not  in.'a.b' x==y`
	tokens, err := Tokenize(input)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	var b strings.Builder
	for _, tok := range tokens {
		if input[tok.Offset:tok.End()] != tok.Text {
			t.Fatalf("token %v does not match input slice %q", tok, input[tok.Offset:tok.End()])
		}
		b.WriteString(tok.Text)
	}
	if b.String() != input {
		t.Fatalf("tokens rebuild %q, want %q", b.String(), input)
	}

	type tokenExpectation struct {
		kind TokenKind
		text string
	}
	want := []tokenExpectation{
		{TokenIdent, "users"},
		{TokenDot, "."},
		{TokenIdent, "name"},
		{TokenDot, "."},
		{TokenIdent, "ALL"},
		{TokenDot, "."},
		{TokenIdent, "not"},
		{TokenWhitespace, "  "},
		{TokenIdent, "in"},
		{TokenDot, "."},
		{TokenString, "'a.b'"},
		{TokenWhitespace, " "},
		{TokenIdent, "x"},
		{TokenOperator, "=="},
		{TokenIdent, "y"},
	}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(tokens), len(want))
	}
	for i, exp := range want {
		if tokens[i].Kind != exp.kind || tokens[i].Text != exp.text {
			t.Fatalf("token %d mismatch: got (%s,%q), want (%s,%q)", i, tokens[i].Kind, tokens[i].Text, exp.kind, exp.text)
		}
	}
}

func TestParseClause(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		table  string
		field  string
		scope  Scope
		op     Operator
		kind   Kind
		value  any
		quoted bool
	}{
		{"integer", "users.age.ALL.>=.18", "users", "age", ScopeAll, OpGreaterEqual, KindInteger, int64(18), false},
		{"single quoted", "users.name.ANY.==.'bob'", "users", "name", ScopeAny, OpEqual, KindString, "bob", true},
		{"double quoted with dot", `users.email.ALL.in."@example.com"`, "users", "email", ScopeAll, OpIn, KindString, "@example.com", true},
		{"escaped quote", `users.nick.ALL.==.'it\'s'`, "users", "nick", ScopeAll, OpEqual, KindString, "it's", true},
		{"quoted digits stay string", `users.zip.ALL.==."0123"`, "users", "zip", ScopeAll, OpEqual, KindString, "0123", true},
		{"wildcard field and scope", "users.*.*.!=.x", "users", "*", ScopeWildcard, OpNotEqual, KindString, "x", false},
		{"lowercase scope", "users.age.none.<.5", "users", "age", ScopeNone, OpLess, KindInteger, int64(5), false},
		{"not in", "users.tags.ALL.not in.admin", "users", "tags", ScopeAll, OpNotIn, KindString, "admin", false},
		{"NOT IN spaced", "users.tags.ALL.NOT   IN.admin", "users", "tags", ScopeAll, OpNotIn, KindString, "admin", false},
		{"is not", "users.active.ALL.is not.false", "users", "active", ScopeAll, OpIsNot, KindBoolean, false, false},
		{"is", "users.active.ALL.IS.True", "users", "active", ScopeAll, OpIs, KindBoolean, true, false},
		{"null", "users.deleted.ALL.is.null", "users", "deleted", ScopeAll, OpIs, KindNull, nil, false},
		{"surrounding whitespace", "  users.age.ALL.>.1  ", "users", "age", ScopeAll, OpGreater, KindInteger, int64(1), false},
		{"negative is decimal", "users.balance.ALL.<.-5", "users", "balance", ScopeAll, OpLess, KindDecimal, decimal.NewFromInt(-5), false},
		{"value with spaces", "users.city.ALL.==.New York", "users", "city", ScopeAll, OpEqual, KindString, "New York", false},
		{"unicode field", "users.prénom.ALL.==.'Zoë'", "users", "prénom", ScopeAll, OpEqual, KindString, "Zoë", true},
		{"unicode digits in table", "kunden_2.straße.ANY.!=.x", "kunden_2", "straße", ScopeAny, OpNotEqual, KindString, "x", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseClause(tt.input)
			if err != nil {
				t.Fatalf("ParseClause(%q): %v", tt.input, err)
			}
			if c.Table() != tt.table || c.Field() != tt.field || c.Scope() != tt.scope || c.Operator() != tt.op {
				t.Fatalf("got %v, want %s.%s.%s.%s", c.Parts(), tt.table, tt.field, tt.scope, tt.op)
			}
			if c.Value().Kind != tt.kind {
				t.Fatalf("value kind = %s, want %s", c.Value().Kind, tt.kind)
			}
			if c.Quoted() != tt.quoted {
				t.Fatalf("quoted = %v, want %v", c.Quoted(), tt.quoted)
			}
			if d, ok := tt.value.(decimal.Decimal); ok {
				got, _ := c.Value().Interface().(decimal.Decimal)
				if !got.Equal(d) {
					t.Fatalf("value = %v, want %v", got, d)
				}
				return
			}
			if diff := cmp.Diff(tt.value, c.Value().Interface()); diff != "" {
				t.Fatalf("value mismatch (-want +got):\n%s", diff)
			}
			if c.Flag() != CaseInsensitive {
				t.Fatalf("default flag = %s", c.Flag())
			}
			if c.String() != strings.TrimSpace(tt.input) {
				t.Fatalf("String() = %q", c.String())
			}
		})
	}
}

func TestParseClauseErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		offset int
	}{
		{"empty", "", 0},
		{"missing value", "users.age.ALL.>=.", 17},
		{"missing segments", "users.age", 9},
		{"bad scope", "users.age.SOME.>=.1", 10},
		{"bad operator", "users.age.ALL.=~.1", 14},
		{"not without in", "users.age.ALL.not.1", 14},
		{"dot in unquoted value", "users.version.ALL.==.1.5", 22},
		{"table starts with digit", "1users.age.ALL.==.1", 0},
		{"space before dot", "users .age.ALL.==.1", 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseClause(tt.input)
			if err == nil {
				t.Fatalf("expected error for %q", tt.input)
			}
			if !errors.Is(err, ErrFormat) {
				t.Fatalf("expected ErrFormat, got %v", err)
			}
			var fe *FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("expected *FormatError, got %T", err)
			}
			if fe.Offset != tt.offset {
				t.Fatalf("offset = %d, want %d (%v)", fe.Offset, tt.offset, err)
			}
		})
	}
}

func TestParseClausesBestEffort(t *testing.T) {
	clauses, errs := ParseClauses([]string{"users.age.ALL.>=.18", "users.age..>=.18", "users.name.ALL.==.'x'"})
	if len(clauses) != 2 {
		t.Fatalf("got %d clauses, want 2", len(clauses))
	}
	if len(errs) != 1 || !errors.Is(errs[0], ErrFormat) {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestWithFlag(t *testing.T) {
	c := MustParseClause("users.name.ALL.==.Bob", WithFlag(CaseSensitive))
	if c.Flag() != CaseSensitive {
		t.Fatalf("flag = %s", c.Flag())
	}
	if c.WithFlag(CaseInsensitive).Flag() != CaseInsensitive || c.Flag() != CaseSensitive {
		t.Fatalf("WithFlag must copy")
	}
}

func TestClauseDescribe(t *testing.T) {
	c := MustParseClause("users.age.NONE.<.18")
	want := Description{
		Table:    "users",
		Field:    "age",
		Scope:    ScopeNone,
		Operator: OpLess,
		String:   "users.age.NONE.<.18",
		Value:    ValueDescription{Type: "integer", Value: int64(18)},
	}
	if diff := cmp.Diff(want, c.Describe()); diff != "" {
		t.Fatalf("Describe mismatch (-want +got):\n%s", diff)
	}

	quoted := MustParseClause("users.name.ALL.==.'42'").Describe()
	if quoted.Value.Type != "string" || quoted.Value.Value != "42" {
		t.Fatalf("quoted value described as %+v", quoted.Value)
	}
}

func TestCoerce(t *testing.T) {
	dir := t.TempDir()
	id := uuid.New()
	tests := []struct {
		raw  string
		kind Kind
	}{
		{"42", KindInteger},
		{"99999999999999999999", KindDecimal},
		{"TRUE", KindBoolean},
		{"None", KindNull},
		{"nan", KindFloat},
		{"-inf", KindFloat},
		{"2024-05-01", KindDate},
		{"2024-05-01T10:30:00", KindDateTime},
		{"2024-05-01T10:30:00Z", KindDateTime},
		{"3.25", KindDecimal},
		{"1e3", KindDecimal},
		{dir, KindPath},
		{"10:30", KindTime},
		{"10:30:15", KindTime},
		{id.String(), KindUUID},
		{"hello", KindString},
		{"2024-13-45", KindString},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v := Coerce(tt.raw)
			if v.Kind != tt.kind {
				t.Fatalf("Coerce(%q).Kind = %s, want %s", tt.raw, v.Kind, tt.kind)
			}
			if v.String() != tt.raw {
				t.Fatalf("Raw = %q", v.String())
			}
		})
	}

	if f, _ := Coerce("inf").Interface().(float64); !math.IsInf(f, 1) {
		t.Fatalf("inf coerced to %v", f)
	}
	if d, _ := Coerce("2024-05-01").Interface().(time.Time); d.Month() != time.May {
		t.Fatalf("date coerced to %v", d)
	}
}
