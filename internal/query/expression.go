package query

import (
	"errors"
	"strings"

	"github.com/electwix/pebble/internal/filter"
	"github.com/electwix/pebble/internal/logging"
)

// ErrEmptyQuery is returned by Parse for a blank query string.
var ErrEmptyQuery = errors.New("query: empty query string")

// Option configures Parse.
type Option func(*Expression)

// WithFlag sets the case-sensitivity flag for every clause.
func WithFlag(flag filter.Flag) Option {
	return func(e *Expression) {
		e.flag = flag
	}
}

// WithScope overrides the scope of every clause. By default each clause
// keeps the scope written in it.
func WithScope(scope filter.Scope) Option {
	return func(e *Expression) {
		e.scope = scope
	}
}

// WithLogger reports clauses skipped during parsing.
func WithLogger(logger logging.Logger) Option {
	return func(e *Expression) {
		if logger != nil {
			e.logger = logger
		}
	}
}

type boundClause struct {
	clause     *filter.Clause
	combinator filter.Combinator
}

// Expression is a parsed query string: a list of clauses grouped by the
// table they name.
type Expression struct {
	raw     string
	flag    filter.Flag
	scope   filter.Scope
	logger  logging.Logger
	subs    []SubQuery
	tables  []string
	clauses map[string][]boundClause
	skipped []error
}

// Parse splits raw into clauses and parses each one. Clauses that do not
// parse are skipped so that one malformed clause does not void the rest of
// the query; they are reported by Skipped. Only a blank query is an error.
func Parse(raw string, opts ...Option) (*Expression, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyQuery
	}
	e := &Expression{
		raw:     raw,
		flag:    filter.CaseInsensitive,
		logger:  logging.NewNopLogger(),
		clauses: make(map[string][]boundClause),
	}
	for _, opt := range opts {
		opt(e)
	}

	subs, err := Split(raw)
	if err != nil {
		return nil, err
	}
	e.subs = subs

	seen := make(map[string]bool)
	for _, sub := range subs {
		if sub.Table != "" && !seen[sub.Table] {
			seen[sub.Table] = true
			e.tables = append(e.tables, sub.Table)
		}
	}

	comb := filter.And
	for _, sub := range subs {
		if sub.Combinator != "" {
			comb = sub.Combinator
		}
		c, err := filter.ParseClause(sub.Raw, filter.WithFlag(e.flag))
		if err != nil {
			e.logger.Debug("skipping malformed clause", "clause", sub.Raw, "err", err)
			e.skipped = append(e.skipped, err)
			continue
		}
		e.clauses[c.Table()] = append(e.clauses[c.Table()], boundClause{clause: c, combinator: comb})
	}
	return e, nil
}

// MustParse is like Parse but panics on error.
func MustParse(raw string, opts ...Option) *Expression {
	e, err := Parse(raw, opts...)
	if err != nil {
		panic(err)
	}
	return e
}

// String returns the query string as given.
func (e *Expression) String() string { return e.raw }

// Flag returns the case-sensitivity flag.
func (e *Expression) Flag() filter.Flag { return e.flag }

// SubQueries returns the clauses as split from the query string.
func (e *Expression) SubQueries() []SubQuery {
	return append([]SubQuery(nil), e.subs...)
}

// Tables returns the referenced table names in order of first appearance.
func (e *Expression) Tables() []string {
	return append([]string(nil), e.tables...)
}

// Filters returns the parsed clauses per table.
func (e *Expression) Filters() map[string][]*filter.Clause {
	out := make(map[string][]*filter.Clause, len(e.clauses))
	for table, bound := range e.clauses {
		cs := make([]*filter.Clause, len(bound))
		for i, b := range bound {
			cs[i] = b.clause
		}
		out[table] = cs
	}
	return out
}

// Skipped returns the parse errors of the clauses that were dropped.
func (e *Expression) Skipped() []error {
	return append([]error(nil), e.skipped...)
}

// Describe renders "field.operator.scope" for every clause of table,
// joined with ".".
func (e *Expression) Describe(table string) string {
	bound := e.clauses[table]
	parts := make([]string, len(bound))
	for i, b := range bound {
		parts[i] = b.clause.Summary()
	}
	return strings.Join(parts, ".")
}

// Evaluate filters src with the clauses that name table.
func (e *Expression) Evaluate(table string, src filter.Source) (filter.Result, error) {
	engine := filter.NewEngine(src)
	for _, b := range e.clauses[table] {
		engine.SetFilters([]*filter.Clause{b.clause}, b.combinator, e.scope)
	}
	res, err := engine.Filter()
	if err != nil {
		return filter.Result{}, err
	}
	res.Filter = e.Describe(table)
	return res, nil
}

// EvaluateAll evaluates every table that has clauses. Tables missing from
// data are evaluated against no records.
func (e *Expression) EvaluateAll(data map[string]filter.Source) (map[string]filter.Result, error) {
	out := make(map[string]filter.Result)
	for _, table := range e.tables {
		if len(e.clauses[table]) == 0 {
			continue
		}
		src, ok := data[table]
		if !ok || src == nil {
			src = filter.Records{}
		}
		res, err := e.Evaluate(table, src)
		if err != nil {
			return nil, err
		}
		out[table] = res
	}
	return out, nil
}
