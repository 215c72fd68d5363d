package query

import (
	"strconv"
	"strings"

	"github.com/electwix/pebble/internal/filter"
)

// Result is the outcome of Engine.Query. Values is keyed by the position of
// each query ("0", "1", ...) and then by table name.
type Result struct {
	Query  string                              `json:"query"`
	Total  int                                 `json:"total"`
	Values map[string]map[string]filter.Result `json:"values"`
}

// Engine runs several queries over one set of tables.
type Engine struct {
	data    map[string]filter.Source
	queries []*Expression
}

// NewEngine returns an Engine over data, keyed by table name.
func NewEngine(data map[string]filter.Source) *Engine {
	if data == nil {
		data = make(map[string]filter.Source)
	}
	return &Engine{data: data}
}

// SetQuery parses raw and appends it.
func (e *Engine) SetQuery(raw string, opts ...Option) error {
	expr, err := Parse(raw, opts...)
	if err != nil {
		return err
	}
	e.queries = append(e.queries, expr)
	return nil
}

// SetQueries parses and appends every query. Nothing is appended if any of
// them fails to parse.
func (e *Engine) SetQueries(raws []string, opts ...Option) error {
	exprs := make([]*Expression, 0, len(raws))
	for _, raw := range raws {
		expr, err := Parse(raw, opts...)
		if err != nil {
			return err
		}
		exprs = append(exprs, expr)
	}
	e.queries = append(e.queries, exprs...)
	return nil
}

// Add appends already parsed expressions.
func (e *Engine) Add(exprs ...*Expression) *Engine {
	e.queries = append(e.queries, exprs...)
	return e
}

// Queries returns the registered expressions in order.
func (e *Engine) Queries() []*Expression {
	return append([]*Expression(nil), e.queries...)
}

// Query evaluates every registered query. Total counts matches across all
// queries and tables.
func (e *Engine) Query() (Result, error) {
	res := Result{Values: make(map[string]map[string]filter.Result, len(e.queries))}
	raws := make([]string, len(e.queries))
	for i, q := range e.queries {
		raws[i] = q.String()
		tables, err := q.EvaluateAll(e.data)
		if err != nil {
			return Result{}, err
		}
		for _, r := range tables {
			res.Total += r.Total
		}
		res.Values[strconv.Itoa(i)] = tables
	}
	res.Query = strings.Join(raws, " ")
	return res, nil
}
