package filter

import (
	"sort"
	"strconv"
	"strings"
)

// Record is one row: a JSON-like mapping from field names to values.
type Record = map[string]any

// Source supplies the records an Engine filters.
type Source interface {
	Records() []Record
}

// Records is a Source over an ordered slice.
type Records []Record

// Records implements Source.
func (r Records) Records() []Record { return r }

// Collection is a Source over records keyed by identifier. Records are
// produced in natural key order, so "2" sorts before "10".
type Collection map[string]Record

// Records implements Source.
func (c Collection) Records() []Record {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	SortKeys(keys)
	out := make([]Record, 0, len(keys))
	for _, k := range keys {
		out = append(out, c[k])
	}
	return out
}

// SortKeys sorts record identifiers in natural order: keys that are decimal
// integers sort numerically before all other keys, which sort lexically.
func SortKeys(keys []string) {
	sort.Slice(keys, func(i, j int) bool { return lessKey(keys[i], keys[j]) })
}

func lessKey(a, b string) bool {
	na, errA := strconv.ParseUint(a, 10, 64)
	nb, errB := strconv.ParseUint(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}

// Registration is a clause registered with an Engine along with how it takes
// part in aggregation.
type Registration struct {
	Clause     *Clause
	Scope      Scope
	Combinator Combinator
}

// effectiveScope resolves the registration scope against the clause's own.
func (r Registration) effectiveScope() Scope {
	if r.Scope != "" {
		return r.Scope
	}
	return r.Clause.Scope()
}

// Result is the outcome of Engine.Filter.
type Result struct {
	Filter string   `json:"filter"`
	Total  int      `json:"total"`
	Values []Record `json:"values"`
}

// Engine evaluates a set of clauses against the records of a Source.
// Registrations are keyed by the clause's filter string; registering the
// same string again replaces the earlier registration in place.
//
// An Engine is not safe for concurrent mutation.
type Engine struct {
	source Source
	order  []string
	regs   map[string]Registration
}

// NewEngine returns an Engine over src.
func NewEngine(src Source) *Engine {
	return &Engine{
		source: src,
		regs:   make(map[string]Registration),
	}
}

// SetSource replaces the records the engine filters.
func (e *Engine) SetSource(src Source) *Engine {
	e.source = src
	return e
}

// SetFilter registers one clause combined with AND. An empty scope falls
// back to the scope written in the clause.
func (e *Engine) SetFilter(c *Clause, scope Scope) *Engine {
	e.register(Registration{Clause: c, Scope: scope, Combinator: And})
	return e
}

// SetFilters registers clauses sharing one combinator and scope.
func (e *Engine) SetFilters(clauses []*Clause, comb Combinator, scope Scope) *Engine {
	for _, c := range clauses {
		e.register(Registration{Clause: c, Scope: scope, Combinator: comb})
	}
	return e
}

func (e *Engine) register(r Registration) {
	if r.Clause == nil {
		return
	}
	if r.Combinator == "" {
		r.Combinator = And
	}
	key := r.Clause.String()
	if _, ok := e.regs[key]; !ok {
		e.order = append(e.order, key)
	}
	e.regs[key] = r
}

// Registrations returns the registered clauses in registration order.
func (e *Engine) Registrations() []Registration {
	out := make([]Registration, 0, len(e.order))
	for _, k := range e.order {
		out = append(out, e.regs[k])
	}
	return out
}

// Len returns the number of registered clauses.
func (e *Engine) Len() int { return len(e.order) }

// Describe renders "raw.combinator.scope" for every registration, joined
// with ".".
func (e *Engine) Describe() string {
	parts := make([]string, 0, len(e.order))
	for _, r := range e.Registrations() {
		parts = append(parts, r.Clause.String()+"."+string(r.Combinator)+"."+string(r.effectiveScope()))
	}
	return strings.Join(parts, ".")
}

// Filter evaluates every registered clause against every record. A NONE
// scope inverts the clause result. The combinator of the last registration
// decides how the per-clause results of a record are merged; a record with
// no evaluated clauses never matches.
//
// The first evaluation error aborts filtering.
func (e *Engine) Filter() (Result, error) {
	res := Result{Filter: e.Describe(), Values: []Record{}}
	if e.source == nil || len(e.order) == 0 {
		return res, nil
	}
	regs := e.Registrations()
	comb := regs[len(regs)-1].Combinator

	matches := make([]bool, len(regs))
	for _, rec := range e.source.Records() {
		for i, r := range regs {
			ok, err := r.Clause.Evaluate(rec)
			if err != nil {
				return Result{}, err
			}
			if r.effectiveScope() == ScopeNone {
				ok = !ok
			}
			matches[i] = ok
		}
		if merge(comb, matches) {
			res.Values = append(res.Values, rec)
			res.Total++
		}
	}
	return res, nil
}

func merge(comb Combinator, matches []bool) bool {
	if len(matches) == 0 {
		return false
	}
	if comb == Or {
		for _, m := range matches {
			if m {
				return true
			}
		}
		return false
	}
	for _, m := range matches {
		if !m {
			return false
		}
	}
	return true
}
