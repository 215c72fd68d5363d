// Package filter parses and evaluates pebble filter strings.
//
// A filter string (a clause) has the form
//
//	<table>.<field>.<scope>.<operator>.<value>
//
// for example users.age.ALL.>=.18 or users.name.NONE.==.'bob'. Scopes are
// *, ALL, ANY and NONE. Operators are ==, !=, <, >, <=, >=, in, not in, is
// and is not, matched case-insensitively. Quoted values stay strings;
// unquoted values are coerced to the richest matching primitive (see Coerce).
//
// An Engine holds a set of clauses and evaluates them against every record
// of a Source:
//
//	clause, err := filter.ParseClause("users.age.ALL.>=.18")
//	if err != nil {
//	    return err
//	}
//	res, err := filter.NewEngine(records).SetFilter(clause, filter.ScopeAll).Filter()
package filter
