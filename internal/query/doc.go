// Package query parses and runs pebble query strings.
//
// A query string is a whitespace separated list of filter clauses, each
// naming its own table:
//
//	users.age.ALL.>=.18.& users.city.ALL.==.'berlin' orders.total.ALL.>.100
//
// Clauses may carry a trailing .& or .| combinator, or be separated by a
// standalone AND, OR, &&, || (and lower-case forms). Parsing is best
// effort: malformed clauses are dropped and the rest of the query still
// runs.
package query
