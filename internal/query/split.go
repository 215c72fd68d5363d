package query

import (
	"strings"

	"github.com/electwix/pebble/internal/filter"
)

// SubQuery is one clause of a query string before it is parsed.
type SubQuery struct {
	// Table is the leading identifier of the clause, or empty if it has none.
	Table string
	// Raw is the clause text with any combinator suffix removed.
	Raw string
	// Combinator is the combinator attached to the clause, or empty.
	Combinator filter.Combinator
}

// combinatorSuffixes are checked longest first.
var combinatorSuffixes = []string{".&&", ".||", ".&", ".|"}

// Split breaks a query string into sub-queries. Clauses are separated by
// whitespace, except whitespace inside quoted values and inside the "not in"
// and "is not" operators. A clause may end in .& or .| (or .&&, .||), and a
// standalone combinator word or symbol between clauses attaches to the
// clause before it.
func Split(raw string) ([]SubQuery, error) {
	tokens, err := filter.Tokenize(raw)
	if err != nil {
		return nil, err
	}

	var subs []SubQuery
	for _, chunk := range chunks(raw, tokens) {
		if filter.IsCombinator(chunk.text) {
			if len(subs) > 0 {
				comb, _ := filter.ParseCombinator(chunk.text)
				subs[len(subs)-1].Combinator = comb
			}
			continue
		}
		sub := SubQuery{Raw: chunk.text}
		for _, suffix := range combinatorSuffixes {
			if strings.HasSuffix(sub.Raw, suffix) {
				sub.Combinator, _ = filter.ParseCombinator(suffix[1:])
				sub.Raw = strings.TrimSuffix(sub.Raw, suffix)
				break
			}
		}
		if chunk.first.Kind == filter.TokenIdent {
			sub.Table = chunk.first.Text
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

type chunk struct {
	text  string
	first filter.Token
}

// chunks groups tokens into whitespace separated runs.
func chunks(raw string, tokens []filter.Token) []chunk {
	var out []chunk
	start := -1
	flush := func(end int) {
		if start >= 0 {
			out = append(out, chunk{text: raw[tokens[start].Offset:tokens[end].End()], first: tokens[start]})
			start = -1
		}
	}
	for i, tok := range tokens {
		if tok.Kind == filter.TokenWhitespace {
			if start >= 0 && joinsOperator(tokens, i) {
				continue
			}
			flush(i - 1)
			continue
		}
		if start < 0 {
			start = i
		}
	}
	flush(len(tokens) - 1)
	return out
}

// joinsOperator reports whether the whitespace at tokens[i] sits between the
// words of a two-word operator: ".not in." or ".is not.".
func joinsOperator(tokens []filter.Token, i int) bool {
	if i < 2 || i+2 >= len(tokens) {
		return false
	}
	prev, before, next, after := tokens[i-1], tokens[i-2], tokens[i+1], tokens[i+2]
	if before.Kind != filter.TokenDot || after.Kind != filter.TokenDot {
		return false
	}
	switch {
	case prev.Is(filter.TokenIdent, "not"):
		return next.Is(filter.TokenIdent, "in")
	case prev.Is(filter.TokenIdent, "is"):
		return next.Is(filter.TokenIdent, "not")
	default:
		return false
	}
}
