package query

import (
	"errors"
	"strings"
	"testing"

	"github.com/electwix/pebble/internal/filter"
)

// FuzzSplit checks that splitting never panics and that every sub-query is a
// trimmed piece of the input.
func FuzzSplit(f *testing.F) {
	f.Add("users.age.ALL.>=.18.& users.city.ALL.==.'berlin'")
	f.Add("users.tags.ALL.not in.x OR users.name.ANY.is not.'a b'")
	f.Add("&& || and")
	f.Add("users.age.ALL.>.")

	f.Fuzz(func(t *testing.T, input string) {
		subs, err := Split(input)
		if err != nil {
			if !errors.Is(err, filter.ErrFormat) {
				t.Fatalf("Split(%q) returned %v", input, err)
			}
			return
		}
		for _, sub := range subs {
			if sub.Raw == "" && sub.Combinator == "" {
				t.Fatalf("empty sub-query from %q", input)
			}
			if !strings.Contains(input, sub.Raw) {
				t.Fatalf("sub-query %q not found in %q", sub.Raw, input)
			}
		}
	})
}
