// Package chaos corrupts valid filter and query strings so parser tests can
// check that malformed input is rejected without panicking.
package chaos

import (
	"math/rand"
	"strings"
)

// Mutation is one kind of corruption.
type Mutation int

const (
	ByteFlip Mutation = iota
	ByteDelete
	ByteInsert
	Truncation
	InvalidUTF8
	DotDelete
	DotInsert
	QuoteInsert
	SegmentSwap
	OperatorSwap
	mutationCount
)

// junk is inserted by ByteInsert; it favours characters that are meaningful
// to the clause grammar.
const junk = `.'"*&|=!<> \t\\` + "\x00"

var operators = []string{"==", "!=", "<", ">", "<=", ">=", "in", "not in", "is", "is not", "=~", "not", "", "in in"}

// Corruptor applies random mutations from a deterministic source.
type Corruptor struct {
	rng *rand.Rand
}

// NewCorruptor creates a Corruptor seeded with seed.
func NewCorruptor(seed int64) *Corruptor {
	return &Corruptor{rng: rand.New(rand.NewSource(seed))}
}

// Corrupt applies one random mutation to input.
func (c *Corruptor) Corrupt(input string) string {
	if input == "" {
		return string(junk[c.rng.Intn(len(junk))])
	}
	return c.Apply(Mutation(c.rng.Intn(int(mutationCount))), input)
}

// CorruptN applies n random mutations in sequence.
func (c *Corruptor) CorruptN(input string, n int) string {
	for i := 0; i < n; i++ {
		input = c.Corrupt(input)
	}
	return input
}

// Apply runs a specific mutation against input.
func (c *Corruptor) Apply(m Mutation, input string) string {
	if input == "" {
		return input
	}
	b := []byte(input)
	switch m {
	case ByteFlip:
		idx := c.rng.Intn(len(b))
		b[idx] ^= byte(1 << c.rng.Intn(8))
		return string(b)
	case ByteDelete:
		idx := c.rng.Intn(len(b))
		return string(append(b[:idx:idx], b[idx+1:]...))
	case ByteInsert:
		idx := c.rng.Intn(len(b) + 1)
		return input[:idx] + string(junk[c.rng.Intn(len(junk))]) + input[idx:]
	case Truncation:
		return input[:c.rng.Intn(len(input))]
	case InvalidUTF8:
		idx := c.rng.Intn(len(b))
		b[idx] = 0xC0 | byte(c.rng.Intn(0x20))
		return string(b)
	case DotDelete:
		return c.replaceNth(input, ".", "")
	case DotInsert:
		idx := c.rng.Intn(len(b) + 1)
		return input[:idx] + "." + input[idx:]
	case QuoteInsert:
		q := `'`
		if c.rng.Intn(2) == 0 {
			q = `"`
		}
		idx := c.rng.Intn(len(b) + 1)
		return input[:idx] + q + input[idx:]
	case SegmentSwap:
		parts := strings.Split(input, ".")
		if len(parts) < 2 {
			return input
		}
		i, j := c.rng.Intn(len(parts)), c.rng.Intn(len(parts))
		parts[i], parts[j] = parts[j], parts[i]
		return strings.Join(parts, ".")
	case OperatorSwap:
		parts := strings.Split(input, ".")
		if len(parts) < 4 {
			return input
		}
		parts[3] = operators[c.rng.Intn(len(operators))]
		return strings.Join(parts, ".")
	default:
		return input
	}
}

// replaceNth replaces a randomly chosen occurrence of old.
func (c *Corruptor) replaceNth(input, old, repl string) string {
	n := strings.Count(input, old)
	if n == 0 {
		return input
	}
	target := c.rng.Intn(n)
	idx := -1
	for i := 0; i <= target; i++ {
		idx += 1 + strings.Index(input[idx+1:], old)
	}
	return input[:idx] + repl + input[idx+len(old):]
}

// GenerateCorpus returns count corrupted variants of valid, each with one to
// five mutations.
func (c *Corruptor) GenerateCorpus(valid string, count int) []string {
	corpus := make([]string, count)
	for i := range corpus {
		corpus[i] = c.CorruptN(valid, c.rng.Intn(5)+1)
	}
	return corpus
}
