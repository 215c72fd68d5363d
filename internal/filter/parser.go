package filter

import (
	"strings"
)

// ClauseOption configures ParseClause.
type ClauseOption func(*Clause)

// WithFlag sets the case-sensitivity flag used when the clause is evaluated.
func WithFlag(flag Flag) ClauseOption {
	return func(c *Clause) {
		c.flag = flag
	}
}

// ParseClause parses a single filter string. A malformed string yields a
// *FormatError pointing at the first offending token.
func ParseClause(input string, opts ...ClauseOption) (*Clause, error) {
	tokens, err := Tokenize(input)
	if err != nil {
		return nil, err
	}
	p := &parser{input: input, tokens: trimWhitespace(tokens)}
	c, err := p.parse()
	if err != nil {
		return nil, err
	}
	c.raw = strings.TrimSpace(input)
	c.flag = CaseInsensitive
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// MustParseClause is like ParseClause but panics on error. It is meant for
// clauses known at compile time.
func MustParseClause(input string, opts ...ClauseOption) *Clause {
	c, err := ParseClause(input, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseClauses parses every input and keeps the ones that parse. Errors for
// the rejected inputs are returned alongside, in input order.
func ParseClauses(inputs []string, opts ...ClauseOption) ([]*Clause, []error) {
	clauses := make([]*Clause, 0, len(inputs))
	var errs []error
	for _, in := range inputs {
		c, err := ParseClause(in, opts...)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		clauses = append(clauses, c)
	}
	return clauses, errs
}

type parser struct {
	input  string
	tokens []Token
	pos    int
}

func trimWhitespace(tokens []Token) []Token {
	start, end := 0, len(tokens)
	for start < end && tokens[start].Kind == TokenWhitespace {
		start++
	}
	for end > start && tokens[end-1].Kind == TokenWhitespace {
		end--
	}
	return tokens[start:end]
}

func (p *parser) parse() (*Clause, error) {
	c := &Clause{}

	table, err := p.expect("table name", TokenIdent)
	if err != nil {
		return nil, err
	}
	c.table = table.Text
	if _, err := p.expect("'.' after table", TokenDot); err != nil {
		return nil, err
	}

	field, err := p.expect("field name", TokenIdent, TokenStar)
	if err != nil {
		return nil, err
	}
	c.field = field.Text
	if _, err := p.expect("'.' after field", TokenDot); err != nil {
		return nil, err
	}

	scopeTok, err := p.expect("scope", TokenIdent, TokenStar)
	if err != nil {
		return nil, err
	}
	scope, err := ParseScope(scopeTok.Text)
	if err != nil {
		return nil, p.errorAt(scopeTok.Offset, "unknown scope "+quote(scopeTok.Text))
	}
	c.scope = scope
	if _, err := p.expect("'.' after scope", TokenDot); err != nil {
		return nil, err
	}

	op, err := p.parseOperator()
	if err != nil {
		return nil, err
	}
	c.op = op
	if _, err := p.expect("'.' after operator", TokenDot); err != nil {
		return nil, err
	}

	value, quoted, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	c.value = value
	c.quoted = quoted
	return c, nil
}

func (p *parser) parseOperator() (Operator, error) {
	tok, ok := p.peek()
	if !ok {
		return "", p.errorAt(len(p.input), "expected operator")
	}
	switch {
	case tok.Kind == TokenOperator:
		p.pos++
		return ParseOperator(tok.Text)
	case tok.Is(TokenIdent, "in"):
		p.pos++
		return OpIn, nil
	case tok.Is(TokenIdent, "is"):
		p.pos++
		if p.acceptWord("not") {
			return OpIsNot, nil
		}
		return OpIs, nil
	case tok.Is(TokenIdent, "not"):
		p.pos++
		if p.acceptWord("in") {
			return OpNotIn, nil
		}
		return "", p.errorAt(tok.Offset, "expected 'in' after 'not'")
	default:
		return "", p.errorAt(tok.Offset, "unknown operator "+quote(tok.Text))
	}
}

// acceptWord consumes whitespace followed by the identifier word, or nothing.
func (p *parser) acceptWord(word string) bool {
	if p.pos+1 >= len(p.tokens) {
		return false
	}
	if p.tokens[p.pos].Kind != TokenWhitespace || !p.tokens[p.pos+1].Is(TokenIdent, word) {
		return false
	}
	p.pos += 2
	return true
}

func (p *parser) parseValue() (Value, bool, error) {
	rest := p.tokens[p.pos:]
	if len(rest) == 0 {
		return Value{}, false, p.errorAt(len(p.input), "missing value")
	}
	if rest[0].Kind == TokenString && len(rest) == 1 {
		p.pos = len(p.tokens)
		return StringValue(unquote(rest[0].Text)), true, nil
	}
	for _, tok := range rest {
		if tok.Kind == TokenDot {
			return Value{}, false, p.errorAt(tok.Offset, "unexpected '.' in unquoted value")
		}
	}
	start, end := rest[0].Offset, rest[len(rest)-1].End()
	raw := strings.TrimSpace(p.input[start:end])
	if raw == "" {
		return Value{}, false, p.errorAt(start, "missing value")
	}
	p.pos = len(p.tokens)
	return Coerce(raw), false, nil
}

func (p *parser) peek() (Token, bool) {
	if p.pos >= len(p.tokens) {
		return Token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) expect(what string, kinds ...TokenKind) (Token, error) {
	tok, ok := p.peek()
	if !ok {
		return Token{}, p.errorAt(len(p.input), "expected "+what)
	}
	for _, k := range kinds {
		if tok.Kind == k {
			p.pos++
			return tok, nil
		}
	}
	return Token{}, p.errorAt(tok.Offset, "expected "+what+", found "+quote(tok.Text))
}

func (p *parser) errorAt(offset int, reason string) error {
	return &FormatError{Input: p.input, Offset: offset, Reason: reason}
}

func quote(s string) string {
	return "'" + s + "'"
}

// unquote strips the surrounding quotes and resolves escaped quotes and
// backslashes. Other escapes are kept verbatim.
func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	q := s[0]
	body := s[1 : len(s)-1]
	if !strings.Contains(body, `\`) {
		return body
	}
	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		ch := body[i]
		if ch == '\\' && i+1 < len(body) && (body[i+1] == q || body[i+1] == '\\') {
			b.WriteByte(body[i+1])
			i++
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}
