package filter

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// TokenKind classifies a token produced by Tokenize.
type TokenKind int

const (
	TokenInvalid TokenKind = iota
	// TokenWhitespace is a run of spaces, tabs or newlines.
	TokenWhitespace
	// TokenString is a single- or double-quoted literal, quotes included.
	TokenString
	// TokenQuote is a lone quote that never found its closing partner.
	TokenQuote
	// TokenOperator is one of the symbolic operators.
	TokenOperator
	// TokenIdent is an ASCII identifier.
	TokenIdent
	// TokenStar is the "*" wildcard.
	TokenStar
	// TokenDot separates clause segments.
	TokenDot
	// TokenText is any other run of characters.
	TokenText
)

func (k TokenKind) String() string {
	switch k {
	case TokenInvalid:
		return "Invalid"
	case TokenWhitespace:
		return "Whitespace"
	case TokenString:
		return "String"
	case TokenQuote:
		return "Quote"
	case TokenOperator:
		return "Operator"
	case TokenIdent:
		return "Ident"
	case TokenStar:
		return "Star"
	case TokenDot:
		return "Dot"
	case TokenText:
		return "Text"
	default:
		return "TokenKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Token is one lexeme with its byte offset into the scanned input.
type Token struct {
	Kind   TokenKind
	Text   string
	Offset int
}

// End returns the offset just past the token.
func (t Token) End() int { return t.Offset + len(t.Text) }

// Is reports whether the token has the given kind and, ignoring case, text.
func (t Token) Is(kind TokenKind, text string) bool {
	return t.Kind == kind && strings.EqualFold(t.Text, text)
}

// clauseLexer tokenizes filter and query strings. Rule order matters: the
// first matching rule wins.
var clauseLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		//nolint:govet // Participle DSL uses unkeyed fields
		{"Whitespace", `\s+`, nil},
		//nolint:govet // Participle DSL uses unkeyed fields
		{"String", `"(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*'`, nil},
		//nolint:govet // Participle DSL uses unkeyed fields
		{"Quote", `["']`, nil},
		//nolint:govet // Participle DSL uses unkeyed fields
		{"Operator", `==|!=|>=|<=|>|<`, nil},
		//nolint:govet // Participle DSL uses unkeyed fields
		{"Ident", `[A-Za-z_][\p{L}\p{N}_]*`, nil},
		//nolint:govet // Participle DSL uses unkeyed fields
		{"Star", `\*`, nil},
		//nolint:govet // Participle DSL uses unkeyed fields
		{"Dot", `\.`, nil},
		//nolint:govet // Participle DSL uses unkeyed fields
		{"Text", `[^\s.*"'=!<>]+|[=!<>]`, nil},
	},
})

var tokenKinds = func() map[lexer.TokenType]TokenKind {
	kinds := map[string]TokenKind{
		"Whitespace": TokenWhitespace,
		"String":     TokenString,
		"Quote":      TokenQuote,
		"Operator":   TokenOperator,
		"Ident":      TokenIdent,
		"Star":       TokenStar,
		"Dot":        TokenDot,
		"Text":       TokenText,
	}
	out := make(map[lexer.TokenType]TokenKind, len(kinds))
	for name, typ := range clauseLexer.Symbols() {
		if kind, ok := kinds[name]; ok {
			out[typ] = kind
		}
	}
	return out
}()

// Tokenize splits input into clause tokens. Every byte of input belongs to
// exactly one token, so input[t.Offset:t.End()] == t.Text.
func Tokenize(input string) ([]Token, error) {
	lex, err := clauseLexer.LexString("", input)
	if err != nil {
		return nil, &FormatError{Input: input, Reason: err.Error()}
	}
	tokens := make([]Token, 0, len(input)/2+1)
	for {
		tok, err := lex.Next()
		if err != nil {
			return nil, &FormatError{Input: input, Offset: tok.Pos.Offset, Reason: err.Error()}
		}
		if tok.EOF() {
			return tokens, nil
		}
		tokens = append(tokens, Token{
			Kind:   tokenKinds[tok.Type],
			Text:   tok.Value,
			Offset: tok.Pos.Offset,
		})
	}
}
