package lexer

// TokenType represents the type of a token
type TokenType string

// Position is a point in the source.
type Position struct {
	Line   int // 1-based line number
	Column int // 1-based column number
	Offset int // index in []rune of the source
}

// Range represents the source location of a token or node as a half-open
// [Start, End) interval.
type Range struct {
	Filename string // optional source filename for diagnostics
	Start    Position
	End      Position
}

// Contains reports whether other lies within r.
func (r Range) Contains(other Range) bool {
	return r.Start.Offset <= other.Start.Offset && other.End.Offset <= r.End.Offset
}

// Merge returns a range spanning from the start of r to the end of other.
func (r Range) Merge(other Range) Range {
	out := r
	if other.End.Offset > out.End.Offset {
		out.End = other.End
	}
	return out
}

// Token represents a lexical token
type Token struct {
	Type  TokenType
	Raw   string // exact runes from source
	Value string // decoded value (strings without quotes and escapes, same as Raw for others)
	Range Range
}

// Token type constants
const (
	// Special tokens
	ILLEGAL TokenType = "ILLEGAL"
	EOF     TokenType = "EOF"

	// Identifiers and literals
	IDENT   TokenType = "IDENT"   // add, foobar, x, y, ...
	INT     TokenType = "INT"     // 1343456
	FLOAT   TokenType = "FLOAT"   // 3.14
	STRING  TokenType = "STRING"  // "hello"
	RSTRING TokenType = "RSTRING" // 'raw'

	OPERATOR TokenType = "OPERATOR"

	// Delimiters
	EOS    TokenType = ";"
	DOT    TokenType = "."
	COMMA  TokenType = ","
	LPAREN TokenType = "("
	RPAREN TokenType = ")"
	LBRACE TokenType = "{"
	RBRACE TokenType = "}"

	// Trivia
	COMMENT TokenType = "COMMENT" // # to end of line, or # inline #
)

var operators = map[string]bool{
	"-": true, "--": true, "-=": true,
	"+": true, "++": true, "+=": true,
	"*": true, "*=": true,
	"/": true, "/=": true,
	"%": true, "%=": true,
	"=": true, "==": true,
	"!": true, "!=": true,
	"~": true, "~=": true,
	"^": true, "^=": true,
	"|": true, "||": true, "|=": true,
	"&": true, "&&": true, "&=": true,
	"<": true, "<=": true, "<<": true, "<<=": true,
	">": true, ">=": true, ">>": true, ">>=": true, ">>>": true,
}

var keywords = map[string]bool{
	"var":     true,
	"val":     true,
	"func":    true,
	"if":      true,
	"elif":    true,
	"else":    true,
	"repeat":  true,
	"as":      true,
	"while":   true,
	"do":      true,
	"for":     true,
	"in":      true,
	"when":    true,
	"case":    true,
	"default": true,
}

// IsKeyword reports whether ident is reserved.
func IsKeyword(ident string) bool {
	return keywords[ident]
}

// Keywords returns the reserved words.
func Keywords() []string {
	out := make([]string, 0, len(keywords))
	for k := range keywords {
		out = append(out, k)
	}
	return out
}

// IsOperator reports whether s is a complete operator token.
func IsOperator(s string) bool {
	return operators[s]
}

func isOperatorChar(ch rune) bool {
	switch ch {
	case '-', '+', '*', '/', '%', '=', '!', '~', '|', '&', '<', '^', '>':
		return true
	}
	return false
}
