package lexer

import (
	"fmt"

	"github.com/mim-lang/mim/internal/diag"
)

type LexerErrorKind int

const (
	ErrInvalidCharacter LexerErrorKind = iota
	ErrUnterminatedString
	ErrUnterminatedEscape
)

// LexerError is fatal: a source that fails to lex is never parsed.
type LexerError struct {
	Kind    LexerErrorKind
	Message string
	Pos     Position
	File    string
}

func (e *LexerError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Pos.Line, e.Pos.Column, e.Message)
	}
	return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

func (k LexerErrorKind) diagnosticCode() diag.Code {
	switch k {
	case ErrInvalidCharacter:
		return diag.CodeLexerInvalidCharacter
	case ErrUnterminatedString:
		return diag.CodeLexerUnterminatedString
	case ErrUnterminatedEscape:
		return diag.CodeLexerUnterminatedEscape
	default:
		return diag.Code("LEXER_UNKNOWN_ERROR")
	}
}

// ToDiagnostic converts a lexer error into a shared diagnostic structure.
func (e *LexerError) ToDiagnostic() diag.Diagnostic {
	return diag.Diagnostic{
		Stage:    diag.StageLexer,
		Severity: diag.SeverityError,
		Code:     e.Kind.diagnosticCode(),
		Message:  e.Message,
		Span: diag.Span{
			Filename: e.File,
			Line:     e.Pos.Line,
			Column:   e.Pos.Column,
			Start:    e.Pos.Offset,
			End:      e.Pos.Offset + 1,
		},
	}
}

// Lexer represents the lexer state
type Lexer struct {
	input      []rune
	pos        int  // index of the current rune
	ch         rune // current rune (0 = EOF)
	line       int  // current line number (1-based)
	column     int  // current column number (1-based)
	emitTrivia bool // whether to emit COMMENT tokens
	filename   string

	Errors []*LexerError
}

func (l *Lexer) addError(kind LexerErrorKind, msg string, pos Position) {
	l.Errors = append(l.Errors, &LexerError{
		Kind:    kind,
		Message: msg,
		Pos:     pos,
		File:    l.filename,
	})
}

func newLexer(input string, emitTrivia bool) *Lexer {
	l := &Lexer{
		input:      []rune(input),
		pos:        -1, // start before first rune
		line:       1,
		column:     0, // will be 1 after first read()
		emitTrivia: emitTrivia,
	}
	l.read()
	return l
}

// New creates a new lexer for the given input (comments are skipped)
func New(input string) *Lexer {
	return newLexer(input, false)
}

// NewWithTrivia creates a new lexer that emits COMMENT tokens
func NewWithTrivia(input string) *Lexer {
	return newLexer(input, true)
}

// SetFilename attributes every produced range to name.
func (l *Lexer) SetFilename(name string) {
	l.filename = name
}

// Tokenize lexes the whole input, returning the token sequence terminated by
// EOF or the first lexer error.
func Tokenize(input string, filename string) ([]Token, error) {
	l := New(input)
	l.SetFilename(filename)
	var toks []Token
	for {
		tok := l.NextToken()
		if len(l.Errors) > 0 {
			return nil, l.Errors[0]
		}
		toks = append(toks, tok)
		if tok.Type == EOF {
			return toks, nil
		}
	}
}

// read advances the lexer to the next character. line/column always describe
// the rune at pos.
func (l *Lexer) read() {
	l.pos++
	prevPos := l.pos - 1
	inputLen := len(l.input)

	if prevPos >= 0 && prevPos < inputLen && l.input[prevPos] == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}

	if l.pos >= inputLen {
		l.pos = inputLen
		l.ch = 0
		return
	}
	l.ch = l.input[l.pos]
}

// peek returns the next character without advancing
func (l *Lexer) peek() rune {
	if l.pos+1 >= len(l.input) {
		return 0
	}
	return l.input[l.pos+1]
}

func (l *Lexer) position() Position {
	return Position{Line: l.line, Column: l.column, Offset: l.pos}
}

func (l *Lexer) makeToken(tokType TokenType, start Position, raw, value string) Token {
	return Token{
		Type:  tokType,
		Raw:   raw,
		Value: value,
		Range: Range{
			Filename: l.filename,
			Start:    start,
			End:      l.position(),
		},
	}
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.read()
	}
}

// readComment consumes `# ...` up to the end of the line, or up to and
// including a closing `#` on the same line.
func (l *Lexer) readComment() string {
	start := l.pos
	l.read() // opening '#'
	for l.ch != 0 && l.ch != '\n' {
		if l.ch == '#' {
			l.read()
			break
		}
		l.read()
	}
	return string(l.input[start:l.pos])
}

func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) {
		l.read()
	}
	return string(l.input[start:l.pos])
}

// readNumber reads an integer, or a float when a '.' is followed by a digit.
func (l *Lexer) readNumber() (string, TokenType) {
	start := l.pos
	tokType := INT
	for isDigit(l.ch) {
		l.read()
	}
	if l.ch == '.' && isDigit(l.peek()) {
		tokType = FLOAT
		l.read() // consume '.'
		for isDigit(l.ch) {
			l.read()
		}
	}
	return string(l.input[start:l.pos]), tokType
}

// readOperator applies maximal munch over the operator table.
func (l *Lexer) readOperator() string {
	op := string(l.ch)
	l.read()
	for isOperatorChar(l.ch) && operators[op+string(l.ch)] {
		op += string(l.ch)
		l.read()
	}
	return op
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() Token {
	for {
		l.skipWhitespace()
		start := l.position()

		switch l.ch {
		case 0:
			return l.makeToken(EOF, start, "", "")

		case '#':
			raw := l.readComment()
			if l.emitTrivia {
				return l.makeToken(COMMENT, start, raw, raw)
			}
			continue

		case ';':
			l.read()
			return l.makeToken(EOS, start, ";", ";")

		case '.':
			l.read()
			return l.makeToken(DOT, start, ".", ".")

		case ',':
			l.read()
			return l.makeToken(COMMA, start, ",", ",")

		case '(':
			l.read()
			return l.makeToken(LPAREN, start, "(", "(")

		case ')':
			l.read()
			return l.makeToken(RPAREN, start, ")", ")")

		case '{':
			l.read()
			return l.makeToken(LBRACE, start, "{", "{")

		case '}':
			l.read()
			return l.makeToken(RBRACE, start, "}", "}")

		case '"':
			raw, value, ok := l.readString(start)
			if !ok {
				return l.makeToken(ILLEGAL, start, raw, raw)
			}
			return l.makeToken(STRING, start, raw, value)

		case '\'':
			raw, value, ok := l.readRawString(start)
			if !ok {
				return l.makeToken(ILLEGAL, start, raw, raw)
			}
			return l.makeToken(RSTRING, start, raw, value)

		default:
			switch {
			case isLetter(l.ch):
				literal := l.readIdentifier()
				return l.makeToken(IDENT, start, literal, literal)
			case isDigit(l.ch):
				literal, tokType := l.readNumber()
				return l.makeToken(tokType, start, literal, literal)
			case isOperatorChar(l.ch):
				op := l.readOperator()
				return l.makeToken(OPERATOR, start, op, op)
			default:
				raw := string(l.ch)
				l.read()
				l.addError(ErrInvalidCharacter, fmt.Sprintf("invalid character %q", raw), start)
				return l.makeToken(ILLEGAL, start, raw, raw)
			}
		}
	}
}

func isLetter(ch rune) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch == '_'
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

// readString reads a "..." literal, returning both raw (with escapes) and
// decoded values, along with a flag indicating whether it was terminated.
func (l *Lexer) readString(start Position) (raw string, value string, terminated bool) {
	var decoded []rune
	l.read() // skip opening quote

	for {
		switch l.ch {
		case 0:
			l.addError(ErrUnterminatedString, `found EOF instead of '"'`, start)
			return string(l.input[start.Offset:l.pos]), string(decoded), false
		case '\n':
			l.addError(ErrUnterminatedString, "newline in string literal", start)
			return string(l.input[start.Offset:l.pos]), string(decoded), false
		case '"':
			l.read()
			return string(l.input[start.Offset:l.pos]), string(decoded), true
		case '\\':
			escPos := l.position()
			l.read() // skip '\'
			switch l.ch {
			case 0:
				l.addError(ErrUnterminatedEscape, "reached EOF while lexing an escape sequence", escPos)
				return string(l.input[start.Offset:l.pos]), string(decoded), false
			case 'n':
				decoded = append(decoded, '\n')
			case 't':
				decoded = append(decoded, '\t')
			case 'r':
				decoded = append(decoded, '\r')
			case '0':
				decoded = append(decoded, 0)
			default:
				// \\, \" and unknown escapes keep the escaped rune
				decoded = append(decoded, l.ch)
			}
			l.read()
		default:
			decoded = append(decoded, l.ch)
			l.read()
		}
	}
}

// readRawString reads a '...' literal verbatim; it may span lines.
func (l *Lexer) readRawString(start Position) (raw string, value string, terminated bool) {
	l.read() // skip opening quote
	begin := l.pos
	for l.ch != '\'' {
		if l.ch == 0 {
			l.addError(ErrUnterminatedString, "found EOF instead of \"'\"", start)
			return string(l.input[start.Offset:l.pos]), string(l.input[begin:l.pos]), false
		}
		l.read()
	}
	value = string(l.input[begin:l.pos])
	l.read() // closing quote
	return string(l.input[start.Offset:l.pos]), value, true
}
