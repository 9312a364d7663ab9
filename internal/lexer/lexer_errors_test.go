package lexer

import (
	"errors"
	"strings"
	"testing"

	"github.com/mim-lang/mim/internal/diag"
)

func TestLexerErrors_InvalidCharacter(t *testing.T) {
	l := New("a @ b")
	l.NextToken()
	tok := l.NextToken()
	if tok.Type != ILLEGAL {
		t.Fatalf("expected ILLEGAL token, got %q", tok.Type)
	}
	if len(l.Errors) != 1 {
		t.Fatalf("expected 1 lexer error, got %d", len(l.Errors))
	}
	err := l.Errors[0]
	if err.Kind != ErrInvalidCharacter {
		t.Fatalf("expected ErrInvalidCharacter, got %v", err.Kind)
	}
	if err.Message != `invalid character "@"` {
		t.Fatalf("unexpected error message %q", err.Message)
	}
	if err.Pos.Line != 1 || err.Pos.Column != 3 || err.Pos.Offset != 2 {
		t.Fatalf("expected position 1:3 (offset 2), got %d:%d (offset %d)", err.Pos.Line, err.Pos.Column, err.Pos.Offset)
	}
}

func TestLexerErrors_UnterminatedString(t *testing.T) {
	input := `"hello`
	l := New(input)

	tok := l.NextToken()
	if tok.Type != ILLEGAL {
		t.Fatalf("expected ILLEGAL token, got %q", tok.Type)
	}
	if tok.Raw != input {
		t.Fatalf("expected raw token %q, got %q", input, tok.Raw)
	}
	if len(l.Errors) != 1 || l.Errors[0].Kind != ErrUnterminatedString {
		t.Fatalf("expected one ErrUnterminatedString, got %v", l.Errors)
	}
	if l.Errors[0].Pos.Column != 1 {
		t.Fatalf("expected error at column 1, got %d", l.Errors[0].Pos.Column)
	}
}

func TestLexerErrors_NewlineInStringLiteral(t *testing.T) {
	l := New("\"hello\nworld\"")
	l.NextToken()
	if len(l.Errors) == 0 {
		t.Fatalf("expected an error")
	}
	if l.Errors[0].Message != "newline in string literal" {
		t.Fatalf("unexpected error message %q", l.Errors[0].Message)
	}
}

func TestLexerErrors_UnterminatedEscape(t *testing.T) {
	l := New(`"abc\`)
	l.NextToken()
	if len(l.Errors) != 1 {
		t.Fatalf("expected 1 lexer error, got %d", len(l.Errors))
	}
	if l.Errors[0].Kind != ErrUnterminatedEscape {
		t.Fatalf("expected ErrUnterminatedEscape, got %v", l.Errors[0].Kind)
	}
	if l.Errors[0].Pos.Column != 5 {
		t.Fatalf("expected error at the backslash (column 5), got %d", l.Errors[0].Pos.Column)
	}
}

func TestLexerErrors_UnterminatedRawString(t *testing.T) {
	l := New(`'abc`)
	l.NextToken()
	if len(l.Errors) != 1 || l.Errors[0].Kind != ErrUnterminatedString {
		t.Fatalf("expected one ErrUnterminatedString, got %v", l.Errors)
	}
}

func TestTokenizeReturnsFirstError(t *testing.T) {
	_, err := Tokenize("var x = 1;\nvar y = $;", "bad.mim")
	if err == nil {
		t.Fatalf("expected an error")
	}

	var lexErr *LexerError
	if !errors.As(err, &lexErr) {
		t.Fatalf("expected *LexerError, got %T", err)
	}
	if lexErr.Pos.Line != 2 || lexErr.Pos.Column != 9 {
		t.Fatalf("expected error at 2:9, got %d:%d", lexErr.Pos.Line, lexErr.Pos.Column)
	}
	if !strings.HasPrefix(err.Error(), "bad.mim:2:9:") {
		t.Fatalf("expected error to start with the location, got %q", err.Error())
	}
}

func TestLexerError_ToDiagnostic(t *testing.T) {
	err := &LexerError{
		Kind:    ErrInvalidCharacter,
		Message: `invalid character "@"`,
		Pos:     Position{Line: 2, Column: 5, Offset: 4},
	}

	diagnostic := err.ToDiagnostic()

	if diagnostic.Stage != diag.StageLexer {
		t.Fatalf("expected stage %q, got %q", diag.StageLexer, diagnostic.Stage)
	}
	if diagnostic.Severity != diag.SeverityError {
		t.Fatalf("expected severity %q, got %q", diag.SeverityError, diagnostic.Severity)
	}
	if diagnostic.Code != diag.CodeLexerInvalidCharacter {
		t.Fatalf("expected code %q, got %q", diag.CodeLexerInvalidCharacter, diagnostic.Code)
	}

	wantSpan := diag.Span{Line: 2, Column: 5, Start: 4, End: 5}
	if diagnostic.Span != wantSpan {
		t.Fatalf("expected span %+v, got %+v", wantSpan, diagnostic.Span)
	}
}
