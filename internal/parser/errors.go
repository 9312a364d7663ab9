package parser

import (
	"fmt"

	"github.com/mim-lang/mim/internal/diag"
	"github.com/mim-lang/mim/internal/lexer"
)

// ParseError aborts the parse. Range always points at the offending source.
type ParseError struct {
	Message  string
	Range    lexer.Range
	Severity diag.Severity
	Code     diag.Code
	Help     string
}

func (e *ParseError) Error() string {
	r := e.Range
	if r.Filename != "" {
		return fmt.Sprintf("%s:%d:%d: %s", r.Filename, r.Start.Line, r.Start.Column, e.Message)
	}
	return fmt.Sprintf("%d:%d: %s", r.Start.Line, r.Start.Column, e.Message)
}

// ToDiagnostic converts a parse error into a shared diagnostic structure.
func (e *ParseError) ToDiagnostic() diag.Diagnostic {
	d := diag.Diagnostic{
		Stage:    diag.StageParser,
		Severity: e.Severity,
		Code:     e.Code,
		Message:  e.Message,
		Span:     SpanOf(e.Range),
		Help:     e.Help,
	}
	if d.Severity == "" {
		d.Severity = diag.SeverityError
	}
	return d
}

// SpanOf converts a range into a diagnostic span. A range covering several
// lines underlines to the end of its first line.
func SpanOf(r lexer.Range) diag.Span {
	return diag.Span{
		Filename: r.Filename,
		Line:     r.Start.Line,
		Column:   r.Start.Column,
		Start:    r.Start.Offset,
		End:      r.End.Offset,
	}
}

// bailout carries a *ParseError through panic so committed productions can
// abort from any depth.
type bailout struct {
	err *ParseError
}

func (p *Parser) recover(errp *error) {
	if r := recover(); r != nil {
		b, ok := r.(bailout)
		if !ok {
			panic(r)
		}
		*errp = b.err
	}
}

func (p *Parser) fail(msg string, rng lexer.Range, code diag.Code, help string) {
	if rng.Filename == "" {
		rng.Filename = p.filename
	}
	panic(bailout{&ParseError{
		Message:  msg,
		Range:    rng,
		Severity: diag.SeverityError,
		Code:     code,
		Help:     help,
	}})
}

func describe(tok lexer.Token) string {
	if tok.Type == lexer.EOF {
		return "end of input"
	}
	return "`" + tok.Raw + "`"
}

// failExpected reports a missing follow-up inside a committed production.
func (p *Parser) failExpected(expected, after string) {
	found := p.peek()
	msg := fmt.Sprintf("expected %s after %s, found %s", expected, after, describe(found))
	help := fmt.Sprintf("expected %s here", expected)
	if found.Type == lexer.EOF {
		help += "; this might be a missing `}` or an incomplete expression"
	}
	p.fail(msg, found.Range, diag.CodeParseExpected, help)
}

// failNoMatch reports the widest token interval examined by the failed
// root production.
func (p *Parser) failNoMatch() {
	lo, hi := p.lo, p.hi
	if hi >= len(p.toks) {
		hi = len(p.toks) - 1
	}
	rng := p.toks[lo].Range.Merge(p.toks[hi].Range)
	p.fail(
		fmt.Sprintf("couldn't parse statement starting at %s", describe(p.toks[lo])),
		rng,
		diag.CodeParseNoMatch,
		fmt.Sprintf("parsing gave up at %s", describe(p.toks[hi])),
	)
}
