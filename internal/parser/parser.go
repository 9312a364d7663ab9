package parser

import (
	"github.com/mim-lang/mim/internal/ast"
	"github.com/mim-lang/mim/internal/lexer"
)

type Option func(*options)

type options struct {
	filename string
}

// WithFilename configures the parser to attribute all emitted ranges to the provided filename.
func WithFilename(name string) Option {
	return func(o *options) {
		o.filename = name
	}
}

// Parser is a backtracking recursive-descent parser. Every expect* probe
// either returns a node, or restores the cursor and returns nil. Committed
// productions raise a *ParseError instead, which Parse recovers.
//
// Invariants:
//   - toks always ends with an EOF token and pos never moves past it.
//   - lo/hi bound the token indexes examined since the current root
//     production started; they size the error range when no root matches.
//   - header is set while parsing an if/while/repeat/for header, where a
//     bare `name {` is not a named block. Parentheses and blocks clear it.
type Parser struct {
	toks []lexer.Token
	pos  int

	lo, hi int

	header bool

	filename string
}

// New returns a parser over tokens. COMMENT tokens are dropped; a missing
// trailing EOF is added.
func New(tokens []lexer.Token, opts ...Option) *Parser {
	cfg := options{}
	for _, opt := range opts {
		opt(&cfg)
	}

	toks := make([]lexer.Token, 0, len(tokens)+1)
	for _, tok := range tokens {
		if tok.Type != lexer.COMMENT {
			toks = append(toks, tok)
		}
	}
	if len(toks) == 0 || toks[len(toks)-1].Type != lexer.EOF {
		var end lexer.Range
		if len(toks) > 0 {
			end = toks[len(toks)-1].Range
			end.Start = end.End
		}
		toks = append(toks, lexer.Token{Type: lexer.EOF, Range: end})
	}

	return &Parser{
		toks:     toks,
		filename: cfg.filename,
	}
}

// Parse turns a token sequence into the program's top-level nodes.
func Parse(tokens []lexer.Token, opts ...Option) ([]ast.Node, error) {
	return New(tokens, opts...).Parse()
}

// ParseString lexes and parses src. Lexer failures are returned as
// *lexer.LexerError, parse failures as *ParseError.
func ParseString(src string, opts ...Option) ([]ast.Node, error) {
	cfg := options{}
	for _, opt := range opts {
		opt(&cfg)
	}
	toks, err := lexer.Tokenize(src, cfg.filename)
	if err != nil {
		return nil, err
	}
	return Parse(toks, opts...)
}

// Parse consumes the whole token sequence.
func (p *Parser) Parse() (nodes []ast.Node, err error) {
	defer p.recover(&err)

	for {
		p.skipEmptyStatements()
		if p.at(lexer.EOF) {
			return nodes, nil
		}
		nodes = append(nodes, p.parseRoot())
	}
}

// parseRoot parses one top-level or block-level production, raising the
// widest-span error when nothing matches.
func (p *Parser) parseRoot() ast.Node {
	outerLo, outerHi := p.lo, p.hi
	p.lo, p.hi = p.pos, p.pos
	n := p.expectRoot()
	if n == nil {
		p.failNoMatch()
	}
	// nested roots (block bodies) widen the enclosing interval
	p.lo, p.hi = min(outerLo, p.lo), max(outerHi, p.hi)
	return n
}

func (p *Parser) skipEmptyStatements() {
	for p.at(lexer.EOS) {
		p.advance()
	}
}

func (p *Parser) peek() lexer.Token {
	if p.pos > p.hi {
		p.hi = p.pos
	}
	return p.toks[p.pos]
}

func (p *Parser) prev() lexer.Token {
	if p.pos == 0 {
		return lexer.Token{}
	}
	return p.toks[p.pos-1]
}

func (p *Parser) advance() lexer.Token {
	tok := p.peek()
	if tok.Type != lexer.EOF {
		p.pos++
	}
	return tok
}

func (p *Parser) mark() int {
	return p.pos
}

func (p *Parser) reset(mark int) {
	p.pos = mark
	if mark < p.lo {
		p.lo = mark
	}
}

func (p *Parser) at(typ lexer.TokenType) bool {
	return p.peek().Type == typ
}

func (p *Parser) atOp(op string) bool {
	tok := p.peek()
	return tok.Type == lexer.OPERATOR && tok.Value == op
}

func (p *Parser) atKeyword(kw string) bool {
	tok := p.peek()
	return tok.Type == lexer.IDENT && tok.Value == kw
}

func (p *Parser) accept(typ lexer.TokenType) (lexer.Token, bool) {
	if !p.at(typ) {
		return lexer.Token{}, false
	}
	return p.advance(), true
}

func (p *Parser) acceptOp(op string) (lexer.Token, bool) {
	if !p.atOp(op) {
		return lexer.Token{}, false
	}
	return p.advance(), true
}

func (p *Parser) acceptKeyword(kw string) (lexer.Token, bool) {
	if !p.atKeyword(kw) {
		return lexer.Token{}, false
	}
	return p.advance(), true
}

// withHeader runs fn with header mode set to on, restoring the previous mode.
func (p *Parser) withHeader(on bool, fn func() ast.Node) ast.Node {
	saved := p.header
	p.header = on
	defer func() { p.header = saved }()
	return fn()
}
