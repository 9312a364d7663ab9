package parser

import (
	"github.com/mim-lang/mim/internal/ast"
	"github.com/mim-lang/mim/internal/lexer"
)

// expectRoot tries the root alternatives in order; the first match wins.
func (p *Parser) expectRoot() ast.Node {
	probes := []func() ast.Node{
		p.expectFuncDecl,
		p.expectVarDecl,
		p.expectIf,
		p.expectRepeatLoop,
		p.expectWhileLoop,
		p.expectDoWhileLoop,
		p.expectForLoop,
		p.expectStatement,
	}
	for _, probe := range probes {
		if n := probe(); n != nil {
			return n
		}
	}
	return nil
}

// expectStatement parses `expr ;`. The `;` may be left out after an
// expression ending in `}` and before the `}` closing a block or EOF; the
// bare expression is returned in that case.
func (p *Parser) expectStatement() ast.Node {
	mark := p.mark()
	expr := p.expectExpression()
	if expr == nil {
		p.reset(mark)
		return nil
	}
	if tok, ok := p.accept(lexer.EOS); ok {
		return ast.NewStatement(expr, mergeRange(expr.Range(), tok.Range))
	}
	if p.prev().Type == lexer.RBRACE || p.at(lexer.RBRACE) || p.at(lexer.EOF) {
		return expr
	}
	p.reset(mark)
	return nil
}

// expectVarDecl parses `var name [= expr];` and `val name [= expr];`.
func (p *Parser) expectVarDecl() ast.Node {
	kw, ok := p.acceptKeyword("var")
	isConst := false
	if !ok {
		if kw, ok = p.acceptKeyword("val"); !ok {
			return nil
		}
		isConst = true
	}

	name := p.expectName("variable name", "'"+kw.Value+"'")

	var init ast.Node
	if _, ok := p.acceptOp("="); ok {
		if init = p.expectExpression(); init == nil {
			p.failExpected("an initializer", "'='")
		}
	}

	end, ok := p.accept(lexer.EOS)
	if !ok {
		p.failExpected("';'", "variable declaration")
	}
	return ast.NewVarDecl(name.Value, init, isConst, mergeRange(kw.Range, end.Range))
}

// expectFuncDecl parses `func name [(params)] { body }`. `func {` is left to
// the named block production.
func (p *Parser) expectFuncDecl() ast.Node {
	mark := p.mark()
	kw, ok := p.acceptKeyword("func")
	if !ok {
		return nil
	}
	if !p.at(lexer.IDENT) {
		p.reset(mark)
		return nil
	}
	name := p.expectName("function name", "'func'")

	var params []string
	if _, ok := p.accept(lexer.LPAREN); ok {
		for !p.at(lexer.RPAREN) {
			if len(params) > 0 {
				if _, ok := p.accept(lexer.COMMA); !ok {
					p.failExpected("',' or ')'", "parameter")
				}
			}
			params = append(params, p.expectName("parameter name", "'('").Value)
		}
		p.advance() // ')'
	}

	body := p.expectBlock("function signature")
	return ast.NewFuncDecl(name.Value, params, body.Nodes, rangeOf(kw, body))
}

// expectName consumes a non-keyword identifier or fails.
func (p *Parser) expectName(what, after string) lexer.Token {
	tok := p.peek()
	if tok.Type != lexer.IDENT || lexer.IsKeyword(tok.Value) {
		p.failExpected(what, after)
	}
	return p.advance()
}

// expectBlock parses `{ root* }`. Blocks are committed: a body item that
// does not parse is reported right away.
func (p *Parser) expectBlock(after string) *ast.Block {
	open, ok := p.accept(lexer.LBRACE)
	if !ok {
		p.failExpected("'{'", after)
	}
	return p.blockBody(open)
}

func (p *Parser) blockBody(open lexer.Token) *ast.Block {
	saved := p.header
	p.header = false
	defer func() { p.header = saved }()

	var nodes []ast.Node
	for {
		p.skipEmptyStatements()
		if p.at(lexer.EOF) {
			p.failExpected("'}'", "block")
		}
		if closeTok, ok := p.accept(lexer.RBRACE); ok {
			return ast.NewBlock(nodes, mergeRange(open.Range, closeTok.Range))
		}
		nodes = append(nodes, p.parseRoot())
	}
}
