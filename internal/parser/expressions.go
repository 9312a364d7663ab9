package parser

import (
	"fmt"
	"strconv"

	"github.com/mim-lang/mim/internal/ast"
	"github.com/mim-lang/mim/internal/diag"
	"github.com/mim-lang/mim/internal/lexer"
)

// expectExpression parses `operand [binop expression]`. Chains lean right
// regardless of precedence; the interpreter rotates them.
func (p *Parser) expectExpression() ast.Node {
	lhs := p.expectOperand()
	if lhs == nil {
		return nil
	}

	mark := p.mark()
	tok := p.peek()
	if tok.Type != lexer.OPERATOR || !binaryOperators[tok.Value] {
		return lhs
	}
	p.advance()

	rhs := p.expectExpression()
	if rhs == nil {
		p.reset(mark)
		return lhs
	}
	return ast.NewBinaryOp(lhs, tok.Value, rhs, mergeRange(lhs.Range(), rhs.Range()))
}

// expectOperand parses anything but a fresh binary operation.
func (p *Parser) expectOperand() ast.Node {
	if n := p.expectPrefixUnary(); n != nil {
		return n
	}
	return p.expectPostfixUnary()
}

func (p *Parser) expectPrefixUnary() ast.Node {
	mark := p.mark()
	tok := p.peek()
	if tok.Type != lexer.OPERATOR || !prefixOperators[tok.Value] {
		return nil
	}
	p.advance()

	operand := p.expectOperand()
	if operand == nil {
		p.reset(mark)
		return nil
	}
	return ast.NewUnaryOp(tok.Value, operand, true, rangeOf(tok, operand))
}

// expectPostfixUnary parses a primary with an optional trailing `++`/`--`.
func (p *Parser) expectPostfixUnary() ast.Node {
	prim := p.expectPrimary()
	if prim == nil {
		return nil
	}
	tok := p.peek()
	if tok.Type == lexer.OPERATOR && (tok.Value == "++" || tok.Value == "--") {
		p.advance()
		return ast.NewUnaryOp(tok.Value, prim, false, mergeRange(prim.Range(), tok.Range))
	}
	return prim
}

func (p *Parser) expectPrimary() ast.Node {
	probes := []func() ast.Node{
		p.expectNumber,
		p.expectString,
		p.expectParenNode,
		p.expectWhen,
		p.expectIf,
		p.expectNamedBlock,
		p.expectMemberAccess,
		p.expectCall,
		p.expectIdentifier,
	}
	for _, probe := range probes {
		if n := probe(); n != nil {
			return n
		}
	}
	return nil
}

func (p *Parser) expectNumber() ast.Node {
	tok := p.peek()
	switch tok.Type {
	case lexer.INT:
		p.advance()
		v, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			p.fail(fmt.Sprintf("integer literal %s out of range", tok.Value), tok.Range, diag.CodeParseExpected, "")
		}
		return ast.NewIntLiteral(tok.Value, v, tok.Range)
	case lexer.FLOAT:
		p.advance()
		v, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			p.fail(fmt.Sprintf("invalid float literal %s", tok.Value), tok.Range, diag.CodeParseExpected, "")
		}
		return ast.NewFloatLiteral(tok.Value, v, tok.Range)
	}
	return nil
}

func (p *Parser) expectString() ast.Node {
	tok := p.peek()
	switch tok.Type {
	case lexer.STRING:
		p.advance()
		return ast.NewStringLiteral(tok.Value, false, tok.Range)
	case lexer.RSTRING:
		p.advance()
		return ast.NewStringLiteral(tok.Value, true, tok.Range)
	}
	return nil
}

func (p *Parser) expectIdentifier() ast.Node {
	tok := p.peek()
	if tok.Type != lexer.IDENT || lexer.IsKeyword(tok.Value) {
		return nil
	}
	p.advance()
	return ast.NewIdentifier(tok.Value, tok.Range)
}

func (p *Parser) expectParenNode() ast.Node {
	if n := p.expectParen(); n != nil {
		return n
	}
	return nil
}

// expectParen parses `( expression )`.
func (p *Parser) expectParen() *ast.ParenExpr {
	mark := p.mark()
	open, ok := p.accept(lexer.LPAREN)
	if !ok {
		return nil
	}
	inner := p.withHeader(false, p.expectExpression)
	if inner == nil {
		p.reset(mark)
		return nil
	}
	closeTok, ok := p.accept(lexer.RPAREN)
	if !ok {
		p.reset(mark)
		return nil
	}
	return ast.NewParenExpr(inner, mergeRange(open.Range, closeTok.Range))
}

// expectArgs parses `( [expr (, expr)*] )`, returning the closing token.
func (p *Parser) expectArgs() ([]ast.Node, lexer.Token, bool) {
	mark := p.mark()
	if _, ok := p.accept(lexer.LPAREN); !ok {
		return nil, lexer.Token{}, false
	}

	saved := p.header
	p.header = false
	defer func() { p.header = saved }()

	var args []ast.Node
	for {
		if closeTok, ok := p.accept(lexer.RPAREN); ok {
			return args, closeTok, true
		}
		if len(args) > 0 {
			if _, ok := p.accept(lexer.COMMA); !ok {
				p.reset(mark)
				return nil, lexer.Token{}, false
			}
		}
		arg := p.expectExpression()
		if arg == nil {
			p.reset(mark)
			return nil, lexer.Token{}, false
		}
		args = append(args, arg)
	}
}

// expectCall parses `name(args)`.
func (p *Parser) expectCall() ast.Node {
	mark := p.mark()
	name := p.peek()
	if name.Type != lexer.IDENT || lexer.IsKeyword(name.Value) {
		return nil
	}
	p.advance()

	args, closeTok, ok := p.expectArgs()
	if !ok {
		p.reset(mark)
		return nil
	}
	return ast.NewFuncCall(name.Value, args, mergeRange(name.Range, closeTok.Range))
}

// expectMemberAccess parses `base(.name[(args)])+`.
func (p *Parser) expectMemberAccess() ast.Node {
	mark := p.mark()
	base := p.peek()
	if base.Type != lexer.IDENT || lexer.IsKeyword(base.Value) {
		return nil
	}
	p.advance()

	var chain []*ast.Accessor
	for p.at(lexer.DOT) {
		linkMark := p.mark()
		dot := p.advance()
		name, ok := p.accept(lexer.IDENT)
		if !ok {
			p.reset(linkMark)
			break
		}
		acc := ast.NewAccessor(name.Value, nil, false, mergeRange(dot.Range, name.Range))
		if p.at(lexer.LPAREN) {
			args, closeTok, ok := p.expectArgs()
			if !ok {
				p.reset(linkMark)
				break
			}
			acc = ast.NewAccessor(name.Value, args, true, mergeRange(dot.Range, closeTok.Range))
		}
		chain = append(chain, acc)
	}

	if len(chain) == 0 {
		p.reset(mark)
		return nil
	}
	return ast.NewMemberAccess(base.Value, chain, mergeRange(base.Range, chain[len(chain)-1].Range()))
}

// expectNamedBlock parses `name { ... }`. Not available in header mode.
func (p *Parser) expectNamedBlock() ast.Node {
	if p.header {
		return nil
	}
	mark := p.mark()
	name := p.peek()
	if name.Type != lexer.IDENT || (lexer.IsKeyword(name.Value) && !blockNames[name.Value]) {
		return nil
	}
	p.advance()

	open, ok := p.accept(lexer.LBRACE)
	if !ok {
		p.reset(mark)
		return nil
	}
	body := p.blockBody(open)
	return ast.NewNamedBlock(name.Value, body, rangeOf(name, body))
}
