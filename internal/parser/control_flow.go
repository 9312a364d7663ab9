package parser

import (
	"github.com/mim-lang/mim/internal/ast"
	"github.com/mim-lang/mim/internal/lexer"
)

// headerExpr parses a condition or iterable in header mode.
func (p *Parser) headerExpr(after string) ast.Node {
	n := p.withHeader(true, p.expectExpression)
	if n == nil {
		p.failExpected("an expression", after)
	}
	return n
}

// expectIf parses `if c { } (elif c { })* [else { }]`.
func (p *Parser) expectIf() ast.Node {
	kw, ok := p.acceptKeyword("if")
	if !ok {
		return nil
	}

	cond := p.headerExpr("'if'")
	body := p.expectBlock("if condition")
	branches := []ast.CondBranch{{Cond: cond, Body: body}}
	end := body.Range()

	for {
		if _, ok := p.acceptKeyword("elif"); !ok {
			break
		}
		cond := p.headerExpr("'elif'")
		body := p.expectBlock("elif condition")
		branches = append(branches, ast.CondBranch{Cond: cond, Body: body})
		end = body.Range()
	}

	var elseBody *ast.Block
	if _, ok := p.acceptKeyword("else"); ok {
		elseBody = p.expectBlock("'else'")
		end = elseBody.Range()
	}

	return ast.NewIfStmt(branches, elseBody, mergeRange(kw.Range, end))
}

// expectRepeatLoop parses `repeat count [as i] { }`. A `repeat {` is the
// infinite named block and is left to expectNamedBlock.
func (p *Parser) expectRepeatLoop() ast.Node {
	mark := p.mark()
	kw, ok := p.acceptKeyword("repeat")
	if !ok {
		return nil
	}
	if p.at(lexer.LBRACE) {
		p.reset(mark)
		return nil
	}

	count := p.headerExpr("'repeat'")
	index := ""
	if _, ok := p.acceptKeyword("as"); ok {
		index = p.expectName("index name", "'as'").Value
	}
	body := p.expectBlock("repeat count")
	return ast.NewRepeatLoop(count, index, body, rangeOf(kw, body))
}

// expectWhileLoop parses `while cond { }`.
func (p *Parser) expectWhileLoop() ast.Node {
	kw, ok := p.acceptKeyword("while")
	if !ok {
		return nil
	}
	cond := p.headerExpr("'while'")
	body := p.expectBlock("while condition")
	return ast.NewWhileLoop(cond, body, rangeOf(kw, body))
}

// expectDoWhileLoop parses `do { } while cond [;]`.
func (p *Parser) expectDoWhileLoop() ast.Node {
	kw, ok := p.acceptKeyword("do")
	if !ok {
		return nil
	}
	body := p.expectBlock("'do'")
	if _, ok := p.acceptKeyword("while"); !ok {
		p.failExpected("'while'", "do block")
	}
	cond := p.headerExpr("'while'")
	rng := rangeOf(kw, cond)
	if tok, ok := p.accept(lexer.EOS); ok {
		rng = mergeRange(rng, tok.Range)
	}
	return ast.NewDoWhileLoop(body, cond, rng)
}

// expectForLoop parses `for v in it { }` and `for k, v in it { }`.
func (p *Parser) expectForLoop() ast.Node {
	kw, ok := p.acceptKeyword("for")
	if !ok {
		return nil
	}

	key := ""
	value := p.expectName("loop variable", "'for'").Value
	if _, ok := p.accept(lexer.COMMA); ok {
		key = value
		value = p.expectName("value variable", "','").Value
	}
	if _, ok := p.acceptKeyword("in"); !ok {
		p.failExpected("'in'", "loop variables")
	}
	iterable := p.headerExpr("'in'")
	body := p.expectBlock("for header")
	return ast.NewForLoop(key, value, iterable, body, rangeOf(kw, body))
}

// expectWhen parses `when (x) [cmp] { case ... { } default { } }`.
func (p *Parser) expectWhen() ast.Node {
	kw, ok := p.acceptKeyword("when")
	if !ok {
		return nil
	}

	operand := p.expectParen()
	if operand == nil {
		p.failExpected("'(' operand ')'", "'when'")
	}
	comparator := ""
	if tok := p.peek(); tok.Type == lexer.OPERATOR && comparators[tok.Value] {
		comparator = p.advance().Value
	}
	if _, ok := p.accept(lexer.LBRACE); !ok {
		p.failExpected("'{'", "when operand")
	}

	saved := p.header
	p.header = false
	defer func() { p.header = saved }()

	var cases []*ast.FullCase
	var def *ast.Block
	for {
		if closeTok, ok := p.accept(lexer.RBRACE); ok {
			return ast.NewWhenExpr(operand, comparator, cases, def, mergeRange(kw.Range, closeTok.Range))
		}
		if def != nil {
			p.failExpected("'}'", "default case")
		}
		if _, ok := p.acceptKeyword("default"); ok {
			def = p.expectBlock("'default'")
			continue
		}
		caseKw, ok := p.acceptKeyword("case")
		if !ok {
			p.failExpected("'case', 'default' or '}'", "when case")
		}
		cond := p.expectCaseOr()
		body := p.expectBlock("case condition")
		cases = append(cases, ast.NewFullCase(cond, body, rangeOf(caseKw, body)))
	}
}

func (p *Parser) expectCaseOr() *ast.CaseOrGroup {
	groups := []*ast.CaseAndGroup{p.expectCaseAnd()}
	for {
		if _, ok := p.acceptOp("||"); !ok {
			break
		}
		groups = append(groups, p.expectCaseAnd())
	}
	rng := mergeRange(groups[0].Range(), groups[len(groups)-1].Range())
	return ast.NewCaseOrGroup(groups, rng)
}

func (p *Parser) expectCaseAnd() *ast.CaseAndGroup {
	cases := []*ast.Case{p.expectCase()}
	for {
		if _, ok := p.acceptOp("&&"); !ok {
			break
		}
		cases = append(cases, p.expectCase())
	}
	rng := mergeRange(cases[0].Range(), cases[len(cases)-1].Range())
	return ast.NewCaseAndGroup(cases, rng)
}

func (p *Parser) expectCase() *ast.Case {
	start := p.peek()
	comparator := ""
	if start.Type == lexer.OPERATOR && comparators[start.Value] {
		comparator = p.advance().Value
	}
	operand := p.expectParen()
	if operand == nil {
		p.failExpected("'(' value ')'", "case")
	}
	return ast.NewCase(comparator, operand, rangeOf(start, operand))
}
