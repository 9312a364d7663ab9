package ast

import (
	"strings"
)

const indentUnit = "    "

// Format renders nodes back to source text. Parsing the output yields a tree
// that evaluates to the same values as the input.
func Format(nodes []Node) string {
	p := &printer{}
	for i, n := range nodes {
		if i > 0 {
			p.sb.WriteByte('\n')
		}
		p.node(n)
	}
	if len(nodes) > 0 {
		p.sb.WriteByte('\n')
	}
	return p.sb.String()
}

// FormatNode renders a single node.
func FormatNode(n Node) string {
	p := &printer{}
	p.node(n)
	return p.sb.String()
}

type printer struct {
	sb     strings.Builder
	indent int
}

func (p *printer) write(s string) { p.sb.WriteString(s) }

func (p *printer) newline() {
	p.sb.WriteByte('\n')
	p.write(strings.Repeat(indentUnit, p.indent))
}

func (p *printer) list(nodes []Node) {
	for i, n := range nodes {
		if i > 0 {
			p.write(", ")
		}
		p.node(n)
	}
}

func (p *printer) block(b *Block) {
	if b == nil || len(b.Nodes) == 0 {
		p.write("{ }")
		return
	}
	p.write("{")
	p.indent++
	for _, n := range b.Nodes {
		p.newline()
		p.node(n)
	}
	p.indent--
	p.newline()
	p.write("}")
}

func (p *printer) node(node Node) {
	switch n := node.(type) {
	case *NumberLiteral:
		p.write(n.Raw)

	case *StringLiteral:
		if n.IsRaw && !strings.Contains(n.Text, "'") {
			p.write("'" + n.Text + "'")
		} else {
			p.write(Quote(n.Text))
		}

	case *Identifier:
		p.write(n.Name)

	case *ParenExpr:
		p.write("(")
		p.node(n.Inner)
		p.write(")")

	case *UnaryOp:
		if !n.Prefix {
			p.node(n.Operand)
			p.write(n.Op)
			return
		}
		p.write(n.Op)
		// keep `- -x` from lexing as `--x`
		if inner, ok := n.Operand.(*UnaryOp); ok && inner.Prefix {
			p.write(" ")
		}
		p.node(n.Operand)

	case *BinaryOp:
		if _, ok := n.Lhs.(*BinaryOp); ok {
			p.write("(")
			p.node(n.Lhs)
			p.write(")")
		} else {
			p.node(n.Lhs)
		}
		p.write(" " + n.Op + " ")
		p.node(n.Rhs)

	case *Statement:
		p.node(n.Inner)
		p.write(";")

	case *VarDecl:
		if n.Const {
			p.write("val ")
		} else {
			p.write("var ")
		}
		p.write(n.Name)
		if n.Init != nil {
			p.write(" = ")
			p.node(n.Init)
		}
		p.write(";")

	case *FuncDecl:
		p.write("func " + n.Name + "(" + strings.Join(n.Params, ", ") + ") ")
		p.block(&Block{Nodes: n.Body})

	case *FuncCall:
		p.write(n.Name + "(")
		p.list(n.Args)
		p.write(")")

	case *MemberAccess:
		p.write(n.Base)
		for _, acc := range n.Chain {
			p.write("." + acc.Name)
			if acc.Invoke {
				p.write("(")
				p.list(acc.Args)
				p.write(")")
			}
		}

	case *IfStmt:
		for i, br := range n.Branches {
			if i == 0 {
				p.write("if ")
			} else {
				p.write(" elif ")
			}
			p.node(br.Cond)
			p.write(" ")
			p.block(br.Body)
		}
		if n.Else != nil {
			p.write(" else ")
			p.block(n.Else)
		}

	case *RepeatLoop:
		p.write("repeat ")
		p.node(n.Count)
		if n.Index != "" {
			p.write(" as " + n.Index)
		}
		p.write(" ")
		p.block(n.Body)

	case *WhileLoop:
		p.write("while ")
		p.node(n.Cond)
		p.write(" ")
		p.block(n.Body)

	case *DoWhileLoop:
		p.write("do ")
		p.block(n.Body)
		p.write(" while ")
		p.node(n.Cond)
		p.write(";")

	case *ForLoop:
		p.write("for ")
		if n.Key != "" {
			p.write(n.Key + ", ")
		}
		p.write(n.Value + " in ")
		p.node(n.Iterable)
		p.write(" ")
		p.block(n.Body)

	case *Block:
		p.block(n)

	case *NamedBlock:
		p.write(n.Name + " ")
		p.block(n.Body)

	case *WhenExpr:
		p.write("when ")
		p.node(n.Operand)
		if n.Comparator != "" {
			p.write(" " + n.Comparator)
		}
		p.write(" {")
		p.indent++
		for _, c := range n.Cases {
			p.newline()
			p.node(c)
		}
		if n.Default != nil {
			p.newline()
			p.write("default ")
			p.block(n.Default)
		}
		p.indent--
		p.newline()
		p.write("}")

	case *FullCase:
		p.write("case ")
		p.node(n.Cond)
		p.write(" ")
		p.block(n.Body)

	case *CaseOrGroup:
		for i, g := range n.Groups {
			if i > 0 {
				p.write(" || ")
			}
			p.node(g)
		}

	case *CaseAndGroup:
		for i, c := range n.Cases {
			if i > 0 {
				p.write(" && ")
			}
			p.node(c)
		}

	case *Case:
		if n.Comparator != "" {
			p.write(n.Comparator + " ")
		}
		p.node(n.Operand)
	}
}

// Quote renders s as a "..." literal using the escapes the lexer decodes.
func Quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		case 0:
			sb.WriteString(`\0`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
