package ast

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes an indented tree of nodes with their ranges.
func Dump(w io.Writer, nodes []Node) {
	for _, n := range nodes {
		dump(w, n, 0)
	}
}

func dump(w io.Writer, node Node, depth int) {
	r := node.Range()
	fmt.Fprintf(w, "%s%s [%d:%d-%d:%d]\n", strings.Repeat("  ", depth), Label(node),
		r.Start.Line, r.Start.Column, r.End.Line, r.End.Column)

	first := true
	Walk(node, func(child Node) bool {
		if first {
			first = false
			return true
		}
		dump(w, child, depth+1)
		return false
	})
}

// Label names a node the way Dump prints it.
func Label(node Node) string {
	switch n := node.(type) {
	case *NumberLiteral:
		if n.IsFloat {
			return "Float " + n.Raw
		}
		return "Int " + n.Raw
	case *StringLiteral:
		if n.IsRaw {
			return "RawString " + Quote(n.Text)
		}
		return "String " + Quote(n.Text)
	case *Identifier:
		return "Identifier " + n.Name
	case *ParenExpr:
		return "Paren"
	case *UnaryOp:
		if n.Prefix {
			return "Unary prefix " + n.Op
		}
		return "Unary postfix " + n.Op
	case *BinaryOp:
		return "Binary " + n.Op
	case *Statement:
		return "Statement"
	case *VarDecl:
		if n.Const {
			return "Val " + n.Name
		}
		return "Var " + n.Name
	case *FuncDecl:
		return fmt.Sprintf("Func %s(%s)", n.Name, strings.Join(n.Params, ", "))
	case *FuncCall:
		return "Call " + n.Name
	case *Accessor:
		if n.Invoke {
			return "Invoke ." + n.Name
		}
		return "Property ." + n.Name
	case *MemberAccess:
		return "Member " + n.Base
	case *IfStmt:
		if n.Else != nil {
			return fmt.Sprintf("If (%d branches, else)", len(n.Branches))
		}
		return fmt.Sprintf("If (%d branches)", len(n.Branches))
	case *RepeatLoop:
		if n.Index != "" {
			return "Repeat as " + n.Index
		}
		return "Repeat"
	case *WhileLoop:
		return "While"
	case *DoWhileLoop:
		return "DoWhile"
	case *ForLoop:
		if n.Key != "" {
			return fmt.Sprintf("For %s, %s", n.Key, n.Value)
		}
		return "For " + n.Value
	case *Block:
		return "Block"
	case *NamedBlock:
		return "NamedBlock " + n.Name
	case *WhenExpr:
		if n.Comparator != "" {
			return "When " + n.Comparator
		}
		return "When"
	case *FullCase:
		return "Case"
	case *CaseOrGroup:
		return "Or"
	case *CaseAndGroup:
		return "And"
	case *Case:
		if n.Comparator != "" {
			return "Cond " + n.Comparator
		}
		return "Cond"
	}
	return fmt.Sprintf("%T", node)
}
