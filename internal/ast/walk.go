package ast

// Walk traverses the AST starting from node, calling fn for each node.
// If fn returns false, Walk stops traversing that branch.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}

	switch n := node.(type) {
	case *ParenExpr:
		Walk(n.Inner, fn)

	case *UnaryOp:
		Walk(n.Operand, fn)

	case *BinaryOp:
		Walk(n.Lhs, fn)
		Walk(n.Rhs, fn)

	case *Statement:
		Walk(n.Inner, fn)

	case *VarDecl:
		if n.Init != nil {
			Walk(n.Init, fn)
		}

	case *FuncDecl:
		walkList(n.Body, fn)

	case *FuncCall:
		walkList(n.Args, fn)

	case *Accessor:
		walkList(n.Args, fn)

	case *MemberAccess:
		for _, acc := range n.Chain {
			Walk(acc, fn)
		}

	case *IfStmt:
		for _, br := range n.Branches {
			Walk(br.Cond, fn)
			Walk(br.Body, fn)
		}
		if n.Else != nil {
			Walk(n.Else, fn)
		}

	case *RepeatLoop:
		Walk(n.Count, fn)
		Walk(n.Body, fn)

	case *WhileLoop:
		Walk(n.Cond, fn)
		Walk(n.Body, fn)

	case *DoWhileLoop:
		Walk(n.Body, fn)
		Walk(n.Cond, fn)

	case *ForLoop:
		Walk(n.Iterable, fn)
		Walk(n.Body, fn)

	case *Block:
		walkList(n.Nodes, fn)

	case *NamedBlock:
		Walk(n.Body, fn)

	case *WhenExpr:
		Walk(n.Operand, fn)
		for _, c := range n.Cases {
			Walk(c, fn)
		}
		if n.Default != nil {
			Walk(n.Default, fn)
		}

	case *FullCase:
		Walk(n.Cond, fn)
		Walk(n.Body, fn)

	case *CaseOrGroup:
		for _, g := range n.Groups {
			Walk(g, fn)
		}

	case *CaseAndGroup:
		for _, c := range n.Cases {
			Walk(c, fn)
		}

	case *Case:
		Walk(n.Operand, fn)
	}
}

func walkList(nodes []Node, fn func(Node) bool) {
	for _, n := range nodes {
		Walk(n, fn)
	}
}
