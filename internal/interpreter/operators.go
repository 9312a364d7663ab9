package interpreter

import (
	"math"
	"strings"

	"github.com/mim-lang/mim/internal/ast"
	"github.com/mim-lang/mim/internal/diag"
	"github.com/mim-lang/mim/internal/lexer"
	"github.com/mim-lang/mim/internal/runtime"
)

// Precedence returns the binding strength of a binary operator, higher
// binds tighter. Unknown operators return -1.
func Precedence(op string) int {
	switch op {
	case "^":
		return 7
	case "*", "/", "%":
		return 6
	case "+", "-":
		return 5
	case "&", "|":
		return 4
	case "<<", ">>", ">>>":
		return 3
	case "==", "!=", "<", "<=", ">", ">=":
		return 2
	case "&&", "||":
		return 1
	case "=", "+=", "-=", "*=", "/=", "%=", "^=", "&=", "|=", "<<=", ">>=", "~=":
		return 0
	}
	return -1
}

func isAssignment(op string) bool {
	return Precedence(op) == 0
}

// balance turns the parser's right-leaning chain rooted at n into a tree
// ordered by Precedence. Assignments group to the right, everything else
// to the left. Each leaf is kept as is, so it is still evaluated once.
func (in *Interpreter) balance(n *ast.BinaryOp) *ast.BinaryOp {
	if b, ok := in.balanced[n]; ok {
		return b
	}

	var operands []ast.Node
	var ops []string
	var cur ast.Node = n
	for {
		b, ok := cur.(*ast.BinaryOp)
		if !ok {
			operands = append(operands, cur)
			break
		}
		operands = append(operands, b.Lhs)
		ops = append(ops, b.Op)
		cur = b.Rhs
	}

	c := &chain{operands: operands, ops: ops}
	out := c.climb(math.MinInt).(*ast.BinaryOp)
	in.balanced[n] = out
	return out
}

type chain struct {
	operands []ast.Node
	ops      []string
	pos      int
}

// climb builds the subtree whose operators bind at least as tight as floor.
func (c *chain) climb(floor int) ast.Node {
	lhs := c.operands[c.pos]
	for c.pos < len(c.ops) {
		op := c.ops[c.pos]
		prec := Precedence(op)
		if prec < floor {
			break
		}
		c.pos++
		next := prec + 1
		if isAssignment(op) {
			next = prec
		}
		rhs := c.climb(next)
		lhs = ast.NewBinaryOp(lhs, op, rhs, mergeRange(lhs.Range(), rhs.Range()))
	}
	return lhs
}

func mergeRange(a, b lexer.Range) lexer.Range {
	return a.Merge(b)
}

// evalBinary evaluates a balanced tree. Nested binary nodes are already
// balanced and skip the chain lookup.
func (in *Interpreter) evalBinary(n *ast.BinaryOp, scope runtime.Scope) (runtime.Value, error) {
	if isAssignment(n.Op) {
		return in.evalAssignment(n, scope)
	}

	left, err := in.evalOperand(n.Lhs, scope)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case "&&", "||":
		lb, ok := left.(bool)
		if !ok {
			return nil, errorf(n.Lhs.Range(), diag.CodeRuntimeTypeMismatch, "operands of %s operator must be boolean", n.Op)
		}
		if (n.Op == "&&" && !lb) || (n.Op == "||" && lb) {
			return lb, nil
		}
		right, err := in.evalOperand(n.Rhs, scope)
		if err != nil {
			return nil, err
		}
		rb, ok := right.(bool)
		if !ok {
			return nil, errorf(n.Rhs.Range(), diag.CodeRuntimeTypeMismatch, "operands of %s operator must be boolean", n.Op)
		}
		return rb, nil
	}

	right, err := in.evalOperand(n.Rhs, scope)
	if err != nil {
		return nil, err
	}
	v, err := Apply(n.Op, left, right)
	if err != nil {
		return nil, wrap(err, n.Range())
	}
	return v, nil
}

func (in *Interpreter) evalOperand(node ast.Node, scope runtime.Scope) (runtime.Value, error) {
	if b, ok := node.(*ast.BinaryOp); ok {
		v, err := in.evalBinary(b, scope)
		if err != nil {
			return nil, in.attach(err, b)
		}
		return v, nil
	}
	return in.eval(node, scope)
}

// evalAssignment handles `=` and the compound forms. The target is an
// identifier or a member access whose last link is a property.
func (in *Interpreter) evalAssignment(n *ast.BinaryOp, scope runtime.Scope) (runtime.Value, error) {
	var read func() (runtime.Value, error)
	var write func(runtime.Value) error

	switch target := n.Lhs.(type) {
	case *ast.Identifier:
		v, ok := scope.Lookup(target.Name)
		if !ok {
			return nil, unbound(target.Name, target.Range(), scope)
		}
		read, write = v.Value, v.SetValue

	case *ast.MemberAccess:
		last := target.Chain[len(target.Chain)-1]
		if last.Invoke {
			return nil, errorf(n.Range(), diag.CodeRuntimeError, "cannot assign to member invocation")
		}
		v, err := in.resolveChain(target, scope)
		if err != nil {
			return nil, err
		}
		read = func() (runtime.Value, error) { return v.Property(last.Name) }
		write = func(val runtime.Value) error { return v.SetProperty(last.Name, val) }

	default:
		return nil, errorf(n.Lhs.Range(), diag.CodeRuntimeError,
			"left hand side in an assignment must be an identifier or member access")
	}

	value, err := in.evalOperand(n.Rhs, scope)
	if err != nil {
		return nil, err
	}

	if op := strings.TrimSuffix(n.Op, "="); op != "" {
		if op == "~" {
			return nil, errorf(n.Range(), diag.CodeRuntimeUnsupported, "unsupported operator %s", n.Op)
		}
		current, err := read()
		if err != nil {
			return nil, wrap(err, n.Lhs.Range())
		}
		if value, err = Apply(op, current, value); err != nil {
			return nil, wrap(err, n.Range())
		}
	}

	if err := write(value); err != nil {
		return nil, wrap(err, n.Range())
	}
	return value, nil
}

func (in *Interpreter) evalUnary(n *ast.UnaryOp, scope runtime.Scope) (runtime.Value, error) {
	if n.Op == "++" || n.Op == "--" {
		id, ok := n.Operand.(*ast.Identifier)
		if !ok {
			return nil, errorf(n.Range(), diag.CodeRuntimeTypeMismatch, "operand of %s operator must be identifier", n.Op)
		}
		v, ok := scope.Lookup(id.Name)
		if !ok {
			return nil, unbound(id.Name, id.Range(), scope)
		}
		if n.Op == "++" {
			return v.Increment(!n.Prefix)
		}
		return v.Decrement(!n.Prefix)
	}

	operand, err := in.eval(n.Operand, scope)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case "!":
		if b, ok := operand.(bool); ok {
			return !b, nil
		}
		return nil, runtime.TypeErrorf("operand of ! operator must be boolean")
	case "~":
		if i, ok := operand.(int64); ok {
			return ^i, nil
		}
		return nil, runtime.TypeErrorf("operand of ~ operator must be integer")
	case "-":
		switch x := operand.(type) {
		case int64:
			return -x, nil
		case float64:
			return -x, nil
		}
		return nil, runtime.TypeErrorf("operand of - operator must be number")
	}
	return nil, runtime.Errorf(diag.CodeRuntimeUnsupported, "unsupported operator %s", n.Op)
}

// Apply computes a non-assigning, non-short-circuit binary operator.
func Apply(op string, left, right runtime.Value) (runtime.Value, error) {
	switch op {
	case "==":
		return runtime.Equal(left, right), nil
	case "!=":
		return !runtime.Equal(left, right), nil
	case "<", "<=", ">", ">=":
		return compare(op, left, right)
	case "+":
		return add(left, right)
	case "*":
		if s, n, ok := repetition(left, right); ok {
			if n < 0 {
				return nil, runtime.Errorf(diag.CodeRuntimeError, "count must not be negative")
			}
			if n > 0 && int64(len(s)) > int64(math.MaxInt)/n {
				return nil, runtime.Errorf(diag.CodeRuntimeError, "repetition count %d too large", n)
			}
			return strings.Repeat(s, int(n)), nil
		}
		return arithmetic(op, left, right)
	case "-", "/", "%", "^":
		return arithmetic(op, left, right)
	case "&", "|":
		return bitwise(op, left, right)
	case "<<", ">>", ">>>":
		return shift(op, left, right)
	}
	return nil, runtime.Errorf(diag.CodeRuntimeUnsupported, "unsupported operator %s", op)
}

func operandError(op string, left, right runtime.Value) error {
	return runtime.TypeErrorf("unsupported operands for %s operator: %s and %s",
		op, runtime.TypeName(left), runtime.TypeName(right))
}

func add(left, right runtime.Value) (runtime.Value, error) {
	_, ls := left.(string)
	_, rs := right.(string)
	if ls || rs {
		return runtime.Format(left) + runtime.Format(right), nil
	}
	return arithmetic("+", left, right)
}

func repetition(left, right runtime.Value) (string, int64, bool) {
	if s, ok := left.(string); ok {
		n, ok := right.(int64)
		return s, n, ok
	}
	if s, ok := right.(string); ok {
		n, ok := left.(int64)
		return s, n, ok
	}
	return "", 0, false
}

func arithmetic(op string, left, right runtime.Value) (runtime.Value, error) {
	li, lInt := left.(int64)
	ri, rInt := right.(int64)
	if lInt && rInt && op != "^" {
		switch op {
		case "+":
			return li + ri, nil
		case "-":
			return li - ri, nil
		case "*":
			return li * ri, nil
		case "/":
			if ri == 0 {
				return nil, runtime.Errorf(diag.CodeRuntimeError, "division by zero")
			}
			return li / ri, nil
		case "%":
			if ri == 0 {
				return nil, runtime.Errorf(diag.CodeRuntimeError, "modulo by zero")
			}
			return li % ri, nil
		}
	}

	lf, lok := runtime.ToFloat(left)
	rf, rok := runtime.ToFloat(right)
	if !lok || !rok {
		return nil, operandError(op, left, right)
	}
	switch op {
	case "+":
		return lf + rf, nil
	case "-":
		return lf - rf, nil
	case "*":
		return lf * rf, nil
	case "/":
		return lf / rf, nil
	case "%":
		return math.Mod(lf, rf), nil
	case "^":
		return math.Pow(lf, rf), nil
	}
	return nil, runtime.Errorf(diag.CodeRuntimeUnsupported, "unsupported operator %s", op)
}

func compare(op string, left, right runtime.Value) (runtime.Value, error) {
	li, lInt := left.(int64)
	ri, rInt := right.(int64)
	if lInt && rInt {
		switch op {
		case "<":
			return li < ri, nil
		case "<=":
			return li <= ri, nil
		case ">":
			return li > ri, nil
		default:
			return li >= ri, nil
		}
	}

	lf, lok := runtime.ToFloat(left)
	rf, rok := runtime.ToFloat(right)
	if !lok || !rok {
		return nil, operandError(op, left, right)
	}
	switch op {
	case "<":
		return lf < rf, nil
	case "<=":
		return lf <= rf, nil
	case ">":
		return lf > rf, nil
	default:
		return lf >= rf, nil
	}
}

func bitwise(op string, left, right runtime.Value) (runtime.Value, error) {
	switch l := left.(type) {
	case int64:
		if r, ok := right.(int64); ok {
			if op == "&" {
				return l & r, nil
			}
			return l | r, nil
		}
	case bool:
		if r, ok := right.(bool); ok {
			if op == "&" {
				return l && r, nil
			}
			return l || r, nil
		}
	}
	return nil, operandError(op, left, right)
}

func shift(op string, left, right runtime.Value) (runtime.Value, error) {
	l, lok := left.(int64)
	r, rok := right.(int64)
	if !lok || !rok {
		return nil, operandError(op, left, right)
	}
	if r < 0 {
		return nil, runtime.Errorf(diag.CodeRuntimeError, "negative shift count %d", r)
	}
	switch op {
	case "<<":
		return l << r, nil
	case ">>":
		return l >> r, nil
	default:
		return int64(uint64(l) >> r), nil
	}
}
