package interpreter

import (
	"fmt"
	"slices"

	"github.com/mim-lang/mim/internal/ast"
	"github.com/mim-lang/mim/internal/diag"
	"github.com/mim-lang/mim/internal/runtime"
)

// catch is the catch point of a loop. stop ends the loop; a non-nil err
// leaves it, either a failure or a signal meant for an outer loop.
func (in *Interpreter) catch(err error) (stop bool, out error) {
	sig, ok := err.(*runtime.ControlSignal)
	if !ok {
		return true, err
	}
	next, absorbed := sig.Absorb()
	if !absorbed {
		return true, next
	}
	in.clearSignal()
	return sig.Kind == runtime.Break, nil
}

func (in *Interpreter) condition(node ast.Node, scope runtime.Scope, what string) (bool, error) {
	v, err := in.eval(node, scope)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, errorf(node.Range(), diag.CodeRuntimeTypeMismatch,
			"%s must be boolean, got %s", what, runtime.TypeName(v))
	}
	return b, nil
}

func (in *Interpreter) evalIf(n *ast.IfStmt, scope runtime.Scope) (runtime.Value, error) {
	for i, br := range n.Branches {
		what := "if condition"
		if i > 0 {
			what = "elif condition"
		}
		ok, err := in.condition(br.Cond, scope, what)
		if err != nil {
			return nil, err
		}
		if ok {
			return in.evalBody(br.Body.Nodes, scope, what, nil)
		}
	}
	if n.Else != nil {
		return in.evalBody(n.Else.Nodes, scope, "else", nil)
	}
	return nil, nil
}

func (in *Interpreter) evalRepeat(n *ast.RepeatLoop, scope runtime.Scope) (runtime.Value, error) {
	v, err := in.eval(n.Count, scope)
	if err != nil {
		return nil, err
	}
	count, ok := v.(int64)
	if !ok {
		return nil, errorf(n.Count.Range(), diag.CodeRuntimeTypeMismatch,
			"repeat count must be integer value, got %s", runtime.TypeName(v))
	}

	for i := int64(1); i <= count; i++ {
		var bind func(runtime.Scope) error
		if n.Index != "" {
			bind = func(s runtime.Scope) error {
				return s.Declare(runtime.NewValueVariable(n.Index, i, true))
			}
		}
		_, err := in.evalBody(n.Body.Nodes, scope, fmt.Sprintf("repeat:%d", i), bind)
		if err == nil {
			continue
		}
		if stop, err := in.catch(err); stop || err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func (in *Interpreter) evalWhile(n *ast.WhileLoop, scope runtime.Scope) (runtime.Value, error) {
	for {
		ok, err := in.condition(n.Cond, scope, "condition of while loop")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		if _, err := in.evalBody(n.Body.Nodes, scope, "while", nil); err != nil {
			if stop, err := in.catch(err); stop || err != nil {
				return nil, err
			}
		}
	}
}

func (in *Interpreter) evalDoWhile(n *ast.DoWhileLoop, scope runtime.Scope) (runtime.Value, error) {
	for {
		if _, err := in.evalBody(n.Body.Nodes, scope, "do-while", nil); err != nil {
			if stop, err := in.catch(err); stop || err != nil {
				return nil, err
			}
		}
		ok, err := in.condition(n.Cond, scope, "condition of do-while loop")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
	}
}

// evalFor iterates a snapshot of the iterable, so the body may mutate it.
func (in *Interpreter) evalFor(n *ast.ForLoop, scope runtime.Scope) (runtime.Value, error) {
	v, err := in.eval(n.Iterable, scope)
	if err != nil {
		return nil, err
	}

	type pair struct {
		key   runtime.Value
		value runtime.Value
	}
	var items []pair

	if n.Key == "" {
		switch it := v.(type) {
		case *runtime.List:
			for _, item := range it.Items {
				items = append(items, pair{value: item})
			}
		case string:
			for _, r := range it {
				items = append(items, pair{value: string(r)})
			}
		default:
			return nil, errorf(n.Iterable.Range(), diag.CodeRuntimeTypeMismatch,
				"only lists and strings are allowed in value based for loop, got %s", runtime.TypeName(v))
		}
	} else {
		m, ok := v.(*runtime.Map)
		if !ok {
			return nil, errorf(n.Iterable.Range(), diag.CodeRuntimeTypeMismatch,
				"only maps are allowed in key-value based for loop, got %s", runtime.TypeName(v))
		}
		for _, k := range slices.Clone(m.Keys) {
			items = append(items, pair{key: k, value: m.Entries[k]})
		}
	}

	for _, item := range items {
		bind := func(s runtime.Scope) error {
			if n.Key != "" {
				if err := s.Declare(runtime.NewValueVariable(n.Key, item.key, true)); err != nil {
					return err
				}
			}
			return s.Declare(runtime.NewValueVariable(n.Value, item.value, true))
		}
		if _, err := in.evalBody(n.Body.Nodes, scope, "for", bind); err != nil {
			if stop, err := in.catch(err); stop || err != nil {
				return nil, err
			}
		}
	}
	return nil, nil
}

// evalWhen evaluates the operand once, then tries each case in order.
func (in *Interpreter) evalWhen(n *ast.WhenExpr, scope runtime.Scope) (runtime.Value, error) {
	operand, err := in.eval(n.Operand, scope)
	if err != nil {
		return nil, err
	}

	for _, fc := range n.Cases {
		ok, err := in.matchCase(fc.Cond, operand, n.Comparator, scope)
		if err != nil {
			return nil, err
		}
		if ok {
			return in.evalBody(fc.Body.Nodes, scope, "when case", nil)
		}
	}
	if n.Default != nil {
		return in.evalBody(n.Default.Nodes, scope, "when default", nil)
	}
	return nil, nil
}

// matchCase ORs the groups of cond and ANDs the cases inside a group, both
// short-circuiting.
func (in *Interpreter) matchCase(cond *ast.CaseOrGroup, operand runtime.Value, comparator string, scope runtime.Scope) (bool, error) {
	for _, group := range cond.Groups {
		matched := true
		for _, c := range group.Cases {
			ok, err := in.checkCase(c, operand, comparator, scope)
			if err != nil {
				return false, err
			}
			if !ok {
				matched = false
				break
			}
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}

func (in *Interpreter) checkCase(c *ast.Case, operand runtime.Value, comparator string, scope runtime.Scope) (bool, error) {
	op := c.Comparator
	if op == "" {
		op = comparator
	}
	if op == "" {
		return false, errorf(c.Range(), diag.CodeRuntimeError, "no operator found to check case condition")
	}

	value, err := in.eval(c.Operand, scope)
	if err != nil {
		return false, err
	}
	result, err := Apply(op, operand, value)
	if err != nil {
		return false, wrap(err, c.Range())
	}
	b, ok := result.(bool)
	if !ok {
		return false, errorf(c.Range(), diag.CodeRuntimeTypeMismatch, "case condition must be boolean")
	}
	return b, nil
}
