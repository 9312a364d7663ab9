package interpreter

import (
	"github.com/mim-lang/mim/internal/ast"
	"github.com/mim-lang/mim/internal/diag"
	"github.com/mim-lang/mim/internal/runtime"
)

// BlockNames are the named blocks with built-in meaning.
var BlockNames = []string{"run", "list", "map", "func", "lambda", "repeat"}

func (in *Interpreter) evalNamedBlock(n *ast.NamedBlock, scope runtime.Scope) (runtime.Value, error) {
	switch n.Name {
	case "run":
		return in.evalBody(n.Body.Nodes, scope, "run block", nil)

	case "list":
		return in.evalList(n, scope)

	case "map":
		return in.evalMap(n, scope)

	case "func", "lambda":
		return newFunction(in, lambdaName(n.Range()), nil, n.Body.Nodes), nil

	case "repeat":
		for {
			if _, err := in.evalBody(n.Body.Nodes, scope, "infinite repeat block", nil); err != nil {
				if stop, err := in.catch(err); stop || err != nil {
					return nil, err
				}
			}
		}
	}
	return in.evalUserBlock(n, scope)
}

func (in *Interpreter) evalList(n *ast.NamedBlock, scope runtime.Scope) (runtime.Value, error) {
	child := in.push(scope, "list block")
	defer in.pop(child)

	items := make([]runtime.Value, 0, len(n.Body.Nodes))
	for _, node := range n.Body.Nodes {
		v, err := in.eval(node, child)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return runtime.NewList(items...), nil
}

// evalMap reads the body as key, value pairs. A trailing key maps to null.
func (in *Interpreter) evalMap(n *ast.NamedBlock, scope runtime.Scope) (runtime.Value, error) {
	child := in.push(scope, "map block")
	defer in.pop(child)

	m := runtime.NewMap()
	nodes := n.Body.Nodes
	for i := 0; i < len(nodes); i += 2 {
		k, err := in.eval(nodes[i], child)
		if err != nil {
			return nil, err
		}
		key, ok := k.(string)
		if !ok {
			return nil, errorf(nodes[i].Range(), diag.CodeRuntimeTypeMismatch,
				"map key must be string, got %s", runtime.TypeName(k))
		}
		var value runtime.Value
		if i+1 < len(nodes) {
			if value, err = in.eval(nodes[i+1], child); err != nil {
				return nil, err
			}
		}
		m.Set(key, value)
	}
	return m, nil
}

// evalUserBlock hands the block, as a lambda, to the variable named like
// the block.
func (in *Interpreter) evalUserBlock(n *ast.NamedBlock, scope runtime.Scope) (runtime.Value, error) {
	v, ok := scope.Lookup(n.Name)
	if !ok {
		e := errorf(n.Range(), diag.CodeRuntimeUnboundName, "named block '%s' is not known", n.Name)
		candidates := append(scope.Names(), BlockNames...)
		if match := closestName(n.Name, candidates); match != "" {
			e.Suggestion = "did you mean `" + match + "`?"
		}
		return nil, e
	}

	lambda := newFunction(in, lambdaName(n.Range()), nil, n.Body.Nodes)
	call := in.pushCall(scope, n.Name, []runtime.Value{lambda})
	defer in.pop(call)
	return v.Invoke(call)
}
