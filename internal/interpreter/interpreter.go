package interpreter

import (
	"fmt"
	"log/slog"

	"github.com/mim-lang/mim/internal/ast"
	"github.com/mim-lang/mim/internal/diag"
	"github.com/mim-lang/mim/internal/lexer"
	"github.com/mim-lang/mim/internal/runtime"
)

// DefaultMaxDepth bounds nested function calls.
const DefaultMaxDepth = 2048

type Option func(*Interpreter)

// WithLogger sets the logger scope and call tracing goes to.
func WithLogger(l *slog.Logger) Option {
	return func(in *Interpreter) {
		if l != nil {
			in.logger = l
		}
	}
}

// WithMaxDepth bounds nested function calls. Values below one keep the
// default.
func WithMaxDepth(n int) Option {
	return func(in *Interpreter) {
		if n > 0 {
			in.maxDepth = n
		}
	}
}

// Interpreter walks the AST. It is not safe for concurrent use.
type Interpreter struct {
	logger   *slog.Logger
	maxDepth int
	depth    int
	runs     int

	// balanced caches the precedence-ordered form of each parsed chain.
	// It is emptied when the outermost Run returns.
	balanced map[*ast.BinaryOp]*ast.BinaryOp

	// signalAt is where the control signal currently unwinding was raised
	signalAt  lexer.Range
	signalSet bool
}

func New(opts ...Option) *Interpreter {
	in := &Interpreter{
		logger:   slog.Default(),
		maxDepth: DefaultMaxDepth,
		balanced: make(map[*ast.BinaryOp]*ast.BinaryOp),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Run evaluates nodes in scope and returns the value of the last one.
// A break or continue that no loop absorbs is an error.
func (in *Interpreter) Run(nodes []ast.Node, scope runtime.Scope) (runtime.Value, error) {
	in.runs++
	defer func() {
		if in.runs--; in.runs == 0 {
			clear(in.balanced)
		}
	}()

	v, err := in.evalSeq(nodes, scope)
	if sig, ok := err.(*runtime.ControlSignal); ok {
		return nil, in.signalError(sig)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Eval evaluates a single node.
func (in *Interpreter) Eval(node ast.Node, scope runtime.Scope) (runtime.Value, error) {
	return in.Run([]ast.Node{node}, scope)
}

func (in *Interpreter) signalError(sig *runtime.ControlSignal) *InterpreterError {
	e := &InterpreterError{
		Message: sig.Error(),
		Range:   in.signalAt,
		Code:    diag.CodeRuntimeControlFlow,
		Err:     sig,
	}
	in.clearSignal()
	return e
}

func (in *Interpreter) clearSignal() {
	in.signalAt = lexer.Range{}
	in.signalSet = false
}

// eval dispatches on the node kind. Failures leave with the range of the
// innermost node attached; control signals pass through untouched.
func (in *Interpreter) eval(node ast.Node, scope runtime.Scope) (runtime.Value, error) {
	v, err := in.dispatch(node, scope)
	if err != nil {
		return nil, in.attach(err, node)
	}
	return v, nil
}

func (in *Interpreter) attach(err error, node ast.Node) error {
	switch e := err.(type) {
	case *runtime.ControlSignal:
		if !in.signalSet {
			in.signalAt, in.signalSet = node.Range(), true
		}
		return e
	case *InterpreterError:
		return e
	}
	return wrap(err, node.Range())
}

func (in *Interpreter) dispatch(node ast.Node, scope runtime.Scope) (runtime.Value, error) {
	switch n := node.(type) {
	case *ast.NumberLiteral:
		if n.IsFloat {
			return n.Float, nil
		}
		return n.Int, nil

	case *ast.StringLiteral:
		return n.Text, nil

	case *ast.Identifier:
		v, ok := scope.Lookup(n.Name)
		if !ok {
			return nil, unbound(n.Name, n.Range(), scope)
		}
		return v.Value()

	case *ast.ParenExpr:
		return in.eval(n.Inner, scope)

	case *ast.Statement:
		return in.eval(n.Inner, scope)

	case *ast.UnaryOp:
		return in.evalUnary(n, scope)

	case *ast.BinaryOp:
		return in.evalBinary(in.balance(n), scope)

	case *ast.VarDecl:
		return in.evalVarDecl(n, scope)

	case *ast.FuncDecl:
		fn := newFunction(in, n.Name, n.Params, n.Body)
		if err := scope.Declare(fn); err != nil {
			return nil, err
		}
		return fn, nil

	case *ast.FuncCall:
		return in.evalCall(n, scope)

	case *ast.MemberAccess:
		return in.evalMemberAccess(n, scope)

	case *ast.IfStmt:
		return in.evalIf(n, scope)

	case *ast.RepeatLoop:
		return in.evalRepeat(n, scope)

	case *ast.WhileLoop:
		return in.evalWhile(n, scope)

	case *ast.DoWhileLoop:
		return in.evalDoWhile(n, scope)

	case *ast.ForLoop:
		return in.evalFor(n, scope)

	case *ast.Block:
		return in.evalBody(n.Nodes, scope, "block", nil)

	case *ast.NamedBlock:
		return in.evalNamedBlock(n, scope)

	case *ast.WhenExpr:
		return in.evalWhen(n, scope)
	}
	return nil, errorf(node.Range(), diag.CodeRuntimeUnsupported, "unsupported node %T", node)
}

// evalSeq evaluates nodes in order and returns the last value.
func (in *Interpreter) evalSeq(nodes []ast.Node, scope runtime.Scope) (runtime.Value, error) {
	var last runtime.Value
	for _, n := range nodes {
		v, err := in.eval(n, scope)
		if err != nil {
			return nil, err
		}
		last = v
	}
	return last, nil
}

// evalBody runs nodes in a child scope of scope. bind, when set, declares
// per-body bindings first.
func (in *Interpreter) evalBody(nodes []ast.Node, scope runtime.Scope, name string, bind func(runtime.Scope) error) (runtime.Value, error) {
	child := in.push(scope, name)
	defer in.pop(child)

	if bind != nil {
		if err := bind(child); err != nil {
			return nil, err
		}
	}
	return in.evalSeq(nodes, child)
}

func (in *Interpreter) push(scope runtime.Scope, name string) runtime.Scope {
	child := scope.Push(name)
	in.logger.Debug("push scope",
		slog.String("name", name),
		slog.Int("depth", child.Depth()))
	return child
}

// pushCall opens the scope of an invocation, holding args as __params__.
func (in *Interpreter) pushCall(scope runtime.Scope, name string, args []runtime.Value) runtime.Scope {
	call := scope.WithParams(name, args)
	in.logger.Debug("push call scope",
		slog.String("name", name),
		slog.Int("argument-count", len(args)),
		slog.Int("depth", call.Depth()))
	return call
}

func (in *Interpreter) pop(scope runtime.Scope) {
	in.logger.Debug("pop scope",
		slog.String("name", scope.Name()),
		slog.Int("depth", scope.Depth()))
	scope.Pop()
}

func (in *Interpreter) evalVarDecl(n *ast.VarDecl, scope runtime.Scope) (runtime.Value, error) {
	var value runtime.Value
	if n.Init != nil {
		v, err := in.eval(n.Init, scope)
		if err != nil {
			return nil, err
		}
		value = v
	}
	if err := scope.Declare(runtime.NewValueVariable(n.Name, value, n.Const)); err != nil {
		return nil, err
	}
	return value, nil
}

// evalArgs evaluates call arguments left to right in the caller's scope.
func (in *Interpreter) evalArgs(args []ast.Node, scope runtime.Scope) ([]runtime.Value, error) {
	values := make([]runtime.Value, 0, len(args))
	for _, a := range args {
		v, err := in.eval(a, scope)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

func (in *Interpreter) evalCall(n *ast.FuncCall, scope runtime.Scope) (runtime.Value, error) {
	v, ok := scope.Lookup(n.Name)
	if !ok {
		return nil, unbound(n.Name, n.Range(), scope)
	}
	args, err := in.evalArgs(n.Args, scope)
	if err != nil {
		return nil, err
	}

	call := in.pushCall(scope, n.Name, args)
	defer in.pop(call)
	return v.Invoke(call)
}

// evalMemberAccess folds the accessor chain left to right.
func (in *Interpreter) evalMemberAccess(n *ast.MemberAccess, scope runtime.Scope) (runtime.Value, error) {
	target, err := in.resolveChain(n, scope)
	if err != nil {
		return nil, err
	}
	last := n.Chain[len(n.Chain)-1]
	v, err := in.access(target, last, scope)
	if err != nil {
		return nil, in.attach(err, last)
	}
	return v, nil
}

// resolveChain returns the Variable the last accessor of n applies to.
func (in *Interpreter) resolveChain(n *ast.MemberAccess, scope runtime.Scope) (runtime.Variable, error) {
	target, ok := scope.Lookup(n.Base)
	if !ok {
		return nil, unbound(n.Base, n.Range(), scope)
	}
	for _, acc := range n.Chain[:len(n.Chain)-1] {
		v, err := in.access(target, acc, scope)
		if err != nil {
			return nil, in.attach(err, acc)
		}
		target = runtime.NewValueVariable(acc.Name, v, false)
	}
	return target, nil
}

func (in *Interpreter) access(target runtime.Variable, acc *ast.Accessor, scope runtime.Scope) (runtime.Value, error) {
	if !acc.Invoke {
		return target.Property(acc.Name)
	}
	args, err := in.evalArgs(acc.Args, scope)
	if err != nil {
		return nil, err
	}
	call := in.pushCall(scope, acc.Name, args)
	defer in.pop(call)
	return target.InvokeMember(acc.Name, call)
}

// lambdaName labels anonymous functions by where they were written.
func lambdaName(rng lexer.Range) string {
	return fmt.Sprintf("lambda@%d:%d", rng.Start.Line, rng.Start.Column)
}
