package interpreter

import (
	"log/slog"

	"github.com/mim-lang/mim/internal/ast"
	"github.com/mim-lang/mim/internal/diag"
	"github.com/mim-lang/mim/internal/runtime"
)

// FunctionVariable is a declared function or a lambda. Its body runs in the
// scope it is invoked with, a child of the caller's scope.
type FunctionVariable struct {
	name   string
	params []string
	body   []ast.Node
	in     *Interpreter
}

func newFunction(in *Interpreter, name string, params []string, body []ast.Node) *FunctionVariable {
	return &FunctionVariable{name: name, params: params, body: body, in: in}
}

func (f *FunctionVariable) Name() string { return f.name }

// Params lists the declared parameter names.
func (f *FunctionVariable) Params() []string { return f.params }

func (f *FunctionVariable) Value() (runtime.Value, error) { return f, nil }

func (f *FunctionVariable) unsupported(op string) *runtime.UnsupportedError {
	return &runtime.UnsupportedError{Op: op, Name: f.name}
}

func (f *FunctionVariable) SetValue(runtime.Value) error {
	return f.unsupported("assignment")
}

func (f *FunctionVariable) Increment(bool) (runtime.Value, error) {
	return nil, f.unsupported("increment")
}

func (f *FunctionVariable) Decrement(bool) (runtime.Value, error) {
	return nil, f.unsupported("decrement")
}

func (f *FunctionVariable) Property(name string) (runtime.Value, error) {
	return nil, f.unsupported("property " + name)
}

func (f *FunctionVariable) SetProperty(name string, _ runtime.Value) error {
	return f.unsupported("property assignment " + name)
}

func (f *FunctionVariable) InvokeMember(name string, _ runtime.Scope) (runtime.Value, error) {
	return nil, f.unsupported("member " + name)
}

// Invoke binds the declared parameters from __params__ and runs the body.
// A plain break leaves the function with null.
func (f *FunctionVariable) Invoke(scope runtime.Scope) (runtime.Value, error) {
	in := f.in
	if in.depth >= in.maxDepth {
		return nil, runtime.Errorf(diag.CodeRuntimeDepthExceeded, "maximum call depth of %d exceeded", in.maxDepth)
	}
	in.depth++
	defer func() { in.depth-- }()

	in.logger.Debug("call function",
		slog.String("function", f.name),
		slog.Int("param-count", len(f.params)),
		slog.Int("call-depth", in.depth))

	if len(f.params) > 0 {
		if err := scope.UnpackParams(f.params); err != nil {
			return nil, err
		}
	}

	v, err := in.evalSeq(f.body, scope)
	sig, ok := err.(*runtime.ControlSignal)
	if !ok {
		return v, err
	}
	if sig.Kind == runtime.Continue {
		return nil, in.signalError(sig)
	}
	next, absorbed := sig.Absorb()
	if absorbed {
		in.clearSignal()
		return nil, nil
	}
	return nil, next
}
