// Package stdlib holds the builtins registered in every root scope.
package stdlib

import (
	"bufio"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/mim-lang/mim/internal/diag"
	"github.com/mim-lang/mim/internal/runtime"
)

// Env is the outside world the builtins talk to.
type Env struct {
	In   io.Reader
	Out  io.Writer
	End  string // printed after stdstream output
	Sep  string // between stdstream call arguments
	Rand *rand.Rand
}

// DefaultEnv wires the builtins to the process's standard streams.
func DefaultEnv() *Env {
	return &Env{In: os.Stdin, Out: os.Stdout, End: "\n", Sep: " "}
}

// ExitError is returned by exit(code) and unwinds the whole program.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Names lists every builtin Register declares.
var Names = []string{
	"stdstream", "null", "true", "false", "break", "continue",
	"int", "float", "string", "bool", "typeof", "random", "exit", "Converter",
}

// Register declares the builtins in scope.
func Register(scope runtime.Scope, env *Env) error {
	if env == nil {
		env = DefaultEnv()
	}
	if env.In == nil {
		env.In = strings.NewReader("")
	}
	if env.Out == nil {
		env.Out = io.Discard
	}
	if env.Rand == nil {
		env.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	in := bufio.NewReader(env.In)

	vars := []runtime.Variable{
		newStream(env, in),
		constant("null", nil),
		constant("true", true),
		constant("false", false),
		signal("break", runtime.Break),
		signal("continue", runtime.Continue),
		function("int", toInt),
		function("float", toFloat),
		function("string", toString),
		function("bool", toBool),
		function("typeof", typeOf),
		random(env.Rand),
		function("exit", exit),
		converter(),
	}
	for _, v := range vars {
		if err := scope.Declare(v); err != nil {
			return err
		}
	}
	return nil
}

func constant(name string, v runtime.Value) *runtime.Builtin {
	return &runtime.Builtin{
		BuiltinName: name,
		Get:         func() (runtime.Value, error) { return v, nil },
	}
}

// signal builds break and continue. Reading yields a weight 0 signal,
// calling with n a weight n one.
func signal(name string, kind runtime.SignalKind) *runtime.Builtin {
	return &runtime.Builtin{
		BuiltinName: name,
		Get: func() (runtime.Value, error) {
			return nil, &runtime.ControlSignal{Kind: kind}
		},
		Call: func(scope runtime.Scope) (runtime.Value, error) {
			args, err := scope.Params()
			if err != nil {
				return nil, err
			}
			var weight int64
			switch len(args) {
			case 0:
			case 1:
				n, ok := args[0].(int64)
				if !ok || n < 0 {
					return nil, runtime.TypeErrorf("%s weight must be a non-negative int, got %s", name, runtime.Format(args[0]))
				}
				weight = n
			default:
				return nil, runtime.Errorf(diag.CodeRuntimeArity, "expected at most 1 arguments, got %d", len(args))
			}
			return nil, &runtime.ControlSignal{Kind: kind, Weight: weight}
		},
	}
}

// function wraps a plain function of the call arguments.
func function(name string, fn func(args []runtime.Value) (runtime.Value, error)) *runtime.Builtin {
	return &runtime.Builtin{
		BuiltinName: name,
		Call: func(scope runtime.Scope) (runtime.Value, error) {
			args, err := scope.Params()
			if err != nil {
				return nil, err
			}
			return fn(args)
		},
	}
}

func arity(args []runtime.Value, n int) error {
	if len(args) != n {
		return runtime.Errorf(diag.CodeRuntimeArity, "expected %d arguments, got %d", n, len(args))
	}
	return nil
}

func exit(args []runtime.Value) (runtime.Value, error) {
	if len(args) == 0 {
		return nil, &ExitError{}
	}
	if err := arity(args, 1); err != nil {
		return nil, err
	}
	code, ok := args[0].(int64)
	if !ok {
		return nil, runtime.TypeErrorf("exit code must be int, got %s", runtime.TypeName(args[0]))
	}
	return nil, &ExitError{Code: int(code)}
}
