package stdlib

import (
	"math"
	"strconv"
	"strings"

	"github.com/mim-lang/mim/internal/diag"
	"github.com/mim-lang/mim/internal/runtime"
)

func conversionError(to string, v runtime.Value) error {
	return runtime.TypeErrorf("cannot convert %s %q to %s", runtime.TypeName(v), runtime.Format(v), to)
}

func toInt(args []runtime.Value) (runtime.Value, error) {
	if err := arity(args, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case int64:
		return v, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, conversionError("int", v)
		}
		return int64(v), nil
	case bool:
		if v {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		s := strings.TrimSpace(v)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f), nil
		}
	}
	return nil, conversionError("int", args[0])
}

func toFloat(args []runtime.Value) (runtime.Value, error) {
	if err := arity(args, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f, nil
		}
	}
	return nil, conversionError("float", args[0])
}

func toString(args []runtime.Value) (runtime.Value, error) {
	if err := arity(args, 1); err != nil {
		return nil, err
	}
	return runtime.Format(args[0]), nil
}

func toBool(args []runtime.Value) (runtime.Value, error) {
	if err := arity(args, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case float64:
		return v != 0, nil
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b, nil
		}
	}
	return nil, conversionError("bool", args[0])
}

func typeOf(args []runtime.Value) (runtime.Value, error) {
	if err := arity(args, 1); err != nil {
		return nil, err
	}
	return runtime.TypeName(args[0]), nil
}

// random() is a float in [0,1), random(n) an int in [0,n) and random(a, b)
// an int in [a,b].
func random(r interface {
	Float64() float64
	Int64N(n int64) int64
}) *runtime.Builtin {
	return function("random", func(args []runtime.Value) (runtime.Value, error) {
		bounds := make([]int64, len(args))
		for i, a := range args {
			n, ok := a.(int64)
			if !ok {
				return nil, runtime.TypeErrorf("random bounds must be int, got %s", runtime.TypeName(a))
			}
			bounds[i] = n
		}

		switch len(bounds) {
		case 0:
			return r.Float64(), nil
		case 1:
			if bounds[0] <= 0 {
				return nil, runtime.Errorf(diag.CodeRuntimeError, "random bound must be positive, got %d", bounds[0])
			}
			return r.Int64N(bounds[0]), nil
		case 2:
			lo, hi := bounds[0], bounds[1]
			if hi < lo {
				return nil, runtime.Errorf(diag.CodeRuntimeError, "random range [%d, %d] is empty", lo, hi)
			}
			return lo + r.Int64N(hi-lo+1), nil
		}
		return nil, runtime.Errorf(diag.CodeRuntimeArity, "expected at most 2 arguments, got %d", len(args))
	})
}
