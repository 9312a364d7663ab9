package runtime

import (
	"github.com/mim-lang/mim/internal/diag"
)

// ValueVariable is a named cell. When it holds another Variable (a function
// value) it forwards calls and member access to it.
type ValueVariable struct {
	name  string
	value Value
	Const bool
}

func NewValueVariable(name string, v Value, isConst bool) *ValueVariable {
	return &ValueVariable{name: name, value: v, Const: isConst}
}

func (v *ValueVariable) Name() string { return v.name }

func (v *ValueVariable) Value() (Value, error) { return v.value, nil }

func (v *ValueVariable) SetValue(val Value) error {
	if v.Const {
		return Errorf(diag.CodeRuntimeError, "cannot assign to constant %s", v.name)
	}
	v.value = val
	return nil
}

func (v *ValueVariable) Increment(returnOld bool) (Value, error) {
	return v.step("++", 1, returnOld)
}

func (v *ValueVariable) Decrement(returnOld bool) (Value, error) {
	return v.step("--", -1, returnOld)
}

func (v *ValueVariable) step(op string, delta int64, returnOld bool) (Value, error) {
	if v.Const {
		return nil, Errorf(diag.CodeRuntimeError, "cannot modify constant %s", v.name)
	}
	old := v.value
	switch n := old.(type) {
	case int64:
		v.value = n + delta
	case float64:
		v.value = n + float64(delta)
	default:
		return nil, TypeErrorf("operand of %s operator must be number, got %s", op, TypeName(old))
	}
	if returnOld {
		return old, nil
	}
	return v.value, nil
}

func (v *ValueVariable) Property(name string) (Value, error) {
	switch val := v.value.(type) {
	case Variable:
		return val.Property(name)
	case *Map:
		if name == "size" {
			return int64(val.Len()), nil
		}
		entry, ok := val.Get(name)
		if !ok {
			return nil, Errorf(diag.CodeRuntimeUnboundName, "map %s has no key %q", v.name, name)
		}
		return entry, nil
	case *List:
		if name == "size" {
			return int64(len(val.Items)), nil
		}
	case string:
		if name == "size" {
			return int64(len([]rune(val))), nil
		}
	}
	return nil, &UnsupportedError{Op: "property " + name, Name: v.name}
}

func (v *ValueVariable) SetProperty(name string, val Value) error {
	switch target := v.value.(type) {
	case Variable:
		return target.SetProperty(name, val)
	case *Map:
		if name != "size" {
			target.Set(name, val)
			return nil
		}
	}
	return &UnsupportedError{Op: "property assignment " + name, Name: v.name}
}

func (v *ValueVariable) Invoke(scope Scope) (Value, error) {
	if fn, ok := v.value.(Variable); ok {
		return fn.Invoke(scope)
	}
	return nil, &UnsupportedError{Op: "invocation", Name: v.name}
}

func (v *ValueVariable) InvokeMember(name string, scope Scope) (Value, error) {
	if fn, ok := v.value.(Variable); ok {
		return fn.InvokeMember(name, scope)
	}
	args, err := scope.Params()
	if err != nil {
		return nil, err
	}

	switch val := v.value.(type) {
	case *List:
		return v.listMember(val, name, args)
	case *Map:
		return v.mapMember(val, name, args)
	case string:
		return v.stringMember(val, name, args)
	}
	return nil, &UnsupportedError{Op: "member " + name, Name: v.name}
}

func arity(args []Value, n int) error {
	if len(args) != n {
		return Errorf(diag.CodeRuntimeArity, "expected %d arguments, got %d", n, len(args))
	}
	return nil
}

func indexArg(v Value, limit int) (int, error) {
	i, ok := v.(int64)
	if !ok {
		return 0, TypeErrorf("index must be int, got %s", TypeName(v))
	}
	if i < 0 || i >= int64(limit) {
		return 0, Errorf(diag.CodeRuntimeError, "index %d out of bounds for length %d", i, limit)
	}
	return int(i), nil
}

// insertIndex accepts 0 through length inclusive; length appends.
func insertIndex(v Value, length int) (int, error) {
	i, ok := v.(int64)
	if !ok {
		return 0, TypeErrorf("index must be int, got %s", TypeName(v))
	}
	if i < 0 || i > int64(length) {
		return 0, Errorf(diag.CodeRuntimeError, "index %d out of bounds for insertion into length %d", i, length)
	}
	return int(i), nil
}

func (v *ValueVariable) listMember(l *List, name string, args []Value) (Value, error) {
	switch name {
	case "size":
		if err := arity(args, 0); err != nil {
			return nil, err
		}
		return int64(len(l.Items)), nil

	case "get":
		if err := arity(args, 1); err != nil {
			return nil, err
		}
		i, err := indexArg(args[0], len(l.Items))
		if err != nil {
			return nil, err
		}
		return l.Items[i], nil

	case "add":
		if err := arity(args, 1); err != nil {
			return nil, err
		}
		l.Items = append(l.Items, args[0])
		return nil, nil

	case "remove":
		if err := arity(args, 1); err != nil {
			return nil, err
		}
		for i, item := range l.Items {
			if Equal(item, args[0]) {
				l.Items = append(l.Items[:i], l.Items[i+1:]...)
				return true, nil
			}
		}
		return false, nil

	case "removeAt":
		if err := arity(args, 1); err != nil {
			return nil, err
		}
		i, err := indexArg(args[0], len(l.Items))
		if err != nil {
			return nil, err
		}
		removed := l.Items[i]
		l.Items = append(l.Items[:i], l.Items[i+1:]...)
		return removed, nil

	case "insert", "insertCopy":
		if err := arity(args, 2); err != nil {
			return nil, err
		}
		i, err := insertIndex(args[0], len(l.Items))
		if err != nil {
			return nil, err
		}
		items := make([]Value, 0, len(l.Items)+1)
		items = append(items, l.Items[:i]...)
		items = append(items, args[1])
		items = append(items, l.Items[i:]...)
		if name == "insertCopy" {
			return NewList(items...), nil
		}
		l.Items = items
		return nil, nil
	}
	return nil, &UnsupportedError{Op: "member " + name, Name: v.name}
}

func keyArg(v Value) (string, error) {
	k, ok := v.(string)
	if !ok {
		return "", TypeErrorf("map key must be string, got %s", TypeName(v))
	}
	return k, nil
}

func (v *ValueVariable) mapMember(m *Map, name string, args []Value) (Value, error) {
	switch name {
	case "size":
		if err := arity(args, 0); err != nil {
			return nil, err
		}
		return int64(m.Len()), nil

	case "get":
		if err := arity(args, 1); err != nil {
			return nil, err
		}
		k, err := keyArg(args[0])
		if err != nil {
			return nil, err
		}
		val, _ := m.Get(k)
		return val, nil

	case "add":
		if err := arity(args, 2); err != nil {
			return nil, err
		}
		k, err := keyArg(args[0])
		if err != nil {
			return nil, err
		}
		m.Set(k, args[1])
		return nil, nil

	case "remove":
		if err := arity(args, 1); err != nil {
			return nil, err
		}
		k, err := keyArg(args[0])
		if err != nil {
			return nil, err
		}
		return m.Delete(k), nil
	}
	return nil, &UnsupportedError{Op: "member " + name, Name: v.name}
}

func (v *ValueVariable) stringMember(s string, name string, args []Value) (Value, error) {
	runes := []rune(s)
	switch name {
	case "size":
		if err := arity(args, 0); err != nil {
			return nil, err
		}
		return int64(len(runes)), nil

	case "get":
		if err := arity(args, 1); err != nil {
			return nil, err
		}
		i, err := indexArg(args[0], len(runes))
		if err != nil {
			return nil, err
		}
		return string(runes[i]), nil
	}
	return nil, &UnsupportedError{Op: "member " + name, Name: v.name}
}
