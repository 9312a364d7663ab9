package runtime

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is any runtime value: nil, int64, float64, bool, string, *List,
// *Map or a Variable acting as a first-class value (functions, builtins).
type Value = any

// List is an ordered, mutable sequence.
type List struct {
	Items []Value
}

func NewList(items ...Value) *List {
	return &List{Items: items}
}

// Map is a string-keyed map that remembers insertion order.
type Map struct {
	Keys    []string
	Entries map[string]Value
}

func NewMap() *Map {
	return &Map{Entries: make(map[string]Value)}
}

func (m *Map) Get(key string) (Value, bool) {
	v, ok := m.Entries[key]
	return v, ok
}

func (m *Map) Set(key string, v Value) {
	if _, ok := m.Entries[key]; !ok {
		m.Keys = append(m.Keys, key)
	}
	m.Entries[key] = v
}

func (m *Map) Delete(key string) bool {
	if _, ok := m.Entries[key]; !ok {
		return false
	}
	delete(m.Entries, key)
	for i, k := range m.Keys {
		if k == key {
			m.Keys = append(m.Keys[:i], m.Keys[i+1:]...)
			break
		}
	}
	return true
}

func (m *Map) Len() int { return len(m.Keys) }

// TypeName reports the script-level type of v.
func TypeName(v Value) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case int64:
		return "int"
	case float64:
		return "float"
	case bool:
		return "bool"
	case string:
		return "string"
	case *List:
		return "list"
	case *Map:
		return "map"
	case Variable:
		return "function"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Format renders v the way stdstream prints it.
func Format(v Value) string {
	var sb strings.Builder
	writeValue(&sb, v)
	return sb.String()
}

func writeValue(sb *strings.Builder, v Value) {
	switch v := v.(type) {
	case nil:
		sb.WriteString("null")
	case int64:
		sb.WriteString(strconv.FormatInt(v, 10))
	case float64:
		sb.WriteString(FormatFloat(v))
	case bool:
		sb.WriteString(strconv.FormatBool(v))
	case string:
		sb.WriteString(v)
	case *List:
		sb.WriteByte('[')
		for i, item := range v.Items {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeValue(sb, item)
		}
		sb.WriteByte(']')
	case *Map:
		sb.WriteByte('{')
		for i, k := range v.Keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(k)
			sb.WriteByte('=')
			writeValue(sb, v.Entries[k])
		}
		sb.WriteByte('}')
	case Variable:
		sb.WriteString("<function " + v.Name() + ">")
	default:
		fmt.Fprint(sb, v)
	}
}

// FormatFloat always keeps a fractional part so floats stay distinguishable
// from integers.
func FormatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// ToFloat widens numeric values.
func ToFloat(v Value) (float64, bool) {
	switch v := v.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func IsNumber(v Value) bool {
	_, ok := ToFloat(v)
	return ok
}

// Equal compares by value. Integers and floats compare numerically; lists
// and maps compare element-wise. Variables compare by identity.
func Equal(a, b Value) bool {
	if af, ok := ToFloat(a); ok {
		bf, ok := ToFloat(b)
		return ok && af == bf
	}
	switch a := a.(type) {
	case nil:
		return b == nil
	case bool:
		bv, ok := b.(bool)
		return ok && a == bv
	case string:
		bv, ok := b.(string)
		return ok && a == bv
	case *List:
		bv, ok := b.(*List)
		if !ok || len(a.Items) != len(bv.Items) {
			return false
		}
		for i := range a.Items {
			if !Equal(a.Items[i], bv.Items[i]) {
				return false
			}
		}
		return true
	case *Map:
		bv, ok := b.(*Map)
		if !ok || a.Len() != bv.Len() {
			return false
		}
		for k, av := range a.Entries {
			bvv, ok := bv.Entries[k]
			if !ok || !Equal(av, bvv) {
				return false
			}
		}
		return true
	case Variable:
		bv, ok := b.(Variable)
		return ok && a == bv
	}
	return false
}

// Copy returns a shallow copy of lists and maps; other values are returned
// as-is.
func Copy(v Value) Value {
	switch v := v.(type) {
	case *List:
		return NewList(append([]Value(nil), v.Items...)...)
	case *Map:
		out := NewMap()
		for _, k := range v.Keys {
			out.Set(k, v.Entries[k])
		}
		return out
	}
	return v
}
