package stdlib

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mim-lang/mim/internal/diag"
	"github.com/mim-lang/mim/internal/runtime"
)

// converter builds Converter, which turns JSON and YAML documents into maps
// and back. Key order is kept both ways.
func converter() *runtime.Builtin {
	return &runtime.Builtin{
		BuiltinName: "Converter",
		CallMember: func(name string, scope runtime.Scope) (runtime.Value, error) {
			args, err := scope.Params()
			if err != nil {
				return nil, err
			}
			if err := arity(args, 1); err != nil {
				return nil, err
			}

			switch name {
			case "jsonToMap":
				s, ok := args[0].(string)
				if !ok {
					return nil, runtime.TypeErrorf("input must be string, got %s", runtime.TypeName(args[0]))
				}
				return JSONToMap(s)
			case "yamlToMap":
				s, ok := args[0].(string)
				if !ok {
					return nil, runtime.TypeErrorf("input must be string, got %s", runtime.TypeName(args[0]))
				}
				return YAMLToMap(s)
			case "mapToJson":
				return MapToJSON(args[0])
			case "mapToYaml":
				return MapToYAML(args[0])
			}
			return nil, &runtime.UnsupportedError{Op: "member " + name, Name: "Converter"}
		},
	}
}

func convertError(format string, args ...any) error {
	return runtime.Errorf(diag.CodeRuntimeError, format, args...)
}

// JSONToMap decodes a JSON object.
func JSONToMap(src string) (*runtime.Map, error) {
	dec := json.NewDecoder(strings.NewReader(src))
	dec.UseNumber()

	v, err := decodeJSON(dec)
	if err != nil {
		return nil, convertError("invalid json: %v", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, convertError("invalid json: trailing data after document")
	}
	m, ok := v.(*runtime.Map)
	if !ok {
		return nil, convertError("json document must be an object, got %s", runtime.TypeName(v))
	}
	return m, nil
}

// decodeJSON walks the token stream so object keys keep document order.
func decodeJSON(dec *json.Decoder) (runtime.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			m := runtime.NewMap()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, _ := kt.(string)
				v, err := decodeJSON(dec)
				if err != nil {
					return nil, err
				}
				m.Set(key, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return m, nil
		case '[':
			list := runtime.NewList()
			for dec.More() {
				v, err := decodeJSON(dec)
				if err != nil {
					return nil, err
				}
				list.Items = append(list.Items, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return list, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		return t.Float64()
	case string, bool, nil:
		return t, nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

// MapToJSON encodes m with its keys in insertion order.
func MapToJSON(v runtime.Value) (runtime.Value, error) {
	if _, ok := v.(*runtime.Map); !ok {
		return nil, runtime.TypeErrorf("input must be map, got %s", runtime.TypeName(v))
	}
	var buf bytes.Buffer
	if err := encodeJSON(&buf, v); err != nil {
		return nil, err
	}
	return buf.String(), nil
}

func encodeJSON(buf *bytes.Buffer, v runtime.Value) error {
	switch v := v.(type) {
	case *runtime.Map:
		buf.WriteByte('{')
		for i, k := range v.Keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, _ := json.Marshal(k)
			buf.Write(key)
			buf.WriteByte(':')
			if err := encodeJSON(buf, v.Entries[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case *runtime.List:
		buf.WriteByte('[')
		for i, item := range v.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeJSON(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case nil, int64, float64, bool, string:
		b, err := json.Marshal(v)
		if err != nil {
			return convertError("cannot encode %s: %v", runtime.Format(v), err)
		}
		buf.Write(b)
	default:
		return runtime.TypeErrorf("cannot encode %s as json", runtime.TypeName(v))
	}
	return nil
}

// YAMLToMap decodes a YAML mapping document.
func YAMLToMap(src string) (*runtime.Map, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		return nil, convertError("invalid yaml: %v", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return runtime.NewMap(), nil
	}
	v, err := fromYAML(doc.Content[0])
	if err != nil {
		return nil, err
	}
	m, ok := v.(*runtime.Map)
	if !ok {
		return nil, convertError("yaml document must be a mapping, got %s", runtime.TypeName(v))
	}
	return m, nil
}

func fromYAML(n *yaml.Node) (runtime.Value, error) {
	switch n.Kind {
	case yaml.MappingNode:
		m := runtime.NewMap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := fromYAML(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.Set(n.Content[i].Value, v)
		}
		return m, nil
	case yaml.SequenceNode:
		list := runtime.NewList()
		for _, c := range n.Content {
			v, err := fromYAML(c)
			if err != nil {
				return nil, err
			}
			list.Items = append(list.Items, v)
		}
		return list, nil
	case yaml.AliasNode:
		return fromYAML(n.Alias)
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, convertError("invalid yaml scalar %q: %v", n.Value, err)
		}
		switch x := v.(type) {
		case int:
			return int64(x), nil
		case uint64:
			return nil, convertError("yaml integer %s does not fit in int", n.Value)
		case nil, int64, float64, bool, string:
			return x, nil
		}
		return n.Value, nil
	}
	return nil, convertError("unsupported yaml node at line %d", n.Line)
}

// MapToYAML encodes m as a block-style YAML document.
func MapToYAML(v runtime.Value) (runtime.Value, error) {
	if _, ok := v.(*runtime.Map); !ok {
		return nil, runtime.TypeErrorf("input must be map, got %s", runtime.TypeName(v))
	}
	n, err := toYAML(v)
	if err != nil {
		return nil, err
	}
	out, err := yaml.Marshal(n)
	if err != nil {
		return nil, convertError("cannot encode yaml: %v", err)
	}
	return string(out), nil
}

func toYAML(v runtime.Value) (*yaml.Node, error) {
	switch v := v.(type) {
	case *runtime.Map:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range v.Keys {
			val, err := toYAML(v.Entries[k])
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, val)
		}
		return n, nil
	case *runtime.List:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.Items {
			c, err := toYAML(item)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, c)
		}
		return n, nil
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case int64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(v, 10)}, nil
	case float64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: runtime.FormatFloat(v)}, nil
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v)}, nil
	case string:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}, nil
	}
	return nil, runtime.TypeErrorf("cannot encode %s as yaml", runtime.TypeName(v))
}
