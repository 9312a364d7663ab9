package stdlib

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mim-lang/mim/internal/runtime"
)

type stream struct {
	env *Env
	in  *bufio.Reader
}

// newStream builds stdstream: reading takes a line of input, assigning
// prints, calling prints its arguments and then reads a line.
func newStream(env *Env, in *bufio.Reader) *runtime.Builtin {
	s := &stream{env: env, in: in}
	return &runtime.Builtin{
		BuiltinName: "stdstream",
		Get:         s.readLine,
		Set:         s.print,
		GetProperty: s.property,
		SetProp:     s.setProperty,
		Call:        s.call,
	}
}

// readLine returns null at end of input.
func (s *stream) readLine() (runtime.Value, error) {
	line, err := s.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err != nil && line == "" {
		return nil, nil
	}
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), nil
}

func (s *stream) print(v runtime.Value) error {
	_, err := fmt.Fprint(s.env.Out, runtime.Format(v)+s.env.End)
	return err
}

func (s *stream) property(name string) (runtime.Value, error) {
	switch name {
	case "end":
		return s.env.End, nil
	case "sep":
		return s.env.Sep, nil
	}
	return nil, &runtime.UnsupportedError{Op: "property " + name, Name: "stdstream"}
}

func (s *stream) setProperty(name string, v runtime.Value) error {
	switch name {
	case "end":
		s.env.End = runtime.Format(v)
	case "sep":
		s.env.Sep = runtime.Format(v)
	default:
		return &runtime.UnsupportedError{Op: "property assignment " + name, Name: "stdstream"}
	}
	return nil
}

func (s *stream) call(scope runtime.Scope) (runtime.Value, error) {
	args, err := scope.Params()
	if err != nil {
		return nil, err
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = runtime.Format(a)
	}
	if _, err := fmt.Fprint(s.env.Out, strings.Join(parts, s.env.Sep)+s.env.End); err != nil {
		return nil, err
	}
	return s.readLine()
}
