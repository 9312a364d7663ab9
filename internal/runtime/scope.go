package runtime

import (
	"slices"

	"github.com/mim-lang/mim/internal/diag"
)

// ParamsName holds the evaluated argument list of a call.
const ParamsName = "__params__"

const noParent = -1

type frame struct {
	name   string
	parent int
	vars   []Variable
	index  map[string]int
}

// Frames is the arena every Scope of one run lives in. Frames are strictly
// nested: a frame is released together with every frame pushed after it.
type Frames struct {
	frames []frame
}

// Scope is a handle to one frame of a Frames arena.
type Scope struct {
	frames *Frames
	id     int
}

// NewRoot creates an arena holding a single root frame.
func NewRoot(name string) Scope {
	f := &Frames{}
	f.frames = append(f.frames, frame{name: name, parent: noParent})
	return Scope{frames: f, id: 0}
}

// Push opens a child frame of s. The caller must Pop it.
func (s Scope) Push(name string) Scope {
	f := s.frames
	f.frames = append(f.frames, frame{name: name, parent: s.id})
	return Scope{frames: f, id: len(f.frames) - 1}
}

// Pop releases s and every frame opened after it. Popping the root frame
// only clears its bindings.
func (s Scope) Pop() {
	f := s.frames
	if s.id == 0 {
		f.frames[0].vars = nil
		f.frames[0].index = nil
		clear(f.frames[1:])
		f.frames = f.frames[:1]
		return
	}
	if s.id >= len(f.frames) {
		return
	}
	clear(f.frames[s.id:])
	f.frames = f.frames[:s.id]
}

func (s Scope) frame() *frame {
	return &s.frames.frames[s.id]
}

// Name is the diagnostic label given to Push.
func (s Scope) Name() string {
	return s.frame().name
}

// Parent returns the enclosing scope, if any.
func (s Scope) Parent() (Scope, bool) {
	p := s.frame().parent
	if p == noParent {
		return Scope{}, false
	}
	return Scope{frames: s.frames, id: p}, true
}

// Depth counts the frames between s and the root.
func (s Scope) Depth() int {
	depth := 0
	for id := s.id; s.frames.frames[id].parent != noParent; id = s.frames.frames[id].parent {
		depth++
	}
	return depth
}

// Declare binds v in this exact frame.
func (s Scope) Declare(v Variable) error {
	fr := s.frame()
	if _, ok := fr.index[v.Name()]; ok {
		return Errorf(diag.CodeRuntimeDuplicate, "variable %s already exists", v.Name())
	}
	if fr.index == nil {
		fr.index = make(map[string]int)
	}
	fr.index[v.Name()] = len(fr.vars)
	fr.vars = append(fr.vars, v)
	return nil
}

// Local looks name up in this frame only.
func (s Scope) Local(name string) (Variable, bool) {
	fr := s.frame()
	i, ok := fr.index[name]
	if !ok {
		return nil, false
	}
	return fr.vars[i], true
}

// Lookup walks outward from s; the innermost binding wins.
func (s Scope) Lookup(name string) (Variable, bool) {
	for id := s.id; id != noParent; id = s.frames.frames[id].parent {
		fr := &s.frames.frames[id]
		if i, ok := fr.index[name]; ok {
			return fr.vars[i], true
		}
	}
	return nil, false
}

// Names lists every visible binding, innermost first, without duplicates.
func (s Scope) Names() []string {
	var names []string
	for id := s.id; id != noParent; id = s.frames.frames[id].parent {
		for _, v := range s.frames.frames[id].vars {
			if !slices.Contains(names, v.Name()) {
				names = append(names, v.Name())
			}
		}
	}
	return names
}

// Params returns the argument list of the innermost call.
func (s Scope) Params() ([]Value, error) {
	v, ok := s.Lookup(ParamsName)
	if !ok {
		return nil, nil
	}
	val, err := v.Value()
	if err != nil {
		return nil, err
	}
	list, ok := val.(*List)
	if !ok {
		return nil, TypeErrorf("%s must be a list, got %s", ParamsName, TypeName(val))
	}
	return list.Items, nil
}

// UnpackParams binds the call arguments positionally to names in s.
func (s Scope) UnpackParams(names []string) error {
	params, err := s.Params()
	if err != nil {
		return err
	}
	if len(params) != len(names) {
		return Errorf(diag.CodeRuntimeArity, "expected %d arguments, got %d", len(names), len(params))
	}
	for i, name := range names {
		if err := s.Declare(NewValueVariable(name, params[i], false)); err != nil {
			return err
		}
	}
	return nil
}

// WithParams opens a child frame of s holding args as __params__.
func (s Scope) WithParams(name string, args []Value) Scope {
	child := s.Push(name)
	// a fresh frame cannot hold a duplicate
	_ = child.Declare(NewValueVariable(ParamsName, NewList(args...), true))
	return child
}
