package runtime

// Variable is anything a script can name. Operations a variant does not
// implement return *UnsupportedError.
type Variable interface {
	Name() string
	Value() (Value, error)
	SetValue(v Value) error
	// Increment and Decrement return the value before the mutation when
	// returnOld is set, the value after it otherwise.
	Increment(returnOld bool) (Value, error)
	Decrement(returnOld bool) (Value, error)
	Property(name string) (Value, error)
	SetProperty(name string, v Value) error
	// Invoke calls the variable. Arguments are in scope under __params__.
	Invoke(scope Scope) (Value, error)
	InvokeMember(name string, scope Scope) (Value, error)
}

// Builtin is a Variable assembled from optional callbacks. A nil callback
// makes the matching operation unsupported.
type Builtin struct {
	BuiltinName string

	Get         func() (Value, error)
	Set         func(v Value) error
	Inc         func(returnOld bool) (Value, error)
	Dec         func(returnOld bool) (Value, error)
	GetProperty func(name string) (Value, error)
	SetProp     func(name string, v Value) error
	Call        func(scope Scope) (Value, error)
	CallMember  func(name string, scope Scope) (Value, error)
}

func (b *Builtin) unsupported(op string) *UnsupportedError {
	return &UnsupportedError{Op: op, Name: b.BuiltinName}
}

func (b *Builtin) Name() string { return b.BuiltinName }

func (b *Builtin) Value() (Value, error) {
	if b.Get == nil {
		// a callable without a read form evaluates to itself
		if b.Call != nil {
			return b, nil
		}
		return nil, b.unsupported("value")
	}
	return b.Get()
}

func (b *Builtin) SetValue(v Value) error {
	if b.Set == nil {
		return b.unsupported("assignment")
	}
	return b.Set(v)
}

func (b *Builtin) Increment(returnOld bool) (Value, error) {
	if b.Inc == nil {
		return nil, b.unsupported("increment")
	}
	return b.Inc(returnOld)
}

func (b *Builtin) Decrement(returnOld bool) (Value, error) {
	if b.Dec == nil {
		return nil, b.unsupported("decrement")
	}
	return b.Dec(returnOld)
}

func (b *Builtin) Property(name string) (Value, error) {
	if b.GetProperty == nil {
		return nil, b.unsupported("property " + name)
	}
	return b.GetProperty(name)
}

func (b *Builtin) SetProperty(name string, v Value) error {
	if b.SetProp == nil {
		return b.unsupported("property assignment " + name)
	}
	return b.SetProp(name, v)
}

func (b *Builtin) Invoke(scope Scope) (Value, error) {
	if b.Call == nil {
		return nil, b.unsupported("invocation")
	}
	return b.Call(scope)
}

func (b *Builtin) InvokeMember(name string, scope Scope) (Value, error) {
	if b.CallMember == nil {
		return nil, b.unsupported("member " + name)
	}
	return b.CallMember(name, scope)
}
