package runtime

import (
	"fmt"

	"github.com/mim-lang/mim/internal/diag"
)

// Error is a failure raised by a runtime value or scope. It has no source
// range; the interpreter attaches one when the error crosses a node.
type Error struct {
	Code    diag.Code
	Message string
}

func (e *Error) Error() string { return e.Message }

// Errorf builds an *Error with the given diagnostic code.
func Errorf(code diag.Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// TypeErrorf reports an operand of the wrong type.
func TypeErrorf(format string, args ...any) *Error {
	return Errorf(diag.CodeRuntimeTypeMismatch, format, args...)
}

// UnsupportedError is returned by a Variable that does not implement an
// operation.
type UnsupportedError struct {
	Op   string
	Name string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s is not supported on %s", e.Op, e.Name)
}

// SignalKind tells break from continue.
type SignalKind int

const (
	Break SignalKind = iota
	Continue
)

func (k SignalKind) String() string {
	if k == Continue {
		return "continue"
	}
	return "break"
}

// ControlSignal unwinds enclosing loops. Weight is the number of extra
// loop levels to leave after the first one that catches the signal.
type ControlSignal struct {
	Kind   SignalKind
	Weight int64
}

func (s *ControlSignal) Error() string {
	if s.Weight == 0 {
		return s.Kind.String() + " used outside of a loop"
	}
	return fmt.Sprintf("%s(%d) used outside of a loop", s.Kind, s.Weight)
}

// Absorb reports whether a catch point fully consumes s. Otherwise it
// returns the signal to pass to the next enclosing catch point.
func (s *ControlSignal) Absorb() (*ControlSignal, bool) {
	if s.Weight <= 0 {
		return nil, true
	}
	return &ControlSignal{Kind: s.Kind, Weight: s.Weight - 1}, false
}
