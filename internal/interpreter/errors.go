package interpreter

import (
	"errors"
	"fmt"
	"slices"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/mim-lang/mim/internal/diag"
	"github.com/mim-lang/mim/internal/lexer"
	"github.com/mim-lang/mim/internal/parser"
	"github.com/mim-lang/mim/internal/runtime"
)

// InterpreterError aborts evaluation. Range points at the innermost node
// that failed. Err keeps the underlying runtime error, if any.
type InterpreterError struct {
	Message    string
	Range      lexer.Range
	Code       diag.Code
	Suggestion string
	Err        error
}

func (e *InterpreterError) Error() string {
	r := e.Range
	if r.Filename != "" {
		return fmt.Sprintf("%s:%d:%d: %s", r.Filename, r.Start.Line, r.Start.Column, e.Message)
	}
	return fmt.Sprintf("%d:%d: %s", r.Start.Line, r.Start.Column, e.Message)
}

func (e *InterpreterError) Unwrap() error { return e.Err }

// ToDiagnostic converts the error into a shared diagnostic structure.
func (e *InterpreterError) ToDiagnostic() diag.Diagnostic {
	span := parser.SpanOf(e.Range)
	d := diag.Diagnostic{
		Stage:      diag.StageInterpreter,
		Severity:   diag.SeverityError,
		Code:       e.Code,
		Message:    e.Message,
		Span:       span,
		Suggestion: e.Suggestion,
	}
	if span.IsValid() {
		d = d.WithPrimarySpan(span, "")
	}
	return d
}

func errorf(rng lexer.Range, code diag.Code, format string, args ...any) *InterpreterError {
	return &InterpreterError{
		Message: fmt.Sprintf(format, args...),
		Range:   rng,
		Code:    code,
	}
}

// wrap attaches rng to a runtime failure.
func wrap(err error, rng lexer.Range) *InterpreterError {
	code := diag.CodeRuntimeError
	var rerr *runtime.Error
	var unsupported *runtime.UnsupportedError
	var sig *runtime.ControlSignal
	switch {
	case errors.As(err, &rerr):
		code = rerr.Code
	case errors.As(err, &unsupported):
		code = diag.CodeRuntimeUnsupported
	case errors.As(err, &sig):
		code = diag.CodeRuntimeControlFlow
	}
	return &InterpreterError{
		Message: err.Error(),
		Range:   rng,
		Code:    code,
		Err:     err,
	}
}

// unbound reports a missing name with the closest visible match.
func unbound(name string, rng lexer.Range, scope runtime.Scope) *InterpreterError {
	e := errorf(rng, diag.CodeRuntimeUnboundName, "no variable named %s", name)
	if match := closestName(name, scope.Names()); match != "" {
		e.Suggestion = fmt.Sprintf("did you mean `%s`?", match)
	}
	return e
}

// closestName ranks candidates by fuzzy match, falling back to edit
// distance for transposed or mistyped letters.
func closestName(target string, candidates []string) string {
	candidates = slices.DeleteFunc(slices.Clone(candidates), func(c string) bool {
		return c == runtime.ParamsName || c == target
	})
	if len(candidates) == 0 {
		return ""
	}

	if ranks := fuzzy.RankFindFold(target, candidates); len(ranks) > 0 {
		slices.SortStableFunc(ranks, func(a, b fuzzy.Rank) int { return a.Distance - b.Distance })
		return ranks[0].Target
	}

	best, bestDist := "", 3
	for _, c := range candidates {
		if d := fuzzy.LevenshteinDistance(target, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
