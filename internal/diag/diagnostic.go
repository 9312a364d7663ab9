package diag

import "fmt"

// Stage identifies which pipeline phase produced the diagnostic.
type Stage string

const (
	StageLexer       Stage = "lexer"
	StageParser      Stage = "parser"
	StageInterpreter Stage = "interpreter"
	StageConfig      Stage = "config"
)

// Severity captures how impactful the diagnostic is.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityNote    Severity = "note"
)

// LabeledSpan represents a span with an optional label (like Rust's primary/secondary labels).
type LabeledSpan struct {
	Span  Span
	Label string
	Style string // "primary" or "secondary"
}

// Code is a stable identifier for a diagnostic.
type Code string

const (
	// Lexer errors
	CodeLexerInvalidCharacter   Code = "LEXER_INVALID_CHARACTER"
	CodeLexerUnterminatedString Code = "LEXER_UNTERMINATED_STRING"
	CodeLexerUnterminatedEscape Code = "LEXER_UNTERMINATED_ESCAPE"

	// Parser errors
	CodeParseNoMatch  Code = "PARSE_NO_MATCH"
	CodeParseExpected Code = "PARSE_EXPECTED"

	// Interpreter errors
	CodeRuntimeUnboundName   Code = "RUNTIME_UNBOUND_NAME"
	CodeRuntimeDuplicate     Code = "RUNTIME_DUPLICATE_BINDING"
	CodeRuntimeTypeMismatch  Code = "RUNTIME_TYPE_MISMATCH"
	CodeRuntimeUnsupported   Code = "RUNTIME_UNSUPPORTED"
	CodeRuntimeArity         Code = "RUNTIME_ARITY"
	CodeRuntimeControlFlow   Code = "RUNTIME_CONTROL_FLOW"
	CodeRuntimeDepthExceeded Code = "RUNTIME_DEPTH_EXCEEDED"
	CodeRuntimeError         Code = "RUNTIME_ERROR"
)

// Span represents a location in source code.
type Span struct {
	Filename string
	Line     int
	Column   int
	Start    int
	End      int
}

// String returns a human-readable representation of the span.
func (s Span) String() string {
	if s.Filename != "" {
		return fmt.Sprintf("%s:%d:%d", s.Filename, s.Line, s.Column)
	}
	return fmt.Sprintf("%d:%d", s.Line, s.Column)
}

// IsValid returns true if the span has valid location information.
func (s Span) IsValid() bool {
	return s.Line > 0 && s.Column > 0
}

// Diagnostic is a diagnostic surfaced to end-users.
type Diagnostic struct {
	Stage        Stage
	Severity     Severity
	Code         Code
	Message      string
	Span         Span
	Suggestion   string
	LabeledSpans []LabeledSpan
	Notes        []string
	Help         string
}

// Error lets a Diagnostic travel as an error value.
func (d Diagnostic) Error() string {
	if span, ok := d.primarySpan(); ok {
		return fmt.Sprintf("%s: %s", span, d.Message)
	}
	return d.Message
}

// primarySpan is Span, or the first primary labeled span when Span is unset.
func (d Diagnostic) primarySpan() (Span, bool) {
	if d.Span.IsValid() {
		return d.Span, true
	}
	for _, ls := range d.LabeledSpans {
		if ls.Style == "primary" && ls.Span.IsValid() {
			return ls.Span, true
		}
	}
	return Span{}, false
}

// WithSuggestion returns a new diagnostic with the given suggestion.
func (d Diagnostic) WithSuggestion(suggestion string) Diagnostic {
	d.Suggestion = suggestion
	return d
}

// WithLabeledSpan adds a labeled span to the diagnostic.
func (d Diagnostic) WithLabeledSpan(span Span, label string, style string) Diagnostic {
	if style == "" {
		style = "primary"
	}
	d.LabeledSpans = append(d.LabeledSpans, LabeledSpan{
		Span:  span,
		Label: label,
		Style: style,
	})
	return d
}

// WithPrimarySpan adds a primary labeled span.
func (d Diagnostic) WithPrimarySpan(span Span, label string) Diagnostic {
	return d.WithLabeledSpan(span, label, "primary")
}

// WithSecondarySpan adds a secondary labeled span.
func (d Diagnostic) WithSecondarySpan(span Span, label string) Diagnostic {
	return d.WithLabeledSpan(span, label, "secondary")
}

// WithNote adds a note to the diagnostic.
func (d Diagnostic) WithNote(note string) Diagnostic {
	d.Notes = append(d.Notes, note)
	return d
}

// WithHelp adds help text to the diagnostic.
func (d Diagnostic) WithHelp(help string) Diagnostic {
	d.Help = help
	return d
}
