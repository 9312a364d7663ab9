package diag

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiBlue  = "\x1b[34m"
	ansiBold  = "\x1b[1m"
)

// Formatter formats diagnostics in a Rust-style format with source code snippets.
type Formatter struct {
	out         io.Writer
	color       bool
	sourceCache map[string]string // Cache of source files by filename
}

// NewFormatter creates a new diagnostic formatter writing to out.
func NewFormatter(out io.Writer, color bool) *Formatter {
	return &Formatter{
		out:         out,
		color:       color,
		sourceCache: make(map[string]string),
	}
}

// AddSource registers in-memory source text for a filename, so snippets can be
// rendered for buffers that never touched disk (REPL input, LSP documents).
func (f *Formatter) AddSource(filename, src string) {
	f.sourceCache[filename] = src
}

// LoadSource loads source code for a file (cached).
func (f *Formatter) LoadSource(filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("no source for unnamed span")
	}
	if src, ok := f.sourceCache[filename]; ok {
		return src, nil
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}
	src := string(data)
	f.sourceCache[filename] = src
	return src, nil
}

func (f *Formatter) paint(code, s string) string {
	if !f.color {
		return s
	}
	return code + s + ansiReset
}

// Format formats and prints a diagnostic in Rust-style format.
func (f *Formatter) Format(d Diagnostic) {
	spans := f.collectSpans(d)
	if len(spans) == 0 {
		f.formatSimple(d)
		return
	}

	spansByFile := make(map[string][]LabeledSpan)
	var files []string
	for _, span := range spans {
		filename := span.Span.Filename
		if _, seen := spansByFile[filename]; !seen {
			files = append(files, filename)
		}
		spansByFile[filename] = append(spansByFile[filename], span)
	}

	for _, filename := range files {
		if _, err := f.LoadSource(filename); err != nil {
			f.formatSimple(d)
			return
		}
	}

	f.printHeader(d)
	for _, filename := range files {
		src, _ := f.LoadSource(filename)
		f.printFileSpans(filename, src, spansByFile[filename])
	}
	f.printHelp(d)
}

// collectSpans collects all spans from the diagnostic, prioritizing LabeledSpans.
func (f *Formatter) collectSpans(d Diagnostic) []LabeledSpan {
	if len(d.LabeledSpans) > 0 {
		return d.LabeledSpans
	}
	if d.Span.IsValid() {
		return []LabeledSpan{{Span: d.Span, Style: "primary"}}
	}
	return nil
}

// printHeader prints the error header (error[CODE]: message).
func (f *Formatter) printHeader(d Diagnostic) {
	severity := string(d.Severity)
	if severity == "" {
		severity = "error"
	}
	color := ansiRed
	if d.Severity == SeverityNote {
		color = ansiBlue
	}

	if d.Code != "" {
		fmt.Fprintf(f.out, "%s: %s\n", f.paint(ansiBold+color, fmt.Sprintf("%s[%s]", severity, d.Code)), d.Message)
	} else {
		fmt.Fprintf(f.out, "%s: %s\n", f.paint(ansiBold+color, severity), d.Message)
	}
}

// printFileSpans prints source code with underlines for spans in a file.
func (f *Formatter) printFileSpans(filename string, src string, spans []LabeledSpan) {
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Span.Line != spans[j].Span.Line {
			return spans[i].Span.Line < spans[j].Span.Line
		}
		return spans[i].Span.Column < spans[j].Span.Column
	})

	spansByLine := make(map[int][]LabeledSpan)
	lines := strings.Split(src, "\n")
	maxLine := len(lines)

	for _, span := range spans {
		line := span.Span.Line
		if line > 0 && line <= maxLine {
			spansByLine[line] = append(spansByLine[line], span)
		}
	}

	lineNumbers := make([]int, 0, len(spansByLine))
	for line := range spansByLine {
		lineNumbers = append(lineNumbers, line)
	}
	sort.Ints(lineNumbers)

	if len(lineNumbers) == 0 {
		return
	}

	startLine := lineNumbers[0]
	endLine := lineNumbers[len(lineNumbers)-1]

	// two lines of context on each side
	contextStart := max(1, startLine-2)
	contextEnd := min(maxLine, endLine+2)

	lineNumWidth := len(fmt.Sprintf("%d", contextEnd))
	gutter := strings.Repeat(" ", lineNumWidth)

	if filename == "" {
		filename = "<input>"
	}
	fmt.Fprintf(f.out, "  %s %s:%d:%d\n", f.paint(ansiBlue, "-->"), filename, spans[0].Span.Line, spans[0].Span.Column)
	fmt.Fprintf(f.out, "   %s %s\n", gutter, f.paint(ansiBlue, "|"))

	for lineNum := contextStart; lineNum <= contextEnd; lineNum++ {
		lineContent := lines[lineNum-1]
		lineNumStr := fmt.Sprintf("%*d", lineNumWidth, lineNum)
		fmt.Fprintf(f.out, " %s %s %s\n", f.paint(ansiBlue, lineNumStr), f.paint(ansiBlue, "|"), lineContent)

		if lineSpans := spansByLine[lineNum]; len(lineSpans) > 0 {
			f.printUnderlines(lineNumWidth, lineContent, lineSpans)
		}
	}

	fmt.Fprintf(f.out, "   %s %s\n", gutter, f.paint(ansiBlue, "|"))
}

// printUnderlines prints underlines (^ primary, ~ secondary) for spans on a line.
func (f *Formatter) printUnderlines(lineNumWidth int, lineContent string, spans []LabeledSpan) {
	runes := []rune(lineContent)
	// one extra cell so spans at end of line (EOF, missing `;`) stay visible
	underline := make([]rune, len(runes)+1)
	for i := range underline {
		underline[i] = ' '
	}

	mark := func(style string, ch rune) {
		for _, span := range spans {
			if span.Style != style {
				continue
			}
			start := max(0, span.Span.Column-1)
			end := min(len(underline), start+max(1, span.Span.End-span.Span.Start))
			for i := start; i < end; i++ {
				if underline[i] == ' ' {
					underline[i] = ch
				}
			}
		}
	}
	mark("primary", '^')
	mark("secondary", '~')

	rightmost := -1
	for i := len(underline) - 1; i >= 0; i-- {
		if underline[i] != ' ' {
			rightmost = i
			break
		}
	}
	if rightmost == -1 {
		return
	}

	var labels []string
	for _, span := range spans {
		if span.Label != "" {
			labels = append(labels, span.Label)
		}
	}

	line := string(underline[:rightmost+1])
	if len(labels) > 0 {
		line += " " + strings.Join(labels, "; ")
	}
	fmt.Fprintf(f.out, "   %s %s %s\n", strings.Repeat(" ", lineNumWidth), f.paint(ansiBlue, "|"), f.paint(ansiRed, line))
}

// printHelp prints notes, help text and suggestions.
func (f *Formatter) printHelp(d Diagnostic) {
	for _, note := range d.Notes {
		fmt.Fprintf(f.out, "  = note: %s\n", note)
	}

	if d.Help != "" {
		fmt.Fprintf(f.out, "%s: %s\n", f.paint(ansiBold, "help"), d.Help)
	} else if d.Suggestion != "" {
		fmt.Fprintf(f.out, "%s: %s\n", f.paint(ansiBold, "help"), d.Suggestion)
	}
}

// formatSimple formats a diagnostic without source code (fallback).
func (f *Formatter) formatSimple(d Diagnostic) {
	f.printHeader(d)
	if d.Span.IsValid() {
		fmt.Fprintf(f.out, "  %s %s\n", f.paint(ansiBlue, "-->"), d.Span.String())
	}
	f.printHelp(d)
}
