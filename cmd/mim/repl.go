package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"github.com/mim-lang/mim/internal/ast"
	"github.com/mim-lang/mim/internal/diag"
	"github.com/mim-lang/mim/internal/interpreter"
	"github.com/mim-lang/mim/internal/lexer"
	"github.com/mim-lang/mim/internal/parser"
	"github.com/mim-lang/mim/internal/runtime"
	"github.com/mim-lang/mim/internal/stdlib"
)

const banner = "mim REPL\nCtrl+C cancels input, Ctrl+D exits. Type :quit to exit."

// session evaluates REPL inputs against one persistent global scope.
type session struct {
	interp *interpreter.Interpreter
	scope  runtime.Scope
	diags  *diag.Formatter
	out    io.Writer
	inputs int
}

func (a *app) newSession() (*session, error) {
	scope, err := a.newRoot(a.stdout)
	if err != nil {
		return nil, err
	}
	return &session{
		interp: a.newInterpreter(),
		scope:  scope,
		diags:  a.formatter(),
		out:    a.stdout,
	}, nil
}

// eval runs one input. A trailing bare expression has its value echoed.
// It reports whether the session should continue and, if not, the exit
// code.
func (s *session) eval(src string) (code int, done bool) {
	s.inputs++
	name := fmt.Sprintf("<repl:%d>", s.inputs)
	s.diags.AddSource(name, src)

	nodes, err := parser.ParseString(src, parser.WithFilename(name))
	if err != nil {
		s.diags.Format(diagnose(err))
		return 0, false
	}
	v, err := s.interp.Run(nodes, s.scope)
	if err != nil {
		var exitErr *stdlib.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code, true
		}
		s.diags.Format(diagnose(err))
		return 0, false
	}
	if len(nodes) > 0 && echoes(nodes[len(nodes)-1]) {
		fmt.Fprintln(s.out, runtime.Format(v))
	}
	return 0, false
}

func echoes(n ast.Node) bool {
	switch n.(type) {
	case *ast.Statement, *ast.VarDecl, *ast.FuncDecl, *ast.IfStmt,
		*ast.RepeatLoop, *ast.WhileLoop, *ast.DoWhileLoop, *ast.ForLoop:
		return false
	}
	return true
}

// unbalanced reports whether src leaves a brace or paren open, meaning
// more lines are needed before it can parse.
func unbalanced(src string) bool {
	l := lexer.New(src)
	depth := 0
	for {
		tok := l.NextToken()
		if len(l.Errors) > 0 {
			return false
		}
		switch tok.Type {
		case lexer.LBRACE, lexer.LPAREN:
			depth++
		case lexer.RBRACE, lexer.RPAREN:
			depth--
		case lexer.EOF:
			return depth > 0
		}
	}
}

// readInput prompts until the collected lines are balanced. ok is false
// once the input ends.
func readInput(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder
	for {
		p := prompt
		if b.Len() > 0 {
			p = cont
		}
		line, err := ln.Prompt(p)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			// Ctrl+C drops the pending input.
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		if !unbalanced(b.String()) {
			return b.String(), true
		}
	}
}

func (a *app) cmdRepl(args []string) int {
	fs := flag.NewFlagSet("repl", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	s, err := a.newSession()
	if err != nil {
		return report(a.formatter(), err)
	}
	fmt.Fprintln(a.stdout, banner)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	history := a.cfg.REPL.History
	if history != "" {
		if f, err := os.Open(history); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer a.saveHistory(ln, history)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	for {
		src, ok := readInput(ln, a.cfg.REPL.Prompt, a.cfg.REPL.Continue)
		if !ok {
			fmt.Fprintln(a.stdout)
			return 0
		}
		trimmed := strings.TrimSpace(src)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			if trimmed == ":quit" {
				return 0
			}
			fmt.Fprintln(a.stdout, "unknown command. Type :quit to exit.")
			continue
		}

		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))
		if code, done := s.eval(src); done {
			return code
		}
	}
}

func (a *app) saveHistory(ln *liner.State, path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		a.logger.Warn("cannot create history directory", slog.String("path", path), slog.Any("error", err))
		return
	}
	f, err := os.Create(path)
	if err != nil {
		a.logger.Warn("cannot write history", slog.String("path", path), slog.Any("error", err))
		return
	}
	defer f.Close()
	if _, err := ln.WriteHistory(f); err != nil {
		a.logger.Warn("cannot write history", slog.String("path", path), slog.Any("error", err))
	}
}
