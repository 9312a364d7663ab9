package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mim-lang/mim/internal/ast"
	"github.com/mim-lang/mim/internal/config"
	"github.com/mim-lang/mim/internal/diag"
	"github.com/mim-lang/mim/internal/interpreter"
	"github.com/mim-lang/mim/internal/lexer"
	"github.com/mim-lang/mim/internal/lsp"
	"github.com/mim-lang/mim/internal/parser"
	"github.com/mim-lang/mim/internal/runtime"
	"github.com/mim-lang/mim/internal/stdlib"
)

const usage = `Usage: mim [--config file] <command> [options]

Commands:
  run <file>         Run a mim script
  repl               Start an interactive session
  fmt [-w] <file>    Print a script in canonical form
  ast <file>         Dump the syntax tree of a script
  test [path ...]    Run *_test.mim scripts
  lsp                Serve the language server protocol on stdio

Options:
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// app carries what every subcommand shares.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	cfg    *config.Config
	logger *slog.Logger
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("mim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a mim.yaml file")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		diag.NewFormatter(stderr, false).Format(diag.Diagnostic{
			Stage:    diag.StageConfig,
			Severity: diag.SeverityError,
			Message:  err.Error(),
		})
		return 1
	}

	a := &app{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.Level()})),
	}
	a.logger.Debug("config loaded", slog.String("path", cfg.Path), slog.String("log_level", cfg.LogLevel))

	command, rest := fs.Arg(0), fs.Args()[1:]
	switch command {
	case "run":
		return a.cmdRun(rest)
	case "repl":
		return a.cmdRepl(rest)
	case "fmt":
		return a.cmdFmt(rest)
	case "ast":
		return a.cmdAst(rest)
	case "test":
		return a.cmdTest(rest)
	case "lsp":
		return a.cmdLsp(rest)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		fs.Usage()
		return 2
	}
}

func (a *app) formatter() *diag.Formatter {
	return diag.NewFormatter(a.stderr, a.cfg.ColorEnabled())
}

func (a *app) newInterpreter() *interpreter.Interpreter {
	return interpreter.New(
		interpreter.WithLogger(a.logger),
		interpreter.WithMaxDepth(a.cfg.MaxDepth),
	)
}

// newRoot returns a global scope with the builtins writing to out.
func (a *app) newRoot(out io.Writer) (runtime.Scope, error) {
	scope := runtime.NewRoot("global")
	err := stdlib.Register(scope, &stdlib.Env{
		In:  a.stdin,
		Out: out,
		End: a.cfg.End(),
		Sep: a.cfg.Sep(),
	})
	return scope, err
}

// diagnose maps a stage error onto its diagnostic.
func diagnose(err error) diag.Diagnostic {
	var lerr *lexer.LexerError
	var perr *parser.ParseError
	var ierr *interpreter.InterpreterError
	switch {
	case errors.As(err, &lerr):
		return lerr.ToDiagnostic()
	case errors.As(err, &perr):
		return perr.ToDiagnostic()
	case errors.As(err, &ierr):
		return ierr.ToDiagnostic()
	}
	return diag.Diagnostic{Severity: diag.SeverityError, Message: err.Error()}
}

// report prints err and returns the process exit code it stands for.
// exit(n) is not a failure: its code is passed through.
func report(f *diag.Formatter, err error) int {
	var exitErr *stdlib.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	f.Format(diagnose(err))
	return 1
}

// readScript reads and parses path, registering its text with f so
// diagnostics can quote it.
func readScript(f *diag.Formatter, path string) ([]ast.Node, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f.AddSource(path, string(src))
	return parser.ParseString(string(src), parser.WithFilename(path))
}

func singleFile(fs *flag.FlagSet, args []string) (string, bool) {
	if err := fs.Parse(args); err != nil {
		return "", false
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return "", false
	}
	return fs.Arg(0), true
}

func (a *app) cmdRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.Usage = func() { fmt.Fprintln(a.stderr, "Usage: mim run <file>") }
	path, ok := singleFile(fs, args)
	if !ok {
		return 2
	}

	f := a.formatter()
	nodes, err := readScript(f, path)
	if err != nil {
		return report(f, err)
	}
	scope, err := a.newRoot(a.stdout)
	if err != nil {
		return report(f, err)
	}
	if _, err := a.newInterpreter().Run(nodes, scope); err != nil {
		return report(f, err)
	}
	return 0
}

func (a *app) cmdFmt(args []string) int {
	fs := flag.NewFlagSet("fmt", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	write := fs.Bool("w", false, "write the result back to the file")
	fs.Usage = func() {
		fmt.Fprintln(a.stderr, "Usage: mim fmt [-w] <file>")
		fs.PrintDefaults()
	}
	path, ok := singleFile(fs, args)
	if !ok {
		return 2
	}

	f := a.formatter()
	nodes, err := readScript(f, path)
	if err != nil {
		return report(f, err)
	}
	out := ast.Format(nodes)
	if !*write {
		fmt.Fprint(a.stdout, out)
		return 0
	}

	info, err := os.Stat(path)
	if err != nil {
		return report(f, err)
	}
	if err := os.WriteFile(path, []byte(out), info.Mode().Perm()); err != nil {
		return report(f, fmt.Errorf("fmt: write %s: %w", path, err))
	}
	return 0
}

func (a *app) cmdAst(args []string) int {
	fs := flag.NewFlagSet("ast", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.Usage = func() { fmt.Fprintln(a.stderr, "Usage: mim ast <file>") }
	path, ok := singleFile(fs, args)
	if !ok {
		return 2
	}

	f := a.formatter()
	nodes, err := readScript(f, path)
	if err != nil {
		return report(f, err)
	}
	ast.Dump(a.stdout, nodes)
	return 0
}

func (a *app) cmdLsp(args []string) int {
	fs := flag.NewFlagSet("lsp", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := lsp.NewServer(a.stdin, a.stdout, lsp.WithLogger(a.logger))
	if err := server.Run(ctx); err != nil {
		a.logger.Error("language server stopped", slog.Any("error", err))
		return 1
	}
	return 0
}
