package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mim-lang/mim/internal/config"
	"github.com/mim-lang/mim/internal/diag"
)

type cliResult struct {
	code   int
	stdout string
	stderr string
}

// mim runs the CLI against a throwaway config so nothing from the host
// leaks in.
func mim(t *testing.T, stdin string, args ...string) cliResult {
	t.Helper()
	cfgPath := writeFile(t, t.TempDir(), "mim.yaml", "log_level: error\ncolor: false\n")

	var stdout, stderr bytes.Buffer
	code := run(append([]string{"--config", cfgPath}, args...), strings.NewReader(stdin), &stdout, &stderr)
	return cliResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestRunScript(t *testing.T) {
	script := writeFile(t, t.TempDir(), "hello.mim", `
var name = stdstream;
stdstream = "hello " + name;
repeat 2 as i { stdstream = i; }
`)

	r := mim(t, "mim\n", "run", script)
	if r.code != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr %q)", r.code, r.stderr)
	}
	if r.stdout != "hello mim\n1\n2\n" {
		t.Fatalf("unexpected stdout %q", r.stdout)
	}
}

func TestRunExitCode(t *testing.T) {
	script := writeFile(t, t.TempDir(), "exit.mim", "stdstream = 1; exit(3); stdstream = 2;")

	r := mim(t, "", "run", script)
	if r.code != 3 {
		t.Fatalf("expected exit code 3, got %d", r.code)
	}
	if r.stdout != "1\n" {
		t.Fatalf("unexpected stdout %q", r.stdout)
	}
	if r.stderr != "" {
		t.Fatalf("expected no diagnostics, got %q", r.stderr)
	}
}

func TestRunReportsDiagnostics(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		src  string
		want []string
	}{
		{"var total = 1;\nstdstream = totl;\n", []string{
			"error[RUNTIME_UNBOUND_NAME]: no variable named totl",
			"runtime.mim:2:13",
			"2 | stdstream = totl;",
			"help: did you mean `total`?",
		}},
		{"var a = 1\n", []string{
			"error[PARSE_EXPECTED]: expected ';' after variable declaration",
		}},
		{"var s = \"open;\n", []string{
			"error[LEXER_UNTERMINATED_STRING]",
		}},
	}

	for i, tt := range tests {
		script := writeFile(t, dir, "runtime.mim", tt.src)
		r := mim(t, "", "run", script)
		if r.code != 1 {
			t.Fatalf("tests[%d] - expected exit code 1, got %d", i, r.code)
		}
		for _, want := range tt.want {
			if !strings.Contains(r.stderr, want) {
				t.Fatalf("tests[%d] - expected %q in stderr:\n%s", i, want, r.stderr)
			}
		}
	}
}

func TestRunMissingFile(t *testing.T) {
	r := mim(t, "", "run", filepath.Join(t.TempDir(), "nope.mim"))
	if r.code != 1 {
		t.Fatalf("expected exit code 1, got %d", r.code)
	}
	if !strings.Contains(r.stderr, "no such file") {
		t.Fatalf("unexpected stderr %q", r.stderr)
	}
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{nil, "Usage: mim"},
		{[]string{"compile"}, "Unknown command: compile"},
		{[]string{"run"}, "Usage: mim run <file>"},
		{[]string{"fmt", "a.mim", "b.mim"}, "Usage: mim fmt [-w] <file>"},
	}

	for i, tt := range tests {
		r := mim(t, "", tt.args...)
		if r.code != 2 {
			t.Fatalf("tests[%d] - expected exit code 2, got %d", i, r.code)
		}
		if !strings.Contains(r.stderr, tt.want) {
			t.Fatalf("tests[%d] - expected %q in stderr, got %q", i, tt.want, r.stderr)
		}
	}
}

func TestBadConfig(t *testing.T) {
	cfgPath := writeFile(t, t.TempDir(), "mim.yaml", "max_depth: -4\n")

	var stdout, stderr bytes.Buffer
	code := run([]string{"--config", cfgPath, "repl"}, strings.NewReader(""), &stdout, &stderr)
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "max_depth must be positive, got -4") {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}
}

func TestConfigStdstream(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "mim.yaml", "color: false\nstdstream:\n  end: \";\"\n  sep: \"|\"\n")
	script := writeFile(t, dir, "out.mim", "stdstream(1, 2); stdstream = 3;")

	var stdout, stderr bytes.Buffer
	code := run([]string{"--config", cfgPath, "run", script}, strings.NewReader(""), &stdout, &stderr)
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr %q)", code, stderr.String())
	}
	if stdout.String() != "1|2;3;" {
		t.Fatalf("unexpected stdout %q", stdout.String())
	}
}

func TestFmt(t *testing.T) {
	dir := t.TempDir()
	script := writeFile(t, dir, "messy.mim", "var   x=1 ;func   f(a){a+x;}\nstdstream=f(2) ;")

	first := mim(t, "", "fmt", script)
	if first.code != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr %q)", first.code, first.stderr)
	}
	if first.stdout == "" || strings.Contains(first.stdout, "   x") {
		t.Fatalf("unexpected formatted output %q", first.stdout)
	}

	formatted := writeFile(t, dir, "formatted.mim", first.stdout)
	second := mim(t, "", "fmt", formatted)
	if second.stdout != first.stdout {
		t.Fatalf("fmt is not idempotent:\n%s\nvs\n%s", first.stdout, second.stdout)
	}

	if r := mim(t, "", "fmt", "-w", script); r.code != 0 || r.stdout != "" {
		t.Fatalf("unexpected fmt -w result %+v", r)
	}
	data, err := os.ReadFile(script)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != first.stdout {
		t.Fatalf("expected file to be rewritten, got %q", data)
	}

	if r := mim(t, "", "run", script); r.stdout != "3\n" {
		t.Fatalf("formatted script printed %q", r.stdout)
	}
}

func TestAst(t *testing.T) {
	script := writeFile(t, t.TempDir(), "tree.mim", "var a = 1;")

	r := mim(t, "", "ast", script)
	if r.code != 0 {
		t.Fatalf("expected exit code 0, got %d", r.code)
	}
	want := "Var a [1:1-1:11]\n  Int 1 [1:9-1:10]\n"
	if r.stdout != want {
		t.Fatalf("expected %q, got %q", want, r.stdout)
	}
}

func TestTestCommand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "math_test.mim", "var x = 2 + 2; if x != 4 { exit(1); }")
	writeFile(t, dir, "nested/exit_test.mim", "exit(0); stdstream = unreachable;")
	writeFile(t, dir, "broken_test.mim", "stdstream = \"before\"; stdstream = missing;")
	writeFile(t, dir, "helper.mim", "stdstream = missing;")
	writeFile(t, dir, ".hidden/skip_test.mim", "stdstream = missing;")

	r := mim(t, "", "test", dir)
	if r.code != 1 {
		t.Fatalf("expected exit code 1, got %d", r.code)
	}
	for _, want := range []string{
		"✓ " + filepath.Join(dir, "math_test.mim"),
		"✓ " + filepath.Join(dir, "nested", "exit_test.mim"),
		"✗ " + filepath.Join(dir, "broken_test.mim"),
		"no variable named missing",
		"Output: before",
		"Test Results: 3 total, 2 passed, 1 failed",
	} {
		if !strings.Contains(r.stdout, want) {
			t.Fatalf("expected %q in output:\n%s", want, r.stdout)
		}
	}
	if strings.Contains(r.stdout, "skip_test.mim") || strings.Contains(r.stdout, "helper.mim") {
		t.Fatalf("unexpected script picked up:\n%s", r.stdout)
	}
}

func TestTestCommandNoFiles(t *testing.T) {
	dir := t.TempDir()
	r := mim(t, "", "test", dir)
	if r.code != 0 {
		t.Fatalf("expected exit code 0, got %d", r.code)
	}
	if !strings.Contains(r.stdout, "No test files found in "+dir) {
		t.Fatalf("unexpected output %q", r.stdout)
	}
}

func TestLspCommand(t *testing.T) {
	frame := func(body string) string {
		return "Content-Length: " + itoa(len(body)) + "\r\n\r\n" + body
	}
	in := frame(`{"jsonrpc":"2.0","id":1,"method":"shutdown"}`) +
		frame(`{"jsonrpc":"2.0","method":"exit"}`)

	r := mim(t, in, "lsp")
	if r.code != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr %q)", r.code, r.stderr)
	}
	if !strings.Contains(r.stdout, `"id":1`) {
		t.Fatalf("expected a shutdown response, got %q", r.stdout)
	}

	r = mim(t, frame(`{"jsonrpc":"2.0","method":"exit"}`), "lsp")
	if r.code != 1 {
		t.Fatalf("expected exit code 1 for exit without shutdown, got %d", r.code)
	}
}

func itoa(n int) string {
	var b []byte
	for {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
		if n == 0 {
			return string(b)
		}
	}
}

func newTestSession(t *testing.T, stdin string) (*session, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	a := &app{
		stdin:  strings.NewReader(stdin),
		stdout: &stdout,
		stderr: &stderr,
		cfg:    config.Default(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	s, err := a.newSession()
	if err != nil {
		t.Fatalf("newSession: %v", err)
	}
	s.diags = diag.NewFormatter(&stderr, false)
	return s, &stdout, &stderr
}

func TestSessionKeepsState(t *testing.T) {
	s, stdout, stderr := newTestSession(t, "")

	inputs := []struct {
		src  string
		want string
	}{
		{"var a = 2;", ""},
		{"func double(n) { n * 2; }", ""},
		{"double(a)", "4\n"},
		{"a += 1;", ""},
		{"list { a; double(a); }", "[3, 6]\n"},
		{"if a > 1 { stdstream = \"big\"; }", "big\n"},
	}

	for i, in := range inputs {
		stdout.Reset()
		if code, done := s.eval(in.src); done {
			t.Fatalf("inputs[%d] - session ended with code %d", i, code)
		}
		if stdout.String() != in.want {
			t.Fatalf("inputs[%d] - expected %q, got %q (stderr %q)", i, in.want, stdout.String(), stderr.String())
		}
	}
}

func TestSessionReportsAndRecovers(t *testing.T) {
	s, stdout, stderr := newTestSession(t, "")

	if _, done := s.eval("stdstream = nope;"); done {
		t.Fatal("session ended on a runtime error")
	}
	if !strings.Contains(stderr.String(), "<repl:1>:1:13") {
		t.Fatalf("expected a located diagnostic, got %q", stderr.String())
	}

	s.eval("var ok = 1;")
	s.eval("ok")
	if stdout.String() != "1\n" {
		t.Fatalf("expected session to keep going, got %q", stdout.String())
	}

	code, done := s.eval("exit(7);")
	if !done || code != 7 {
		t.Fatalf("expected exit(7) to end the session, got done=%v code=%d", done, code)
	}
}

func TestUnbalanced(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"var a = 1;", false},
		{"func f(a) {", true},
		{"func f(a) {\n  a;\n}", false},
		{"stdstream(1,", true},
		{"when (x) { case (1) { 1; }", true},
		{`var s = "{";`, false},
		{"# comment {", false},
		{"}", false},
	}

	for i, tt := range tests {
		if got := unbalanced(tt.src); got != tt.want {
			t.Fatalf("tests[%d] %q - expected %v, got %v", i, tt.src, tt.want, got)
		}
	}
}
