package config_test

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mim-lang/mim/internal/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

func TestDecodeDefaults(t *testing.T) {
	cfg, err := config.Decode(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Level() != slog.LevelWarn {
		t.Fatalf("expected warn level, got %v", cfg.Level())
	}
	if !cfg.ColorEnabled() {
		t.Fatalf("expected color by default")
	}
	if cfg.MaxDepth != 2048 {
		t.Fatalf("expected max depth 2048, got %d", cfg.MaxDepth)
	}
	if cfg.End() != "\n" || cfg.Sep() != " " {
		t.Fatalf("unexpected stdstream defaults %q %q", cfg.End(), cfg.Sep())
	}
	if cfg.REPL.Prompt != "==> " || cfg.REPL.Continue != "... " {
		t.Fatalf("unexpected prompts %q %q", cfg.REPL.Prompt, cfg.REPL.Continue)
	}
}

func TestDecodeOverrides(t *testing.T) {
	src := `
log_level: debug
color: false
max_depth: 64
stdstream:
  end: ""
  sep: ", "
repl:
  prompt: "mim> "
  history: /tmp/mim-history
`
	cfg, err := config.Decode(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Level() != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v", cfg.Level())
	}
	if cfg.ColorEnabled() {
		t.Fatalf("expected color to be disabled")
	}
	if cfg.MaxDepth != 64 {
		t.Fatalf("expected max depth 64, got %d", cfg.MaxDepth)
	}
	if cfg.End() != "" {
		t.Fatalf("expected an explicit empty end to win, got %q", cfg.End())
	}
	if cfg.Sep() != ", " {
		t.Fatalf("expected sep %q, got %q", ", ", cfg.Sep())
	}
	if cfg.REPL.Prompt != "mim> " || cfg.REPL.Continue != "... " {
		t.Fatalf("unexpected prompts %q %q", cfg.REPL.Prompt, cfg.REPL.Continue)
	}
	if cfg.REPL.History != "/tmp/mim-history" {
		t.Fatalf("unexpected history %q", cfg.REPL.History)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"colour: true\n", "field colour not found"},
		{"stdstream:\n  ending: x\n", "field ending not found"},
		{"log_level: loud\n", `unknown log_level "loud"`},
		{"max_depth: -1\n", "max_depth must be positive, got -1"},
		{"max_depth: [1]\n", "cannot unmarshal"},
	}
	for i, tt := range tests {
		_, err := config.Decode(strings.NewReader(tt.src))
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Fatalf("tests[%d] - expected error containing %q, got %v", i, tt.want, err)
		}
	}
}

func TestLoadFileValidationError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.yaml", "log_level: loud\nmax_depth: 0\n")

	_, err := config.LoadFile(path)
	var verr *config.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *config.ValidationError, got %v", err)
	}
	if verr.Path != path {
		t.Fatalf("expected path %s, got %s", path, verr.Path)
	}
	if len(verr.Issues) != 1 {
		t.Fatalf("expected 1 issue, got %d: %v", len(verr.Issues), verr.Issues)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	explicit := writeFile(t, dir, "explicit.yaml", "max_depth: 10\n")
	fromEnv := writeFile(t, dir, "env.yaml", "max_depth: 20\n")
	t.Setenv(config.EnvVar, fromEnv)

	cfg, err := config.Load(explicit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxDepth != 10 || cfg.Path != explicit {
		t.Fatalf("expected the explicit file to win, got depth %d from %s", cfg.MaxDepth, cfg.Path)
	}

	cfg, err = config.Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxDepth != 20 || cfg.Path != fromEnv {
		t.Fatalf("expected the env file to win, got depth %d from %s", cfg.MaxDepth, cfg.Path)
	}
}

func TestLoadMissing(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.EnvVar, filepath.Join(dir, "absent.yaml"))

	if _, err := config.Load(filepath.Join(dir, "nope.yaml")); err == nil {
		t.Fatalf("expected a missing explicit file to fail")
	}

	candidates := config.Candidates("")
	if candidates[0] != filepath.Join(dir, "absent.yaml") || candidates[1] != config.FileName {
		t.Fatalf("unexpected candidate order %v", candidates)
	}
}
