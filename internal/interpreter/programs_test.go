package interpreter_test

import (
	"os"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/mim-lang/mim/internal/runtime"
)

type program struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`
	Want   string `yaml:"want"`
	Output string `yaml:"output"`
	Error  string `yaml:"error"`
}

func loadPrograms(t *testing.T, path string) []program {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	var programs []program
	if err := yaml.Unmarshal(data, &programs); err != nil {
		t.Fatalf("failed to decode %s: %v", path, err)
	}
	if len(programs) == 0 {
		t.Fatalf("no programs in %s", path)
	}
	return programs
}

func TestPrograms(t *testing.T) {
	for _, p := range loadPrograms(t, "testdata/programs.yaml") {
		t.Run(p.Name, func(t *testing.T) {
			r := exec(t, p.Source)

			if p.Error != "" {
				if r.err == nil {
					t.Fatalf("expected error containing %q, got value %s", p.Error, runtime.Format(r.value))
				}
				if !strings.Contains(r.err.Error(), p.Error) {
					t.Fatalf("expected error containing %q, got %q", p.Error, r.err.Error())
				}
				return
			}
			if r.err != nil {
				t.Fatalf("unexpected error: %v", r.err)
			}
			if p.Want != "" {
				if got := runtime.Format(r.value); got != p.Want {
					t.Fatalf("value - expected=%q, got=%q", p.Want, got)
				}
			}
			if p.Output != "" && r.out != p.Output {
				t.Fatalf("output - expected=%q, got=%q", p.Output, r.out)
			}
		})
	}
}
