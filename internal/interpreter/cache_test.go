package interpreter

import (
	"testing"

	"github.com/mim-lang/mim/internal/parser"
	"github.com/mim-lang/mim/internal/runtime"
)

func TestBalancedCacheReleasedAfterRun(t *testing.T) {
	scope := runtime.NewRoot("global")
	in := New()

	tests := []struct {
		src  string
		want string
	}{
		{"func f(x) { x + 2 * 3; }", ""},
		{"f(1) + 1 * 2", "9"},
		{"f(2) - 4 / 2", "6"},
	}
	for i, tt := range tests {
		nodes, err := parser.ParseString(tt.src)
		if err != nil {
			t.Fatalf("tests[%d] - unexpected parse error: %v", i, err)
		}
		v, err := in.Run(nodes, scope)
		if err != nil {
			t.Fatalf("tests[%d] - unexpected run error: %v", i, err)
		}
		if got := runtime.Format(v); tt.want != "" && got != tt.want {
			t.Fatalf("tests[%d] - expected=%s, got=%s", i, tt.want, got)
		}
		if len(in.balanced) != 0 {
			t.Fatalf("tests[%d] - expected an empty cache after Run, got %d entries", i, len(in.balanced))
		}
	}
}
