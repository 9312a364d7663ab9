package interpreter_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/mim-lang/mim/internal/ast"
	"github.com/mim-lang/mim/internal/diag"
	"github.com/mim-lang/mim/internal/interpreter"
	"github.com/mim-lang/mim/internal/parser"
	"github.com/mim-lang/mim/internal/runtime"
	"github.com/mim-lang/mim/internal/stdlib"
)

type result struct {
	value runtime.Value
	out   string
	err   error
}

func exec(t *testing.T, src string, opts ...interpreter.Option) result {
	t.Helper()

	nodes, err := parser.ParseString(src)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	root := runtime.NewRoot("global")
	var out bytes.Buffer
	if err := stdlib.Register(root, &stdlib.Env{Out: &out, End: "\n", Sep: " "}); err != nil {
		t.Fatalf("unexpected register error: %v", err)
	}
	v, err := interpreter.New(opts...).Run(nodes, root)
	return result{value: v, out: out.String(), err: err}
}

func eval(t *testing.T, src string) runtime.Value {
	t.Helper()

	r := exec(t, src)
	if r.err != nil {
		t.Fatalf("unexpected error for %q: %v", src, r.err)
	}
	return r.value
}

func evalErr(t *testing.T, src string) *interpreter.InterpreterError {
	t.Helper()

	r := exec(t, src)
	if r.err == nil {
		t.Fatalf("expected an error for %q, got value %s", src, runtime.Format(r.value))
	}
	var ierr *interpreter.InterpreterError
	if !errors.As(r.err, &ierr) {
		t.Fatalf("expected *interpreter.InterpreterError, got %T: %v", r.err, r.err)
	}
	return ierr
}

func expectFormat(t *testing.T, src, want string) {
	t.Helper()

	if got := runtime.Format(eval(t, src)); got != want {
		t.Fatalf("%q - expected=%q, got=%q", src, want, got)
	}
}

func TestPrecedence(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"2 + 3 * 4", "14"},
		{"2 * 3 + 4", "10"},
		{"10 - 3 - 2", "5"},
		{"100 / 10 / 5", "2"},
		{"1 - 2 * 3 + 4", "-1"},
		{"2 * 3 + 4 * 5 - 6", "20"},
		{"2 ^ 3 ^ 2", "64.0"},
		{"1 + 2 == 3 && 4 > 3", "true"},
		{"1 << 2 + 1", "8"},
		{"6 & 3 + 1", "4"},
		{"(2 + 3) * 4", "20"},
		{"-2 * -3", "6"},
		{"7 % 4 * 2", "6"},
	}
	for i, tt := range tests {
		if got := runtime.Format(eval(t, tt.src)); got != tt.want {
			t.Fatalf("tests[%d] %q - expected=%q, got=%q", i, tt.src, tt.want, got)
		}
	}
}

func TestAssignmentIsRightAssociative(t *testing.T) {
	expectFormat(t, "var a; var b; a = b = 1 + 1; list { a; b; }", "[2, 2]")
}

func TestCompoundAssignment(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"var x = 10; x += 5; x", "15"},
		{"var x = 10; x -= 2 * 3; x", "4"},
		{"var x = 3; x *= 2 + 1; x", "9"},
		{"var x = 9; x /= 2; x", "4"},
		{"var x = 9; x %= 4; x", "1"},
		{"var x = 2; x ^= 3; x", "8.0"},
		{"var x = 6; x &= 3; x", "2"},
		{"var x = 4; x |= 1; x", "5"},
		{"var x = 1; x <<= 3; x", "8"},
		{"var x = 16; x >>= 2; x", "4"},
		{`var s = "a"; s += 1; s`, "a1"},
	}
	for i, tt := range tests {
		if got := runtime.Format(eval(t, tt.src)); got != tt.want {
			t.Fatalf("tests[%d] %q - expected=%q, got=%q", i, tt.src, tt.want, got)
		}
	}

	err := evalErr(t, "var x = 1; x ~= 2;")
	if !strings.Contains(err.Message, "unsupported operator ~=") {
		t.Fatalf("unexpected message %q", err.Message)
	}
}

func TestShortCircuit(t *testing.T) {
	if got := eval(t, "false && (1 / 0 == 0)"); got != false {
		t.Fatalf("expected false, got %v", got)
	}
	if got := eval(t, "true || (1 / 0 == 0)"); got != true {
		t.Fatalf("expected true, got %v", got)
	}
	if got := eval(t, "false || 1 < 2"); got != true {
		t.Fatalf("expected true, got %v", got)
	}

	err := evalErr(t, "true && (1 / 0 == 0)")
	if err.Message != "division by zero" {
		t.Fatalf("expected division by zero, got %q", err.Message)
	}

	err = evalErr(t, "1 && true")
	if !strings.Contains(err.Message, "must be boolean") {
		t.Fatalf("unexpected message %q", err.Message)
	}
}

func TestArithmeticSemantics(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"1 + 2.5", "3.5"},
		{"7 / 2", "3"},
		{"7 / 2.0", "3.5"},
		{"7.5 % 2", "1.5"},
		{`"a" + 1 + 2`, "a12"},
		{`1 + 2 + "a"`, "3a"},
		{`"ab" * 3`, "ababab"},
		{`2 * "xy"`, "xyxy"},
		{"~5", "-6"},
		{"!false", "true"},
		{"-1 >>> 60", "15"},
		{"true | false", "true"},
		{"5 | 2", "7"},
		{"1 == 1.0", "true"},
		{`"1" == 1`, "false"},
		{"list { 1; 2; } == list { 1; 2; }", "true"},
		{"null == null", "true"},
	}
	for i, tt := range tests {
		if got := runtime.Format(eval(t, tt.src)); got != tt.want {
			t.Fatalf("tests[%d] %q - expected=%q, got=%q", i, tt.src, tt.want, got)
		}
	}
}

func TestTypeErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`1 - "a"`, "unsupported operands for - operator: int and string"},
		{`"a" < "b"`, "unsupported operands for < operator"},
		{"!1", "operand of ! operator must be boolean"},
		{"~1.5", "operand of ~ operator must be integer"},
		{`-"a"`, "operand of - operator must be number"},
		{`"a" * -1`, "count must not be negative"},
		{`"ab" * 9223372036854775807`, "repetition count 9223372036854775807 too large"},
		{`4611686018427387904 * "ab"`, "repetition count 4611686018427387904 too large"},
		{"5 % 0", "modulo by zero"},
		{"if 1 { 2 }", "if condition must be boolean"},
		{"var i = 0; while i { }", "condition of while loop must be boolean"},
		{`repeat "x" { }`, "repeat count must be integer value"},
		{"for v in 3 { }", "only lists and strings are allowed"},
		{`for k, v in "ab" { }`, "only maps are allowed"},
		{"3++", "operand of ++ operator must be identifier"},
		{"1 = 2", "left hand side in an assignment"},
	}
	for i, tt := range tests {
		err := evalErr(t, tt.src)
		if !strings.Contains(err.Message, tt.want) {
			t.Fatalf("tests[%d] %q - expected message containing %q, got %q", i, tt.src, tt.want, err.Message)
		}
	}
}

func TestIncrementDecrement(t *testing.T) {
	expectFormat(t, "var x = 5; x++; x", "6")
	expectFormat(t, "var x = 5; x++", "5")
	expectFormat(t, "var x = 5; ++x", "6")
	expectFormat(t, "var x = 5; x--", "5")
	expectFormat(t, "var x = 5; --x", "4")
	expectFormat(t, "var f = 1.5; f++; f", "2.5")

	err := evalErr(t, "val k = 1; k++;")
	if !strings.Contains(err.Message, "constant") {
		t.Fatalf("unexpected message %q", err.Message)
	}
}

func TestDeclarations(t *testing.T) {
	err := evalErr(t, "var a = 1; var a = 2;")
	if err.Message != "variable a already exists" {
		t.Fatalf("unexpected message %q", err.Message)
	}
	if err.Code != diag.CodeRuntimeDuplicate {
		t.Fatalf("expected code %s, got %s", diag.CodeRuntimeDuplicate, err.Code)
	}

	expectFormat(t, "var a = 1; run { var a = 2; a }", "2")
	expectFormat(t, "var a = 1; run { var a = 2; }; a", "1")
	expectFormat(t, "var a; a", "null")
	expectFormat(t, "var a = 1; run { a = 5; }; a", "5")

	err = evalErr(t, "val c = 1; c = 2;")
	if err.Message != "cannot assign to constant c" {
		t.Fatalf("unexpected message %q", err.Message)
	}
}

func TestUnboundNameSuggestion(t *testing.T) {
	err := evalErr(t, "var counter = 1; countr + 1")
	if err.Message != "no variable named countr" {
		t.Fatalf("unexpected message %q", err.Message)
	}
	if err.Suggestion != "did you mean `counter`?" {
		t.Fatalf("unexpected suggestion %q", err.Suggestion)
	}
	if err.Range.Start.Column != 18 {
		t.Fatalf("expected error at column 18, got %d", err.Range.Start.Column)
	}

	err = evalErr(t, "var counter = 1; conuter")
	if err.Suggestion != "did you mean `counter`?" {
		t.Fatalf("unexpected suggestion %q", err.Suggestion)
	}
}

func TestFunctions(t *testing.T) {
	expectFormat(t, "func add(a, b) { a + b; } add(2, 3)", "5")
	expectFormat(t, "func empty { } empty()", "null")
	expectFormat(t, `
func fact(n) {
	if n <= 1 { 1 } else { n * fact(n - 1) }
}
fact(10)`, "3628800")

	err := evalErr(t, "func f(a) { a; } f(1, 2)")
	if err.Message != "expected 1 arguments, got 2" {
		t.Fatalf("unexpected message %q", err.Message)
	}

	err = evalErr(t, "func f { 1; } func f { 2; }")
	if err.Message != "variable f already exists" {
		t.Fatalf("unexpected message %q", err.Message)
	}
}

func TestFunctionScopeIsDynamic(t *testing.T) {
	expectFormat(t, `
func show { secret; }
func caller { var secret = "seen"; show(); }
caller()`, "seen")
}

func TestLambdasAndParams(t *testing.T) {
	expectFormat(t, "var f = func { __params__.size; }; f(1, 2, 3)", "3")
	expectFormat(t, "var twice = lambda { __params__.get(0) * 2; }; twice(21)", "42")
	expectFormat(t, "var f = func { 7; }; var g = f; g()", "7")
	expectFormat(t, "typeof(func { })", "function")
}

func TestMaxDepth(t *testing.T) {
	r := exec(t, "func loop { loop(); } loop()", interpreter.WithMaxDepth(50))
	var ierr *interpreter.InterpreterError
	if !errors.As(r.err, &ierr) {
		t.Fatalf("expected *interpreter.InterpreterError, got %v", r.err)
	}
	if ierr.Code != diag.CodeRuntimeDepthExceeded {
		t.Fatalf("expected code %s, got %s", diag.CodeRuntimeDepthExceeded, ierr.Code)
	}
}

func TestMemberAccess(t *testing.T) {
	expectFormat(t, "var l = list { 1; 2; }; l.add(3); l.size", "3")
	expectFormat(t, "var l = list { 1; 2; }; l.size()", "2")
	expectFormat(t, `var m = map { "a"; 1; }; m.b = 2; m.a + m.b`, "3")
	expectFormat(t, `var m = map { "a"; 1; }; m.a += 4; m`, "{a=5}")
	expectFormat(t, `var m = map { "inner"; map { "x"; 1; }; }; m.inner.x = 9; m`, "{inner={x=9}}")
	expectFormat(t, `var l = list { list { 1; }; }; l.get(0).size`, "1")
	expectFormat(t, `var s = "hey"; s.get(1)`, "e")

	err := evalErr(t, "var l = list { }; l.get(0).size = 1;")
	if !strings.Contains(err.Message, "out of bounds") {
		t.Fatalf("unexpected message %q", err.Message)
	}

	err = evalErr(t, "var l = list { }; l.size() = 1;")
	if err.Message != "cannot assign to member invocation" {
		t.Fatalf("unexpected message %q", err.Message)
	}

	err = evalErr(t, "var n = 1; n.nope()")
	if err.Message != "member nope is not supported on n" {
		t.Fatalf("unexpected message %q", err.Message)
	}
	if err.Code != diag.CodeRuntimeUnsupported {
		t.Fatalf("expected code %s, got %s", diag.CodeRuntimeUnsupported, err.Code)
	}
}

func TestIf(t *testing.T) {
	tests := []struct {
		x    string
		want string
	}{
		{"5", "big"},
		{"-1", "negative"},
		{"0", "zero"},
		{"2", "small"},
	}
	for i, tt := range tests {
		src := "var x = " + tt.x + `;
if x > 3 { "big" } elif x < 0 { "negative" } elif x == 0 { "zero" } else { "small" }`
		if got := runtime.Format(eval(t, src)); got != tt.want {
			t.Fatalf("tests[%d] - expected=%q, got=%q", i, tt.want, got)
		}
	}

	expectFormat(t, "if false { 1 }", "null")
	expectFormat(t, "if true { }", "null")
	expectFormat(t, "var y = if 1 < 2 { \"yes\" } else { \"no\" }; y", "yes")
}

func TestRepeat(t *testing.T) {
	expectFormat(t, "var l = list { }; repeat 3 as i { l.add(i); } l", "[1, 2, 3]")
	expectFormat(t, "var n = 0; repeat 4 { n++; } n", "4")
	expectFormat(t, "var n = 0; repeat -2 { n++; } n", "0")

	err := evalErr(t, "repeat 2 as i { i = 5; }")
	if !strings.Contains(err.Message, "constant i") {
		t.Fatalf("unexpected message %q", err.Message)
	}
}

func TestWhileAndDoWhile(t *testing.T) {
	expectFormat(t, "var i = 0; var s = 0; while i < 5 { i++; s += i; } s", "15")
	expectFormat(t, "var i = 10; var n = 0; do { n++; } while i < 5; n", "1")
	expectFormat(t, "var i = 0; do { i++; } while i < 3; i", "3")
}

func TestForLoops(t *testing.T) {
	expectFormat(t, `var m = map { "a"; 1; "b"; 2; }; var s = ""; for k, v in m { s += k + v; } s`, "a1b2")
	expectFormat(t, `var out = list { }; for c in "ab" { out.add(c); } out`, "[a, b]")
	expectFormat(t, `var sum = 0; for v in (list { 1; 2; 3; }) { sum += v; } sum`, "6")
	expectFormat(t, `var l = list { 1; 2; }; for v in l { l.add(v); } l`, "[1, 2, 1, 2]")
}

func TestWhen(t *testing.T) {
	expectFormat(t, `when (6) == { case (6) { "six" } default { "other" } }`, "six")
	expectFormat(t, `when (7) == { case (6) { "six" } default { "other" } }`, "other")
	expectFormat(t, `when (7) == { case (6) { "six" } }`, "null")

	src := `
func classify(x) {
	when (x) {
		case == (0) { "zero" }
		case < (0) || > (100) { "out" }
		case >= (1) && <= (9) { "digit" }
		default { "number" }
	}
}
list { classify(0); classify(-5); classify(500); classify(4); classify(42); }`
	expectFormat(t, src, "[zero, out, out, digit, number]")

	err := evalErr(t, `when (1) { case (1) { "x" } }`)
	if err.Message != "no operator found to check case condition" {
		t.Fatalf("unexpected message %q", err.Message)
	}
}

func TestWhenEvaluatesOperandOnce(t *testing.T) {
	src := `
var calls = 0;
func next { calls++; calls; }
when (next()) == { case (5) { } case (6) { } case (1) { } }
calls`
	expectFormat(t, src, "1")
}

func TestBreakAndContinue(t *testing.T) {
	expectFormat(t, "var n = 0; repeat 10 as i { if i == 4 { break; } n++; } n", "3")
	expectFormat(t, "var l = list { }; repeat 5 as i { if i % 2 == 0 { continue; } l.add(i); } l", "[1, 3, 5]")
	expectFormat(t, "var n = 0; while true { n++; if n == 3 { break; } } n", "3")
	expectFormat(t, "var n = 0; repeat { n++; if n >= 7 { break; } }; n", "7")
	expectFormat(t, `var seen = ""; for c in "abc" { if c == "b" { continue; } seen += c; } seen`, "ac")
}

func TestWeightedBreakLeavesExtraLevels(t *testing.T) {
	src := `
var trace = list { };
repeat 3 as i {
	repeat 3 as j {
		trace.add(i * 10 + j);
		if j == 2 { break(1); }
	}
	trace.add(0);
}
trace.add(99);
trace`
	expectFormat(t, src, "[11, 12, 99]")

	src = `
var trace = list { };
repeat 2 as i {
	repeat 2 as j {
		repeat 2 as k {
			trace.add(k);
			break(2);
		}
	}
}
trace`
	expectFormat(t, src, "[1]")
}

func TestWeightedContinueResumesOuterLoop(t *testing.T) {
	src := `
var trace = list { };
repeat 2 as i {
	repeat 3 as j {
		if j == 2 { continue(1); }
		trace.add(i * 10 + j);
	}
	trace.add(0);
}
trace`
	expectFormat(t, src, "[11, 21]")
}

func TestSignalsOutsideLoops(t *testing.T) {
	err := evalErr(t, "var a = 1;\nbreak;")
	if err.Message != "break used outside of a loop" {
		t.Fatalf("unexpected message %q", err.Message)
	}
	if err.Range.Start.Line != 2 {
		t.Fatalf("expected error on line 2, got %d", err.Range.Start.Line)
	}
	if err.Code != diag.CodeRuntimeControlFlow {
		t.Fatalf("expected code %s, got %s", diag.CodeRuntimeControlFlow, err.Code)
	}

	err = evalErr(t, "repeat 2 { break(1); }")
	if err.Message != "break used outside of a loop" {
		t.Fatalf("unexpected message %q", err.Message)
	}

	err = evalErr(t, "func f { continue; } repeat 2 { f(); }")
	if err.Message != "continue used outside of a loop" {
		t.Fatalf("unexpected message %q", err.Message)
	}
}

func TestBreakAtFunctionBoundary(t *testing.T) {
	expectFormat(t, "func f { break; 1; } f()", "null")
	expectFormat(t, `
var n = 0;
func stop { break(1); }
repeat 5 { n++; stop(); }
n`, "1")
}

func TestNamedBlocks(t *testing.T) {
	expectFormat(t, "run { 1; 2; 3; }", "3")
	expectFormat(t, "list { 1; \"a\"; 2.5; }", "[1, a, 2.5]")
	expectFormat(t, `map { "a"; 1; "b"; list { 2; }; "c"; }`, "{a=1, b=[2], c=null}")
	expectFormat(t, "var x = 1; run { var x = 2; }; x", "1")

	err := evalErr(t, `map { 1; 2; }`)
	if !strings.Contains(err.Message, "map key must be string") {
		t.Fatalf("unexpected message %q", err.Message)
	}

	err = evalErr(t, "lisst { 1; }")
	if err.Message != "named block 'lisst' is not known" {
		t.Fatalf("unexpected message %q", err.Message)
	}
	if err.Suggestion != "did you mean `list`?" {
		t.Fatalf("unexpected suggestion %q", err.Suggestion)
	}
}

func TestUserDefinedBlock(t *testing.T) {
	src := `
func twice(body) { body(); body(); }
var n = 0;
twice { n += 5; };
n`
	expectFormat(t, src, "10")
}

func TestStdstream(t *testing.T) {
	r := exec(t, `stdstream = "hello"; stdstream.end = "!"; stdstream.sep = ", "; stdstream(1, 2.0, list { 3; });`)
	if r.err != nil {
		t.Fatalf("unexpected error: %v", r.err)
	}
	if r.out != "hello\n1, 2.0, [3]!" {
		t.Fatalf("unexpected output %q", r.out)
	}
}

func TestExitUnwindsProgram(t *testing.T) {
	r := exec(t, "stdstream = 1; repeat 3 { exit(4); } stdstream = 2;")
	var exitErr *stdlib.ExitError
	if !errors.As(r.err, &exitErr) {
		t.Fatalf("expected *stdlib.ExitError, got %v", r.err)
	}
	if exitErr.Code != 4 {
		t.Fatalf("expected exit code 4, got %d", exitErr.Code)
	}
	if r.out != "1\n" {
		t.Fatalf("unexpected output %q", r.out)
	}
}

func TestErrorToDiagnostic(t *testing.T) {
	err := evalErr(t, "var x = 1;\nx + \"a\" - 2;")
	d := err.ToDiagnostic()
	if d.Stage != diag.StageInterpreter {
		t.Fatalf("expected interpreter stage, got %s", d.Stage)
	}
	if d.Span.Line != 2 {
		t.Fatalf("expected span on line 2, got %d", d.Span.Line)
	}
	if len(d.LabeledSpans) != 1 {
		t.Fatalf("expected one primary span, got %d", len(d.LabeledSpans))
	}
}

func TestScopesAreReleased(t *testing.T) {
	nodes, err := parser.ParseString("var l = list { }; repeat 3 as i { run { l.add(i); } }")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	root := runtime.NewRoot("global")
	if err := stdlib.Register(root, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := interpreter.New().Run(nodes, root); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := root.Lookup("i"); ok {
		t.Fatalf("expected loop binding to be released")
	}
	child := root.Push("after")
	if child.Depth() != 1 {
		t.Fatalf("expected fresh child at depth 1, got %d", child.Depth())
	}
}

// Printing a program and running the printed form gives the same value.
func TestFormatRoundTripPreservesValue(t *testing.T) {
	srcs := []string{
		"1 - 2 * 3 + 4",
		"var x = 2; x *= 3 + 1; x",
		"var l = list { }; repeat 3 as i { l.add(i * i); } l",
		`when (4) > { case (1) && < (5) { "in" } default { "out" } }`,
		`var m = map { "k"; 'raw\n'; }; m.k`,
		"-(-3) - -2",
	}
	for i, src := range srcs {
		nodes, err := parser.ParseString(src)
		if err != nil {
			t.Fatalf("tests[%d] - parse error: %v", i, err)
		}
		printed := ast.Format(nodes)
		want := runtime.Format(eval(t, src))
		got := runtime.Format(eval(t, printed))
		if want != got {
			t.Fatalf("tests[%d] - expected=%q, got=%q\nprinted:\n%s", i, want, got, printed)
		}
	}
}
