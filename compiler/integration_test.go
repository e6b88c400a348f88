package compiler

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Doddler/Scripting-Language-Guide/vm"
)

// Integration tests: compile and execute complete scripts

// runScript compiles and executes source, returning the finished machine
// and everything the script printed.
func runScript(t *testing.T, source string) (*vm.Machine, string) {
	t.Helper()
	prog, err := Compile(source)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	var out bytes.Buffer
	m := vm.NewMachine(prog, vm.WithOutput(&out))
	if err := m.Execute(); err != nil {
		t.Fatalf("execute error: %v", err)
	}
	return m, out.String()
}

func TestRunArithmetic(t *testing.T) {
	m, _ := runScript(t, `main() {
	var x;
	x = 2 + 3 * 4;
}`)

	if got := m.Variables()[0]; got != 14 {
		t.Errorf("x = %d, want 14", got)
	}
}

func TestRunOutput(t *testing.T) {
	_, out := runScript(t, `main() {
	OutputText("Hi");
	OutputValue(5);
}`)

	if out != "Hi\n5\n" {
		t.Errorf("output = %q, want %q", out, "Hi\n5\n")
	}
}

func TestRunIfElse(t *testing.T) {
	tests := []struct {
		cond string
		want int32
	}{
		{"1 == 2", 2}, // false branch
		{"2 == 2", 1}, // true branch
	}

	for _, tc := range tests {
		m, _ := runScript(t, `main() {
	var x;
	if (`+tc.cond+`)
		x = 1;
	else
		x = 2;
}`)
		if got := m.Variables()[0]; got != tc.want {
			t.Errorf("if (%s): x = %d, want %d", tc.cond, got, tc.want)
		}
	}
}

func TestRunIfWithoutElse(t *testing.T) {
	m, _ := runScript(t, `main() {
	var x;
	x = 9;
	if (1 == 2)
		x = 1;
}`)

	if got := m.Variables()[0]; got != 9 {
		t.Errorf("x = %d, want 9", got)
	}
}

func TestRunForLoop(t *testing.T) {
	m, _ := runScript(t, `main() {
	var i, total;
	total = 0;
	for (i = 0; i < 3; i++) {
		total = total + i;
	}
}`)

	vars := m.Variables()
	if vars[1] != 3 {
		t.Errorf("total = %d, want 3", vars[1])
	}
	if vars[0] != 3 {
		t.Errorf("i = %d, want 3 after the loop", vars[0])
	}
}

func TestRunCountdownLoop(t *testing.T) {
	m, _ := runScript(t, `main() {
	var i, steps;
	steps = 0;
	for (i = 3; i > 0; i--) {
		steps = steps + 1;
	}
}`)

	vars := m.Variables()
	if vars[1] != 3 {
		t.Errorf("steps = %d, want 3", vars[1])
	}
	if vars[0] != 0 {
		t.Errorf("i = %d, want 0 after the loop", vars[0])
	}
}

func TestRunTruthEncoding(t *testing.T) {
	// Comparisons yield 0 for true and 1 for false.
	tests := []struct {
		expr string
		want int32
	}{
		{"1 == 1", 0},
		{"1 == 2", 1},
		{"1 != 2", 0},
		{"2 < 3", 0},
		{"3 < 2", 1},
		{"3 > 2", 0},
		{"2 >= 2", 0},
		{"2 <= 1", 1},
	}

	for _, tc := range tests {
		m, _ := runScript(t, "main() { var x; x = "+tc.expr+"; }")
		if got := m.Variables()[0]; got != tc.want {
			t.Errorf("%s = %d, want %d", tc.expr, got, tc.want)
		}
	}
}

func TestRunLogicalAnd(t *testing.T) {
	tests := []struct {
		expr string
		want int32
	}{
		{"(1 == 1) && (2 == 2)", 0},
		{"(1 == 1) && (2 == 3)", 1},
		{"(1 == 2) && (2 == 2)", 1},
	}

	for _, tc := range tests {
		m, _ := runScript(t, "main() { var x; x = "+tc.expr+"; }")
		if got := m.Variables()[0]; got != tc.want {
			t.Errorf("%s = %d, want %d", tc.expr, got, tc.want)
		}
	}
}

func TestRunOrTestsLeftOperandOnly(t *testing.T) {
	// Or answers from its left operand alone, matching binaries produced
	// by earlier toolchains. A true right operand does not rescue a false
	// left one.
	tests := []struct {
		expr string
		want int32
	}{
		{"(1 == 1) || (2 == 3)", 0},
		{"(1 == 1) || (2 == 2)", 0},
		{"(1 == 2) || (2 == 2)", 1},
		{"(1 == 2) || (2 == 3)", 1},
	}

	for _, tc := range tests {
		m, _ := runScript(t, "main() { var x; x = "+tc.expr+"; }")
		if got := m.Variables()[0]; got != tc.want {
			t.Errorf("%s = %d, want %d", tc.expr, got, tc.want)
		}
	}
}

func TestRunDivision(t *testing.T) {
	m, _ := runScript(t, `main() {
	var x;
	x = 7 / 2;
}`)

	if got := m.Variables()[0]; got != 3 {
		t.Errorf("7 / 2 = %d, want 3", got)
	}
}

func TestRunDivideByZero(t *testing.T) {
	prog, err := Compile(`main() {
	var x;
	x = 1 / 0;
}`)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	m := vm.NewMachine(prog, vm.WithOutput(&bytes.Buffer{}))
	err = m.Execute()
	if !errors.Is(err, vm.ErrDivideByZero) {
		t.Errorf("execute error = %v, want divide by zero", err)
	}
}

func TestRunChainedAssignment(t *testing.T) {
	m, _ := runScript(t, `main() {
	var a, b;
	a = b = 5;
}`)

	vars := m.Variables()
	if vars[0] != 5 || vars[1] != 5 {
		t.Errorf("a, b = %d, %d, want 5, 5", vars[0], vars[1])
	}
}

func TestRunIncrementDecrement(t *testing.T) {
	m, _ := runScript(t, `main() {
	var i;
	i = 5;
	i++;
	i++;
	i--;
}`)

	if got := m.Variables()[0]; got != 6 {
		t.Errorf("i = %d, want 6", got)
	}
}

func TestRunNestedControlFlow(t *testing.T) {
	m, _ := runScript(t, `main() {
	var i, evens;
	evens = 0;
	for (i = 0; i < 6; i++) {
		if (i / 2 * 2 == i)
			evens++;
	}
}`)

	if got := m.Variables()[1]; got != 3 {
		t.Errorf("evens = %d, want 3", got)
	}
}

func TestRunEmptyScript(t *testing.T) {
	m, out := runScript(t, `main() { }`)
	if len(m.Variables()) != 0 {
		t.Errorf("variables = %v, want none", m.Variables())
	}
	if out != "" {
		t.Errorf("output = %q, want empty", out)
	}
}

func TestRunSerializedRoundTrip(t *testing.T) {
	prog, err := Compile(`main() {
	var x;
	x = 0;
	for (x = 0; x < 10; x++) { }
	OutputValue(x);
}`)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	loaded, err := vm.Deserialize(prog.Serialize())
	if err != nil {
		t.Fatalf("round trip failed: %v", err)
	}

	var out bytes.Buffer
	m := vm.NewMachine(loaded, vm.WithOutput(&out))
	if err := m.Execute(); err != nil {
		t.Fatalf("execute error: %v", err)
	}
	if out.String() != "10\n" {
		t.Errorf("output = %q, want %q", out.String(), "10\n")
	}
}
