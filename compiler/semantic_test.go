package compiler

import (
	"strings"
	"testing"
)

func TestAnalyzeUnusedVariable(t *testing.T) {
	warnings := Analyze(`main() {
	var x, y;
	x = 1;
}`)

	if len(warnings) != 1 {
		t.Fatalf("warning count = %d, want 1: %v", len(warnings), warnings)
	}
	if !strings.Contains(warnings[0], `variable "y" is declared but never used`) {
		t.Errorf("warning = %q, want unused variable complaint", warnings[0])
	}
}

func TestAnalyzeWriteCountsAsUse(t *testing.T) {
	warnings := Analyze(`main() {
	var x;
	x = 1;
}`)
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
}

func TestAnalyzeAssignmentInCondition(t *testing.T) {
	tests := []string{
		`main() { var x; if (x = 1) x = 2; }`,
		`main() { var x; if ((x = 1)) x = 2; }`,
		`main() { var x; for (x = 0; x = 1; x++) {} }`,
	}

	for _, src := range tests {
		warnings := Analyze(src)
		found := false
		for _, w := range warnings {
			if strings.Contains(w, "assignment in condition") {
				found = true
			}
		}
		if !found {
			t.Errorf("analyze %q: warnings = %v, want assignment in condition", src, warnings)
		}
	}
}

func TestAnalyzeForInitDoesNotWarn(t *testing.T) {
	// Assignment belongs in the init and post sections.
	warnings := Analyze(`main() {
	var i;
	for (i = 0; i < 3; i++) { OutputValue(i); }
}`)
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
}

func TestAnalyzeNoEffectStatement(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{`main() { var x; x; }`, true},
		{`main() { 1 + 2; }`, true},
		{`main() { var x; (x == 1); }`, true},
		{`main() { var x; x = 1; }`, false},
		{`main() { var x; x++; }`, false},
		{`main() { OutputText("hi"); }`, false},
		{`main() { OutputValue(1) + 2; }`, false}, // call buried in arithmetic
	}

	for _, tc := range tests {
		warnings := Analyze(tc.src)
		found := false
		for _, w := range warnings {
			if strings.Contains(w, "no effect") {
				found = true
			}
		}
		if found != tc.want {
			t.Errorf("analyze %q: no-effect warning = %v, want %v (warnings: %v)", tc.src, found, tc.want, warnings)
		}
	}
}

func TestAnalyzeDivisionByConstantZero(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{`main() { var x; x = 1 / 0; }`, true},
		{`main() { var x; x = 1 / (0); }`, true},
		{`main() { var x; x = 1 / 2; }`, false},
		{`main() { var x, y; y = 1; x = 1 / y; }`, false},
	}

	for _, tc := range tests {
		warnings := Analyze(tc.src)
		found := false
		for _, w := range warnings {
			if strings.Contains(w, "division by constant zero") {
				found = true
			}
		}
		if found != tc.want {
			t.Errorf("analyze %q: zero-division warning = %v, want %v", tc.src, found, tc.want)
		}
	}
}

func TestAnalyzeCleanScript(t *testing.T) {
	warnings := Analyze(`main() {
	var i, total;
	total = 0;
	for (i = 0; i < 10; i++) {
		if (i > 5)
			total = total + i;
	}
	OutputValue(total);
}`)

	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
}

func TestAnalyzeParseFailureYieldsNothing(t *testing.T) {
	if warnings := Analyze(`main() { x = ; }`); warnings != nil {
		t.Errorf("warnings = %v, want nil on parse failure", warnings)
	}
}

func TestAnalyzeWarningFormat(t *testing.T) {
	warnings := Analyze("main() {\n\tvar unused;\n}")
	if len(warnings) != 1 {
		t.Fatalf("warning count = %d, want 1", len(warnings))
	}
	if !strings.HasPrefix(warnings[0], "warning: line 2:") {
		t.Errorf("warning = %q, want warning: line 2: prefix", warnings[0])
	}
}
