package debug

import (
	"bytes"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func sampleInfo() *Info {
	return &Info{
		Source: "scripts/main.script",
		Variables: []Variable{
			{Name: "i", Slot: 0, Pos: 0},
			{Name: "total", Slot: 1, Pos: 2},
			{Name: "x", Slot: 2, Pos: 9},
		},
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	info := sampleInfo()

	data, err := Marshal(info)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if !reflect.DeepEqual(got, info) {
		t.Errorf("round trip = %+v, want %+v", got, info)
	}
}

// Canonical encoding keeps sidecar bytes stable across builds, which the
// build cache relies on.
func TestMarshalDeterministic(t *testing.T) {
	first, err := Marshal(sampleInfo())
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	second, err := Marshal(sampleInfo())
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("two marshals of the same info differ")
	}
}

func TestMarshalEmptyInfo(t *testing.T) {
	data, err := Marshal(&Info{})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if got.Source != "" || len(got.Variables) != 0 {
		t.Errorf("empty info round-tripped with content: %+v", got)
	}
}

func TestUnmarshalGarbage(t *testing.T) {
	_, err := Unmarshal([]byte("not a sidecar"))
	if err == nil {
		t.Fatal("Unmarshal of garbage succeeded")
	}
	if !strings.Contains(err.Error(), "unmarshal info") {
		t.Errorf("error = %q", err)
	}
}

func TestSidecarPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"out/main.scpt", "out/main.scpd"},
		{"main.scpt", "main.scpd"},
		{"noext", "noext.scpd"},
		{"dir.v2/prog", "dir.v2/prog.scpd"},
		{"a/b.c/d.scpt", "a/b.c/d.scpd"},
	}
	for _, tt := range tests {
		if got := SidecarPath(tt.path); got != tt.want {
			t.Errorf("SidecarPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestWriteAndReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.scpd")
	info := sampleInfo()

	if err := WriteFile(path, info); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if !reflect.DeepEqual(got, info) {
		t.Errorf("file round trip = %+v, want %+v", got, info)
	}
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "absent.scpd"))
	if err == nil {
		t.Fatal("ReadFile of a missing path succeeded")
	}
	if !strings.Contains(err.Error(), "read sidecar") {
		t.Errorf("error = %q", err)
	}
}
