package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, ManifestName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "adventure"
version = "0.3.0"

[source]
entry = "scripts/game.script"

[output]
binary = "build/game.scpt"
debug = false
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "adventure" {
		t.Errorf("project name = %q, want adventure", m.Project.Name)
	}
	if m.Project.Version != "0.3.0" {
		t.Errorf("project version = %q, want 0.3.0", m.Project.Version)
	}
	if m.Source.Entry != "scripts/game.script" {
		t.Errorf("source entry = %q, want scripts/game.script", m.Source.Entry)
	}
	if m.Output.Binary != "build/game.scpt" {
		t.Errorf("output binary = %q, want build/game.scpt", m.Output.Binary)
	}
	if m.DebugEnabled() {
		t.Error("debug = false in file, DebugEnabled() = true")
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "minimal"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Source.Entry != "main.script" {
		t.Errorf("default entry = %q, want main.script", m.Source.Entry)
	}
	if m.Output.Binary != "main.scpt" {
		t.Errorf("default binary = %q, want main.scpt", m.Output.Binary)
	}
	if !m.DebugEnabled() {
		t.Error("DebugEnabled() = false by default, want true")
	}
}

// The default binary name follows the entry's stem, not the project name.
func TestLoadManifestBinaryFromEntry(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "adventure"

[source]
entry = "scripts/game.script"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Output.Binary != "game.scpt" {
		t.Errorf("binary = %q, want game.scpt", m.Output.Binary)
	}
}

func TestLoadMissingManifest(t *testing.T) {
	_, err := Load(t.TempDir())
	if err == nil {
		t.Fatal("Load of an empty directory succeeded")
	}
	if !strings.Contains(err.Error(), "cannot read") {
		t.Errorf("error = %q", err)
	}
}

func TestLoadBadTOML(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `[project`)

	_, err := Load(dir)
	if err == nil {
		t.Fatal("Load of broken TOML succeeded")
	}
	if !strings.Contains(err.Error(), "parse error") {
		t.Errorf("error = %q", err)
	}
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, dir, `[project]
name = "found-project"
`)

	// Should find the manifest when starting from a deep subdirectory.
	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Project.Name != "found-project" {
		t.Errorf("project name = %q, want found-project", m.Project.Name)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when no script.toml exists")
	}
}

func TestManifestPaths(t *testing.T) {
	m := &Manifest{
		Dir: "/app",
		Source: Source{
			Entry: "scripts/game.script",
		},
		Output: Output{
			Binary: "build/game.scpt",
		},
	}

	if got := m.EntryPath(); got != "/app/scripts/game.script" {
		t.Errorf("EntryPath() = %q", got)
	}
	if got := m.BinaryPath(); got != "/app/build/game.scpt" {
		t.Errorf("BinaryPath() = %q", got)
	}
	if got := m.DebugSidecarPath(); got != "/app/build/game.scpd" {
		t.Errorf("DebugSidecarPath() = %q", got)
	}
	if got := m.CachePath(); got != "/app/.script/cache.db" {
		t.Errorf("CachePath() = %q", got)
	}
}
