// Package manifest handles script.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/Doddler/Scripting-Language-Guide/vm/debug"
)

// ManifestName is the file that marks a project root.
const ManifestName = "script.toml"

// Manifest represents a script.toml project configuration.
type Manifest struct {
	Project Project `toml:"project"`
	Source  Source  `toml:"source"`
	Output  Output  `toml:"output"`

	// Dir is the directory containing the script.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Source configures the script to compile.
type Source struct {
	Entry string `toml:"entry"`
}

// Output configures the compiled artifacts. Debug is a pointer so an
// absent key can default to enabled.
type Output struct {
	Binary string `toml:"binary"`
	Debug  *bool  `toml:"debug"`
}

// Load parses a script.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if m.Source.Entry == "" {
		m.Source.Entry = "main.script"
	}
	if m.Output.Binary == "" {
		base := filepath.Base(m.Source.Entry)
		m.Output.Binary = strings.TrimSuffix(base, filepath.Ext(base)) + ".scpt"
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a script.toml file, then
// loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// DebugEnabled reports whether a debug sidecar should be written.
// Leaving the key out of the file means enabled.
func (m *Manifest) DebugEnabled() bool {
	return m.Output.Debug == nil || *m.Output.Debug
}

// EntryPath returns the absolute path of the entry script.
func (m *Manifest) EntryPath() string {
	return filepath.Join(m.Dir, m.Source.Entry)
}

// BinaryPath returns the absolute path of the compiled binary.
func (m *Manifest) BinaryPath() string {
	return filepath.Join(m.Dir, m.Output.Binary)
}

// DebugSidecarPath returns the sidecar path next to the compiled binary.
func (m *Manifest) DebugSidecarPath() string {
	return debug.SidecarPath(m.BinaryPath())
}

// CachePath returns the path of the build cache database.
func (m *Manifest) CachePath() string {
	return filepath.Join(m.Dir, ".script", "cache.db")
}
