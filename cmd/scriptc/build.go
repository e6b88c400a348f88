package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Doddler/Scripting-Language-Guide/cache"
	"github.com/Doddler/Scripting-Language-Guide/compiler"
	"github.com/Doddler/Scripting-Language-Guide/compiler/hash"
	"github.com/Doddler/Scripting-Language-Guide/manifest"
	"github.com/Doddler/Scripting-Language-Guide/vm/debug"
)

// buildTarget is one resolved build: where the source lives and where
// the artifacts go. sidecarPath is empty when no sidecar should be
// written.
type buildTarget struct {
	sourcePath  string
	binaryPath  string
	sidecarPath string
	cachePath   string
}

func buildCommand(args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	output := fs.String("o", "", "`path` for the compiled program")
	strip := fs.Bool("strip", false, "do not write a debug sidecar")
	nocache := fs.Bool("nocache", false, "compile even when a cached build exists")
	verbose := fs.Bool("v", false, "report what was built and where")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: scriptc build [options] [file.script]\n\n")
		fmt.Fprintf(os.Stderr, "Compiles a script into a .scpt program plus a .scpd debug sidecar.\n")
		fmt.Fprintf(os.Stderr, "With no file argument the project manifest (script.toml) is located by\n")
		fmt.Fprintf(os.Stderr, "walking up from the current directory and its entry script is built.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  scriptc build                     # build the enclosing project\n")
		fmt.Fprintf(os.Stderr, "  scriptc build -o out/game.scpt game.script\n")
		fmt.Fprintf(os.Stderr, "  scriptc build -strip game.script  # binary only, no sidecar\n")
	}
	fs.Parse(args)

	if fs.NArg() > 1 {
		fs.Usage()
		os.Exit(2)
	}

	target, err := resolveTarget(fs.Arg(0), *output, *strip)
	if err != nil {
		return err
	}
	return runBuild(target, *nocache, *verbose)
}

// resolveTarget decides the build inputs and outputs, from an explicit
// source file or from the enclosing project manifest.
func resolveTarget(arg, output string, strip bool) (*buildTarget, error) {
	if arg != "" {
		binary := output
		if binary == "" {
			binary = strings.TrimSuffix(arg, filepath.Ext(arg)) + ".scpt"
		}
		t := &buildTarget{
			sourcePath: arg,
			binaryPath: binary,
			cachePath:  filepath.Join(filepath.Dir(arg), ".script", "cache.db"),
		}
		if !strip {
			t.sidecarPath = debug.SidecarPath(binary)
		}
		return t, nil
	}

	m, err := manifest.FindAndLoad(".")
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("no %s found in this or any parent directory (pass a script file to build without a project)", manifest.ManifestName)
	}
	binary := m.BinaryPath()
	if output != "" {
		binary = output
	}
	t := &buildTarget{
		sourcePath: m.EntryPath(),
		binaryPath: binary,
		cachePath:  m.CachePath(),
	}
	if m.DebugEnabled() && !strip {
		t.sidecarPath = debug.SidecarPath(binary)
	}
	return t, nil
}

func runBuild(t *buildTarget, nocache, verbose bool) error {
	src, err := os.ReadFile(t.sourcePath)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", t.sourcePath, err)
	}
	source := string(src)

	// Warnings are advisory; a build with warnings still succeeds.
	for _, w := range compiler.Analyze(source) {
		fmt.Fprintf(os.Stderr, "%s: %s\n", t.sourcePath, w)
	}

	if dir := filepath.Dir(t.binaryPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cannot create output directory: %w", err)
		}
	}

	// The cache key is the structural hash of the source, so formatting
	// and comment edits still hit. A source that does not parse gets no
	// key and falls through to the compiler for a proper error.
	var store *cache.Cache
	var key string
	if h, err := hash.HashSource(source); err == nil {
		key = cache.Key(h)
		store, err = cache.Open(t.cachePath)
		if err != nil {
			if verbose {
				fmt.Fprintf(os.Stderr, "cache disabled: %v\n", err)
			}
			store = nil
		} else {
			defer store.Close()
		}
	}

	if store != nil && !nocache {
		bin, dbg, err := store.Get(key)
		switch {
		case err == nil && (t.sidecarPath == "" || dbg != nil):
			return writeCached(t, bin, dbg, verbose)
		case err != nil && !errors.Is(err, cache.ErrMiss):
			if verbose {
				fmt.Fprintf(os.Stderr, "cache read failed: %v\n", err)
			}
		}
	}

	prog, decls, err := compiler.CompileWithInfo(source, compiler.WithLogger(newLogger(verbose)))
	if err != nil {
		return err
	}

	info := &debug.Info{Source: t.sourcePath, Variables: make([]debug.Variable, len(decls))}
	for i, d := range decls {
		info.Variables[i] = debug.Variable{Name: d.Name, Slot: d.Slot, Pos: d.Pos}
	}
	blob, err := debug.Marshal(info)
	if err != nil {
		return err
	}

	if err := prog.WriteFile(t.binaryPath); err != nil {
		return err
	}
	if t.sidecarPath != "" {
		if err := os.WriteFile(t.sidecarPath, blob, 0o644); err != nil {
			return fmt.Errorf("write sidecar: %w", err)
		}
	}

	// The cache keeps the sidecar even for -strip builds, so a later
	// build without -strip can still hit.
	if store != nil {
		if err := store.Put(key, prog.Serialize(), blob); err != nil && verbose {
			fmt.Fprintf(os.Stderr, "cache write failed: %v\n", err)
		}
	}

	if verbose {
		fmt.Printf("wrote %s (%d instructions, %d variable slots)\n",
			t.binaryPath, len(prog.Instructions), prog.VariableCount)
		if t.sidecarPath != "" {
			fmt.Printf("wrote %s\n", t.sidecarPath)
		}
	}
	return nil
}

func writeCached(t *buildTarget, bin, dbg []byte, verbose bool) error {
	if err := os.WriteFile(t.binaryPath, bin, 0o644); err != nil {
		return fmt.Errorf("write program: %w", err)
	}
	if t.sidecarPath != "" {
		if err := os.WriteFile(t.sidecarPath, dbg, 0o644); err != nil {
			return fmt.Errorf("write sidecar: %w", err)
		}
	}
	if verbose {
		fmt.Printf("wrote %s (cached)\n", t.binaryPath)
	}
	return nil
}
