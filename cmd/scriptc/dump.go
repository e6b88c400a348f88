package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Doddler/Scripting-Language-Guide/compiler"
	"github.com/Doddler/Scripting-Language-Guide/vm"
	"github.com/Doddler/Scripting-Language-Guide/vm/debug"
)

func dumpCommand(args []string) error {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	verbose := fs.Bool("v", false, "print a summary line before the listing")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: scriptc dump [options] <file>\n\n")
		fmt.Fprintf(os.Stderr, "Disassembles a program. A .scpt file is loaded and annotated from its\n")
		fmt.Fprintf(os.Stderr, ".scpd sidecar if one sits next to it; source files are compiled first.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  scriptc dump build/game.scpt\n")
		fmt.Fprintf(os.Stderr, "  scriptc dump game.script\n")
	}
	fs.Parse(args)

	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}
	path := fs.Arg(0)

	var prog *vm.Program
	var decls []vm.VarDecl
	if filepath.Ext(path) == ".scpt" {
		p, err := vm.LoadFile(path)
		if err != nil {
			return err
		}
		prog = p
		// Without a sidecar the listing simply has no variable comments.
		if info, err := debug.ReadFile(debug.SidecarPath(path)); err == nil {
			decls = make([]vm.VarDecl, len(info.Variables))
			for i, v := range info.Variables {
				decls[i] = vm.VarDecl{Name: v.Name, Slot: v.Slot, Pos: v.Pos}
			}
		}
	} else {
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("cannot read %s: %w", path, err)
		}
		prog, decls, err = compiler.CompileWithInfo(string(src))
		if err != nil {
			return err
		}
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "%s: %d instructions, %d strings, %d labels, %d variable slots\n",
			path, len(prog.Instructions), len(prog.Strings), len(prog.Labels), prog.VariableCount)
	}
	fmt.Print(vm.Disassemble(prog, decls))
	return nil
}
