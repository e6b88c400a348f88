package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Doddler/Scripting-Language-Guide/compiler"
	"github.com/Doddler/Scripting-Language-Guide/vm"
)

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	trace := fs.Bool("trace", false, "log every instruction as it executes")
	verbose := fs.Bool("v", false, "log compilation and loading")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: scriptc run [options] <file>\n\n")
		fmt.Fprintf(os.Stderr, "Executes a program. A .scpt file is loaded as-is; anything else is\n")
		fmt.Fprintf(os.Stderr, "treated as source and compiled in memory without writing artifacts.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  scriptc run game.script\n")
		fmt.Fprintf(os.Stderr, "  scriptc run -trace build/game.scpt\n")
	}
	fs.Parse(args)

	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}
	path := fs.Arg(0)

	logger := newLogger(*trace || *verbose)
	defer logger.Sync()

	prog, err := loadOrCompile(path, logger)
	if err != nil {
		return err
	}

	machineLogger := zap.NewNop()
	if *trace {
		machineLogger = logger
	}
	return vm.NewMachine(prog, vm.WithLogger(machineLogger)).Execute()
}

// loadOrCompile reads a compiled program directly, or compiles script
// source in memory.
func loadOrCompile(path string, logger *zap.Logger) (*vm.Program, error) {
	if filepath.Ext(path) == ".scpt" {
		return vm.LoadFile(path)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return compiler.Compile(string(src), compiler.WithLogger(logger))
}
