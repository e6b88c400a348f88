// Command scriptc is the toolchain entry point: it builds scripts into
// .scpt programs, runs them, disassembles them, and hosts the language
// server for editors.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: scriptc <command> [options] [args]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  build   Compile a script into a .scpt program\n")
	fmt.Fprintf(os.Stderr, "  run     Execute a script or a compiled .scpt program\n")
	fmt.Fprintf(os.Stderr, "  dump    Disassemble a script or a compiled .scpt program\n")
	fmt.Fprintf(os.Stderr, "  lsp     Start the language server on stdin/stdout\n")
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  scriptc build                  # build the project in the current directory\n")
	fmt.Fprintf(os.Stderr, "  scriptc build -o game.scpt game.script\n")
	fmt.Fprintf(os.Stderr, "  scriptc run game.script        # compile in memory and execute\n")
	fmt.Fprintf(os.Stderr, "  scriptc run -trace game.scpt   # execute with an instruction trace\n")
	fmt.Fprintf(os.Stderr, "  scriptc dump game.scpt         # disassemble, using the debug sidecar if present\n")
	fmt.Fprintf(os.Stderr, "\nRun 'scriptc <command> -h' for command options.\n")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "build":
		err = buildCommand(os.Args[2:])
	case "run":
		err = runCommand(os.Args[2:])
	case "dump":
		err = dumpCommand(os.Args[2:])
	case "lsp":
		err = lspCommand(os.Args[2:])
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger returns a development logger when enabled; quiet runs get a
// no-op logger so library log calls cost nothing.
func newLogger(enabled bool) *zap.Logger {
	if !enabled {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
