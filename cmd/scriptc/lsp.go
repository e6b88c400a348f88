package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Doddler/Scripting-Language-Guide/server"
)

func lspCommand(args []string) error {
	fs := flag.NewFlagSet("lsp", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: scriptc lsp\n\n")
		fmt.Fprintf(os.Stderr, "Starts the language server, speaking the Language Server Protocol over\n")
		fmt.Fprintf(os.Stderr, "stdin and stdout. Editors launch this; it is not meant to be run by hand.\n")
	}
	fs.Parse(args)
	return server.NewLSP().Run()
}
