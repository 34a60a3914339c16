// pdbview resolves the symbols, modules and types of Microsoft PDB files and
// prints them as text, JSON or msgpack.
package main

import (
	"os"
)

func main() {
	a := newApp(os.Stdout, os.Stderr)
	if err := a.command().Execute(); err != nil {
		printError(os.Stderr, err, a.debug)
		os.Exit(1)
	}
}
