// This is the main-driver for our compiler.

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/az/bfc/compiler"
)

func main() {

	//
	// Look for flags.
	//
	debug := flag.Bool("debug", false, "Insert a debug comment banner in our generated output.")
	lineWidth := flag.Int("line-width", 0, "Wrap generated output at this many columns (0 disables wrapping).")
	flag.Parse()

	//
	// Ensure we have a source file as our single argument.
	//
	if len(flag.Args()) != 1 {
		fmt.Fprintf(os.Stderr, "Usage: bfc <source-file>\n")
		os.Exit(1)
	}
	path := flag.Args()[0]

	//
	// Read the program.
	//
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", path, err)
		os.Exit(1)
	}

	//
	// Create a compiler-object, with the program as input.
	//
	comp := compiler.New(string(src))

	if *debug {
		comp.SetDebug(true)
	}
	if *lineWidth > 0 {
		comp.SetLineWidth(*lineWidth)
	}

	//
	// Compile.
	//
	out, err := comp.Compile()
	if err != nil {
		if cerr, ok := err.(*compiler.Error); ok {
			fmt.Fprintf(os.Stderr, "%s:%d: %s\n", path, cerr.Line, cerr.Message)
		} else {
			fmt.Fprintf(os.Stderr, "%s: %s\n", path, err)
		}
		os.Exit(1)
	}

	fmt.Print(out)
}
