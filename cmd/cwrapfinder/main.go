// Command cwrapfinder finds likely libc/syscall wrapper functions across a
// C/C++ codebase, scores them, and reports the call graph they sit in.
// It mirrors original_source/cwrappers/cli.py's unified `finder`/`fuzzy`/
// `pipeline` surface, adding a `callgraph` shorthand (SPEC_FULL.md §2-§3).
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
