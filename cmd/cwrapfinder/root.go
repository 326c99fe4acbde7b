package main

import (
	"github.com/spf13/cobra"
)

var debugLogging bool

var rootCmd = &cobra.Command{
	Use:   "cwrapfinder",
	Short: "Find and score libc/syscall wrapper functions in a C codebase",
	Long: `cwrapfinder statically detects thin wrapper functions around libc and
system-call APIs, ranks how likely each candidate really is a wrapper, and
reports the call graph those candidates sit in.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugLogging, "debug", false, "enable debug-level structured logging")

	rootCmd.AddCommand(finderCmd)
	rootCmd.AddCommand(fuzzyCmd)
	rootCmd.AddCommand(pipelineCmd)
	rootCmd.AddCommand(callgraphCmd)
}
