package main

import (
	"github.com/spf13/cobra"
)

type callgraphFlags struct {
	compileCommands string
	pathMap         []string
	concurrency     int
	outDir          string
	uniqueCallers   bool
}

var callgraphArgs callgraphFlags

// callgraphCmd is a thin convenience alias for `finder --callgraph-only`:
// SPEC_FULL.md §2 names it as its own subcommand even though the Python
// original only exposes it as a finder flag.
var callgraphCmd = &cobra.Command{
	Use:   "callgraph",
	Short: "Build and write call-graph CSVs only, skipping wrapper detection",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := finderFlags{
			compileCommands: callgraphArgs.compileCommands,
			pathMap:         callgraphArgs.pathMap,
			concurrency:     callgraphArgs.concurrency,
			callgraphOut:    callgraphArgs.outDir,
			callgraphOnly:   true,
			uniqueCallers:   callgraphArgs.uniqueCallers,
			mode:            "all",
			output:          "csv",
			out:             "-",
		}
		_, err := runFinder(cmd.Context(), f)
		return err
	},
}

func init() {
	f := callgraphCmd.Flags()
	f.StringVar(&callgraphArgs.compileCommands, "compile-commands", "", "path to compile_commands.json (required)")
	f.StringArrayVar(&callgraphArgs.pathMap, "path-map", nil, "OLD_PREFIX=NEW_PREFIX rewrite; repeatable")
	f.IntVarP(&callgraphArgs.concurrency, "concurrency", "j", 1, "number of translation units processed concurrently")
	f.StringVar(&callgraphArgs.outDir, "callgraph-out", ".", "directory to write callgraph_edges.csv/call_counts.csv")
	f.BoolVar(&callgraphArgs.uniqueCallers, "unique-callers", false, "also fill the callers column (sorted caller keys) in call_counts.csv")

	_ = callgraphCmd.MarkFlagRequired("compile-commands")
}
