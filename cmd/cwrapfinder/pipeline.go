package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/viant/cwrapfinder/output"
)

type pipelineFlags struct {
	finder      finderFlags
	fuzzy       bool
	fuzzyOut    string
	fuzzyOutDir string
	fuzzyTopK   int
}

var pipelineArgs pipelineFlags

// pipelineCmd runs finder then, when --fuzzy is set, feeds its CSV output
// straight into the fuzzy scorer, mirroring cwrappers/cli.py's `_pipeline`.
var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run finder, then optional fuzzy scoring",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(pipelineArgs)
	},
}

func init() {
	f := pipelineCmd.Flags()
	f.StringVar(&pipelineArgs.finder.compileCommands, "compile-commands", "", "path to compile_commands.json (required)")
	f.StringVar(&pipelineArgs.finder.yaml, "yaml", "", "path to API catalog YAML")
	f.BoolVar(&pipelineArgs.finder.onlyLibc, "only-libc", false, "restrict target set to libc functions only")
	f.BoolVar(&pipelineArgs.finder.onlySyscalls, "only-syscalls", false, "restrict target set to system calls only")
	f.StringVar(&pipelineArgs.finder.mode, "mode", "all", "relaxed|accurate|all, plus legacy aliases")
	f.StringVar(&pipelineArgs.finder.out, "out", "", "finder output file path (defaults to a temp file when --fuzzy is set)")
	f.StringVar(&pipelineArgs.finder.outDir, "out-dir", "", "directory to place the finder output file")
	f.IntVarP(&pipelineArgs.finder.concurrency, "concurrency", "j", 1, "number of translation units processed concurrently")
	f.StringArrayVar(&pipelineArgs.finder.pathMap, "path-map", nil, "OLD_PREFIX=NEW_PREFIX rewrite; repeatable")
	f.BoolVar(&pipelineArgs.finder.allColumns, "all-columns", false, "output all available CSV columns")
	f.StringArrayVar(&pipelineArgs.finder.projectRoot, "project-root", nil, "project root directory; repeatable")
	f.StringVar(&pipelineArgs.finder.treatThinAlias, "treat-thin-alias", "default", "default|direct-only|allow-1-hop")
	f.StringVar(&pipelineArgs.finder.metricsAddr, "metrics-addr", "", "HTTP listen address for Prometheus metrics")

	f.BoolVar(&pipelineArgs.fuzzy, "fuzzy", false, "run the fuzzy scorer over finder's CSV output")
	f.StringVar(&pipelineArgs.fuzzyOut, "fuzzy-out", "", "fuzzy stage output file path")
	f.StringVar(&pipelineArgs.fuzzyOutDir, "fuzzy-out-dir", "", "fuzzy stage output directory")
	f.IntVar(&pipelineArgs.fuzzyTopK, "fuzzy-top-k", 3, "canon-set candidates considered per function name")

	pipelineArgs.finder.output = "csv"
	_ = pipelineCmd.MarkFlagRequired("compile-commands")
}

func runPipeline(p pipelineFlags) error {
	finder := p.finder
	finder.output = "csv"

	if p.fuzzy && finder.out == "" && finder.outDir == "" {
		tmp, err := tempCSVPath()
		if err != nil {
			return fmt.Errorf("pipeline: %w", err)
		}
		finder.out = tmp
	}
	if finder.out == "" {
		finder.out = "-"
	}
	if p.fuzzy && output.IsStdout(finder.out) {
		return fmt.Errorf("pipeline: --fuzzy requires finder output to be a file (not stdout); set --out or --out-dir")
	}

	outPath, err := runFinder(nil, finder)
	if err != nil {
		return err
	}
	if !p.fuzzy {
		return nil
	}
	if outPath == "" {
		return fmt.Errorf("pipeline: could not determine finder output path for fuzzy stage")
	}

	_, err = runFuzzy(outPath, fuzzyFlags{
		yaml:   finder.yaml,
		topK:   p.fuzzyTopK,
		out:    p.fuzzyOut,
		outDir: p.fuzzyOutDir,
	})
	return err
}

func tempCSVPath() (string, error) {
	f, err := os.CreateTemp("", "cwrapfinder_finder_*.csv")
	if err != nil {
		return "", err
	}
	path := f.Name()
	_ = f.Close()
	return path, nil
}
