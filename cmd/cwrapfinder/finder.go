package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/viant/afs"

	"github.com/viant/cwrapfinder/compiledb"
	"github.com/viant/cwrapfinder/metrics"
	"github.com/viant/cwrapfinder/runner"
)

// finderFlags mirrors cwrappers/finder/cli.py's argparse surface
// (SPEC_FULL.md §1 "Configuration").
type finderFlags struct {
	compileCommands string
	yaml            string
	onlyLibc        bool
	onlySyscalls    bool
	mode            string
	output          string
	out             string
	outDir          string
	concurrency     int
	callgraphOut    string
	callgraphOnly   bool
	uniqueCallers   bool
	debugPreprocess bool
	pathMap         []string
	allColumns      bool
	projectRoot     []string
	treatThinAlias  string
	metricsAddr     string
}

var finderArgs finderFlags

var finderCmd = &cobra.Command{
	Use:   "finder",
	Short: "Run wrapper detection over a compilation database",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := runFinder(cmd.Context(), finderArgs)
		return err
	},
}

func init() {
	f := finderCmd.Flags()
	f.StringVar(&finderArgs.compileCommands, "compile-commands", "", "path to compile_commands.json (required)")
	f.StringVar(&finderArgs.yaml, "yaml", "", "path to API catalog YAML (required unless --callgraph-only)")
	f.BoolVar(&finderArgs.onlyLibc, "only-libc", false, "restrict target set to libc functions only")
	f.BoolVar(&finderArgs.onlySyscalls, "only-syscalls", false, "restrict target set to system calls only")
	f.StringVar(&finderArgs.mode, "mode", "all", "relaxed|accurate|all, plus legacy aliases (single, perpath, perpath_relaxed, perpath_strict_plus)")
	f.StringVar(&finderArgs.output, "output", "csv", "csv|json|jsonl")
	f.StringVar(&finderArgs.out, "out", "-", "output file path ('-' for stdout)")
	f.StringVar(&finderArgs.outDir, "out-dir", "", "directory to place the output file (overrides --out's directory)")
	f.IntVarP(&finderArgs.concurrency, "concurrency", "j", 1, "number of translation units processed concurrently")
	f.StringVar(&finderArgs.callgraphOut, "callgraph-out", "", "directory to write callgraph_edges.csv/call_counts.csv")
	f.BoolVar(&finderArgs.callgraphOnly, "callgraph-only", false, "only build and write call graph CSVs; skips wrapper detection")
	f.BoolVar(&finderArgs.uniqueCallers, "unique-callers", false, "also fill the callers column (sorted caller keys) in call_counts.csv")
	f.BoolVar(&finderArgs.debugPreprocess, "debug-preprocess", false, "on parse failure, run 'clang -E' and print preprocessor diagnostics")
	f.StringArrayVar(&finderArgs.pathMap, "path-map", nil, "OLD_PREFIX=NEW_PREFIX rewrite for compile_commands paths; repeatable")
	f.BoolVar(&finderArgs.allColumns, "all-columns", false, "output all available CSV columns instead of the minimal set")
	f.StringArrayVar(&finderArgs.projectRoot, "project-root", nil, "project root directory; repeatable")
	f.StringVar(&finderArgs.treatThinAlias, "treat-thin-alias", "default", "default|direct-only|allow-1-hop")
	f.StringVar(&finderArgs.metricsAddr, "metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")

	_ = finderCmd.MarkFlagRequired("compile-commands")
}

func parsePathMaps(raw []string) ([]compiledb.PathMap, error) {
	out := make([]compiledb.PathMap, 0, len(raw))
	for _, r := range raw {
		parts := strings.SplitN(r, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("invalid --path-map %q: expected OLD_PREFIX=NEW_PREFIX", r)
		}
		out = append(out, compiledb.PathMap{OldPrefix: parts[0], NewPrefix: parts[1]})
	}
	return out, nil
}

func buildConfig(f finderFlags) (runner.Config, error) {
	pathMaps, err := parsePathMaps(f.pathMap)
	if err != nil {
		return runner.Config{}, err
	}
	return runner.Config{
		CompileCommandsPath: f.compileCommands,
		PathMaps:            pathMaps,
		CatalogPath:         f.yaml,
		Mode:                runner.ResolveMode(f.mode),
		ThinAliasPolicy:     runner.ResolveThinAliasPolicy(f.treatThinAlias),
		OnlyLibc:            f.onlyLibc,
		OnlySyscalls:        f.onlySyscalls,
		CallgraphOnly:       f.callgraphOnly,
		CallgraphOut:        f.callgraphOut,
		UniqueCallers:       f.uniqueCallers,
		ProjectRoots:        f.projectRoot,
		Concurrency:         f.concurrency,
		DebugPreprocess:     f.debugPreprocess,
	}, nil
}

// rootContext returns a context cancelled on SIGINT/SIGTERM, matching the
// pack's `cie` CLI graceful-shutdown wiring.
func rootContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()
	return ctx, cancel
}

// runFinder executes one finder invocation end-to-end and returns the
// output path actually written, so the pipeline subcommand can chain into
// fuzzy scoring.
func runFinder(cmdCtx context.Context, f finderFlags) (string, error) {
	ctx := cmdCtx
	if ctx == nil || ctx.Done() == nil {
		var cancel context.CancelFunc
		ctx, cancel = rootContext()
		defer cancel()
	}

	cfg, err := buildConfig(f)
	if err != nil {
		return "", err
	}

	log := newLogger()

	var m *metrics.Metrics
	if f.metricsAddr != "" {
		var promReg *prometheus.Registry
		m, promReg = metrics.NewRegistered()
		if _, err := metrics.Serve(ctx, f.metricsAddr, promReg); err != nil {
			return "", fmt.Errorf("metrics: %w", err)
		}
		log.Info("metrics.http.start", "addr", f.metricsAddr)
	}

	fs := afs.New()

	var bar *progressbar.ProgressBar
	cfg.OnProgress = func(done, total int) {
		if bar == nil {
			bar = newProgressBar(total, "parsing translation units")
		}
		if bar != nil {
			_ = bar.Set(done)
		}
	}

	start := time.Now()
	res, err := runner.Run(ctx, fs, cfg, log, m)
	if bar != nil {
		_ = bar.Finish()
	}
	runner.RunDuration(m, time.Since(start))
	if err != nil {
		return "", err
	}

	outPath := resolveOutPath(f.out, f.outDir, f.output)
	if err := runner.WriteOutputs(res.Rows, res.Edges, f.output, outPath, f.allColumns, cfg); err != nil {
		return "", err
	}

	printSummary(res)
	return outPath, nil
}

// resolveOutPath applies --out-dir over --out's basename, matching
// run_finder's "--out-dir overrides --out's directory" rule.
func resolveOutPath(out, outDir, format string) string {
	if outDir == "" {
		return out
	}
	base := filepath.Base(out)
	if out == "-" || out == "" {
		base = "wrappers." + format
	}
	return filepath.Join(outDir, base)
}

// printSummary renders runner.Summary, colored when stdout is a terminal.
func printSummary(res *runner.Result) {
	printHeader("cwrapfinder run summary")
	fmt.Print(runner.Summary(res))
}
