package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/viant/afs"

	"github.com/viant/cwrapfinder/catalog"
	"github.com/viant/cwrapfinder/fuzzyscore"
)

type fuzzyFlags struct {
	yaml   string
	topK   int
	out    string
	outDir string
}

var fuzzyArgs fuzzyFlags

var fuzzyCmd = &cobra.Command{
	Use:   "fuzzy <wrappers.csv>",
	Short: "Run fuzzy post-processing on a finder CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := runFuzzy(args[0], fuzzyArgs)
		return err
	},
}

func init() {
	f := fuzzyCmd.Flags()
	f.StringVar(&fuzzyArgs.yaml, "yaml", "", "path to API catalog YAML (required)")
	f.IntVar(&fuzzyArgs.topK, "top-k", 3, "number of canon-set candidates considered per function name")
	f.StringVar(&fuzzyArgs.out, "fuzzy-out", "", "output file path (default: <input stem>._fuzzy_scored.csv)")
	f.StringVar(&fuzzyArgs.outDir, "fuzzy-out-dir", "", "directory to place the scored CSV")

	_ = fuzzyCmd.MarkFlagRequired("yaml")
}

func runFuzzy(inPath string, f fuzzyFlags) (string, error) {
	ctx, cancel := rootContext()
	defer cancel()

	fs := afs.New()
	cat, err := catalog.Load(ctx, fs, f.yaml)
	if err != nil {
		return "", fmt.Errorf("fuzzy: failed to load catalog: %w", err)
	}

	outPath, err := fuzzyscore.ProcessCSV(ctx, fs, inPath, cat, f.topK, f.out, f.outDir)
	if err != nil {
		return "", err
	}
	printGood(fmt.Sprintf("[ok] processed: %s", inPath))
	printGood(fmt.Sprintf("[ok] wrote:     %s", outPath))
	return outPath, nil
}
