package fuzzyscore

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/viant/afs"

	"github.com/viant/cwrapfinder/catalog"
)

// columnIndex is the set of column positions the fuzzy post-processor
// reads out of an arbitrary finder CSV, detected by header name rather
// than fixed offset (`cwrappers/fuzzy/io.py`'s `detect_cols`) so the
// stage tolerates both the minimal and --all-columns row shapes.
type columnIndex struct {
	function, file, functionLoc int
	fanIn, fanOut, callee       int
	apiCalled, category, reason int
	argPass, retPass            int
}

const colMissing = -1

var headerCollapse = regexp.MustCompile(`_+`)

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "﻿")
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer("-", "_", " ", "_").Replace(h)
	return headerCollapse.ReplaceAllString(h, "_")
}

func findColumn(headers []string, options ...string) int {
	want := map[string]bool{}
	for _, o := range options {
		want[o] = true
	}
	for i, h := range headers {
		if want[normalizeHeader(h)] {
			return i
		}
	}
	return colMissing
}

func firstPresent(candidates ...int) int {
	for _, c := range candidates {
		if c != colMissing {
			return c
		}
	}
	return colMissing
}

// detectColumns mirrors `detect_cols`: it accepts several header
// spellings per logical field so hand-edited or older CSVs still work.
func detectColumns(headers []string) columnIndex {
	functionLoc := findColumn(headers, "function_loc", "functionloc", "function_location")
	return columnIndex{
		function:     findColumn(headers, "function", "func", "symbol"),
		file:         firstPresent(findColumn(headers, "file", "filepath", "path", "filename", "source", "source_file", "location"), functionLoc),
		functionLoc:  functionLoc,
		fanIn:        firstPresent(findColumn(headers, "fan_in", "fanin"), findColumn(headers, "fan-in")),
		fanOut:       firstPresent(findColumn(headers, "fan_out", "fanout"), findColumn(headers, "fan-out")),
		callee:       findColumn(headers, "callee"),
		apiCalled:    findColumn(headers, "api_called", "api", "target", "called_api"),
		category:     findColumn(headers, "category", "cat", "group"),
		reason:       findColumn(headers, "reason"),
		argPass:      findColumn(headers, "arg_pass", "argpass", "arg_passed", "args_pass"),
		retPass:      findColumn(headers, "ret_pass", "retpass", "return_pass", "ret_passed"),
	}
}

func cellAt(row []string, idx int) string {
	if idx == colMissing || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func cellInt(row []string, idx int) int {
	v, err := strconv.Atoi(strings.TrimSpace(cellAt(row, idx)))
	if err != nil {
		return 0
	}
	return v
}

// OutputPath derives the scored CSV's path next to the input, matching
// `cwrappers/fuzzy/io.py`'s `output_path`: <stem>._fuzzy_scored.csv,
// optionally relocated under outDir, or overridden entirely by outPath.
func OutputPath(inPath, outPath, outDir string) string {
	if outPath != "" {
		return outPath
	}
	stem := strings.TrimSuffix(filepath.Base(inPath), filepath.Ext(inPath))
	name := stem + "._fuzzy_scored.csv"
	if outDir != "" {
		return filepath.Join(outDir, name)
	}
	abs, err := filepath.Abs(inPath)
	if err != nil {
		abs = inPath
	}
	return filepath.Join(filepath.Dir(abs), name)
}

type scoredRow struct {
	combinedRank float64
	fanIn        int
	score        float64
	values       []string
}

// ProcessCSV reads a finder-produced CSV, scores every row against cat's
// target-name canon sets (TopKScores + WrapperScore), and writes a
// ranked `likelihood_score` CSV to OutputPath(inPath, outPath, outDir).
// It returns the path written to, matching `process_csv`'s return value
// which the pipeline subcommand reports back to the caller.
func ProcessCSV(ctx context.Context, fs afs.Service, inPath string, cat catalog.ApiCatalog, topK int, outPath, outDir string) (string, error) {
	data, err := fs.DownloadWithURL(ctx, inPath)
	if err != nil {
		return "", fmt.Errorf("fuzzyscore: read %s: %w", inPath, err)
	}

	reader := csv.NewReader(strings.NewReader(string(data)))
	records, err := reader.ReadAll()
	if err != nil {
		return "", fmt.Errorf("fuzzyscore: parse csv %s: %w", inPath, err)
	}
	if len(records) == 0 {
		return "", fmt.Errorf("fuzzyscore: empty CSV (no header)")
	}

	headers := records[0]
	idx := detectColumns(headers)
	if idx.function == colMissing {
		return "", fmt.Errorf("fuzzyscore: could not detect 'function' column")
	}

	canonSets := BuildCanonSets(cat.TargetNames)
	if topK <= 0 {
		topK = 3
	}

	rows := make([]scoredRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		function := cellAt(rec, idx.function)
		loc := strings.TrimSpace(cellAt(rec, idx.file))
		if loc == "" {
			loc = strings.TrimSpace(cellAt(rec, idx.functionLoc))
		}
		switch strings.ToLower(loc) {
		case "", "none", "null", "n/a", "na", "-":
			loc = "<unknown>"
		}

		apiCalled := cellAt(rec, idx.apiCalled)
		category := cellAt(rec, idx.category)
		reason := cellAt(rec, idx.reason)
		argPass := cellAt(rec, idx.argPass)
		retPass := cellAt(rec, idx.retPass)
		fanIn := cellInt(rec, idx.fanIn)
		fanOut := cellInt(rec, idx.fanOut)
		calleeField := cellAt(rec, idx.callee)

		scores := TopKScores(function, canonSets, topK)
		var best MatchScore
		if len(scores) > 0 {
			best = scores[0]
		}

		wscore := WrapperScore(function, apiCalled, calleeField, fanOut, best.Key, best.Combined, category, reason, argPass, retPass)

		values := []string{
			fmt.Sprintf("%d%%", int(wscore*100+0.5)),
			function,
			apiCalled,
			best.Key,
			category,
			strconv.Itoa(fanIn),
			calleeField,
			argPass,
			retPass,
			loc,
		}
		rankFanIn := fanIn
		if rankFanIn < 1 {
			rankFanIn = 1
		}
		rows = append(rows, scoredRow{
			combinedRank: float64(rankFanIn) * (1.0 + wscore),
			fanIn:        fanIn,
			score:        wscore,
			values:       values,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].combinedRank != rows[j].combinedRank {
			return rows[i].combinedRank > rows[j].combinedRank
		}
		if rows[i].fanIn != rows[j].fanIn {
			return rows[i].fanIn > rows[j].fanIn
		}
		if rows[i].score != rows[j].score {
			return rows[i].score > rows[j].score
		}
		return rows[i].values[1] < rows[j].values[1]
	})

	resolved := OutputPath(inPath, outPath, outDir)
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return "", fmt.Errorf("fuzzyscore: create output dir: %w", err)
	}
	f, err := os.Create(resolved)
	if err != nil {
		return "", fmt.Errorf("fuzzyscore: create %s: %w", resolved, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"likelihood_score", "function", "api_called", "fuzzy_match", "category", "fan_in", "callee", "arg_pass", "ret_pass", "location"}
	if err := w.Write(header); err != nil {
		return "", err
	}
	for _, r := range rows {
		if err := w.Write(r.values); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return resolved, nil
}
