// Package output writes wrapper-detection rows as CSV, JSON, or JSONL
// (spec §6), mirroring the Python original's output.py, including its
// minimal-vs-all-columns CSV modes and "-" (stdout) path convention.
package output

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/viant/cwrapfinder/model"
)

// WriteCallgraph writes the two callgraph tables spec §6 defines into
// outDir: callgraph_edges.csv (caller, caller_key, callee, callee_key,
// callsite) and call_counts.csv (callee_name, callee_key, total_calls,
// unique_caller_count, callers), the latter's callers column being a
// ";"-joined sorted set of caller keys. unique_caller_count is always
// written; when uniqueCallers is false the callers column is left blank,
// matching the Python original's --unique-callers gate on the column's
// presence rather than the count itself.
func WriteCallgraph(edges []model.Edge, outDir string, uniqueCallers bool) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("output: failed to create callgraph dir %s: %w", outDir, err)
	}

	if err := writeCallgraphEdges(edges, filepath.Join(outDir, "callgraph_edges.csv")); err != nil {
		return err
	}
	return writeCallCounts(edges, filepath.Join(outDir, "call_counts.csv"), uniqueCallers)
}

func writeCallgraphEdges(edges []model.Edge, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: failed to create %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if err := cw.Write([]string{"caller", "caller_key", "callee", "callee_key", "callsite"}); err != nil {
		return err
	}
	for _, e := range edges {
		if err := cw.Write([]string{e.Caller, e.CallerKey, e.Callee, e.CalleeKey, e.Loc}); err != nil {
			return err
		}
	}
	return nil
}

type calleeCounts struct {
	name       string
	key        string
	totalCalls int
	callerKeys map[string]bool
}

func writeCallCounts(edges []model.Edge, path string, uniqueCallers bool) error {
	byKey := map[string]*calleeCounts{}
	var order []string
	for _, e := range edges {
		cc, ok := byKey[e.CalleeKey]
		if !ok {
			cc = &calleeCounts{name: e.Callee, key: e.CalleeKey, callerKeys: map[string]bool{}}
			byKey[e.CalleeKey] = cc
			order = append(order, e.CalleeKey)
		}
		cc.totalCalls++
		cc.callerKeys[e.CallerKey] = true
	}
	sort.Slice(order, func(i, j int) bool {
		ci, cj := byKey[order[i]], byKey[order[j]]
		if ci.totalCalls != cj.totalCalls {
			return ci.totalCalls > cj.totalCalls
		}
		return order[i] < order[j]
	})

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: failed to create %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if err := cw.Write([]string{"callee_name", "callee_key", "total_calls", "unique_caller_count", "callers"}); err != nil {
		return err
	}
	for _, key := range order {
		cc := byKey[key]
		callers := ""
		if uniqueCallers {
			keys := make([]string, 0, len(cc.callerKeys))
			for k := range cc.callerKeys {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			callers = strings.Join(keys, ";")
		}
		record := []string{
			cc.name, cc.key, strconv.Itoa(cc.totalCalls), strconv.Itoa(len(cc.callerKeys)), callers,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	return nil
}

// IsStdout reports whether path denotes stdout ("" or "-").
func IsStdout(path string) bool {
	return path == "" || path == "-"
}

// PrepareLocation ensures the parent directory of a file-output path
// exists (or the directory itself, when preferDir is set and the path has
// no extension), mirroring prepare_output_location's best-effort
// directory creation.
func PrepareLocation(path string, preferDir bool) error {
	if IsStdout(path) {
		return nil
	}
	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return nil
		}
		return nil
	}
	looksLikeFile := filepath.Ext(path) != ""
	if looksLikeFile && !preferDir {
		return os.MkdirAll(filepath.Dir(path), 0o755)
	}
	return os.MkdirAll(path, 0o755)
}

var hitLocDelimRe = regexp.MustCompile(`[\s,;]+`)

// SerializeHitLocs encodes hit-location strings into a single
// pipe-delimited, delimiter-safe field for CSV consumers.
func SerializeHitLocs(hitLocs []string) string {
	if len(hitLocs) == 0 {
		return ""
	}
	out := make([]string, len(hitLocs))
	for i, s := range hitLocs {
		out[i] = hitLocDelimRe.ReplaceAllString(strings.TrimSpace(s), "_")
	}
	return strings.Join(out, "|")
}

func boolStr(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func openWriter(path string) (io.Writer, func() error, error) {
	if IsStdout(path) {
		w := bufio.NewWriter(os.Stdout)
		return w, w.Flush, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("output: failed to create %s: %w", path, err)
	}
	return f, f.Close, nil
}

var allColumns = []string{
	"file", "function", "function_key", "api_called", "category", "total_target_calls",
	"hit_locs", "per_path_single", "derived_from_params",
	"derivation_trace", "arg_pass", "ret_pass", "reason", "function_loc",
	"pair_used", "via_helper_hop", "ignored_helpers", "fan_in", "fan_out",
	"family", "is_thin_alias", "callee",
}

var minColumns = []string{
	"file", "function", "api_called", "category", "fan_in", "fan_out", "callee", "hit_locs", "arg_pass", "ret_pass", "reason",
}

// WriteRowsCSV writes rows as CSV to outPath ("-" for stdout), in either
// the full column set or the minimal default set.
func WriteRowsCSV(rows []model.Row, outPath string, allCols bool) error {
	w, closeFn, err := openWriter(outPath)
	if err != nil {
		return err
	}
	defer closeFn()

	cw := csv.NewWriter(w)
	defer cw.Flush()

	if allCols {
		if err := cw.Write(allColumns); err != nil {
			return err
		}
		for _, r := range rows {
			record := []string{
				r.File, r.Function, r.FunctionKey, r.ApiCalled, r.Category, strconv.Itoa(r.TotalTargetCalls),
				SerializeHitLocs(r.HitLocs),
				boolStr(r.PerPathSingle),
				boolStr(r.DerivedFromParams),
				strings.Join(r.DerivationTrace, ";"),
				r.ArgPass,
				r.RetPass,
				orDash(r.Reason),
				orDash(r.FunctionLoc),
				boolStr(r.PairUsed),
				boolStr(r.ViaHelperHop),
				strings.Join(r.IgnoredHelpers, ";"),
				strconv.Itoa(r.FanIn),
				strconv.Itoa(r.FanOut),
				r.Family,
				boolStr(r.IsThinAlias),
				strings.Join(r.Callees, " - "),
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
		return nil
	}

	if err := cw.Write(minColumns); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.File,
			r.Function,
			r.ApiCalled,
			r.Category,
			strconv.Itoa(r.FanIn),
			strconv.Itoa(r.FanOut),
			strings.Join(r.Callees, " - "),
			SerializeHitLocs(r.HitLocs),
			r.ArgPass,
			r.RetPass,
			orDash(r.Reason),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	return nil
}

// WriteRowsJSON writes rows as a single pretty-printed JSON array.
func WriteRowsJSON(rows []model.Row, outPath string) error {
	w, closeFn, err := openWriter(outPath)
	if err != nil {
		return err
	}
	defer closeFn()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// WriteRowsJSONL writes rows as newline-delimited JSON, one object per
// line.
func WriteRowsJSONL(rows []model.Row, outPath string) error {
	w, closeFn, err := openWriter(outPath)
	if err != nil {
		return err
	}
	defer closeFn()

	enc := json.NewEncoder(w)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
