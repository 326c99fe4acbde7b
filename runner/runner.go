// Package runner orchestrates one finder/callgraph invocation: loading the
// compilation database and catalog, parsing translation units concurrently,
// running the wrapper analyzer over each, merging rows and call-graph edges,
// aggregating fan-in/fan-out, and handing the results to output. It mirrors
// original_source/finder/runner.py's run_finder, generalized to this
// module's afs-backed, tree-sitter-fronted pipeline (SPEC_FULL.md §0, §3).
package runner

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/viant/afs"
	"golang.org/x/sync/errgroup"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/viant/cwrapfinder/callgraph"
	"github.com/viant/cwrapfinder/catalog"
	"github.com/viant/cwrapfinder/compiledb"
	"github.com/viant/cwrapfinder/cparse"
	"github.com/viant/cwrapfinder/ident"
	"github.com/viant/cwrapfinder/metrics"
	"github.com/viant/cwrapfinder/model"
	"github.com/viant/cwrapfinder/output"
	"github.com/viant/cwrapfinder/passthrough"
	"github.com/viant/cwrapfinder/projectscope"
	"github.com/viant/cwrapfinder/wrapper"
)

// Mode selects the wrapper decision procedure a run applies, generalizing
// the Python original's --mode flag plus its legacy aliases.
type Mode string

const (
	ModeStrictPlus Mode = "strict_plus"
	ModeRelaxed    Mode = "relaxed"
	ModeAll        Mode = "all"
)

// legacyModeAliases maps the Python CLI's historical --mode spellings onto
// the three modes this module implements (SPEC_FULL.md §3 "Legacy --mode
// aliases").
var legacyModeAliases = map[string]Mode{
	"single":               ModeStrictPlus,
	"perpath":              ModeStrictPlus,
	"perpath_strict_plus":  ModeStrictPlus,
	"perpath_relaxed":      ModeRelaxed,
	"strict_plus":          ModeStrictPlus,
	"strict-plus":          ModeStrictPlus,
	"relaxed":              ModeRelaxed,
	"all":                  ModeAll,
}

// ResolveMode maps a raw --mode flag value (including legacy aliases) onto
// a Mode, defaulting to ModeAll when raw is empty, matching run_finder's
// `if not hasattr(args, "mode"): args.mode = "all"`.
func ResolveMode(raw string) Mode {
	if raw == "" {
		return ModeAll
	}
	if m, ok := legacyModeAliases[raw]; ok {
		return m
	}
	return Mode(raw)
}

// ResolveThinAliasPolicy maps the --treat-thin-alias flag's three spelled
// values onto wrapper.ThinAliasPolicy (spec §4.3 step 5).
func ResolveThinAliasPolicy(raw string) wrapper.ThinAliasPolicy {
	switch raw {
	case "direct-only", "direct_only":
		return wrapper.PolicyDirectOnly
	case "allow-1-hop", "allow_1hop", "allow1hop":
		return wrapper.PolicyAllow1Hop
	default:
		return wrapper.PolicyDefault
	}
}

// Config holds one run's parameters, mirroring the CLI flags of
// SPEC_FULL.md §1/§3.
type Config struct {
	CompileCommandsPath string
	PathMaps            []compiledb.PathMap
	CatalogPath         string // required unless CallgraphOnly
	Mode                Mode
	ThinAliasPolicy     wrapper.ThinAliasPolicy
	OnlyLibc            bool
	OnlySyscalls        bool

	CallgraphOnly  bool
	CallgraphOut   string
	UniqueCallers  bool

	ProjectRoots []string // explicit --project-root values; empty infers common ancestor

	Concurrency int // 0 defaults to a small fixed worker count

	// OnProgress, if set, is invoked after every translation unit finishes
	// (success or failure) with the running completed/total count, so the
	// CLI can drive a progress bar without Run knowing about terminals.
	OnProgress func(done, total int)

	// DebugPreprocess, when true, shells out to a located `clang -E` on a
	// parse failure and prints its diagnostics to stderr (SPEC_FULL.md §3,
	// ported from run_finder's debug-preprocess branch). Never required
	// for normal operation: parsing itself goes through tree-sitter.
	DebugPreprocess bool
}

// Result is everything a finished run produced, for the CLI layer to write
// out and summarize.
type Result struct {
	Rows          []model.Row
	Edges         []model.Edge
	FilesAttempted int
	FilesParsed    int
	FilesFailed    int
}

// Run executes one finder/callgraph pass per cfg, logging progress and
// updating m (if non-nil) as translation units complete. fs is the afs
// service used for every file read (compilation database, catalog, and
// every translation unit's source), so the whole pipeline works unmodified
// against local paths or a remote afs backend.
func Run(ctx context.Context, fs afs.Service, cfg Config, log *slog.Logger, m *metrics.Metrics) (*Result, error) {
	if log == nil {
		log = slog.Default()
	}

	entries, err := compiledb.Load(ctx, fs, cfg.CompileCommandsPath)
	if err != nil {
		return nil, fmt.Errorf("runner: failed to load compilation database: %w", err)
	}

	units, normErrs := compiledb.Normalize(entries, cfg.PathMaps)
	for _, e := range normErrs {
		log.Warn("skipping compilation database entry", "error", e)
	}

	var cat catalog.ApiCatalog
	if !cfg.CallgraphOnly {
		if cfg.CatalogPath == "" {
			return nil, fmt.Errorf("runner: --yaml is required unless --callgraph-only is specified")
		}
		cat, err = catalog.Load(ctx, fs, cfg.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("runner: failed to load catalog: %w", err)
		}
		if len(cat.TargetNames) == 0 {
			return nil, fmt.Errorf("runner: no APIs loaded from %s", cfg.CatalogPath)
		}
		applyOnlyFilter(&cat, cfg.OnlyLibc, cfg.OnlySyscalls)
	}

	sources := make([]string, len(units))
	for i, u := range units {
		sources[i] = u.Path
	}
	scope := projectscope.New(sources, scopeOptions(cfg.ProjectRoots)...)

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	var (
		mu           sync.Mutex
		rows         []model.Row
		allEdges     []model.Edge
		filesParsed  int
		filesFailed  int
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	total := len(units)
	done := 0
	reportProgress := func() {
		if cfg.OnProgress != nil {
			cfg.OnProgress(done, total)
		}
	}

	for _, u := range units {
		u := u
		g.Go(func() error {
			tuRows, tuEdges, err := func() (tuRows []model.Row, tuEdges []model.Edge, err error) {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("panic while processing %s: %v", u.Path, r)
					}
				}()
				return processUnit(gCtx, fs, u, cat, cfg, scope)
			}()
			if err != nil {
				log.Warn("failed to process translation unit", "path", u.Path, "error", err)
				mu.Lock()
				filesFailed++
				done++
				reportProgress()
				mu.Unlock()
				if m != nil {
					m.RecordTranslationUnit(metrics.OutcomeFailed)
				}
				return nil // non-fatal: one bad TU never aborts the run (spec §5/§7)
			}

			mu.Lock()
			rows = append(rows, tuRows...)
			allEdges = append(allEdges, tuEdges...)
			filesParsed++
			done++
			reportProgress()
			mu.Unlock()
			if m != nil {
				m.RecordTranslationUnit(metrics.OutcomeParsed)
				m.RecordEdges(len(tuEdges))
			}
			return nil
		})
	}
	_ = g.Wait()

	graph := callgraph.Build(allEdges)
	attachFanInOut(rows, graph)

	if m != nil {
		m.RecordRows(len(rows))
	}

	return &Result{
		Rows:           rows,
		Edges:          graph.Edges,
		FilesAttempted: len(units),
		FilesParsed:    filesParsed,
		FilesFailed:    filesFailed,
	}, nil
}

func scopeOptions(roots []string) []projectscope.Option {
	if len(roots) == 0 {
		return nil
	}
	return []projectscope.Option{projectscope.WithAllowRoots(roots...)}
}

// applyOnlyFilter narrows cat.TargetNames per --only-libc/--only-syscalls,
// mirroring run_finder's mutually exclusive narrowing of the target set.
func applyOnlyFilter(cat *catalog.ApiCatalog, onlyLibc, onlySyscalls bool) {
	if onlyLibc {
		narrowed := map[string]bool{}
		if len(cat.Categories) > 0 {
			for name, category := range cat.NameToCategory {
				if category != "system_calls" {
					narrowed[name] = true
				}
			}
		} else {
			for name := range cat.Libc {
				narrowed[name] = true
			}
		}
		cat.TargetNames = narrowed
		return
	}
	if onlySyscalls {
		narrowed := map[string]bool{}
		if set, ok := cat.Categories["system_calls"]; ok {
			for name := range set {
				narrowed[name] = true
			}
		} else {
			for name := range cat.Syscalls {
				narrowed[name] = true
			}
		}
		cat.TargetNames = narrowed
	}
}

// debugPreprocess shells out to a located clang binary to run the
// preprocessor over a translation unit that tree-sitter failed to parse,
// printing its stderr diagnostics to help a human spot the unsanitized
// argument or unsupported construct that caused the failure. A missing
// clang is silently ignored: this module never requires it to be
// installed.
func debugPreprocess(u compiledb.TranslationUnit) {
	clangPath, err := exec.LookPath("clang")
	if err != nil {
		return
	}
	args := append([]string{"-E"}, u.Args...)
	args = append(args, u.Path)

	cmd := exec.Command(clangPath, args...)
	var stderr bytes.Buffer
	cmd.Stdout = nil
	cmd.Stderr = &stderr
	_ = cmd.Run()
	if stderr.Len() > 0 {
		fmt.Fprintf(os.Stderr, "[debug-preprocess] %s:\n%s\n", u.Path, stderr.String())
	}
}

// processUnit parses one translation unit and, unless cfg.CallgraphOnly,
// runs the wrapper analyzer over every in-project function definition.
func processUnit(ctx context.Context, fs afs.Service, u compiledb.TranslationUnit, cat catalog.ApiCatalog, cfg Config, scope *projectscope.Scope) ([]model.Row, []model.Edge, error) {
	src, err := fs.DownloadWithURL(ctx, u.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", u.Path, err)
	}

	unit, err := cparse.Parse(ctx, u.Path, src)
	if err != nil {
		if cfg.DebugPreprocess {
			debugPreprocess(u)
		}
		return nil, nil, err
	}
	defer unit.Close()

	edges := callgraph.New(unit).Collect()
	if cfg.CallgraphOnly {
		return nil, edges, nil
	}

	if !scope.Contains(u.Path) {
		return nil, edges, nil
	}

	analyzer := wrapper.New(unit, cat)
	pass := passthrough.New(unit)

	var rows []model.Row
	seen := map[string]bool{}

	for _, def := range unit.FunctionDefinitions() {
		name := cparse.FunctionName(def, unit.Source)
		if name == "" {
			continue
		}
		line := cparse.Line(def)

		decision, ok := decide(analyzer, def, cfg)
		if !ok {
			continue
		}

		funcLoc := fmt.Sprintf("%s:%d", u.Path, line)
		dedupAPI := decision.ApiName
		if dedupAPI == "" {
			dedupAPI = "other"
		}
		dedupKey := name + "|" + funcLoc + "|" + dedupAPI
		if seen[dedupKey] {
			continue
		}
		seen[dedupKey] = true

		row := model.NewRow()
		row.File = u.Path
		row.Function = name
		row.FunctionKey = ident.FunctionKey(name, u.Path, line)
		row.ApiCalled = decision.ApiName
		row.Category = cat.CategoryOf(decision.ApiName)
		row.TotalTargetCalls = decision.TotalHits
		if decision.HitLocs != nil {
			row.HitLocs = decision.HitLocs
		}
		row.PerPathSingle = decision.PerPathSingle
		row.DerivedFromParams = decision.DerivedFromParams
		if decision.DerivationTrace != nil {
			row.DerivationTrace = decision.DerivationTrace
		}
		row.Reason = decision.Reason
		row.FunctionLoc = funcLoc
		row.PairUsed = decision.PairUsed
		row.ViaHelperHop = decision.ViaHelperHop
		if decision.IgnoredHelpers != nil {
			row.IgnoredHelpers = decision.IgnoredHelpers
		}
		row.Family = familyOf(cat, decision.ApiName)
		row.IsThinAlias = cat.IsThinAlias(decision.ApiName)

		if decision.ApiName == "" {
			row.ApiCalled = "other"
			row.Category = "N/A"
			row.Reason = "N/A"
			row.ArgPass = "N/A"
			row.RetPass = "N/A"
		} else {
			row.ArgPass = pass.ArgPass(def, decision.MatchingCalls)
			row.RetPass = pass.RetPass(def, matchingCallLocs(decision.MatchingCalls))
		}

		rows = append(rows, row)
	}

	return rows, edges, nil
}

// decide runs the mode-appropriate decision procedure and reports whether
// the function should produce a row at all. For strict_plus/relaxed, that's
// exactly Decision.Keep; for the legacy "all" mode every in-project
// function produces a row, whether or not it looks like a genuine wrapper,
// matching run_finder's "all" branch which never gates on keep.
func decide(a *wrapper.Analyzer, def *sitter.Node, cfg Config) (wrapper.Decision, bool) {
	switch cfg.Mode {
	case ModeRelaxed:
		d := a.Relaxed(def)
		return d, d.Keep
	case ModeAll:
		return decideAll(a, def, cfg)
	default:
		d := a.StrictPlus(def, cfg.ThinAliasPolicy)
		return d, d.Keep
	}
}

// decideAll reproduces run_finder's mode_eff == "all" branch: every
// function with at least one resolved target-API hit gets a row built from
// StrictPlus's evidence regardless of whether StrictPlus would keep it;
// every function with zero hits still gets a catch-all row (api_called
// "other", reason "N/A") so the CSV enumerates the whole in-project
// function population for manual triage.
func decideAll(a *wrapper.Analyzer, def *sitter.Node, cfg Config) (wrapper.Decision, bool) {
	apis, hitLocs := a.CollectHits(def)
	if len(apis) == 0 {
		return wrapper.Decision{
			Keep:              true,
			PerPathSingle:     true,
			DerivedFromParams: false,
		}, true
	}

	d := a.StrictPlus(def, cfg.ThinAliasPolicy)
	if d.ApiName == "" {
		d.ApiName = apis[0]
	}
	if d.TotalHits == 0 {
		d.TotalHits = len(hitLocs)
		d.HitLocs = hitLocs
	}
	return d, true
}

func familyOf(cat catalog.ApiCatalog, apiName string) string {
	if cat.IsThinAlias(apiName) {
		return "thin_alias"
	}
	return "-"
}

func matchingCallLocs(calls []*sitter.Node) map[string]bool {
	out := map[string]bool{}
	for _, c := range calls {
		out[fmt.Sprintf("%d:%d", cparse.Line(c), cparse.Column(c))] = true
	}
	return out
}

// attachFanInOut populates each row's FanIn/FanOut/Callees from graph,
// matching run_finder's post-loop aggregation pass. Each row reads only its
// own function key: calls reaching the function from other translation
// units are recorded under the `<name>@<unknown>` callee key and are not
// counted in its FanIn. Rows whose function key has no graph presence keep
// zero values.
func attachFanInOut(rows []model.Row, graph *callgraph.Graph) {
	for i := range rows {
		key := rows[i].FunctionKey
		rows[i].FanIn = graph.FanIn(key)
		rows[i].FanOut = graph.FanOut(key)
		rows[i].Callees = graph.Callees(key)
	}
}

// Summary renders the closing run-metrics block run_finder prints after a
// finder run (SPEC_FULL.md §3 "Run summary"): files processed, row/edge
// counts, and the top ten candidates by fan-in and by fan-out. Callees are
// not ranked by call count.
func Summary(res *Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "files processed: %d (parsed=%d failed=%d)\n", res.FilesAttempted, res.FilesParsed, res.FilesFailed)
	fmt.Fprintf(&b, "wrapper rows:    %d\n", len(res.Rows))
	fmt.Fprintf(&b, "callgraph edges: %d\n", len(res.Edges))

	if len(res.Rows) == 0 {
		return b.String()
	}

	byFanIn := append([]model.Row(nil), res.Rows...)
	sort.Slice(byFanIn, func(i, j int) bool {
		if byFanIn[i].FanIn != byFanIn[j].FanIn {
			return byFanIn[i].FanIn > byFanIn[j].FanIn
		}
		return byFanIn[i].FunctionKey < byFanIn[j].FunctionKey
	})
	byFanOut := append([]model.Row(nil), res.Rows...)
	sort.Slice(byFanOut, func(i, j int) bool {
		if byFanOut[i].FanOut != byFanOut[j].FanOut {
			return byFanOut[i].FanOut > byFanOut[j].FanOut
		}
		return byFanOut[i].FunctionKey < byFanOut[j].FunctionKey
	})

	b.WriteString("top wrapper candidates by fan_in:\n")
	for _, r := range topN(byFanIn, 10) {
		fmt.Fprintf(&b, "  %s: fan_in=%d, fan_out=%d, file=%s\n", r.Function, r.FanIn, r.FanOut, r.File)
	}
	b.WriteString("top wrapper candidates by fan_out:\n")
	for _, r := range topN(byFanOut, 10) {
		fmt.Fprintf(&b, "  %s: fan_out=%d, fan_in=%d, file=%s\n", r.Function, r.FanOut, r.FanIn, r.File)
	}
	return b.String()
}

func topN(rows []model.Row, n int) []model.Row {
	if len(rows) < n {
		return rows
	}
	return rows[:n]
}

// RunDuration records a completed run's wall-clock duration into m, when
// non-nil. Exposed so the CLI can time Run without metrics needing to know
// about time.Time.
func RunDuration(m *metrics.Metrics, d time.Duration) {
	if m != nil {
		m.RecordDuration(d)
	}
}

// WriteOutputs dispatches rows/edges to the output package per cfg's
// format selections, and is the single place the CLI needs to call after
// Run.
func WriteOutputs(rows []model.Row, edges []model.Edge, format, outPath string, allColumns bool, cfg Config) error {
	if cfg.CallgraphOnly || cfg.CallgraphOut != "" {
		if err := output.WriteCallgraph(edges, callgraphOutDir(cfg), cfg.UniqueCallers); err != nil {
			return err
		}
		if cfg.CallgraphOnly {
			return nil
		}
	}

	switch format {
	case "json":
		return output.WriteRowsJSON(rows, outPath)
	case "jsonl":
		return output.WriteRowsJSONL(rows, outPath)
	default:
		return output.WriteRowsCSV(rows, outPath, allColumns)
	}
}

func callgraphOutDir(cfg Config) string {
	if cfg.CallgraphOut != "" {
		return cfg.CallgraphOut
	}
	return "."
}
