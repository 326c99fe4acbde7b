// Package wrapper orchestrates the per-path counter, helper-hop resolver,
// and provenance analyzer into the two public wrapper decisions of spec
// §4.3 (strict-plus) and §4.4 (relaxed).
package wrapper

import (
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/viant/cwrapfinder/catalog"
	"github.com/viant/cwrapfinder/cparse"
	"github.com/viant/cwrapfinder/hop"
	"github.com/viant/cwrapfinder/passthrough"
	"github.com/viant/cwrapfinder/pathcount"
	"github.com/viant/cwrapfinder/provenance"
)

// ThinAliasPolicy selects how strict-plus treats a matched target that is
// itself a documented thin alias (spec §4.3 step 5).
type ThinAliasPolicy int

const (
	PolicyDefault ThinAliasPolicy = iota
	PolicyDirectOnly
	PolicyAllow1Hop
)

// Decision is the 11-tuple strict-plus and relaxed both return (spec
// §4.3): whether to keep the function, and every evidence field a Row is
// built from.
type Decision struct {
	Keep              bool
	PerPathSingle     bool
	TotalHits         int
	Reason            string
	HitLocs           []string
	ApiName           string
	DerivedFromParams bool
	DerivationTrace   []string
	PairUsed          bool
	ViaHelperHop      bool
	IgnoredHelpers    []string

	// MatchingCalls are the call sites counted toward ApiName, exposed so
	// the runner can feed them into the pass-through classifier (§4.6)
	// without re-walking the body.
	MatchingCalls []*sitter.Node
}

func reject(reason string) Decision {
	return Decision{Keep: false, Reason: reason}
}

// Analyzer orchestrates a single translation unit's decisions.
type Analyzer struct {
	Unit    *cparse.Unit
	Catalog catalog.ApiCatalog
	Hops    *hop.Resolver
	Counter *pathcount.Counter
	Prov    *provenance.Analyzer
	Pass    *passthrough.Classifier
}

// New builds an Analyzer wiring every sub-component to unit and cat.
func New(unit *cparse.Unit, cat catalog.ApiCatalog) *Analyzer {
	hops := hop.New(unit, cat)
	return &Analyzer{
		Unit:    unit,
		Catalog: cat,
		Hops:    hops,
		Counter: pathcount.New(unit, cat, hops),
		Prov:    provenance.New(unit, cat.Helpers),
		Pass:    passthrough.New(unit),
	}
}

type callEvidence struct {
	apis           []string
	apiToCalls     map[string][]*sitter.Node
	hitLocs        []string
	ignoredHelpers map[string]bool
	viaHelperHop   bool
	viaHopDepthGE2 bool
}

// collectEvidence walks every call in def's body, classifying each one per
// the counting rule of spec §4.1 and the evidence-collection rule of
// §4.3 step 4.
func (a *Analyzer) collectEvidence(def *sitter.Node) callEvidence {
	ev := callEvidence{apiToCalls: map[string][]*sitter.Node{}, ignoredHelpers: map[string]bool{}}
	seenAPI := map[string]bool{}

	cparse.WalkCalls(cparse.Body(def), func(call *sitter.Node) {
		name := cparse.CallCallee(call, a.Unit.Source)
		if name == "" {
			return
		}
		loc := fmt.Sprintf("%d:%d", cparse.Line(call), cparse.Column(call))

		if a.Catalog.Helpers.AnyMatch(name, catalog.WhichBenign) {
			ev.ignoredHelpers[name] = true
			return
		}
		if a.Catalog.IsTarget(name) {
			a.recordHit(&ev, name, call, loc, seenAPI)
			return
		}
		if inner := cparse.SyscallIndirection(call, a.Unit.Source); inner != "" && a.Catalog.IsTarget(inner) {
			a.recordHit(&ev, inner, call, loc, seenAPI)
			return
		}
		if hit, inner, ge2 := a.Hops.NHop(name, pathcount.MaxHops, map[uint64]bool{}); hit {
			ev.viaHelperHop = true
			if ge2 {
				ev.viaHopDepthGE2 = true
			}
			if inner != "" {
				a.recordHit(&ev, inner, call, loc, seenAPI)
			} else {
				ev.ignoredHelpers[name] = true
			}
			return
		}
	})

	return ev
}

func (a *Analyzer) recordHit(ev *callEvidence, name string, call *sitter.Node, loc string, seen map[string]bool) {
	if !seen[name] {
		seen[name] = true
		ev.apis = append(ev.apis, name)
	}
	ev.apiToCalls[name] = append(ev.apiToCalls[name], call)
	ev.hitLocs = append(ev.hitLocs, loc)
}

// CollectHits walks def's body and returns every resolved target-API hit
// (direct, syscall-indirection, or helper-hop resolved), without applying
// any of StrictPlus's path-sensitivity, thin-alias, or atomic-pair gating.
// This backs the legacy "all" mode (SPEC_FULL.md §3), which lists every
// in-project function and only asks "does it call a target API at all",
// deferring the precision/recall judgment to a human reviewing the CSV.
func (a *Analyzer) CollectHits(def *sitter.Node) (apis []string, hitLocs []string) {
	ev := a.collectEvidence(def)
	return ev.apis, ev.hitLocs
}

// StrictPlus runs the high-precision decision procedure of spec §4.3.
func (a *Analyzer) StrictPlus(def *sitter.Node, policy ThinAliasPolicy) Decision {
	body := cparse.Body(def)
	if body == nil {
		return reject("no-body")
	}

	path := a.Counter.AnalyzeStmt(body)
	if path.Unknown {
		return reject("unknown-control-flow")
	}

	maxPos := path.Counts.Max()
	guardOk := path.Counts.Has(0) && HasEarlyGuardReturn(def, a.Unit.Source, a.Catalog.Helpers)
	if path.Counts.Has(0) && !guardOk {
		return reject(fmt.Sprintf("path-counts=%s", sortedCounts(path.Counts)))
	}

	ev := a.collectEvidence(def)
	totalHits := len(ev.hitLocs)
	if totalHits == 0 {
		return reject("no-calls")
	}

	if len(ev.apis) > 0 && a.Catalog.IsThinAlias(ev.apis[0]) {
		switch policy {
		case PolicyDefault, PolicyDirectOnly:
			if ev.viaHelperHop {
				return reject("reject: thin-alias-via-helper")
			}
		case PolicyAllow1Hop:
			if ev.viaHopDepthGE2 {
				return reject("reject: thin-alias-hop-depth>=2")
			}
		}
	}

	pairUsed := false
	if maxPos >= 2 {
		if totalHits == 2 && IsAtomicPair(ev.apis) {
			pairUsed = true
		} else {
			return reject("reject: multi-call-per-path")
		}
	}

	apiName := ev.apis[0]
	matchingCalls := ev.apiToCalls[apiName]
	derivedFromParams, derivationTrace := a.Prov.CheckArgumentsProvenance(def, matchingCalls)

	reason := "ok"
	if guardOk {
		reason += "+ok-guard"
	}
	if ev.viaHelperHop {
		reason += "+via-hop"
	}
	if pairUsed {
		reason += "+atomic-pair"
	}

	var ignored []string
	for name := range ev.ignoredHelpers {
		ignored = append(ignored, name)
	}
	sort.Strings(ignored)

	return Decision{
		Keep:              true,
		PerPathSingle:     true,
		TotalHits:         totalHits,
		Reason:            reason,
		HitLocs:           ev.hitLocs,
		ApiName:           apiName,
		DerivedFromParams: derivedFromParams,
		DerivationTrace:   derivationTrace,
		PairUsed:          pairUsed,
		ViaHelperHop:      ev.viaHelperHop,
		IgnoredHelpers:    ignored,
		MatchingCalls:     matchingCalls,
	}
}

// Relaxed runs the high-recall decision procedure of spec §4.4.
func (a *Analyzer) Relaxed(def *sitter.Node) Decision {
	body := cparse.Body(def)
	if body == nil {
		return reject("no-body")
	}

	path := a.Counter.AnalyzeStmt(body)
	hasPositive := false
	for n := range path.Counts {
		if n > 0 {
			hasPositive = true
		}
	}
	if !hasPositive {
		return reject("no-calls")
	}

	ev := a.collectEvidence(def)
	if len(ev.hitLocs) == 0 {
		return reject("no-calls")
	}

	perPathSingle := true
	for n := range path.Counts {
		if n > 1 {
			perPathSingle = false
		}
	}

	return Decision{
		Keep:              true,
		PerPathSingle:     perPathSingle,
		TotalHits:         len(ev.hitLocs),
		Reason:            "ok",
		HitLocs:           ev.hitLocs,
		ApiName:           ev.apis[0],
		DerivedFromParams: true,
		DerivationTrace:   nil,
		PairUsed:          false,
		ViaHelperHop:      false,
		IgnoredHelpers:    nil,
		MatchingCalls:     ev.apiToCalls[ev.apis[0]],
	}
}

func sortedCounts(s pathcount.CountSet) string {
	var ns []int
	for n := range s {
		ns = append(ns, n)
	}
	sort.Ints(ns)
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
