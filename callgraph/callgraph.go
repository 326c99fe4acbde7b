// Package callgraph collects call edges out of a translation unit and
// aggregates them into fan-in/fan-out counts per function (spec §4.7),
// mirroring the two-pass (collect, then aggregate) shape of the Python
// original's callgraph.py.
package callgraph

import (
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/viant/cwrapfinder/cparse"
	"github.com/viant/cwrapfinder/ident"
	"github.com/viant/cwrapfinder/model"
)

// Collector walks one translation unit's function definitions, recording
// a model.Edge for every call site, keyed by the stable function keys
// callers/callees are addressed by elsewhere in the analyzer.
type Collector struct {
	Unit *cparse.Unit
}

// New returns a Collector scoped to unit.
func New(unit *cparse.Unit) *Collector {
	return &Collector{Unit: unit}
}

// Collect walks every function definition in the unit, returning one Edge
// per distinct call site (deduplicated by location within this unit, same
// as the Python original's per-TU `seen` set).
func (c *Collector) Collect() []model.Edge {
	var edges []model.Edge
	seenLoc := map[string]bool{}

	for _, def := range c.Unit.FunctionDefinitions() {
		callerName := cparse.FunctionName(def, c.Unit.Source)
		callerKey := ident.FunctionKey(callerName, c.Unit.Path, cparse.Line(def))

		body := cparse.Body(def)
		if body == nil {
			continue
		}

		cparse.WalkCalls(body, func(call *sitter.Node) {
			loc := fmt.Sprintf("%s:%d:%d", c.Unit.Path, cparse.Line(call), cparse.Column(call))
			if seenLoc[loc] {
				return
			}
			seenLoc[loc] = true

			calleeName := cparse.CallCallee(call, c.Unit.Source)
			if calleeName == "" {
				calleeName = "<indirect>"
			}
			edges = append(edges, model.Edge{
				CallerKey: callerKey,
				CalleeKey: c.calleeKey(calleeName),
				Caller:    callerName,
				Callee:    calleeName,
				Loc:       loc,
			})
		})
	}

	return edges
}

// calleeKey resolves name to the stable key of its definition when one is
// visible in this translation unit (spec §4.7's "resolved" edge); when the
// callee is not defined here — a libc call, a call into another TU, or a
// genuinely indirect call through a function pointer — it salvages a
// name-qualified placeholder key rather than dropping the edge, the same
// `<unknown>`-suffixed fallback the Python original uses when no USR is
// available for the referenced declaration.
func (c *Collector) calleeKey(name string) string {
	if name == "<indirect>" {
		return "<indirect>@<unknown>"
	}
	if def := c.Unit.ResolveCallee(name); def != nil {
		return ident.FunctionKey(name, c.Unit.Path, cparse.Line(def))
	}
	return fmt.Sprintf("%s@<unknown>", name)
}

// Graph aggregates edges from one or more translation units into fan-in
// (distinct callers) / fan-out (distinct callees) counts per function key,
// the shape spec §4.7's Row.fan_in/fan_out fields are read from.
type Graph struct {
	Edges []model.Edge

	nameByKey map[string]string
	callersOf map[string]map[string]bool
	calleesOf map[string]map[string]bool
}

// Build aggregates edges into a Graph, globally deduplicating by
// (loc, callerKey, calleeKey) the way write_callgraph does across TUs
// before computing counts.
func Build(edges []model.Edge) *Graph {
	g := &Graph{
		nameByKey: map[string]string{},
		callersOf: map[string]map[string]bool{},
		calleesOf: map[string]map[string]bool{},
	}

	seen := map[string]bool{}
	for _, e := range edges {
		dedupKey := e.Loc + "|" + e.CallerKey + "|" + e.CalleeKey
		if seen[dedupKey] {
			continue
		}
		seen[dedupKey] = true
		g.Edges = append(g.Edges, e)

		if _, ok := g.nameByKey[e.CallerKey]; !ok && e.Caller != "" {
			g.nameByKey[e.CallerKey] = e.Caller
		}
		if _, ok := g.nameByKey[e.CalleeKey]; !ok && e.Callee != "" {
			g.nameByKey[e.CalleeKey] = e.Callee
		}

		if g.callersOf[e.CalleeKey] == nil {
			g.callersOf[e.CalleeKey] = map[string]bool{}
		}
		g.callersOf[e.CalleeKey][e.CallerKey] = true

		if g.calleesOf[e.CallerKey] == nil {
			g.calleesOf[e.CallerKey] = map[string]bool{}
		}
		g.calleesOf[e.CallerKey][e.CalleeKey] = true
	}

	return g
}

// FanIn returns the number of distinct callers of the function keyed by
// functionKey.
func (g *Graph) FanIn(functionKey string) int {
	return len(g.callersOf[functionKey])
}

// FanOut returns the number of distinct functions functionKey calls.
func (g *Graph) FanOut(functionKey string) int {
	return len(g.calleesOf[functionKey])
}

// Callees returns the sorted, de-duplicated callee names of functionKey,
// for Row.Callees.
func (g *Graph) Callees(functionKey string) []string {
	var out []string
	seen := map[string]bool{}
	for _, e := range g.Edges {
		if e.CallerKey == functionKey && !seen[e.Callee] {
			seen[e.Callee] = true
			out = append(out, e.Callee)
		}
	}
	sort.Strings(out)
	return out
}

// NameOf returns the best-known display name for a function key.
func (g *Graph) NameOf(key string) string {
	return g.nameByKey[key]
}
