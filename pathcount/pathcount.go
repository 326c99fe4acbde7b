// Package pathcount implements the per-path statement counter (spec §4.1):
// for any statement, the conservative set of possible target-call counts
// reachable along some execution path through it, saturated at 2.
package pathcount

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/viant/cwrapfinder/catalog"
	"github.com/viant/cwrapfinder/cparse"
	"github.com/viant/cwrapfinder/hop"
)

// SaturationCap is the maximum value a PathResult count may hold; 2 stands
// for "two or more".
const SaturationCap = 2

// MaxHops is the helper-hop bound the strict-plus decision runs the
// counter with (spec §4.3 step 2).
const MaxHops = 2

// CountSet is a set of small non-negative integers, bounded by
// SaturationCap.
type CountSet map[int]bool

func singleton(n int) CountSet { return CountSet{n: true} }

// Max returns the largest member of s, or -1 if s is empty.
func (s CountSet) Max() int {
	max := -1
	for n := range s {
		if n > max {
			max = n
		}
	}
	return max
}

// Has reports whether n is a member of s.
func (s CountSet) Has(n int) bool { return s[n] }

func union(sets ...CountSet) CountSet {
	out := CountSet{}
	for _, s := range sets {
		for n := range s {
			out[n] = true
		}
	}
	if len(out) == 0 {
		out[0] = true
	}
	return out
}

func saturate(n int) int {
	if n > SaturationCap {
		return SaturationCap
	}
	return n
}

// PathResult is the per-statement outcome of the counter: the set of
// possible target-call counts on some path through the statement, and
// whether unrecognized control flow was encountered.
type PathResult struct {
	Counts  CountSet
	Unknown bool
}

func result(c CountSet, unknown bool) PathResult {
	if len(c) == 0 {
		c = CountSet{0: true}
	}
	return PathResult{Counts: c, Unknown: unknown}
}

// Counter runs analyze_stmt over a translation unit's statements.
type Counter struct {
	Unit    *cparse.Unit
	Catalog catalog.ApiCatalog
	Hops    *hop.Resolver
}

// New returns a Counter scoped to unit and cat, using resolver for the
// helper-hop rule (step 4 of the call-counting rule).
func New(unit *cparse.Unit, cat catalog.ApiCatalog, resolver *hop.Resolver) *Counter {
	return &Counter{Unit: unit, Catalog: cat, Hops: resolver}
}

// AnalyzeStmt is analyze_stmt(stmt, targets, helpers, max_hops) → PathResult.
func (c *Counter) AnalyzeStmt(stmt *sitter.Node) PathResult {
	if stmt == nil {
		return result(CountSet{0: true}, false)
	}

	switch stmt.Type() {
	case "return_statement":
		return c.analyzeExprHolder(stmt)

	case "expression_statement":
		return c.analyzeExprHolder(stmt)

	case "declaration":
		total := 0
		for i := 0; i < int(stmt.ChildCount()); i++ {
			child := stmt.Child(i)
			if child.Type() != "init_declarator" {
				continue
			}
			value := child.ChildByFieldName("value")
			if value == nil {
				continue
			}
			cparse.WalkCalls(value, func(call *sitter.Node) {
				total += c.countCall(call)
			})
		}
		return result(singleton(saturate(total)), false)

	case "if_statement":
		cons := stmt.ChildByFieldName("consequence")
		alt := stmt.ChildByFieldName("alternative")
		r1 := c.AnalyzeStmt(cons)
		var r2 PathResult
		if alt != nil {
			r2 = c.AnalyzeStmt(alt)
		} else {
			r2 = result(CountSet{0: true}, false)
		}
		return result(union(r1.Counts, r2.Counts), r1.Unknown || r2.Unknown)

	case "switch_statement":
		body := stmt.ChildByFieldName("body")
		if body == nil {
			return result(CountSet{0: true}, false)
		}
		var sets []CountSet
		unknown := false
		for i := 0; i < int(body.ChildCount()); i++ {
			c2 := body.Child(i)
			if c2.Type() == "case_statement" {
				r := c.analyzeChildren(c2)
				sets = append(sets, r.Counts)
				unknown = unknown || r.Unknown
			}
		}
		return result(union(sets...), unknown)

	case "conditional_expression":
		cons := stmt.ChildByFieldName("consequence")
		alt := stmt.ChildByFieldName("alternative")
		r1 := c.analyzeExprNode(cons)
		r2 := c.analyzeExprNode(alt)
		return result(union(r1.Counts, r2.Counts), r1.Unknown || r2.Unknown)

	case "compound_statement":
		return c.analyzeSeq(cparse.TopLevelStatements(stmt))

	case "for_statement", "while_statement", "do_statement":
		// A loop whose body never reaches a target contributes only 0,
		// whatever its trip count. A loop whose body reaches a target at
		// least once per iteration may run one or many times, so its
		// result is "one iteration" union "many iterations, saturating at
		// the cap"; a body whose own count already reaches the cap
		// collapses the whole loop to an unconditionally unknown {2}.
		body := loopBody(stmt)
		b := c.AnalyzeStmt(body)
		switch {
		case b.Counts.Max() >= 2:
			return result(CountSet{2: true}, true)
		case b.Counts.Max() >= 1:
			return result(CountSet{1: true, 2: true}, b.Unknown)
		default:
			return result(CountSet{0: true}, b.Unknown)
		}

	case "goto_statement", "labeled_statement":
		return result(CountSet{0: true}, true)

	default:
		return c.analyzeChildren(stmt)
	}
}

func loopBody(stmt *sitter.Node) *sitter.Node {
	body := stmt.ChildByFieldName("body")
	return body
}

// analyzeExprHolder analyzes a statement whose only direct content is an
// expression (a return or bare expression statement): the singleton of
// the expression's call count.
func (c *Counter) analyzeExprHolder(stmt *sitter.Node) PathResult {
	var expr *sitter.Node
	for i := 0; i < int(stmt.ChildCount()); i++ {
		ch := stmt.Child(i)
		switch ch.Type() {
		case "return", ";":
			continue
		default:
			expr = ch
		}
	}
	return c.analyzeExprNode(expr)
}

// analyzeExprNode counts target-call sites within expr. A conditional
// (ternary) operator is treated like an if-statement (union of branches,
// spec §4.1); any other expression is straight-line, so all of its nested
// calls occur on every path through it and their contributions sum,
// saturating at the cap.
func (c *Counter) analyzeExprNode(expr *sitter.Node) PathResult {
	if expr == nil {
		return result(CountSet{0: true}, false)
	}
	if expr.Type() == "conditional_expression" {
		cons := expr.ChildByFieldName("consequence")
		alt := expr.ChildByFieldName("alternative")
		r1 := c.analyzeExprNode(cons)
		r2 := c.analyzeExprNode(alt)
		return result(union(r1.Counts, r2.Counts), r1.Unknown || r2.Unknown)
	}
	total := 0
	cparse.WalkCalls(expr, func(call *sitter.Node) {
		total += c.countCall(call)
	})
	return result(singleton(saturate(total)), false)
}

// analyzeSeq folds a statement sequence left to right (the compound rule
// of spec §4.1), with one refinement needed to make "early-guard" paths
// meaningful: when the first statement is an if whose then- or
// else-branch always returns, that branch's path ends there (it
// contributes directly to the result, without folding in the statements
// that follow) while any non-returning branch continues into the rest of
// the sequence. Without this, an early-return guard could never produce a
// 0-call path distinct from the guarded continuation.
func (c *Counter) analyzeSeq(stmts []*sitter.Node) PathResult {
	if len(stmts) == 0 {
		return result(CountSet{0: true}, false)
	}
	first, rest := stmts[0], stmts[1:]

	if first.Type() == "if_statement" {
		cons := first.ChildByFieldName("consequence")
		alt := first.ChildByFieldName("alternative")
		consResult := c.AnalyzeStmt(cons)
		var altResult PathResult
		if alt != nil {
			altResult = c.AnalyzeStmt(alt)
		} else {
			altResult = result(CountSet{0: true}, false)
		}
		consTerminal := alwaysReturns(cons)
		altTerminal := alt != nil && alwaysReturns(alt)

		unknown := consResult.Unknown || altResult.Unknown
		var terminalSets []CountSet
		var continuationSets []CountSet
		if consTerminal {
			terminalSets = append(terminalSets, consResult.Counts)
		} else {
			continuationSets = append(continuationSets, consResult.Counts)
		}
		if alt == nil {
			continuationSets = append(continuationSets, altResult.Counts)
		} else if altTerminal {
			terminalSets = append(terminalSets, altResult.Counts)
		} else {
			continuationSets = append(continuationSets, altResult.Counts)
		}

		var sets []CountSet
		sets = append(sets, terminalSets...)
		if len(continuationSets) > 0 {
			restResult := c.analyzeSeq(rest)
			unknown = unknown || restResult.Unknown
			contUnion := union(continuationSets...)
			combined := CountSet{}
			for a := range contUnion {
				for v := range restResult.Counts {
					combined[saturate(a+v)] = true
				}
			}
			sets = append(sets, combined)
		}
		return result(union(sets...), unknown)
	}

	cur := c.AnalyzeStmt(first)
	restResult := c.analyzeSeq(rest)
	combined := CountSet{}
	for a := range cur.Counts {
		for v := range restResult.Counts {
			combined[saturate(a+v)] = true
		}
	}
	return result(combined, cur.Unknown || restResult.Unknown)
}

// alwaysReturns reports whether every path through node ends in a return:
// node is itself a bare return, or a compound statement whose last
// top-level statement is a return. This mirrors the
// "immediate return" shape the early-guard rule recognizes (spec §4.3).
func alwaysReturns(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	if node.Type() == "return_statement" {
		return true
	}
	if node.Type() == "compound_statement" {
		stmts := cparse.TopLevelStatements(node)
		if len(stmts) == 0 {
			return false
		}
		return stmts[len(stmts)-1].Type() == "return_statement"
	}
	return false
}

// analyzeChildren is the "all other kinds" rule: union over children.
func (c *Counter) analyzeChildren(n *sitter.Node) PathResult {
	if int(n.ChildCount()) == 0 {
		return result(CountSet{0: true}, false)
	}
	var sets []CountSet
	unknown := false
	for i := 0; i < int(n.ChildCount()); i++ {
		r := c.AnalyzeStmt(n.Child(i))
		sets = append(sets, r.Counts)
		unknown = unknown || r.Unknown
	}
	return result(union(sets...), unknown)
}

// countCall applies the call-counting rule (spec §4.1) to a single call
// expression, returning its contribution (0 or 1).
func (c *Counter) countCall(call *sitter.Node) int {
	name := cparse.CallCallee(call, c.Unit.Source)
	if name == "" {
		return 0
	}
	if c.Catalog.Helpers.AnyMatch(name, catalog.WhichBenign) {
		return 0
	}
	if c.Catalog.IsTarget(name) {
		return 1
	}
	if inner := cparse.SyscallIndirection(call, c.Unit.Source); inner != "" && c.Catalog.IsTarget(inner) {
		return 1
	}
	if c.Hops != nil {
		if hit, _, _ := c.Hops.NHop(name, MaxHops, map[uint64]bool{}); hit {
			return 1
		}
	}
	return 0
}
