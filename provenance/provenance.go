// Package provenance implements the intra-procedural taint analyzer
// (spec §4.5): parameter-to-call-argument and parameter-to-return
// data-flow, used by the strict-plus decision to confirm a matched call's
// arguments are actually derived from the wrapper's own parameters.
package provenance

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/viant/cwrapfinder/catalog"
	"github.com/viant/cwrapfinder/cparse"
	"github.com/viant/cwrapfinder/ident"
)

// State is the taint map plus return-taint tracking built over a single
// function body: var_key -> accumulated reasons.
type State struct {
	taint      map[string][]string
	RetTainted bool
	RetTrace   []string
}

func newState() *State {
	return &State{taint: map[string][]string{}}
}

// Mark records why appended to key's trace.
func (s *State) Mark(key, why string) {
	s.taint[key] = append(s.taint[key], why)
}

// IsTainted reports whether key has been marked.
func (s *State) IsTainted(key string) bool {
	_, ok := s.taint[key]
	return ok
}

// Trace returns key's accumulated reasons.
func (s *State) Trace(key string) []string {
	return s.taint[key]
}

// varKey keys a variable by its spelling alone. A State covers one
// function body, so a parameter or local declaration and every reference
// to it share one key; a same-named declaration in an inner scope shares
// that key too.
func varKey(path string, nameNode *sitter.Node, src []byte) string {
	return ident.VarKey(nameNode.Content(src), path, 0, 0)
}

// Analyzer runs taint_stmt/taint_expr over a function body within a
// translation unit.
type Analyzer struct {
	Unit    *cparse.Unit
	Helpers catalog.HelperConfig
}

// New returns an Analyzer scoped to unit. helpers is stored on the
// Analyzer but not consulted: taintExpr treats every call as clean.
func New(unit *cparse.Unit, helpers catalog.HelperConfig) *Analyzer {
	return &Analyzer{Unit: unit, Helpers: helpers}
}

// CheckArgumentsProvenance seeds taint from def's parameters, propagates it
// through body, then checks each call's arguments: the boolean result is
// the AND of every argument's taintedness across every call, and the trace
// is the verbatim per-argument report (spec §4.5's "Per-site argument
// check").
func (a *Analyzer) CheckArgumentsProvenance(def *sitter.Node, calls []*sitter.Node) (bool, []string) {
	state := newState()
	for _, p := range cparse.Parameters(def) {
		declarator := p.ChildByFieldName("declarator")
		name := findIdentifier(declarator)
		if name == nil {
			continue
		}
		key := varKey(a.Unit.Path, name, a.Unit.Source)
		state.Mark(key, fmt.Sprintf("%s is param", name.Content(a.Unit.Source)))
	}

	body := cparse.Body(def)
	if body == nil {
		return false, []string{"no-body"}
	}
	a.taintStmt(body, state)

	var traceOut []string
	ok := true
	for _, call := range calls {
		for i, arg := range cparse.CallArguments(call) {
			tainted, trace := a.taintExpr(arg, state)
			ok = ok && tainted
			entry := fmt.Sprintf("arg%d:%s", i, ternary(tainted, "tainted", "clean"))
			if len(trace) > 0 {
				entry += fmt.Sprintf(" [%s]", strings.Join(trace, " ; "))
			}
			traceOut = append(traceOut, entry)
		}
	}
	return ok, traceOut
}

func ternary(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}

// taintStmt propagates taint through declarations, assignments, and
// returns, recursing into any other statement's children (spec §4.5).
func (a *Analyzer) taintStmt(stmt *sitter.Node, state *State) {
	if stmt == nil {
		return
	}
	switch stmt.Type() {
	case "declaration":
		for i := 0; i < int(stmt.ChildCount()); i++ {
			child := stmt.Child(i)
			if child.Type() != "init_declarator" {
				continue
			}
			declarator := child.ChildByFieldName("declarator")
			value := child.ChildByFieldName("value")
			name := findIdentifier(declarator)
			if name == nil || value == nil {
				continue
			}
			tainted, trace := a.taintExpr(value, state)
			if tainted {
				key := varKey(a.Unit.Path, name, a.Unit.Source)
				for _, reason := range trace {
					state.Mark(key, reason)
				}
			}
		}

	case "expression_statement":
		for i := 0; i < int(stmt.ChildCount()); i++ {
			a.taintAssignment(stmt.Child(i), state)
		}

	case "assignment_expression":
		a.taintAssignment(stmt, state)

	case "return_statement":
		for i := 0; i < int(stmt.ChildCount()); i++ {
			ch := stmt.Child(i)
			if ch.Type() == "return" || ch.Type() == ";" {
				continue
			}
			tainted, trace := a.taintExpr(ch, state)
			if tainted {
				state.RetTainted = true
				state.RetTrace = append(state.RetTrace, trace...)
			}
		}

	default:
		for i := 0; i < int(stmt.ChildCount()); i++ {
			a.taintStmt(stmt.Child(i), state)
		}
	}
}

func (a *Analyzer) taintAssignment(n *sitter.Node, state *State) {
	if n == nil || n.Type() != "assignment_expression" {
		return
	}
	lhs := n.ChildByFieldName("left")
	rhs := n.ChildByFieldName("right")
	if lhs == nil || rhs == nil || lhs.Type() != "identifier" {
		return
	}
	key := varKey(a.Unit.Path, lhs, a.Unit.Source)
	tainted, trace := a.taintExpr(rhs, state)
	if tainted {
		for _, reason := range trace {
			state.Mark(key, reason)
		}
	}
}

// taintExpr reports whether expr is data-derived from a tainted variable
// (spec §4.5's expression-taintedness rules).
func (a *Analyzer) taintExpr(expr *sitter.Node, state *State) (bool, []string) {
	if expr == nil {
		return false, nil
	}
	switch expr.Type() {
	case "identifier":
		key := varKey(a.Unit.Path, expr, a.Unit.Source)
		if state.IsTainted(key) {
			return true, state.Trace(key)
		}
		return false, nil

	case "unary_expression", "cast_expression", "field_expression", "subscript_expression":
		for i := 0; i < int(expr.ChildCount()); i++ {
			if t, tr := a.taintExpr(expr.Child(i), state); t {
				return true, tr
			}
		}
		return false, nil

	case "binary_expression":
		for i := 0; i < int(expr.ChildCount()); i++ {
			if t, tr := a.taintExpr(expr.Child(i), state); t {
				return true, tr
			}
		}
		return false, nil

	case "call_expression":
		// Calls are conservatively clean: no inter-procedural propagation.
		return false, nil

	default:
		for i := 0; i < int(expr.ChildCount()); i++ {
			if t, tr := a.taintExpr(expr.Child(i), state); t {
				return true, tr
			}
		}
		return false, nil
	}
}

func findIdentifier(n *sitter.Node) *sitter.Node {
	for n != nil {
		switch n.Type() {
		case "identifier", "field_identifier":
			return n
		case "pointer_declarator", "array_declarator", "function_declarator",
			"parenthesized_declarator", "attributed_declarator", "init_declarator":
			n = n.ChildByFieldName("declarator")
		default:
			return nil
		}
	}
	return nil
}
