// Package passthrough implements the syntactic arg_pass/ret_pass
// classifier (spec §4.6): stricter and distinct from taint provenance,
// it decides whether each matching call receives the wrapper's
// parameters directly and whether the wrapper returns a call's result
// directly.
package passthrough

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/viant/cwrapfinder/cparse"
)

// StripNoop descends through paren and C-style cast nodes, returning the
// innermost expression (spec §4.6's normalizer).
func StripNoop(e *sitter.Node) *sitter.Node {
	for e != nil {
		switch e.Type() {
		case "parenthesized_expression":
			e = onlyExprChild(e)
		case "cast_expression":
			e = e.ChildByFieldName("value")
		default:
			return e
		}
	}
	return e
}

func onlyExprChild(n *sitter.Node) *sitter.Node {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "(", ")":
			continue
		default:
			return c
		}
	}
	return nil
}

// paramSet is the set of a function's parameter names.
type paramSet map[string]bool

func collectParams(def *sitter.Node, src []byte) paramSet {
	set := paramSet{}
	for _, p := range cparse.Parameters(def) {
		if name := cparse.ParamName(p, src); name != "" {
			set[name] = true
		}
	}
	return set
}

// IsDirectParamRef returns the parameter name iff the stripped expression
// is a direct reference to a parameter, or a unary dereference of a
// member-access chain rooted at a parameter with no subscript, binary
// operator, call, or additional unary operator along the way (spec
// §4.6's direct-param test).
func IsDirectParamRef(e *sitter.Node, params paramSet, src []byte) (string, bool) {
	e = StripNoop(e)
	if e == nil {
		return "", false
	}
	if e.Type() == "identifier" {
		name := e.Content(src)
		if params[name] {
			return name, true
		}
		return "", false
	}
	if e.Type() == "pointer_expression" && isDeref(e, src) {
		arg := e.ChildByFieldName("argument")
		return derefChain(arg, params, src)
	}
	return "", false
}

func isDeref(n *sitter.Node, src []byte) bool {
	op := n.ChildByFieldName("operator")
	return op != nil && op.Content(src) == "*"
}

// derefChain walks a member-access chain looking for a root parameter
// identifier, rejecting any subscript/binary/call/extra-unary node along
// the way.
func derefChain(n *sitter.Node, params paramSet, src []byte) (string, bool) {
	n = StripNoop(n)
	for n != nil {
		switch n.Type() {
		case "identifier":
			name := n.Content(src)
			if params[name] {
				return name, true
			}
			return "", false
		case "field_expression":
			n = StripNoop(n.ChildByFieldName("argument"))
		default:
			return "", false
		}
	}
	return "", false
}

// Classifier computes arg_pass/ret_pass for a function against its
// matching call sites.
type Classifier struct {
	Unit *cparse.Unit
}

// New returns a Classifier scoped to unit.
func New(unit *cparse.Unit) *Classifier {
	return &Classifier{Unit: unit}
}

// ArgPass computes the arg_pass field for def over its matching calls.
func (c *Classifier) ArgPass(def *sitter.Node, matchingCalls []*sitter.Node) string {
	params := collectParams(def, c.Unit.Source)
	if len(params) == 0 {
		return "no"
	}

	usedUnion := map[string]bool{}
	for _, call := range matchingCalls {
		args := cparse.CallArguments(call)
		used := map[string]bool{}
		allDirect := len(args) > 0
		for _, arg := range args {
			name, ok := IsDirectParamRef(arg, params, c.Unit.Source)
			if !ok || used[name] {
				allDirect = false
				continue
			}
			used[name] = true
		}
		for name := range used {
			usedUnion[name] = true
		}
		if allDirect && setEquals(used, params) {
			return "yes - all"
		}
	}
	if len(usedUnion) > 0 {
		return fmt.Sprintf("yes - %d", len(usedUnion))
	}
	return "no"
}

func setEquals(a map[string]bool, b paramSet) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// ReturnType reports the textual return-type spelling of def.
func ReturnType(def *sitter.Node, src []byte) string {
	t := def.ChildByFieldName("type")
	if t == nil {
		return ""
	}
	return t.Content(src)
}

// RetPass computes the ret_pass field: "no" if the return type is void or
// the body has no return-with-expression; otherwise the fraction of
// returns that directly return one of the matching call sites, counting a
// bare-identifier return as direct when that variable has exactly one
// assignment in the whole function and it assigns straight from a
// matching call (spec.md §8 scenario 3: `int r = close(fd); log(r);
// return r;` is "yes - all").
func (c *Classifier) RetPass(def *sitter.Node, matchingCallLocs map[string]bool) string {
	if ReturnType(def, c.Unit.Source) == "void" {
		return "no"
	}
	body := cparse.Body(def)
	if body == nil {
		return "no"
	}

	singleAssignCalls := soleAssignedFromCall(body, c.Unit.Source, matchingCallLocs)

	totalReturns := 0
	directReturns := 0
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "return_statement" {
			expr := returnExpr(n)
			if expr != nil {
				totalReturns++
				stripped := StripNoop(expr)
				if stripped != nil {
					switch {
					case stripped.Type() == "call_expression":
						loc := fmt.Sprintf("%d:%d", cparse.Line(stripped), cparse.Column(stripped))
						if matchingCallLocs[loc] {
							directReturns++
						}
					case stripped.Type() == "identifier":
						if singleAssignCalls[stripped.Content(c.Unit.Source)] {
							directReturns++
						}
					}
				}
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(body)

	if totalReturns == 0 {
		return "no"
	}
	if directReturns == totalReturns {
		return "yes - all"
	}
	if directReturns > 0 {
		return fmt.Sprintf("yes - %d", directReturns)
	}
	return "no"
}

// soleAssignedFromCall walks body for every declaration-with-initializer
// and assignment-expression, and returns the set of variable names that
// are assigned exactly once across the whole function, where that one
// assignment's stripped RHS is a call at one of matchingCallLocs.
func soleAssignedFromCall(body *sitter.Node, src []byte, matchingCallLocs map[string]bool) map[string]bool {
	assignCount := map[string]int{}
	fromMatchingCall := map[string]bool{}

	record := func(name string, rhs *sitter.Node) {
		if name == "" || rhs == nil {
			return
		}
		assignCount[name]++
		stripped := StripNoop(rhs)
		if stripped != nil && stripped.Type() == "call_expression" {
			loc := fmt.Sprintf("%d:%d", cparse.Line(stripped), cparse.Column(stripped))
			if matchingCallLocs[loc] {
				fromMatchingCall[name] = true
				return
			}
		}
		fromMatchingCall[name] = false
	}

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		switch n.Type() {
		case "declaration":
			for i := 0; i < int(n.ChildCount()); i++ {
				child := n.Child(i)
				if child.Type() != "init_declarator" {
					continue
				}
				name := identName(child.ChildByFieldName("declarator"), src)
				record(name, child.ChildByFieldName("value"))
			}
		case "assignment_expression":
			op := n.ChildByFieldName("operator")
			if op == nil || op.Content(src) != "=" {
				break
			}
			name := identName(n.ChildByFieldName("left"), src)
			record(name, n.ChildByFieldName("right"))
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(body)

	out := map[string]bool{}
	for name, count := range assignCount {
		if count == 1 && fromMatchingCall[name] {
			out[name] = true
		}
	}
	return out
}

func identName(n *sitter.Node, src []byte) string {
	if n != nil && n.Type() == "identifier" {
		return n.Content(src)
	}
	return ""
}

func returnExpr(ret *sitter.Node) *sitter.Node {
	for i := 0; i < int(ret.ChildCount()); i++ {
		c := ret.Child(i)
		switch c.Type() {
		case "return", ";":
			continue
		default:
			return c
		}
	}
	return nil
}
