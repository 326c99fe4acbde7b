package cparse

import (
	"regexp"

	sitter "github.com/smacker/go-tree-sitter"
)

var syscallSelectorRe = regexp.MustCompile(`(?:SYS|__NR)_(\w+)`)

// SyscallIndirection returns the implied target name when call is a call
// to the well-known `syscall` entry point whose first argument textually
// matches `SYS_<foo>` or `__NR_<foo>` (spec §4.1 rule 3), or "" otherwise.
func SyscallIndirection(call *sitter.Node, src []byte) string {
	if CallCallee(call, src) != "syscall" {
		return ""
	}
	args := CallArguments(call)
	if len(args) == 0 {
		return ""
	}
	selector := args[0]
	m := syscallSelectorRe.FindSubmatch([]byte(selector.Content(src)))
	if m == nil {
		return ""
	}
	return string(m[1])
}

// FunctionName extracts the identifier spelling from a function_definition
// node's declarator, unwrapping pointer/array/parenthesized declarators the
// way a real C signature can nest them (`int *foo(void)`, `int (*foo)(void)`).
func FunctionName(def *sitter.Node, src []byte) string {
	declarator := def.ChildByFieldName("declarator")
	return declaratorName(declarator, src)
}

func declaratorName(n *sitter.Node, src []byte) string {
	for n != nil {
		switch n.Type() {
		case "identifier", "field_identifier":
			return n.Content(src)
		case "function_declarator", "pointer_declarator", "array_declarator",
			"parenthesized_declarator", "attributed_declarator":
			n = n.ChildByFieldName("declarator")
		default:
			return ""
		}
	}
	return ""
}

// Parameters returns the parameter_declaration nodes of a function's
// parameter_list, or nil if the function takes no named parameters.
func Parameters(def *sitter.Node) []*sitter.Node {
	declarator := def.ChildByFieldName("declarator")
	for declarator != nil && declarator.Type() != "function_declarator" {
		declarator = declarator.ChildByFieldName("declarator")
	}
	if declarator == nil {
		return nil
	}
	params := declarator.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	var out []*sitter.Node
	for i := 0; i < int(params.ChildCount()); i++ {
		c := params.Child(i)
		if c.Type() == "parameter_declaration" {
			out = append(out, c)
		}
	}
	return out
}

// ParamName returns a parameter_declaration's bound identifier, if any
// (abstract/unnamed parameters, e.g. in a prototype, yield "").
func ParamName(param *sitter.Node, src []byte) string {
	return declaratorName(param.ChildByFieldName("declarator"), src)
}

// Body returns a function_definition's compound_statement body, or nil for
// a declaration with no body (spec.md §4.3 "function has no body").
func Body(def *sitter.Node) *sitter.Node {
	body := def.ChildByFieldName("body")
	if body == nil || body.Type() != "compound_statement" {
		return nil
	}
	return body
}

// TopLevelStatements returns the direct statement children of a
// compound_statement, i.e. a function body's top-level statements (§4.1,
// §4.2's "small function" = at most 6 of these, excluding declarations).
func TopLevelStatements(body *sitter.Node) []*sitter.Node {
	if body == nil {
		return nil
	}
	var out []*sitter.Node
	for i := 0; i < int(body.ChildCount()); i++ {
		c := body.Child(i)
		switch c.Type() {
		case "{", "}", "comment":
			continue
		default:
			out = append(out, c)
		}
	}
	return out
}

// IsCall reports whether n is a call_expression.
func IsCall(n *sitter.Node) bool {
	return n != nil && n.Type() == "call_expression"
}

// CallCallee returns the plain callee name of a call_expression: the
// identifier for a direct call, or the field name for a `recv->foo(...)`
// / `recv.foo(...)` member call. Calls through a function pointer
// variable (`fnptr(...)`) resolve to that variable's identifier, which is
// later looked up in the catalog/helper tables same as a direct name would
// be; true indirection through an expression has no static name and
// yields "".
func CallCallee(call *sitter.Node, src []byte) string {
	fn := call.ChildByFieldName("function")
	if fn != nil && fn.Type() == "field_expression" {
		return declaratorName(fn.ChildByFieldName("field"), src)
	}
	return declaratorName(fn, src)
}

// CallArguments returns the expression nodes of a call_expression's
// argument_list.
func CallArguments(call *sitter.Node) []*sitter.Node {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return nil
	}
	var out []*sitter.Node
	for i := 0; i < int(args.ChildCount()); i++ {
		c := args.Child(i)
		switch c.Type() {
		case "(", ")", ",":
			continue
		default:
			out = append(out, c)
		}
	}
	return out
}

// WalkCalls invokes fn for every call_expression reachable from root,
// depth-first, including calls nested inside call arguments.
func WalkCalls(root *sitter.Node, fn func(call *sitter.Node)) {
	if root == nil {
		return
	}
	if IsCall(root) {
		fn(root)
	}
	for i := 0; i < int(root.ChildCount()); i++ {
		WalkCalls(root.Child(i), fn)
	}
}

// IsControlFlow reports whether n is an if, for, while or do statement.
// switch, goto and labeled statements are not included.
func IsControlFlow(n *sitter.Node) bool {
	switch n.Type() {
	case "if_statement", "for_statement", "while_statement", "do_statement":
		return true
	default:
		return false
	}
}

// IsUnsupportedControlFlow reports whether n is a switch, goto, or labeled
// statement. Of these the per-path counter gives goto and labeled
// statements an unknown result; it models switch as a union over its cases.
func IsUnsupportedControlFlow(n *sitter.Node) bool {
	switch n.Type() {
	case "switch_statement", "goto_statement", "labeled_statement":
		return true
	default:
		return false
	}
}
