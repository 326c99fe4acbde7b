package wrapper

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/viant/cwrapfinder/catalog"
	"github.com/viant/cwrapfinder/cparse"
)

// HasEarlyGuardReturn recognizes the "early-guard" shape of spec §4.3
// step 3: after an optional prefix of helper-only call statements, the
// first non-helper statement is an if-statement whose then- or
// else-branch has an immediate return.
func HasEarlyGuardReturn(def *sitter.Node, src []byte, helpers catalog.HelperConfig) bool {
	body := cparse.Body(def)
	if body == nil {
		return false
	}
	stmts := cparse.TopLevelStatements(body)
	if len(stmts) == 0 {
		return false
	}

	i := 0
	for i < len(stmts) && isHelperCallStatement(stmts[i], src, helpers) {
		i++
	}
	if i >= len(stmts) {
		return false
	}

	s := stmts[i]
	if s.Type() != "if_statement" {
		return false
	}
	cons := s.ChildByFieldName("consequence")
	alt := s.ChildByFieldName("alternative")
	return branchHasImmediateReturn(cons) || branchHasImmediateReturn(alt)
}

func isHelperCallStatement(stmt *sitter.Node, src []byte, helpers catalog.HelperConfig) bool {
	if stmt.Type() != "expression_statement" {
		return false
	}
	var call *sitter.Node
	for i := 0; i < int(stmt.ChildCount()); i++ {
		if cparse.IsCall(stmt.Child(i)) {
			call = stmt.Child(i)
		}
	}
	if call == nil {
		return false
	}
	return helpers.AnyMatch(cparse.CallCallee(call, src), catalog.WhichHelpers)
}

func branchHasImmediateReturn(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	if node.Type() == "return_statement" {
		return true
	}
	if node.Type() == "compound_statement" {
		stmts := cparse.TopLevelStatements(node)
		return len(stmts) > 0 && stmts[0].Type() == "return_statement"
	}
	return false
}
