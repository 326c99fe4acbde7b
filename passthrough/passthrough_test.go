package passthrough

import (
	"context"
	"fmt"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/require"

	"github.com/viant/cwrapfinder/cparse"
)

func matchingCalls(t *testing.T, unit *cparse.Unit, def *sitter.Node, names ...string) []*sitter.Node {
	t.Helper()
	set := map[string]bool{}
	for _, n := range names {
		set[n] = true
	}
	var out []*sitter.Node
	cparse.WalkCalls(cparse.Body(def), func(call *sitter.Node) {
		if set[cparse.CallCallee(call, unit.Source)] {
			out = append(out, call)
		}
	})
	return out
}

func TestArgPassAll(t *testing.T) {
	src := `int w(int fd){ return close(fd); }`
	unit, err := cparse.Parse(context.Background(), "t.c", []byte(src))
	require.NoError(t, err)
	defer unit.Close()

	def := unit.FunctionDefinitions()[0]
	calls := matchingCalls(t, unit, def, "close")
	c := New(unit)
	require.Equal(t, "yes - all", c.ArgPass(def, calls))
}

func TestArgPassNo(t *testing.T) {
	src := `int w(int fd){ return close(42); }`
	unit, err := cparse.Parse(context.Background(), "t.c", []byte(src))
	require.NoError(t, err)
	defer unit.Close()

	def := unit.FunctionDefinitions()[0]
	calls := matchingCalls(t, unit, def, "close")
	c := New(unit)
	require.Equal(t, "no", c.ArgPass(def, calls))
}

func TestRetPassAll(t *testing.T) {
	src := `int w(int fd){ return close(fd); }`
	unit, err := cparse.Parse(context.Background(), "t.c", []byte(src))
	require.NoError(t, err)
	defer unit.Close()

	def := unit.FunctionDefinitions()[0]
	calls := matchingCalls(t, unit, def, "close")
	locs := map[string]bool{}
	for _, call := range calls {
		locs[fmt.Sprintf("%d:%d", cparse.Line(call), cparse.Column(call))] = true
	}
	c := New(unit)
	require.Equal(t, "yes - all", c.RetPass(def, locs))
}

func TestRetPassNoForVoid(t *testing.T) {
	src := `void w(int fd){ close(fd); }`
	unit, err := cparse.Parse(context.Background(), "t.c", []byte(src))
	require.NoError(t, err)
	defer unit.Close()

	def := unit.FunctionDefinitions()[0]
	c := New(unit)
	require.Equal(t, "no", c.RetPass(def, map[string]bool{}))
}

// TestRetPassAllViaSoleAssignedVariable covers spec.md §8 scenario 3:
// `int w(int fd){ int r=close(fd); log(r); return r; }` must report
// ret_pass="yes - all" even though the returned expression is a bare
// identifier, not the call itself.
func TestRetPassAllViaSoleAssignedVariable(t *testing.T) {
	src := `int w(int fd){ int r = close(fd); log(r); return r; }`
	unit, err := cparse.Parse(context.Background(), "t.c", []byte(src))
	require.NoError(t, err)
	defer unit.Close()

	def := unit.FunctionDefinitions()[0]
	calls := matchingCalls(t, unit, def, "close")
	locs := map[string]bool{}
	for _, call := range calls {
		locs[fmt.Sprintf("%d:%d", cparse.Line(call), cparse.Column(call))] = true
	}
	c := New(unit)
	require.Equal(t, "yes - all", c.RetPass(def, locs))
}

// TestRetPassNoWhenVariableReassigned ensures the sole-assignment
// relaxation doesn't fire once the variable is reassigned after its
// call-derived initializer: the variable's value at return time is no
// longer provably the call's result.
func TestRetPassNoWhenVariableReassigned(t *testing.T) {
	src := `int w(int fd){ int r = close(fd); r = 0; return r; }`
	unit, err := cparse.Parse(context.Background(), "t.c", []byte(src))
	require.NoError(t, err)
	defer unit.Close()

	def := unit.FunctionDefinitions()[0]
	calls := matchingCalls(t, unit, def, "close")
	locs := map[string]bool{}
	for _, call := range calls {
		locs[fmt.Sprintf("%d:%d", cparse.Line(call), cparse.Column(call))] = true
	}
	c := New(unit)
	require.Equal(t, "no", c.RetPass(def, locs))
}
