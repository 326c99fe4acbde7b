package provenance

import (
	"context"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/require"

	"github.com/viant/cwrapfinder/catalog"
	"github.com/viant/cwrapfinder/cparse"
)

func TestDirectParamArgumentIsTainted(t *testing.T) {
	src := `int w(int fd){ return close(fd); }`
	unit, err := cparse.Parse(context.Background(), "t.c", []byte(src))
	require.NoError(t, err)
	defer unit.Close()

	def := unit.FunctionDefinitions()[0]
	var call *sitter.Node
	cparse.WalkCalls(cparse.Body(def), func(n *sitter.Node) { call = n })

	a := New(unit, catalog.HelperConfig{})
	ok, trace := a.CheckArgumentsProvenance(def, []*sitter.Node{call})
	require.True(t, ok)
	require.Contains(t, trace[0], "arg0:tainted")
}

func TestLocalAssignmentPropagatesTaint(t *testing.T) {
	src := `int w(int fd){ int local = fd; return close(local); }`
	unit, err := cparse.Parse(context.Background(), "t.c", []byte(src))
	require.NoError(t, err)
	defer unit.Close()

	def := unit.FunctionDefinitions()[0]
	var call *sitter.Node
	cparse.WalkCalls(cparse.Body(def), func(n *sitter.Node) { call = n })

	a := New(unit, catalog.HelperConfig{})
	ok, _ := a.CheckArgumentsProvenance(def, []*sitter.Node{call})
	require.True(t, ok)
}

func TestConstantArgumentIsClean(t *testing.T) {
	src := `int w(int fd){ return close(42); }`
	unit, err := cparse.Parse(context.Background(), "t.c", []byte(src))
	require.NoError(t, err)
	defer unit.Close()

	def := unit.FunctionDefinitions()[0]
	var call *sitter.Node
	cparse.WalkCalls(cparse.Body(def), func(n *sitter.Node) { call = n })

	a := New(unit, catalog.HelperConfig{})
	ok, trace := a.CheckArgumentsProvenance(def, []*sitter.Node{call})
	require.False(t, ok)
	require.Contains(t, trace[0], "arg0:clean")
}
