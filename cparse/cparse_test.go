package cparse

import (
	"context"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/require"
)

const sampleSource = `
int helper(int fd) {
    return close(fd);
}

int wrap_close(int fd) {
    if (fd < 0) {
        return -1;
    }
    return helper(fd);
}
`

func TestParseAndFunctionDefinitions(t *testing.T) {
	u, err := Parse(context.Background(), "sample.c", []byte(sampleSource))
	require.NoError(t, err)
	defer u.Close()

	defs := u.FunctionDefinitions()
	require.Len(t, defs, 2)

	names := map[string]bool{}
	for _, d := range defs {
		names[FunctionName(d, u.Source)] = true
	}
	require.True(t, names["helper"])
	require.True(t, names["wrap_close"])
}

func TestResolveCallee(t *testing.T) {
	u, err := Parse(context.Background(), "sample.c", []byte(sampleSource))
	require.NoError(t, err)
	defer u.Close()

	require.NotNil(t, u.ResolveCallee("helper"))
	require.Nil(t, u.ResolveCallee("close"))
}

func TestWalkCallsAndCallee(t *testing.T) {
	u, err := Parse(context.Background(), "sample.c", []byte(sampleSource))
	require.NoError(t, err)
	defer u.Close()

	var wrapDef *sitter.Node
	for _, d := range u.FunctionDefinitions() {
		if FunctionName(d, u.Source) == "wrap_close" {
			wrapDef = d
		}
	}
	require.NotNil(t, wrapDef)

	var calls []string
	WalkCalls(Body(wrapDef), func(call *sitter.Node) {
		calls = append(calls, CallCallee(call, u.Source))
	})
	require.ElementsMatch(t, []string{"helper"}, calls)
}

func TestTopLevelStatementsAndParameters(t *testing.T) {
	u, err := Parse(context.Background(), "sample.c", []byte(sampleSource))
	require.NoError(t, err)
	defer u.Close()

	var wrapDef *sitter.Node
	for _, d := range u.FunctionDefinitions() {
		if FunctionName(d, u.Source) == "wrap_close" {
			wrapDef = d
		}
	}
	require.NotNil(t, wrapDef)

	stmts := TopLevelStatements(Body(wrapDef))
	require.Len(t, stmts, 2)

	params := Parameters(wrapDef)
	require.Len(t, params, 1)
	require.Equal(t, "fd", ParamName(params[0], u.Source))
}
