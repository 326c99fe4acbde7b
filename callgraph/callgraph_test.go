package callgraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/viant/cwrapfinder/cparse"
)

func TestCollectResolvedEdge(t *testing.T) {
	src := `
int helper(int fd) { return fd; }
int caller(int fd) { return helper(fd); }
`
	unit, err := cparse.Parse(context.Background(), "t.c", []byte(src))
	require.NoError(t, err)
	defer unit.Close()

	edges := New(unit).Collect()
	require.Len(t, edges, 1)
	require.Equal(t, "caller", edges[0].Caller)
	require.Equal(t, "helper", edges[0].Callee)
	require.Contains(t, edges[0].CalleeKey, "helper@t.c:2")
}

func TestCollectUnresolvedEdgeSalvagesPlaceholderKey(t *testing.T) {
	src := `int caller(int fd) { return close(fd); }`
	unit, err := cparse.Parse(context.Background(), "t.c", []byte(src))
	require.NoError(t, err)
	defer unit.Close()

	edges := New(unit).Collect()
	require.Len(t, edges, 1)
	require.Equal(t, "close@<unknown>", edges[0].CalleeKey)
}

func TestGraphFanInFanOut(t *testing.T) {
	src := `
int a(int fd) { return close(fd); }
int b(int fd) { return close(fd); }
int c(int fd) { a(fd); return b(fd); }
`
	unit, err := cparse.Parse(context.Background(), "t.c", []byte(src))
	require.NoError(t, err)
	defer unit.Close()

	g := Build(New(unit).Collect())

	var aKey, bKey, cKey, closeKey string
	for _, e := range g.Edges {
		switch e.Caller {
		case "c":
			cKey = e.CallerKey
			switch e.Callee {
			case "a":
				aKey = e.CalleeKey
			case "b":
				bKey = e.CalleeKey
			}
		case "a":
			closeKey = e.CalleeKey
		}
	}
	require.NotEmpty(t, aKey)
	require.NotEmpty(t, bKey)

	require.Equal(t, 1, g.FanIn(aKey))
	require.Equal(t, 1, g.FanIn(bKey))
	require.Equal(t, 2, g.FanIn(closeKey))
	require.Equal(t, 2, g.FanOut(cKey))
}

func TestGraphDedupAcrossDuplicateEdges(t *testing.T) {
	src := `int caller(int fd) { return close(fd); }`
	unit, err := cparse.Parse(context.Background(), "t.c", []byte(src))
	require.NoError(t, err)
	defer unit.Close()

	edges := New(unit).Collect()
	g := Build(append(edges, edges...))
	require.Len(t, g.Edges, 1)
}
