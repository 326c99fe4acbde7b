package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/viant/cwrapfinder/model"
)

func sampleRow() model.Row {
	r := model.NewRow()
	r.File = "a.c"
	r.Function = "wrap_close"
	r.ApiCalled = "close"
	r.Category = "file"
	r.FanIn = 2
	r.FanOut = 1
	r.Callees = []string{"close"}
	r.HitLocs = []string{"a.c:10:3"}
	r.ArgPass = "yes - all"
	r.RetPass = "no"
	r.Reason = "ok"
	return r
}

func TestSerializeHitLocsReplacesDelimiters(t *testing.T) {
	require.Equal(t, "a.c:1:2|b.c:3_4", SerializeHitLocs([]string{"a.c:1:2", "b.c:3, 4"}))
	require.Equal(t, "", SerializeHitLocs(nil))
}

func TestWriteRowsCSVMinimalColumns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rows.csv")
	require.NoError(t, WriteRowsCSV([]model.Row{sampleRow()}, path, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Equal(t, "file,function,api_called,category,fan_in,fan_out,callee,hit_locs,arg_pass,ret_pass,reason", lines[0])
	require.Contains(t, lines[1], "wrap_close")
}

func TestWriteRowsCSVAllColumnsIncludesBooleans(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rows.csv")
	row := sampleRow()
	row.PerPathSingle = true
	require.NoError(t, WriteRowsCSV([]model.Row{row}, path, true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "TRUE")
}

func TestWriteRowsJSONLOneObjectPerLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rows.jsonl")
	require.NoError(t, WriteRowsJSONL([]model.Row{sampleRow(), sampleRow()}, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], `"function":"wrap_close"`)
}

func TestWriteCallgraphWritesEdgesAndCallCounts(t *testing.T) {
	dir := t.TempDir()
	edges := []model.Edge{
		{Caller: "wrap_close", CallerKey: "wrap_close#1", Callee: "close", CalleeKey: "close@<unknown>", Loc: "a.c:10:3"},
		{Caller: "wrap_open", CallerKey: "wrap_open#1", Callee: "close", CalleeKey: "close@<unknown>", Loc: "a.c:20:3"},
	}
	require.NoError(t, WriteCallgraph(edges, dir, true))

	edgesData, err := os.ReadFile(filepath.Join(dir, "callgraph_edges.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(edgesData), "\n"), "\n")
	require.Equal(t, "caller,caller_key,callee,callee_key,callsite", lines[0])
	require.Len(t, lines, 3)

	countsData, err := os.ReadFile(filepath.Join(dir, "call_counts.csv"))
	require.NoError(t, err)
	countLines := strings.Split(strings.TrimRight(string(countsData), "\n"), "\n")
	require.Equal(t, "callee_name,callee_key,total_calls,unique_caller_count,callers", countLines[0])
	require.Contains(t, countLines[1], "close,close@<unknown>,2,2,")
	require.Contains(t, countLines[1], "wrap_close#1;wrap_open#1")
}

func TestPrepareLocationCreatesParentDir(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "rows.csv")
	require.NoError(t, PrepareLocation(target, false))
	info, err := os.Stat(filepath.Join(dir, "nested"))
	require.NoError(t, err)
	require.True(t, info.IsDir())
}
