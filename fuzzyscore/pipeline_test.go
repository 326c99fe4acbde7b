package fuzzyscore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/viant/afs"

	"github.com/viant/cwrapfinder/catalog"
)

func writeCSV(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDetectColumnsAcceptsAlternateHeaderSpellings(t *testing.T) {
	idx := detectColumns([]string{"Func", "FilePath", "FanIn", "Callee", "API", "Category", "Reason", "ArgPass", "RetPass"})
	require.Equal(t, 0, idx.function)
	require.Equal(t, 1, idx.file)
	require.Equal(t, 2, idx.fanIn)
}

func TestOutputPathDerivesFromInputStem(t *testing.T) {
	got := OutputPath("/tmp/wrappers.csv", "", "")
	require.Equal(t, filepath.Join("/tmp", "wrappers._fuzzy_scored.csv"), got)

	got = OutputPath("/tmp/wrappers.csv", "", "/out")
	require.Equal(t, filepath.Join("/out", "wrappers._fuzzy_scored.csv"), got)

	got = OutputPath("/tmp/wrappers.csv", "/explicit/out.csv", "/out")
	require.Equal(t, "/explicit/out.csv", got)
}

func TestProcessCSVRanksWrapperLikeFunctionsFirst(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "wrappers.csv")
	writeCSV(t, inPath, strings.Join([]string{
		"file,function,api_called,category,fan_in,fan_out,callee,hit_locs,arg_pass,ret_pass,reason",
		"a.c,wrap_close,close,file,5,1,close,a.c:1:1,yes - all,no,ok",
		"a.c,totally_unrelated_helper,,,1,3,foo;bar;baz,,,,",
	}, "\n") + "\n")

	cat := catalog.ApiCatalog{TargetNames: map[string]bool{"close": true}}
	fs := afs.New()
	outPath, err := ProcessCSV(context.Background(), fs, inPath, cat, 3, "", "")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "wrappers._fuzzy_scored.csv"), outPath)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Equal(t, "likelihood_score,function,api_called,fuzzy_match,category,fan_in,callee,arg_pass,ret_pass,location", lines[0])
	require.Contains(t, lines[1], "wrap_close")
}
