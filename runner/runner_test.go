package runner

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/viant/afs"
	"github.com/stretchr/testify/require"

	"github.com/viant/cwrapfinder/compiledb"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRunStrictPlusFindsSimpleWrapper(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "wrap.c")
	writeFile(t, srcPath, `
int close(int fd);

int wrap_close(int fd) {
    return close(fd);
}
`)

	ccPath := filepath.Join(dir, "compile_commands.json")
	entries := []compiledb.Entry{{Directory: dir, File: "wrap.c", Arguments: []string{"cc", "-c", "wrap.c"}}}
	data, err := json.Marshal(entries)
	require.NoError(t, err)
	writeFile(t, ccPath, string(data))

	yamlPath := filepath.Join(dir, "catalog.yaml")
	writeFile(t, yamlPath, "libc:\n  - close\n")

	fs := afs.New()
	cfg := Config{
		CompileCommandsPath: ccPath,
		CatalogPath:         yamlPath,
		Mode:                ModeStrictPlus,
	}

	res, err := Run(context.Background(), fs, cfg, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.FilesParsed)
	require.Len(t, res.Rows, 1)
	require.Equal(t, "wrap_close", res.Rows[0].Function)
	require.Equal(t, "close", res.Rows[0].ApiCalled)
	require.Contains(t, res.Rows[0].Reason, "ok")
}

func TestRunAllModeListsNonWrapperFunctionsToo(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "plain.c")
	writeFile(t, srcPath, `
int add(int a, int b) {
    return a + b;
}
`)

	ccPath := filepath.Join(dir, "compile_commands.json")
	entries := []compiledb.Entry{{Directory: dir, File: "plain.c", Arguments: []string{"cc", "-c", "plain.c"}}}
	data, err := json.Marshal(entries)
	require.NoError(t, err)
	writeFile(t, ccPath, string(data))

	yamlPath := filepath.Join(dir, "catalog.yaml")
	writeFile(t, yamlPath, "libc:\n  - close\n")

	fs := afs.New()
	cfg := Config{
		CompileCommandsPath: ccPath,
		CatalogPath:         yamlPath,
		Mode:                ModeAll,
	}

	res, err := Run(context.Background(), fs, cfg, nil, nil)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	require.Equal(t, "add", res.Rows[0].Function)
	require.Equal(t, "other", res.Rows[0].ApiCalled)
	require.Equal(t, "N/A", res.Rows[0].Reason)
}

func TestResolveModeMapsLegacyAliases(t *testing.T) {
	require.Equal(t, ModeStrictPlus, ResolveMode("single"))
	require.Equal(t, ModeStrictPlus, ResolveMode("perpath_strict_plus"))
	require.Equal(t, ModeRelaxed, ResolveMode("perpath_relaxed"))
	require.Equal(t, ModeAll, ResolveMode(""))
}

func TestSummaryReportsFileRowAndEdgeCounts(t *testing.T) {
	s := Summary(&Result{FilesAttempted: 2, FilesParsed: 2, Rows: nil, Edges: nil})
	require.Contains(t, s, "files processed: 2")
	require.Contains(t, s, "wrapper rows:    0")
}
