package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPrefersCategoriesOverLegacyLibcSyscalls(t *testing.T) {
	path := writeYAML(t, `
categories:
  file_io:
    apis: [open, close]
  system_calls:
    apis: [read]
  thin_alias:
    apis: [close]
helpers:
  benign: [log_debug]
  benign_regex: ["^trace_.*"]
  helpers: [wrap_once]
`)
	cat, err := Load(context.Background(), afs.New(), path)
	require.NoError(t, err)

	require.True(t, cat.IsTarget("open"))
	require.True(t, cat.IsTarget("read"))
	require.Equal(t, "file_io", cat.CategoryOf("open"))
	require.Equal(t, "system_calls", cat.CategoryOf("read"))
	require.Equal(t, "unknown", cat.CategoryOf("frobnicate"))
	require.True(t, cat.IsThinAlias("close"))
	require.False(t, cat.IsThinAlias("open"))

	require.True(t, cat.Helpers.AnyMatch("log_debug", WhichBenign))
	require.True(t, cat.Helpers.AnyMatch("trace_foo", WhichBenign))
	require.False(t, cat.Helpers.AnyMatch("open", WhichBenign))
	require.True(t, cat.Helpers.AnyMatch("wrap_once", WhichHelpers))
}

func TestLoadFallsBackToLegacyLibcSyscallLists(t *testing.T) {
	path := writeYAML(t, `
libc:
  - malloc
  - free
syscalls:
  - open
`)
	cat, err := Load(context.Background(), afs.New(), path)
	require.NoError(t, err)

	require.True(t, cat.IsTarget("malloc"))
	require.True(t, cat.IsTarget("open"))
	require.Equal(t, "libc", cat.CategoryOf("free"))
	require.Equal(t, "system_calls", cat.CategoryOf("open"))
}

func TestLoadDerivesLibcFromFamiliesWhenLibcListEmpty(t *testing.T) {
	path := writeYAML(t, `
families:
  memory:
    apis: [malloc]
    aliases: [xmalloc]
`)
	cat, err := Load(context.Background(), afs.New(), path)
	require.NoError(t, err)

	require.True(t, cat.Libc["malloc"])
	require.True(t, cat.Libc["xmalloc"])
}

func TestLoadRejectsUnreadablePath(t *testing.T) {
	_, err := Load(context.Background(), afs.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
