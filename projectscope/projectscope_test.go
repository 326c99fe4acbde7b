package projectscope

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInferredCommonAncestorIncludesSiblingSources(t *testing.T) {
	s := New([]string{"/repo/src/a.c", "/repo/src/lib/b.c", "/repo/src/lib/c.c"})
	require.True(t, s.Contains("/repo/src/a.c"))
	require.True(t, s.Contains("/repo/src/lib/b.c"))
	require.False(t, s.Contains("/other/x.c"))
}

func TestDenyListOverridesAllowList(t *testing.T) {
	s := New(nil, WithAllowRoots("/"))
	require.False(t, s.Contains("/usr/include/stdio.h"))
	require.True(t, s.Contains("/home/me/project/a.c"))
}

func TestAllowRootsExcludesUnlistedPaths(t *testing.T) {
	s := New(nil, WithAllowRoots("/repo/src"))
	require.True(t, s.Contains("/repo/src/a.c"))
	require.False(t, s.Contains("/repo/vendor/a.c"))
}

func TestPathPrefixDoesNotMatchSiblingWithSharedPrefix(t *testing.T) {
	s := New(nil, WithAllowRoots("/repo/src"))
	require.False(t, s.Contains("/repo/src-other/a.c"))
}

func TestMarkerRootFindsNearestMarker(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Makefile"), []byte(""), 0o644))

	root, marker := MarkerRoot(sub)
	require.Equal(t, dir, root)
	require.Equal(t, "Makefile", marker)
}

func TestMarkerRootReturnsEmptyWhenNoneFound(t *testing.T) {
	dir := t.TempDir()
	root, marker := MarkerRoot(dir)
	require.Empty(t, root)
	require.Empty(t, marker)
}
