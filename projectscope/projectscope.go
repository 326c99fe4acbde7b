// Package projectscope decides whether a function definition's source
// location is "inside the project" for the runner (spec §4.8): either an
// explicit allow-list of roots, or the inferred common ancestor of every
// translation unit's source path, gated by a deny-list of system include
// prefixes.
package projectscope

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
	"golang.org/x/mod/modfile"
)

func pathExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// defaultMarkers are the project-root marker files MarkerRoot checks for,
// extending a generic Go/JS marker set with C build-system markers. The
// inferred-ancestor fallback does not use them.
var defaultMarkers = []string{
	"compile_commands.json",
	"CMakeLists.txt",
	"Makefile",
	"configure.ac",
	"go.mod",
	".git",
}

// defaultDenyPrefixes are system include roots never considered part of
// the project, regardless of allow-list/common-ancestor scope.
var defaultDenyPrefixes = []string{
	"/usr/include",
	"/usr/lib",
	"/usr/local/include",
	"/opt/",
}

// Scope reports whether a given source path is inside the project.
type Scope struct {
	allowRoots []string
	ancestor   string
	denyPrefix []string
}

// Option configures a Scope built by New.
type Option func(*Scope)

// WithAllowRoots sets an explicit allow-list of project roots, taking
// precedence over the inferred common ancestor.
func WithAllowRoots(roots ...string) Option {
	return func(s *Scope) {
		for _, r := range roots {
			s.allowRoots = append(s.allowRoots, filepath.Clean(r))
		}
	}
}

// WithDenyPrefixes appends additional system-include prefixes to the
// default deny-list.
func WithDenyPrefixes(prefixes ...string) Option {
	return func(s *Scope) { s.denyPrefix = append(s.denyPrefix, prefixes...) }
}

// New builds a Scope from the sources of the current run (compilation
// database entries' resolved paths), inferring the common ancestor when no
// explicit allow-list is supplied.
func New(sources []string, opts ...Option) *Scope {
	s := &Scope{denyPrefix: append([]string(nil), defaultDenyPrefixes...)}
	for _, o := range opts {
		o(s)
	}
	if len(s.allowRoots) == 0 {
		s.ancestor = commonAncestor(sources)
	}
	return s
}

// Contains reports whether path is inside the project scope: under an
// allow-listed root (when any is configured) or under the inferred common
// ancestor, and not under a denied system-include prefix.
func (s *Scope) Contains(path string) bool {
	clean := filepath.Clean(path)
	for _, deny := range s.denyPrefix {
		if hasPathPrefix(clean, deny) {
			return false
		}
	}
	if len(s.allowRoots) > 0 {
		for _, root := range s.allowRoots {
			if hasPathPrefix(clean, root) {
				return true
			}
		}
		return false
	}
	if s.ancestor == "" {
		return true
	}
	return hasPathPrefix(clean, s.ancestor)
}

// hasPathPrefix reports whether child is root itself or a path beneath it,
// comparing whole path segments rather than raw byte prefixes (so
// "/foo/barbaz" is never considered beneath "/foo/bar").
func hasPathPrefix(child, root string) bool {
	child = filepath.Clean(child)
	root = filepath.Clean(root)
	if child == root {
		return true
	}
	rel, err := filepath.Rel(root, child)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// commonAncestor returns the deepest directory common to every path in
// sources, or "" if sources is empty.
func commonAncestor(sources []string) string {
	if len(sources) == 0 {
		return ""
	}
	best := filepath.Dir(filepath.Clean(sources[0]))
	for _, p := range sources[1:] {
		best = commonDir(best, filepath.Dir(filepath.Clean(p)))
		if best == "" || best == string(filepath.Separator) {
			break
		}
	}
	return best
}

func commonDir(a, b string) string {
	as := strings.Split(filepath.ToSlash(a), "/")
	bs := strings.Split(filepath.ToSlash(b), "/")
	n := len(as)
	if len(bs) < n {
		n = len(bs)
	}
	var out []string
	for i := 0; i < n; i++ {
		if as[i] != bs[i] {
			break
		}
		out = append(out, as[i])
	}
	if len(out) == 0 {
		return ""
	}
	return filepath.FromSlash(strings.Join(out, "/"))
}

// MarkerRoot walks up from startDir looking for one of the generalized C
// project markers (compile_commands.json, CMakeLists.txt, Makefile,
// configure.ac, go.mod for mixed cgo repos, .git), returning the directory
// it was found in and the marker name, or ("", "") if none is found before
// the filesystem root.
func MarkerRoot(startDir string) (root, marker string) {
	dir := filepath.Clean(startDir)
	for {
		for _, m := range defaultMarkers {
			if pathExists(filepath.Join(dir, m)) {
				return dir, m
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ""
		}
		dir = parent
	}
}

// GoModulePath reports the module path of a go.mod marker found at root,
// for mixed cgo repositories: reads go.mod via afs and
// golang.org/x/mod/modfile, for the case where a C project's root marker
// happens to be a go.mod. The runner does not call it.
func GoModulePath(ctx context.Context, fs afs.Service, root string) (string, error) {
	path := filepath.Join(root, "go.mod")
	data, err := fs.DownloadWithURL(ctx, path)
	if err != nil {
		return "", err
	}
	mod, err := modfile.Parse(path, data, nil)
	if err != nil {
		return "", err
	}
	return mod.Module.Mod.Path, nil
}
