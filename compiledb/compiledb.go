// Package compiledb loads a compile_commands.json compilation database and
// normalizes each entry into an absolute source path plus a sanitized
// argument vector (spec.md §6 "Compilation database"), mirroring the
// Python original's compile_commands.py.
package compiledb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	shellwords "github.com/kballard/go-shellquote"
	"github.com/viant/afs"
)

// Entry is one raw compile_commands.json record.
type Entry struct {
	Directory string   `json:"directory"`
	File      string   `json:"file"`
	Arguments []string `json:"arguments"`
	Command   string   `json:"command"`
}

// PathMap is an (old prefix, new prefix) rewrite applied to a source path
// that no longer exists on disk, for a compile_commands.json captured in a
// different checkout (SPEC_FULL.md §3 "--path-map").
type PathMap struct {
	OldPrefix string
	NewPrefix string
}

// TranslationUnit is one normalized compilation-database entry: the
// resolved absolute source path and its sanitized argument vector.
type TranslationUnit struct {
	Path string
	Args []string
}

// Load reads and parses the compilation database at path into raw entries.
func Load(ctx context.Context, fs afs.Service, path string) ([]Entry, error) {
	data, err := fs.DownloadWithURL(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("compiledb: failed to read %s: %w", path, err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("compiledb: failed to parse %s: %w", path, err)
	}
	return entries, nil
}

// tokenize returns an entry's argument tokens, preferring the structured
// "arguments" list over shell-splitting the "command" string.
func tokenize(e Entry) ([]string, error) {
	if len(e.Arguments) > 0 {
		return append([]string(nil), e.Arguments...), nil
	}
	if e.Command == "" {
		return nil, nil
	}
	return shellwords.Split(e.Command)
}

// Normalize converts every raw entry into a TranslationUnit, remapping and
// sanitizing its args, skipping (and reporting) any entry whose source file
// cannot be located even after applying pathMaps.
func Normalize(entries []Entry, pathMaps []PathMap) ([]TranslationUnit, []error) {
	var units []TranslationUnit
	var errs []error

	for _, e := range entries {
		unit, err := normalizeEntry(e, pathMaps)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		units = append(units, unit)
	}
	return units, errs
}

func normalizeEntry(e Entry, pathMaps []PathMap) (TranslationUnit, error) {
	directory := e.Directory
	if directory == "" {
		directory = "."
	}
	directory = abs(directory)

	if e.File == "" {
		return TranslationUnit{}, fmt.Errorf("compiledb: entry missing 'file' field")
	}
	srcPath := resolveAgainst(directory, e.File)

	if !fileExists(srcPath) {
		for _, pm := range pathMaps {
			if strings.HasPrefix(srcPath, pm.OldPrefix) {
				candidate := strings.Replace(srcPath, pm.OldPrefix, pm.NewPrefix, 1)
				if fileExists(candidate) {
					srcPath = candidate
					directory = filepath.Dir(srcPath)
					break
				}
			}
		}
	}
	if !fileExists(srcPath) {
		return TranslationUnit{}, fmt.Errorf("compiledb: source path does not exist: %s", srcPath)
	}

	raw, err := tokenize(e)
	if err != nil {
		return TranslationUnit{}, fmt.Errorf("compiledb: failed to tokenize entry for %s: %w", srcPath, err)
	}
	if len(raw) == 0 {
		return TranslationUnit{}, fmt.Errorf("compiledb: entry for %s has no 'arguments'/'command'", srcPath)
	}

	args := sanitizeArgs(raw, srcPath, directory)
	return TranslationUnit{Path: srcPath, Args: args}, nil
}

func abs(p string) string {
	a, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return a
}

func resolveAgainst(dir, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return abs(filepath.Join(dir, p))
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

var compilerBasenames = map[string]bool{
	"cc": true, "gcc": true, "clang": true,
	"clang-16": true, "clang-17": true, "clang-18": true, "clang-19": true, "clang-20": true,
	"c99": true, "c11": true,
}

var pairFlags = map[string]bool{
	"-I": true, "-isystem": true, "-iquote": true, "-idirafter": true,
	"-include": true, "-imacros": true,
	"-o": true, "-MF": true, "-MT": true, "-MQ": true, "-MJ": true,
	"-x": true, "-isysroot": true, "--sysroot": true,
	"-resource-dir": true, "-target": true,
}

var dropExact = map[string]bool{
	"-c": true, "-E": true, "-S": true,
	"-pipe": true,
	"-static": true, "-shared": true, "-rdynamic": true,
	"-s": true,
	"-g": true, "-ggdb": true, "-gsplit-dwarf": true,
	"-save-temps": true,
}

var dropPrefixes = []string{
	"-Wl,", "-Xlinker",
	"-l", "-L",
	"-fuse-ld", "-T", "-u",
	"-flto", "-fwhole-program-vtables",
	"-fprofile", "-fcoverage", "--coverage",
	"-fsanitize", "-fno-sanitize",
	"-fmodules", "-fmodule-file=", "-fmodule-map-file=", "-fmodules-cache-path",
	"-m",
}

var preserveExact = map[string]bool{
	"-pthread": true, "-ansi": true, "-fsigned-char": true, "-pedantic": true,
}

func isObjOrLib(tok string) bool {
	lo := strings.ToLower(tok)
	for _, suf := range []string{".o", ".obj", ".lo", ".a", ".lib", ".so", ".dylib", ".bc", ".ll"} {
		if strings.HasSuffix(lo, suf) {
			return true
		}
	}
	return false
}

func isSourceFile(tok string) bool {
	lo := strings.ToLower(tok)
	for _, suf := range []string{".c", ".cc", ".cpp", ".cxx", ".c++", ".m", ".mm"} {
		if strings.HasSuffix(lo, suf) {
			return true
		}
	}
	return false
}

func isWarning(tok string) bool {
	if strings.HasPrefix(tok, "-Wl,") {
		return false
	}
	return strings.HasPrefix(tok, "-W")
}

// sanitizeArgs drops source/object/linker/warning/sanitizer/profile flags,
// normalizes include-path flags to absolute paths, infers `-x <lang>` from
// the source extension when absent, and injects a resource directory and
// the platform's standard system-include paths when not already present
// (spec.md §6).
func sanitizeArgs(raw []string, srcPath, entryDir string) []string {
	var filtered []string
	sawLang := false
	sawResourceDir := false

	n := len(raw)
	for i := 0; i < n; {
		tok := raw[i]

		if i == 0 && !strings.HasPrefix(tok, "-") && compilerBasenames[filepath.Base(tok)] {
			i++
			continue
		}
		if dropExact[tok] {
			i++
			continue
		}
		if isObjOrLib(tok) || isSourceFile(tok) {
			i++
			continue
		}
		if hasAnyPrefix(tok, dropPrefixes) {
			i++
			continue
		}
		if isWarning(tok) {
			i++
			continue
		}

		if pairFlags[tok] {
			hasValue := i+1 < n && !strings.HasPrefix(raw[i+1], "-")
			if tok == "-o" || tok == "-MF" || tok == "-MT" || tok == "-MQ" || tok == "-MJ" {
				i += 1
				if hasValue {
					i++
				}
				continue
			}
			if !hasValue {
				i++
				continue
			}
			val := raw[i+1]
			switch tok {
			case "-I", "-isystem", "-iquote", "-idirafter", "-include", "-imacros", "-isysroot", "--sysroot":
				val = resolveAgainst(entryDir, val)
			}
			if tok == "-x" {
				sawLang = true
			}
			if tok == "-resource-dir" {
				sawResourceDir = true
			}
			filtered = append(filtered, tok, val)
			i += 2
			continue
		}

		if v, ok := trimPrefixValue(tok, "-I"); ok {
			if v != "" {
				filtered = append(filtered, "-I", resolveAgainst(entryDir, v))
			}
			i++
			continue
		}
		if v, ok := trimPrefixValue(tok, "-isystem"); ok {
			if v != "" {
				filtered = append(filtered, "-isystem", resolveAgainst(entryDir, v))
			}
			i++
			continue
		}
		if v, ok := trimPrefixValue(tok, "-resource-dir="); ok {
			sawResourceDir = true
			filtered = append(filtered, "-resource-dir="+resolveAgainst(entryDir, v))
			i++
			continue
		}
		if strings.HasPrefix(tok, "-D") || strings.HasPrefix(tok, "-std") || strings.HasPrefix(tok, "-O") {
			filtered = append(filtered, tok)
			i++
			continue
		}
		if preserveExact[tok] {
			filtered = append(filtered, tok)
			i++
			continue
		}

		i++
	}

	if !hasSysInclude(filtered, "/usr/include") {
		filtered = append(filtered, "-I", "/usr/include")
	}
	multiarch := "/usr/include/x86_64-linux-gnu"
	if dirExists(multiarch) && !hasSysInclude(filtered, multiarch) {
		filtered = append(filtered, "-I", multiarch)
	}
	if !sawResourceDir {
		if rd := pickResourceDir(); rd != "" {
			filtered = append(filtered, "-resource-dir="+rd)
		}
	}

	if !sawLang {
		lang := langFor(srcPath)
		filtered = append([]string{"-x", lang}, filtered...)
	}

	return filtered
}

func hasAnyPrefix(tok string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(tok, p) {
			return true
		}
	}
	return false
}

func trimPrefixValue(tok, prefix string) (string, bool) {
	if tok == prefix || !strings.HasPrefix(tok, prefix) {
		return "", false
	}
	return tok[len(prefix):], true
}

func hasSysInclude(argv []string, path string) bool {
	abs := resolveAgainst(".", path)
	for i, t := range argv {
		if (t == "-I" || t == "-isystem" || t == "-iquote" || t == "-idirafter") && i+1 < len(argv) {
			if resolveAgainst(".", argv[i+1]) == abs {
				return true
			}
		}
	}
	return false
}

func dirExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

// pickResourceDir probes the well-known install locations for a clang
// resource directory, preferring $CLANG_RESOURCE_DIR when set.
func pickResourceDir() string {
	if env := os.Getenv("CLANG_RESOURCE_DIR"); env != "" && fileExists(filepath.Join(env, "include", "stddef.h")) {
		return env
	}
	var candidates []string
	for _, glob := range []string{"/usr/lib/llvm-*/lib/clang/*", "/usr/lib/clang/*"} {
		matches, _ := filepath.Glob(glob)
		candidates = append(candidates, matches...)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(candidates)))
	for _, rd := range candidates {
		if fileExists(filepath.Join(rd, "include", "stddef.h")) {
			return rd
		}
	}
	return ""
}

func langFor(srcPath string) string {
	lo := strings.ToLower(srcPath)
	switch {
	case strings.HasSuffix(lo, ".c"):
		return "c"
	case strings.HasSuffix(lo, ".cc"), strings.HasSuffix(lo, ".cpp"), strings.HasSuffix(lo, ".cxx"), strings.HasSuffix(lo, ".c++"):
		return "c++"
	case strings.HasSuffix(lo, ".m"):
		return "objective-c"
	case strings.HasSuffix(lo, ".mm"):
		return "objective-c++"
	default:
		return "c"
	}
}
