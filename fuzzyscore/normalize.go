// Package fuzzyscore implements the secondary lexical-likelihood scorer
// (SPEC_FULL.md §2/§3): a normalized-name matcher against the catalog's
// target APIs, combined with a wrapper-likelihood heuristic blending
// naming, fan-out, and pass-through evidence. Ported from the Python
// original's cwrappers/fuzzy package.
package fuzzyscore

import (
	"regexp"
	"strings"
)

var (
	camelBoundaryRe = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	nonAlnumRe      = regexp.MustCompile(`[^A-Za-z0-9]+`)
	spaceRe         = regexp.MustCompile(`\s+`)
)

// Normalize lowercases s, splits camelCase boundaries, and collapses
// non-alphanumeric runs to single spaces (cwrappers/fuzzy/normalize.py's
// `normalize`).
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = strings.TrimSpace(s)
	s = camelBoundaryRe.ReplaceAllString(s, "$1 $2")
	s = nonAlnumRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.ToLower(strings.TrimSpace(s))
}

var affixPrefixes = []string{"ngx_", "redis_", "__"}
var affixSuffixes = []string{"_impl", "_locked"}

// StripAffixes removes common project-specific prefixes/suffixes so
// matching isn't biased toward one codebase's naming convention
// (`strip_affixes`). Mirrors the original's unconditional loop over every
// prefix/suffix in order, each applied against the string as modified by
// the previous one.
func StripAffixes(name string) string {
	if name == "" {
		return ""
	}
	s := name
	for _, p := range affixPrefixes {
		if strings.HasPrefix(s, p) {
			s = s[len(p):]
		}
	}
	for _, suf := range affixSuffixes {
		if strings.HasSuffix(s, suf) {
			s = s[:len(s)-len(suf)]
		}
	}
	return s
}

// Tokenize normalizes s and splits it on whitespace.
func Tokenize(s string) []string {
	n := Normalize(s)
	if n == "" {
		return nil
	}
	return strings.Fields(n)
}
