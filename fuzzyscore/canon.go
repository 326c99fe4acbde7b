package fuzzyscore

import "sort"

// CanonSet is one target API name paired with its normalized matching
// candidate (`cwrappers/fuzzy/canon.py`'s `CanonSet`).
type CanonSet struct {
	Key        string
	Candidates []string
}

// BuildCanonSets builds one CanonSet per catalog target name, sorted by
// key for deterministic scoring order. The Python original re-reads the
// catalog YAML from a handful of guessed paths to build this set
// (`build_canon_sets`'s `_candidate_yaml_paths` probing); this module
// already has the parsed catalog in memory by the time fuzzy scoring
// runs, so it builds canon sets directly from `catalog.ApiCatalog.TargetNames`
// instead of re-parsing YAML from disk.
func BuildCanonSets(targetNames map[string]bool) []CanonSet {
	names := make([]string, 0, len(targetNames))
	for n := range targetNames {
		names = append(names, n)
	}
	sort.Strings(names)

	sets := make([]CanonSet, 0, len(names))
	for _, key := range names {
		n := Normalize(key)
		if n == "" {
			continue
		}
		sets = append(sets, CanonSet{Key: key, Candidates: []string{n}})
	}
	return sets
}
