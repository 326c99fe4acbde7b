// Package catalog loads the YAML API catalog and helper configuration that
// the wrapper detector is driven by: which libc/syscall names are targets,
// which names are benign/helper calls to look through, and which targets
// are themselves thin aliases.
package catalog

import (
	"context"
	"fmt"
	"regexp"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

// HelperConfig classifies call names as "benign" (never counted against a
// function's call budget, e.g. logging) or as generic "helpers" (small
// local functions the hop resolver may look through).
type HelperConfig struct {
	Benign       map[string]bool
	BenignRegex  []*regexp.Regexp
	Helpers      map[string]bool
	HelpersRegex []*regexp.Regexp
}

// Which selects the HelperConfig bucket AnyMatch checks against.
type Which int

const (
	WhichHelpers Which = iota
	WhichBenign
)

// AnyMatch reports whether name is classified under which, by exact set
// membership first and then by any configured regex.
func (h HelperConfig) AnyMatch(name string, which Which) bool {
	if which == WhichBenign {
		if h.Benign[name] {
			return true
		}
		for _, r := range h.BenignRegex {
			if r.MatchString(name) {
				return true
			}
		}
		return false
	}
	if h.Helpers[name] {
		return true
	}
	for _, r := range h.HelpersRegex {
		if r.MatchString(name) {
			return true
		}
	}
	return false
}

// ApiCatalog is the loaded target-API surface: the libc/syscall name sets,
// the category index, thin-alias markers, and the helper configuration
// used to look past small local wrappers during hop resolution.
type ApiCatalog struct {
	Libc           map[string]bool
	Syscalls       map[string]bool
	TargetNames    map[string]bool
	Helpers        HelperConfig
	ThinAliases    map[string]bool
	Categories     map[string]map[string]bool
	NameToCategory map[string]string
}

// CategoryOf returns name's category, preferring the explicit
// categories-document mapping and falling back to the legacy libc/syscalls
// buckets, or "unknown" if name is not a recognized target.
func (c ApiCatalog) CategoryOf(name string) string {
	if cat, ok := c.NameToCategory[name]; ok && cat != "" {
		return cat
	}
	if c.Libc[name] {
		return "libc"
	}
	if c.Syscalls[name] {
		return "system_calls"
	}
	return "unknown"
}

// IsTarget reports whether name is one of the catalog's target APIs.
func (c ApiCatalog) IsTarget(name string) bool {
	return c.TargetNames[name]
}

// IsThinAlias reports whether a target API is itself documented as a thin
// alias of another (§4.3's thin-alias policy gate).
func (c ApiCatalog) IsThinAlias(name string) bool {
	return c.ThinAliases[name]
}

type yamlDoc struct {
	Libc       []string                `yaml:"libc"`
	Syscalls   []string                `yaml:"syscalls"`
	Helpers    yamlHelpers             `yaml:"helpers"`
	Categories map[string]yamlCategory `yaml:"categories"`
	Families   map[string]yamlFamily   `yaml:"families"`
}

type yamlHelpers struct {
	Benign       []string `yaml:"benign"`
	BenignRegex  []string `yaml:"benign_regex"`
	Helpers      []string `yaml:"helpers"`
	HelpersRegex []string `yaml:"helpers_regex"`
}

// yamlCategory accepts either a bare list of API names or a mapping with an
// "apis" key, matching the Python loader's dict-or-list tolerance.
type yamlCategory struct {
	Apis []string `yaml:"apis"`
	raw  []string
}

func (c *yamlCategory) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		return value.Decode(&c.raw)
	case yaml.MappingNode:
		type alias yamlCategory
		var a alias
		if err := value.Decode(&a); err != nil {
			return err
		}
		*c = yamlCategory(a)
		return nil
	default:
		return nil
	}
}

func (c yamlCategory) names() []string {
	if len(c.Apis) > 0 {
		return c.Apis
	}
	return c.raw
}

type yamlFamily struct {
	Apis    []string `yaml:"apis"`
	Aliases []string `yaml:"aliases"`
}

func toSet(xs []string) map[string]bool {
	out := make(map[string]bool, len(xs))
	for _, x := range xs {
		out[x] = true
	}
	return out
}

func compileAll(patterns []string) []*regexp.Regexp {
	var out []*regexp.Regexp
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			continue
		}
		out = append(out, re)
	}
	return out
}

// Load reads and parses the catalog YAML document at path via the given
// afs service, reproducing the Python loader's categories-preferred,
// libc/syscalls-legacy-fallback, families-derived-libc resolution order.
func Load(ctx context.Context, fs afs.Service, path string) (ApiCatalog, error) {
	data, err := fs.DownloadWithURL(ctx, path)
	if err != nil {
		return ApiCatalog{}, fmt.Errorf("catalog: failed to read %s: %w", path, err)
	}
	var doc yamlDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return ApiCatalog{}, fmt.Errorf("catalog: failed to parse %s: %w", path, err)
	}

	helpers := HelperConfig{
		Benign:       toSet(doc.Helpers.Benign),
		BenignRegex:  compileAll(doc.Helpers.BenignRegex),
		Helpers:      toSet(doc.Helpers.Helpers),
		HelpersRegex: compileAll(doc.Helpers.HelpersRegex),
	}

	libc := toSet(doc.Libc)
	syscalls := toSet(doc.Syscalls)

	categories := map[string]map[string]bool{}
	nameToCategory := map[string]string{}
	for cat, body := range doc.Categories {
		set := toSet(body.names())
		categories[cat] = set
		for name := range set {
			if _, ok := nameToCategory[name]; !ok {
				nameToCategory[name] = cat
			}
		}
	}

	thinAliases := map[string]bool{}
	if thin, ok := doc.Categories["thin_alias"]; ok {
		thinAliases = toSet(thin.names())
	} else if thin, ok := doc.Categories["thin-alias"]; ok {
		thinAliases = toSet(thin.names())
	}

	if len(libc) == 0 && len(doc.Families) > 0 {
		for _, body := range doc.Families {
			for _, name := range body.Apis {
				libc[name] = true
			}
			for _, name := range body.Aliases {
				libc[name] = true
			}
		}
	}

	var targetNames map[string]bool
	if len(categories) > 0 {
		targetNames = map[string]bool{}
		for _, set := range categories {
			for name := range set {
				targetNames[name] = true
			}
		}
		if len(libc) == 0 {
			libc = map[string]bool{}
			for cat, set := range categories {
				if cat == "system_calls" {
					continue
				}
				for name := range set {
					libc[name] = true
				}
			}
		}
		if len(syscalls) == 0 {
			if sc, ok := categories["system_calls"]; ok {
				syscalls = sc
			}
		}
	} else {
		targetNames = map[string]bool{}
		for name := range libc {
			targetNames[name] = true
		}
		for name := range syscalls {
			targetNames[name] = true
		}
	}

	return ApiCatalog{
		Libc:           libc,
		Syscalls:       syscalls,
		TargetNames:    targetNames,
		Helpers:        helpers,
		ThinAliases:    thinAliases,
		Categories:     categories,
		NameToCategory: nameToCategory,
	}, nil
}
