package fuzzyscore

import (
	"math"
	"regexp"
	"sort"
	"strings"

	libfuzzy "github.com/sahilm/fuzzy"
)

// MatchScore is one function name's match against a single canon set
// (`cwrappers/fuzzy/scoring.py`'s `MatchScore`).
type MatchScore struct {
	Key        string
	BestMatch  string
	Exact      bool
	TokenEqual bool
	LCSLen     int
	Combined   float64
	LibScore   float64
}

// lcsStrLen is the length of the longest common (contiguous) substring of
// a and b, the classic O(len(a)*len(b)) dynamic-programming table.
func lcsStrLen(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	m, n := len(a), len(b)
	dp := make([]int, n+1)
	best := 0
	for i := 1; i <= m; i++ {
		prev := 0
		for j := 1; j <= n; j++ {
			tmp := dp[j]
			if a[i-1] == b[j-1] {
				dp[j] = prev + 1
				if dp[j] > best {
					best = dp[j]
				}
			} else {
				dp[j] = 0
			}
			prev = tmp
		}
	}
	return best
}

func tokenSetEqual(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	sa, sb := map[string]bool{}, map[string]bool{}
	for _, x := range a {
		sa[x] = true
	}
	for _, x := range b {
		sb[x] = true
	}
	if len(sa) != len(sb) {
		return false
	}
	for k := range sa {
		if !sb[k] {
			return false
		}
	}
	return true
}

// scoreAgainstCanon scores fnTokens/fnNorm against one canon set, blending
// the longest-common-substring ratio (`combined`) with a secondary
// subsequence-matcher score (`LibScore`) in place of the Python original's
// optional rapidfuzz WRatio/token_set_ratio, since no Go ecosystem library
// reproduces rapidfuzz's specific scoring formula — `github.com/sahilm/fuzzy`'s
// Sublime-Text-style scorer gives the same "higher is better" secondary
// signal and is the pack's own grounded fuzzy-matching dependency
// (SPEC_FULL.md §2).
func scoreAgainstCanon(fnTokens []string, fnNorm string, cs CanonSet) MatchScore {
	bestLCS := 0
	bestRatio := 0.0
	cand := ""
	if len(cs.Candidates) > 0 {
		cand = cs.Candidates[0]
	}
	exact := fnNorm == cand
	tokenEqual := tokenSetEqual(fnTokens, strings.Fields(cand))

	terms := fnTokens
	if len(terms) == 0 {
		terms = []string{fnNorm}
	}
	for _, t := range terms {
		lcs := lcsStrLen(t, cand)
		if lcs > bestLCS {
			bestLCS = lcs
			bestRatio = maxFloat(ratio(lcs, len(t)), ratio(lcs, len(cand)))
		}
	}

	combined := 0.0
	if exact {
		combined = 100.0
	} else {
		combined = clamp(100.0*bestRatio, 0, 100)
	}

	libScore := combined
	if fnNorm != "" && cand != "" {
		matches := libfuzzy.Find(fnNorm, []string{cand})
		if len(matches) > 0 {
			libScore = clamp(float64(matches[0].Score), 0, 100)
		}
	}

	return MatchScore{
		Key:        cs.Key,
		BestMatch:  cand,
		Exact:      exact,
		TokenEqual: tokenEqual,
		LCSLen:     bestLCS,
		Combined:   combined,
		LibScore:   libScore,
	}
}

func ratio(lcs, length int) float64 {
	if length < 1 {
		length = 1
	}
	return float64(lcs) / float64(length)
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// TopKScores ranks fnName against every canon set, keeping only
// sufficiently-similar candidates (lcs_len >= 3 or an exact match) and
// returning the top k by (lib score desc, exact first, token-equal first,
// lcs desc, combined desc, key asc) — `top_k_scores`.
func TopKScores(fnName string, canonSets []CanonSet, k int) []MatchScore {
	fnStripped := StripAffixes(fnName)
	fnTokens := Tokenize(fnStripped)
	fnNorm := Normalize(fnStripped)

	var scores []MatchScore
	for _, cs := range canonSets {
		s := scoreAgainstCanon(fnTokens, fnNorm, cs)
		if s.LCSLen >= 3 || s.Exact {
			scores = append(scores, s)
		}
	}
	if len(scores) == 0 {
		return nil
	}

	sort.SliceStable(scores, func(i, j int) bool {
		a, b := scores[i], scores[j]
		if a.LibScore != b.LibScore {
			return a.LibScore > b.LibScore
		}
		if a.Exact != b.Exact {
			return a.Exact
		}
		if a.TokenEqual != b.TokenEqual {
			return a.TokenEqual
		}
		if a.LCSLen != b.LCSLen {
			return a.LCSLen > b.LCSLen
		}
		if a.Combined != b.Combined {
			return a.Combined > b.Combined
		}
		return a.Key < b.Key
	})

	if k > 0 && len(scores) > k {
		scores = scores[:k]
	}
	return scores
}

var calleeSplitRe = regexp.MustCompile(`[|;,\s]+`)

func splitCallees(calleeField string) []string {
	s := strings.TrimSpace(calleeField)
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, " - ", "|")
	var out []string
	for _, p := range calleeSplitRe.Split(s, -1) {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

var yesCountRe = regexp.MustCompile(`^yes\s*-\s*(\d+)`)

// WrapperScore blends naming, fan-out, and pass-through evidence into a
// single [0,1] wrapper-likelihood score (`wrapper_score`). fuzzyKey/
// fuzzyCombined are the top fuzzy match's key and combined score from
// TopKScores, when one survived the lcs>=3-or-exact filter.
func WrapperScore(function, apiCalled, calleeField string, fanOut int, fuzzyKey string, fuzzyCombined float64, category, reason, argPass, retPass string) float64 {
	fnStripped := StripAffixes(function)
	fnNorm := Normalize(fnStripped)
	fnTokens := map[string]bool{}
	for _, t := range Tokenize(fnStripped) {
		fnTokens[t] = true
	}

	fuzzyNorm := Normalize(fuzzyKey)
	apiCalledNorm := Normalize(apiCalled)
	categoryNorm := Normalize(category)
	catalogBlacklist := map[string]bool{"": true, "other": true}
	categoryBlacklist := map[string]bool{"": true, "n/a": true, "na": true, "none": true}
	apiFromCatalog := apiCalledNorm != "" && !catalogBlacklist[apiCalledNorm] && !categoryBlacklist[categoryNorm]

	apiTokenSource := fuzzyKey
	if apiFromCatalog {
		apiTokenSource = apiCalled
	}
	apiNorm := Normalize(apiTokenSource)
	apiTokens := Tokenize(apiNorm)

	apiAlignment := 0.0
	if apiFromCatalog && apiNorm != "" && fuzzyNorm != "" {
		if apiNorm == fuzzyNorm {
			apiAlignment = 100.0
		} else if matches := libfuzzy.Find(apiNorm, []string{fuzzyNorm}); len(matches) > 0 {
			apiAlignment = clamp(float64(matches[0].Score), 0, 100)
		}
	}

	callees := splitCallees(calleeField)
	calleeNormSet := map[string]bool{}
	for _, c := range callees {
		if c != "" {
			calleeNormSet[Normalize(c)] = true
		}
	}
	nCallees := len(calleeNormSet)

	sThin := 0.0
	if nCallees > 0 {
		sThin = 1.0 / pow(float64(nCallees), 0.8)
	}

	pos := func(tok string) float64 {
		if tok == "" {
			return 0.0
		}
		if strings.HasPrefix(fnNorm, tok) || strings.HasSuffix(fnNorm, tok) {
			return 1.0
		}
		if strings.Contains(" "+fnNorm+" ", " "+tok+" ") {
			return 0.7
		}
		if strings.Contains(fnNorm, tok) {
			return 0.4
		}
		return 0.0
	}

	sPos := 0.0
	hasPosCandidate := false
	if apiNorm != "" {
		sPos = pos(apiNorm)
		hasPosCandidate = true
	}
	for cn := range calleeNormSet {
		p := pos(cn)
		if !hasPosCandidate || p > sPos {
			sPos = p
		}
		hasPosCandidate = true
	}

	coverage := 0.0
	if len(apiTokens) > 0 && apiFromCatalog {
		matched := 0
		for _, t := range apiTokens {
			if fnTokens[t] {
				matched++
			}
		}
		coverage = float64(matched) / float64(len(apiTokens))
	}
	boundaryBonus := 0.0
	if apiFromCatalog && apiNorm != "" && (strings.HasPrefix(fnNorm, apiNorm) || strings.HasSuffix(fnNorm, apiNorm)) {
		boundaryBonus = 0.1
	}
	sDom := clamp(coverage+boundaryBonus, 0, 1)

	sFuzzy := clamp(fuzzyCombined/100.0, 0, 1)

	fOut := fanOut
	if fOut < 0 {
		fOut = 0
	}
	sFanout := 1.0 / (1.0 + float64(fOut))

	const (
		wThin = 0.24
		wPos  = 0.24
		wDom  = 0.18
		wFuz  = 0.18
		wFan  = 0.08
		wCat  = 0.08
	)

	domWeight := 0.0
	if apiFromCatalog && len(apiTokens) > 0 {
		domWeight = wDom
	}
	fuzzyWeight := wFuz + (wDom - domWeight)

	score := wThin*sThin + wPos*sPos + domWeight*sDom + fuzzyWeight*sFuzzy + wFan*sFanout

	catalogSignal := 0.0
	if apiFromCatalog {
		if apiAlignment > 0.0 {
			catalogSignal = clamp(0.35+0.65*(apiAlignment/100.0), 0, 1)
		} else {
			catalogSignal = 0.35
		}
	}
	score += wCat * catalogSignal

	penalties := 1.0
	calleeTokensAll := map[string]bool{}
	for _, c := range callees {
		for _, t := range Tokenize(c) {
			calleeTokensAll[t] = true
		}
	}
	if apiFromCatalog && len(apiTokens) > 0 {
		first := apiTokens[0]
		if first != "" && !fnTokens[first] && !calleeTokensAll[first] {
			penalties *= 0.9
		}
	}
	if nCallees >= 10 {
		penalties *= 0.85
	} else if nCallees == 0 {
		penalties *= 0.55
	}
	if sFuzzy < 0.40 {
		penalties *= 0.85
	} else if sFuzzy < 0.60 && sPos == 0.4 {
		penalties *= 0.90
	}

	score *= penalties

	reasonClean := strings.ToLower(strings.TrimSpace(reason))
	switch {
	case reasonClean == "ok":
		score *= 1.05
	case reasonClean != "":
		parts := 0
		for _, p := range strings.Split(reasonClean, "+") {
			if strings.TrimSpace(p) != "" {
				parts++
			}
		}
		score *= 1.0 - clamp(0.03*float64(parts), 0, 0.12)
	}

	normProv := func(s string) string {
		return spaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
	}
	ap := normProv(argPass)
	rp := normProv(retPass)

	if ap == "yes - all" && rp == "yes - all" {
		score = 1.0
	} else {
		argBonus := 0.0
		if ap == "yes - all" {
			argBonus = 0.12
		} else if m := yesCountRe.FindStringSubmatch(ap); m != nil {
			argBonus = clamp(0.02*parseFloat(m[1]), 0, 0.10)
		}

		retBonus := 0.0
		if rp == "yes - all" {
			retBonus = 0.08
		} else if m := yesCountRe.FindStringSubmatch(rp); m != nil {
			retBonus = clamp(0.02*parseFloat(m[1]), 0, 0.06)
		}

		score = clamp(score+argBonus+retBonus, 0, 1)
	}

	return clamp(score, 0, 1)
}

func pow(base, exp float64) float64 {
	if base <= 0 {
		return 0
	}
	return math.Pow(base, exp)
}

func parseFloat(s string) float64 {
	v := 0.0
	for _, c := range s {
		v = v*10 + float64(c-'0')
	}
	return v
}
