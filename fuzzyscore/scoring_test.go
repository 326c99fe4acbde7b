package fuzzyscore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeSplitsCamelCaseAndLowercases(t *testing.T) {
	require.Equal(t, "wrap close fd", Normalize("WrapClose_FD"))
}

func TestStripAffixesRemovesKnownPrefixAndSuffix(t *testing.T) {
	require.Equal(t, "close", StripAffixes("ngx_close_impl"))
	require.Equal(t, "foo", StripAffixes("foo"))
}

func TestTokenizeSplitsOnNormalizedWhitespace(t *testing.T) {
	require.Equal(t, []string{"wrap", "close", "fd"}, Tokenize("wrap_close_FD"))
}

func TestBuildCanonSetsSortedAndNormalized(t *testing.T) {
	sets := BuildCanonSets(map[string]bool{"close": true, "pthread_mutex_lock": true})
	require.Len(t, sets, 2)
	require.Equal(t, "close", sets[0].Key)
	require.Equal(t, "pthread mutex lock", sets[1].Candidates[0])
}

func TestTopKScoresExactMatchRanksFirst(t *testing.T) {
	sets := BuildCanonSets(map[string]bool{"close": true, "open": true, "read": true})
	scores := TopKScores("wrap_close", sets, 3)
	require.NotEmpty(t, scores)
	require.Equal(t, "close", scores[0].Key)
}

func TestTopKScoresFiltersOutWeakMatches(t *testing.T) {
	sets := BuildCanonSets(map[string]bool{"pthread_mutex_lock": true})
	scores := TopKScores("xyz", sets, 3)
	require.Empty(t, scores)
}

func TestWrapperScorePerfectPassThroughIsOne(t *testing.T) {
	score := WrapperScore("wrap_close", "close", "close", 1, "close", 100, "file", "ok", "yes - all", "yes - all")
	require.Equal(t, 1.0, score)
}

func TestWrapperScoreLowerWithoutPassThroughEvidence(t *testing.T) {
	full := WrapperScore("wrap_close", "close", "close", 1, "close", 100, "file", "", "yes - all", "yes - all")
	partial := WrapperScore("wrap_close", "close", "close", 1, "close", 100, "file", "", "no", "no")
	require.Less(t, partial, full)
}

func TestWrapperScoreWithinUnitInterval(t *testing.T) {
	score := WrapperScore("do_something_else", "", "", 20, "", 0, "", "", "", "")
	require.GreaterOrEqual(t, score, 0.0)
	require.LessOrEqual(t, score, 1.0)
}
