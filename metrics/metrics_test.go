package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordTranslationUnitIncrementsOutcomeAndFailureCounters(t *testing.T) {
	m := New()
	m.RecordTranslationUnit(OutcomeParsed)
	m.RecordTranslationUnit(OutcomeFailed)
	m.RecordTranslationUnit(OutcomeFailed)

	require.Equal(t, float64(1), testutil.ToFloat64(m.TranslationUnitsTotal.WithLabelValues("parsed")))
	require.Equal(t, float64(2), testutil.ToFloat64(m.TranslationUnitsTotal.WithLabelValues("failed")))
	require.Equal(t, float64(2), testutil.ToFloat64(m.ParseFailuresTotal))
}

func TestRecordRowsAndEdgesIgnoreNonPositive(t *testing.T) {
	m := New()
	m.RecordRows(0)
	m.RecordRows(-3)
	m.RecordRows(5)
	m.RecordEdges(0)
	m.RecordEdges(2)

	require.Equal(t, float64(5), testutil.ToFloat64(m.RowsEmittedTotal))
	require.Equal(t, float64(2), testutil.ToFloat64(m.EdgesCollectedTotal))
}

func TestRecordDecisionLabelsByModeKeptAndReason(t *testing.T) {
	m := New()
	m.RecordDecision("strict_plus", true, "ok-direct")
	m.RecordDecision("strict_plus", false, "reject: multi-call-per-path")

	require.Equal(t, float64(1), testutil.ToFloat64(m.WrapperDecisionsTotal.WithLabelValues("strict_plus", "true", "ok-direct")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.WrapperDecisionsTotal.WithLabelValues("strict_plus", "false", "reject: multi-call-per-path")))
}

func TestNewRegisteredSeparatesRegistryPerInstance(t *testing.T) {
	m1, reg1 := NewRegistered()
	_, reg2 := NewRegistered()
	require.NotSame(t, reg1, reg2)

	m1.RecordRows(1)
	families, err := reg1.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}
