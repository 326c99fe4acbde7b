package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRowDefaults(t *testing.T) {
	r := NewRow()
	require.Equal(t, "-", r.Family)
	require.Equal(t, "-", r.ArgPass)
	require.Equal(t, "-", r.RetPass)
	require.NotNil(t, r.HitLocs)
	require.Empty(t, r.HitLocs)
	require.NotNil(t, r.DerivationTrace)
	require.NotNil(t, r.IgnoredHelpers)
	require.NotNil(t, r.Callees)
}

func TestEdgeFieldsRoundTrip(t *testing.T) {
	e := Edge{
		CallerKey: "a.c:foo",
		CalleeKey: "a.c:bar",
		Caller:    "foo",
		Callee:    "bar",
		Loc:       "a.c:10:2",
	}
	require.Equal(t, "foo", e.Caller)
	require.Equal(t, "bar", e.Callee)
	require.Equal(t, "a.c:foo", e.CallerKey)
}
