package ident

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashDeterministic(t *testing.T) {
	a, err := Hash([]byte("foo@bar.c:10"))
	require.NoError(t, err)
	b, err := Hash([]byte("foo@bar.c:10"))
	require.NoError(t, err)
	require.Equal(t, a, b)

	c, err := Hash([]byte("foo@bar.c:11"))
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}

func TestFunctionKeyStableAndDistinct(t *testing.T) {
	k1 := FunctionKey("wrap_close", "a.c", 10)
	k2 := FunctionKey("wrap_close", "a.c", 10)
	require.Equal(t, k1, k2)

	k3 := FunctionKey("wrap_close", "a.c", 11)
	require.NotEqual(t, k1, k3)
}

func TestCursorKeyDistinguishesLocations(t *testing.T) {
	a := CursorKey("a.c", 1, 2)
	b := CursorKey("a.c", 1, 3)
	require.NotEqual(t, a, b)
}
