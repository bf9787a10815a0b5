package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBaseRegistry_RegisterAndGet(t *testing.T) {
	r := New[int]()

	require.NoError(t, r.Register("a", 1))
	require.Error(t, r.Register("a", 2), "duplicate names must be rejected")
	require.Error(t, r.Register("", 3), "empty names must be rejected")

	v, ok := r.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)

	_, ok = r.Get("missing")
	require.False(t, ok)
}

func TestBaseRegistry_ListIsSortedByName(t *testing.T) {
	r := New[string]()
	require.NoError(t, r.Register("zeta", "z"))
	require.NoError(t, r.Register("alpha", "a"))
	require.NoError(t, r.Register("mike", "m"))

	require.Equal(t, []string{"alpha", "mike", "zeta"}, r.Names())
	require.Equal(t, []string{"a", "m", "z"}, r.List())
}

func TestBaseRegistry_RemoveAndClear(t *testing.T) {
	r := New[int]()
	require.NoError(t, r.Register("a", 1))
	require.Error(t, r.Remove("nope"))
	require.NoError(t, r.Remove("a"))
	require.Equal(t, 0, r.Count())

	require.NoError(t, r.Register("b", 2))
	require.NoError(t, r.Register("c", 3))
	r.Clear()
	require.Equal(t, 0, r.Count())
}

func TestBaseRegistry_Put_overwrites(t *testing.T) {
	r := New[int]()
	r.Put("a", 1)
	r.Put("a", 2)
	v, ok := r.Get("a")
	require.True(t, ok)
	require.Equal(t, 2, v)
}
