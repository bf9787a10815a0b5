package agent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	called := 0
	r.Register("base", func(d Deps) (Agent, error) {
		called++
		return nil, nil
	})

	ctor, ok := r.Get("base")
	require.True(t, ok)
	_, _ = ctor(Deps{})
	require.Equal(t, 1, called)
}

func TestRegistry_DuplicateRegistrationIsNoOp(t *testing.T) {
	r := NewRegistry()
	first := func(d Deps) (Agent, error) { return NewBaseAgent("first", "", "", "", nil, nil, nil), nil }
	second := func(d Deps) (Agent, error) { return NewBaseAgent("second", "", "", "", nil, nil, nil), nil }

	r.Register("base", first)
	r.Register("base", second)

	ctor, ok := r.Get("base")
	require.True(t, ok)
	a, _ := ctor(Deps{})
	require.Equal(t, "first", a.(*BaseAgent).ID())
}

func TestRegistry_GetUnknownID(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Get("missing")
	require.False(t, ok)
}
