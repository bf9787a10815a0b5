package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentmesh/orchestrator/pkg/llms"
)

type stubProvider struct {
	reply llms.ProviderReply
	err   error
}

func (s *stubProvider) Name() string                       { return "stub" }
func (s *stubProvider) Capabilities() llms.Capabilities     { return llms.Capabilities{} }
func (s *stubProvider) AddToolMessage(m []llms.Message, n, c string) []llms.Message { return m }
func (s *stubProvider) Stream(ctx context.Context, m []llms.Message, o llms.RequestOptions, y func(string) bool) error {
	return nil
}
func (s *stubProvider) Request(ctx context.Context, m []llms.Message, o llms.RequestOptions) (llms.ProviderReply, error) {
	return s.reply, s.err
}

func toolRegistryFor(t *testing.T, names ...string) *Registry {
	t.Helper()
	r := NewRegistry()
	for _, n := range names {
		require.NoError(t, r.Register(Definition{Name: n, Description: "search the web for " + n}))
	}
	return r
}

func TestAIToolFinder_ParsesAndFiltersKnownTools(t *testing.T) {
	r := toolRegistryFor(t, "search", "fetch")
	provider := &stubProvider{reply: llms.ProviderReply{Content: `{"tools": ["search", "unknown_tool"]}`}}
	finder := NewAIToolFinder(r, provider, "gpt-4o-mini")

	selected := finder.Find(context.Background(), "look something up", nil)
	require.True(t, selected["search"])
	require.False(t, selected["unknown_tool"])
	require.Len(t, selected, 1)
}

func TestAIToolFinder_FencedReply(t *testing.T) {
	r := toolRegistryFor(t, "search")
	provider := &stubProvider{reply: llms.ProviderReply{Content: "```json\n{\"tools\": [\"search\"]}\n```"}}
	finder := NewAIToolFinder(r, provider, "gpt-4o-mini")

	selected := finder.Find(context.Background(), "look something up", nil)
	require.True(t, selected["search"])
}

func TestAIToolFinder_TransientErrorYieldsEmptySet(t *testing.T) {
	r := toolRegistryFor(t, "search")
	provider := &stubProvider{err: errBoom}
	finder := NewAIToolFinder(r, provider, "gpt-4o-mini")

	selected := finder.Find(context.Background(), "anything", nil)
	require.Empty(t, selected)
}

func TestAIToolFinder_EmptyRegistry(t *testing.T) {
	finder := NewAIToolFinder(NewRegistry(), &stubProvider{}, "gpt-4o-mini")
	require.Empty(t, finder.Find(context.Background(), "anything", nil))
}

func TestKeywordFinder_SelectsOnSharedToken(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Definition{Name: "search", Description: "search the web"}))
	require.NoError(t, r.Register(Definition{Name: "weather", Description: "current weather forecast"}))
	finder := NewKeywordFinder(r)

	selected := finder.Find(context.Background(), "please search for flights", nil)
	require.True(t, selected["search"])
	require.False(t, selected["weather"])
}

func TestKeywordFinder_IgnoresStopWords(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Definition{Name: "t", Description: "a tool for the user"}))
	finder := NewKeywordFinder(r)

	selected := finder.Find(context.Background(), "the for a", nil)
	require.Empty(t, selected)
}

var errBoom = &stubErr{"boom"}

type stubErr struct{ msg string }

func (e *stubErr) Error() string { return e.msg }
