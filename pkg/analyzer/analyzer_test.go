package analyzer

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

func (s *stubProvider) Name() string                   { return "stub" }
func (s *stubProvider) Capabilities() llms.Capabilities { return llms.Capabilities{} }
func (s *stubProvider) AddToolMessage(m []llms.Message, n, c string) []llms.Message { return m }
func (s *stubProvider) Stream(ctx context.Context, m []llms.Message, o llms.RequestOptions, y func(string) bool) error {
	return nil
}
func (s *stubProvider) Request(ctx context.Context, m []llms.Message, o llms.RequestOptions) (llms.ProviderReply, error) {
	return s.reply, s.err
}

var candidates = []AgentCandidate{
	{ID: "coding", Description: "writes code"},
	{ID: "chat", Description: "general conversation"},
}

func TestAnalyzeRequest_sortedDescendingByConfidence(t *testing.T) {
	provider := &stubProvider{reply: llms.ProviderReply{Content: `[["chat", 0.65], ["coding", 0.9]]`}}
	a := New(provider, "gpt-4o-mini")

	result := a.AnalyzeRequest(context.Background(), "write a function", candidates)
	require.Len(t, result, 2)
	require.Equal(t, "coding", result[0].ID)
	require.Equal(t, "chat", result[1].ID)
}

func TestAnalyzeRequest_filtersBelowThreshold(t *testing.T) {
	provider := &stubProvider{reply: llms.ProviderReply{Content: `[["chat", 0.3], ["coding", 0.9]]`}}
	a := New(provider, "gpt-4o-mini")

	result := a.AnalyzeRequest(context.Background(), "write a function", candidates)
	require.Len(t, result, 1)
	require.Equal(t, "coding", result[0].ID)
}

func TestAnalyzeRequest_regexFallbackOnParseFailure(t *testing.T) {
	provider := &stubProvider{reply: llms.ProviderReply{Content: `Here you go: "coding", 0.95 and also "chat", 0.4`}}
	a := New(provider, "gpt-4o-mini")

	result := a.AnalyzeRequest(context.Background(), "write a function", candidates)
	require.Len(t, result, 1)
	require.Equal(t, "coding", result[0].ID)
	require.Greater(t, result[0].Confidence, 0.6)
}

func TestAnalyzeRequest_unknownIDsDropped(t *testing.T) {
	provider := &stubProvider{reply: llms.ProviderReply{Content: `[["unknown", 0.9], ["coding", 0.9]]`}}
	a := New(provider, "gpt-4o-mini")

	result := a.AnalyzeRequest(context.Background(), "write a function", candidates)
	require.Len(t, result, 1)
	require.Equal(t, "coding", result[0].ID)
}

func TestAnalyzeRequest_errorYieldsEmpty(t *testing.T) {
	provider := &stubProvider{err: assertErr("boom")}
	a := New(provider, "gpt-4o-mini")

	require.Empty(t, a.AnalyzeRequest(context.Background(), "anything", candidates))
}

func TestAnalyzeRequest_noCandidatesYieldsEmpty(t *testing.T) {
	a := New(&stubProvider{}, "gpt-4o-mini")
	require.Empty(t, a.AnalyzeRequest(context.Background(), "anything", nil))
}

func TestAnalyzeTools_parsesJSONArray(t *testing.T) {
	provider := &stubProvider{reply: llms.ProviderReply{Content: `["search", "unknown_tool"]`}}
	a := New(provider, "gpt-4o-mini")

	result := a.AnalyzeTools(context.Background(), "look something up", []string{"search", "fetch"})
	require.Equal(t, []string{"search"}, result)
}

func TestAnalyzeTools_errorYieldsEmpty(t *testing.T) {
	provider := &stubProvider{err: assertErr("boom")}
	a := New(provider, "gpt-4o-mini")
	require.Empty(t, a.AnalyzeTools(context.Background(), "anything", []string{"search"}))
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
