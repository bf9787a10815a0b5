package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentmesh/orchestrator/pkg/llms"
	"github.com/agentmesh/orchestrator/pkg/tool"
)

type stubProvider struct {
	reply        llms.ProviderReply
	replies      []llms.ProviderReply // when set, consumed in order across successive Request calls
	err          error
	got          []llms.Message
	capabilities llms.Capabilities
}

func (s *stubProvider) Name() string                   { return "stub" }
func (s *stubProvider) Capabilities() llms.Capabilities { return s.capabilities }
func (s *stubProvider) AddToolMessage(m []llms.Message, name, content string) []llms.Message {
	return append(m, llms.Message{Role: llms.RoleTool, Name: name, Content: content})
}
func (s *stubProvider) Stream(ctx context.Context, m []llms.Message, o llms.RequestOptions, y func(string) bool) error {
	return nil
}
func (s *stubProvider) Request(ctx context.Context, m []llms.Message, o llms.RequestOptions) (llms.ProviderReply, error) {
	s.got = m
	if len(s.replies) > 0 {
		r := s.replies[0]
		s.replies = s.replies[1:]
		return r, s.err
	}
	return s.reply, s.err
}

func fixedResolver(p llms.Provider, model string) ProviderResolver {
	return func(requestedModel string) (llms.Provider, string, error) {
		if requestedModel != "" {
			return p, requestedModel, nil
		}
		return p, model, nil
	}
}

func TestBaseAgent_ProcessRequest_usesConfiguredDefaults(t *testing.T) {
	p := &stubProvider{reply: llms.ProviderReply{Content: "hi there"}}
	a := NewBaseAgent("base", "general assistant", "gpt-4o-mini", "be terse", fixedResolver(p, "gpt-4o-mini"), nil, nil)

	resp := a.ProcessRequest(context.Background(), Request{Prompt: "hello"})
	require.Equal(t, StatusSuccess, resp.Status)
	require.Equal(t, "hi there", resp.Content)
	require.Len(t, p.got, 2)
	require.Equal(t, llms.RoleSystem, p.got[0].Role)
	require.Equal(t, "be terse", p.got[0].Content)
}

func TestBaseAgent_ProcessRequest_overridesModelAndSystemPrompt(t *testing.T) {
	p := &stubProvider{reply: llms.ProviderReply{Content: "ok"}}
	a := NewBaseAgent("base", "general assistant", "gpt-4o-mini", "default prompt", fixedResolver(p, "gpt-4o-mini"), nil, nil)

	resp := a.ProcessRequest(context.Background(), Request{Prompt: "hello", Model: "gpt-4o", SystemPrompt: "override prompt"})
	require.Equal(t, StatusSuccess, resp.Status)
	require.Equal(t, "override prompt", p.got[0].Content)
}

func TestBaseAgent_ProcessRequest_providerErrorBecomesStatusError(t *testing.T) {
	p := &stubProvider{err: errors.New("boom")}
	a := NewBaseAgent("base", "general assistant", "gpt-4o-mini", "", fixedResolver(p, "gpt-4o-mini"), nil, nil)

	resp := a.ProcessRequest(context.Background(), Request{Prompt: "hello"})
	require.Equal(t, StatusError, resp.Status)
	require.NotEmpty(t, resp.Error)
}

func TestBaseAgent_ProcessRequest_resolverErrorBecomesStatusError(t *testing.T) {
	resolver := func(model string) (llms.Provider, string, error) {
		return nil, "", errors.New("no such model")
	}
	a := NewBaseAgent("base", "general assistant", "gpt-4o-mini", "", resolver, nil, nil)

	resp := a.ProcessRequest(context.Background(), Request{Prompt: "hello"})
	require.Equal(t, StatusError, resp.Status)
}

func TestBaseAgent_CanHandle_defaultConfidence(t *testing.T) {
	a := NewBaseAgent("base", "general assistant", "gpt-4o-mini", "", fixedResolver(&stubProvider{}, "gpt-4o-mini"), nil, nil)
	require.Equal(t, 0.5, a.CanHandle(context.Background(), Request{}))
}

func TestBaseAgent_ProcessRequest_executesRequestedToolCall(t *testing.T) {
	registry := tool.NewRegistry()
	require.NoError(t, registry.Register(tool.Definition{
		Name:        "lookup_weather",
		Description: "returns the weather for a city",
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return map[string]any{"forecast": "sunny"}, nil
		},
	}))
	executor := tool.NewExecutor(registry, 0)

	p := &stubProvider{
		capabilities: llms.Capabilities{SupportsTools: true},
		replies: []llms.ProviderReply{
			{ToolCalls: []llms.ToolCall{{ID: "1", Name: "lookup_weather", Arguments: map[string]any{}}}},
			{Content: "it is sunny"},
		},
	}
	a := NewBaseAgent("base", "general assistant", "gpt-4o-mini", "", fixedResolver(p, "gpt-4o-mini"), registry, executor)

	resp := a.ProcessRequest(context.Background(), Request{Prompt: "what's the weather", RelevantTools: []string{"lookup_weather"}})
	require.Equal(t, StatusSuccess, resp.Status)
	require.Equal(t, "it is sunny", resp.Content)

	var sawToolMessage bool
	for _, m := range p.got {
		if m.Role == llms.RoleTool && m.Name == "lookup_weather" {
			sawToolMessage = true
			require.Contains(t, m.Content, "sunny")
		}
	}
	require.True(t, sawToolMessage, "expected a tool-role message carrying the executor's result")
}

func TestBaseAgent_ProcessRequest_skipsToolsWhenProviderCannotUseThem(t *testing.T) {
	registry := tool.NewRegistry()
	require.NoError(t, registry.Register(tool.Definition{Name: "noop", Description: "does nothing",
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) { return nil, nil }}))
	executor := tool.NewExecutor(registry, 0)

	p := &stubProvider{reply: llms.ProviderReply{Content: "fine without tools"}}
	a := NewBaseAgent("base", "general assistant", "gpt-4o-mini", "", fixedResolver(p, "gpt-4o-mini"), registry, executor)

	resp := a.ProcessRequest(context.Background(), Request{Prompt: "hi", RelevantTools: []string{"noop"}})
	require.Equal(t, StatusSuccess, resp.Status)
	require.Empty(t, p.got[len(p.got)-1].ToolCalls)
}
