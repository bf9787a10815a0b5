package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentmesh/orchestrator/pkg/agent"
	"github.com/agentmesh/orchestrator/pkg/analyzer"
	"github.com/agentmesh/orchestrator/pkg/config"
	"github.com/agentmesh/orchestrator/pkg/llms"
	"github.com/agentmesh/orchestrator/pkg/metrics"
	"github.com/agentmesh/orchestrator/pkg/tool"
)

const fixtureYAML = `
models:
  gpt-4o-mini:
    model_id: gpt-4o-mini
    provider: openai
    quality: HIGH
    speed: FAST
    privacy: EXTERNAL
    max_tokens: 4096
    temperature: 0.7
    cost: {input_per_token: 0, output_per_token: 0, minimum: 0}
    use_cases: [CHAT, CODING]
providers:
  openai:
    api_key_env: OPENAI_API_KEY
    timeout_seconds: 30
agents:
  base:
    id: base
    description: general assistant
    default_model: gpt-4o-mini
  coding:
    id: coding
    description: writes and reviews code
    default_model: gpt-4o-mini
use_cases:
  default_model: gpt-4o-mini
  CHAT: {quality: HIGH, speed: FAST}
  CODING: {quality: HIGH, speed: FAST}
tools:
  categories: {}
`

type stubProvider struct {
	reply   llms.ProviderReply
	replies []llms.ProviderReply // when set, consumed in order across successive Request calls
	err     error
}

func (s *stubProvider) Name() string                   { return "stub" }
func (s *stubProvider) Capabilities() llms.Capabilities { return llms.Capabilities{SupportsTools: true} }
func (s *stubProvider) AddToolMessage(m []llms.Message, n, c string) []llms.Message {
	return append(m, llms.Message{Role: llms.RoleTool, Name: n, Content: c})
}
func (s *stubProvider) Stream(ctx context.Context, m []llms.Message, o llms.RequestOptions, y func(string) bool) error {
	return nil
}
func (s *stubProvider) Request(ctx context.Context, m []llms.Message, o llms.RequestOptions) (llms.ProviderReply, error) {
	if len(s.replies) > 0 {
		r := s.replies[0]
		s.replies = s.replies[1:]
		return r, s.err
	}
	return s.reply, s.err
}

type stubFinder struct{ selected map[string]bool }

func (s *stubFinder) Find(ctx context.Context, prompt string, recentMessages []string) map[string]bool {
	return s.selected
}

func buildOrchestrator(t *testing.T, classifierReply string, codingReply string) *Orchestrator {
	return buildOrchestratorWithProvider(t, classifierReply, &stubProvider{reply: llms.ProviderReply{Content: codingReply}})
}

func buildOrchestratorWithProvider(t *testing.T, classifierReply string, baseProvider *stubProvider) *Orchestrator {
	t.Helper()
	store, err := config.NewStore([]byte(fixtureYAML), nil)
	require.NoError(t, err)

	providers := llms.NewRegistry()
	require.NoError(t, providers.Register("openai", baseProvider))

	toolRegistry := tool.NewRegistry()
	executor := tool.NewExecutor(toolRegistry, 0)

	registry := agent.NewRegistry()
	agent.RegisterBuiltins(registry)
	factory := agent.NewFactory(registry, agent.Deps{
		Store: store, Providers: providers, ToolRegistry: toolRegistry, Executor: executor,
	})

	classifier := &stubProvider{reply: llms.ProviderReply{Content: classifierReply}}
	an := analyzer.New(classifier, "gpt-4o-mini")

	agg := agent.NewAggregator(&stubProvider{}, "gpt-4o-mini")
	m := metrics.NewService("", nil)

	return New(store, factory, &stubFinder{}, an, agg, m, 3)
}

func TestRun_singleAgentMatched(t *testing.T) {
	o := buildOrchestrator(t, `[["coding", 0.9]]`, "def is_palindrome(s): return s == s[::-1]")

	resp := o.Run(context.Background(), agent.Request{Prompt: "write a python palindrome checker"})
	require.Equal(t, agent.StatusSuccess, resp.Status)
	require.Contains(t, resp.Content, "palindrome")
	require.ElementsMatch(t, []string{"coding"}, resp.Metadata["agents_used"])
	require.NotEmpty(t, resp.Metadata["request_id"])
}

func TestRun_noAgentsMatchedFallsBackToBase(t *testing.T) {
	o := buildOrchestrator(t, `[]`, "a direct reply")

	resp := o.Run(context.Background(), agent.Request{Prompt: "hello there"})
	require.Equal(t, agent.StatusSuccess, resp.Status)
	require.Equal(t, "a direct reply", resp.Content)
	require.Equal(t, []string{"base"}, resp.Metadata["agents_used"])
}

func TestRun_assignsRequestIDWhenMissing(t *testing.T) {
	o := buildOrchestrator(t, `[]`, "ok")
	resp := o.Run(context.Background(), agent.Request{Prompt: "hi"})
	require.NotEmpty(t, resp.Metadata["request_id"])
}

func TestRun_honorsSuppliedRequestID(t *testing.T) {
	o := buildOrchestrator(t, `[]`, "ok")
	resp := o.Run(context.Background(), agent.Request{RequestID: "req-123", Prompt: "hi"})
	require.Equal(t, "req-123", resp.Metadata["request_id"])
}

func TestRun_tracksToolExecutionsFromBaseAgent(t *testing.T) {
	store, err := config.NewStore([]byte(fixtureYAML), nil)
	require.NoError(t, err)

	toolRegistry := tool.NewRegistry()
	require.NoError(t, toolRegistry.Register(tool.Definition{
		Name:        "lookup",
		Description: "looks something up",
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return map[string]any{"result": "ok"}, nil
		},
	}))
	executor := tool.NewExecutor(toolRegistry, 0)

	baseProvider := &stubProvider{replies: []llms.ProviderReply{
		{ToolCalls: []llms.ToolCall{{ID: "1", Name: "lookup", Arguments: map[string]any{}}}},
		{Content: "looked it up"},
	}}
	providers := llms.NewRegistry()
	require.NoError(t, providers.Register("openai", baseProvider))

	registry := agent.NewRegistry()
	agent.RegisterBuiltins(registry)
	factory := agent.NewFactory(registry, agent.Deps{
		Store: store, Providers: providers, ToolRegistry: toolRegistry, Executor: executor,
	})

	an := analyzer.New(&stubProvider{reply: llms.ProviderReply{Content: `[]`}}, "gpt-4o-mini")
	agg := agent.NewAggregator(&stubProvider{}, "gpt-4o-mini")
	m := metrics.NewService("", nil)
	o := New(store, factory, &stubFinder{}, an, agg, m, 3)

	resp := o.Run(context.Background(), agent.Request{Prompt: "look something up"})
	require.Equal(t, agent.StatusSuccess, resp.Status)
	require.Equal(t, "looked it up", resp.Content)

	toolMetrics := m.GetToolMetrics("lookup", nil, nil)
	require.Equal(t, 1, toolMetrics["lookup"].TotalCalls)
	require.Equal(t, 1, toolMetrics["lookup"].SuccessfulCalls)
}

func TestRun_cancelledContextStillReturnsAResponse(t *testing.T) {
	o := buildOrchestrator(t, `[["coding", 0.9]]`, "some code")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp := o.Run(ctx, agent.Request{Prompt: "write code"})
	require.NotNil(t, resp)
}
