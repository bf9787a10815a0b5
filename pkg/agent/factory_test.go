package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentmesh/orchestrator/pkg/apperrors"
	"github.com/agentmesh/orchestrator/pkg/config"
	"github.com/agentmesh/orchestrator/pkg/llms"
)

const factoryTestYAML = `
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
    use_cases: [CHAT]
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
    description: writes code
    default_model: gpt-4o-mini
use_cases:
  default_model: gpt-4o-mini
tools:
  categories: {}
`

func factoryFixture(t *testing.T) (*Factory, *Registry) {
	t.Helper()
	store, err := config.NewStore([]byte(factoryTestYAML), nil)
	require.NoError(t, err)

	providers := llms.NewRegistry()
	require.NoError(t, providers.Register("openai", &stubProvider{reply: llms.ProviderReply{Content: "ok"}}))

	registry := NewRegistry()
	RegisterBuiltins(registry)
	factory := NewFactory(registry, Deps{Store: store, Providers: providers})
	return factory, registry
}

func TestFactory_CreateBase(t *testing.T) {
	factory, _ := factoryFixture(t)
	a, err := factory.Create("base", Deps{})
	require.NoError(t, err)

	resp := a.ProcessRequest(context.Background(), Request{Prompt: "hello"})
	require.Equal(t, StatusSuccess, resp.Status)
}

func TestFactory_CreateUnknownAgent(t *testing.T) {
	factory, _ := factoryFixture(t)
	_, err := factory.Create("nonexistent", Deps{})
	require.Error(t, err)
	require.Equal(t, apperrors.KindAgentNotFound, apperrors.KindOf(err))
}

func TestFactory_ToolFinderRequiresFinderDependency(t *testing.T) {
	factory, _ := factoryFixture(t)
	_, err := factory.Create("tool_finder", Deps{})
	require.Error(t, err)
}

func TestFactory_ToolFinderUsesProvidedFinder(t *testing.T) {
	factory, _ := factoryFixture(t)
	finder := &stubFinder{selected: map[string]bool{"search": true}}

	a, err := factory.Create("tool_finder", Deps{Finder: finder})
	require.NoError(t, err)

	resp := a.ProcessRequest(context.Background(), Request{Prompt: "look it up"})
	require.Equal(t, StatusSuccess, resp.Status)
}

func TestFactory_OrchestratorRequiresRunnerDependency(t *testing.T) {
	factory, _ := factoryFixture(t)
	_, err := factory.Create("orchestrator", Deps{})
	require.Error(t, err)
}

type stubRunner struct {
	resp Response
}

func (s *stubRunner) Run(ctx context.Context, request Request) Response { return s.resp }

func TestFactory_OrchestratorDelegatesToRunner(t *testing.T) {
	factory, _ := factoryFixture(t)
	runner := &stubRunner{resp: Response{Content: "orchestrated", Status: StatusSuccess}}

	a, err := factory.Create("orchestrator", Deps{Runner: runner})
	require.NoError(t, err)

	resp := a.ProcessRequest(context.Background(), Request{Prompt: "do it all"})
	require.Equal(t, "orchestrated", resp.Content)
}
