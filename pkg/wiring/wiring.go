// Package wiring builds a fully assembled orchestration core (Config
// Store, Provider Registry, Tool Registry, Agent Registry/Factory,
// Orchestrator) from a YAML config file and process environment, the way
// cmd/hector's main.go wires its runtime in the teacher.
package wiring

import (
	"context"
	"fmt"
	"os"

	"github.com/agentmesh/orchestrator/pkg/agent"
	"github.com/agentmesh/orchestrator/pkg/analyzer"
	"github.com/agentmesh/orchestrator/pkg/config"
	"github.com/agentmesh/orchestrator/pkg/llms"
	"github.com/agentmesh/orchestrator/pkg/llms/anthropic"
	"github.com/agentmesh/orchestrator/pkg/llms/gemini"
	"github.com/agentmesh/orchestrator/pkg/llms/ollama"
	"github.com/agentmesh/orchestrator/pkg/llms/openai"
	"github.com/agentmesh/orchestrator/pkg/metrics"
	"github.com/agentmesh/orchestrator/pkg/orchestrator"
	"github.com/agentmesh/orchestrator/pkg/tool"
)

// Runtime bundles the assembled components a CLI or server needs.
type Runtime struct {
	Store         *config.Store
	Providers     *llms.Registry
	ToolRegistry  *tool.Registry
	Executor      *tool.Executor
	AgentRegistry *agent.Registry
	Factory       *agent.Factory
	Orchestrator  *orchestrator.Orchestrator
	Metrics       *metrics.Service
}

// Options configures Build.
type Options struct {
	ConfigPath        string
	MetricsPath       string
	ClassifierModel   string
	AggregatorModel   string
	MaxParallelAgents int
}

// Build reads ConfigPath, constructs a Provider for every provider entry
// whose credentials (an env var named by api_key_env, or none for ollama)
// are available, and wires the full pipeline (spec §4.1-§4.13). Providers
// missing credentials are skipped rather than failing startup, since a
// deployment may only have some backends configured.
func Build(ctx context.Context, opts Options) (*Runtime, error) {
	store, err := config.Load(opts.ConfigPath, nil)
	if err != nil {
		return nil, fmt.Errorf("wiring: %w", err)
	}

	providers := llms.NewRegistry()
	var availableProviderID string
	for id, pc := range store.Providers() {
		p, err := buildProvider(ctx, id, pc)
		if err != nil {
			continue
		}
		if err := providers.Register(id, p); err != nil {
			continue
		}
		availableProviderID = id
	}

	toolRegistry := tool.NewRegistry()
	executor := tool.NewExecutor(toolRegistry, 256)

	var classifierProvider llms.Provider
	if availableProviderID != "" {
		classifierProvider, _ = providers.Resolve(availableProviderID)
	}

	var finder tool.Finder = tool.NewKeywordFinder(toolRegistry)
	if classifierProvider != nil {
		finder = tool.NewAIToolFinder(toolRegistry, classifierProvider, opts.ClassifierModel)
	}

	an := analyzer.New(classifierProvider, opts.ClassifierModel)
	agg := agent.NewAggregator(classifierProvider, opts.AggregatorModel)

	prom := metrics.NewPrometheus()
	metricsSvc := metrics.NewService(opts.MetricsPath, prom)

	agentRegistry := agent.NewRegistry()
	agent.RegisterBuiltins(agentRegistry)
	factory := agent.NewFactory(agentRegistry, agent.Deps{
		Store: store, Providers: providers, Finder: finder, ToolRegistry: toolRegistry, Executor: executor,
	})

	orch := orchestrator.New(store, factory, finder, an, agg, metricsSvc, opts.MaxParallelAgents)
	// The "orchestrator" agent class delegates to this Orchestrator (spec
	// §4.10 "special constructor paths"); it can only be wired after
	// construction since Orchestrator itself depends on Factory.
	factory.SetDefaultRunner(orch)

	return &Runtime{
		Store: store, Providers: providers, ToolRegistry: toolRegistry, Executor: executor,
		AgentRegistry: agentRegistry, Factory: factory, Orchestrator: orch, Metrics: metricsSvc,
	}, nil
}

func buildProvider(ctx context.Context, id string, pc config.ProviderConfig) (llms.Provider, error) {
	apiKey := os.Getenv(pc.APIKeyEnv)
	switch id {
	case "openai":
		if apiKey == "" {
			return nil, fmt.Errorf("missing %s", pc.APIKeyEnv)
		}
		return openai.New(apiKey, pc.BaseURL), nil
	case "anthropic":
		if apiKey == "" {
			return nil, fmt.Errorf("missing %s", pc.APIKeyEnv)
		}
		return anthropic.NewFromAPIKey(apiKey, ""), nil
	case "gemini":
		if apiKey == "" {
			return nil, fmt.Errorf("missing %s", pc.APIKeyEnv)
		}
		return gemini.New(ctx, gemini.Config{APIKey: apiKey})
	case "ollama":
		return ollama.New(ollama.Config{BaseURL: pc.BaseURL}), nil
	default:
		return nil, fmt.Errorf("wiring: unknown provider id %q", id)
	}
}
