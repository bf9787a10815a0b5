package agent

import (
	"context"

	"github.com/agentmesh/orchestrator/pkg/apperrors"
	"github.com/agentmesh/orchestrator/pkg/config"
	"github.com/agentmesh/orchestrator/pkg/llms"
	"github.com/agentmesh/orchestrator/pkg/tool"
)

// Runner executes the full orchestrator pipeline (spec §4.12). It is
// implemented by pkg/orchestrator and injected here so OrchestratorAgent
// can be registered and created like any other agent without pkg/agent
// importing pkg/orchestrator.
type Runner interface {
	Run(ctx context.Context, request Request) Response
}

// Deps are the collaborators a Constructor may need. The Factory fills any
// field left unset from the defaults passed to NewFactory. It constructs no
// collaborator itself, so a field unset in both stays nil.
type Deps struct {
	Store        *config.Store
	Providers    *llms.Registry
	ToolRegistry *tool.Registry
	Executor     *tool.Executor
	Finder       tool.Finder
	Runner       Runner
	Registry     *Registry
	Factory      *Factory
}

// Factory resolves an agent id to its Constructor via Registry and supplies
// default Deps for anything the caller leaves unset (spec §4.10).
type Factory struct {
	registry *Registry
	defaults Deps
}

func NewFactory(registry *Registry, defaults Deps) *Factory {
	f := &Factory{registry: registry, defaults: defaults}
	f.defaults.Registry = registry
	f.defaults.Factory = f
	return f
}

// SetDefaultRunner installs the Runner used when a caller's Deps.Runner is
// unset, letting the orchestrator wire itself in as the "orchestrator"
// agent class's dependency after construction (it cannot be supplied to
// NewFactory since the Orchestrator itself depends on the Factory).
func (f *Factory) SetDefaultRunner(r Runner) {
	f.defaults.Runner = r
}

// Create resolves agentID's class and builds an instance, merging overrides
// onto the factory's defaults (overrides win when set).
func (f *Factory) Create(agentID string, overrides Deps) (Agent, error) {
	ctor, ok := f.registry.Get(agentID)
	if !ok {
		return nil, apperrors.New(apperrors.KindAgentNotFound, "AgentFactory", "Create",
			"no agent class registered for id "+agentID)
	}
	return ctor(f.mergeDeps(overrides))
}

func (f *Factory) mergeDeps(overrides Deps) Deps {
	merged := f.defaults
	if overrides.Store != nil {
		merged.Store = overrides.Store
	}
	if overrides.Providers != nil {
		merged.Providers = overrides.Providers
	}
	if overrides.ToolRegistry != nil {
		merged.ToolRegistry = overrides.ToolRegistry
	}
	if overrides.Executor != nil {
		merged.Executor = overrides.Executor
	}
	if overrides.Finder != nil {
		merged.Finder = overrides.Finder
	}
	if overrides.Runner != nil {
		merged.Runner = overrides.Runner
	}
	return merged
}

// DefaultProviderResolver builds the ProviderResolver a BaseAgent needs
// from a Config Store + Provider Registry: it resolves modelID (falling
// back to the store's configured default when empty) to a Provider via the
// model's declared provider id.
func DefaultProviderResolver(store *config.Store, providers *llms.Registry) ProviderResolver {
	return func(modelID string) (llms.Provider, string, error) {
		id := store.EffectiveModelID(modelID)
		if id == "" {
			id = store.DefaultModelID()
		}
		model, err := store.Model(id)
		if err != nil {
			return nil, "", err
		}
		provider, err := providers.Resolve(model.Provider)
		if err != nil {
			return nil, "", err
		}
		return provider, id, nil
	}
}

// RegisterBuiltins registers the spec §4.11 built-in agent classes:
// base, coding, listener, tool_finder, and orchestrator. Callers add
// domain-specific agent classes with Registry.Register directly.
func RegisterBuiltins(r *Registry) {
	r.Register("base", func(d Deps) (Agent, error) {
		desc, _ := d.Store.Agent("base")
		return NewBaseAgent("base", desc.Description, desc.DefaultModelID, desc.SystemPrompt,
			DefaultProviderResolver(d.Store, d.Providers), d.ToolRegistry, d.Executor), nil
	})

	r.Register("coding", func(d Deps) (Agent, error) {
		desc, _ := d.Store.Agent("coding")
		return NewCodingAssistantAgent("coding", desc.DefaultModelID, DefaultProviderResolver(d.Store, d.Providers),
			d.ToolRegistry, d.Executor), nil
	})

	r.Register("listener", func(d Deps) (Agent, error) {
		desc, _ := d.Store.Agent("listener")
		return NewListenerAgent("listener", desc.DefaultModelID, DefaultProviderResolver(d.Store, d.Providers),
			d.ToolRegistry, d.Executor), nil
	})

	// tool_finder needs a cross-reference to the shared ToolRegistry/Finder
	// rather than a model/system-prompt pair (spec §4.10 "special
	// constructor paths").
	r.Register("tool_finder", func(d Deps) (Agent, error) {
		if d.Finder == nil {
			return nil, apperrors.New(apperrors.KindAgentProcessingFailed, "AgentFactory", "Create",
				"tool_finder agent requires a tool.Finder dependency")
		}
		return NewToolFinderAgent("tool_finder", d.Finder), nil
	})

	// orchestrator needs a cross-reference to the Registry/Factory pair so
	// it can recursively dispatch to other agents (spec §4.10).
	r.Register("orchestrator", func(d Deps) (Agent, error) {
		if d.Runner == nil {
			return nil, apperrors.New(apperrors.KindAgentProcessingFailed, "AgentFactory", "Create",
				"orchestrator agent requires a Runner dependency")
		}
		return NewOrchestratorAgent("orchestrator", d.Runner), nil
	})
}
