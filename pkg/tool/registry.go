package tool

import (
	"github.com/agentmesh/orchestrator/pkg/apperrors"
	"github.com/agentmesh/orchestrator/pkg/registry"
)

// Registry is the append-mostly Tool Registry from spec §4.3.
type Registry struct {
	*registry.BaseRegistry[Definition]
}

func NewRegistry() *Registry {
	return &Registry{BaseRegistry: registry.New[Definition]()}
}

// Register adds a tool, rejecting duplicate names with KindToolAlreadyRegistered.
func (r *Registry) Register(def Definition) error {
	if err := r.BaseRegistry.Register(def.Name, def); err != nil {
		return apperrors.Wrap(apperrors.KindToolAlreadyRegistered, "ToolRegistry", "Register",
			"tool "+def.Name+" is already registered", err)
	}
	return nil
}

// FormatForProvider emits the tool catalog in a provider's native shape
// (spec §4.3). With subset nil, the full catalog is returned ordered
// lexicographically by name (registry.BaseRegistry.List's order); with
// subset given, output follows subset's order instead. Unknown providers
// return an empty list.
func (r *Registry) FormatForProvider(providerID string, subset []string) []map[string]any {
	defs := r.selected(subset)

	switch providerID {
	case "openai":
		return formatOpenAI(defs)
	case "anthropic":
		return formatAnthropic(defs)
	case "gemini":
		return formatGemini(defs)
	default:
		return []map[string]any{}
	}
}

func (r *Registry) selected(subset []string) []Definition {
	if subset == nil {
		return r.List()
	}
	out := make([]Definition, 0, len(subset))
	for _, name := range subset {
		if def, ok := r.Get(name); ok {
			out = append(out, def)
		}
	}
	return out
}

func formatOpenAI(defs []Definition) []map[string]any {
	out := make([]map[string]any, 0, len(defs))
	for _, d := range defs {
		out = append(out, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        d.Name,
				"description": d.Description,
				"parameters":  d.ParametersSchema,
			},
		})
	}
	return out
}

func formatAnthropic(defs []Definition) []map[string]any {
	out := make([]map[string]any, 0, len(defs))
	for _, d := range defs {
		out = append(out, map[string]any{
			"name":         d.Name,
			"description":  d.Description,
			"input_schema": d.ParametersSchema,
		})
	}
	return out
}

func formatGemini(defs []Definition) []map[string]any {
	declarations := make([]map[string]any, 0, len(defs))
	for _, d := range defs {
		declarations = append(declarations, map[string]any{
			"name":        d.Name,
			"description": d.Description,
			"parameters":  d.ParametersSchema,
		})
	}
	if len(declarations) == 0 {
		return []map[string]any{}
	}
	return []map[string]any{{"function_declarations": declarations}}
}
