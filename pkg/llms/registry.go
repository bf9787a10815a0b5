package llms

import (
	"fmt"

	"github.com/agentmesh/orchestrator/pkg/registry"
)

// Registry holds constructed Provider instances keyed by provider id
// (spec §6 `providers.<id>`).
type Registry struct {
	*registry.BaseRegistry[Provider]
}

func NewRegistry() *Registry {
	return &Registry{BaseRegistry: registry.New[Provider]()}
}

// Resolve looks up a provider by id, returning a descriptive error if
// absent.
func (r *Registry) Resolve(id string) (Provider, error) {
	p, ok := r.Get(id)
	if !ok {
		return nil, fmt.Errorf("llms: provider %q is not registered", id)
	}
	return p, nil
}
