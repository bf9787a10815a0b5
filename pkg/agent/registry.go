package agent

import "sync"

// Constructor builds an Agent instance from deps. Registered under an
// agent id, it is the "agent_class" spec §4.10 refers to.
type Constructor func(deps Deps) (Agent, error)

// Registry maps agent id to Constructor. Unlike pkg/registry.BaseRegistry,
// Register here is idempotent: re-registering an id already present is a
// no-op rather than an error (spec §4.10: "Duplicate registration is a
// no-op (idempotent)").
type Registry struct {
	mu      sync.RWMutex
	classes map[string]Constructor
}

func NewRegistry() *Registry {
	return &Registry{classes: make(map[string]Constructor)}
}

// Register adds ctor under agentID if no class is registered under that id
// yet; otherwise it leaves the existing registration untouched.
func (r *Registry) Register(agentID string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.classes[agentID]; exists {
		return
	}
	r.classes[agentID] = ctor
}

func (r *Registry) Get(agentID string) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctor, ok := r.classes[agentID]
	return ctor, ok
}

// IDs returns the registered agent ids, in no particular order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.classes))
	for id := range r.classes {
		ids = append(ids, id)
	}
	return ids
}
