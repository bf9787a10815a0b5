package config

import (
	"fmt"
	"sync/atomic"

	"github.com/agentmesh/orchestrator/pkg/apperrors"
)

// snapshot is an immutable point-in-time view of all five catalogs. Readers
// see either the old or the new snapshot, never a torn view, because Store
// only ever swaps the pointer (spec §4.1).
type snapshot struct {
	models    map[string]ModelConfig
	providers map[string]ProviderConfig
	agents    map[string]AgentDescriptor
	useCases  map[string]UseCaseConfig
	defaultModel string
	tools     map[string]ToolCatalogEntry // keyed by tool name, flattened across categories
}

// Store is the process-wide Config Store: it owns all *Config entities for
// the process lifetime (spec §3 "Ownership & lifecycle").
type Store struct {
	snap atomic.Pointer[snapshot]
	user atomic.Pointer[UserConfig]
}

// NewStore builds a Store from raw YAML bytes. An empty/nil UserConfig
// overlay may be supplied; pass nil to start without one.
func NewStore(yamlBytes []byte, user *UserConfig) (*Store, error) {
	snap, err := parseSnapshot(yamlBytes)
	if err != nil {
		return nil, err
	}
	s := &Store{}
	s.snap.Store(snap)
	if user == nil {
		user = &UserConfig{}
	}
	s.user.Store(user)
	return s, nil
}

// Reload atomically swaps the in-memory catalogs for the ones parsed from
// yamlBytes. Existing readers holding a prior snapshot are unaffected.
func (s *Store) Reload(yamlBytes []byte) error {
	snap, err := parseSnapshot(yamlBytes)
	if err != nil {
		return err
	}
	s.snap.Store(snap)
	return nil
}

// SetUserConfig replaces the overlay applied on top of the base catalogs.
func (s *Store) SetUserConfig(user UserConfig) {
	s.user.Store(&user)
}

// UserConfig returns the current overlay.
func (s *Store) UserConfig() UserConfig {
	return *s.user.Load()
}

func (s *Store) current() *snapshot {
	return s.snap.Load()
}

// Model returns the base catalog entry for id. The UserConfig overlay is
// not consulted here; EffectiveModelID is where UserConfig.Model applies.
func (s *Store) Model(id string) (ModelConfig, error) {
	m, ok := s.current().models[id]
	if !ok {
		return ModelConfig{}, apperrors.New(apperrors.KindConfigNotFound, "ConfigStore", "Model",
			fmt.Sprintf("model %q not found", id))
	}
	return m, nil
}

// Models returns all known models.
func (s *Store) Models() map[string]ModelConfig {
	return copyMap(s.current().models)
}

// EffectiveModelID resolves the model id to use: the UserConfig override if
// set, else the provided default.
func (s *Store) EffectiveModelID(fallback string) string {
	if uc := s.UserConfig(); uc.Model != "" {
		return uc.Model
	}
	return fallback
}

func (s *Store) Provider(id string) (ProviderConfig, error) {
	p, ok := s.current().providers[id]
	if !ok {
		return ProviderConfig{}, apperrors.New(apperrors.KindConfigNotFound, "ConfigStore", "Provider",
			fmt.Sprintf("provider %q not found", id))
	}
	return p, nil
}

// Providers returns all known providers.
func (s *Store) Providers() map[string]ProviderConfig {
	return copyMap(s.current().providers)
}

func (s *Store) Agent(id string) (AgentDescriptor, error) {
	a, ok := s.current().agents[id]
	if !ok {
		return AgentDescriptor{}, apperrors.New(apperrors.KindConfigNotFound, "ConfigStore", "Agent",
			fmt.Sprintf("agent %q not found", id))
	}
	return a, nil
}

func (s *Store) Agents() map[string]AgentDescriptor {
	return copyMap(s.current().agents)
}

func (s *Store) UseCase(id UseCase) (UseCaseConfig, error) {
	uc, ok := s.current().useCases[string(id)]
	if !ok {
		return UseCaseConfig{}, apperrors.New(apperrors.KindConfigNotFound, "ConfigStore", "UseCase",
			fmt.Sprintf("use case %q not found", id))
	}
	return uc, nil
}

// EffectiveUseCase resolves the UserConfig override if set, else fallback.
func (s *Store) EffectiveUseCase(fallback UseCase) UseCase {
	if uc := s.UserConfig(); uc.UseCase != "" {
		return uc.UseCase
	}
	return fallback
}

func (s *Store) DefaultModelID() string {
	return s.current().defaultModel
}

func (s *Store) Tool(name string) (ToolCatalogEntry, error) {
	t, ok := s.current().tools[name]
	if !ok {
		return ToolCatalogEntry{}, apperrors.New(apperrors.KindConfigNotFound, "ConfigStore", "Tool",
			fmt.Sprintf("tool %q not found", name))
	}
	return t, nil
}

func (s *Store) Tools() map[string]ToolCatalogEntry {
	return copyMap(s.current().tools)
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
