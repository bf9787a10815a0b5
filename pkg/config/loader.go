package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/agentmesh/orchestrator/pkg/apperrors"
	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} occurrences with the environment variable's
// value, leaving the placeholder untouched if the variable is unset. This
// matches the teacher's config/env.go convention of deferring "is it set"
// checks to the consumer (e.g. ProviderConfig.APIKeyEnv resolution).
func expandEnv(raw []byte) []byte {
	return envVarPattern.ReplaceAllFunc(raw, func(m []byte) []byte {
		groups := envVarPattern.FindSubmatch(m)
		name := string(groups[1])
		if v, ok := os.LookupEnv(name); ok {
			return []byte(v)
		}
		return m
	})
}

func parseSnapshot(raw []byte) (*snapshot, error) {
	expanded := expandEnv(raw)

	var doc document
	if err := yaml.Unmarshal(expanded, &doc); err != nil {
		return nil, apperrors.Wrap(apperrors.KindConfigInvalid, "ConfigStore", "Reload", "invalid YAML document", err)
	}

	snap := &snapshot{
		models:       make(map[string]ModelConfig, len(doc.Models)),
		providers:    make(map[string]ProviderConfig, len(doc.Providers)),
		agents:       make(map[string]AgentDescriptor, len(doc.Agents)),
		useCases:     make(map[string]UseCaseConfig, len(doc.UseCases.Entries)),
		defaultModel: doc.UseCases.DefaultModel,
		tools:        make(map[string]ToolCatalogEntry),
	}

	seenModelIDs := make(map[string]string) // model_id -> config key, enforces uniqueness (spec §9)
	for key, m := range doc.Models {
		if m.ModelID == "" {
			m.ModelID = key
		}
		if other, dup := seenModelIDs[m.ModelID]; dup && other != key {
			return nil, apperrors.New(apperrors.KindConfigInvalid, "ConfigStore", "Reload",
				fmt.Sprintf("duplicate model_id %q used by both %q and %q", m.ModelID, other, key))
		}
		seenModelIDs[m.ModelID] = key
		snap.models[key] = m
	}

	for key, p := range doc.Providers {
		snap.providers[key] = p
	}

	for key, a := range doc.Agents {
		if a.ID == "" {
			a.ID = key
		}
		snap.agents[key] = a
	}

	for key, uc := range doc.UseCases.Entries {
		if uc.Quality == "" || uc.Speed == "" {
			return nil, apperrors.New(apperrors.KindConfigInvalid, "ConfigStore", "Reload",
				fmt.Sprintf("use case %q must set quality and speed", key))
		}
		snap.useCases[key] = uc
	}

	for category, tools := range doc.Tools.Categories {
		for name, entry := range tools {
			entry.Category = category
			entry.Name = name
			if _, dup := snap.tools[name]; dup {
				return nil, apperrors.New(apperrors.KindConfigInvalid, "ConfigStore", "Reload",
					fmt.Sprintf("duplicate tool name %q across categories", name))
			}
			snap.tools[name] = entry
		}
	}

	return snap, nil
}

// Load reads and parses a Config Store document from a file path.
func Load(path string, user *UserConfig) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindConfigInvalid, "ConfigStore", "Load",
			fmt.Sprintf("reading %s", path), err)
	}
	return NewStore(raw, user)
}

// ReloadFromFile re-reads path and atomically swaps the Store's snapshot.
func (s *Store) ReloadFromFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return apperrors.Wrap(apperrors.KindConfigInvalid, "ConfigStore", "Reload",
			fmt.Sprintf("reading %s", path), err)
	}
	return s.Reload(raw)
}
