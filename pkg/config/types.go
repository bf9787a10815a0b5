// Package config implements the Config Store (spec §4.1): immutable
// model/provider/agent/use-case/tool catalogs loaded from a YAML document,
// with a UserConfig overlay consulted before the base catalogs.
package config

// Quality is a coarse model-quality tier (spec §3 ModelConfig).
type Quality string

const (
	QualityLow    Quality = "LOW"
	QualityMedium Quality = "MEDIUM"
	QualityHigh   Quality = "HIGH"
)

// Speed is a coarse model-latency tier.
type Speed string

const (
	SpeedFast     Speed = "FAST"
	SpeedStandard Speed = "STANDARD"
	SpeedSlow     Speed = "SLOW"
)

// Privacy indicates whether a model call leaves the local network.
type Privacy string

const (
	PrivacyLocal    Privacy = "LOCAL"
	PrivacyExternal Privacy = "EXTERNAL"
)

// UseCase is a coarse request category driving model-selection defaults
// (spec GLOSSARY).
type UseCase string

const (
	UseCaseChat             UseCase = "CHAT"
	UseCaseCoding           UseCase = "CODING"
	UseCaseSolidityCoding   UseCase = "SOLIDITY_CODING"
	UseCaseTranslation      UseCase = "TRANSLATION"
	UseCaseSummarization    UseCase = "SUMMARIZATION"
	UseCaseDataAnalysis     UseCase = "DATA_ANALYSIS"
	UseCaseWebAnalysis      UseCase = "WEB_ANALYSIS"
	UseCaseContentGeneration UseCase = "CONTENT_GENERATION"
	UseCaseImageGeneration  UseCase = "IMAGE_GENERATION"
)

// Cost holds per-token pricing for a model, in an arbitrary currency unit.
type Cost struct {
	InputPerToken  float64 `yaml:"input_per_token"`
	OutputPerToken float64 `yaml:"output_per_token"`
	Minimum        float64 `yaml:"minimum"`
}

// Estimate returns the estimated cost of a call using inTokens/outTokens,
// floored by Minimum (spec §4.9 step 3).
func (c Cost) Estimate(inTokens, outTokens int) float64 {
	cost := float64(inTokens)*c.InputPerToken + float64(outTokens)*c.OutputPerToken
	if cost < c.Minimum {
		return c.Minimum
	}
	return cost
}

// ModelConfig describes one concrete model offered by a provider (spec §3).
type ModelConfig struct {
	ModelID     string            `yaml:"model_id"`
	Provider    string            `yaml:"provider"`
	Quality     Quality           `yaml:"quality"`
	Speed       Speed             `yaml:"speed"`
	Privacy     Privacy           `yaml:"privacy"`
	MaxTokens   int               `yaml:"max_tokens"`
	Temperature float64           `yaml:"temperature"`
	Cost        Cost              `yaml:"cost"`
	UseCases    []UseCase         `yaml:"use_cases"`
}

// SupportsUseCase reports whether this model declares uc among its use
// cases.
func (m ModelConfig) SupportsUseCase(uc UseCase) bool {
	for _, u := range m.UseCases {
		if u == uc {
			return true
		}
	}
	return false
}

// ProviderConfig describes how to reach one LLM backend (spec §3).
type ProviderConfig struct {
	APIKeyEnv      string `yaml:"api_key_env"`
	BaseURL        string `yaml:"base_url,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// UseCaseConfig holds the default quality/speed for a use case (spec §3).
type UseCaseConfig struct {
	Quality Quality `yaml:"quality"`
	Speed   Speed   `yaml:"speed"`
}

// AgentDescriptor describes a registrable agent class (spec §3).
type AgentDescriptor struct {
	ID              string `yaml:"id"`
	Description     string `yaml:"description"`
	DefaultModelID  string `yaml:"default_model"`
	SystemPrompt    string `yaml:"system_prompt,omitempty"`
}

// ToolSchema is the JSON-schema object describing a tool's parameters
// (spec §3 ToolDefinition.parameters_schema). Kept as a generic map since
// the logical schema, not its Go representation, is what spec.md pins down.
type ToolSchema = map[string]any

// ToolCatalogEntry describes one tool entry under `tools.categories.<cat>`
// (spec §6).
type ToolCatalogEntry struct {
	Category         string     `yaml:"-"`
	Name             string     `yaml:"-"`
	Description      string     `yaml:"description"`
	ParametersSchema ToolSchema `yaml:"parameters_schema"`
}

// UserConfig is the overlay applied after base load (spec §4.1). Accessors
// consult it first; it never mutates base entries.
type UserConfig struct {
	Model         string  `yaml:"model,omitempty"`
	UseCase       UseCase `yaml:"use_case,omitempty"`
	Temperature   *float64 `yaml:"temperature,omitempty"`
	SystemPrompt  string  `yaml:"system_prompt,omitempty"`
	ShowThinking  *bool   `yaml:"show_thinking,omitempty"`
}

// document is the on-disk logical schema (spec §6), encoding-agnostic in
// principle but expressed here as the YAML shape the loader understands.
type document struct {
	Models    map[string]ModelConfig    `yaml:"models"`
	Providers map[string]ProviderConfig `yaml:"providers"`
	Agents    map[string]AgentDescriptor `yaml:"agents"`
	UseCases  struct {
		DefaultModel string                   `yaml:"default_model"`
		Entries      map[string]UseCaseConfig `yaml:",inline"`
	} `yaml:"use_cases"`
	Tools struct {
		Categories map[string]map[string]ToolCatalogEntry `yaml:"categories"`
	} `yaml:"tools"`
}
