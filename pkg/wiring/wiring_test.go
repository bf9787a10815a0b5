package wiring

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testYAML = `
models:
  gpt-4o-mini:
    model_id: gpt-4o-mini
    provider: openai
    quality: MEDIUM
    speed: FAST
    privacy: EXTERNAL
    max_tokens: 4096
    temperature: 0.7
    cost: {input_per_token: 0, output_per_token: 0, minimum: 0}
    use_cases: [CHAT]
providers:
  openai:
    api_key_env: WIRING_TEST_OPENAI_KEY
    timeout_seconds: 30
  ollama:
    api_key_env: WIRING_TEST_OLLAMA_KEY
    base_url: http://localhost:11434
    timeout_seconds: 60
agents:
  base:
    id: base
    description: general assistant
    default_model: gpt-4o-mini
use_cases:
  default_model: gpt-4o-mini
  CHAT: {quality: MEDIUM, speed: FAST}
tools:
  categories: {}
`

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testYAML), 0o644))
	return path
}

func TestBuild_succeedsWithNoCredentials(t *testing.T) {
	path := writeConfig(t)
	rt, err := Build(context.Background(), Options{ConfigPath: path, MetricsPath: ""})
	require.NoError(t, err)
	require.NotNil(t, rt.Orchestrator)

	// ollama requires no credentials, so it is always constructed even
	// without an API key; openai is skipped since its env var is unset.
	_, err = rt.Providers.Resolve("ollama")
	require.NoError(t, err)
	_, err = rt.Providers.Resolve("openai")
	require.Error(t, err)
}

func TestBuild_wiresOpenAIWhenCredentialPresent(t *testing.T) {
	t.Setenv("WIRING_TEST_OPENAI_KEY", "sk-test")
	path := writeConfig(t)
	rt, err := Build(context.Background(), Options{ConfigPath: path, MetricsPath: ""})
	require.NoError(t, err)

	_, err = rt.Providers.Resolve("openai")
	require.NoError(t, err)
}

func TestBuild_missingConfigFileErrors(t *testing.T) {
	_, err := Build(context.Background(), Options{ConfigPath: "/nonexistent/config.yaml"})
	require.Error(t, err)
}
