package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentmesh/orchestrator/pkg/config"
)

func TestDetectUseCase_explicitValidOverridesKeywords(t *testing.T) {
	require.Equal(t, config.UseCaseChat, DetectUseCase(config.UseCaseChat, "write a python function"))
}

func TestDetectUseCase_explicitInvalidFallsBackToKeywords(t *testing.T) {
	require.Equal(t, config.UseCaseCoding, DetectUseCase(config.UseCase("bogus"), "write a python function"))
}

func TestDetectUseCase_codingKeyword(t *testing.T) {
	require.Equal(t, config.UseCaseCoding, DetectUseCase("", "Write a Python function to check if a string is a palindrome"))
}

func TestDetectUseCase_solidityKeyword(t *testing.T) {
	require.Equal(t, config.UseCaseSolidityCoding, DetectUseCase("", "Write a simple ERC20 token contract in Solidity"))
}

func TestDetectUseCase_codingPrecedesSolidityWhenBothPresent(t *testing.T) {
	// "code" keywords are listed before "solidity" keywords (spec §4.12 step
	// 3: first match wins in the order listed).
	require.Equal(t, config.UseCaseCoding, DetectUseCase("", "fix a bug in my solidity function"))
}

func TestDetectUseCase_noKeywordMatchDefaultsToChat(t *testing.T) {
	require.Equal(t, config.UseCaseChat, DetectUseCase("", "how is your day going"))
}

func TestDetectUseCase_translationKeyword(t *testing.T) {
	require.Equal(t, config.UseCaseTranslation, DetectUseCase("", "please translate this paragraph to french"))
}
