package orchestrator

import (
	"strings"

	"github.com/agentmesh/orchestrator/pkg/config"
)

// useCaseKeywords lists, in precedence order, the keyword sets that detect
// a use case from a lowercased prompt (spec §4.12 step 3: "First match
// wins in the order listed"). Order matches the spec's own listing: code,
// solidity, translation, summarization, data-analysis, web-analysis,
// content-generation, image-generation.
var useCaseKeywords = []struct {
	useCase  config.UseCase
	keywords []string
}{
	{config.UseCaseCoding, []string{"code", "function", "bug", "refactor", "compile", "python", "golang", "javascript", "typescript", "algorithm"}},
	{config.UseCaseSolidityCoding, []string{"solidity", "smart contract", "erc20", "erc721", "ethereum", "gas fee"}},
	{config.UseCaseTranslation, []string{"translate", "translation"}},
	{config.UseCaseSummarization, []string{"summarize", "summary", "tl;dr", "condense"}},
	{config.UseCaseDataAnalysis, []string{"analyze the data", "dataset", "data analysis", "csv", "pandas", "statistics"}},
	{config.UseCaseWebAnalysis, []string{"this website", "web page", "webpage", "scrape", "this url"}},
	{config.UseCaseContentGeneration, []string{"write a blog", "write an article", "marketing copy", "write a story"}},
	{config.UseCaseImageGeneration, []string{"generate an image", "image of", "picture of", "draw a"}},
}

// DetectUseCase implements spec §4.12 step 3: if explicit is a known,
// non-empty use case it wins outright; otherwise the lowercased prompt is
// scanned against useCaseKeywords in order, defaulting to CHAT.
func DetectUseCase(explicit config.UseCase, prompt string) config.UseCase {
	if explicit != "" {
		for _, uc := range knownUseCases {
			if explicit == uc {
				return explicit
			}
		}
	}

	lower := strings.ToLower(prompt)
	for _, entry := range useCaseKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.useCase
			}
		}
	}
	return config.UseCaseChat
}

var knownUseCases = []config.UseCase{
	config.UseCaseChat, config.UseCaseCoding, config.UseCaseSolidityCoding,
	config.UseCaseTranslation, config.UseCaseSummarization, config.UseCaseDataAnalysis,
	config.UseCaseWebAnalysis, config.UseCaseContentGeneration, config.UseCaseImageGeneration,
}
