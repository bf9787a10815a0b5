// Package selector implements the Model Selector (spec §4.9): a pure
// function over a Config Store snapshot and the caller's quality/speed/
// privacy/cost preferences.
package selector

import (
	"sort"

	"github.com/agentmesh/orchestrator/pkg/apperrors"
	"github.com/agentmesh/orchestrator/pkg/config"
)

// Criteria are the selection inputs, any of which may be left zero to take
// the use case's defaults (spec §4.9 step 1).
type Criteria struct {
	UseCase         config.UseCase
	Quality         config.Quality
	Speed           config.Speed
	Privacy         config.Privacy
	MaxCost         *float64
	EstimatedTokensIn  int
	EstimatedTokensOut int
}

var qualityWeight = map[config.Quality]int{
	config.QualityHigh:   3,
	config.QualityMedium: 2,
	config.QualityLow:    1,
}

var speedWeight = map[config.Speed]int{
	config.SpeedFast:     3,
	config.SpeedStandard: 2,
	config.SpeedSlow:     1,
}

// Select implements spec §4.9's algorithm. It is a pure function of its
// inputs: the same Store snapshot and Criteria always yield the same model
// id (spec §8 testable property).
func Select(store *config.Store, criteria Criteria) (config.ModelConfig, string, error) {
	resolved := resolveDefaults(store, criteria)

	candidates := make([]config.ModelConfig, 0)
	for _, m := range store.Models() {
		if m.Quality != resolved.Quality || m.Speed != resolved.Speed {
			continue
		}
		if resolved.Privacy != "" && m.Privacy != resolved.Privacy {
			continue
		}
		if resolved.MaxCost != nil {
			cost := m.Cost.Estimate(resolved.EstimatedTokensIn, resolved.EstimatedTokensOut)
			if cost > *resolved.MaxCost {
				continue
			}
		}
		candidates = append(candidates, m)
	}

	if len(candidates) == 0 {
		return config.ModelConfig{}, "", apperrors.New(apperrors.KindNoSuitableModel, "ModelSelector", "Select",
			"no model satisfies the given criteria")
	}

	// Map iteration order is randomized, so ties must break on a stable key
	// (ModelID) to keep Select a pure function of its inputs (spec §8).
	sort.Slice(candidates, func(i, j int) bool {
		ri, rj := rank(candidates[i]), rank(candidates[j])
		if ri != rj {
			return ri > rj
		}
		return candidates[i].ModelID < candidates[j].ModelID
	})

	best := candidates[0]
	return best, best.ModelID, nil
}

func rank(m config.ModelConfig) int {
	return qualityWeight[m.Quality]*10 + speedWeight[m.Speed]
}

func resolveDefaults(store *config.Store, criteria Criteria) Criteria {
	resolved := criteria
	if uc, err := store.UseCase(criteria.UseCase); err == nil {
		if resolved.Quality == "" {
			resolved.Quality = uc.Quality
		}
		if resolved.Speed == "" {
			resolved.Speed = uc.Speed
		}
	}
	return resolved
}

// systemPrompts is the fixed built-in table backing GetSystemPrompt (spec §4.9).
var systemPrompts = map[config.UseCase]string{
	config.UseCaseChat:              "You are a helpful, conversational assistant.",
	config.UseCaseCoding:            "You are an expert software engineer. Write clean, correct, idiomatic code.",
	config.UseCaseSolidityCoding:    "You are an expert Solidity smart-contract engineer. Follow current security best practices.",
	config.UseCaseTranslation:       "You are a precise translator. Preserve meaning, tone, and formatting.",
	config.UseCaseSummarization:     "You summarize content accurately and concisely, preserving key facts.",
	config.UseCaseDataAnalysis:      "You are a data analyst. Reason carefully about the data before concluding.",
	config.UseCaseWebAnalysis:       "You analyze web content and extract the information the user needs.",
	config.UseCaseContentGeneration: "You generate high-quality written content tailored to the requested format.",
	config.UseCaseImageGeneration:   "You produce detailed, well-structured image-generation prompts.",
}

// GetSystemPrompt returns the fixed system prompt for useCase, or the chat
// default if useCase is unrecognized.
func GetSystemPrompt(useCase config.UseCase) string {
	if prompt, ok := systemPrompts[useCase]; ok {
		return prompt
	}
	return systemPrompts[config.UseCaseChat]
}
