// Package analyzer implements the Request Analyzer (spec §4.8): an
// LLM-classification call with a regex fallback, used to rank which agents
// and tools are relevant to a request.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/agentmesh/orchestrator/pkg/llms"
)

const defaultConfidenceThreshold = 0.6

// AgentCandidate is one entry in the agent menu presented to the classifier.
type AgentCandidate struct {
	ID          string
	Description string
}

// Scored is one (id, confidence) classification result.
type Scored struct {
	ID         string
	Confidence float64
}

// Analyzer classifies a request against a menu of agents or tools using an
// LLM, with a regex-extraction fallback on parse failure (spec §4.8).
type Analyzer struct {
	provider  llms.Provider
	model     string
	threshold float64
}

func New(provider llms.Provider, model string) *Analyzer {
	return &Analyzer{provider: provider, model: model, threshold: defaultConfidenceThreshold}
}

// WithThreshold returns a copy of a using the given confidence threshold.
func (a *Analyzer) WithThreshold(threshold float64) *Analyzer {
	clone := *a
	clone.threshold = threshold
	return &clone
}

// pairRegex extracts `"name", 0.NN` pairs from a malformed reply (spec §4.8
// step 3 fallback).
var pairRegex = regexp.MustCompile(`"([^"]+)"\s*,\s*(0\.\d+)`)

// AnalyzeRequest classifies request against candidates, returning agent ids
// ordered by confidence descending (ties broken by original menu order).
// Errors degrade to an empty list rather than propagating (spec §4.8).
func (a *Analyzer) AnalyzeRequest(ctx context.Context, request string, candidates []AgentCandidate) []Scored {
	if len(candidates) == 0 {
		return nil
	}

	prompt := buildAgentMenuPrompt(request, candidates)
	reply, err := a.provider.Request(ctx, []llms.Message{{Role: llms.RoleUser, Content: prompt}}, llms.RequestOptions{Model: a.model})
	if err != nil {
		return nil
	}

	pairs := parsePairs(reply.Content)
	validIDs := make(map[string]bool, len(candidates))
	order := make(map[string]int, len(candidates))
	for i, c := range candidates {
		validIDs[c.ID] = true
		order[c.ID] = i
	}

	filtered := make([]Scored, 0, len(pairs))
	for _, p := range pairs {
		if !validIDs[p.ID] || p.Confidence < a.threshold {
			continue
		}
		filtered = append(filtered, p)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Confidence != filtered[j].Confidence {
			return filtered[i].Confidence > filtered[j].Confidence
		}
		return order[filtered[i].ID] < order[filtered[j].ID]
	})
	return filtered
}

// AnalyzeTools mirrors AnalyzeRequest but expects a bare JSON array of tool
// id strings rather than confidence pairs (spec §4.8).
func (a *Analyzer) AnalyzeTools(ctx context.Context, request string, toolIDs []string) []string {
	if len(toolIDs) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("Available tools: ")
	b.WriteString(strings.Join(toolIDs, ", "))
	b.WriteString("\n\nReturn a JSON array of the tool ids relevant to this request:\n")
	b.WriteString(request)

	reply, err := a.provider.Request(ctx, []llms.Message{{Role: llms.RoleUser, Content: b.String()}}, llms.RequestOptions{Model: a.model})
	if err != nil {
		return nil
	}

	var ids []string
	if err := json.Unmarshal([]byte(strings.TrimSpace(reply.Content)), &ids); err != nil {
		return nil
	}

	valid := make(map[string]bool, len(toolIDs))
	for _, id := range toolIDs {
		valid[id] = true
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if valid[id] {
			out = append(out, id)
		}
	}
	return out
}

func buildAgentMenuPrompt(request string, candidates []AgentCandidate) string {
	var b strings.Builder
	b.WriteString("Available agents:\n")
	for _, c := range candidates {
		fmt.Fprintf(&b, "%s: %s\n", c.ID, c.Description)
	}
	b.WriteString("\nReturn a JSON array of [agent_id, confidence] pairs (confidence in [0,1]) for the agents relevant to this request:\n")
	b.WriteString(request)
	return b.String()
}

func parsePairs(reply string) []Scored {
	trimmed := strings.TrimSpace(reply)

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &raw); err == nil {
		out := make([]Scored, 0, len(raw))
		for _, item := range raw {
			var pair []json.RawMessage
			if err := json.Unmarshal(item, &pair); err != nil || len(pair) != 2 {
				continue
			}
			var id string
			var confidence float64
			if err := json.Unmarshal(pair[0], &id); err != nil {
				continue
			}
			if err := json.Unmarshal(pair[1], &confidence); err != nil {
				continue
			}
			out = append(out, Scored{ID: id, Confidence: confidence})
		}
		return out
	}

	// Parse failure: fall back to regex extraction (spec §4.8 step 3).
	matches := pairRegex.FindAllStringSubmatch(trimmed, -1)
	out := make([]Scored, 0, len(matches))
	for _, m := range matches {
		confidence, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		out = append(out, Scored{ID: m[1], Confidence: confidence})
	}
	return out
}
