package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentmesh/orchestrator/pkg/llms"
)

// ScoredResponse pairs an agent's Response with its classification
// confidence and originating agent id, the unit aggregate_responses
// consumes (spec §4.11 ResponseAggregator).
type ScoredResponse struct {
	AgentID    string
	Confidence float64
	Response   Response
}

// Aggregator implements spec §4.11's ResponseAggregator.
// aggregate_responses: it merges concurrent agent output into one Response,
// falling back to the best single response if the merge itself fails.
type Aggregator struct {
	provider llms.Provider
	model    string
}

func NewAggregator(provider llms.Provider, model string) *Aggregator {
	return &Aggregator{provider: provider, model: model}
}

// Aggregate implements the three cases from spec §4.11.
func (a *Aggregator) Aggregate(ctx context.Context, responses []ScoredResponse, originalRequest string) Response {
	switch len(responses) {
	case 0:
		return Response{Content: "No agents were able to process your request.", Status: StatusError}
	case 1:
		r := responses[0]
		resp := r.Response
		resp.ContributingAgents = []string{r.AgentID}
		return resp
	}

	prompt := buildAggregationPrompt(responses, originalRequest)
	reply, err := a.provider.Request(ctx, []llms.Message{{Role: llms.RoleUser, Content: prompt}}, llms.RequestOptions{Model: a.model})
	if err != nil {
		return fallback(responses, err)
	}

	return Response{
		Content:            reply.Content,
		Status:             StatusSuccess,
		ContributingAgents: agentIDs(responses),
	}
}

// fallback returns the highest-confidence response marked partial, per
// spec §4.11: "on aggregation failure, fall back to the highest-confidence
// response and mark status=partial".
func fallback(responses []ScoredResponse, aggErr error) Response {
	best := responses[0]
	for _, r := range responses[1:] {
		if r.Confidence > best.Confidence {
			best = r
		}
	}

	resp := best.Response
	resp.Status = StatusPartial
	resp.ContributingAgents = []string{best.AgentID}
	if resp.Metadata == nil {
		resp.Metadata = map[string]any{}
	}
	resp.Metadata["note"] = fmt.Sprintf("response aggregation failed (%v); returning highest-confidence agent response", aggErr)
	return resp
}

func buildAggregationPrompt(responses []ScoredResponse, originalRequest string) string {
	var b strings.Builder
	b.WriteString("Original request:\n")
	b.WriteString(originalRequest)
	b.WriteString("\n\nMerge the following agent responses into one coherent reply:\n")
	for i, r := range responses {
		fmt.Fprintf(&b, "\n--- Response %d (%s, confidence=%.2f, status=%s) ---\n", i+1, r.AgentID, r.Confidence, r.Response.Status)
		b.WriteString(r.Response.Content)
		b.WriteString("\n")
	}
	return b.String()
}

func agentIDs(responses []ScoredResponse) []string {
	out := make([]string, len(responses))
	for i, r := range responses {
		out[i] = r.AgentID
	}
	return out
}
