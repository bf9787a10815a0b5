// Package agent implements the Agent Registry/Factory and the built-in
// agent set (spec §4.10-4.11): a common request/response contract, a
// registry of agent classes keyed by id, a factory that resolves default
// collaborators, and a response aggregator that merges concurrent agent
// output into one reply.
package agent

import (
	"context"

	"github.com/agentmesh/orchestrator/pkg/config"
)

// Status is an AgentResponse's outcome classification (spec §4.11).
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusError   Status = "error"
)

// Response is the uniform shape every agent returns (spec §4.11
// AgentResponse).
type Response struct {
	Content            string
	Status             Status
	Metadata           map[string]any
	ContributingAgents []string
	Error              string
}

// ToolExecution records one tool call a BaseAgent actually ran while
// answering a request, surfaced via Response.Metadata["tool_executions"] so
// the orchestrator (which owns the Metrics Service) can call
// metrics.Service.TrackToolUsage per execution without pkg/agent importing
// pkg/metrics.
type ToolExecution struct {
	ToolID     string
	DurationMS int64
	Success    bool
}

// Request is the uniform input every agent accepts. Model and SystemPrompt,
// when set, override the agent's configured defaults for this call only
// (spec §4.11 BaseAgent.process_request).
type Request struct {
	RequestID     string
	Prompt        string
	Model         string
	SystemPrompt  string
	UseCase       config.UseCase
	RelevantTools []string
	Context       map[string]any
	Metadata      map[string]any
}

// Clone returns a deep-enough copy of r for an agent to mutate without
// affecting the caller's copy (spec §4.11: "copies the request").
func (r Request) Clone() Request {
	out := r
	if r.RelevantTools != nil {
		out.RelevantTools = append([]string(nil), r.RelevantTools...)
	}
	if r.Context != nil {
		out.Context = make(map[string]any, len(r.Context))
		for k, v := range r.Context {
			out.Context[k] = v
		}
	}
	if r.Metadata != nil {
		out.Metadata = make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// Agent is the contract every registrable agent implements (spec §4.11).
type Agent interface {
	ProcessRequest(ctx context.Context, request Request) Response
	CanHandle(ctx context.Context, request Request) float64
}
