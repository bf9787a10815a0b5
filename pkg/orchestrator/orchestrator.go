// Package orchestrator implements the Orchestrator pipeline (spec §4.12):
// use-case detection, model selection, tool/agent discovery, bounded
// concurrent agent dispatch, and response aggregation, tying together
// every other package in the orchestration core.
package orchestrator

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agentmesh/orchestrator/pkg/agent"
	"github.com/agentmesh/orchestrator/pkg/analyzer"
	"github.com/agentmesh/orchestrator/pkg/config"
	"github.com/agentmesh/orchestrator/pkg/metrics"
	"github.com/agentmesh/orchestrator/pkg/selector"
	"github.com/agentmesh/orchestrator/pkg/tool"
)

const defaultMaxParallelAgents = 3

// reservedAgentIDs are built-in infrastructure agents never offered to the
// Request Analyzer as classification candidates.
var reservedAgentIDs = map[string]bool{"base": true, "tool_finder": true, "orchestrator": true}

// Orchestrator is the spec §4.12 pipeline, exposed as an agent.Runner so it
// can also be registered as the "orchestrator" agent class (spec §4.10).
type Orchestrator struct {
	Store             *config.Store
	Factory           *agent.Factory
	Finder            tool.Finder
	Analyzer          *analyzer.Analyzer
	Aggregator        *agent.Aggregator
	Metrics           *metrics.Service
	MaxParallelAgents int
}

// New builds an Orchestrator, defaulting MaxParallelAgents to 3 (spec
// §4.12 step 8) when unset.
func New(store *config.Store, factory *agent.Factory, finder tool.Finder, an *analyzer.Analyzer, agg *agent.Aggregator, m *metrics.Service, maxParallelAgents int) *Orchestrator {
	if maxParallelAgents <= 0 {
		maxParallelAgents = defaultMaxParallelAgents
	}
	return &Orchestrator{
		Store: store, Factory: factory, Finder: finder, Analyzer: an,
		Aggregator: agg, Metrics: m, MaxParallelAgents: maxParallelAgents,
	}
}

// dispatched is one agent's classification result paired with its final
// response, used to rebuild aggregation input in confidence order after
// concurrent dispatch (spec §4.12: "ordering of responses passed to
// aggregation is by agent confidence, not arrival order").
type dispatched struct {
	agentID    string
	confidence float64
	response   agent.Response
}

// Run executes the full pipeline for one request (spec §4.12 steps 1-10).
func (o *Orchestrator) Run(ctx context.Context, req agent.Request) agent.Response {
	requestID := req.RequestID
	requestID = o.Metrics.StartRequestTracking(requestID, req.Prompt, req.Metadata)
	req.RequestID = requestID

	start := time.Now()
	final := o.run(ctx, req)

	if final.Metadata == nil {
		final.Metadata = map[string]any{}
	}
	final.Metadata["request_id"] = requestID
	final.Metadata["duration_ms"] = time.Since(start).Milliseconds()

	_ = o.Metrics.EndRequestTracking(requestID, final.Status != agent.StatusError, final.Error)
	return final
}

func (o *Orchestrator) run(ctx context.Context, req agent.Request) agent.Response {
	// Step 3: use-case detection.
	useCase := DetectUseCase(req.UseCase, req.Prompt)
	req.UseCase = useCase

	// Step 4: model selection.
	_, modelID, err := selector.Select(o.Store, selector.Criteria{UseCase: useCase})
	if err == nil {
		req.Model = modelID
		req.SystemPrompt = selector.GetSystemPrompt(useCase)
		_ = o.Metrics.TrackModelUsage(req.RequestID, modelID, 0, 0, 0, true)
	}

	// Step 5: tool discovery (errors degrade to an empty list).
	toolsUsed := o.findTools(ctx, req)
	req.RelevantTools = toolsUsed

	// Step 6: agent classification (errors degrade to an empty list inside analyzer).
	candidates := o.agentCandidates()
	scored := o.Analyzer.AnalyzeRequest(ctx, req.Prompt, candidates)

	// Step 7: no agents matched -> process directly via BaseAgent.
	if len(scored) == 0 {
		resp := o.processDirect(ctx, req)
		resp.Metadata = mergeMetadata(resp.Metadata, map[string]any{
			"agents_used": []string{"base"},
			"tools_used":  toolsUsed,
		})
		return resp
	}

	// Step 8: dispatch up to MaxParallelAgents highest-confidence agents.
	top := scored
	if len(top) > o.MaxParallelAgents {
		top = top[:o.MaxParallelAgents]
	}
	results := o.dispatch(ctx, req, top)

	// Step 9: aggregate in confidence order (already sorted by the analyzer).
	scoredResponses := make([]agent.ScoredResponse, 0, len(results))
	agentsUsed := make([]string, 0, len(results))
	for _, r := range results {
		scoredResponses = append(scoredResponses, agent.ScoredResponse{
			AgentID: r.agentID, Confidence: r.confidence, Response: r.response,
		})
		agentsUsed = append(agentsUsed, r.agentID)
	}

	final := o.Aggregator.Aggregate(ctx, scoredResponses, req.Prompt)
	final.Metadata = mergeMetadata(final.Metadata, map[string]any{
		"agents_used": agentsUsed,
		"tools_used":  toolsUsed,
	})
	return final
}

func (o *Orchestrator) processDirect(ctx context.Context, req agent.Request) agent.Response {
	a, err := o.Factory.Create("base", agent.Deps{})
	if err != nil {
		return agent.Response{Status: agent.StatusError, Error: err.Error()}
	}
	start := time.Now()
	resp := a.ProcessRequest(ctx, req)
	_ = o.Metrics.TrackAgentUsage(req.RequestID, "base", 1, time.Since(start).Milliseconds(), resp.Status != agent.StatusError, nil)
	o.trackToolExecutions(req.RequestID, resp)
	return resp
}

// trackToolExecutions records every tool a BaseAgent actually ran while
// producing resp (spec §8 scenario 5: "the metrics record shows tools_used
// includes the timed-out tool with success=false"), distinct from the
// Tool Finder's merely-selected names already carried in "tools_used".
func (o *Orchestrator) trackToolExecutions(requestID string, resp agent.Response) {
	executions, ok := resp.Metadata["tool_executions"].([]agent.ToolExecution)
	if !ok {
		return
	}
	for _, te := range executions {
		_ = o.Metrics.TrackToolUsage(requestID, te.ToolID, te.DurationMS, te.Success, nil)
	}
}

func (o *Orchestrator) findTools(ctx context.Context, req agent.Request) []string {
	a, err := o.Factory.Create("tool_finder", agent.Deps{Finder: o.Finder})
	if err != nil {
		return nil
	}
	resp := a.ProcessRequest(ctx, req)
	if resp.Status == agent.StatusError {
		return nil
	}
	if names, ok := resp.Metadata["selected_tools"].([]string); ok {
		return names
	}
	return nil
}

func (o *Orchestrator) agentCandidates() []analyzer.AgentCandidate {
	descriptors := o.Store.Agents()
	out := make([]analyzer.AgentCandidate, 0, len(descriptors))
	for id, d := range descriptors {
		if reservedAgentIDs[id] {
			continue
		}
		out = append(out, analyzer.AgentCandidate{ID: id, Description: d.Description})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// dispatch runs up to MaxParallelAgents agent invocations concurrently,
// bounded by an errgroup. A request-level ctx cancellation stops any agent
// invocation that has not yet started; an invocation already in flight
// runs to completion but its response is discarded (spec §4.12
// "Cancellation").
func (o *Orchestrator) dispatch(ctx context.Context, req agent.Request, top []analyzer.Scored) []dispatched {
	results := make([]dispatched, len(top))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for i, s := range top {
		i, s := i, s
		if ctx.Err() != nil {
			break // pending invocation never started
		}
		g.Go(func() error {
			enriched := req.Clone()
			enriched.Context = mergeMetadata(enriched.Context, map[string]any{
				"orchestrator_request_id": req.RequestID,
			})

			a, err := o.Factory.Create(s.ID, agent.Deps{})
			if err != nil {
				mu.Lock()
				results[i] = dispatched{agentID: s.ID, confidence: s.Confidence, response: agent.Response{Status: agent.StatusError, Error: err.Error()}}
				mu.Unlock()
				return nil
			}

			start := time.Now()
			resp := a.ProcessRequest(gctx, enriched)
			duration := time.Since(start).Milliseconds()

			if gctx.Err() != nil {
				// Cancelled mid-flight: the call ran to completion but its
				// response is discarded.
				return nil
			}

			_ = o.Metrics.TrackAgentUsage(req.RequestID, s.ID, s.Confidence, duration, resp.Status != agent.StatusError, nil)
			o.trackToolExecutions(req.RequestID, resp)

			mu.Lock()
			results[i] = dispatched{agentID: s.ID, confidence: s.Confidence, response: resp}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	out := make([]dispatched, 0, len(results))
	for _, r := range results {
		if r.agentID == "" {
			continue // cancelled before completion, or never started
		}
		out = append(out, r)
	}
	return out
}

func mergeMetadata(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
