// Package metrics implements the Metrics Service (spec §4.13): a
// per-process singleton that tracks request/agent/tool/model usage,
// persists a JSON snapshot after each mutation, and mirrors counters into
// Prometheus, grounded on the teacher's pkg/observability/metrics.go and
// pkg/context/checkpoint.go persistence style.
package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentmesh/orchestrator/pkg/apperrors"
)

// AgentUsage records one agent invocation against a request.
type AgentUsage struct {
	AgentID    string         `json:"agent_id"`
	Confidence float64        `json:"confidence,omitempty"`
	DurationMS int64          `json:"duration_ms,omitempty"`
	Success    bool           `json:"success"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	At         time.Time      `json:"at"`
}

// ToolUsage records one tool execution against a request.
type ToolUsage struct {
	ToolID     string         `json:"tool_id"`
	DurationMS int64          `json:"duration_ms,omitempty"`
	Success    bool           `json:"success"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	At         time.Time      `json:"at"`
}

// ModelUsage records one model call against a request.
type ModelUsage struct {
	ModelID    string    `json:"model_id"`
	TokensIn   int       `json:"tokens_in,omitempty"`
	TokensOut  int       `json:"tokens_out,omitempty"`
	DurationMS int64     `json:"duration_ms,omitempty"`
	Success    bool      `json:"success"`
	At         time.Time `json:"at"`
}

// RequestRecord is the full lifecycle of one orchestrated request (spec
// §4.13 "RequestRecord.start_ts").
type RequestRecord struct {
	RequestID string         `json:"request_id"`
	Prompt    string         `json:"prompt,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	StartTS   time.Time      `json:"start_ts"`
	EndTS     time.Time      `json:"end_ts,omitempty"`
	Finished  bool           `json:"finished"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`

	AgentUsages []AgentUsage `json:"agent_usages,omitempty"`
	ToolUsages  []ToolUsage  `json:"tool_usages,omitempty"`
	ModelUsages []ModelUsage `json:"model_usages,omitempty"`
}

// Service is the Metrics Service: a mutex-serialized store of
// RequestRecords, persisted to a JSON file after every mutation (spec
// §4.13: "Concurrency: mutations serialize on a single lock").
type Service struct {
	mu         sync.Mutex
	requests   map[string]*RequestRecord
	path       string
	prometheus *Prometheus
}

// NewService builds a Service. path may be empty to disable persistence
// (useful for tests); prom may be nil to disable Prometheus mirroring.
func NewService(path string, prom *Prometheus) *Service {
	return &Service{requests: make(map[string]*RequestRecord), path: path, prometheus: prom}
}

// StartRequestTracking begins tracking a request, generating a request id
// if one was not supplied (spec §4.13).
func (s *Service) StartRequestTracking(requestID, prompt string, metadata map[string]any) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if requestID == "" {
		requestID = uuid.New().String()
	}
	s.requests[requestID] = &RequestRecord{
		RequestID: requestID,
		Prompt:    prompt,
		Metadata:  metadata,
		StartTS:   time.Now(),
	}
	s.persistLocked()
	return requestID
}

// EndRequestTracking marks requestID finished, computing its duration.
func (s *Service) EndRequestTracking(requestID string, success bool, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.requests[requestID]
	if !ok {
		return apperrors.New(apperrors.KindRequestNotFound, "MetricsService", "EndRequestTracking",
			fmt.Sprintf("no tracked request %q", requestID))
	}

	rec.EndTS = time.Now()
	rec.Finished = true
	rec.Success = success
	rec.Error = errMsg
	s.persistLocked()

	if s.prometheus != nil {
		s.prometheus.observeRequest(rec.EndTS.Sub(rec.StartTS).Seconds(), success)
	}
	return nil
}

// TrackAgentUsage records one agent invocation against requestID.
func (s *Service) TrackAgentUsage(requestID, agentID string, confidence float64, durationMS int64, success bool, metadata map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.requests[requestID]
	if !ok {
		return apperrors.New(apperrors.KindRequestNotFound, "MetricsService", "TrackAgentUsage",
			fmt.Sprintf("no tracked request %q", requestID))
	}
	rec.AgentUsages = append(rec.AgentUsages, AgentUsage{
		AgentID: agentID, Confidence: confidence, DurationMS: durationMS,
		Success: success, Metadata: metadata, At: time.Now(),
	})
	s.persistLocked()

	if s.prometheus != nil {
		s.prometheus.observeAgent(agentID, float64(durationMS)/1000, success)
	}
	return nil
}

// TrackToolUsage records one tool execution against requestID.
func (s *Service) TrackToolUsage(requestID, toolID string, durationMS int64, success bool, metadata map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.requests[requestID]
	if !ok {
		return apperrors.New(apperrors.KindRequestNotFound, "MetricsService", "TrackToolUsage",
			fmt.Sprintf("no tracked request %q", requestID))
	}
	rec.ToolUsages = append(rec.ToolUsages, ToolUsage{
		ToolID: toolID, DurationMS: durationMS, Success: success, Metadata: metadata, At: time.Now(),
	})
	s.persistLocked()

	if s.prometheus != nil {
		s.prometheus.observeTool(toolID, float64(durationMS)/1000, success)
	}
	return nil
}

// TrackModelUsage records one model call against requestID.
func (s *Service) TrackModelUsage(requestID, modelID string, tokensIn, tokensOut int, durationMS int64, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.requests[requestID]
	if !ok {
		return apperrors.New(apperrors.KindRequestNotFound, "MetricsService", "TrackModelUsage",
			fmt.Sprintf("no tracked request %q", requestID))
	}
	rec.ModelUsages = append(rec.ModelUsages, ModelUsage{
		ModelID: modelID, TokensIn: tokensIn, TokensOut: tokensOut,
		DurationMS: durationMS, Success: success, At: time.Now(),
	})
	s.persistLocked()

	if s.prometheus != nil {
		s.prometheus.observeModel(modelID, float64(durationMS)/1000, tokensIn, tokensOut)
	}
	return nil
}

// AgentMetrics is one aggregation-query result row (spec §4.13
// get_agent_metrics).
type AgentMetrics struct {
	AgentID           string  `json:"agent_id"`
	TotalCalls        int     `json:"total_calls"`
	SuccessfulCalls   int     `json:"successful_calls"`
	AverageDurationMS float64 `json:"average_duration_ms"`
	AverageConfidence float64 `json:"average_confidence"`
}

// GetAgentMetrics aggregates AgentUsage rows across all tracked requests,
// optionally filtered by agentID and/or a [start,end) window applied to
// RequestRecord.StartTS (spec §4.13: "period-scoped totals derived by
// filtering RequestRecord.start_ts into the window").
func (s *Service) GetAgentMetrics(agentID string, start, end *time.Time) map[string]AgentMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]AgentMetrics)
	for _, rec := range s.requests {
		if !inWindow(rec.StartTS, start, end) {
			continue
		}
		for _, u := range rec.AgentUsages {
			if agentID != "" && u.AgentID != agentID {
				continue
			}
			m := out[u.AgentID]
			m.AgentID = u.AgentID
			m.TotalCalls++
			if u.Success {
				m.SuccessfulCalls++
			}
			m.AverageDurationMS = rollingAverage(m.AverageDurationMS, m.TotalCalls-1, float64(u.DurationMS))
			m.AverageConfidence = rollingAverage(m.AverageConfidence, m.TotalCalls-1, u.Confidence)
			out[u.AgentID] = m
		}
	}
	return out
}

// ToolMetrics is one aggregation-query result row (spec §4.13
// get_tool_metrics).
type ToolMetrics struct {
	ToolID            string  `json:"tool_id"`
	TotalCalls        int     `json:"total_calls"`
	SuccessfulCalls   int     `json:"successful_calls"`
	AverageDurationMS float64 `json:"average_duration_ms"`
}

// GetToolMetrics mirrors GetAgentMetrics for tool usage.
func (s *Service) GetToolMetrics(toolID string, start, end *time.Time) map[string]ToolMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]ToolMetrics)
	for _, rec := range s.requests {
		if !inWindow(rec.StartTS, start, end) {
			continue
		}
		for _, u := range rec.ToolUsages {
			if toolID != "" && u.ToolID != toolID {
				continue
			}
			m := out[u.ToolID]
			m.ToolID = u.ToolID
			m.TotalCalls++
			if u.Success {
				m.SuccessfulCalls++
			}
			m.AverageDurationMS = rollingAverage(m.AverageDurationMS, m.TotalCalls-1, float64(u.DurationMS))
			out[u.ToolID] = m
		}
	}
	return out
}

// PerformanceReport ranks agents and tools by success rate over a window,
// the non-visual half of the original dashboard's reporting surface (the
// matplotlib/pandas charts are an example-program concern and out of
// scope here).
type PerformanceReport struct {
	Start       *time.Time     `json:"start,omitempty"`
	End         *time.Time     `json:"end,omitempty"`
	TopAgents   []AgentMetrics `json:"top_agents"`
	WorstAgents []AgentMetrics `json:"worst_agents"`
	TopTools    []ToolMetrics  `json:"top_tools"`
	WorstTools  []ToolMetrics  `json:"worst_tools"`
}

// GeneratePerformanceReport ranks agents and tools tracked in [start,end) by
// success rate, returning the top and bottom n of each (n<=0 defaults to 5).
// Entries with zero calls are excluded since a success rate without calls is
// not meaningful to rank.
func (s *Service) GeneratePerformanceReport(start, end *time.Time, n int) PerformanceReport {
	if n <= 0 {
		n = 5
	}

	agentMetrics := s.GetAgentMetrics("", start, end)
	toolMetrics := s.GetToolMetrics("", start, end)

	agents := make([]AgentMetrics, 0, len(agentMetrics))
	for _, m := range agentMetrics {
		if m.TotalCalls > 0 {
			agents = append(agents, m)
		}
	}
	tools := make([]ToolMetrics, 0, len(toolMetrics))
	for _, m := range toolMetrics {
		if m.TotalCalls > 0 {
			tools = append(tools, m)
		}
	}

	agentRate := func(m AgentMetrics) float64 { return float64(m.SuccessfulCalls) / float64(m.TotalCalls) }
	toolRate := func(m ToolMetrics) float64 { return float64(m.SuccessfulCalls) / float64(m.TotalCalls) }

	sort.Slice(agents, func(i, j int) bool { return agentRate(agents[i]) > agentRate(agents[j]) })
	sort.Slice(tools, func(i, j int) bool { return toolRate(tools[i]) > toolRate(tools[j]) })

	return PerformanceReport{
		Start:       start,
		End:         end,
		TopAgents:   topN(agents, n),
		WorstAgents: bottomN(agents, n),
		TopTools:    topN(tools, n),
		WorstTools:  bottomN(tools, n),
	}
}

func topN[T any](items []T, n int) []T {
	if n > len(items) {
		n = len(items)
	}
	out := make([]T, n)
	copy(out, items[:n])
	return out
}

func bottomN[T any](items []T, n int) []T {
	if n > len(items) {
		n = len(items)
	}
	out := make([]T, n)
	copy(out, items[len(items)-n:])
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func inWindow(t time.Time, start, end *time.Time) bool {
	if start != nil && t.Before(*start) {
		return false
	}
	if end != nil && !t.Before(*end) {
		return false
	}
	return true
}

func rollingAverage(current float64, n int, sample float64) float64 {
	return (current*float64(n) + sample) / float64(n+1)
}

// persistLocked rewrites the JSON snapshot file. Callers must hold s.mu.
// It writes to a temp file in the same directory and renames into place so
// a reader never observes a partially written snapshot.
func (s *Service) persistLocked() {
	if s.path == "" {
		return
	}

	data, err := json.MarshalIndent(s.requests, "", "  ")
	if err != nil {
		return
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".metrics-*.tmp")
	if err != nil {
		return
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return
	}
	_ = os.Rename(tmpPath, s.path)
}
