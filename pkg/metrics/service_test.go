package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agentmesh/orchestrator/pkg/apperrors"
)

func TestStartRequestTracking_generatesIDWhenMissing(t *testing.T) {
	s := NewService("", nil)
	id := s.StartRequestTracking("", "hello", nil)
	require.NotEmpty(t, id)
}

func TestStartRequestTracking_honorsSuppliedID(t *testing.T) {
	s := NewService("", nil)
	id := s.StartRequestTracking("req-1", "hello", nil)
	require.Equal(t, "req-1", id)
}

func TestEndRequestTracking_unknownRequestErrors(t *testing.T) {
	s := NewService("", nil)
	err := s.EndRequestTracking("missing", true, "")
	require.Error(t, err)
	require.Equal(t, apperrors.KindRequestNotFound, apperrors.KindOf(err))
}

func TestTrackAgentUsage_andAggregate(t *testing.T) {
	s := NewService("", nil)
	id := s.StartRequestTracking("req-1", "hi", nil)

	require.NoError(t, s.TrackAgentUsage(id, "coding", 0.9, 100, true, nil))
	require.NoError(t, s.TrackAgentUsage(id, "coding", 0.7, 300, false, nil))

	metrics := s.GetAgentMetrics("coding", nil, nil)
	m := metrics["coding"]
	require.Equal(t, 2, m.TotalCalls)
	require.Equal(t, 1, m.SuccessfulCalls)
	require.InDelta(t, 200, m.AverageDurationMS, 0.001)
	require.InDelta(t, 0.8, m.AverageConfidence, 0.001)
}

func TestTrackToolUsage_andAggregate(t *testing.T) {
	s := NewService("", nil)
	id := s.StartRequestTracking("req-1", "hi", nil)

	require.NoError(t, s.TrackToolUsage(id, "search", 50, true, nil))

	metrics := s.GetToolMetrics("", nil, nil)
	require.Equal(t, 1, metrics["search"].TotalCalls)
}

func TestTrackModelUsage_unknownRequestErrors(t *testing.T) {
	s := NewService("", nil)
	err := s.TrackModelUsage("missing", "gpt-4o", 10, 20, 100, true)
	require.Error(t, err)
}

func TestGetAgentMetrics_filtersByWindow(t *testing.T) {
	s := NewService("", nil)
	id := s.StartRequestTracking("req-1", "hi", nil)
	require.NoError(t, s.TrackAgentUsage(id, "coding", 0.9, 100, true, nil))

	future := time.Now().Add(time.Hour)
	metrics := s.GetAgentMetrics("coding", &future, nil)
	require.Empty(t, metrics)
}

func TestPersistLocked_writesSnapshotFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metrics.json")
	s := NewService(path, nil)

	s.StartRequestTracking("req-1", "hi", nil)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "req-1")
}

func TestEndRequestTracking_marksSuccessAndDuration(t *testing.T) {
	s := NewService("", nil)
	id := s.StartRequestTracking("req-1", "hi", nil)
	require.NoError(t, s.EndRequestTracking(id, true, ""))

	metrics := s.GetAgentMetrics("", nil, nil)
	require.Empty(t, metrics)

	rec := s.requests[id]
	require.True(t, rec.Finished)
	require.True(t, rec.Success)
	require.False(t, rec.EndTS.Before(rec.StartTS))
}

func TestGeneratePerformanceReport_ranksBySuccessRate(t *testing.T) {
	s := NewService("", nil)

	id1 := s.StartRequestTracking("req-1", "hi", nil)
	require.NoError(t, s.TrackAgentUsage(id1, "reliable", 0.9, 100, true, nil))
	require.NoError(t, s.TrackAgentUsage(id1, "reliable", 0.9, 100, true, nil))
	require.NoError(t, s.TrackToolUsage(id1, "flaky-tool", 50, true, nil))

	id2 := s.StartRequestTracking("req-2", "hi", nil)
	require.NoError(t, s.TrackAgentUsage(id2, "flaky", 0.3, 300, false, nil))
	require.NoError(t, s.TrackToolUsage(id2, "flaky-tool", 50, false, nil))
	require.NoError(t, s.TrackToolUsage(id2, "flaky-tool", 50, false, nil))

	report := s.GeneratePerformanceReport(nil, nil, 5)

	require.Len(t, report.TopAgents, 2)
	require.Equal(t, "reliable", report.TopAgents[0].AgentID)
	require.Equal(t, "flaky", report.WorstAgents[0].AgentID)

	require.Len(t, report.TopTools, 1)
	require.Equal(t, "flaky-tool", report.TopTools[0].ToolID)
	require.Equal(t, 1, report.TopTools[0].SuccessfulCalls)
	require.Equal(t, 3, report.TopTools[0].TotalCalls)
}

func TestGeneratePerformanceReport_excludesZeroCallEntries(t *testing.T) {
	s := NewService("", nil)
	report := s.GeneratePerformanceReport(nil, nil, 5)
	require.Empty(t, report.TopAgents)
	require.Empty(t, report.WorstAgents)
}
