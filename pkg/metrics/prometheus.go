package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus wraps the CounterVec/HistogramVec instrumentation the Metrics
// Service updates alongside its JSON snapshot (spec §4.13), grounded on the
// teacher's pkg/observability/metrics.go. Kept deliberately smaller than
// the teacher's: only the agent/tool/model surfaces the orchestration core
// defines.
type Prometheus struct {
	registry *prometheus.Registry

	agentCalls    *prometheus.CounterVec
	agentDuration *prometheus.HistogramVec
	agentErrors   *prometheus.CounterVec

	toolCalls    *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
	toolErrors   *prometheus.CounterVec

	modelCalls      *prometheus.CounterVec
	modelDuration   *prometheus.HistogramVec
	modelTokensIn   *prometheus.CounterVec
	modelTokensOut  *prometheus.CounterVec

	requestsTotal    *prometheus.CounterVec
	requestDuration  prometheus.Histogram
}

const namespace = "agentmesh"

// NewPrometheus builds a fresh, independent Prometheus registry (never the
// global default, so multiple Services can coexist in tests).
func NewPrometheus() *Prometheus {
	p := &Prometheus{registry: prometheus.NewRegistry()}

	p.agentCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "agent", Name: "calls_total",
		Help: "Total agent invocations.",
	}, []string{"agent_id"})
	p.agentDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "agent", Name: "call_duration_seconds",
		Help: "Agent invocation duration in seconds.", Buckets: prometheus.DefBuckets,
	}, []string{"agent_id"})
	p.agentErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "agent", Name: "errors_total",
		Help: "Total agent invocation failures.",
	}, []string{"agent_id"})

	p.toolCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "tool", Name: "calls_total",
		Help: "Total tool executions.",
	}, []string{"tool_id"})
	p.toolDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "tool", Name: "call_duration_seconds",
		Help: "Tool execution duration in seconds.", Buckets: prometheus.DefBuckets,
	}, []string{"tool_id"})
	p.toolErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "tool", Name: "errors_total",
		Help: "Total tool execution failures.",
	}, []string{"tool_id"})

	p.modelCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "model", Name: "calls_total",
		Help: "Total model invocations.",
	}, []string{"model_id"})
	p.modelDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "model", Name: "call_duration_seconds",
		Help: "Model invocation duration in seconds.", Buckets: prometheus.DefBuckets,
	}, []string{"model_id"})
	p.modelTokensIn = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "model", Name: "tokens_input_total",
		Help: "Total input tokens consumed.",
	}, []string{"model_id"})
	p.modelTokensOut = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "model", Name: "tokens_output_total",
		Help: "Total output tokens generated.",
	}, []string{"model_id"})

	p.requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "request", Name: "total",
		Help: "Total orchestrated requests by outcome.",
	}, []string{"outcome"})
	p.requestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "request", Name: "duration_seconds",
		Help: "End-to-end request duration in seconds.", Buckets: prometheus.DefBuckets,
	})

	p.registry.MustRegister(
		p.agentCalls, p.agentDuration, p.agentErrors,
		p.toolCalls, p.toolDuration, p.toolErrors,
		p.modelCalls, p.modelDuration, p.modelTokensIn, p.modelTokensOut,
		p.requestsTotal, p.requestDuration,
	)
	return p
}

// Registry exposes the underlying prometheus.Registry so callers can mount
// promhttp.HandlerFor on it.
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

func (p *Prometheus) observeAgent(agentID string, durationSeconds float64, success bool) {
	p.agentCalls.WithLabelValues(agentID).Inc()
	p.agentDuration.WithLabelValues(agentID).Observe(durationSeconds)
	if !success {
		p.agentErrors.WithLabelValues(agentID).Inc()
	}
}

func (p *Prometheus) observeTool(toolID string, durationSeconds float64, success bool) {
	p.toolCalls.WithLabelValues(toolID).Inc()
	p.toolDuration.WithLabelValues(toolID).Observe(durationSeconds)
	if !success {
		p.toolErrors.WithLabelValues(toolID).Inc()
	}
}

func (p *Prometheus) observeModel(modelID string, durationSeconds float64, tokensIn, tokensOut int) {
	p.modelCalls.WithLabelValues(modelID).Inc()
	p.modelDuration.WithLabelValues(modelID).Observe(durationSeconds)
	if tokensIn > 0 {
		p.modelTokensIn.WithLabelValues(modelID).Add(float64(tokensIn))
	}
	if tokensOut > 0 {
		p.modelTokensOut.WithLabelValues(modelID).Add(float64(tokensOut))
	}
}

func (p *Prometheus) observeRequest(durationSeconds float64, success bool) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	p.requestsTotal.WithLabelValues(outcome).Inc()
	p.requestDuration.Observe(durationSeconds)
}
