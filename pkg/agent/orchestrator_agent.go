package agent

import "context"

// OrchestratorAgent exposes the orchestrator pipeline (spec §4.12) through
// the regular Agent contract so it can be selected and invoked like any
// other registered agent (e.g. for nested orchestration).
type OrchestratorAgent struct {
	id     string
	runner Runner
}

func NewOrchestratorAgent(id string, runner Runner) *OrchestratorAgent {
	return &OrchestratorAgent{id: id, runner: runner}
}

func (a *OrchestratorAgent) ID() string { return a.id }

func (a *OrchestratorAgent) ProcessRequest(ctx context.Context, request Request) Response {
	return a.runner.Run(ctx, request)
}

// CanHandle always reports zero: OrchestratorAgent is created by id through
// the Factory, never picked via confidence-based classification.
func (a *OrchestratorAgent) CanHandle(ctx context.Context, request Request) float64 {
	return 0
}
