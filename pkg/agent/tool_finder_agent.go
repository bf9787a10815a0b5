package agent

import (
	"context"
	"strings"

	"github.com/agentmesh/orchestrator/pkg/tool"
)

// ToolFinderAgent wraps a tool.Finder behind the Agent contract, returning
// the selected tool names in its response metadata (spec §4.11
// "ToolFinderAgent: runs the Tool Finder and returns {selected_tools} in
// metadata").
type ToolFinderAgent struct {
	id     string
	finder tool.Finder
}

func NewToolFinderAgent(id string, finder tool.Finder) *ToolFinderAgent {
	return &ToolFinderAgent{id: id, finder: finder}
}

func (a *ToolFinderAgent) ID() string { return a.id }

func (a *ToolFinderAgent) ProcessRequest(ctx context.Context, request Request) Response {
	var recent []string
	if request.Context != nil {
		if msgs, ok := request.Context["recent_messages"].([]string); ok {
			recent = msgs
		}
	}

	selected := a.finder.Find(ctx, request.Prompt, recent)
	names := make([]string, 0, len(selected))
	for name, ok := range selected {
		if ok {
			names = append(names, name)
		}
	}

	return Response{
		Content: strings.Join(names, ", "),
		Status:  StatusSuccess,
		Metadata: map[string]any{
			"selected_tools": names,
		},
	}
}

// CanHandle always reports zero: ToolFinderAgent is invoked directly by the
// orchestrator pipeline (spec §4.12 step 5), never selected via
// classification.
func (a *ToolFinderAgent) CanHandle(ctx context.Context, request Request) float64 {
	return 0
}
