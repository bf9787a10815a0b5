package agent

import (
	"context"
	"encoding/json"
	"time"

	"github.com/agentmesh/orchestrator/pkg/apperrors"
	"github.com/agentmesh/orchestrator/pkg/llms"
	"github.com/agentmesh/orchestrator/pkg/tool"
)

// ProviderResolver returns the Provider that serves modelID, along with the
// resolved model id (a default model is substituted when modelID is empty).
// The Factory wires this to the Config Store + Provider Registry pair.
type ProviderResolver func(modelID string) (llms.Provider, string, error)

// maxToolCallRounds bounds the provider <-> tool-executor loop so a model
// that keeps requesting tools can never hang a request indefinitely.
const maxToolCallRounds = 5

// BaseAgent implements spec §4.11's BaseAgent.process_request: it forwards
// a prompt to an AI client, honoring per-request model/system-prompt
// overrides without mutating its own configured defaults, and drives the
// tool-call loop (spec §4.2/§4.4) when the resolved provider and request
// both support it.
type BaseAgent struct {
	id              string
	description     string
	defaultModel    string
	systemPrompt    string
	resolveProvider ProviderResolver
	toolRegistry    *tool.Registry
	executor        *tool.Executor
}

// NewBaseAgent constructs a BaseAgent. resolveProvider supplies the AI
// client for a given model id (spec §4.10: the Factory ensures this
// collaborator is present, constructing a default if absent). toolRegistry
// and executor may both be nil, in which case tool calls are never offered
// to the model.
func NewBaseAgent(id, description, defaultModel, systemPrompt string, resolveProvider ProviderResolver, toolRegistry *tool.Registry, executor *tool.Executor) *BaseAgent {
	return &BaseAgent{
		id:              id,
		description:     description,
		defaultModel:    defaultModel,
		systemPrompt:    systemPrompt,
		resolveProvider: resolveProvider,
		toolRegistry:    toolRegistry,
		executor:        executor,
	}
}

func (a *BaseAgent) ID() string          { return a.id }
func (a *BaseAgent) Description() string { return a.description }

// ProcessRequest copies request, resolves the (possibly overridden) model
// and system prompt, and forwards the prompt to the AI client. Provider
// errors are wrapped into status=error rather than propagated, per spec
// §4.11: "wraps exceptions into status=error".
func (a *BaseAgent) ProcessRequest(ctx context.Context, request Request) Response {
	req := request.Clone()

	model := req.Model
	if model == "" {
		model = a.defaultModel
	}
	systemPrompt := req.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = a.systemPrompt
	}

	provider, resolvedModel, err := a.resolveProvider(model)
	if err != nil {
		return errorResponse(apperrors.Wrap(apperrors.KindAgentProcessingFailed, "BaseAgent", "ProcessRequest",
			"could not resolve AI client", err))
	}

	messages := make([]llms.Message, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, llms.Message{Role: llms.RoleSystem, Content: systemPrompt})
	}
	messages = append(messages, llms.Message{Role: llms.RoleUser, Content: req.Prompt})

	opts := llms.RequestOptions{Model: resolvedModel}
	if tools := a.toolDescriptions(req.RelevantTools, provider); len(tools) > 0 {
		opts.Tools = tools
	}

	reply, err := provider.Request(ctx, messages, opts)
	if err != nil {
		return errorResponse(apperrors.Wrap(apperrors.KindAgentProcessingFailed, "BaseAgent", "ProcessRequest",
			"AI client request failed", err))
	}

	var executions []ToolExecution
	for round := 0; len(reply.ToolCalls) > 0 && round < maxToolCallRounds; round++ {
		if a.executor == nil {
			break
		}
		messages = append(messages, llms.Message{Role: llms.RoleAssistant, Content: reply.Content, ToolCalls: reply.ToolCalls})
		for _, tc := range reply.ToolCalls {
			callStart := time.Now()
			result := a.executor.Execute(ctx, tc.Name, tc.Arguments, tool.ExecuteOptions{UseCache: true})
			executions = append(executions, ToolExecution{
				ToolID: tc.Name, DurationMS: time.Since(callStart).Milliseconds(), Success: result.Success,
			})
			messages = provider.AddToolMessage(messages, tc.Name, toolResultContent(result))
		}

		reply, err = provider.Request(ctx, messages, opts)
		if err != nil {
			return errorResponse(apperrors.Wrap(apperrors.KindAgentProcessingFailed, "BaseAgent", "ProcessRequest",
				"AI client tool-follow-up request failed", err))
		}
	}

	resp := Response{Content: reply.Content, Status: StatusSuccess}
	if len(executions) > 0 {
		resp.Metadata = map[string]any{"tool_executions": executions}
	}
	return resp
}

// toolDescriptions resolves names to the Provider-agnostic shape
// RequestOptions.Tools expects, skipping names the registry doesn't know
// about and skipping entirely when the provider can't use tools at all.
func (a *BaseAgent) toolDescriptions(names []string, provider llms.Provider) []llms.ToolDescription {
	if a.toolRegistry == nil || a.executor == nil || len(names) == 0 || !provider.Capabilities().SupportsTools {
		return nil
	}
	out := make([]llms.ToolDescription, 0, len(names))
	for _, name := range names {
		def, ok := a.toolRegistry.Get(name)
		if !ok {
			continue
		}
		out = append(out, llms.ToolDescription{Name: def.Name, Description: def.Description, ParametersSchema: def.ParametersSchema})
	}
	return out
}

// toolResultContent renders a tool.Result as the text a model expects back
// in a tool-role message.
func toolResultContent(result tool.Result) string {
	if !result.Success {
		return `{"error":"` + result.Error + `"}`
	}
	data, err := json.Marshal(result.Output)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// CanHandle gives BaseAgent's default confidence. Specialized agents that
// can judge fit more precisely should override this.
func (a *BaseAgent) CanHandle(ctx context.Context, request Request) float64 {
	return 0.5
}

func errorResponse(err error) Response {
	return Response{Status: StatusError, Error: err.Error()}
}
