package agent

import "github.com/agentmesh/orchestrator/pkg/tool"

// System prompts for the built-in specialized agents (spec §4.11: "thin
// wrappers that set a specialized system prompt").
const (
	codingAssistantSystemPrompt = "You are an expert software engineer embedded in a multi-agent " +
		"system. Produce correct, idiomatic code and explain tradeoffs concisely."
	listenerSystemPrompt = "You receive transcribed speech as input. Respond conversationally, " +
		"accounting for transcription noise (dropped words, homophones)."
)

// NewCodingAssistantAgent builds a BaseAgent specialized for coding
// requests. Audio/image pre-processing is out of scope (spec Non-goals);
// like ListenerAgent, this wrapper does no request pre-processing.
func NewCodingAssistantAgent(id, defaultModel string, resolveProvider ProviderResolver, toolRegistry *tool.Registry, executor *tool.Executor) *BaseAgent {
	return NewBaseAgent(id, "Writes and reviews code", defaultModel, codingAssistantSystemPrompt, resolveProvider, toolRegistry, executor)
}

// NewListenerAgent builds a BaseAgent specialized for transcribed-speech
// input. Audio transcription itself is out of scope (spec Non-goals: "audio
// helpers"); callers are expected to hand ListenerAgent already-transcribed
// text in Request.Prompt.
func NewListenerAgent(id, defaultModel string, resolveProvider ProviderResolver, toolRegistry *tool.Registry, executor *tool.Executor) *BaseAgent {
	return NewBaseAgent(id, "Handles transcribed voice input", defaultModel, listenerSystemPrompt, resolveProvider, toolRegistry, executor)
}
