// Package openai implements the Provider contract (llms.Provider) against
// OpenAI's chat-completions API using github.com/sashabaranov/go-openai,
// adopted from the retrieval pack's `nexus` example.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/agentmesh/orchestrator/pkg/apperrors"
	"github.com/agentmesh/orchestrator/pkg/llms"
	openai "github.com/sashabaranov/go-openai"
)

// Provider implements llms.Provider for OpenAI and OpenAI-compatible APIs.
type Provider struct {
	client *openai.Client
}

// New builds a Provider. baseURL may be empty to use the default OpenAI
// endpoint, or set for an OpenAI-compatible backend (spec §6 ProviderConfig.base_url).
func New(apiKey, baseURL string) *Provider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Provider{client: openai.NewClientWithConfig(cfg)}
}

func (p *Provider) Name() string { return "openai" }

func (p *Provider) Capabilities() llms.Capabilities {
	return llms.Capabilities{SupportsTools: true, SupportsImages: true}
}

func (p *Provider) Request(ctx context.Context, messages []llms.Message, opts llms.RequestOptions) (llms.ProviderReply, error) {
	req := p.buildRequest(messages, opts, false)

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return llms.ProviderReply{}, classifyErr(err)
	}
	if len(resp.Choices) == 0 {
		return llms.ProviderReply{}, apperrors.New(apperrors.KindProviderBadResponse, "OpenAIProvider", "Request", "no choices returned")
	}

	choice := resp.Choices[0]
	reply := llms.ProviderReply{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
	}
	for _, tc := range choice.Message.ToolCalls {
		var args map[string]any
		_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		reply.ToolCalls = append(reply.ToolCalls, llms.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: args})
	}
	return reply, nil
}

func (p *Provider) Stream(ctx context.Context, messages []llms.Message, opts llms.RequestOptions, yield func(string) bool) error {
	req := p.buildRequest(messages, opts, true)

	stream, err := p.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return classifyErr(err)
	}
	defer stream.Close()

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return classifyErr(err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if content := chunk.Choices[0].Delta.Content; content != "" {
			if !yield(content) {
				return nil
			}
		}
	}
}

// AddToolMessage appends an OpenAI-style tool-response entry: role "tool"
// with tool_call_id carried via Name, matching the required ordering
// (immediately after the assistant message that requested the call).
func (p *Provider) AddToolMessage(messages []llms.Message, toolName string, content string) []llms.Message {
	out := make([]llms.Message, len(messages), len(messages)+1)
	copy(out, messages)
	return append(out, llms.Message{Role: llms.RoleTool, Name: toolName, Content: content})
}

func (p *Provider) buildRequest(messages []llms.Message, opts llms.RequestOptions, stream bool) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:    opts.Model,
		Messages: toOpenAIMessages(messages),
		Stream:   stream,
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		req.Temperature = float32(opts.Temperature)
	}
	if len(opts.Tools) > 0 {
		req.Tools = toOpenAITools(opts.Tools)
	}
	return req
}

func toOpenAIMessages(messages []llms.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
			Name:    m.Name,
		}
		if m.Role == llms.RoleTool {
			msg.ToolCallID = m.Name
		}
		out = append(out, msg)
	}
	return out
}

func toOpenAITools(tools []llms.ToolDescription) []openai.Tool {
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.ParametersSchema,
			},
		})
	}
	return out
}

func classifyErr(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 401, 403:
			return apperrors.Wrap(apperrors.KindProviderAuth, "OpenAIProvider", "Request", "authentication failed", err)
		case 429:
			return apperrors.RateLimited("OpenAIProvider", "Request", 0, err)
		case 408, 504:
			return apperrors.Wrap(apperrors.KindProviderTimeout, "OpenAIProvider", "Request", "request timed out", err)
		}
	}
	return apperrors.Wrap(apperrors.KindProviderUnavailable, "OpenAIProvider", "Request", "request failed", err)
}
