// Package anthropic implements the Provider contract (llms.Provider)
// against the Anthropic Messages API using github.com/anthropics/anthropic-sdk-go,
// adopted from the retrieval pack's `goa-ai` example.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/agentmesh/orchestrator/internal/httpclient"
	"github.com/agentmesh/orchestrator/pkg/apperrors"
	"github.com/agentmesh/orchestrator/pkg/llms"
)

// MessagesClient captures the subset of the Anthropic SDK used by the
// adapter, so tests can substitute a stub.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Provider implements llms.Provider against Claude Messages.
type Provider struct {
	msg          MessagesClient
	defaultModel string
}

// New builds a Provider from an already-constructed Messages client.
func New(msg MessagesClient, defaultModel string) *Provider {
	return &Provider{msg: msg, defaultModel: defaultModel}
}

// NewFromAPIKey constructs a Provider using the SDK's default HTTP client.
func NewFromAPIKey(apiKey, defaultModel string) *Provider {
	client := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&client.Messages, defaultModel)
}

func (p *Provider) Name() string { return "anthropic" }

func (p *Provider) Capabilities() llms.Capabilities {
	return llms.Capabilities{SupportsTools: true, SupportsImages: true}
}

func (p *Provider) Request(ctx context.Context, messages []llms.Message, opts llms.RequestOptions) (llms.ProviderReply, error) {
	params, err := p.buildParams(messages, opts)
	if err != nil {
		return llms.ProviderReply{}, err
	}

	resp, err := p.msg.New(ctx, *params)
	if err != nil {
		return llms.ProviderReply{}, classifyErr(err)
	}

	reply := llms.ProviderReply{FinishReason: string(resp.StopReason)}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			reply.Content += block.Text
		case "tool_use":
			var args map[string]any
			_ = json.Unmarshal(block.Input, &args)
			reply.ToolCalls = append(reply.ToolCalls, llms.ToolCall{ID: block.ID, Name: block.Name, Arguments: args})
		}
	}
	return reply, nil
}

func (p *Provider) Stream(ctx context.Context, messages []llms.Message, opts llms.RequestOptions, yield func(string) bool) error {
	// The orchestration core treats streaming as a provider capability
	// exposed verbatim (spec §1 Non-goals); fall back to one Request call
	// and yield the full text as a single chunk.
	reply, err := p.Request(ctx, messages, opts)
	if err != nil {
		return err
	}
	if reply.Content != "" {
		yield(reply.Content)
	}
	return nil
}

// AddToolMessage appends a RoleTool message carrying the tool name and its
// output. buildParams sends such a message to Anthropic as a user turn
// holding a plain text block, not a tool_result block.
func (p *Provider) AddToolMessage(messages []llms.Message, toolName string, content string) []llms.Message {
	out := make([]llms.Message, len(messages), len(messages)+1)
	copy(out, messages)
	return append(out, llms.Message{Role: llms.RoleTool, Name: toolName, Content: content})
}

func (p *Provider) buildParams(messages []llms.Message, opts llms.RequestOptions) (*sdk.MessageNewParams, error) {
	model := opts.Model
	if model == "" {
		model = p.defaultModel
	}
	if model == "" {
		return nil, apperrors.New(apperrors.KindConfigInvalid, "AnthropicProvider", "Request", "model identifier is required")
	}

	var system []sdk.TextBlockParam
	var conversation []sdk.MessageParam
	for _, m := range messages {
		switch m.Role {
		case llms.RoleSystem:
			if m.Content != "" {
				system = append(system, sdk.TextBlockParam{Text: m.Content})
			}
		case llms.RoleUser:
			conversation = append(conversation, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		case llms.RoleAssistant:
			conversation = append(conversation, sdk.NewAssistantMessage(sdk.NewTextBlock(m.Content)))
		case llms.RoleTool:
			conversation = append(conversation, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		}
	}
	if len(conversation) == 0 {
		return nil, apperrors.New(apperrors.KindConfigInvalid, "AnthropicProvider", "Request", "at least one user/assistant message is required")
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  conversation,
	}
	if len(system) > 0 {
		params.System = system
	}
	if opts.Temperature > 0 {
		params.Temperature = sdk.Float(opts.Temperature)
	}
	if len(opts.Tools) > 0 {
		params.Tools = toAnthropicTools(opts.Tools)
	}
	return &params, nil
}

func toAnthropicTools(tools []llms.ToolDescription) []sdk.ToolUnionParam {
	out := make([]sdk.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		schema := sdk.ToolInputSchemaParam{ExtraFields: t.ParametersSchema}
		u := sdk.ToolUnionParamOfTool(schema, t.Name)
		if tool := u.OfTool; tool != nil {
			tool.Description = sdk.String(t.Description)
		}
		out = append(out, u)
	}
	return out
}

func classifyErr(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 401, 403:
			return apperrors.Wrap(apperrors.KindProviderAuth, "AnthropicProvider", "Request", "authentication failed", err)
		case 429:
			retryAfterSeconds := 0
			if apiErr.Response != nil {
				info := httpclient.ParseAnthropicRateLimitHeaders(apiErr.Response.Header)
				retryAfterSeconds = int(info.RetryAfter.Seconds())
			}
			return apperrors.RateLimited("AnthropicProvider", "Request", retryAfterSeconds, err)
		case 408, 504:
			return apperrors.Wrap(apperrors.KindProviderTimeout, "AnthropicProvider", "Request", "request timed out", err)
		}
	}
	return apperrors.Wrap(apperrors.KindProviderUnavailable, "AnthropicProvider", "Request", "request failed", err)
}
