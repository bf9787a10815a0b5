// Package gemini implements the Provider contract (llms.Provider) against
// Google's Gemini models using google.golang.org/genai, adopted from the
// teacher's pkg/model/gemini adapter.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/agentmesh/orchestrator/pkg/apperrors"
	"github.com/agentmesh/orchestrator/pkg/llms"
)

// Config configures the Gemini adapter.
type Config struct {
	APIKey       string
	DefaultModel string
}

// Provider implements llms.Provider against the Gemini GenerateContent API.
type Provider struct {
	client       *genai.Client
	defaultModel string
}

// New constructs a Provider, opening a genai.Client against cfg.APIKey.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, apperrors.New(apperrors.KindCredentialsMissing, "GeminiProvider", "New", "API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDependencyUnavailable, "GeminiProvider", "New", "failed to create Gemini client", err)
	}
	model := cfg.DefaultModel
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &Provider{client: client, defaultModel: model}, nil
}

func (p *Provider) Name() string { return "gemini" }

func (p *Provider) Capabilities() llms.Capabilities {
	return llms.Capabilities{SupportsTools: true, SupportsImages: true}
}

func (p *Provider) Request(ctx context.Context, messages []llms.Message, opts llms.RequestOptions) (llms.ProviderReply, error) {
	model := opts.Model
	if model == "" {
		model = p.defaultModel
	}

	contents, system := buildContents(messages)
	cfg := buildConfig(opts, system)

	resp, err := p.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return llms.ProviderReply{}, classifyErr(err)
	}
	return parseResponse(resp)
}

func (p *Provider) Stream(ctx context.Context, messages []llms.Message, opts llms.RequestOptions, yield func(string) bool) error {
	model := opts.Model
	if model == "" {
		model = p.defaultModel
	}
	contents, system := buildContents(messages)
	cfg := buildConfig(opts, system)

	for chunk, err := range p.client.Models.GenerateContentStream(ctx, model, contents, cfg) {
		if err != nil {
			return classifyErr(err)
		}
		if len(chunk.Candidates) == 0 || chunk.Candidates[0].Content == nil {
			continue
		}
		for _, part := range chunk.Candidates[0].Content.Parts {
			if part.Text != "" && !part.Thought {
				if !yield(part.Text) {
					return nil
				}
			}
		}
	}
	return nil
}

// AddToolMessage appends a tool response, which this adapter encodes into a
// Gemini FunctionResponse part at request-build time.
func (p *Provider) AddToolMessage(messages []llms.Message, toolName string, content string) []llms.Message {
	out := make([]llms.Message, len(messages), len(messages)+1)
	copy(out, messages)
	return append(out, llms.Message{Role: llms.RoleTool, Name: toolName, Content: content})
}

func buildContents(messages []llms.Message) ([]*genai.Content, *genai.Content) {
	var contents []*genai.Content
	var system *genai.Content
	for _, m := range messages {
		switch m.Role {
		case llms.RoleSystem:
			if m.Content != "" {
				system = &genai.Content{Parts: []*genai.Part{{Text: m.Content}}, Role: "user"}
			}
		case llms.RoleUser:
			contents = append(contents, &genai.Content{Parts: []*genai.Part{{Text: m.Content}}, Role: "user"})
		case llms.RoleAssistant:
			contents = append(contents, &genai.Content{Parts: []*genai.Part{{Text: m.Content}}, Role: "model"})
		case llms.RoleTool:
			contents = append(contents, &genai.Content{
				Role: "user",
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						Name:     m.Name,
						Response: map[string]any{"result": m.Content},
					},
				}},
			})
		}
	}
	return contents, system
}

func buildConfig(opts llms.RequestOptions, system *genai.Content) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{SystemInstruction: system}
	if opts.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if len(opts.Tools) > 0 {
		cfg.Tools = buildTools(opts.Tools)
	}
	return cfg
}

func buildTools(tools []llms.ToolDescription) []*genai.Tool {
	out := make([]*genai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, &genai.Tool{
			FunctionDeclarations: []*genai.FunctionDeclaration{{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  toGenaiSchema(t.ParametersSchema),
			}},
		})
	}
	return out
}

func toGenaiSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}
	s := &genai.Schema{}
	if t, ok := schema["type"].(string); ok {
		s.Type = genai.Type(t)
	}
	if desc, ok := schema["description"].(string); ok {
		s.Description = desc
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			if propMap, ok := prop.(map[string]any); ok {
				s.Properties[name] = toGenaiSchema(propMap)
			}
		}
	}
	if required, ok := schema["required"].([]any); ok {
		for _, r := range required {
			if rs, ok := r.(string); ok {
				s.Required = append(s.Required, rs)
			}
		}
	}
	return s
}

func parseResponse(resp *genai.GenerateContentResponse) (llms.ProviderReply, error) {
	if len(resp.Candidates) == 0 {
		return llms.ProviderReply{}, apperrors.New(apperrors.KindProviderBadResponse, "GeminiProvider", "Request", "empty response")
	}
	candidate := resp.Candidates[0]
	reply := llms.ProviderReply{FinishReason: string(candidate.FinishReason)}
	if candidate.Content == nil {
		return reply, nil
	}
	for _, part := range candidate.Content.Parts {
		if part.Text != "" && !part.Thought {
			reply.Content += part.Text
		}
		if part.FunctionCall != nil {
			reply.ToolCalls = append(reply.ToolCalls, llms.ToolCall{
				ID:        firstNonEmpty(part.FunctionCall.ID, part.FunctionCall.Name),
				Name:      part.FunctionCall.Name,
				Arguments: part.FunctionCall.Args,
			})
		}
	}
	return reply, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func classifyErr(err error) error {
	return apperrors.Wrap(apperrors.KindProviderUnavailable, "GeminiProvider", "Request", fmt.Sprintf("request failed: %v", err), err)
}
