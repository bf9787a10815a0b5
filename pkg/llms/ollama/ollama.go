// Package ollama implements the Provider contract (llms.Provider) against a
// local Ollama server's /api/chat endpoint. Ollama exposes no native
// tool-calling API for all models, so this adapter always uses the
// JSON-in-prompt emulation from pkg/llms (spec §4.2).
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/agentmesh/orchestrator/internal/httpclient"
	"github.com/agentmesh/orchestrator/pkg/apperrors"
	"github.com/agentmesh/orchestrator/pkg/llms"
)

const (
	defaultBaseURL = "http://localhost:11434"

	// maxRequestRetries bounds how many times Request retries a rate-limited
	// call before surfacing the error, mirroring pkg/tool.Executor's
	// retry-on-transient-failure idiom at the provider layer.
	maxRequestRetries = 2
	maxRequestBackoff = 10 * time.Second
)

// Config configures the Ollama adapter.
type Config struct {
	BaseURL   string
	Model     string
	Timeout   time.Duration
	KeepAlive string
}

// Provider implements llms.Provider against Ollama's Chat API.
type Provider struct {
	cfg    Config
	client *http.Client
	sleep  func(time.Duration) // overridable in tests
}

func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 300 * time.Second
	}
	if cfg.KeepAlive == "" {
		cfg.KeepAlive = "5m"
	}
	return &Provider{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}, sleep: time.Sleep}
}

func (p *Provider) Name() string { return "ollama" }

func (p *Provider) Capabilities() llms.Capabilities {
	return llms.Capabilities{SupportsTools: true} // emulated, not native
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	Stream    bool          `json:"stream"`
	KeepAlive string        `json:"keep_alive,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

func (p *Provider) Request(ctx context.Context, messages []llms.Message, opts llms.RequestOptions) (llms.ProviderReply, error) {
	wire := p.toWireMessages(messages, opts)

	req := chatRequest{
		Model:     firstNonEmpty(opts.Model, p.cfg.Model),
		Messages:  wire,
		Stream:    false,
		KeepAlive: p.cfg.KeepAlive,
		Options:   optionsFrom(opts),
	}

	body, err := p.doChatWithRetry(ctx, req)
	if err != nil {
		return llms.ProviderReply{}, err
	}

	reply := llms.ProviderReply{Content: body.Message.Content}
	if call, ok := llms.ParseEmulatedToolCall(body.Message.Content, registeredIn(opts.Tools), nil); ok {
		reply.ToolCalls = []llms.ToolCall{call}
		reply.Content = ""
	}
	return reply, nil
}

func (p *Provider) Stream(ctx context.Context, messages []llms.Message, opts llms.RequestOptions, yield func(string) bool) error {
	wire := p.toWireMessages(messages, opts)
	req := chatRequest{
		Model:     firstNonEmpty(opts.Model, p.cfg.Model),
		Messages:  wire,
		Stream:    true,
		KeepAlive: p.cfg.KeepAlive,
		Options:   optionsFrom(opts),
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return apperrors.Wrap(apperrors.KindProviderBadResponse, "OllamaProvider", "Stream", "encoding request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return apperrors.Wrap(apperrors.KindProviderUnavailable, "OllamaProvider", "Stream", "building request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return classifyHTTPErr(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apperrors.New(apperrors.KindProviderBadResponse, "OllamaProvider", "Stream",
			fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		var chunk chatResponse
		if err := json.Unmarshal(scanner.Bytes(), &chunk); err != nil {
			continue
		}
		if chunk.Message.Content != "" && !yield(chunk.Message.Content) {
			return nil
		}
		if chunk.Done {
			return nil
		}
	}
	return scanner.Err()
}

// AddToolMessage appends a tool-response message using Ollama's plain
// "tool" role, since the chat API accepts it directly.
func (p *Provider) AddToolMessage(messages []llms.Message, toolName string, content string) []llms.Message {
	out := make([]llms.Message, len(messages), len(messages)+1)
	copy(out, messages)
	return append(out, llms.Message{Role: llms.RoleTool, Name: toolName, Content: content})
}

func (p *Provider) toWireMessages(messages []llms.Message, opts llms.RequestOptions) []chatMessage {
	wire := make([]chatMessage, 0, len(messages)+1)
	for i, m := range messages {
		content := m.Content
		if i == len(messages)-1 && m.Role == llms.RoleUser {
			if block := llms.BuildToolInstructionBlock(opts.Tools); block != "" {
				content = block + "\n" + content
			}
		}
		wire = append(wire, chatMessage{Role: string(m.Role), Content: content})
	}
	return wire
}

// doChatWithRetry retries a rate-limited request up to maxRequestRetries
// times, sleeping for the server-supplied Retry-After when the response
// carries one and falling back to capped exponential backoff otherwise.
func (p *Provider) doChatWithRetry(ctx context.Context, req chatRequest) (chatResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRequestRetries; attempt++ {
		resp, err := p.doChat(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var retryable *httpclient.RetryableError
		if !errors.As(err, &retryable) || !retryable.IsRetryable() || attempt == maxRequestRetries {
			return chatResponse{}, err
		}

		backoff := retryable.RetryAfter
		if backoff <= 0 {
			backoff = time.Duration(1<<uint(attempt)) * time.Second
		}
		if backoff > maxRequestBackoff {
			backoff = maxRequestBackoff
		}
		p.sleep(backoff)
	}
	return chatResponse{}, lastErr
}

func (p *Provider) doChat(ctx context.Context, req chatRequest) (chatResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return chatResponse{}, apperrors.Wrap(apperrors.KindProviderBadResponse, "OllamaProvider", "Request", "encoding request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return chatResponse{}, apperrors.Wrap(apperrors.KindProviderUnavailable, "OllamaProvider", "Request", "building request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return chatResponse{}, classifyHTTPErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		info := httpclient.ParseOpenAIRateLimitHeaders(resp.Header)
		retryable := &httpclient.RetryableError{
			StatusCode: resp.StatusCode,
			Message:    "ollama rate limited",
			RetryAfter: info.RetryAfter,
			Err:        fmt.Errorf("ollama returned status 429"),
		}
		return chatResponse{}, apperrors.RateLimited("OllamaProvider", "Request", int(info.RetryAfter.Seconds()), retryable)
	}
	if resp.StatusCode != http.StatusOK {
		return chatResponse{}, apperrors.New(apperrors.KindProviderBadResponse, "OllamaProvider", "Request",
			fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return chatResponse{}, apperrors.Wrap(apperrors.KindProviderBadResponse, "OllamaProvider", "Request", "decoding response", err)
	}
	return out, nil
}

func classifyHTTPErr(err error) error {
	if timeoutErr, ok := err.(interface{ Timeout() bool }); ok && timeoutErr.Timeout() {
		return apperrors.Wrap(apperrors.KindProviderTimeout, "OllamaProvider", "Request", "request timed out", err)
	}
	return apperrors.Wrap(apperrors.KindProviderUnavailable, "OllamaProvider", "Request", "request failed", err)
}

func optionsFrom(opts llms.RequestOptions) map[string]any {
	options := map[string]any{}
	if opts.Temperature != 0 {
		options["temperature"] = opts.Temperature
	}
	if opts.MaxTokens != 0 {
		options["num_predict"] = opts.MaxTokens
	}
	if len(options) == 0 {
		return nil
	}
	return options
}

func registeredIn(tools []llms.ToolDescription) func(string) bool {
	names := make(map[string]bool, len(tools))
	for _, t := range tools {
		names[t.Name] = true
	}
	return func(name string) bool { return names[name] }
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
