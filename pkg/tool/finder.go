package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agentmesh/orchestrator/pkg/apperrors"
	"github.com/agentmesh/orchestrator/pkg/llms"
)

// Finder selects which registered tools are relevant to a prompt (spec §4.5).
// An empty result set is a valid outcome; Find never returns a ToolFinderFailed
// error for the caller to propagate further than "no tools found".
type Finder interface {
	Find(ctx context.Context, prompt string, recentMessages []string) map[string]bool
}

// AIToolFinder asks an LLM which tools are relevant.
type AIToolFinder struct {
	registry *Registry
	provider llms.Provider
	model    string
}

func NewAIToolFinder(registry *Registry, provider llms.Provider, model string) *AIToolFinder {
	return &AIToolFinder{registry: registry, provider: provider, model: model}
}

func (f *AIToolFinder) Find(ctx context.Context, prompt string, recentMessages []string) map[string]bool {
	catalog := f.registry.List()
	if len(catalog) == 0 {
		return map[string]bool{}
	}

	var b strings.Builder
	b.WriteString("Available tools:\n")
	for _, t := range catalog {
		fmt.Fprintf(&b, "%s: %s\n", t.Name, t.Description)
	}
	if len(recentMessages) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, m := range recentMessages {
			b.WriteString(m)
			b.WriteString("\n")
		}
	}
	b.WriteString("\nReturn exactly one JSON object of the form {\"tools\": [\"tool_name\", ...]} naming the tools relevant to this request:\n")
	b.WriteString(prompt)

	reply, err := f.provider.Request(ctx, []llms.Message{
		{Role: llms.RoleUser, Content: b.String()},
	}, llms.RequestOptions{Model: f.model})
	if err != nil {
		// A transient LLM failure degrades to "no tools found" (spec §4.5).
		_ = apperrors.Wrap(apperrors.KindToolFinderFailed, "AIToolFinder", "Find", "tool selection call failed", err)
		return map[string]bool{}
	}

	var parsed struct {
		Tools []string `json:"tools"`
	}
	body := stripFence(reply.Content)
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return map[string]bool{}
	}

	selected := map[string]bool{}
	for _, name := range parsed.Tools {
		if _, ok := f.registry.Get(name); ok {
			selected[name] = true
		}
		// Unknown tool names are silently dropped (spec §4.5).
	}
	return selected
}

// KeywordFinder selects tools whose description shares a non-stop-word
// token with the prompt.
type KeywordFinder struct {
	registry *Registry
}

func NewKeywordFinder(registry *Registry) *KeywordFinder {
	return &KeywordFinder{registry: registry}
}

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "of": true,
	"to": true, "in": true, "on": true, "for": true, "with": true, "is": true,
	"are": true, "this": true, "that": true, "it": true, "as": true, "by": true,
	"be": true, "from": true, "at": true, "into": true,
}

func (f *KeywordFinder) Find(_ context.Context, prompt string, _ []string) map[string]bool {
	promptLower := strings.ToLower(prompt)
	promptTokens := tokenSet(promptLower)

	selected := map[string]bool{}
	for _, t := range f.registry.List() {
		for token := range tokenize(strings.ToLower(t.Description)) {
			if stopWords[token] {
				continue
			}
			if promptTokens[token] {
				selected[t.Name] = true
				break
			}
		}
	}
	return selected
}

func tokenize(s string) map[string]bool {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	out := make(map[string]bool, len(fields))
	for _, f := range fields {
		out[f] = true
	}
	return out
}

func tokenSet(s string) map[string]bool { return tokenize(s) }

func stripFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
