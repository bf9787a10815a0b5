package llms

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BuildToolInstructionBlock appends tool descriptions to the user prompt as
// an instruction block requiring a single JSON object reply, for providers
// that are tool-capable but expose no native tool-calling API (spec §4.2
// step 1). It is the teacher's Gemini-adapter injection technique,
// generalized behind the Provider contract so it applies to any emulated
// backend (here: Ollama).
func BuildToolInstructionBlock(tools []ToolDescription) string {
	if len(tools) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("You may call exactly one of the following tools if it helps answer the request.\n")
	b.WriteString("Available tools:\n")
	for _, t := range tools {
		b.WriteString(fmt.Sprintf("- %s: %s\n", t.Name, t.Description))
	}
	b.WriteString("To call a tool, reply with ONLY a single JSON object of the exact shape ")
	b.WriteString(`{"tool": "<name>", "parameters": {...}}` + " and nothing else — no prose, no markdown around it.\n")
	b.WriteString("If no tool is needed, answer normally in plain text.\n")
	return b.String()
}

type emulatedToolCall struct {
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters"`
}

// ParseEmulatedToolCall attempts to recover a synthetic ToolCall from a
// model reply that was asked to respond with a bare JSON object (spec §4.2
// steps 2-3). It strips one pair of fenced-code markers if present, then
// requires the trimmed body to parse as JSON *exclusively* — partial
// matches inside prose are rejected per spec §9's mitigation note, which
// means this function does not scan for embedded JSON.
//
// registered reports whether a given tool name is known; unknown names are
// treated as "no tool call" rather than erroring, matching the AIToolFinder
// policy of dropping unrecognized names.
func ParseEmulatedToolCall(reply string, registered func(name string) bool, genID func(name string) string) (ToolCall, bool) {
	body := stripFence(strings.TrimSpace(reply))
	if body == "" || body[0] != '{' {
		return ToolCall{}, false
	}

	var call emulatedToolCall
	dec := json.NewDecoder(strings.NewReader(body))
	if err := dec.Decode(&call); err != nil {
		return ToolCall{}, false
	}
	// Reject trailing content after the object: the reply must be
	// exclusively the JSON object, per spec §9.
	if dec.More() {
		return ToolCall{}, false
	}
	if call.Tool == "" || !registered(call.Tool) {
		return ToolCall{}, false
	}

	id := fmt.Sprintf("tool-%s", call.Tool)
	if genID != nil {
		id = genID(call.Tool)
	}
	return ToolCall{ID: id, Name: call.Tool, Arguments: call.Parameters}, true
}

// stripFence removes one pair of ``` fenced-code markers around body, if
// present, including an optional language tag on the opening fence.
func stripFence(body string) string {
	if !strings.HasPrefix(body, "```") {
		return body
	}
	rest := strings.TrimPrefix(body, "```")
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		// drop optional language tag on the opening fence line
		rest = rest[nl+1:]
	}
	rest = strings.TrimSuffix(strings.TrimRight(rest, "\n"), "```")
	return strings.TrimSpace(rest)
}
