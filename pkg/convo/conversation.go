// Package convo implements the Conversation Manager (spec §4.6): an
// in-memory, mutex-guarded message buffer with thought extraction, adopted
// from the teacher's pkg/context.ConversationHistory.
package convo

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/agentmesh/orchestrator/pkg/llms"
)

// Message is one turn in a Conversation.
type Message struct {
	ID       string
	Role     llms.Role
	Content  string
	Thoughts string
}

// thinkBlock matches the first non-nested <think>...</think> block,
// non-greedy so it stops at the first closing tag (spec §4.6).
var thinkBlock = regexp.MustCompile(`(?s)<think>(.*?)</think>`)

// Conversation is a single conversation's in-memory message buffer, context,
// and metadata.
type Conversation struct {
	mu       sync.RWMutex
	id       string
	messages []Message
	metadata map[string]any
	context  map[string]any
}

// New creates an empty Conversation identified by id.
func New(id string) *Conversation {
	return &Conversation{
		id:       id,
		messages: make([]Message, 0),
		metadata: make(map[string]any),
		context:  make(map[string]any),
	}
}

// AddMessageOptions configures a single AddMessage call.
type AddMessageOptions struct {
	ExtractThoughts bool
	ShowThinking    bool
}

// AddMessage appends a message, applying thought extraction when requested
// and the role is assistant (spec §4.6).
func (c *Conversation) AddMessage(role llms.Role, content string, opts AddMessageOptions) Message {
	msg := Message{ID: uuid.New().String(), Role: role, Content: content}

	if opts.ExtractThoughts && role == llms.RoleAssistant {
		msg = extractThoughts(msg, opts.ShowThinking)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	return msg
}

// AddInteraction appends a user message followed by its assistant reply.
func (c *Conversation) AddInteraction(user, assistant string) {
	c.AddMessage(llms.RoleUser, user, AddMessageOptions{})
	c.AddMessage(llms.RoleAssistant, assistant, AddMessageOptions{})
}

// GetMessages returns all messages in add order.
func (c *Conversation) GetMessages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// GetLast returns the most recently added message, if any.
func (c *Conversation) GetLast() (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// ClearMessages removes all messages but leaves metadata and context intact.
func (c *Conversation) ClearMessages() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = make([]Message, 0)
}

func (c *Conversation) SetMetadata(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metadata[key] = value
}

func (c *Conversation) GetMetadata(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.metadata[key]
	return v, ok
}

func (c *Conversation) SetContext(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.context[key] = value
}

func (c *Conversation) GetContext(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.context[key]
	return v, ok
}

// Reset clears messages, metadata, and context together (spec §4.6 invariant).
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = make([]Message, 0)
	c.metadata = make(map[string]any)
	c.context = make(map[string]any)
}

func extractThoughts(msg Message, showThinking bool) Message {
	loc := thinkBlock.FindStringSubmatchIndex(msg.Content)
	if loc == nil {
		return msg
	}

	msg.Thoughts = msg.Content[loc[2]:loc[3]]
	if showThinking {
		return msg
	}

	stripped := msg.Content[:loc[0]] + msg.Content[loc[1]:]
	stripped = strings.TrimSpace(stripped)
	if stripped == "" {
		// Fall back to whatever follows the last </think> close tag.
		if end := strings.LastIndex(msg.Content, "</think>"); end >= 0 {
			stripped = strings.TrimSpace(msg.Content[end+len("</think>"):])
		}
	}
	msg.Content = stripped
	return msg
}

// ID returns the conversation's identifier, mainly for diagnostics.
func (c *Conversation) ID() string { return c.id }

func (c *Conversation) String() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return fmt.Sprintf("Conversation(%s, %d messages)", c.id, len(c.messages))
}
