package llms

import "context"

// Provider is the capability contract every backend implements (spec §4.2).
type Provider interface {
	// Name returns the provider's catalog id (e.g. "openai", "anthropic").
	Name() string

	// Capabilities reports which optional features this backend supports.
	Capabilities() Capabilities

	// Request sends messages to the model and returns a normalized reply.
	Request(ctx context.Context, messages []Message, opts RequestOptions) (ProviderReply, error)

	// Stream sends messages and yields text chunks via yield. Stream
	// returns once the sequence is exhausted or yield returns false, and
	// implicitly signals end-of-stream by returning.
	Stream(ctx context.Context, messages []Message, opts RequestOptions, yield func(chunk string) bool) error

	// AddToolMessage returns a new message list with a provider-appropriate
	// tool-response entry appended for the named tool call.
	AddToolMessage(messages []Message, toolName string, content string) []Message
}
