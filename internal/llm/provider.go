package llm

import "context"

// Provider defines the interface for LLM providers.
type Provider interface {
	// Chat sends a tool-augmented chat request and returns either final
	// text content or a set of requested tool calls.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	// Complete sends a plain completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name returns the name of this provider.
	Name() string
}
