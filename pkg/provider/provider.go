package provider

import "context"

// Provider abstracts a chat-completion generation backend.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Provider interface {
	// Name returns the provider identifier (e.g., "vllm", "openai").
	Name() string

	// Generate performs one chat-completion request and returns all
	// sampled completions in choice order.
	Generate(ctx context.Context, req *Request) (*Response, error)

	// ListModels returns available models from the backend.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// Close releases provider resources (HTTP clients, connections).
	Close() error
}
