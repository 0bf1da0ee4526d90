package provider

import "github.com/rhuss/autoif/pkg/api"

// Request is the backend-facing generation request.
type Request struct {
	Model    string
	Messages []api.Message
	Params   api.SamplingParams
}

// Response carries the completions of one request.
type Response struct {
	Model string

	// Completions holds one text per returned choice, in choice order.
	Completions []string

	Usage Usage
}

// Usage holds token counts reported by the backend.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// ModelInfo holds information about a model served by the provider.
type ModelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object,omitempty"`
	OwnedBy string `json:"owned_by,omitempty"`
}
