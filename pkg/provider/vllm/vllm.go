package vllm

import (
	"context"
	"fmt"
	"time"

	"github.com/rhuss/autoif/pkg/api"
	"github.com/rhuss/autoif/pkg/provider"
	"github.com/rhuss/autoif/pkg/provider/openaicompat"
)

// VLLMProvider implements provider.Provider for vLLM and OpenAI-compatible
// Chat Completions backends.
type VLLMProvider struct {
	cfg    Config
	client *openaicompat.Client
}

// Ensure VLLMProvider implements provider.Provider at compile time.
var _ provider.Provider = (*VLLMProvider)(nil)

// New creates a new VLLMProvider with the given configuration.
// Returns an error if the configuration is invalid.
func New(cfg Config) (*VLLMProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("vllm: BaseURL is required")
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Minute
	}

	client := openaicompat.NewClient(cfg.BaseURL, cfg.APIKey, cfg.Timeout)
	client.ExtraBody = extraBody

	return &VLLMProvider{
		cfg:    cfg,
		client: client,
	}, nil
}

// extraBody carries sampling parameters vLLM accepts beyond the OpenAI schema.
func extraBody(p api.SamplingParams) map[string]any {
	if p.RepetitionPenalty == nil {
		return nil
	}
	return map[string]any{"repetition_penalty": *p.RepetitionPenalty}
}

// Name returns the provider identifier.
func (p *VLLMProvider) Name() string {
	return "vllm"
}

// Generate performs one inference request against the Chat Completions endpoint.
func (p *VLLMProvider) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	return p.client.Generate(ctx, req)
}

// ListModels returns available models from the backend by querying
// the /v1/models endpoint.
func (p *VLLMProvider) ListModels(ctx context.Context) ([]provider.ModelInfo, error) {
	return p.client.ListModels(ctx)
}

// Close releases provider resources.
func (p *VLLMProvider) Close() error {
	return p.client.Close()
}
