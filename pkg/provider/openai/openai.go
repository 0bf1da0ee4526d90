package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/sashabaranov/go-openai"

	"github.com/rhuss/autoif/pkg/api"
	"github.com/rhuss/autoif/pkg/provider"
)

// Config holds configuration for the OpenAI provider adapter.
type Config struct {
	// BaseURL is the API root. "/v1" is appended when missing. Empty means
	// the public OpenAI endpoint.
	BaseURL string

	// APIKey for bearer authentication.
	APIKey string

	// Timeout for individual HTTP requests. Defaults to 10m.
	Timeout time.Duration
}

// OpenAIProvider implements provider.Provider using go-openai.
type OpenAIProvider struct {
	client     *oai.Client
	httpClient *http.Client
}

// Ensure OpenAIProvider implements provider.Provider at compile time.
var _ provider.Provider = (*OpenAIProvider)(nil)

// New creates a new OpenAIProvider.
func New(cfg Config) (*OpenAIProvider, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Minute
	}

	clientCfg := oai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		base := strings.TrimRight(cfg.BaseURL, "/")
		if !strings.HasSuffix(base, "/v1") {
			base += "/v1"
		}
		clientCfg.BaseURL = base
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}
	clientCfg.HTTPClient = httpClient

	return &OpenAIProvider{
		client:     oai.NewClientWithConfig(clientCfg),
		httpClient: httpClient,
	}, nil
}

// Name returns the provider identifier.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Generate performs one chat completion and returns every choice.
// RepetitionPenalty has no OpenAI equivalent and is not sent.
func (p *OpenAIProvider) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	params := req.Params
	chatReq := oai.ChatCompletionRequest{
		Model: req.Model,
		N:     params.Completions(),
	}
	for _, m := range req.Messages {
		chatReq.Messages = append(chatReq.Messages, oai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	if params.Temperature != nil {
		chatReq.Temperature = float32(*params.Temperature)
	}
	if params.TopP != nil {
		chatReq.TopP = float32(*params.TopP)
	}
	if params.FrequencyPenalty != nil {
		chatReq.FrequencyPenalty = float32(*params.FrequencyPenalty)
	}
	if params.MaxTokens != nil {
		chatReq.MaxTokens = *params.MaxTokens
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, mapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, api.NewServiceError(fmt.Sprintf("backend returned no choices for model %q", req.Model), nil)
	}

	completions := make([]string, len(resp.Choices))
	for i, c := range resp.Choices {
		idx := c.Index
		if idx < 0 || idx >= len(completions) {
			idx = i
		}
		completions[idx] = c.Message.Content
	}

	return &provider.Response{
		Model:       resp.Model,
		Completions: completions,
		Usage: provider.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}, nil
}

// ListModels returns the models the API key can use.
func (p *OpenAIProvider) ListModels(ctx context.Context) ([]provider.ModelInfo, error) {
	list, err := p.client.ListModels(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	models := make([]provider.ModelInfo, 0, len(list.Models))
	for _, m := range list.Models {
		models = append(models, provider.ModelInfo{
			ID:      m.ID,
			Object:  m.Object,
			OwnedBy: m.OwnedBy,
		})
	}
	return models, nil
}

// Close releases provider resources.
func (p *OpenAIProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// mapError converts go-openai errors into service errors, keeping the
// HTTP status when the library reports one.
func mapError(err error) *api.Error {
	var apiErr *oai.APIError
	if errors.As(err, &apiErr) {
		e := api.NewServiceError(apiErr.Message, err)
		e.StatusCode = apiErr.HTTPStatusCode
		e.RateLimited = apiErr.HTTPStatusCode == http.StatusTooManyRequests
		return e
	}

	var reqErr *oai.RequestError
	if errors.As(err, &reqErr) {
		e := api.NewServiceError(fmt.Sprintf("backend error (HTTP %d)", reqErr.HTTPStatusCode), err)
		e.StatusCode = reqErr.HTTPStatusCode
		e.RateLimited = reqErr.HTTPStatusCode == http.StatusTooManyRequests
		return e
	}

	return api.NewServiceError("backend connection error", err)
}
