package openaicompat

import (
	"github.com/rhuss/autoif/pkg/provider"
)

// TranslateToChat converts a provider Request into a ChatCompletionRequest
// suitable for the /v1/chat/completions endpoint.
func TranslateToChat(req *provider.Request) ChatCompletionRequest {
	p := req.Params
	cr := ChatCompletionRequest{
		Model:            req.Model,
		Temperature:      p.Temperature,
		TopP:             p.TopP,
		MaxTokens:        p.MaxTokens,
		N:                p.Completions(),
		FrequencyPenalty: p.FrequencyPenalty,
	}

	for _, m := range req.Messages {
		cr.Messages = append(cr.Messages, ChatMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	return cr
}
