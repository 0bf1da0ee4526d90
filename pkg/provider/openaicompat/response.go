package openaicompat

import (
	"sort"

	"github.com/rhuss/autoif/pkg/provider"
)

// TranslateResponse converts a ChatCompletionResponse into a provider
// Response. Choices are ordered by index; a choice without string content
// yields an empty completion so positions stay aligned with n.
func TranslateResponse(resp *ChatCompletionResponse) *provider.Response {
	pr := &provider.Response{
		Model: resp.Model,
	}

	if resp.Usage != nil {
		pr.Usage = provider.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		}
	}

	choices := make([]ChatChoice, len(resp.Choices))
	copy(choices, resp.Choices)
	sort.SliceStable(choices, func(i, j int) bool { return choices[i].Index < choices[j].Index })

	for _, choice := range choices {
		pr.Completions = append(pr.Completions, ExtractContentString(choice.Message.Content))
	}

	return pr
}

// ExtractContentString attempts to get a plain string from the message content.
// The content field in Chat Completions can be a string or nil.
func ExtractContentString(content any) string {
	if content == nil {
		return ""
	}
	switch v := content.(type) {
	case string:
		return v
	default:
		return ""
	}
}
