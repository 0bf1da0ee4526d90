package api

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Message roles understood by the generation service.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role/content entry of a chat request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UserMessages wraps a single prompt as a one-message user conversation.
func UserMessages(prompt string) []Message {
	return []Message{{Role: RoleUser, Content: prompt}}
}

// SamplingParams controls generation for one request. A zero value field
// means "use the backend default" except N, which defaults to 1.
type SamplingParams struct {
	N                 int      `json:"n,omitempty" yaml:"n"`
	TopP              *float64 `json:"top_p,omitempty" yaml:"top_p"`
	Temperature       *float64 `json:"temperature,omitempty" yaml:"temperature"`
	FrequencyPenalty  *float64 `json:"frequency_penalty,omitempty" yaml:"frequency_penalty"`
	RepetitionPenalty *float64 `json:"repetition_penalty,omitempty" yaml:"repetition_penalty"`
	MaxTokens         *int     `json:"max_tokens,omitempty" yaml:"max_tokens"`
}

// Completions returns the requested completion count, never less than 1.
func (p SamplingParams) Completions() int {
	if p.N < 1 {
		return 1
	}
	return p.N
}

// WorkItem is one logical unit dispatched to the generation service.
// Ordinal must be stable across runs of the same stage so that cached
// results can be matched on resume.
type WorkItem struct {
	Ordinal  int
	Messages []Message

	// Metadata is owned by the caller and handed back to the result handler
	// untouched.
	Metadata any
}

// TestCase is one generated input with its expected verifier outcome.
type TestCase struct {
	Input    string `json:"input"`
	Expected bool   `json:"output"`
}

// UnmarshalJSON accepts the expected outcome either as a JSON boolean or as
// a "true"/"false" string, since models emit both.
func (tc *TestCase) UnmarshalJSON(data []byte) error {
	var raw struct {
		Input  *string         `json:"input"`
		Output json.RawMessage `json:"output"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Input == nil {
		return fmt.Errorf("test case: missing input")
	}
	expected, err := parseExpected(raw.Output)
	if err != nil {
		return fmt.Errorf("test case: %w", err)
	}
	tc.Input = *raw.Input
	tc.Expected = expected
	return nil
}

func parseExpected(raw json.RawMessage) (bool, error) {
	if len(raw) == 0 {
		return false, fmt.Errorf("missing output")
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false, fmt.Errorf("output must be a boolean, got %s", string(raw))
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("output must be true or false, got %q", s)
}

// ScoredFunction is a candidate verifier with its score over the filtered
// test cases. It serializes as a [function, score] pair.
type ScoredFunction struct {
	Source string
	Score  float64
}

// MarshalJSON encodes the function as a two-element array.
func (f ScoredFunction) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{f.Source, f.Score})
}

// UnmarshalJSON decodes a [function, score] pair.
func (f *ScoredFunction) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("scored function: want [source, score], got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &f.Source); err != nil {
		return fmt.Errorf("scored function source: %w", err)
	}
	if err := json.Unmarshal(pair[1], &f.Score); err != nil {
		return fmt.Errorf("scored function score: %w", err)
	}
	return nil
}

// Bundle is one instruction with its candidate functions and test cases.
// Before validation Scored is empty and Functions holds the raw candidates;
// after validation Scored holds the survivors and Cases the filtered set.
type Bundle struct {
	Instruction string           `json:"instruction"`
	Functions   []string         `json:"-"`
	Scored      []ScoredFunction `json:"eval_func"`
	Cases       []TestCase       `json:"cases"`
}

// Sources returns the function sources of the scored survivors.
func (b *Bundle) Sources() []string {
	out := make([]string, len(b.Scored))
	for i, f := range b.Scored {
		out[i] = f.Source
	}
	return out
}
