package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rhuss/autoif/pkg/api"
	"github.com/rhuss/autoif/pkg/cache"
	"github.com/rhuss/autoif/pkg/config"
	"github.com/rhuss/autoif/pkg/pipeline"
	"github.com/rhuss/autoif/pkg/provider"
	"github.com/rhuss/autoif/pkg/storage/memory"
)

// scriptedProvider answers every prompt with respond, n times over.
type scriptedProvider struct {
	respond func(prompt string, i int) string
	calls   atomic.Int64
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Generate(_ context.Context, req *provider.Request) (*provider.Response, error) {
	p.calls.Add(1)
	out := make([]string, req.Params.Completions())
	for i := range out {
		out[i] = p.respond(req.Messages[0].Content, i)
	}
	return &provider.Response{Completions: out}, nil
}

func (p *scriptedProvider) ListModels(context.Context) ([]provider.ModelInfo, error) {
	return []provider.ModelInfo{{ID: "scripted"}}, nil
}

func (p *scriptedProvider) Close() error { return nil }

// lowercaseSandbox understands one kind of function: any source that calls
// lower() checks whether its input is all lowercase. Sources without an
// evaluate definition fail to load; everything else errors.
type lowercaseSandbox struct {
	compiles atomic.Int64
	runs     atomic.Int64
}

func (s *lowercaseSandbox) judge(code, input string) (bool, bool) {
	s.runs.Add(1)
	if !strings.Contains(code, "lower()") {
		return false, false
	}
	return input == strings.ToLower(input), true
}

func (s *lowercaseSandbox) Check(_ context.Context, code, input string, expected bool) api.Verdict {
	got, ok := s.judge(code, input)
	switch {
	case !ok:
		return api.VerdictError
	case got == expected:
		return api.VerdictPass
	}
	return api.VerdictFail
}

func (s *lowercaseSandbox) Evaluate(_ context.Context, code, input string) api.Verdict {
	got, ok := s.judge(code, input)
	switch {
	case !ok:
		return api.VerdictError
	case got:
		return api.VerdictPass
	}
	return api.VerdictFail
}

func (s *lowercaseSandbox) Compile(_ context.Context, code string) api.Verdict {
	s.compiles.Add(1)
	if strings.Contains(code, "def evaluate") {
		return api.VerdictPass
	}
	return api.VerdictError
}

// verifierAnswer renders a verifier response in the expected JSON block.
func verifierAnswer(fn string, cases ...api.TestCase) string {
	raw := make([]map[string]any, len(cases))
	for i, c := range cases {
		raw[i] = map[string]any{"input": c.Input, "output": c.Expected}
	}
	body, _ := json.Marshal(map[string]any{"func": fn, "cases": raw})
	return "Here you go:\n```json\n" + string(body) + "\n```"
}

// lowercaseAnswer is the i-th distinct lowercase verifier answer. Each
// carries two cases of its own.
func lowercaseAnswer(i int) string {
	fn := fmt.Sprintf("def evaluate(response):\n    return response == response.lower()  # variant %d", i)
	return verifierAnswer(fn,
		api.TestCase{Input: fmt.Sprintf("all lower %d", i), Expected: true},
		api.TestCase{Input: fmt.Sprintf("NOT LOWER %d", i), Expected: false},
	)
}

var instructionLine = regexp.MustCompile(`Here is the instruction: (.*)`)

// pipelineResponses scripts the model for a full run over lowercase
// instructions.
func pipelineResponses(prompt string, i int) string {
	switch {
	case strings.HasPrefix(prompt, "You are an expert for writing instructions"):
		return "Sure.\n- Answer in lowercase\n- Answer in lowercase\nnot a bullet\n- Use fewer than 50 words\n- "
	case strings.HasPrefix(prompt, "You are an expert for writing evaluation functions"):
		m := instructionLine.FindStringSubmatch(prompt)
		if m != nil && strings.Contains(m[1], "lowercase") {
			return lowercaseAnswer(i)
		}
		return "I am not able to write that function."
	case strings.HasPrefix(prompt, "Please translate"):
		return "Chinese: 用小写回答\nBack: Write everything in lowercase\nBack: Use only lowercase letters\nBack:   \nBack: Keep all letters lowercase"
	case strings.HasPrefix(prompt, "Please determine the relationship"):
		if strings.Contains(prompt, "Sentence 1: Respond in lowercase only") {
			return "Contradiction"
		}
		return "Entailment."
	case strings.HasPrefix(prompt, "Please answer the query"):
		return []string{"all lowercase answer", "Mixed Case Answer", "all lowercase answer", "another lower one"}[i%4]
	}
	return ""
}

// newContext returns a pipeline context over an in-memory store and
// cache.
func newContext(t *testing.T, p provider.Provider, sb pipeline.Sandbox) (*pipeline.Context, *memory.Store) {
	t.Helper()
	cfg := config.Defaults()
	cfg.Scheduler.Concurrency = 4
	cfg.Scheduler.ProgressInterval = 0
	cfg.Validation.Workers = 2

	c, err := cache.Open(cache.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	store := memory.New()
	return &pipeline.Context{
		RunID:    "test",
		Step:     1,
		Cache:    c,
		Config:   &cfg,
		Provider: p,
		Model:    "scripted",
		Store:    store,
		Sandbox:  sb,
	}, store
}
