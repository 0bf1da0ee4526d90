package main

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhuss/autoif/pkg/api"
	"github.com/rhuss/autoif/pkg/provider"
	"github.com/rhuss/autoif/pkg/provider/vllm"
)

func newProvider(t *testing.T) provider.Provider {
	t.Helper()
	ts := httptest.NewServer(newMux("mock-model"))
	t.Cleanup(ts.Close)
	p, err := vllm.New(vllm.DefaultConfig(ts.URL))
	require.NoError(t, err)
	return p
}

func TestChatCompletions_ReturnsNChoices(t *testing.T) {
	p := newProvider(t)

	resp, err := p.Generate(context.Background(), &provider.Request{
		Model:    "mock-model",
		Messages: api.UserMessages("Please answer the query strictly following the instruction.\n[instruction] x\n[Query] y"),
		Params:   api.SamplingParams{N: 4},
	})
	require.NoError(t, err)
	assert.Equal(t, queryAnswers, resp.Completions)
}

func TestModels(t *testing.T) {
	models, err := newProvider(t).ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "mock-model", models[0].ID)
}

var block = regexp.MustCompile("(?s)```json(.*?)```")

func TestVerifierAnswer(t *testing.T) {
	for _, ins := range []string{"Answer in lowercase letters only", "Use fewer than 50 words", "Do not use any commas"} {
		text := respond("You are an expert for writing evaluation functions in Python.\nHere is the instruction: "+ins+"\nPlease write", 2)
		m := block.FindStringSubmatch(text)
		require.NotNil(t, m, ins)

		var a struct {
			Func  string         `json:"func"`
			Cases []api.TestCase `json:"cases"`
		}
		require.NoError(t, json.Unmarshal([]byte(m[1]), &a), ins)
		assert.True(t, strings.HasPrefix(a.Func, "def evaluate(response):"), ins)
		assert.Len(t, a.Cases, 2)
	}

	assert.NotContains(t, respond("You are an expert for writing evaluation functions\nHere is the instruction: Write a haiku\n", 0), "```json")
}

func TestBackTranslation(t *testing.T) {
	text := respond("Please translate the following instruction into Chinese.\nInstruction: Use fewer than 50 words\nPlease respond", 0)
	assert.Equal(t, 3, strings.Count(text, "\nBack: "))
	assert.Contains(t, text, "Back: Please use fewer than 50 words")
}
