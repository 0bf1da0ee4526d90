package stages

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhuss/autoif/pkg/api"
	"github.com/rhuss/autoif/pkg/debug"
)

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantFunc string
		wantCase []api.TestCase
		wantKind api.ErrorKind
	}{
		{
			name:     "escaped newlines and string outputs",
			response: "```json\n{\"func\": \"def evaluate(response):\\\\n    return len(response) < 10\", \"cases\": [{\"input\": \"hi\", \"output\": \"true\"}, {\"input\": \"a long response\", \"output\": false}]}\n```",
			wantFunc: "def evaluate(response):\n    return len(response) < 10",
			wantCase: []api.TestCase{{Input: "hi", Expected: true}, {Input: "a long response", Expected: false}},
		},
		{
			name:     "network lines dropped",
			response: "```json\n{\"func\": \"import requests\\ndef evaluate(response):\\n    download_it()\\n    return True\", \"cases\": []}\n```",
			wantFunc: "def evaluate(response):\n    return True",
			wantCase: []api.TestCase{},
		},
		{
			name:     "undecodable case skipped",
			response: "```json{\"func\": \"def evaluate(r): return True\", \"cases\": [{\"input\": \"x\"}, {\"input\": \"y\", \"output\": true}, 3]}```",
			wantFunc: "def evaluate(r): return True",
			wantCase: []api.TestCase{{Input: "y", Expected: true}},
		},
		{
			name:     "no json block",
			response: "{\"func\": \"def evaluate(r): return True\"}",
			wantKind: api.ErrorKindMalformedOutput,
		},
		{
			name:     "invalid json",
			response: "```json\n{\"func\": \n```",
			wantKind: api.ErrorKindMalformedOutput,
		},
		{
			name:     "missing func",
			response: "```json\n{\"cases\": []}\n```",
			wantKind: api.ErrorKindMalformedOutput,
		},
		{
			name:     "denylisted",
			response: "```json\n{\"func\": \"import os\\ndef evaluate(r):\\n    return True\", \"cases\": []}\n```",
			wantKind: api.ErrorKindUnsafeCode,
		},
		{
			name:     "network access",
			response: "```json\n{\"func\": \"import socket\\ndef evaluate(r):\\n    socket.gethostbyname(r)\\n    return True\", \"cases\": []}\n```",
			wantKind: api.ErrorKindUnsafeCode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, cases, err := parseAnswer(tt.response)
			if tt.wantKind != "" {
				require.Error(t, err)
				assert.True(t, api.IsKind(err, tt.wantKind), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFunc, fn)
			assert.Equal(t, tt.wantCase, cases)
		})
	}
}

func TestBuildBundle_DropsUnloadableAnswers(t *testing.T) {
	loads := verifierAnswer("def evaluate(r):\n    return r == r.lower()",
		api.TestCase{Input: "a", Expected: true})
	broken := verifierAnswer("evaluate = None",
		api.TestCase{Input: "b", Expected: false})
	unsafe := verifierAnswer("def evaluate(r):\n    exit(1)",
		api.TestCase{Input: "c", Expected: false})

	b := buildBundle(context.Background(), &lowercaseSandbox{}, VerifierRecord{
		Instruction: "Answer in lowercase",
		Answers:     []string{loads, broken, unsafe, "nothing"},
	})

	assert.Equal(t, "Answer in lowercase", b.Instruction)
	assert.Equal(t, []string{"def evaluate(r):\n    return r == r.lower()"}, b.Functions)
	assert.Equal(t, []api.TestCase{{Input: "a", Expected: true}}, b.Cases)
}

func TestParseAnswer_LogsUnderPipelineCategory(t *testing.T) {
	prevEnv, hadEnv := os.LookupEnv("AUTOIF_DEBUG")
	prevLogger := slog.Default()
	os.Setenv("AUTOIF_DEBUG", "pipeline")
	debug.Init("", "DEBUG", "text")
	t.Cleanup(func() {
		if hadEnv {
			os.Setenv("AUTOIF_DEBUG", prevEnv)
		} else {
			os.Unsetenv("AUTOIF_DEBUG")
		}
		debug.Init("", "", "text")
		slog.SetDefault(prevLogger)
	})

	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	_, _, err := parseAnswer("```json{\"func\": \"def evaluate(r): return True\", \"cases\": [3]}```")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "debug=pipeline")
	assert.Contains(t, buf.String(), "skipping test case")
}
