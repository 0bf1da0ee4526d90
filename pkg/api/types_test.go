package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestCaseUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    TestCase
		wantErr bool
	}{
		{"bool output", `{"input":"abc","output":true}`, TestCase{Input: "abc", Expected: true}, false},
		{"string output", `{"input":"abc","output":"False"}`, TestCase{Input: "abc", Expected: false}, false},
		{"padded string", `{"input":"","output":" true "}`, TestCase{Input: "", Expected: true}, false},
		{"missing input", `{"output":true}`, TestCase{}, true},
		{"missing output", `{"input":"x"}`, TestCase{}, true},
		{"numeric output", `{"input":"x","output":1}`, TestCase{}, true},
		{"junk string", `{"input":"x","output":"maybe"}`, TestCase{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got TestCase
			err := json.Unmarshal([]byte(tt.in), &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBundleRecordShape(t *testing.T) {
	b := Bundle{
		Instruction: "Answer in lowercase.",
		Functions:   []string{"ignored"},
		Scored:      []ScoredFunction{{Source: "def evaluate(r): return r.islower()", Score: 0.9}},
		Cases:       []TestCase{{Input: "abc", Expected: true}},
	}
	data, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"instruction": "Answer in lowercase.",
		"eval_func": [["def evaluate(r): return r.islower()", 0.9]],
		"cases": [{"input": "abc", "output": true}]
	}`, string(data))

	var back Bundle
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, b.Scored, back.Scored)
	assert.Equal(t, b.Cases, back.Cases)
	assert.Equal(t, []string{"def evaluate(r): return r.islower()"}, back.Sources())
}

func TestSamplingParamsCompletions(t *testing.T) {
	assert.Equal(t, 1, SamplingParams{}.Completions())
	assert.Equal(t, 8, SamplingParams{N: 8}.Completions())
}

func TestVerdictDecided(t *testing.T) {
	assert.True(t, VerdictPass.Decided())
	assert.True(t, VerdictFail.Decided())
	assert.False(t, VerdictTimeout.Decided())
	assert.False(t, VerdictError.Decided())
	assert.False(t, VerdictUnsafe.Decided())
}
