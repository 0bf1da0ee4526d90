package validation

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhuss/autoif/pkg/api"
)

// fakeExecutor maps function source to a Go predicate. Unknown sources
// produce ERROR.
type fakeExecutor struct {
	funcs map[string]func(string) bool
	calls atomic.Int64
}

func (f *fakeExecutor) run(code, input string) (bool, bool) {
	f.calls.Add(1)
	fn, ok := f.funcs[code]
	if !ok {
		return false, false
	}
	return fn(input), true
}

func (f *fakeExecutor) Check(_ context.Context, code, input string, expected bool) api.Verdict {
	v, ok := f.run(code, input)
	switch {
	case !ok:
		return api.VerdictError
	case v == expected:
		return api.VerdictPass
	default:
		return api.VerdictFail
	}
}

func (f *fakeExecutor) Evaluate(_ context.Context, code, input string) api.Verdict {
	v, ok := f.run(code, input)
	switch {
	case !ok:
		return api.VerdictError
	case v:
		return api.VerdictPass
	default:
		return api.VerdictFail
	}
}

func always(v bool) func(string) bool { return func(string) bool { return v } }

func equals(s string) func(string) bool { return func(in string) bool { return in == s } }

func TestEngine_F1F2Scenario(t *testing.T) {
	exec := &fakeExecutor{funcs: map[string]func(string) bool{
		"f1": always(true),
		"f2": equals("x"),
	}}
	e := NewEngine(exec, DefaultConfig())
	b := &api.Bundle{
		Instruction: "answer with x",
		Functions:   []string{"f1", "f2"},
		Cases:       []api.TestCase{{Input: "x", Expected: true}, {Input: "y", Expected: false}},
	}

	report, err := e.Score(context.Background(), b)
	require.NoError(t, err)
	assert.Len(t, report.Cases, 2)
	require.Len(t, report.Functions, 2)
	assert.Equal(t, api.ScoredFunction{Source: "f1", Score: 0.5}, report.Functions[0])
	assert.Equal(t, api.ScoredFunction{Source: "f2", Score: 1.0}, report.Functions[1])

	// Only f2 reaches the score threshold, which is below the density floor.
	lenient := NewEngine(exec, Config{MinScore: 0.8, MinFunctions: 2, MinCases: 2})
	out, err := lenient.Validate(context.Background(), b)
	assert.Nil(t, out)
	assert.True(t, api.IsKind(err, api.ErrorKindLowDensity))

	out, err = e.Validate(context.Background(), b)
	assert.Nil(t, out)
	assert.True(t, api.IsKind(err, api.ErrorKindLowDensity))
}

// denseBundle returns a bundle of three functions that all accept the
// inputs "0" to cases-1, followed by the extra function names.
func denseBundle(cases int, extra ...string) (*api.Bundle, map[string]func(string) bool) {
	funcs := map[string]func(string) bool{
		"nonempty": func(s string) bool { return s != "" },
		"short":    func(s string) bool { return len(s) >= 1 && len(s) < 5 },
		"digits": func(s string) bool {
			for _, r := range s {
				if r < '0' || r > '9' {
					return false
				}
			}
			return s != ""
		},
	}
	b := &api.Bundle{Instruction: "reply with a short number", Functions: []string{"nonempty", "short", "digits"}}
	for i := range cases {
		b.Cases = append(b.Cases, api.TestCase{Input: fmt.Sprint(i), Expected: true})
	}
	b.Functions = append(b.Functions, extra...)
	return b, funcs
}

func TestEngine_Validate_Accepts(t *testing.T) {
	b, funcs := denseBundle(10, "never")
	funcs["never"] = always(false)
	// No function accepts the empty string, so this case is filtered out.
	b.Cases = append(b.Cases, api.TestCase{Input: "", Expected: true})

	e := NewEngine(&fakeExecutor{funcs: funcs}, DefaultConfig())
	out, err := e.Validate(context.Background(), b)
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.Equal(t, b.Instruction, out.Instruction)
	assert.Len(t, out.Cases, 10)
	require.Len(t, out.Scored, 3)
	for _, f := range out.Scored {
		assert.GreaterOrEqual(t, f.Score, 0.8)
		assert.NotEqual(t, "never", f.Source)
	}
}

func TestEngine_Validate_Invariants(t *testing.T) {
	b, funcs := denseBundle(12, "half")
	funcs["half"] = func(s string) bool { return s < "6" }
	b.Cases = append(b.Cases,
		api.TestCase{Input: "abc", Expected: false},
		api.TestCase{Input: "123456", Expected: false},
	)
	exec := &fakeExecutor{funcs: funcs}
	e := NewEngine(exec, DefaultConfig())

	out, err := e.Validate(context.Background(), b)
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.GreaterOrEqual(t, len(out.Scored), 3)
	assert.GreaterOrEqual(t, len(out.Cases), 10)
	for _, tc := range out.Cases {
		agreed := false
		for _, f := range out.Scored {
			if exec.Check(context.Background(), f.Source, tc.Input, tc.Expected) == api.VerdictPass {
				agreed = true
			}
		}
		assert.True(t, agreed, "case %q not answered by any surviving function", tc.Input)
	}
	for _, f := range out.Scored {
		assert.GreaterOrEqual(t, f.Score, 0.8, f.Source)
	}
}

func TestEngine_Validate_DropsCasesOnlyDroppedFunctionsAnswer(t *testing.T) {
	exec := &fakeExecutor{funcs: map[string]func(string) bool{
		"a":     always(true),
		"b":     always(true),
		"c":     always(true),
		"never": always(false),
	}}
	b := &api.Bundle{Instruction: "say yes", Functions: []string{"a", "b", "c", "never"}}
	for i := range 10 {
		b.Cases = append(b.Cases, api.TestCase{Input: fmt.Sprint(i), Expected: true})
	}
	// Only "never" agrees with this case, and "never" scores 1/11.
	b.Cases = append(b.Cases, api.TestCase{Input: "z", Expected: false})

	out, err := NewEngine(exec, DefaultConfig()).Validate(context.Background(), b)
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.Len(t, out.Cases, 10)
	for _, tc := range out.Cases {
		assert.NotEqual(t, "z", tc.Input)
	}
	require.Len(t, out.Scored, 3)
	for _, f := range out.Scored {
		assert.Equal(t, 1.0, f.Score, f.Source)
	}
}

func TestEngine_Validate_RechecksDensityAfterCaseRemoval(t *testing.T) {
	exec := &fakeExecutor{funcs: map[string]func(string) bool{
		"a":     always(true),
		"b":     always(true),
		"c":     always(true),
		"never": always(false),
	}}
	b := &api.Bundle{Instruction: "say yes", Functions: []string{"a", "b", "c", "never"}}
	for i := range 9 {
		b.Cases = append(b.Cases, api.TestCase{Input: fmt.Sprint(i), Expected: true})
	}
	b.Cases = append(b.Cases, api.TestCase{Input: "z", Expected: false})

	out, err := NewEngine(exec, DefaultConfig()).Validate(context.Background(), b)
	assert.Nil(t, out)
	assert.True(t, api.IsKind(err, api.ErrorKindLowDensity), "got %v", err)
}

func TestEngine_Validate_Dedupes(t *testing.T) {
	b, funcs := denseBundle(10)
	b.Functions = append(b.Functions, b.Functions...)
	b.Cases = append(b.Cases, b.Cases...)
	exec := &fakeExecutor{funcs: funcs}

	out, err := NewEngine(exec, DefaultConfig()).Validate(context.Background(), b)
	require.NoError(t, err)
	assert.Len(t, out.Scored, 3)
	assert.Len(t, out.Cases, 10)
	assert.Equal(t, int64(30), exec.calls.Load())
}

func TestEngine_Validate_EarlyExit(t *testing.T) {
	exec := &fakeExecutor{funcs: map[string]func(string) bool{"f": always(true)}}
	b := &api.Bundle{
		Instruction: "too thin",
		Functions:   []string{"f", "f", "f"},
		Cases:       []api.TestCase{{Input: "a", Expected: true}},
	}

	out, err := NewEngine(exec, DefaultConfig()).Validate(context.Background(), b)
	assert.Nil(t, out)
	assert.True(t, api.IsKind(err, api.ErrorKindLowDensity))
	assert.Zero(t, exec.calls.Load(), "no sandbox call expected below the density floor")
}

func TestEngine_Validate_ErroringFunctionsNeverAgree(t *testing.T) {
	b, funcs := denseBundle(10, "broken")
	exec := &fakeExecutor{funcs: funcs}

	out, err := NewEngine(exec, DefaultConfig()).Validate(context.Background(), b)
	require.NoError(t, err)
	for _, f := range out.Scored {
		assert.NotEqual(t, "broken", f.Source)
	}
}

func TestEngine_Score_Cancelled(t *testing.T) {
	b, funcs := denseBundle(10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEngine(&fakeExecutor{funcs: funcs}, DefaultConfig()).Score(ctx, b)
	assert.ErrorIs(t, err, context.Canceled)
}
