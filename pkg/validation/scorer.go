package validation

import (
	"context"

	"github.com/rhuss/autoif/pkg/api"
)

// ResponseScorer grades model responses with accepted verifier functions.
type ResponseScorer struct {
	exec Executor
}

// NewResponseScorer creates a ResponseScorer.
func NewResponseScorer(exec Executor) *ResponseScorer {
	return &ResponseScorer{exec: exec}
}

// Accuracy is the mean outcome of every function that produced a boolean
// for response. Functions that error, time out or are unsafe are left out.
// It returns 0 when no function decided.
func (s *ResponseScorer) Accuracy(ctx context.Context, funcs []string, response string) float64 {
	decided, passed := 0, 0
	for _, fn := range funcs {
		if ctx.Err() != nil {
			break
		}
		v := s.exec.Evaluate(ctx, fn, response)
		if !v.Decided() {
			continue
		}
		decided++
		if v == api.VerdictPass {
			passed++
		}
	}
	if decided == 0 {
		return 0
	}
	return float64(passed) / float64(decided)
}

// Keep returns the responses whose accuracy is above zero, in order.
func (s *ResponseScorer) Keep(ctx context.Context, funcs []string, responses []string) ([]string, error) {
	var kept []string
	for _, r := range responses {
		if s.Accuracy(ctx, funcs, r) > 0 {
			kept = append(kept, r)
		}
		if err := ctx.Err(); err != nil {
			return kept, err
		}
	}
	return kept, nil
}
