package validation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseScorer(t *testing.T) {
	exec := &fakeExecutor{funcs: map[string]func(string) bool{
		"upper": func(s string) bool { return s == "HELLO" || s == "HI" },
		"short": func(s string) bool { return len(s) <= 2 },
	}}
	s := NewResponseScorer(exec)
	ctx := context.Background()
	funcs := []string{"upper", "short", "broken"}

	assert.InDelta(t, 1.0, s.Accuracy(ctx, funcs, "HI"), 1e-9)
	assert.InDelta(t, 0.5, s.Accuracy(ctx, funcs, "HELLO"), 1e-9)
	assert.InDelta(t, 0.0, s.Accuracy(ctx, funcs, "hello"), 1e-9)
	assert.InDelta(t, 0.0, s.Accuracy(ctx, []string{"broken"}, "HI"), 1e-9)

	kept, err := s.Keep(ctx, funcs, []string{"hello", "HELLO", "HI", "nope"})
	require.NoError(t, err)
	assert.Equal(t, []string{"HELLO", "HI"}, kept)
}
