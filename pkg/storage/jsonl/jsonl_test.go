package jsonl

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhuss/autoif/pkg/storage"
)

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	require.NoError(t, err)

	records := []json.RawMessage{
		json.RawMessage("{\n  \"instruction\": \"answer in uppercase\"\n}"),
		json.RawMessage(`{"instruction":"use three bullet points","cases":[{"input":"a","output":true}]}`),
	}
	require.NoError(t, s.Write(ctx, "cross_validation", records))

	raw, err := os.ReadFile(s.Path("cross_validation"))
	require.NoError(t, err)
	assert.Equal(t,
		"{\"instruction\":\"answer in uppercase\"}\n"+
			"{\"instruction\":\"use three bullet points\",\"cases\":[{\"input\":\"a\",\"output\":true}]}\n",
		string(raw))

	got, err := s.Read(ctx, "cross_validation")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.JSONEq(t, string(records[0]), string(got[0]))
	assert.JSONEq(t, string(records[1]), string(got[1]))
}

func TestStore_ReadMissing(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = s.Read(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_ReadSkipsBlankLinesAndRejectsGarbage(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(s.Path("seeds"), []byte("{\"a\":1}\n\n{\"a\":2}"), 0o644))
	got, err := s.Read(ctx, "seeds")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	require.NoError(t, os.WriteFile(s.Path("broken"), []byte("{\"a\":1}\nnot json\n"), 0o644))
	_, err = s.Read(ctx, "broken")
	assert.ErrorContains(t, err, "line 2")
}

func TestStore_WriteRejectsInvalidRecord(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, "x", []json.RawMessage{json.RawMessage(`1`)}))

	err = s.Write(ctx, "x", []json.RawMessage{json.RawMessage(`{`)})
	require.Error(t, err)

	got, err := s.Read(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, []json.RawMessage{json.RawMessage(`1`)}, got, "failed write must not replace previous output")
}

func TestStore_EmptyOutput(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, "empty", nil))

	got, err := s.Read(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, got)
}
