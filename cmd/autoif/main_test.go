package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhuss/autoif/pkg/cache"
	"github.com/rhuss/autoif/pkg/config"
	"github.com/rhuss/autoif/pkg/storage/memory"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "autoif.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "autoif version dev\n", out)
}

func TestCacheStatus(t *testing.T) {
	dir := t.TempDir()
	root := cache.Root{Dir: dir}
	c, err := root.Open(3)
	require.NoError(t, err)
	require.NoError(t, c.BufferedUpdate(0, "done"))
	require.NoError(t, c.BufferedUpdate(1, "done"))
	require.NoError(t, c.Close())

	out, err := execute(t, "cache", "status", "--config", writeConfig(t, "pipeline:\n  cache_dir: "+dir+"\n"))
	require.NoError(t, err)
	assert.Contains(t, out, "crossval")
	assert.Contains(t, out, root.StageDir(3))
	assert.Regexp(t, `3\s+crossval\s+2\s`, out)
}

func TestCacheStatus_Empty(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "cache", "status", "--config", writeConfig(t, "pipeline:\n  cache_dir: "+dir+"\n"))
	require.NoError(t, err)
	assert.Contains(t, out, "no stages in progress")
}

func TestRun_InvalidRangeIsRejected(t *testing.T) {
	_, err := execute(t, "run", "--config", writeConfig(t, `
engine:
  backend_url: http://127.0.0.1:1
pipeline:
  seed_file: seeds.txt
`), "--start-step", "5", "--end-step", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline step range")
}

func TestNewStore(t *testing.T) {
	cfg := config.Defaults()
	cfg.Storage.Type = "memory"
	s, err := newStore(context.Background(), &cfg)
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, s)

	cfg.Storage.Type = "redis"
	_, err = newStore(context.Background(), &cfg)
	assert.Error(t, err)
}

func TestNewProvider(t *testing.T) {
	_, err := newProvider(config.EngineConfig{Provider: "vllm"})
	assert.Error(t, err, "vllm needs a backend url")

	p, err := newProvider(config.EngineConfig{Provider: "openai", APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	_, err = newProvider(config.EngineConfig{Provider: "bedrock", BackendURL: "http://x"})
	assert.Error(t, err)
}
