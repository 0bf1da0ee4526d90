package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rhuss/autoif/pkg/config"
	"github.com/rhuss/autoif/pkg/debug"
	"github.com/rhuss/autoif/pkg/provider"
	"github.com/rhuss/autoif/pkg/provider/openai"
	"github.com/rhuss/autoif/pkg/provider/vllm"
	"github.com/rhuss/autoif/pkg/storage"
	"github.com/rhuss/autoif/pkg/storage/jsonl"
	"github.com/rhuss/autoif/pkg/storage/memory"
	"github.com/rhuss/autoif/pkg/storage/postgres"
)

// readConfig loads the configuration without validating it and installs
// the logger it describes.
func readConfig() (*config.Config, error) {
	cfg, err := config.Read(configPath)
	if err != nil {
		return nil, err
	}
	debug.Init(cfg.Debug.Categories, cfg.Debug.Level, cfg.Debug.Format)
	return cfg, nil
}

// newProvider builds the instrumented generation client for cfg.
func newProvider(cfg config.EngineConfig) (provider.Provider, error) {
	if cfg.BackendURL == "" && cfg.Provider != "openai" {
		return nil, fmt.Errorf("engine.backend_url is required")
	}

	var (
		p   provider.Provider
		err error
	)
	switch cfg.Provider {
	case "", "vllm":
		p, err = vllm.New(vllm.Config{
			BaseURL: cfg.BackendURL,
			APIKey:  cfg.APIKey,
			Timeout: cfg.Timeout,
		})
	case "openai":
		p, err = openai.New(openai.Config{
			BaseURL: cfg.BackendURL,
			APIKey:  cfg.APIKey,
			Timeout: cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s provider: %w", cfg.Provider, err)
	}
	return provider.Instrument(p), nil
}

// newStore opens the record store selected by cfg.
func newStore(ctx context.Context, cfg *config.Config) (storage.RecordStore, error) {
	switch cfg.Storage.Type {
	case "", "jsonl":
		s, err := jsonl.New(cfg.Pipeline.OutputDir)
		if err != nil {
			return nil, err
		}
		slog.Info("storage enabled", "type", "jsonl", "dir", cfg.Pipeline.OutputDir)
		return s, nil
	case "memory":
		slog.Warn("storage is in memory, stage outputs are lost on exit")
		return memory.New(), nil
	case "postgres":
		pg := cfg.Storage.Postgres
		s, err := postgres.New(ctx, postgres.Config{
			DSN:            pg.DSN,
			MaxConns:       pg.MaxConns,
			MigrateOnStart: pg.MigrateOnStart,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("storage enabled", "type", "postgres", "max_conns", pg.MaxConns)
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}
