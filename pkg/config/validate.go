package config

import (
	"errors"
	"fmt"
)

// StageCount is the number of pipeline stages, numbered from 1.
const StageCount = 8

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Engine.BackendURL == "" {
		errs = append(errs, fmt.Errorf("engine.backend_url is required"))
	}

	switch c.Engine.Provider {
	case "vllm", "openai":
		// valid
	default:
		errs = append(errs, fmt.Errorf("engine.provider must be \"vllm\" or \"openai\", got %q", c.Engine.Provider))
	}

	if c.Scheduler.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("scheduler.concurrency must be >= 1, got %d", c.Scheduler.Concurrency))
	}
	if c.Scheduler.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("scheduler.requests_per_second must be >= 0, got %v", c.Scheduler.RequestsPerSecond))
	}
	if c.Scheduler.FlushInterval <= 0 {
		errs = append(errs, fmt.Errorf("scheduler.flush_interval must be > 0, got %v", c.Scheduler.FlushInterval))
	}

	switch c.Sandbox.Runtime {
	case "python", "starlark":
		// valid
	case "remote":
		if c.Sandbox.RemoteURL == "" {
			errs = append(errs, fmt.Errorf("sandbox.remote_url is required when sandbox.runtime is \"remote\""))
		}
	default:
		errs = append(errs, fmt.Errorf("sandbox.runtime must be \"python\", \"starlark\" or \"remote\", got %q", c.Sandbox.Runtime))
	}
	if c.Sandbox.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("sandbox.timeout must be > 0, got %v", c.Sandbox.Timeout))
	}
	if c.Sandbox.MemoryLimitMB < 0 {
		errs = append(errs, fmt.Errorf("sandbox.memory_limit_mb must be >= 0, got %d", c.Sandbox.MemoryLimitMB))
	}

	if c.Validation.Workers < 1 {
		errs = append(errs, fmt.Errorf("validation.workers must be >= 1, got %d", c.Validation.Workers))
	}
	if c.Validation.ChunkFactor < 1 {
		errs = append(errs, fmt.Errorf("validation.chunk_factor must be >= 1, got %d", c.Validation.ChunkFactor))
	}
	if c.Validation.MinScore < 0 || c.Validation.MinScore > 1 {
		errs = append(errs, fmt.Errorf("validation.min_score must be in [0, 1], got %v", c.Validation.MinScore))
	}

	if c.Pipeline.SeedFile == "" {
		errs = append(errs, fmt.Errorf("pipeline.seed_file is required"))
	}
	if c.Pipeline.SeedNum < 1 {
		errs = append(errs, fmt.Errorf("pipeline.seed_num must be >= 1, got %d", c.Pipeline.SeedNum))
	}
	if c.Pipeline.QueriesPerInstruction < 1 {
		errs = append(errs, fmt.Errorf("pipeline.queries_per_instruction must be >= 1, got %d", c.Pipeline.QueriesPerInstruction))
	}
	if c.Pipeline.StartStep < 1 || c.Pipeline.EndStep > StageCount || c.Pipeline.StartStep > c.Pipeline.EndStep {
		errs = append(errs, fmt.Errorf("pipeline step range must satisfy 1 <= start_step <= end_step <= %d, got %d..%d",
			StageCount, c.Pipeline.StartStep, c.Pipeline.EndStep))
	}
	if c.Pipeline.CacheDir == "" {
		errs = append(errs, fmt.Errorf("pipeline.cache_dir is required"))
	}

	switch c.Storage.Type {
	case "jsonl", "memory":
		// valid
	case "postgres":
		if c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"jsonl\", \"postgres\" or \"memory\", got %q", c.Storage.Type))
	}
	if c.Storage.Type == "jsonl" && c.Pipeline.OutputDir == "" {
		errs = append(errs, fmt.Errorf("pipeline.output_dir is required when storage.type is \"jsonl\""))
	}

	return errors.Join(errs...)
}
