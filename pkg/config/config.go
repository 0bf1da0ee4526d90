// Package config provides unified configuration for the autoif pipeline.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML or TOML config file (discovered or explicitly specified)
//  3. Environment variable overrides (AUTOIF_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for an autoif run.
type Config struct {
	Engine        EngineConfig        `yaml:"engine" toml:"engine"`
	Scheduler     SchedulerConfig     `yaml:"scheduler" toml:"scheduler"`
	Sandbox       SandboxConfig       `yaml:"sandbox" toml:"sandbox"`
	Validation    ValidationConfig    `yaml:"validation" toml:"validation"`
	Pipeline      PipelineConfig      `yaml:"pipeline" toml:"pipeline"`
	Storage       StorageConfig       `yaml:"storage" toml:"storage"`
	Observability ObservabilityConfig `yaml:"observability" toml:"observability"`
	Debug         DebugConfig         `yaml:"debug" toml:"debug"`
}

// EngineConfig holds generation service settings.
type EngineConfig struct {
	Provider   string        `yaml:"provider" toml:"provider"`         // "vllm" or "openai", default: "vllm"
	BackendURL string        `yaml:"backend_url" toml:"backend_url"`   // required
	APIKey     string        `yaml:"api_key" toml:"api_key"`           // optional
	APIKeyFile string        `yaml:"api_key_file" toml:"api_key_file"` // _file variant for api_key
	Model      string        `yaml:"model" toml:"model"`               // default: first listed model
	Timeout    time.Duration `yaml:"timeout" toml:"timeout"`           // default: 10m
}

// SchedulerConfig controls the request sliding window.
type SchedulerConfig struct {
	Concurrency       int           `yaml:"concurrency" toml:"concurrency"`                 // default: 256
	RequestsPerSecond float64       `yaml:"requests_per_second" toml:"requests_per_second"` // 0 = unlimited
	FlushInterval     time.Duration `yaml:"flush_interval" toml:"flush_interval"`           // default: 5s
	ProgressInterval  time.Duration `yaml:"progress_interval" toml:"progress_interval"`     // default: 10s
}

// SandboxConfig selects and bounds the code execution runtime.
type SandboxConfig struct {
	Runtime       string        `yaml:"runtime" toml:"runtime"`                 // "python", "starlark" or "remote", default: "python"
	Python        string        `yaml:"python" toml:"python"`                   // default: "python3"
	Timeout       time.Duration `yaml:"timeout" toml:"timeout"`                 // default: 3s
	MemoryLimitMB int           `yaml:"memory_limit_mb" toml:"memory_limit_mb"` // default: 512
	RemoteURL     string        `yaml:"remote_url" toml:"remote_url"`           // required for runtime=remote
}

// ValidationConfig holds cross-validation thresholds and pool sizing.
type ValidationConfig struct {
	Workers      int     `yaml:"workers" toml:"workers"`             // default: 16
	ChunkFactor  int     `yaml:"chunk_factor" toml:"chunk_factor"`   // default: 4096
	MinScore     float64 `yaml:"min_score" toml:"min_score"`         // default: 0.8
	MinFunctions int     `yaml:"min_functions" toml:"min_functions"` // default: 3
	MinCases     int     `yaml:"min_cases" toml:"min_cases"`         // default: 10
}

// PipelineConfig holds stage inputs, outputs and the step range.
type PipelineConfig struct {
	SeedNum               int    `yaml:"seed_num" toml:"seed_num"`                               // default: 10
	SeedFile              string `yaml:"seed_file" toml:"seed_file"`                             // required
	QueriesFile           string `yaml:"queries_file" toml:"queries_file"`                       // required when stage 6 runs
	QueriesPerInstruction int    `yaml:"queries_per_instruction" toml:"queries_per_instruction"` // default: 16
	OutputDir             string `yaml:"output_dir" toml:"output_dir"`                           // default: "output"
	CacheDir              string `yaml:"cache_dir" toml:"cache_dir"`                             // default: ".cache"
	Resume                bool   `yaml:"resume" toml:"resume"`
	RandomSeed            int64  `yaml:"random_seed" toml:"random_seed"` // default: 42
	StartStep             int    `yaml:"start_step" toml:"start_step"`   // default: 1
	EndStep               int    `yaml:"end_step" toml:"end_step"`       // default: 8
}

// StorageConfig selects where stage records are written.
type StorageConfig struct {
	Type     string         `yaml:"type" toml:"type"` // "jsonl", "postgres" or "memory", default: "jsonl"
	Postgres PostgresConfig `yaml:"postgres" toml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn" toml:"dsn"`
	DSNFile        string `yaml:"dsn_file" toml:"dsn_file"`                 // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns" toml:"max_conns"`               // default: 25
	MigrateOnStart bool   `yaml:"migrate_on_start" toml:"migrate_on_start"` // default: false
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics" toml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"` // default: false
	Addr    string `yaml:"addr" toml:"addr"`       // default: ":9464"
}

// DebugConfig holds the default debug categories and log level.
type DebugConfig struct {
	Categories string `yaml:"categories" toml:"categories"`
	Level      string `yaml:"level" toml:"level"`   // default: "INFO"
	Format     string `yaml:"format" toml:"format"` // "text" or "json", default: "text"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Engine: EngineConfig{
			Provider: "vllm",
			Timeout:  10 * time.Minute,
		},
		Scheduler: SchedulerConfig{
			Concurrency:      256,
			FlushInterval:    5 * time.Second,
			ProgressInterval: 10 * time.Second,
		},
		Sandbox: SandboxConfig{
			Runtime:       "python",
			Python:        "python3",
			Timeout:       3 * time.Second,
			MemoryLimitMB: 512,
		},
		Validation: ValidationConfig{
			Workers:      16,
			ChunkFactor:  4096,
			MinScore:     0.8,
			MinFunctions: 3,
			MinCases:     10,
		},
		Pipeline: PipelineConfig{
			SeedNum:               10,
			QueriesPerInstruction: 16,
			OutputDir:             "output",
			CacheDir:              ".cache",
			RandomSeed:            42,
			StartStep:             1,
			EndStep:               8,
		},
		Storage: StorageConfig{
			Type: "jsonl",
			Postgres: PostgresConfig{
				MaxConns: 25,
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Addr: ":9464",
			},
		},
		Debug: DebugConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}
