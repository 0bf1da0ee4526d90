package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. Config file (explicit path, AUTOIF_CONFIG env, ./autoif.yaml, /etc/autoif/config.yaml)
//  3. AUTOIF_* environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg, err := Read(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Read applies steps 1 to 4 of Load without validating. Commands that
// only need part of the configuration use it.
func Read(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. AUTOIF_CONFIG environment variable
// 3. ./autoif.yaml in the current directory
// 4. /etc/autoif/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("AUTOIF_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"autoif.yaml",
		"/etc/autoif/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadFile reads a YAML or TOML file into the Config struct, chosen by
// extension. Fields not present in the file retain their current values.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		_, err = toml.Decode(string(data), cfg)
		return err
	default:
		return yaml.Unmarshal(data, cfg)
	}
}

// applyEnvOverrides maps AUTOIF_* environment variables to config fields.
// Malformed numeric values are reported rather than silently ignored.
func applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"AUTOIF_PROVIDER":     &cfg.Engine.Provider,
		"AUTOIF_BACKEND_URL":  &cfg.Engine.BackendURL,
		"AUTOIF_API_KEY":      &cfg.Engine.APIKey,
		"AUTOIF_MODEL":        &cfg.Engine.Model,
		"AUTOIF_SANDBOX":      &cfg.Sandbox.Runtime,
		"AUTOIF_PYTHON":       &cfg.Sandbox.Python,
		"AUTOIF_SANDBOX_URL":  &cfg.Sandbox.RemoteURL,
		"AUTOIF_SEED_FILE":    &cfg.Pipeline.SeedFile,
		"AUTOIF_QUERIES_FILE": &cfg.Pipeline.QueriesFile,
		"AUTOIF_OUTPUT_DIR":   &cfg.Pipeline.OutputDir,
		"AUTOIF_CACHE_DIR":    &cfg.Pipeline.CacheDir,
		"AUTOIF_STORAGE":      &cfg.Storage.Type,
		"AUTOIF_POSTGRES_DSN": &cfg.Storage.Postgres.DSN,
		"AUTOIF_METRICS_ADDR": &cfg.Observability.Metrics.Addr,
		"AUTOIF_LOG_FORMAT":   &cfg.Debug.Format,
	}
	for name, dst := range strs {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"AUTOIF_CONCURRENCY":     &cfg.Scheduler.Concurrency,
		"AUTOIF_WORKERS":         &cfg.Validation.Workers,
		"AUTOIF_SEED_NUM":        &cfg.Pipeline.SeedNum,
		"AUTOIF_START_STEP":      &cfg.Pipeline.StartStep,
		"AUTOIF_END_STEP":        &cfg.Pipeline.EndStep,
		"AUTOIF_MEMORY_LIMIT_MB": &cfg.Sandbox.MemoryLimitMB,
	}
	for name, dst := range ints {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = n
	}

	if v := os.Getenv("AUTOIF_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("AUTOIF_RPS: %w", err)
		}
		cfg.Scheduler.RequestsPerSecond = f
	}
	if v := os.Getenv("AUTOIF_SANDBOX_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("AUTOIF_SANDBOX_TIMEOUT: %w", err)
		}
		cfg.Sandbox.Timeout = d
	}
	if v := os.Getenv("AUTOIF_RANDOM_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("AUTOIF_RANDOM_SEED: %w", err)
		}
		cfg.Pipeline.RandomSeed = n
	}
	if v := os.Getenv("AUTOIF_RESUME"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("AUTOIF_RESUME: %w", err)
		}
		cfg.Pipeline.Resume = b
	}
	if v := os.Getenv("AUTOIF_METRICS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("AUTOIF_METRICS: %w", err)
		}
		cfg.Observability.Metrics.Enabled = b
	}

	return nil
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// engine.api_key_file -> engine.api_key
	if cfg.Engine.APIKeyFile != "" && cfg.Engine.APIKey == "" {
		val, err := readSecretFile(cfg.Engine.APIKeyFile)
		if err != nil {
			return fmt.Errorf("engine.api_key_file: %w", err)
		}
		cfg.Engine.APIKey = val
	}

	// storage.postgres.dsn_file -> storage.postgres.dsn
	if cfg.Storage.Postgres.DSNFile != "" && cfg.Storage.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Storage.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("storage.postgres.dsn_file: %w", err)
		}
		cfg.Storage.Postgres.DSN = val
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
