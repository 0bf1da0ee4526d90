package vllm

import "time"

// Config holds configuration for the vLLM provider adapter.
type Config struct {
	// BaseURL is the vLLM server URL (e.g., "http://localhost:8000").
	BaseURL string

	// APIKey for vLLM authentication (optional).
	APIKey string

	// Timeout for individual HTTP requests. Defaults to 10m, since a
	// request with n > 1 can run long on a loaded server.
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL: baseURL,
		Timeout: 10 * time.Minute,
	}
}
