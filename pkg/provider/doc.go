// Package provider defines the interface for chat-completion generation
// backends. Each adapter (vllm, openai) handles its own wire protocol
// internally and returns all N sampled completions of a request, keeping
// backend details invisible to the scheduler and the pipeline stages.
package provider
