// Package vllm implements the Provider interface for vLLM servers. It
// delegates HTTP communication to the shared openaicompat.Client and adds
// vLLM's repetition_penalty sampling extension to the request body.
package vllm
