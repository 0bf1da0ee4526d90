// Package openaicompat provides shared client code for any OpenAI-compatible
// Chat Completions backend. It handles request serialization, multi-choice
// response parsing, model listing, and error mapping.
//
// Provider adapters (vLLM, etc.) embed the Client from this package and
// delegate their Generate/ListModels calls to it.
package openaicompat
