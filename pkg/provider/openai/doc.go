// Package openai implements the Provider interface on top of the
// sashabaranov/go-openai client, for the OpenAI API and gateways that
// speak it faithfully.
package openai
