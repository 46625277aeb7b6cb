// Package llm abstracts the chat assistant's model backends. The
// dashboard talks to whichever provider the config activates; every
// provider exposes the same blocking generate call.
package llm

import (
	"context"
)

// Provider is the interface for all LLM providers.
type Provider interface {
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
	// AdaptInstructions transforms raw instructions into model-specific formats
	AdaptInstructions(rawInstructions string) string
}

// Streamer is implemented by providers that can deliver the completion
// incrementally. Callers fall back to GenerateResponse when the active
// provider does not stream.
type Streamer interface {
	StreamResponse(ctx context.Context, prompt string, systemPrompt string, onChunk func(text string)) error
}

// EchoProvider returns the prompt unchanged. It backs tests and the
// ASSISTANT_OFFLINE mode so the dashboard stays usable without keys.
type EchoProvider struct{}

func (p *EchoProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	return "[offline] " + prompt, nil
}

func (p *EchoProvider) AdaptInstructions(raw string) string {
	return raw
}
