package llm

import (
	"context"
	"errors"
)

// Client abstracts LLM providers for feedback translation.
type Client interface {
	// Generate sends a prompt and returns the raw model output. Providers are
	// configured for JSON responses, but callers must still validate the text.
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrNotImplemented is returned by the placeholder client.
var ErrNotImplemented = errors.New("LLM not implemented")

// PlaceholderClient is a stub implementation until provider wiring is added.
type PlaceholderClient struct{}

// Generate returns ErrNotImplemented.
func (PlaceholderClient) Generate(ctx context.Context, prompt string) (string, error) {
	_ = ctx
	_ = prompt
	return "", ErrNotImplemented
}
