// File path: internal/llm/providers/provider.go
package providers

import (
	"context"
	"errors"
)

// ErrUnavailable signals that the provider cannot serve the request because
// it is not configured or the upstream service cannot be reached. Callers
// degrade to their documented fallback instead of surfacing this error.
var ErrUnavailable = errors.New("llm provider unavailable")

type Message struct {
	Role    string
	Content string
}

// Provider is the contract for the external text-generation and embedding
// collaborators.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
	Embed(ctx context.Context, input []string) ([][]float32, error)
	Name() string
}
