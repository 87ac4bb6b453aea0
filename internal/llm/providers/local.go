// File path: internal/llm/providers/local.go
package providers

import "context"

// LocalProvider is the stand-in used when no API key is configured. Every
// call reports ErrUnavailable so the retrieval core exercises its degraded
// paths: sparse search runs without expansion, dense search returns nothing.
type LocalProvider struct{}

func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

func (l *LocalProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	return "", ErrUnavailable
}

func (l *LocalProvider) Embed(ctx context.Context, input []string) ([][]float32, error) {
	return nil, ErrUnavailable
}

func (l *LocalProvider) Name() string {
	return "local"
}
