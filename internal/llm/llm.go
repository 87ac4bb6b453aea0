// File path: internal/llm/llm.go
package llm

import (
	"context"
	"os"
	"strings"

	"github.com/openbiomed/litrag/internal/common"
	"github.com/openbiomed/litrag/internal/llm/providers"
	"github.com/openbiomed/litrag/internal/sparse"
)

type Message = providers.Message

type Provider = providers.Provider

// ErrUnavailable re-exports the provider sentinel for callers matching on
// collaborator failures.
var ErrUnavailable = providers.ErrUnavailable

// NewProvider selects a provider from the environment: an OpenAI-compatible
// client when OPENAI_API_KEY is set, otherwise the local stand-in whose calls
// report ErrUnavailable so retrieval degrades instead of failing.
func NewProvider() Provider {
	logger := common.Logger()
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		logger.Warn("llm: OPENAI_API_KEY not set; dense retrieval and query expansion disabled")
		return providers.NewLocalProvider()
	}
	provider, err := providers.NewOpenAIProvider(providers.Options{
		APIKey:     apiKey,
		BaseURL:    strings.TrimSpace(os.Getenv("OPENAI_ENDPOINT")),
		ChatModel:  strings.TrimSpace(os.Getenv("OPENAI_CHAT_MODEL")),
		EmbedModel: strings.TrimSpace(os.Getenv("OPENAI_EMBED_MODEL")),
	})
	if err != nil {
		logger.Error("llm: OpenAI provider init failed; falling back to local", "error", err)
		return providers.NewLocalProvider()
	}
	logger.Info("llm: OpenAI provider selected")
	return provider
}

// Suggester adapts a chat provider to the sparse query-expansion contract.
type Suggester struct {
	provider Provider
}

func NewSuggester(provider Provider) *Suggester {
	return &Suggester{provider: provider}
}

// Suggest asks the provider for comma-separated expansion terms.
func (s *Suggester) Suggest(ctx context.Context, query string) (string, error) {
	if s == nil || s.provider == nil {
		return "", providers.ErrUnavailable
	}
	return s.provider.Chat(ctx, []Message{
		{Role: "user", Content: sparse.ExpansionPrompt(query)},
	})
}

var _ sparse.Suggester = (*Suggester)(nil)
