// File path: internal/llm/llm_test.go
package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openbiomed/litrag/internal/llm/providers"
)

type cannedProvider struct {
	response string
	prompt   string
}

func (c *cannedProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if len(messages) > 0 {
		c.prompt = messages[len(messages)-1].Content
	}
	return c.response, nil
}

func (c *cannedProvider) Embed(ctx context.Context, input []string) ([][]float32, error) {
	return nil, ErrUnavailable
}

func (c *cannedProvider) Name() string { return "canned" }

func TestLocalProviderUnavailable(t *testing.T) {
	local := providers.NewLocalProvider()
	if _, err := local.Chat(context.Background(), nil); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from local chat, got %v", err)
	}
	if _, err := local.Embed(context.Background(), []string{"x"}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from local embed, got %v", err)
	}
}

func TestSuggesterSendsExpansionPrompt(t *testing.T) {
	provider := &cannedProvider{response: "CRISPR, Cas9, genome"}
	suggester := NewSuggester(provider)
	out, err := suggester.Suggest(context.Background(), "CRISPR gene editing")
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if out != "CRISPR, Cas9, genome" {
		t.Fatalf("unexpected suggestion passthrough: %q", out)
	}
	if !strings.Contains(provider.prompt, "CRISPR gene editing") {
		t.Fatalf("prompt should embed the query, got %q", provider.prompt)
	}
	if !strings.Contains(provider.prompt, "comma-separated") {
		t.Fatalf("prompt should request comma-separated terms")
	}
}
