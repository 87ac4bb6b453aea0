// File path: internal/llm/providers/openai.go
package providers

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/openbiomed/litrag/internal/common"
)

// OpenAIProvider serves chat and embeddings through an OpenAI-compatible API.
type OpenAIProvider struct {
	model    llms.Model
	embedder embeddings.Embedder
}

// Options configures the OpenAI-compatible endpoint.
type Options struct {
	APIKey     string
	BaseURL    string
	ChatModel  string
	EmbedModel string
}

func NewOpenAIProvider(opts Options) (*OpenAIProvider, error) {
	if opts.ChatModel == "" {
		opts.ChatModel = "gpt-4o-mini"
	}
	if opts.EmbedModel == "" {
		opts.EmbedModel = "text-embedding-3-small"
	}
	clientOpts := []openai.Option{
		openai.WithToken(opts.APIKey),
		openai.WithModel(opts.ChatModel),
		openai.WithEmbeddingModel(opts.EmbedModel),
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(opts.BaseURL))
	}
	client, err := openai.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("init openai client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	logger := common.Logger()
	logger.Info("llm: OpenAI provider configured", "chat_model", opts.ChatModel, "embed_model", opts.EmbedModel)
	return &OpenAIProvider{model: client, embedder: embedder}, nil
}

func (o *OpenAIProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if o == nil || o.model == nil {
		return "", ErrUnavailable
	}
	logger := common.Logger()
	content := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		content = append(content, llms.MessageContent{
			Role:  chatRole(msg.Role),
			Parts: []llms.ContentPart{llms.TextPart(msg.Content)},
		})
	}
	resp, err := o.model.GenerateContent(ctx, content, llms.WithTemperature(0.2), llms.WithMaxTokens(100))
	if err != nil {
		logger.Error("llm: chat completion failed", "error", err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Content, nil
}

func (o *OpenAIProvider) Embed(ctx context.Context, input []string) ([][]float32, error) {
	if o == nil || o.embedder == nil {
		return nil, ErrUnavailable
	}
	if len(input) == 0 {
		return nil, nil
	}
	logger := common.Logger()
	logger.Debug("llm: creating embeddings", "items", len(input))
	vectors, err := o.embedder.EmbedDocuments(ctx, input)
	if err != nil {
		logger.Error("llm: embedding request failed", "error", err)
		return nil, err
	}
	return vectors, nil
}

func (o *OpenAIProvider) Name() string {
	return "openai"
}

func chatRole(role string) schema.ChatMessageType {
	switch role {
	case "system":
		return schema.ChatMessageTypeSystem
	case "assistant":
		return schema.ChatMessageTypeAI
	default:
		return schema.ChatMessageTypeHuman
	}
}
