package embedding

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hyperjump/kensa/internal/errs"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder implements Embedder using the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAIEmbedder creates an OpenAI embedder for model (e.g. text-embedding-3-small).
// It reads the API key from OPENAI_API_KEY and an optional base URL from OPENAI_BASE_URL.
func NewOpenAIEmbedder(model string) (*OpenAIEmbedder, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errs.E(errs.Configuration, "new embedder", errors.New("OPENAI_API_KEY environment variable not set"))
	}
	cfg := openai.DefaultConfig(apiKey)
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
		cfg.BaseURL = base
	}
	return newOpenAIEmbedderWithConfig(cfg, model), nil
}

func newOpenAIEmbedderWithConfig(cfg openai.ClientConfig, model string) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.EmbeddingModel(model),
	}
}

// Embed returns the embedding for text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		return nil, errs.E(errs.Embedding, "embed", fmt.Errorf("openai embeddings: %w", err))
	}
	if len(resp.Data) == 0 {
		return nil, errs.E(errs.Embedding, "embed", errors.New("openai embeddings: no data in response"))
	}
	return checkVector(e.Model(), resp.Data[0].Embedding)
}

// Model returns the logical model id.
func (e *OpenAIEmbedder) Model() string { return "openai:" + string(e.model) }

// Close is a no-op for OpenAIEmbedder.
func (e *OpenAIEmbedder) Close() error { return nil }
