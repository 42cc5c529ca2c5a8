// Package embedding provides text embedding adapters and caching.
package embedding

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/hyperjump/kensa/internal/errs"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// Model returns the logical model id, e.g. "openai:text-embedding-3-small".
	Model() string
	Close() error
}

// New creates an embedder for a logical model id of the form "<provider>:<model>".
// Supported providers: openai (default when no prefix is given), ollama, onnx, mock.
func New(modelID string) (Embedder, error) {
	provider, model := SplitModelID(modelID)
	switch provider {
	case "openai":
		return NewOpenAIEmbedder(model)
	case "ollama":
		return NewOllamaEmbedder(model)
	case "onnx":
		return NewONNXEmbedder(model, onnxDimensions, onnxMaxTokens)
	case "mock":
		dim, err := strconv.Atoi(model)
		if err != nil {
			return nil, errs.Errorf(errs.Configuration, "new embedder", "mock embedder wants a dimension, got %q", model)
		}
		return NewMockEmbedder(dim), nil
	default:
		return nil, errs.Errorf(errs.Configuration, "new embedder", "unknown embedding provider %q", provider)
	}
}

// SplitModelID splits "<provider>:<model>". An id without a provider is an OpenAI model.
func SplitModelID(id string) (provider, model string) {
	if p, m, ok := strings.Cut(id, ":"); ok {
		return strings.ToLower(strings.TrimSpace(p)), strings.TrimSpace(m)
	}
	return "openai", strings.TrimSpace(id)
}

// checkVector turns a missing or empty vector into an embedding error.
func checkVector(model string, vec []float32) ([]float32, error) {
	if len(vec) == 0 {
		return nil, errs.E(errs.Embedding, "embed", fmt.Errorf("%s returned an empty vector", model))
	}
	return vec, nil
}
