package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hyperjump/kensa/internal/errs"
)

const defaultOllamaURL = "http://localhost:11434"

// OllamaEmbedder implements Embedder against a local Ollama server.
type OllamaEmbedder struct {
	model   string
	baseURL string
	client  *http.Client
}

// NewOllamaEmbedder creates an Ollama embedder. The server address comes from OLLAMA_HOST.
func NewOllamaEmbedder(model string) (*OllamaEmbedder, error) {
	baseURL := os.Getenv("OLLAMA_HOST")
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	return &OllamaEmbedder{
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 120 * time.Second},
	}, nil
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed returns the embedding for text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	payload, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, errs.E(errs.Embedding, "embed", fmt.Errorf("marshaling request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, errs.E(errs.Embedding, "embed", fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, errs.E(errs.Embedding, "embed", fmt.Errorf("sending request: %w", err))
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.E(errs.Embedding, "embed", fmt.Errorf("reading response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errs.E(errs.Embedding, "embed", fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(body)))
	}
	var out ollamaEmbedResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, errs.E(errs.Embedding, "embed", fmt.Errorf("parsing response: %w", err))
	}
	vec := make([]float32, len(out.Embedding))
	for i, v := range out.Embedding {
		vec[i] = float32(v)
	}
	return checkVector(e.Model(), vec)
}

// Model returns the logical model id.
func (e *OllamaEmbedder) Model() string { return "ollama:" + e.model }

// Close is a no-op for OllamaEmbedder.
func (e *OllamaEmbedder) Close() error { return nil }
