package providers

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

// Ollama generates reviews with a local Ollama server's chat endpoint.
type Ollama struct {
	model   string
	baseURL string
	client  *http.Client
}

// NewOllama creates an Ollama generator. The server address comes from OLLAMA_HOST.
func NewOllama(model string) *Ollama {
	baseURL := os.Getenv("OLLAMA_HOST")
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	return &Ollama{
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 300 * time.Second},
	}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Error   string        `json:"error,omitempty"`
}

// Generate posts a non-streaming chat request in JSON mode.
func (o *Ollama) Generate(ctx context.Context, system, user string) (string, error) {
	var messages []ollamaMessage
	if system != "" {
		messages = append(messages, ollamaMessage{Role: "system", Content: system})
	}
	messages = append(messages, ollamaMessage{Role: "user", Content: user})

	payload, err := json.Marshal(ollamaChatRequest{Model: o.model, Messages: messages, Format: "json"})
	if err != nil {
		return "", errs.E(errs.Review, "generate", fmt.Errorf("marshaling request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", errs.E(errs.Review, "generate", fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", errs.E(errs.Review, "generate", fmt.Errorf("sending request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errs.E(errs.Review, "generate", fmt.Errorf("reading response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return "", errs.E(errs.Review, "generate", fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(body)))
	}

	var out ollamaChatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", errs.E(errs.Review, "generate", fmt.Errorf("parsing response: %w", err))
	}
	if out.Error != "" {
		return "", errs.E(errs.Review, "generate", fmt.Errorf("ollama: %s", out.Error))
	}
	return out.Message.Content, nil
}

// Model returns the prefixed model id.
func (o *Ollama) Model() string { return "ollama:" + o.model }
