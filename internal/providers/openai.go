package providers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hyperjump/kensa/internal/errs"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAI generates reviews with the chat completions API. Any OpenAI-compatible server
// can be used through OPENAI_BASE_URL.
type OpenAI struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOpenAI creates an OpenAI generator. It reads OPENAI_API_KEY and an optional OPENAI_BASE_URL.
func NewOpenAI(model string) (*OpenAI, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errs.E(errs.Configuration, "new generator", errors.New("OPENAI_API_KEY environment variable not set"))
	}
	cfg := openai.DefaultConfig(apiKey)
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
		cfg.BaseURL = base
	}
	return newOpenAIWithConfig(cfg, model), nil
}

func newOpenAIWithConfig(cfg openai.ClientConfig, model string) *OpenAI {
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model, maxTokens: defaultMaxTokens}
}

// Generate requests a JSON-object completion and returns the first choice.
func (o *OpenAI) Generate(ctx context.Context, system, user string) (string, error) {
	var messages []openai.ChatCompletionMessage
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: user})

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     o.model,
		Messages:  messages,
		MaxTokens: o.maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", errs.E(errs.Review, "generate", fmt.Errorf("openai: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", errs.E(errs.Review, "generate", errors.New("openai: no choices in response"))
	}
	return resp.Choices[0].Message.Content, nil
}

// Model returns the prefixed model id.
func (o *OpenAI) Model() string { return "openai:" + o.model }
