package providers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/hyperjump/kensa/internal/errs"
)

// Anthropic generates reviews with the Anthropic Messages API.
type Anthropic struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropic creates an Anthropic generator. It reads ANTHROPIC_API_KEY and an optional
// ANTHROPIC_BASE_URL.
func NewAnthropic(model string) (*Anthropic, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, errs.E(errs.Configuration, "new generator", errors.New("ANTHROPIC_API_KEY environment variable not set"))
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if base := os.Getenv("ANTHROPIC_BASE_URL"); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	return newAnthropicWithOptions(model, opts...), nil
}

func newAnthropicWithOptions(model string, opts ...option.RequestOption) *Anthropic {
	client := anthropic.NewClient(opts...)
	return &Anthropic{client: &client, model: model, maxTokens: defaultMaxTokens}
}

// Generate sends one message and returns the concatenated text blocks of the reply.
func (a *Anthropic) Generate(ctx context.Context, system, user string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(a.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	message, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", errs.E(errs.Review, "generate", fmt.Errorf("anthropic: %w", err))
	}
	var b strings.Builder
	for _, content := range message.Content {
		if content.Type == "text" {
			b.WriteString(content.Text)
		}
	}
	if b.Len() == 0 {
		return "", errs.E(errs.Review, "generate", errors.New("anthropic: no text in response"))
	}
	return b.String(), nil
}

// Model returns the prefixed model id.
func (a *Anthropic) Model() string { return "anthropic:" + a.model }
