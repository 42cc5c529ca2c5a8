// Package providers adapts generative model services to a single text-in, text-out interface.
package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/kensa/internal/embedding"
	"github.com/hyperjump/kensa/internal/errs"
)

// defaultMaxTokens caps the length of a review response.
const defaultMaxTokens = 4096

// Generator produces a completion for a system and user prompt.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
	// Model returns the prefixed model id, e.g. "anthropic:claude-3-5-sonnet-latest".
	Model() string
}

// New returns the generator for a prefixed model id. A bare id is an OpenAI model.
func New(modelID string) (Generator, error) {
	provider, model := embedding.SplitModelID(modelID)
	if strings.TrimSpace(model) == "" {
		return nil, errs.Errorf(errs.Configuration, "new generator", "review model %q has no model name", modelID)
	}
	switch provider {
	case "anthropic":
		return NewAnthropic(model)
	case "openai":
		return NewOpenAI(model)
	case "ollama":
		return NewOllama(model), nil
	default:
		return nil, errs.E(errs.Configuration, "new generator", fmt.Errorf("unknown review provider %q", provider))
	}
}
