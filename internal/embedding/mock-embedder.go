package embedding

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"

	"github.com/hyperjump/kensa/internal/errs"
	"github.com/hyperjump/kensa/pkg/utils"
)

const (
	onnxDimensions = 384
	onnxMaxTokens  = 256
)

// MockEmbedder is a deterministic embedder for tests and offline runs. The same
// text always gets the same unit-length vector.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = onnxDimensions
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns a deterministic embedding based on the text hash.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.E(errs.Embedding, "embed", err)
	}
	h := HashString(text)
	emb := make([]float32, e.dimensions)
	for i := range emb {
		emb[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01)
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// Model returns "mock:<dim>".
func (e *MockEmbedder) Model() string { return "mock:" + strconv.Itoa(e.dimensions) }

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error { return nil }

// StubEmbedder returns fixed vectors from a lookup table. Texts missing from the
// table fail with an embedding error. Calls are counted.
type StubEmbedder struct {
	Vectors map[string][]float32
	ModelID string

	mu    sync.Mutex
	calls int
}

// Embed returns the table entry for text.
func (e *StubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	v, ok := e.Vectors[text]
	if !ok {
		return nil, errs.E(errs.Embedding, "embed", fmt.Errorf("no stub vector for %q", utils.Truncate(text, 40)))
	}
	return checkVector(e.Model(), append([]float32(nil), v...))
}

// Calls returns how many times Embed has been called.
func (e *StubEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// Model returns ModelID or "stub".
func (e *StubEmbedder) Model() string {
	if e.ModelID == "" {
		return "stub"
	}
	return e.ModelID
}

// Close is a no-op.
func (e *StubEmbedder) Close() error { return nil }
