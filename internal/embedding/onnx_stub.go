//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"

	"github.com/hyperjump/kensa/internal/errs"
)

// ONNXEmbedder is unavailable without CGO (see onnx.go).
type ONNXEmbedder struct{}

// NewONNXEmbedder returns a configuration error when built without CGO.
func NewONNXEmbedder(_ string, _, _ int) (*ONNXEmbedder, error) {
	return nil, errs.E(errs.Configuration, "new embedder",
		errors.New("ONNX embedder requires CGO; build with CGO_ENABLED=1 and onnxruntime"))
}

func (e *ONNXEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errs.E(errs.Embedding, "embed", errors.New("ONNX embedder unavailable"))
}

func (e *ONNXEmbedder) Model() string { return "onnx:" }

func (e *ONNXEmbedder) Close() error { return nil }
