// Package vector provides vector similarity and brute-force nearest-neighbour search.
package vector

import "context"

// VectorIndex defines vector storage and similarity search.
type VectorIndex interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Size() int
	Dimensions() int
}

// VectorResult is a single search hit. Position is the insertion order of the vector.
type VectorResult struct {
	ID       string
	Position int
	Score    float64
}
