// Package keyword provides full-text search over indexed chunks.
package keyword

import (
	"context"

	"github.com/hyperjump/kensa/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// FileBoost multiplies the score contribution from matches in the file path.
	// Values > 1 make path matches rank higher. Use 1.0 for no boost.
	FileBoost float64
	// FuzzyEnabled enables fuzzy matching for typo tolerance.
	FuzzyEnabled bool
	// Fuzziness is the maximum Levenshtein edit distance for fuzzy matching (1 or 2).
	Fuzziness int
}

// KeywordIndex defines keyword search operations over chunks.
type KeywordIndex interface {
	IndexChunks(ctx context.Context, chunks []models.Chunk) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error)
	DocCount() (uint64, error)
	Close() error
}

// KeywordResult is a single keyword search hit. ID is the chunk id.
type KeywordResult struct {
	ID    string
	Score float64
}
