// Package search ranks indexed chunks against a query.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperjump/kensa/internal/embedding"
	"github.com/hyperjump/kensa/internal/errs"
	"github.com/hyperjump/kensa/internal/keyword"
	"github.com/hyperjump/kensa/internal/models"
	"github.com/hyperjump/kensa/internal/vector"
	"go.uber.org/zap"
)

const (
	hybridKeywordWeight  = 0.4
	hybridSemanticWeight = 0.6
	// hybridCandidates is how many candidates each side contributes before fusion.
	hybridCandidates = 50
)

// ErrNoKeywordIndex is returned by keyword and hybrid search when no keyword index is attached.
var ErrNoKeywordIndex = errors.New("keyword index not available")

// Retriever answers nearest-neighbour queries over a loaded index.
type Retriever struct {
	index    *models.Index
	vectors  *vector.MemoryIndex
	byID     map[string]int
	embedder embedding.Embedder
	keyword  keyword.KeywordIndex
	topK     int
	logger   *zap.Logger
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithLogger sets a logger for warnings such as an embedding model mismatch.
func WithLogger(l *zap.Logger) RetrieverOption {
	return func(r *Retriever) { r.logger = l }
}

// WithKeywordIndex attaches a keyword index for Keyword and hybrid search.
func WithKeywordIndex(k keyword.KeywordIndex) RetrieverOption {
	return func(r *Retriever) { r.keyword = k }
}

// NewRetriever builds an in-memory vector index over idx. topK bounds Retrieve.
func NewRetriever(idx *models.Index, embedder embedding.Embedder, topK int, opts ...RetrieverOption) (*Retriever, error) {
	r := &Retriever{
		index:    idx,
		byID:     make(map[string]int, len(idx.Chunks)),
		embedder: embedder,
		topK:     topK,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if len(idx.Chunks) > 0 {
		vecs, err := vector.NewMemoryIndex(idx.Dim)
		if err != nil {
			return nil, errs.E(errs.Retrieval, "new retriever", err)
		}
		ids := make([]string, len(idx.Chunks))
		vs := make([][]float32, len(idx.Chunks))
		for i, ch := range idx.Chunks {
			ids[i] = ch.ID
			vs[i] = ch.Vector
			r.byID[ch.ID] = i
		}
		if err := vecs.Add(context.Background(), ids, vs); err != nil {
			return nil, errs.E(errs.Retrieval, "new retriever", err)
		}
		r.vectors = vecs
	}
	if embedder != nil && idx.EmbedModel != "" && embedder.Model() != idx.EmbedModel {
		r.logger.Warn("query embedding model differs from index model",
			zap.String("index_model", idx.EmbedModel),
			zap.String("query_model", embedder.Model()))
	}
	return r, nil
}

// Index returns the index being searched.
func (r *Retriever) Index() *models.Index { return r.index }

// Retrieve returns at most topK chunks ranked by cosine similarity to query.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]models.Chunk, error) {
	scored, err := r.RetrieveScored(ctx, query, r.topK)
	if err != nil {
		return nil, err
	}
	chunks := make([]models.Chunk, len(scored))
	for i, s := range scored {
		chunks[i] = s.Chunk
	}
	return chunks, nil
}

// RetrieveScored is Retrieve with scores and an explicit limit.
func (r *Retriever) RetrieveScored(ctx context.Context, query string, limit int) ([]models.ScoredChunk, error) {
	const op = "retrieve"
	results, err := r.semantic(ctx, query, limit, op)
	if err != nil {
		return nil, err
	}
	out := make([]models.ScoredChunk, len(results))
	for i, res := range results {
		out[i] = models.ScoredChunk{Chunk: r.index.Chunks[res.Position], Score: res.Score, Rank: i + 1}
	}
	return out, nil
}

func (r *Retriever) semantic(ctx context.Context, query string, limit int, op string) ([]*vector.VectorResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errs.Errorf(errs.Retrieval, op, "query cannot be empty")
	}
	if r.vectors == nil {
		return nil, nil
	}
	qv, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errs.E(errs.Retrieval, op, fmt.Errorf("embedding query: %w", err))
	}
	if len(qv) != r.index.Dim {
		return nil, errs.Errorf(errs.Retrieval, op, "query embedding has %d dimensions, index has %d", len(qv), r.index.Dim)
	}
	results, err := r.vectors.Search(ctx, qv, limit)
	if err != nil {
		return nil, errs.E(errs.Retrieval, op, err)
	}
	return results, nil
}

// Keyword returns chunks matching query in the keyword index.
func (r *Retriever) Keyword(ctx context.Context, query string, limit int) ([]models.ScoredChunk, error) {
	const op = "keyword search"
	if strings.TrimSpace(query) == "" {
		return nil, errs.Errorf(errs.Retrieval, op, "query cannot be empty")
	}
	if r.keyword == nil {
		return nil, errs.E(errs.Retrieval, op, ErrNoKeywordIndex)
	}
	hits, err := r.keyword.Search(ctx, query, limit, &keyword.SearchOptions{FileBoost: 2})
	if err != nil {
		return nil, errs.E(errs.Retrieval, op, err)
	}
	out := make([]models.ScoredChunk, 0, len(hits))
	for _, h := range hits {
		pos, ok := r.byID[h.ID]
		if !ok {
			// keyword index is older than the vector index
			continue
		}
		out = append(out, models.ScoredChunk{Chunk: r.index.Chunks[pos], Score: h.Score, Rank: len(out) + 1})
	}
	return out, nil
}

// Hybrid fuses normalized keyword and cosine scores.
func (r *Retriever) Hybrid(ctx context.Context, query string, limit int) ([]models.ScoredChunk, error) {
	const op = "hybrid search"
	if r.keyword == nil {
		return nil, errs.E(errs.Retrieval, op, ErrNoKeywordIndex)
	}
	sem, err := r.semantic(ctx, query, hybridCandidates, op)
	if err != nil {
		return nil, err
	}
	kw, err := r.keyword.Search(ctx, query, hybridCandidates, nil)
	if err != nil {
		return nil, errs.E(errs.Retrieval, op, err)
	}
	if limit <= 0 {
		return nil, nil
	}
	fused := Fuse(NormalizeKeywordScores(kw), NormalizeSemanticScores(sem), hybridKeywordWeight, hybridSemanticWeight)
	out := make([]models.ScoredChunk, 0, limit)
	for _, f := range fused {
		if len(out) == limit {
			break
		}
		pos, ok := r.byID[f.ChunkID]
		if !ok {
			continue
		}
		out = append(out, models.ScoredChunk{Chunk: r.index.Chunks[pos], Score: f.Score, Rank: len(out) + 1})
	}
	return out, nil
}

// Search dispatches a request to semantic, keyword or hybrid search.
// req.Limit must already be set (see models.RetrieveRequest.Validate).
func (r *Retriever) Search(ctx context.Context, req *models.RetrieveRequest) ([]models.ScoredChunk, error) {
	switch {
	case req.Keyword:
		return r.Keyword(ctx, req.Query, req.Limit)
	case req.Hybrid:
		return r.Hybrid(ctx, req.Query, req.Limit)
	default:
		return r.RetrieveScored(ctx, req.Query, req.Limit)
	}
}
