package models

import (
	"fmt"
	"strings"
)

// RetrieveRequest is a retrieval or search request.
type RetrieveRequest struct {
	Query   string `json:"query"`
	Limit   int    `json:"limit,omitempty"`
	Keyword bool   `json:"keyword,omitempty"`
	// Hybrid fuses keyword and semantic scores. Ignored when Keyword is set.
	Hybrid bool `json:"hybrid,omitempty"`
}

// Validate rejects blank queries and clamps the limit into [1, maxLimit], using
// defaultLimit when unset.
func (q *RetrieveRequest) Validate(defaultLimit, maxLimit int) error {
	if strings.TrimSpace(q.Query) == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if maxLimit > 0 && q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	return nil
}

// ScoredChunk is a ranked chunk with its relevance score.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}
