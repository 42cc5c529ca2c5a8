// Package models defines core data structures for chunks, indices, queries and review results.
package models

import "time"

// IndexVersion is the only persisted index format version.
const IndexVersion = 1

// Chunk is a contiguous, line-bounded slice of a file together with its embedding.
// Lines are 1-indexed and inclusive. ID is a pure function of File, the line range and Hash.
type Chunk struct {
	ID        string    `json:"id"`
	File      string    `json:"file"`
	StartLine int       `json:"startLine"`
	EndLine   int       `json:"endLine"`
	Text      string    `json:"text"`
	Hash      string    `json:"hash"`
	Vector    []float32 `json:"vector"`
}

// Index is the persisted collection of chunks. Every chunk vector has length Dim.
type Index struct {
	Version    int       `json:"version"`
	EmbedModel string    `json:"embedModel"`
	Dim        int       `json:"dim"`
	CreatedAt  time.Time `json:"createdAt"`
	Chunks     []Chunk   `json:"chunks"`
}

// Files returns the distinct file paths in the index, in first-seen order.
func (idx *Index) Files() []string {
	seen := make(map[string]bool)
	var files []string
	for _, ch := range idx.Chunks {
		if !seen[ch.File] {
			seen[ch.File] = true
			files = append(files, ch.File)
		}
	}
	return files
}

// IndexStatus summarizes a persisted index.
type IndexStatus struct {
	IndexPath      string    `json:"indexPath"`
	EmbedModel     string    `json:"embedModel"`
	Dim            int       `json:"dim"`
	Chunks         int       `json:"chunks"`
	Files          int       `json:"files"`
	CreatedAt      time.Time `json:"createdAt"`
	DiskUsageBytes int64     `json:"diskUsageBytes"`
	KeywordDocs    uint64    `json:"keywordDocs,omitempty"`
	ReviewRuns     int64     `json:"reviewRuns,omitempty"`
}

// Status returns the index summary. Storage-dependent fields are left for the caller.
func (idx *Index) Status(path string) IndexStatus {
	return IndexStatus{
		IndexPath:  path,
		EmbedModel: idx.EmbedModel,
		Dim:        idx.Dim,
		Chunks:     len(idx.Chunks),
		Files:      len(idx.Files()),
		CreatedAt:  idx.CreatedAt,
	}
}
