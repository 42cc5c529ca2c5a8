package models

import "time"

// ReviewRun is one recorded invocation of the review pipeline.
type ReviewRun struct {
	ID            string         `json:"id"`
	CreatedAt     time.Time      `json:"createdAt"`
	ReviewModel   string         `json:"reviewModel"`
	EmbedModel    string         `json:"embedModel"`
	Decision      Decision       `json:"decision"`
	NoResult      bool           `json:"noResult"`
	Counts        SeverityCounts `json:"counts"`
	ContextChunks int            `json:"contextChunks"`
	DiffChars     int            `json:"diffChars"`
	Findings      []Finding      `json:"findings,omitempty"`
	General       []Remark       `json:"general,omitempty"`
}
