package models

import "fmt"

// Severity classifies a review finding.
type Severity string

const (
	SeverityBlocker Severity = "blocker"
	SeverityWarning Severity = "warning"
	SeverityNit     Severity = "nit"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityBlocker, SeverityWarning, SeverityNit:
		return true
	}
	return false
}

// Finding is an inline review comment anchored to a new-file line.
type Finding struct {
	File     string   `json:"file" jsonschema:"required" jsonschema_description:"Path of the changed file, as shown in the diff."`
	Line     int      `json:"line" jsonschema:"required,minimum=1" jsonschema_description:"Line number in the NEW version of the file."`
	Comment  string   `json:"comment" jsonschema:"required"`
	Severity Severity `json:"severity" jsonschema:"required,enum=blocker,enum=warning,enum=nit"`
	Snippet  string   `json:"snippet,omitempty" jsonschema_description:"Optional quote of the offending code."`

	// Anchored is set by the caller after checking Line against the diff; it is not part of the model output.
	Anchored *bool `json:"anchored,omitempty" jsonschema:"-"`
}

// Remark is a general comment scoped to a file or to the whole change.
type Remark struct {
	File    string `json:"file,omitempty" jsonschema_description:"Optional file the remark is about."`
	Comment string `json:"comment" jsonschema:"required"`
}

// Result is a parsed review.
type Result struct {
	Inline  []Finding `json:"inline" jsonschema:"required"`
	General []Remark  `json:"general" jsonschema:"required"`
}

// Validate checks the result against the review contract.
func (r *Result) Validate() error {
	for i, f := range r.Inline {
		if f.File == "" {
			return fmt.Errorf("inline[%d]: file is required", i)
		}
		if f.Line < 1 {
			return fmt.Errorf("inline[%d]: line must be >= 1, got %d", i, f.Line)
		}
		if f.Comment == "" {
			return fmt.Errorf("inline[%d]: comment is required", i)
		}
		if !f.Severity.Valid() {
			return fmt.Errorf("inline[%d]: unknown severity %q", i, f.Severity)
		}
	}
	for i, g := range r.General {
		if g.Comment == "" {
			return fmt.Errorf("general[%d]: comment is required", i)
		}
	}
	return nil
}

// SeverityCounts holds inline finding counts by severity.
type SeverityCounts struct {
	Blocker int `json:"blocker"`
	Warning int `json:"warning"`
	Nit     int `json:"nit"`
}

// Counts tallies inline findings by severity.
func (r *Result) Counts() SeverityCounts {
	var c SeverityCounts
	for _, f := range r.Inline {
		switch f.Severity {
		case SeverityBlocker:
			c.Blocker++
		case SeverityWarning:
			c.Warning++
		case SeverityNit:
			c.Nit++
		}
	}
	return c
}

// Decision is the gating outcome.
type Decision string

const (
	Allow Decision = "ALLOW"
	Block Decision = "BLOCK"
)
