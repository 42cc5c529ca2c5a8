package cli

import (
	"fmt"
	"io"

	"github.com/hyperjump/kensa/internal/models"
)

// ReviewReport is everything the review command prints.
type ReviewReport struct {
	RunID         string                `json:"runId,omitempty"`
	Decision      models.Decision       `json:"decision"`
	NoResult      bool                  `json:"noResult"`
	Counts        models.SeverityCounts `json:"counts"`
	ContextChunks int                   `json:"contextChunks"`
	DiffTruncated bool                  `json:"diffTruncated,omitempty"`
	General       []models.Remark       `json:"general"`
	Inline        []models.Finding      `json:"inline"`
	// Offending are the inline findings that caused a BLOCK.
	Offending []models.Finding `json:"offending,omitempty"`
}

// NewReviewReport builds a report. A nil result is the no-result case.
func NewReviewReport(res *models.Result, decision models.Decision, offending []models.Finding) *ReviewReport {
	rep := &ReviewReport{
		Decision:  decision,
		NoResult:  res == nil,
		General:   []models.Remark{},
		Inline:    []models.Finding{},
		Offending: offending,
	}
	if res != nil {
		rep.Counts = res.Counts()
		rep.General = append(rep.General, res.General...)
		rep.Inline = append(rep.Inline, res.Inline...)
	}
	return rep
}

// WriteReview writes general remarks, inline findings and the decision.
func WriteReview(w io.Writer, rep *ReviewReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, rep)
	}
	st := newStyles(w)

	if rep.NoResult {
		fmt.Fprintln(w, st.block.Render("kensa: no usable review was returned by the model"))
	}

	if len(rep.General) > 0 {
		fmt.Fprintln(w, st.bold.Render("General"))
		for _, g := range rep.General {
			if g.File != "" {
				fmt.Fprintf(w, "  - %s: %s\n", g.File, g.Comment)
			} else {
				fmt.Fprintf(w, "  - %s\n", g.Comment)
			}
		}
		fmt.Fprintln(w)
	}

	if len(rep.Inline) > 0 {
		fmt.Fprintln(w, st.bold.Render("Inline"))
		for _, f := range rep.Inline {
			writeFinding(w, st, f)
		}
		fmt.Fprintln(w)
	}

	if !rep.NoResult {
		fmt.Fprintf(w, "%d blocker, %d warning, %d nit", rep.Counts.Blocker, rep.Counts.Warning, rep.Counts.Nit)
		if rep.ContextChunks > 0 {
			fmt.Fprintf(w, " (context: %d chunks)", rep.ContextChunks)
		}
		fmt.Fprintln(w)
	}
	if rep.DiffTruncated {
		fmt.Fprintln(w, st.dim.Render("note: the diff was truncated to fit the prompt budget"))
	}

	if rep.Decision == models.Block {
		fmt.Fprintln(w, st.block.Render("BLOCK")+": commit rejected")
		for _, f := range rep.Offending {
			fmt.Fprint(w, "  ")
			writeFinding(w, st, f)
		}
	} else {
		fmt.Fprintln(w, st.allow.Render("ALLOW"))
	}
	return nil
}

func writeFinding(w io.Writer, st styles, f models.Finding) {
	marker := ""
	if f.Anchored != nil && !*f.Anchored {
		marker = " " + st.dim.Render("[unanchored]")
	}
	fmt.Fprintf(w, "  %s %s:%d%s %s\n", st.severity(f.Severity), f.File, f.Line, marker, f.Comment)
	if f.Snippet != "" {
		fmt.Fprintf(w, "      %s\n", st.dim.Render(f.Snippet))
	}
}
