// Package cli renders kensa results for the console.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hyperjump/kensa/internal/models"
	"github.com/hyperjump/kensa/pkg/utils"
)

// OutputFormat selects how results are written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

// styles are bound to a renderer so colour is only emitted when w is a terminal.
type styles struct {
	blocker, warning, nit lipgloss.Style
	allow, block          lipgloss.Style
	dim, bold             lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		blocker: r.NewStyle().Foreground(lipgloss.Color("#ff5555")).Bold(true),
		warning: r.NewStyle().Foreground(lipgloss.Color("#ffb86c")),
		nit:     r.NewStyle().Foreground(lipgloss.Color("#8be9fd")),
		allow:   r.NewStyle().Foreground(lipgloss.Color("#50fa7b")).Bold(true),
		block:   r.NewStyle().Foreground(lipgloss.Color("#ff5555")).Bold(true),
		dim:     r.NewStyle().Foreground(lipgloss.Color("#6272a4")),
		bold:    r.NewStyle().Bold(true),
	}
}

func (s styles) severity(sev models.Severity) string {
	label := strings.ToUpper(string(sev))
	switch sev {
	case models.SeverityBlocker:
		return s.blocker.Render(label)
	case models.SeverityWarning:
		return s.warning.Render(label)
	default:
		return s.nit.Render(label)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// SearchOutput is the JSON shape of search results.
type SearchOutput struct {
	Query   string               `json:"query"`
	Mode    string               `json:"mode"`
	Results []models.ScoredChunk `json:"results"`
}

// WriteSearchResults writes ranked chunks to w in the given format.
func WriteSearchResults(w io.Writer, out SearchOutput, format OutputFormat) error {
	if out.Results == nil {
		out.Results = []models.ScoredChunk{}
	}
	if format == OutputJSON {
		return writeJSON(w, out)
	}
	st := newStyles(w)
	fmt.Fprintf(w, "\nFound %d %s results for %q\n\n", len(out.Results), out.Mode, out.Query)
	for _, r := range out.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f | %s\n", r.Rank, r.Score,
			st.bold.Render(fmt.Sprintf("%s:%d-%d", r.Chunk.File, r.Chunk.StartLine, r.Chunk.EndLine)))
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(r.Chunk.Text, 200))
	}
	return nil
}

// WriteStatus writes an index summary.
func WriteStatus(w io.Writer, st models.IndexStatus, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Index:       %s\n", st.IndexPath)
	fmt.Fprintf(w, "Model:       %s\n", st.EmbedModel)
	fmt.Fprintf(w, "Dimensions:  %d\n", st.Dim)
	fmt.Fprintf(w, "Files:       %d\n", st.Files)
	fmt.Fprintf(w, "Chunks:      %d\n", st.Chunks)
	if st.KeywordDocs > 0 {
		fmt.Fprintf(w, "Keyword:     %d documents\n", st.KeywordDocs)
	}
	fmt.Fprintf(w, "Created:     %s\n", st.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Disk usage:  %s\n", utils.FormatBytes(st.DiskUsageBytes))
	if st.ReviewRuns > 0 {
		fmt.Fprintf(w, "Reviews:     %d recorded\n", st.ReviewRuns)
	}
	return nil
}

// WriteHistory writes a list of recorded review runs.
func WriteHistory(w io.Writer, runs []*models.ReviewRun, total int64, format OutputFormat) error {
	if format == OutputJSON {
		if runs == nil {
			runs = []*models.ReviewRun{}
		}
		return writeJSON(w, struct {
			Runs  []*models.ReviewRun `json:"runs"`
			Total int64               `json:"total"`
		}{runs, total})
	}
	st := newStyles(w)
	if len(runs) == 0 {
		fmt.Fprintln(w, "No review runs recorded.")
		return nil
	}
	fmt.Fprintf(w, "Showing %d of %d review runs\n\n", len(runs), total)
	for _, r := range runs {
		decision := st.allow.Render(string(r.Decision))
		if r.Decision == models.Block {
			decision = st.block.Render(string(r.Decision))
		}
		note := ""
		if r.NoResult {
			note = " (no result)"
		}
		fmt.Fprintf(w, "%s  %s  %-5s%s  blocker=%d warning=%d nit=%d  %s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			st.dim.Render(r.ID),
			decision, note,
			r.Counts.Blocker, r.Counts.Warning, r.Counts.Nit,
			r.ReviewModel)
	}
	return nil
}
