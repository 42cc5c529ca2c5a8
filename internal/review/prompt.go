// Package review turns retrieved context and a pending diff into a review prompt, and turns a
// model's reply back into a validated review result.
package review

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/hyperjump/kensa/internal/models"
	"github.com/invopop/jsonschema"
)

const systemPrompt = `You are a strict, expert code reviewer. You review a pending change (a unified diff) using excerpts of the surrounding codebase as context.

Rules:
1. Only comment on the changes shown in the diff. Context excerpts are for reference.
2. Focus on bugs, security issues, data loss, concurrency problems and broken contracts. Avoid style nitpicks unless they hide a defect.
3. Be concise and actionable.
4. Use "blocker" only for problems that must be fixed before the change is committed, "warning" for likely problems, and "nit" for minor suggestions.

You MUST respond with ONLY a single JSON object. No markdown, no explanation, no preamble.`

// Options bounds the assembled prompt.
type Options struct {
	// BudgetChars bounds the context section.
	BudgetChars int
	// MaxDiffChars truncates the diff. Zero means no truncation.
	MaxDiffChars int
}

// Prompt is an assembled review request.
type Prompt struct {
	System string
	User   string

	// ContextChunks is how many chunk blocks fit the budget.
	ContextChunks int
	// DiffTruncated is set when the diff was cut to MaxDiffChars.
	DiffTruncated bool
}

// Block formats a chunk as a context block.
func Block(ch models.Chunk) string {
	return fmt.Sprintf("FILE: %s [%d-%d]\n%s\n---\n", ch.File, ch.StartLine, ch.EndLine, ch.Text)
}

// PackContext appends chunk blocks in order, skipping any block that would push the context past
// budget. Blocks are never split, so a later smaller block may still fit after a larger one is
// skipped. It returns the context and the number of blocks included.
func PackContext(chunks []models.Chunk, budget int) (string, int) {
	var b strings.Builder
	used, n := 0, 0
	for _, ch := range chunks {
		block := Block(ch)
		size := utf8.RuneCountInString(block)
		if used+size > budget {
			continue
		}
		b.WriteString(block)
		used += size
		n++
	}
	return b.String(), n
}

// Truncate cuts s to at most max runes. The cut may fall mid-line.
func Truncate(s string, max int) (string, bool) {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s, false
	}
	i := 0
	for pos := range s {
		if i == max {
			return s[:pos], true
		}
		i++
	}
	return s, false
}

// Assemble builds the review prompt from ranked chunks and the pending diff.
func Assemble(chunks []models.Chunk, diff string, opts Options) Prompt {
	ctxText, n := PackContext(chunks, opts.BudgetChars)
	diff, truncated := Truncate(diff, opts.MaxDiffChars)

	var b strings.Builder
	b.WriteString("Review the following pending change.\n\n")

	b.WriteString("--- BEGIN CONTEXT ---\n")
	if ctxText == "" {
		b.WriteString("(no related code found)\n")
	} else {
		b.WriteString(ctxText)
	}
	b.WriteString("--- END CONTEXT ---\n")

	b.WriteString("\n--- BEGIN DIFF ---\n")
	b.WriteString(diff)
	if truncated {
		b.WriteString("\n[diff truncated]")
	}
	b.WriteString("\n--- END DIFF ---\n")

	b.WriteString("\nRespond with a JSON object matching this schema:\n")
	b.WriteString(ResultSchema())
	b.WriteString("\n\n")
	b.WriteString(`"inline" holds findings anchored to a line; "general" holds remarks about a file or the whole change. ` +
		`The "line" of an inline finding MUST be a line number in the NEW version of the file, as counted by the "+" side of the diff hunks. ` +
		`Never use old-file line numbers. If there is nothing to report, respond with {"inline":[],"general":[]}.` + "\n")

	return Prompt{
		System:        systemPrompt,
		User:          b.String(),
		ContextChunks: n,
		DiffTruncated: truncated,
	}
}

var (
	schemaOnce sync.Once
	schemaText string
)

// ResultSchema returns the JSON schema of models.Result, reflected once.
func ResultSchema() string {
	schemaOnce.Do(func() {
		reflector := jsonschema.Reflector{
			AllowAdditionalProperties: false,
			DoNotReference:            true,
		}
		schema := reflector.Reflect(&models.Result{})
		schema.Version = ""
		data, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			schemaText = `{"inline":[{"file":"","line":1,"comment":"","severity":"blocker|warning|nit","snippet":""}],"general":[{"file":"","comment":""}]}`
			return
		}
		schemaText = string(data)
	})
	return schemaText
}
