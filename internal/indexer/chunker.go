// Package indexer provides line chunking and index building.
package indexer

import (
	"strings"
	"unicode/utf8"
)

// avgLineWidth is the assumed line width used to turn an overlap budget into lines.
const avgLineWidth = 40

// Segment is a chunk of text before identity and embedding are attached.
// StartLine and EndLine are 1-indexed and inclusive.
type Segment struct {
	Text      string
	StartLine int
	EndLine   int
}

// Chunker splits text into line-bounded, size-bounded, optionally overlapping segments.
type Chunker struct {
	maxChars     int
	overlapChars int
}

// NewChunker creates a chunker with the given size and overlap (in characters).
func NewChunker(maxChars, overlapChars int) *Chunker {
	return &Chunker{
		maxChars:     maxChars,
		overlapChars: overlapChars,
	}
}

// Chunk splits text into segments. See the package-level Chunk for the rules.
func (c *Chunker) Chunk(text string) []Segment {
	return Chunk(text, c.maxChars, c.overlapChars)
}

// Chunk splits text into ordered segments. Lines accumulate while the running total
// (line length + 1) stays below maxChars. A first line that does not fit on its own
// becomes a single-line segment and the cursor advances one line. After any other
// segment, a positive overlap steps the cursor back by overlapChars/avgLineWidth lines
// (at least one), staying past the segment's first line. The overlap is approximate.
func Chunk(text string, maxChars, overlapChars int) []Segment {
	lines := SplitLines(text)
	if len(lines) == 0 {
		return nil
	}
	overlapLines := 0
	if overlapChars > 0 {
		overlapLines = overlapChars / avgLineWidth
		if overlapLines < 1 {
			overlapLines = 1
		}
	}

	var segments []Segment
	i := 0
	for i < len(lines) {
		start := i
		size := 0
		for i < len(lines) {
			n := utf8.RuneCountInString(lines[i]) + 1
			if size+n >= maxChars {
				break
			}
			size += n
			i++
		}
		if i == start {
			segments = append(segments, Segment{Text: lines[start], StartLine: start + 1, EndLine: start + 1})
			i = start + 1
			continue
		}
		segments = append(segments, Segment{
			Text:      strings.Join(lines[start:i], "\n"),
			StartLine: start + 1,
			EndLine:   i,
		})
		if overlapLines > 0 && i < len(lines) {
			next := i - overlapLines
			if next <= start {
				next = start + 1
			}
			i = next
		}
	}
	return segments
}
