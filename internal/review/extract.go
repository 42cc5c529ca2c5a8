package review

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/hyperjump/kensa/internal/models"
)

var (
	// fencePattern matches a fenced block, optionally tagged json.
	fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?[ \t]*\r?\n?(.*?)```")
	// outerFencePattern runs from the first opening fence to the last closing one, for replies
	// whose JSON strings quote fences of their own.
	outerFencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?[ \t]*\r?\n?(.*)```")
)

// ParseResult interprets a model reply as a review result. It tries, in order: the whole
// reply, the interior of each fenced block, and the last brace-balanced object that ends
// the reply. The first candidate that decodes and validates wins.
func ParseResult(raw string) (*models.Result, error) {
	var firstErr error
	for _, candidate := range candidates(raw) {
		res, err := decodeStrict(candidate)
		if err == nil {
			return res, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = errors.New("no JSON object found in response")
	}
	return nil, firstErr
}

func candidates(raw string) []string {
	var out []string
	if s := strings.TrimSpace(raw); s != "" {
		out = append(out, s)
	}
	for _, m := range fencePattern.FindAllStringSubmatch(raw, -1) {
		if s := strings.TrimSpace(m[1]); s != "" {
			out = append(out, s)
		}
	}
	if m := outerFencePattern.FindStringSubmatch(raw); m != nil {
		if s := strings.TrimSpace(m[1]); s != "" && !contains(out, s) {
			out = append(out, s)
		}
	}
	if s, ok := trailingObject(raw); ok {
		out = append(out, s)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// trailingObject returns the outermost brace-balanced object ending at the end of s, ignoring
// trailing whitespace.
func trailingObject(s string) (string, bool) {
	s = strings.TrimRight(s, " \t\r\n")
	if !strings.HasSuffix(s, "}") {
		return "", false
	}
	for i := 0; i < len(s); i++ {
		if s[i] == '{' && closesAtEnd(s[i:]) {
			return s[i:], true
		}
	}
	return "", false
}

// closesAtEnd reports whether s, starting with '{', closes its first object exactly at its last
// byte. Braces inside JSON strings are not counted.
func closesAtEnd(s string) bool {
	depth := 0
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i == len(s)-1
			}
		}
	}
	return false
}

// wireResult mirrors models.Result with presence tracking for required fields.
type wireResult struct {
	Inline  *[]wireFinding   `json:"inline"`
	General *[]models.Remark `json:"general"`
}

// wireFinding is the model-facing finding. Anchoring is computed locally, never accepted.
type wireFinding struct {
	File     string          `json:"file"`
	Line     int             `json:"line"`
	Comment  string          `json:"comment"`
	Severity models.Severity `json:"severity"`
	Snippet  string          `json:"snippet,omitempty"`
}

// decodeStrict decodes exactly one Result object, rejecting unknown fields, then validates it.
// "inline" is required; a missing "general" is treated as empty.
func decodeStrict(s string) (*models.Result, error) {
	if !strings.HasPrefix(s, "{") {
		return nil, errors.New("invalid review JSON: not an object")
	}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.DisallowUnknownFields()

	var w wireResult
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("invalid review JSON: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("invalid review JSON: trailing data after object")
	}
	if w.Inline == nil {
		return nil, errors.New("review JSON violates contract: inline is required")
	}
	res := &models.Result{Inline: make([]models.Finding, 0, len(*w.Inline)), General: []models.Remark{}}
	for _, f := range *w.Inline {
		res.Inline = append(res.Inline, models.Finding{
			File:     f.File,
			Line:     f.Line,
			Comment:  f.Comment,
			Severity: f.Severity,
			Snippet:  f.Snippet,
		})
	}
	if w.General != nil && *w.General != nil {
		res.General = *w.General
	}
	if err := res.Validate(); err != nil {
		return nil, fmt.Errorf("review JSON violates contract: %w", err)
	}
	return res, nil
}
