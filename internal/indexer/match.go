package indexer

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher selects files by include and ignore globs on slash-separated paths
// relative to the index root.
type Matcher struct {
	include []string
	ignore  []string
}

// alwaysIgnored directories are never indexed.
var alwaysIgnored = []string{".git/**", "**/.git/**"}

// NewMatcher validates the patterns and returns a Matcher. extraIgnore is appended
// to ignore (the index directory, for example).
func NewMatcher(include, ignore []string, extraIgnore ...string) (*Matcher, error) {
	m := &Matcher{include: include}
	m.ignore = append(m.ignore, alwaysIgnored...)
	m.ignore = append(m.ignore, ignore...)
	m.ignore = append(m.ignore, extraIgnore...)
	for _, p := range append(append([]string{}, m.include...), m.ignore...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid glob pattern %q", p)
		}
	}
	return m, nil
}

// Match reports whether rel matches any include pattern and no ignore pattern.
func (m *Matcher) Match(rel string) bool {
	rel = strings.TrimPrefix(path.Clean(rel), "./")
	if !matchAny(m.include, rel) {
		return false
	}
	return !m.Ignored(rel)
}

// Ignored reports whether rel matches an ignore pattern.
func (m *Matcher) Ignored(rel string) bool {
	return matchAny(m.ignore, rel)
}

// SkipDir reports whether the walk can prune directory rel: some ignore pattern of
// the form "<dir>/**" covers it.
func (m *Matcher) SkipDir(rel string) bool {
	for _, p := range m.ignore {
		if !strings.HasSuffix(p, "/**") {
			continue
		}
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}
