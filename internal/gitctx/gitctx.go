// Package gitctx reads the pending change from git and maps it to new-file line numbers.
package gitctx

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

// StagedArgs are the git arguments producing the pending change.
var StagedArgs = []string{"diff", "--cached", "--no-color", "-U3"}

// Staged returns the staged diff of the repository containing dir. Empty output means there
// is nothing to review.
func Staged(ctx context.Context, dir string) (string, error) {
	return Diff(ctx, dir, StagedArgs[1:]...)
}

// Diff runs `git diff` with args in dir and returns its output.
func Diff(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"diff"}, args...)...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("git diff: %w: %s", err, msg)
		}
		return "", fmt.Errorf("git diff: %w", err)
	}
	return string(out), nil
}

// HookPath returns the path of the pre-commit hook for the repository containing dir,
// honouring core.hooksPath.
func HookPath(ctx context.Context, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--git-path", "hooks/pre-commit")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("not a git repository (git rev-parse --git-path failed)")
	}
	path := strings.TrimSpace(string(out))
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	return path, nil
}

// LineSet is a set of 1-based line numbers.
type LineSet map[int]bool

// AddedLines parses a unified diff and returns, per new file path, the new-file line numbers
// that appear in its hunks (added and context lines). Deleted files are omitted.
func AddedLines(diff string) (map[string]LineSet, error) {
	files, _, err := gitdiff.Parse(strings.NewReader(diff))
	if err != nil {
		return nil, fmt.Errorf("parsing diff: %w", err)
	}
	out := make(map[string]LineSet, len(files))
	for _, f := range files {
		if f.IsDelete || f.NewName == "" {
			continue
		}
		lines := out[f.NewName]
		if lines == nil {
			lines = make(LineSet)
			out[f.NewName] = lines
		}
		for _, frag := range f.TextFragments {
			lineNum := int(frag.NewPosition)
			for _, line := range frag.Lines {
				if line.Op == gitdiff.OpAdd || line.Op == gitdiff.OpContext {
					lines[lineNum] = true
					lineNum++
				}
			}
		}
	}
	return out, nil
}

// ChangedFiles returns the new paths of files touched by diff, in diff order.
func ChangedFiles(diff string) ([]string, error) {
	files, _, err := gitdiff.Parse(strings.NewReader(diff))
	if err != nil {
		return nil, fmt.Errorf("parsing diff: %w", err)
	}
	var names []string
	for _, f := range files {
		name := f.NewName
		if f.IsDelete || name == "" {
			name = f.OldName
		}
		names = append(names, name)
	}
	return names, nil
}

// Anchored reports whether line of file appears on the new side of the diff.
func Anchored(lines map[string]LineSet, file string, line int) bool {
	return lines[file][line]
}
