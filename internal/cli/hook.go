package cli

import (
	"fmt"
	"strings"
)

// Markers delimit the kensa section of a pre-commit hook.
const (
	HookMarkerStart = "# >>> kensa pre-commit hook >>>"
	HookMarkerEnd   = "# <<< kensa pre-commit hook <<<"
)

// HookSection returns the marker-delimited pre-commit section running `kensa review`.
// configPath is passed through when non-empty.
func HookSection(configPath string) string {
	cmd := "kensa review"
	if configPath != "" {
		cmd += fmt.Sprintf(" --config %q", configPath)
	}
	var b strings.Builder
	b.WriteString(HookMarkerStart + "\n")
	b.WriteString(cmd + "\n")
	b.WriteString("if [ $? -ne 0 ]; then\n")
	b.WriteString("  echo \"kensa: commit blocked (bypass with git commit --no-verify)\"\n")
	b.WriteString("  exit 1\n")
	b.WriteString("fi\n")
	b.WriteString(HookMarkerEnd + "\n")
	return b.String()
}

// InstallHook returns hook content with section installed: a new script when existing is
// empty, the section replaced when present, appended otherwise.
func InstallHook(existing, section string) string {
	if strings.TrimSpace(existing) == "" {
		return "#!/bin/sh\n" + section
	}
	startIdx := strings.Index(existing, HookMarkerStart)
	endIdx := strings.Index(existing, HookMarkerEnd)
	if startIdx == -1 || endIdx == -1 || endIdx < startIdx {
		if !strings.HasSuffix(existing, "\n") {
			existing += "\n"
		}
		return existing + section
	}
	after := strings.TrimPrefix(existing[endIdx+len(HookMarkerEnd):], "\n")
	return existing[:startIdx] + section + after
}

// UninstallHook removes the kensa section. empty reports that nothing but a shebang remains.
func UninstallHook(existing string) (content string, empty bool) {
	startIdx := strings.Index(existing, HookMarkerStart)
	endIdx := strings.Index(existing, HookMarkerEnd)
	content = existing
	if startIdx != -1 && endIdx != -1 && endIdx > startIdx {
		after := strings.TrimPrefix(existing[endIdx+len(HookMarkerEnd):], "\n")
		content = existing[:startIdx] + after
	}
	trimmed := strings.TrimSpace(content)
	return content, trimmed == "" || trimmed == "#!/bin/sh" || trimmed == "#!/bin/bash"
}
