package review

import (
	"testing"

	"github.com/hyperjump/kensa/internal/models"
)

const validJSON = `{"inline":[{"file":"a.go","line":4,"comment":"nil deref","severity":"blocker"}],"general":[{"comment":"looks fine otherwise"}]}`

func TestParseResult_accepts(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"bare", validJSON},
		{"whitespace", "\n  " + validJSON + "\n\n"},
		{"fenced json", "Here is my review:\n```json\n" + validJSON + "\n```\nThanks!"},
		{"fenced plain", "```\n" + validJSON + "\n```"},
		{"trailing object", "I found one issue. Result: " + validJSON + "  \n"},
		{"prose with braces", "Consider using {} less. " + validJSON},
		{"fence quoted in snippet", "```json\n{\"inline\":[{\"file\":\"a.go\",\"line\":4,\"comment\":\"nil deref\",\"severity\":\"blocker\",\"snippet\":\"```go\\nx.y()\\n```\"}],\"general\":[{\"comment\":\"ok\"}]}\n```"},
		{"braces in strings", `Note: {"inline":[{"file":"a.go","line":4,"comment":"use } carefully {","severity":"blocker"}],"general":[{"comment":"ok"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ParseResult(tt.raw)
			if err != nil {
				t.Fatalf("ParseResult error: %v", err)
			}
			if len(res.Inline) != 1 || res.Inline[0].Severity != models.SeverityBlocker || res.Inline[0].Line != 4 {
				t.Errorf("unexpected inline: %+v", res.Inline)
			}
			if len(res.General) != 1 {
				t.Errorf("unexpected general: %+v", res.General)
			}
		})
	}
}

func TestParseResult_missingGeneral(t *testing.T) {
	res, err := ParseResult(`{"inline":[]}`)
	if err != nil {
		t.Fatalf("ParseResult error: %v", err)
	}
	if res.General == nil || res.Inline == nil {
		t.Error("slices should be non-nil")
	}
}

func TestParseResult_rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"prose", "LGTM, ship it."},
		{"null", "null"},
		{"array", "[]"},
		{"missing inline", `{"general":[]}`},
		{"unknown field", `{"inline":[],"general":[],"score":3}`},
		{"unknown finding field", `{"inline":[{"file":"a.go","line":1,"comment":"x","severity":"nit","category":"bug"}],"general":[]}`},
		{"anchored from model", `{"inline":[{"file":"a.go","line":1,"comment":"x","severity":"nit","anchored":true}],"general":[]}`},
		{"bad severity", `{"inline":[{"file":"a.go","line":1,"comment":"x","severity":"critical"}],"general":[]}`},
		{"line zero", `{"inline":[{"file":"a.go","line":0,"comment":"x","severity":"nit"}],"general":[]}`},
		{"empty file", `{"inline":[{"file":"","line":1,"comment":"x","severity":"nit"}],"general":[]}`},
		{"empty comment", `{"inline":[],"general":[{"file":"a.go","comment":""}]}`},
		{"two objects", `{"inline":[]} {"inline":[]}x`},
		{"truncated", `{"inline":[{"file":"a.go"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if res, err := ParseResult(tt.raw); err == nil {
				t.Errorf("ParseResult(%q) = %+v, want error", tt.raw, res)
			}
		})
	}
}

func TestTrailingObject(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{`x {"a":1}`, `{"a":1}`, true},
		{`x {"a":{"b":2}}` + "\n", `{"a":{"b":2}}`, true},
		{`{"a":1} tail`, "", false},
		{`{"a":"}"}`, `{"a":"}"}`, true},
		{`{"a":1`, "", false},
	}
	for _, tt := range tests {
		got, ok := trailingObject(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("trailingObject(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
