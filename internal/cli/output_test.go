package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/kensa/internal/models"
)

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": OutputText, "text": OutputText, "json": OutputJSON} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("sarif"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWriteSearchResults(t *testing.T) {
	out := SearchOutput{
		Query: "retry",
		Mode:  "semantic",
		Results: []models.ScoredChunk{
			{Rank: 1, Score: 0.91, Chunk: models.Chunk{ID: "c1", File: "net/retry.go", StartLine: 10, EndLine: 24, Text: "func retry() {}"}},
		},
	}

	var text bytes.Buffer
	if err := WriteSearchResults(&text, out, OutputText); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Found 1 semantic results", "net/retry.go:10-24", "0.9100", "func retry() {}"} {
		if !strings.Contains(text.String(), want) {
			t.Errorf("text output missing %q:\n%s", want, text.String())
		}
	}

	var js bytes.Buffer
	if err := WriteSearchResults(&js, out, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded SearchOutput
	if err := json.Unmarshal(js.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, js.String())
	}
	if len(decoded.Results) != 1 || decoded.Results[0].Chunk.ID != "c1" {
		t.Errorf("decoded: %+v", decoded)
	}
}

func TestWriteSearchResults_emptyJSON(t *testing.T) {
	var js bytes.Buffer
	if err := WriteSearchResults(&js, SearchOutput{Query: "q"}, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(js.String(), `"results": []`) {
		t.Errorf("expected empty results array, got %s", js.String())
	}
}

func TestWriteStatus(t *testing.T) {
	st := models.IndexStatus{IndexPath: ".kensa/index.json", EmbedModel: "mock:8", Dim: 8, Chunks: 12, Files: 3,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), DiskUsageBytes: 2048}
	var buf bytes.Buffer
	if err := WriteStatus(&buf, st, OutputText); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"mock:8", "Chunks:      12", "Files:       3", "2.0 KiB"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("status missing %q:\n%s", want, buf.String())
		}
	}
}

func TestWriteHistory(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHistory(&buf, nil, 0, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No review runs") {
		t.Errorf("got %q", buf.String())
	}

	buf.Reset()
	runs := []*models.ReviewRun{{ID: "r1", Decision: models.Block, NoResult: true, ReviewModel: "openai:gpt-4o-mini"}}
	if err := WriteHistory(&buf, runs, 5, OutputText); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"1 of 5", "r1", "BLOCK", "(no result)"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("history missing %q:\n%s", want, buf.String())
		}
	}
}
