package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/kensa/internal/errs"
	"github.com/hyperjump/kensa/internal/models"
)

func sampleIndex() *models.Index {
	return &models.Index{
		Version:    models.IndexVersion,
		EmbedModel: "mock:3",
		Dim:        3,
		CreatedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Chunks: []models.Chunk{
			{ID: "c1", File: "a.go", StartLine: 1, EndLine: 4, Text: "package a", Hash: "h1", Vector: []float32{0.1, 0.2, 0.3}},
			{ID: "c2", File: "b.go", StartLine: 5, EndLine: 5, Text: "func b() {}", Hash: "h2", Vector: []float32{-1, 0, 1.5}},
		},
	}
}

func TestSaveLoadIndex_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".kensa", "index.json")
	want := sampleIndex()
	if err := SaveIndex(path, want); err != nil {
		t.Fatal(err)
	}
	got, err := LoadIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Dim != want.Dim || got.EmbedModel != want.EmbedModel || len(got.Chunks) != len(want.Chunks) {
		t.Fatalf("got %+v", got)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt: %v", got.CreatedAt)
	}
	for i := range want.Chunks {
		g, w := got.Chunks[i], want.Chunks[i]
		if g.ID != w.ID || g.StartLine != w.StartLine || g.EndLine != w.EndLine {
			t.Errorf("chunk %d: %+v", i, g)
		}
		for j := range w.Vector {
			if g.Vector[j] != w.Vector[j] {
				t.Errorf("chunk %d vector[%d]: %v != %v", i, j, g.Vector[j], w.Vector[j])
			}
		}
	}
}

func TestSaveIndex_ReplacesAndLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.json")
	if err := SaveIndex(path, sampleIndex()); err != nil {
		t.Fatal(err)
	}
	empty := &models.Index{Version: models.IndexVersion, EmbedModel: "mock:3"}
	if err := SaveIndex(path, empty); err != nil {
		t.Fatal(err)
	}
	got, err := LoadIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Chunks) != 0 || got.Dim != 0 {
		t.Errorf("expected empty index, got %+v", got)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only index.json, got %d entries", len(entries))
	}
}

func TestSaveIndex_RejectsDimMismatch(t *testing.T) {
	idx := sampleIndex()
	idx.Chunks[1].Vector = []float32{1}
	err := SaveIndex(filepath.Join(t.TempDir(), "index.json"), idx)
	if errs.KindOf(err) != errs.Indexing {
		t.Errorf("want indexing error, got %v", err)
	}
}

func TestLoadIndex_Errors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
		return p
	}
	tests := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(dir, "nope.json")},
		{"malformed", write("bad.json", "{not json")},
		{"version", write("v2.json", `{"version":2,"dim":0,"chunks":[]}`)},
		{"dim", write("dim.json", `{"version":1,"dim":2,"chunks":[{"id":"x","vector":[1,2,3]}]}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadIndex(tt.path)
			if errs.KindOf(err) != errs.Configuration {
				t.Errorf("want configuration error, got %v", err)
			}
		})
	}
}
