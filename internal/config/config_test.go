package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kensa/internal/errs"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kensa.yaml")
	content := `
embedding_model: "mock:8"
review_model: "ollama:llama3"
max_chunk_chars: 400
overlap_chars: 80
top_k: 5
block_on: ["blocker", "warning"]
storage:
  index_path: "./data/index.json"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.EmbeddingModel != "mock:8" || cfg.ReviewModel != "ollama:llama3" {
		t.Errorf("unexpected models: %q %q", cfg.EmbeddingModel, cfg.ReviewModel)
	}
	if cfg.MaxChunkChars != 400 || cfg.OverlapChars != 80 || cfg.TopK != 5 {
		t.Errorf("unexpected chunking config: %+v", cfg)
	}
	wantIndex := filepath.Join(dir, "data", "index.json")
	if cfg.Storage.IndexPath != wantIndex {
		t.Errorf("index_path = %s, want %s", cfg.Storage.IndexPath, wantIndex)
	}
	if cfg.Root != dir {
		t.Errorf("root = %s, want %s", cfg.Root, dir)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_JSONRecord(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kensa.json")
	content := `{
  "embedding_model": "openai:text-embedding-3-small",
  "review_model": "anthropic:claude-3-5-sonnet-latest",
  "include": ["src/**/*.ts"],
  "ignore": ["**/*.test.ts"],
  "max_chunk_chars": 1000,
  "overlap_chars": 0,
  "top_k": 4,
  "per_file_context_cap": 2,
  "block_on": ["blocker"],
  "max_prompt_chars": 12000
}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Include) != 1 || cfg.Include[0] != "src/**/*.ts" {
		t.Errorf("include = %v", cfg.Include)
	}
	if cfg.MaxPromptChars != 12000 || cfg.PerFileContextCap != 2 {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoad_missingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errs.Is(err, errs.Configuration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestLoad_malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("top_k: [unterminated"), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if !errs.Is(err, errs.Configuration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestLoad_disabledPathsStayDisabled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kensa.yaml")
	content := `
storage:
  keyword_index_path: "off"
  history_path: "off"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if Enabled(cfg.Storage.KeywordIndexPath) || Enabled(cfg.Storage.HistoryPath) {
		t.Errorf("expected optional stores disabled: %+v", cfg.Storage)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{}
		ApplyDefaults(c)
		return c
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"zero overlap", func(c *Config) { c.OverlapChars = 0 }, true},
		{"negative chunk", func(c *Config) { c.MaxChunkChars = -1 }, false},
		{"negative overlap", func(c *Config) { c.OverlapChars = -5 }, false},
		{"overlap not smaller", func(c *Config) { c.OverlapChars = c.MaxChunkChars }, false},
		{"zero topk", func(c *Config) { c.TopK = 0 }, false},
		{"unknown severity", func(c *Config) { c.BlockOn = []string{"critical"} }, false},
		{"zero prompt budget", func(c *Config) { c.MaxPromptChars = 0 }, false},
		{"negative file cap", func(c *Config) { c.PerFileContextCap = -1 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
			if err != nil && !errs.Is(err, errs.Configuration) {
				t.Errorf("expected configuration error kind, got %v", err)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.TopK != 8 {
		t.Errorf("default top_k: got %d", cfg.TopK)
	}
	if cfg.MaxChunkChars != 1200 {
		t.Errorf("default max_chunk_chars: got %d", cfg.MaxChunkChars)
	}
	if len(cfg.BlockOn) != 1 || cfg.BlockOn[0] != "blocker" {
		t.Errorf("default block_on: got %v", cfg.BlockOn)
	}
	if cfg.MaxAttempts != 3 {
		t.Errorf("default max_attempts: got %d", cfg.MaxAttempts)
	}
	if cfg.Storage.IndexPath != ".kensa/index.json" {
		t.Errorf("default index_path: got %s", cfg.Storage.IndexPath)
	}
}

func TestReviewProjection(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.BlockOn = []string{"blocker", "warning"}
	rc := cfg.Review()
	rc.BlockOn[0] = "nit"
	if cfg.BlockOn[0] != "blocker" {
		t.Error("projection must not alias the config's block_on slice")
	}
	if rc.ReviewModel != cfg.ReviewModel || rc.MaxPromptChars != cfg.MaxPromptChars {
		t.Errorf("projection mismatch: %+v", rc)
	}
}
