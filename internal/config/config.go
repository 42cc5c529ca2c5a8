// Package config provides configuration loading and structs for the kensa pipeline.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/kensa/internal/errs"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the build and review pipelines.
// A JSON document is valid YAML, so JSON-shaped config files load unchanged.
type Config struct {
	Debug bool `yaml:"debug"`

	// Root is the directory whose files are indexed.
	Root string `yaml:"root"`

	EmbeddingModel string `yaml:"embedding_model"`
	ReviewModel    string `yaml:"review_model"`

	Include []string `yaml:"include"`
	Ignore  []string `yaml:"ignore"`

	MaxChunkChars int `yaml:"max_chunk_chars"`
	OverlapChars  int `yaml:"overlap_chars"`
	TopK          int `yaml:"top_k"`
	// PerFileContextCap is reserved; it is validated but not enforced.
	PerFileContextCap int `yaml:"per_file_context_cap"`

	BlockOn        []string `yaml:"block_on"`
	MaxPromptChars int      `yaml:"max_prompt_chars"`
	MaxDiffChars   int      `yaml:"max_diff_chars"`
	MaxAttempts    int      `yaml:"max_attempts"`

	EmbedWorkers   int `yaml:"embed_workers"`
	EmbedCacheSize int `yaml:"embed_cache_size"`

	Storage StorageConfig `yaml:"storage"`
	Server  ServerConfig  `yaml:"server"`
	Watch   WatchConfig   `yaml:"watch"`
}

// Disabled turns off an optional storage path (keyword index, review history).
const Disabled = "off"

// Enabled reports whether an optional storage path is configured.
func Enabled(path string) bool {
	return path != "" && path != Disabled
}

// StorageConfig holds paths for the index file, keyword index and review history.
type StorageConfig struct {
	IndexPath        string `yaml:"index_path"`
	KeywordIndexPath string `yaml:"keyword_index_path"`
	HistoryPath      string `yaml:"history_path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// WatchConfig holds watch-and-rebuild settings.
type WatchConfig struct {
	DebounceMs int `yaml:"debounce_ms"`
}

// ReviewConfig is the narrowed projection of Config used by the review path.
type ReviewConfig struct {
	ReviewModel    string
	BlockOn        []string
	MaxPromptChars int
	MaxDiffChars   int
	MaxAttempts    int
}

// Review returns the review-path projection of cfg.
func (c *Config) Review() ReviewConfig {
	return ReviewConfig{
		ReviewModel:    c.ReviewModel,
		BlockOn:        append([]string(nil), c.BlockOn...),
		MaxPromptChars: c.MaxPromptChars,
		MaxDiffChars:   c.MaxDiffChars,
		MaxAttempts:    c.MaxAttempts,
	}
}

// Load reads and parses the config file at path, applies defaults, resolves paths
// relative to the config file's directory and validates the result.
// Every failure is a configuration error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.E(errs.Configuration, "load config", fmt.Errorf("failed to read config: %w", err))
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	configDir := filepath.Dir(path)
	cfg.Root = expandPath(cfg.Root, configDir)
	cfg.Storage.IndexPath = expandPath(cfg.Storage.IndexPath, configDir)
	cfg.Storage.KeywordIndexPath = expandPath(cfg.Storage.KeywordIndexPath, configDir)
	cfg.Storage.HistoryPath = expandPath(cfg.Storage.HistoryPath, configDir)
	return cfg, nil
}

// Parse decodes config data, applies defaults and validates. Paths are left as written.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errs.E(errs.Configuration, "load config", fmt.Errorf("failed to parse config: %w", err))
	}
	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration invariants.
func (c *Config) Validate() error {
	var problems []string
	if c.MaxChunkChars <= 0 {
		problems = append(problems, "max_chunk_chars must be > 0")
	}
	if c.OverlapChars < 0 {
		problems = append(problems, "overlap_chars must be >= 0")
	} else if c.MaxChunkChars > 0 && c.OverlapChars >= c.MaxChunkChars {
		problems = append(problems, "overlap_chars must be smaller than max_chunk_chars")
	}
	if c.TopK < 1 {
		problems = append(problems, "top_k must be >= 1")
	}
	if c.PerFileContextCap < 0 {
		problems = append(problems, "per_file_context_cap must be >= 0")
	}
	if c.MaxPromptChars <= 0 {
		problems = append(problems, "max_prompt_chars must be > 0")
	}
	if c.MaxAttempts < 1 {
		problems = append(problems, "max_attempts must be >= 1")
	}
	if strings.TrimSpace(c.EmbeddingModel) == "" {
		problems = append(problems, "embedding_model is required")
	}
	if strings.TrimSpace(c.ReviewModel) == "" {
		problems = append(problems, "review_model is required")
	}
	for _, s := range c.BlockOn {
		switch s {
		case "blocker", "warning", "nit":
		default:
			problems = append(problems, fmt.Sprintf("block_on: unknown severity %q", s))
		}
	}
	if len(problems) > 0 {
		return errs.E(errs.Configuration, "validate config", fmt.Errorf("%s", strings.Join(problems, "; ")))
	}
	return nil
}

// expandPath converts a relative path to one rooted at configDir. Empty stays empty.
func expandPath(path string, configDir string) string {
	if path == "" || path == Disabled || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
		return path
	}
	return filepath.Join(configDir, path)
}
