package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Root == "" {
		cfg.Root = "."
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "openai:text-embedding-3-small"
	}
	if cfg.ReviewModel == "" {
		cfg.ReviewModel = "openai:gpt-4o-mini"
	}
	if cfg.Include == nil {
		cfg.Include = []string{"**/*.go", "**/*.py", "**/*.ts", "**/*.tsx", "**/*.js", "**/*.md"}
	}
	if cfg.Ignore == nil {
		cfg.Ignore = []string{"vendor/**", "node_modules/**", "dist/**", "**/*.min.js"}
	}
	if cfg.MaxChunkChars == 0 {
		cfg.MaxChunkChars = 1200
	}
	// OverlapChars keeps its zero value: zero is a valid "no overlap" setting.
	if cfg.TopK == 0 {
		cfg.TopK = 8
	}
	if cfg.PerFileContextCap == 0 {
		cfg.PerFileContextCap = 3
	}
	if cfg.BlockOn == nil {
		cfg.BlockOn = []string{"blocker"}
	}
	if cfg.MaxPromptChars == 0 {
		cfg.MaxPromptChars = 24000
	}
	if cfg.MaxDiffChars == 0 {
		cfg.MaxDiffChars = 20000
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.EmbedWorkers <= 0 {
		cfg.EmbedWorkers = 4
	}
	if cfg.EmbedCacheSize == 0 {
		cfg.EmbedCacheSize = 1024
	}
	if cfg.Storage.IndexPath == "" {
		cfg.Storage.IndexPath = ".kensa/index.json"
	}
	if cfg.Storage.KeywordIndexPath == "" {
		cfg.Storage.KeywordIndexPath = ".kensa/keyword"
	}
	if cfg.Storage.HistoryPath == "" {
		cfg.Storage.HistoryPath = ".kensa/history.db"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8731
	}
	if cfg.Watch.DebounceMs == 0 {
		cfg.Watch.DebounceMs = 750
	}
}
