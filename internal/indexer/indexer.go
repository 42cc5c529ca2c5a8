package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hyperjump/kensa/internal/config"
	"github.com/hyperjump/kensa/internal/embedding"
	"github.com/hyperjump/kensa/internal/errs"
	"github.com/hyperjump/kensa/internal/extract"
	"github.com/hyperjump/kensa/internal/fileid"
	"github.com/hyperjump/kensa/internal/keyword"
	"github.com/hyperjump/kensa/internal/models"
	"github.com/hyperjump/kensa/internal/storage"
	"go.uber.org/zap"
)

// Builder turns the files under a root directory into a persisted embedding index.
type Builder struct {
	root        string
	matcher     *Matcher
	chunker     *Chunker
	embedder    embedding.Embedder
	extractor   *extract.Extractor
	workers     int
	indexPath   string
	keywordPath string
	logger      *zap.Logger
	now         func() time.Time
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets a logger for progress and skipped-file warnings.
func WithLogger(l *zap.Logger) BuilderOption {
	return func(b *Builder) { b.logger = l }
}

// WithClock overrides the clock used for Index.CreatedAt.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

// NewBuilder creates a builder from cfg. The embedder is owned by the caller.
func NewBuilder(cfg *config.Config, embedder embedding.Embedder, opts ...BuilderOption) (*Builder, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, errs.E(errs.Configuration, "new builder", fmt.Errorf("resolving root: %w", err))
	}
	b := &Builder{
		root:      root,
		chunker:   NewChunker(cfg.MaxChunkChars, cfg.OverlapChars),
		embedder:  embedder,
		extractor: extract.NewExtractor(),
		workers:   cfg.EmbedWorkers,
		indexPath: cfg.Storage.IndexPath,
		logger:    zap.NewNop(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	if config.Enabled(cfg.Storage.KeywordIndexPath) {
		b.keywordPath = cfg.Storage.KeywordIndexPath
	}
	if b.workers < 1 {
		b.workers = 1
	}
	for _, opt := range opts {
		opt(b)
	}

	var extra []string
	for _, p := range []string{cfg.Storage.IndexPath, b.keywordPath, cfg.Storage.HistoryPath} {
		if dir := b.innerDir(p); dir != "" {
			extra = append(extra, dir+"/**")
		}
	}
	b.matcher, err = NewMatcher(cfg.Include, cfg.Ignore, extra...)
	if err != nil {
		return nil, errs.E(errs.Configuration, "new builder", err)
	}
	return b, nil
}

// innerDir returns the slash path, relative to root, of the directory holding p
// when that directory lies strictly inside root.
func (b *Builder) innerDir(p string) string {
	if !config.Enabled(p) {
		return ""
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return ""
	}
	rel, err := filepath.Rel(b.root, filepath.Dir(abs))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return filepath.ToSlash(rel)
}

// Root returns the absolute directory being indexed.
func (b *Builder) Root() string { return b.root }

// Matcher returns the include/ignore matcher in use.
func (b *Builder) Matcher() *Matcher { return b.matcher }

// Files returns the matching files under root as slash-separated relative paths,
// in lexical walk order.
func (b *Builder) Files(ctx context.Context) ([]string, error) {
	var files []string
	err := filepath.WalkDir(b.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == b.root {
				return walkErr
			}
			b.logger.Warn("skipping unreadable path", zap.String("path", p), zap.Error(walkErr))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(b.root, p)
		if err != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if b.matcher.SkipDir(rel) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if b.matcher.Match(rel) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, errs.E(errs.Indexing, "enumerate files", err)
	}
	return files, nil
}

// Build enumerates, chunks and embeds every matching file, then persists the index
// and, when configured, rebuilds the keyword index.
func (b *Builder) Build(ctx context.Context) (*models.Index, error) {
	idx, err := b.Collect(ctx)
	if err != nil {
		return nil, err
	}
	if err := storage.SaveIndex(b.indexPath, idx); err != nil {
		return nil, err
	}
	b.logger.Info("index saved",
		zap.String("path", b.indexPath),
		zap.Int("chunks", len(idx.Chunks)),
		zap.Int("dim", idx.Dim))

	if b.keywordPath != "" {
		kw, err := keyword.Rebuild(ctx, b.keywordPath, idx.Chunks)
		if err != nil {
			return nil, errs.E(errs.Indexing, "rebuild keyword index", err)
		}
		if err := kw.Close(); err != nil {
			return nil, errs.E(errs.Indexing, "rebuild keyword index", err)
		}
		b.logger.Debug("keyword index rebuilt", zap.String("path", b.keywordPath))
	}
	return idx, nil
}

// fileChunks holds the chunks of one file.
type fileChunks struct {
	path   string
	chunks []models.Chunk
}

// Collect builds the index in memory without persisting it.
func (b *Builder) Collect(ctx context.Context) (*models.Index, error) {
	files, err := b.Files(ctx)
	if err != nil {
		return nil, err
	}
	b.logger.Info("indexing files", zap.String("root", b.root), zap.Int("files", len(files)))

	var groups []fileChunks
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, errs.E(errs.Indexing, "build", err)
		}
		text, err := b.extractor.Extract(filepath.Join(b.root, filepath.FromSlash(rel)))
		if err != nil {
			b.logger.Warn("skipping file", zap.String("file", rel), zap.Error(err))
			continue
		}
		segments := b.chunker.Chunk(text)
		if len(segments) == 0 {
			continue
		}
		fc := fileChunks{path: rel, chunks: make([]models.Chunk, len(segments))}
		for i, seg := range segments {
			hash := fileid.ContentHash(seg.Text)
			fc.chunks[i] = models.Chunk{
				ID:        fileid.ChunkID(rel, seg.StartLine, seg.EndLine, hash),
				File:      rel,
				StartLine: seg.StartLine,
				EndLine:   seg.EndLine,
				Text:      seg.Text,
				Hash:      hash,
			}
		}
		groups = append(groups, fc)
	}

	groups, err = b.embed(ctx, groups)
	if err != nil {
		return nil, err
	}

	idx := &models.Index{
		Version:    models.IndexVersion,
		EmbedModel: b.embedder.Model(),
		CreatedAt:  b.now(),
		Chunks:     []models.Chunk{},
	}
	for _, g := range groups {
		for _, ch := range g.chunks {
			if idx.Dim == 0 {
				idx.Dim = len(ch.Vector)
			}
			if len(ch.Vector) != idx.Dim {
				return nil, errs.Errorf(errs.Indexing, "build",
					"%s:%d-%d: embedding has %d dimensions, index has %d",
					ch.File, ch.StartLine, ch.EndLine, len(ch.Vector), idx.Dim)
			}
			idx.Chunks = append(idx.Chunks, ch)
		}
	}
	return idx, nil
}

type embedJob struct {
	group, chunk int
}

// embed fills in vectors using a bounded pool of workers and returns the files whose
// chunks all embedded. Results are written by position, so order is preserved.
func (b *Builder) embed(ctx context.Context, groups []fileChunks) ([]fileChunks, error) {
	if len(groups) == 0 {
		return groups, nil
	}

	failed := make([]error, len(groups))
	var mu sync.Mutex
	jobs := make(chan embedJob)
	var wg sync.WaitGroup
	for w := 0; w < b.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				mu.Lock()
				skip := failed[job.group] != nil
				mu.Unlock()
				if skip {
					continue
				}
				ch := &groups[job.group].chunks[job.chunk]
				vec, err := b.embedder.Embed(ctx, ch.Text)
				if err != nil {
					mu.Lock()
					if failed[job.group] == nil {
						failed[job.group] = err
					}
					mu.Unlock()
					continue
				}
				ch.Vector = vec
			}
		}()
	}

send:
	for gi, g := range groups {
		for ci := range g.chunks {
			select {
			case jobs <- embedJob{group: gi, chunk: ci}:
			case <-ctx.Done():
				break send
			}
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, errs.E(errs.Indexing, "embed", err)
	}

	kept := make([]fileChunks, 0, len(groups))
	for gi, g := range groups {
		if failed[gi] != nil {
			b.logger.Warn("skipping file after embedding failure",
				zap.String("file", g.path), zap.Error(failed[gi]))
			continue
		}
		kept = append(kept, g)
	}
	return kept, nil
}
