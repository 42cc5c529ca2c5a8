package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hyperjump/kensa/internal/cli"
	"github.com/hyperjump/kensa/internal/config"
	"github.com/hyperjump/kensa/internal/embedding"
	"github.com/hyperjump/kensa/internal/errs"
	"github.com/hyperjump/kensa/internal/indexer"
	"github.com/hyperjump/kensa/internal/keyword"
	"github.com/hyperjump/kensa/internal/search"
	"github.com/hyperjump/kensa/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) buildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Index the codebase into embedding chunks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := a.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			emb, err := a.embedder(cfg)
			if err != nil {
				return err
			}
			defer emb.Close()

			builder, err := indexer.NewBuilder(cfg, emb, indexer.WithLogger(logger))
			if err != nil {
				return err
			}
			start := time.Now()
			idx, err := builder.Build(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Indexed %d chunks from %d files (dim %d, model %s) in %s\n",
				len(idx.Chunks), len(idx.Files()), idx.Dim, idx.EmbedModel, time.Since(start).Round(time.Millisecond))
			fmt.Fprintf(a.stdout, "Index written to %s\n", cfg.Storage.IndexPath)
			return nil
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a summary of the persisted index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cli.ParseFormat(format)
			if err != nil {
				return errs.E(errs.Configuration, "status", err)
			}
			cfg, logger, err := a.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			idx, err := storage.LoadIndex(cfg.Storage.IndexPath)
			if err != nil {
				return err
			}
			st := idx.Status(cfg.Storage.IndexPath)
			st.DiskUsageBytes, err = storage.DiskUsageBytes(storagePaths(cfg)...)
			if err != nil {
				logger.Warn("failed to measure disk usage", zap.Error(err))
			}
			if kw, ok := openKeyword(cfg, logger); ok {
				if n, err := kw.DocCount(); err == nil {
					st.KeywordDocs = n
				}
				kw.Close()
			}
			if config.Enabled(cfg.Storage.HistoryPath) && exists(cfg.Storage.HistoryPath) {
				if hist, err := storage.NewSQLiteStorage(cfg.Storage.HistoryPath); err == nil {
					if n, err := hist.CountRuns(cmd.Context()); err == nil {
						st.ReviewRuns = n
					}
					hist.Close()
				}
			}
			return cli.WriteStatus(a.stdout, st, out)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text or json")
	return cmd
}

// storagePaths lists the enabled on-disk artifacts.
func storagePaths(cfg *config.Config) []string {
	paths := []string{cfg.Storage.IndexPath}
	for _, p := range []string{cfg.Storage.KeywordIndexPath, cfg.Storage.HistoryPath} {
		if config.Enabled(p) {
			paths = append(paths, p)
		}
	}
	return paths
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// openKeyword opens the keyword index when it is enabled and has been built.
func openKeyword(cfg *config.Config, logger *zap.Logger) (*keyword.BleveIndex, bool) {
	path := cfg.Storage.KeywordIndexPath
	if !config.Enabled(path) || !exists(path) {
		return nil, false
	}
	kw, err := keyword.NewBleveIndex(path)
	if err != nil {
		logger.Warn("keyword index unavailable", zap.String("path", path), zap.Error(err))
		return nil, false
	}
	return kw, true
}

// openRetriever loads the persisted index and, when available, the keyword index.
// The returned close func releases the keyword index.
func openRetriever(cfg *config.Config, emb embedding.Embedder, logger *zap.Logger) (*search.Retriever, func(), error) {
	idx, err := storage.LoadIndex(cfg.Storage.IndexPath)
	if err != nil {
		return nil, nil, err
	}
	opts := []search.RetrieverOption{search.WithLogger(logger)}
	kw, hasKeyword := openKeyword(cfg, logger)
	if hasKeyword {
		opts = append(opts, search.WithKeywordIndex(kw))
	}
	closeFn := func() {
		if hasKeyword {
			kw.Close()
		}
	}
	ret, err := search.NewRetriever(idx, emb, cfg.TopK, opts...)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return ret, closeFn, nil
}

// rebuildLoop returns a watcher callback that rebuilds the index wholesale. onBuilt
// receives each new index; a failed rebuild is logged and the previous index stays.
func rebuildLoop(builder *indexer.Builder, logger *zap.Logger, before func(), onBuilt func(ctx context.Context)) func(ctx context.Context) {
	return func(ctx context.Context) {
		if before != nil {
			before()
		}
		start := time.Now()
		idx, err := builder.Build(ctx)
		if err != nil {
			logger.Error("rebuild failed", zap.Error(err))
		} else {
			logger.Info("index rebuilt",
				zap.Int("chunks", len(idx.Chunks)),
				zap.Duration("took", time.Since(start)))
		}
		if onBuilt != nil {
			onBuilt(ctx)
		}
	}
}
