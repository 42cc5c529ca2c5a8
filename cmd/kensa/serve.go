package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hyperjump/kensa/internal/config"
	"github.com/hyperjump/kensa/internal/embedding"
	"github.com/hyperjump/kensa/internal/indexer"
	"github.com/hyperjump/kensa/internal/search"
	"github.com/hyperjump/kensa/internal/server"
	"github.com/hyperjump/kensa/internal/storage"
	"github.com/hyperjump/kensa/internal/watcher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Rebuild the index whenever files under root change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := a.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			ctx := cmd.Context()

			emb, err := a.embedder(cfg)
			if err != nil {
				return err
			}
			defer emb.Close()
			builder, err := indexer.NewBuilder(cfg, emb, indexer.WithLogger(logger))
			if err != nil {
				return err
			}
			if _, err := builder.Build(ctx); err != nil {
				return err
			}

			w := newWatcher(cfg, builder, logger, rebuildLoop(builder, logger, nil, nil))
			if err := w.Start(ctx); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Watching %s (Ctrl+C to stop)\n", builder.Root())
			<-ctx.Done()
			w.Stop()
			return nil
		},
	}
}

func newWatcher(cfg *config.Config, builder *indexer.Builder, logger *zap.Logger, onChange func(ctx context.Context)) *watcher.Watcher {
	return watcher.NewWatcher(builder.Root(), builder.Matcher(), onChange,
		watcher.WithLogger(logger),
		watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMs)*time.Millisecond))
}

func (a *app) serveCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve retrieval, search and review history over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := a.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			ctx := cmd.Context()

			emb, err := a.embedder(cfg)
			if err != nil {
				return err
			}
			defer emb.Close()

			var builder *indexer.Builder
			if watch {
				builder, err = indexer.NewBuilder(cfg, emb, indexer.WithLogger(logger))
				if err != nil {
					return err
				}
				if _, err := builder.Build(ctx); err != nil {
					return err
				}
			}

			var history storage.HistoryStore
			if config.Enabled(cfg.Storage.HistoryPath) {
				hist, err := storage.NewSQLiteStorage(cfg.Storage.HistoryPath)
				if err != nil {
					return err
				}
				defer hist.Close()
				history = hist
			}

			live := &liveRetriever{cfg: cfg, emb: emb, logger: logger}
			ret, err := live.open()
			if err != nil {
				logger.Warn("no index loaded; run kensa build", zap.Error(err))
			}
			defer live.close()

			srv := server.NewServer(cfg, ret, history, logger)

			if watch {
				w := newWatcher(cfg, builder, logger, rebuildLoop(builder, logger,
					func() { srv.SetRetriever(live.release()) },
					func(context.Context) {
						if ret, err := live.open(); err != nil {
							logger.Error("reload index failed", zap.Error(err))
						} else {
							srv.SetRetriever(ret)
						}
					}))
				if err := w.Start(ctx); err != nil {
					return err
				}
				defer w.Stop()
			}

			errCh := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Stop(shutdownCtx)
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "rebuild the index on file changes and reload it")
	return cmd
}

// liveRetriever owns the retriever served by serve --watch. The keyword index holds a
// file lock, so it is released before each rebuild and reopened after.
type liveRetriever struct {
	cfg    *config.Config
	emb    embedding.Embedder
	logger *zap.Logger

	mu      sync.Mutex
	current *search.Retriever
	closeFn func()
}

func (l *liveRetriever) open() (*search.Retriever, error) {
	ret, closeFn, err := openRetriever(l.cfg, l.emb, l.logger)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	old := l.closeFn
	l.current, l.closeFn = ret, closeFn
	l.mu.Unlock()
	if old != nil {
		old()
	}
	return ret, nil
}

// release closes the keyword index and returns a semantic-only retriever over the
// current chunks, or nil when nothing is loaded.
func (l *liveRetriever) release() *search.Retriever {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closeFn != nil {
		l.closeFn()
		l.closeFn = nil
	}
	if l.current == nil {
		return nil
	}
	ret, err := search.NewRetriever(l.current.Index(), l.emb, l.cfg.TopK, search.WithLogger(l.logger))
	if err != nil {
		return nil
	}
	l.current = ret
	return ret
}

func (l *liveRetriever) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closeFn != nil {
		l.closeFn()
		l.closeFn = nil
	}
}
