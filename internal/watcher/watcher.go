// Package watcher watches the index root with fsnotify and triggers debounced, serialized rebuilds.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 750 * time.Millisecond

// Filter decides which paths, relative to the root and slash-separated, are relevant.
type Filter interface {
	Match(rel string) bool
	SkipDir(rel string) bool
}

// Watcher calls onChange once per burst of relevant file events under root. Calls never overlap;
// events arriving during a call schedule exactly one follow-up call.
type Watcher struct {
	root     string
	filter   Filter
	onChange func(ctx context.Context)
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *zap.Logger

	mu       sync.Mutex
	timer    *time.Timer
	dirs     map[string]bool
	running  bool
	pending  bool
	ctx      context.Context
	done     chan struct{}
	started  bool
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets a logger for debug output (directory changes, file events, etc.).
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce sets the quiet period before onChange runs.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher for root. A nil filter accepts every file.
func NewWatcher(root string, filter Filter, onChange func(ctx context.Context), opts ...WatcherOption) *Watcher {
	w := &Watcher{
		root:     filepath.Clean(root),
		filter:   filter,
		onChange: onChange,
		debounce: defaultDebounce,
		logger:   zap.NewNop(),
		dirs:     make(map[string]bool),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start starts the watcher. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.ctx = ctx
	w.started = true
	w.logger.Debug("watcher starting", zap.String("root", w.root), zap.Duration("debounce", w.debounce))
	if err := w.addTreeLocked(w.root); err != nil {
		_ = w.watcher.Close()
		w.watcher = nil
		w.started = false
		w.mu.Unlock()
		return err
	}
	w.mu.Unlock()
	go w.run(ctx, watcher)
	return nil
}

func (w *Watcher) run(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	rel, ok := w.rel(ev.Name)
	if !ok {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", rel))

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.handleNewDirectory(ev.Name, rel)
			return
		}
	}
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		if w.forgetDir(ev.Name) || w.relevant(rel) {
			w.schedule()
		}
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		if w.relevant(rel) {
			w.schedule()
		}
	}
}

// forgetDir drops a watched directory that was removed or renamed away and reports whether it
// was watched.
func (w *Watcher) forgetDir(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	path = filepath.Clean(path)
	if !w.dirs[path] {
		return false
	}
	for d := range w.dirs {
		if d == path || strings.HasPrefix(d, path+string(filepath.Separator)) {
			delete(w.dirs, d)
		}
	}
	return true
}

// handleNewDirectory watches a directory created (or moved) under root and rebuilds when it
// holds relevant files.
func (w *Watcher) handleNewDirectory(dir, rel string) {
	if w.filter != nil && w.filter.SkipDir(rel) {
		return
	}
	w.logger.Debug("watcher handling new directory", zap.String("path", rel))

	w.mu.Lock()
	if w.watcher == nil {
		w.mu.Unlock()
		return
	}
	err := w.addTreeLocked(dir)
	w.mu.Unlock()
	if err != nil {
		w.logger.Debug("watcher failed to add directory", zap.String("path", rel), zap.Error(err))
	}

	found := false
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || found {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if r, ok := w.rel(path); ok && w.relevant(r) {
			found = true
			return filepath.SkipAll
		}
		return nil
	})
	if found {
		w.schedule()
	}
}

func (w *Watcher) rel(path string) (string, bool) {
	r, err := filepath.Rel(w.root, filepath.Clean(path))
	if err != nil || r == "." || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(r), true
}

func (w *Watcher) relevant(rel string) bool {
	return w.filter == nil || w.filter.Match(rel)
}

// schedule (re)starts the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

// fire runs onChange unless a call is already in flight, in which case it marks one pending.
func (w *Watcher) fire() {
	w.mu.Lock()
	w.timer = nil
	if !w.started {
		w.mu.Unlock()
		return
	}
	if w.running {
		w.pending = true
		w.mu.Unlock()
		return
	}
	w.running = true
	ctx := w.ctx
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		for {
			w.logger.Debug("watcher rebuilding")
			if w.onChange != nil {
				w.onChange(ctx)
			}
			w.mu.Lock()
			if !w.pending || !w.started {
				w.running = false
				w.pending = false
				w.mu.Unlock()
				return
			}
			w.pending = false
			w.mu.Unlock()
		}
	}()
}

// addTreeLocked watches dir and every subdirectory not pruned by the filter.
func (w *Watcher) addTreeLocked(dir string) error {
	if _, err := os.Stat(dir); err != nil {
		return err
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if rel, ok := w.rel(path); ok && w.filter != nil && w.filter.SkipDir(rel) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return err
		}
		w.dirs[filepath.Clean(path)] = true
		return nil
	})
}

// Stop stops the watcher, cancels any pending rebuild and waits for a running one to finish.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.dirs = make(map[string]bool)
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
	w.wg.Wait()
}
