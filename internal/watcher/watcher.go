// Package watcher ingests producer files dropped into an intake directory.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"osintgraph/internal/codec"
	"osintgraph/internal/producer"
)

// DefaultDebounce is how long a file must be quiet before it is ingested
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a directory and applies every recognized file written
// to it
type Watcher struct {
	dir      string
	codecs   *codec.Registry
	apply    producer.ApplyFunc
	debounce time.Duration
	existing bool
	logger   *zap.Logger
}

// New creates a new intake watcher for dir
func New(dir string, codecs *codec.Registry, apply producer.ApplyFunc, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		dir:      dir,
		codecs:   codecs,
		apply:    apply,
		debounce: DefaultDebounce,
		logger:   logger,
	}
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// WithExisting makes Watch ingest files already in the directory first
func (w *Watcher) WithExisting() *Watcher {
	w.existing = true
	return w
}

// Watch starts watching the directory. It blocks until the context is
// cancelled or the watcher fails.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return err
	}

	w.logger.Info("watching intake directory", zap.String("dir", w.dir))

	if w.existing {
		entries, err := os.ReadDir(w.dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if !e.IsDir() {
				w.ingest(ctx, filepath.Join(w.dir, e.Name()))
			}
		}
	}

	// Debounce timers hand settled paths back to this loop so fragments are
	// applied one at a time
	ready := make(chan string, 16)
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !w.accepts(event.Name) {
				continue
			}

			path := event.Name
			if t, exists := timers[path]; exists {
				t.Stop()
			}
			timers[path] = time.AfterFunc(w.debounce, func() {
				select {
				case ready <- path:
				case <-ctx.Done():
				}
			})

		case path := <-ready:
			delete(timers, path)
			w.ingest(ctx, path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// accepts skips hidden, temporary and unrecognized files
func (w *Watcher) accepts(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".tmp") {
		return false
	}
	_, err := codec.DetectFormat(path)
	return err == nil
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	if !w.accepts(path) {
		return
	}

	p, err := producer.NewFileProducer(path, w.codecs)
	if err != nil {
		w.logger.Warn("skipping intake file", zap.String("path", path), zap.Error(err))
		return
	}

	fragment, err := p.Collect(ctx)
	if err != nil {
		w.logger.Warn("failed to parse intake file", zap.String("path", path), zap.Error(err))
		return
	}

	if err := w.apply(ctx, p.Name(), fragment); err != nil {
		w.logger.Warn("failed to apply intake file", zap.String("path", path), zap.Error(err))
		return
	}

	w.logger.Info("ingested intake file",
		zap.String("path", path),
		zap.Int("entities", len(fragment.Entities)),
		zap.Int("relations", len(fragment.Relations)))
}
