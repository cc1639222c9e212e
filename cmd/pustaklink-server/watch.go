package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// catalogDebounce is how long the catalog file must be quiet before it is reloaded.
// Editors tend to write a file in several steps.
const catalogDebounce = 500 * time.Millisecond

// catalogWatcher reloads the catalog when its file changes.
type catalogWatcher struct {
	path     string
	reload   func() error
	logger   *zap.Logger
	debounce time.Duration
}

func newCatalogWatcher(path string, reload func() error, logger *zap.Logger) *catalogWatcher {
	return &catalogWatcher{
		path:     filepath.Clean(path),
		reload:   reload,
		logger:   logger.Named("watcher"),
		debounce: catalogDebounce,
	}
}

// Run watches until ctx is done. The directory is watched rather than the file itself,
// so that a catalog replaced by rename is still seen.
func (w *catalogWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create catalog watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", w.path, err)
	}
	w.logger.Info("watching catalog", zap.String("path", w.path))

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.logger.Debug("catalog changed", zap.String("op", event.Op.String()))
			timer.Reset(w.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("catalog watcher error", zap.Error(err))

		case <-timer.C:
			if err := w.reload(); err != nil {
				// keep serving the last good catalog
				w.logger.Error("catalog reload failed", zap.String("path", w.path), zap.Error(err))
			}
		}
	}
}
