package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webview/internal/infrastructure/logging"
)

// fileWatcher reports settled writes to a single file. Editors often
// replace files through a rename, so the parent directory is watched.
type fileWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	logger   *logging.Logger
	debounce time.Duration

	mu      sync.Mutex
	pending time.Time // Protected by mu
}

func newFileWatcher(path string, logger *logging.Logger) (*fileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	return &fileWatcher{
		watcher:  w,
		path:     abs,
		logger:   logger,
		debounce: 200 * time.Millisecond,
	}, nil
}

// Run calls onChange once per burst of changes until ctx is done.
func (w *fileWatcher) Run(ctx context.Context, onChange func()) {
	ticker := time.NewTicker(w.debounce / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watcher error", zap.Error(err))
		case <-ticker.C:
			if w.settled(time.Now()) {
				w.logger.Debug("File changed", zap.String("path", w.path))
				onChange()
			}
		}
	}
}

func (w *fileWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	w.mu.Lock()
	w.pending = time.Now()
	w.mu.Unlock()
}

// settled reports whether a pending change has been quiet for the debounce
// window, clearing it if so.
func (w *fileWatcher) settled(now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending.IsZero() || now.Sub(w.pending) < w.debounce {
		return false
	}
	w.pending = time.Time{}
	return true
}

func (w *fileWatcher) Close() error {
	return w.watcher.Close()
}
