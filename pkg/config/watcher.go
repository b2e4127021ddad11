package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the configuration file and invokes a reload callback when
// it changes. Editors often replace files via rename, so the parent
// directory is watched and events are filtered by name. Reloads are
// debounced to avoid storms from write+chmod event pairs.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatcher creates a watcher for the configuration file at path.
func NewWatcher(path string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     path,
		debounce: 200 * time.Millisecond,
		logger:   logger,
	}
}

// Watch blocks until ctx is cancelled, invoking onReload with the freshly
// loaded configuration after each change. Reload errors are logged and the
// previous configuration stays in effect.
func (w *Watcher) Watch(ctx context.Context, onReload func(*Config) error) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	w.logger.Info("configuration watcher started", "path", w.path)

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&fsnotify.Chmod == fsnotify.Chmod {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("configuration watcher error", "error", err)

		case <-timerC:
			timer = nil
			timerC = nil

			cfg, err := LoadConfig(w.path)
			if err != nil {
				w.logger.Error("configuration reload failed, keeping previous", "error", err)
				continue
			}
			if err := onReload(cfg); err != nil {
				w.logger.Error("configuration reload rejected", "error", err)
				continue
			}
			w.logger.Info("configuration reloaded", "path", w.path)
		}
	}
}
