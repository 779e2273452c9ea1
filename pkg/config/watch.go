package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the loader's file whenever it changes and hands every new
// valid configuration to onChange. Invalid edits are logged and the last good
// configuration stays in effect. Watch blocks until ctx is done.
//
// The parent directory is watched so editors that replace the file by rename
// are picked up.
func Watch(ctx context.Context, l *Loader, logger *slog.Logger, onChange func(*Config)) error {
	if logger == nil {
		logger = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create watcher: %w", err)
	}
	defer watcher.Close()

	target, err := filepath.Abs(l.Path())
	if err != nil {
		return fmt.Errorf("config: resolve %s: %w", l.Path(), err)
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: mkdir %s: %w", dir, err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("config: watch %s: %w", dir, err)
	}

	lastHash := ""
	if cfg, ok := l.Last(); ok {
		lastHash = cfg.SourceHash
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", "error", err)
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			cfg, err := l.Reload()
			if err != nil {
				logger.Warn("config reload failed", "path", target, "error", err)
				continue
			}
			if cfg.SourceHash == lastHash {
				continue
			}
			lastHash = cfg.SourceHash
			logger.Info("config reloaded", "path", target)
			if onChange != nil {
				onChange(cfg)
			}
		}
	}
}
