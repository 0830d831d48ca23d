package botconfig

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"gopkg.in/fsnotify.v1"
)

// Watch reloads path into h whenever it is written or replaced, until ctx is
// cancelled. The parent directory is watched so editors that save by rename
// are picked up too. A file that fails to load leaves the previous content in
// place.
func Watch(ctx context.Context, path string, h *Holder) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create bot content watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(path)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				slog.Debug("botconfig.Watch: stopping", "path", path)
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				reload(path, h)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("botconfig.Watch: watcher error", "path", path, "error", err)
			}
		}
	}()

	slog.Info("botconfig.Watch: watching bot content", "path", path)
	return nil
}

func reload(path string, h *Holder) {
	c, err := Load(path)
	if err != nil {
		slog.Warn("botconfig.reload: keeping previous content", "path", path, "error", err)
		return
	}
	h.Set(c)
	slog.Info("botconfig.reload: bot content reloaded", "path", path, "menuItems", len(c.Menu))
}
