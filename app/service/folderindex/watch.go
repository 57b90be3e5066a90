package folderindex

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch rescans after directories appear, disappear or get renamed under the roots.
// Only the roots and their immediate children are watched, deeper changes wait for the periodic rescan.
// Bursts of events are collapsed into one rescan after the debounce period.
func (s *Service) Watch(ctx context.Context) error {
	cfg := s.cfg.Get().FolderIndex

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	skip := excludeSet(cfg.Excluded)

	for _, root := range s.roots(cfg) {
		s.watchDir(watcher, root)

		children, err := os.ReadDir(root)
		if err != nil {
			slog.Warn("Failed to list watch root", "root", root, "error", err)
			continue
		}

		for _, child := range children {
			if child.IsDir() && !isExcluded(child.Name(), skip) {
				s.watchDir(watcher, filepath.Join(root, child.Name()))
			}
		}
	}

	debounce := time.NewTimer(cfg.WatchDebounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err != nil || !info.IsDir() {
					continue
				}
			}

			slog.Debug("Folder change detected", "path", event.Name, "op", event.Op.String())
			debounce.Reset(cfg.WatchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Folder watcher error", "error", err)

		case <-debounce.C:
			s.refresh(ctx)
		}
	}
}

func (s *Service) watchDir(watcher *fsnotify.Watcher, dir string) {
	if err := watcher.Add(dir); err != nil {
		slog.Debug("Failed to watch directory", "dir", dir, "error", err)
	}
}
