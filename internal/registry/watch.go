package registry

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watch invalidates the store's cache whenever the manifest file changes on
// disk, so the next Load re-parses without waiting for the TTL window.
// It blocks until ctx is cancelled. The parent directory is watched rather
// than the file itself because editors and atomic writers replace the file.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create manifest watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.ManifestPath())
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	manifest := filepath.Base(s.ManifestPath())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != manifest {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				log.Debug().Str("op", event.Op.String()).Msg("manifest changed; invalidating registry cache")
				s.Invalidate()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("manifest watcher error")
		}
	}
}
