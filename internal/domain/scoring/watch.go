package scoring

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch reloads the registry whenever path is written or recreated, until ctx
// is cancelled. A failed reload is logged and the previous profiles stay.
func (r *Registry) Watch(ctx context.Context, path string, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// watch the directory: a rename-over save replaces the file's inode
	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}
	log.Info("watching scoring profiles", zap.String("path", path))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := r.Load(path); err != nil {
				log.Error("reload scoring profiles failed", zap.String("path", path), zap.Error(err))
				continue
			}
			log.Info("scoring profiles reloaded", zap.String("path", path), zap.String("default", r.DefaultName()))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("profile watcher error", zap.Error(err))
		}
	}
}
