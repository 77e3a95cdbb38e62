package i18n

import (
	"context"
	"log/slog"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the manager's catalogs whenever a YAML file in its directory
// changes, until the context is cancelled. Reload failures keep the previous
// catalogs and are only logged.
func Watch(ctx context.Context, m *Manager, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watcher.Add(m.dir); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				name := strings.ToLower(event.Name)
				if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
					continue
				}
				if err := m.Reload(); err != nil {
					log.Warn("i18n catalog reload failed", "file", event.Name, "error", err)
					continue
				}
				log.Info("i18n catalogs reloaded", "file", event.Name)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("i18n watcher error", "error", err)
			}
		}
	}()

	return nil
}
