package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the burst of events one editor save produces.
const reloadDelay = 100 * time.Millisecond

// Watch reloads configPath whenever it changes and hands the new server section
// to apply. Invalid files are logged and skipped. It blocks until ctx is done.
//
// The parent directory is watched rather than the file, since editors and
// SaveConfig replace the file by renaming.
func Watch(ctx context.Context, configPath string, apply func(ServerConfig)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(configPath)); err != nil {
		return fmt.Errorf("watch %s: %w", configPath, err)
	}
	target := filepath.Clean(configPath)

	var pending <-chan time.Time
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
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				pending = time.After(reloadDelay)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnf("Config watcher error: %v", err)
		case <-pending:
			pending = nil
			cfg, err := LoadConfig(configPath)
			if err != nil {
				log.Warnf("Ignoring config change in %s: %v", configPath, err)
				continue
			}
			log.Debugf("Reloaded server config from %s", configPath)
			apply(cfg.Server)
		}
	}
}
