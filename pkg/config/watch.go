package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-pkgz/lgr"
)

// watchDebounce collapses the burst of events editors produce on save.
const watchDebounce = 200 * time.Millisecond

// Watch reloads the configuration whenever one of cfg's config files changes and passes
// the new Config to fn. a file that fails to parse is logged and skipped, fn keeps the last
// good config. Watch blocks until ctx is canceled.
func Watch(ctx context.Context, cfg *Config, log lgr.L, fn func(*Config)) error {
	if log == nil {
		log = lgr.NoOp
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	// watch directories, not files, so atomic saves (write tmp + rename) are seen
	files := map[string]bool{}
	for _, dir := range []string{cfg.configDir, cfg.localDir} {
		if dir == "" {
			continue
		}
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		files[filepath.Clean(filepath.Join(dir, "config"))] = true
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !files[filepath.Clean(ev.Name)] || !isContentChange(ev.Op) {
				continue
			}
			pending = time.After(watchDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Logf("[WARN] config watcher: %v", err)
		case <-pending:
			pending = nil
			next, err := loadWithLocal(cfg.configDir, cfg.localDir)
			if err != nil {
				log.Logf("[WARN] config reload failed, keeping previous: %v", err)
				continue
			}
			log.Logf("[INFO] config reloaded")
			fn(next)
		}
	}
}

func isContentChange(op fsnotify.Op) bool {
	return op.Has(fsnotify.Write) || op.Has(fsnotify.Create) || op.Has(fsnotify.Rename) || op.Has(fsnotify.Remove)
}
