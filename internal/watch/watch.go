// Package watch triggers index refreshes when store files change.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fgrehm/vscode-search-provider/internal/workspace"
	"github.com/fsnotify/fsnotify"
)

// Refresher rebuilds the index.
type Refresher interface {
	Refresh(ctx context.Context) (*workspace.Snapshot, error)
}

// Watcher refreshes the index after changes to any of a set of files.
//
// The editors replace their store files instead of writing them in place,
// so the parent directories are watched. Directories that do not exist yet
// are covered by watching their nearest existing ancestor until they appear.
type Watcher struct {
	files     map[string]bool
	dirs      []string
	refresher Refresher
	debounce  time.Duration
	logger    *slog.Logger
}

// New creates a Watcher for files.
func New(files []string, r Refresher, debounce time.Duration, logger *slog.Logger) *Watcher {
	w := &Watcher{
		files:     make(map[string]bool, len(files)),
		refresher: r,
		debounce:  debounce,
		logger:    logger,
	}
	seen := make(map[string]bool)
	for _, f := range files {
		f = filepath.Clean(f)
		w.files[f] = true
		dir := filepath.Dir(f)
		if !seen[dir] {
			seen[dir] = true
			w.dirs = append(w.dirs, dir)
		}
	}
	return w
}

// Run watches until ctx is cancelled. It returns an error only if watching
// cannot be set up at all.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	w.addWatches(fw)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) && w.isAncestor(ev.Name) {
				// A missing config directory may have appeared.
				w.addWatches(fw)
			}
			if w.relevant(ev.Name) {
				w.logger.Debug("store changed", "path", ev.Name, "op", ev.Op.String())
				timer.Reset(w.debounce)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)

		case <-timer.C:
			if _, err := w.refresher.Refresh(ctx); err != nil && ctx.Err() == nil {
				w.logger.Warn("refresh after change failed", "error", err)
			}
		}
	}
}

// addWatches watches every target directory, or its nearest existing
// ancestor when it does not exist.
func (w *Watcher) addWatches(fw *fsnotify.Watcher) {
	for _, dir := range w.dirs {
		target := nearestExisting(dir)
		if target == "" {
			continue
		}
		if err := fw.Add(target); err != nil {
			w.logger.Debug("cannot watch directory", "dir", target, "error", err)
		}
	}
}

// relevant reports whether a change to name may alter a store: the store
// file itself or one of the SQLite side files next to it.
func (w *Watcher) relevant(name string) bool {
	name = filepath.Clean(name)
	if w.files[name] {
		return true
	}
	for _, suffix := range []string{"-wal", "-journal"} {
		if base, ok := strings.CutSuffix(name, suffix); ok && w.files[base] {
			return true
		}
	}
	return false
}

// isAncestor reports whether path is one of the watched directories or lies
// on the way to one.
func (w *Watcher) isAncestor(path string) bool {
	path = filepath.Clean(path)
	for _, dir := range w.dirs {
		if dir == path || strings.HasPrefix(dir, path+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func nearestExisting(dir string) string {
	for {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Periodic refreshes the index every interval until ctx is cancelled.
func Periodic(ctx context.Context, interval time.Duration, r Refresher, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("periodic refresh failed", "error", err)
			}
		}
	}
}
