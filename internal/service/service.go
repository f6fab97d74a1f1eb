// Package service wires the index, providers, watcher and bus binding into
// the long running search provider process.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fgrehm/vscode-search-provider/internal/bus"
	"github.com/fgrehm/vscode-search-provider/internal/config"
	"github.com/fgrehm/vscode-search-provider/internal/flavor"
	"github.com/fgrehm/vscode-search-provider/internal/launch"
	"github.com/fgrehm/vscode-search-provider/internal/provider"
	"github.com/fgrehm/vscode-search-provider/internal/storage"
	"github.com/fgrehm/vscode-search-provider/internal/watch"
	"github.com/fgrehm/vscode-search-provider/internal/workspace"
	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"
)

// ErrAlreadyRunning is returned when another instance holds the lock.
var ErrAlreadyRunning = errors.New("another instance is already running")

const lockName = "vscode-search-provider.lock"

// DefaultLockPath returns the single-instance lock path: in the runtime
// directory if there is one, the user cache directory otherwise.
func DefaultLockPath() (string, error) {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, lockName), nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("determining lock directory: %w", err)
	}
	return filepath.Join(dir, "vscode-search-provider", lockName), nil
}

// Lock takes the single-instance lock at path without waiting. The returned
// function releases it.
func Lock(path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	l := flock.New(path)
	locked, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (lock: %s)", ErrAlreadyRunning, path)
	}
	return func() { _ = l.Unlock() }, nil
}

// SelectFlavors returns the enabled flavors whose app is installed, or all
// enabled flavors if all is set.
func SelectFlavors(cfg *config.Config, all bool, logger *slog.Logger) []flavor.Flavor {
	enabled := cfg.EnabledFlavors()
	if all {
		return enabled
	}
	var out []flavor.Flavor
	for _, f := range enabled {
		if !f.Installed() {
			logger.Debug("skipping flavor, app not installed", "flavor", f.ID, "desktop_id", f.DesktopID)
			continue
		}
		out = append(out, f)
	}
	return out
}

// Service is the search provider process.
type Service struct {
	cfg      *config.Config
	flavors  []flavor.Flavor
	reader   *storage.Reader
	launcher launch.Launcher
	logger   *slog.Logger
}

// New creates a Service serving flavors. Stores are read through reader and
// results are opened through launcher.
func New(cfg *config.Config, flavors []flavor.Flavor, reader *storage.Reader, launcher launch.Launcher, logger *slog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		flavors:  flavors,
		reader:   reader,
		launcher: launcher,
		logger:   logger,
	}
}

// Run serves search requests on conn until ctx is cancelled.
func (s *Service) Run(ctx context.Context, conn bus.Conn) error {
	lockPath := s.cfg.LockFile
	if lockPath == "" {
		var err error
		if lockPath, err = DefaultLockPath(); err != nil {
			return err
		}
	}
	unlock, err := Lock(lockPath)
	if err != nil {
		return err
	}
	defer unlock()

	if len(s.flavors) == 0 {
		s.logger.Warn("no installed flavors found, serving no providers")
	}

	index := workspace.NewIndex(s.flavors, s.reader, s.logger)
	snap, err := index.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("loading recent workspaces: %w", err)
	}
	s.logger.Info("loaded recent workspaces", "records", snap.Len(), "flavors", len(s.flavors))

	dispatcher := launch.NewDispatcher(s.launcher, s.logger)
	server := bus.NewServer(conn, s.cfg.BusName, s.logger)
	for _, f := range s.flavors {
		session := provider.NewSession(index, dispatcher, provider.Options{
			Flavor:          &f,
			Limit:           s.cfg.Limit,
			RefreshOnSearch: s.cfg.RefreshOnSearch,
		}, s.logger)
		if err := server.Export(ctx, f, session); err != nil {
			return err
		}
	}

	if err := server.Acquire(); err != nil {
		return err
	}
	defer server.Release()

	g, gctx := errgroup.WithContext(ctx)
	s.startRefreshers(gctx, g, index)
	return g.Wait()
}

// startRefreshers keeps the index current: through the file watcher if
// enabled, periodically if configured or if the watcher cannot start.
func (s *Service) startRefreshers(ctx context.Context, g *errgroup.Group, index *workspace.Index) {
	interval := s.cfg.RefreshInterval.Std()

	if s.cfg.Watch {
		var files []string
		for _, f := range s.flavors {
			files = append(files, s.reader.Sources(f)...)
		}
		w := watch.New(files, index, s.cfg.Debounce.Std(), s.logger)
		g.Go(func() error {
			err := w.Run(ctx)
			if err == nil || interval > 0 {
				return nil
			}
			s.logger.Warn("file watcher unavailable, refreshing periodically",
				"interval", config.FallbackRefreshInterval, "error", err)
			watch.Periodic(ctx, config.FallbackRefreshInterval, index, s.logger)
			return nil
		})
	}

	if interval > 0 {
		g.Go(func() error {
			watch.Periodic(ctx, interval, index, s.logger)
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down")
		return nil
	})
}
