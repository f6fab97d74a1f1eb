package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fgrehm/vscode-search-provider/internal/flavor"
	"github.com/fgrehm/vscode-search-provider/internal/workspace"
)

// Store file locations relative to a flavor config directory, in probe
// order. The first one that exists in a directory is its source.
var storeFiles = []string{
	filepath.Join("User", "globalStorage", "state.vscdb"),
	filepath.Join("User", "globalStorage", "storage.json"),
	"storage.json",
}

// Reader loads recent workspaces from the persisted state of the editor.
type Reader struct {
	userConfigDir string
	home          string
	logger        *slog.Logger
	stat          func(string) (fs.FileInfo, error)
}

// NewReader creates a Reader for the current user's config and home
// directories.
func NewReader(logger *slog.Logger) (*Reader, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("getting user config directory: %w", err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}
	return NewReaderAt(configDir, home, logger), nil
}

// NewReaderAt creates a Reader with explicit directories. Useful for testing.
func NewReaderAt(userConfigDir, home string, logger *slog.Logger) *Reader {
	return &Reader{
		userConfigDir: userConfigDir,
		home:          home,
		logger:        logger,
		stat:          osStat,
	}
}

// Sources returns every store file the flavor may be read from, whether it
// exists or not.
func (r *Reader) Sources(f flavor.Flavor) []string {
	var paths []string
	for _, dir := range f.ResolveConfigDirs(r.userConfigDir, r.home) {
		for _, name := range storeFiles {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	return paths
}

// Load returns the recent workspaces of flavor f in store order. A flavor
// without any store file has no workspaces; that is not an error. A store
// file that cannot be read or parsed yields a *ReadError.
func (r *Reader) Load(ctx context.Context, f flavor.Flavor) ([]workspace.Record, error) {
	var (
		records []workspace.Record
		seen    = make(map[string]bool)
	)
	for _, dir := range f.ResolveConfigDirs(r.userConfigDir, r.home) {
		src, ok := r.findStore(dir)
		if !ok {
			continue
		}

		entries, err := r.readEntries(ctx, src)
		if err != nil {
			return nil, &ReadError{Flavor: f.ID, Path: src, Err: err}
		}

		for _, e := range entries {
			rec, err := normalize(e, f, r.stat)
			if errors.Is(err, errStale) {
				r.logger.Debug("dropping stale workspace", "flavor", f.ID, "uri", e.URI)
				continue
			}
			if err != nil {
				r.logger.Warn("skipping workspace", "flavor", f.ID, "uri", e.URI, "error", err)
				continue
			}
			if seen[rec.ID] {
				continue
			}
			seen[rec.ID] = true
			records = append(records, rec)
		}
	}
	return records, nil
}

func (r *Reader) findStore(dir string) (string, bool) {
	for _, name := range storeFiles {
		p := filepath.Join(dir, name)
		if info, err := r.stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}

func (r *Reader) readEntries(ctx context.Context, src string) ([]Entry, error) {
	var (
		entries []Entry
		skipped []error
		err     error
	)
	if filepath.Ext(src) == ".vscdb" {
		value, found, dbErr := readStateDB(ctx, src)
		if dbErr != nil {
			return nil, dbErr
		}
		if !found {
			return nil, nil
		}
		entries, skipped, err = ParseList(value)
	} else {
		data, readErr := os.ReadFile(src)
		if readErr != nil {
			return nil, readErr
		}
		entries, skipped, err = ParseStorage(data)
	}
	if err != nil {
		return nil, err
	}
	for _, s := range skipped {
		r.logger.Warn("skipping malformed entry", "path", src, "error", s)
	}
	return entries, nil
}
