package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/fgrehm/vscode-search-provider/internal/flavor"
	"github.com/fgrehm/vscode-search-provider/internal/workspace"
)

// errStale marks entries whose local path no longer exists.
var errStale = errors.New("workspace no longer exists")

// normalize turns a raw entry into a record of flavor f. Local entries are
// checked against the filesystem; errStale is returned for entries pointing
// at deleted paths.
func normalize(e Entry, f flavor.Flavor, stat func(string) (fs.FileInfo, error)) (workspace.Record, error) {
	raw := strings.TrimSpace(e.URI)
	if raw == "" {
		return workspace.Record{}, errors.New("empty uri")
	}

	rec := workspace.Record{Kind: e.Kind, Flavor: f}
	var uriPath string
	switch {
	case strings.HasPrefix(raw, "/"), strings.HasPrefix(raw, "file:"):
		p := raw
		if !strings.HasPrefix(raw, "/") {
			u, err := url.Parse(raw)
			if err != nil {
				return workspace.Record{}, fmt.Errorf("parsing uri %q: %w", raw, err)
			}
			p = u.Path
		}
		p = path.Clean(p)
		if !path.IsAbs(p) {
			return workspace.Record{}, fmt.Errorf("uri %q is not an absolute path", raw)
		}
		info, err := stat(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
				return workspace.Record{}, fmt.Errorf("%s: %w", p, errStale)
			}
			return workspace.Record{}, fmt.Errorf("checking %s: %w", p, err)
		}
		rec.Path = p
		rec.URI = (&url.URL{Scheme: "file", Path: p}).String()
		rec.LastUsed = info.ModTime()
		uriPath = p
	default:
		// Remote authorities such as ssh-remote%2Bhost are not valid URL
		// hosts for net/url, so remote URIs are only split, not parsed.
		scheme, rest, ok := strings.Cut(raw, "://")
		if !ok || scheme == "" {
			return workspace.Record{}, fmt.Errorf("uri %q has no scheme", raw)
		}
		if _, p, ok := strings.Cut(rest, "/"); ok {
			uriPath = "/" + p
		}
		if unescaped, err := url.PathUnescape(uriPath); err == nil {
			uriPath = unescaped
		}
		rec.URI = raw
	}

	rec.Name = strings.TrimSpace(e.Label)
	if rec.Name == "" {
		rec.Name = baseName(uriPath)
		if e.Kind == workspace.KindWorkspace {
			rec.Name = strings.TrimSuffix(rec.Name, workspaceFileSuffix)
		}
	}
	if rec.Name == "" {
		return workspace.Record{}, fmt.Errorf("cannot derive a name from %q", raw)
	}

	rec.ID = workspace.RecordID(f.ID, rec.URI)
	return rec, nil
}

// baseName returns the last non-empty segment of p, or "" for the root.
func baseName(p string) string {
	p = strings.TrimRight(p, "/")
	if p == "" {
		return ""
	}
	return path.Base(p)
}

func osStat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}
