// Package provider implements the search provider protocol on top of the
// workspace index: a search installs a result window, later metadata and
// activation requests are resolved against that window only.
package provider

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/fgrehm/vscode-search-provider/internal/flavor"
	"github.com/fgrehm/vscode-search-provider/internal/search"
	"github.com/fgrehm/vscode-search-provider/internal/workspace"
)

// Source provides index snapshots.
type Source interface {
	Snapshot() *workspace.Snapshot
	Refresh(ctx context.Context) (*workspace.Snapshot, error)
}

// Activator opens records and apps.
type Activator interface {
	Activate(ctx context.Context, r workspace.Record) error
	LaunchApp(ctx context.Context, f flavor.Flavor) error
}

// State is the last protocol transition of a session.
type State int

const (
	Idle State = iota
	Searched
	MetadataServed
	Activated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Searched:
		return "searched"
	case MetadataServed:
		return "metadata-served"
	case Activated:
		return "activated"
	}
	return "unknown"
}

// Meta is the display information of one result.
type Meta struct {
	ID          string
	Name        string
	Description string
	Icon        string
}

// window is the immutable result set of one search.
type window struct {
	generation uint64
	records    map[string]workspace.Record
}

// Options configures a Session.
type Options struct {
	// Flavor restricts the session to the records of one flavor and is the
	// app launched by LaunchSearch when nothing matches. Nil means all
	// flavors.
	Flavor *flavor.Flavor

	// Limit caps the number of results per search.
	Limit int

	// RefreshOnSearch refreshes the index before every initial search.
	RefreshOnSearch bool
}

// Session tracks the result window of one search provider. All methods are
// safe for concurrent use.
type Session struct {
	source    Source
	activator Activator
	opts      Options
	logger    *slog.Logger

	// issued is the generation of the most recently started search.
	issued atomic.Uint64

	mu     sync.Mutex
	window *window
	state  State
}

// NewSession creates an idle session.
func NewSession(source Source, activator Activator, opts Options, logger *slog.Logger) *Session {
	if opts.Flavor != nil {
		logger = logger.With("flavor", opts.Flavor.ID)
	}
	return &Session{
		source:    source,
		activator: activator,
		opts:      opts,
		logger:    logger,
		window:    &window{},
	}
}

// State returns the last transition of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Search runs an initial search and returns matching ids, best first. The
// result becomes the new window unless a newer search was started while
// this one ran.
func (s *Session) Search(ctx context.Context, terms []string) ([]string, error) {
	matches, err := s.search(ctx, terms)
	if err != nil {
		return nil, err
	}
	return matchIDs(matches), nil
}

func (s *Session) search(ctx context.Context, terms []string) ([]search.Match, error) {
	gen := s.issued.Add(1)

	snap := s.source.Snapshot()
	if s.opts.RefreshOnSearch {
		refreshed, err := s.source.Refresh(ctx)
		if err != nil {
			return nil, err
		}
		snap = refreshed
	}

	s.logger.Debug("searching", "terms", terms, "generation", gen)
	matches := search.Rank(s.candidates(snap.Records()), terms, s.opts.Limit)
	s.install(gen, matches)
	return matches, nil
}

// Subsearch refines a previous search: only records among previous are
// considered. The result replaces the window like Search does.
func (s *Session) Subsearch(ctx context.Context, previous, terms []string) ([]string, error) {
	gen := s.issued.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := s.source.Snapshot()
	candidates := make([]workspace.Record, 0, len(previous))
	for _, id := range previous {
		if r, ok := snap.Get(id); ok {
			candidates = append(candidates, r)
		}
	}

	s.logger.Debug("refining search", "terms", terms, "previous", len(previous), "generation", gen)
	matches := search.Rank(s.candidates(candidates), terms, s.opts.Limit)
	s.install(gen, matches)
	return matchIDs(matches), nil
}

// candidates applies the session's flavor filter.
func (s *Session) candidates(records []workspace.Record) []workspace.Record {
	if s.opts.Flavor == nil {
		return records
	}
	filtered := make([]workspace.Record, 0, len(records))
	for _, r := range records {
		if r.Flavor.ID == s.opts.Flavor.ID {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// install makes matches the current window if gen is still the latest
// issued generation.
func (s *Session) install(gen uint64, matches []search.Match) {
	records := make(map[string]workspace.Record, len(matches))
	for _, m := range matches {
		records[m.Record.ID] = m.Record
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.issued.Load() {
		s.logger.Debug("discarding stale search result", "generation", gen, "latest", s.issued.Load())
		return
	}
	s.window = &window{generation: gen, records: records}
	s.state = Searched
	s.logger.Debug("installed result window", "generation", gen, "results", len(records))
}

func matchIDs(matches []search.Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Record.ID
	}
	return out
}

// lookup resolves id against the current window.
func (s *Session) lookup(id string) (workspace.Record, bool) {
	s.mu.Lock()
	w := s.window
	s.mu.Unlock()
	r, ok := w.records[id]
	return r, ok
}

// Metas returns display information for the ids of the current window, in
// the order requested. Ids outside the window are skipped.
func (s *Session) Metas(ids []string) []Meta {
	metas := make([]Meta, 0, len(ids))
	for _, id := range ids {
		r, ok := s.lookup(id)
		if !ok {
			s.logger.Warn("metadata requested for unknown result", "id", id)
			continue
		}
		metas = append(metas, Meta{
			ID:          id,
			Name:        r.Name,
			Description: r.Description(),
			Icon:        r.Flavor.Icon,
		})
	}
	s.transition(MetadataServed)
	return metas
}

// Activate opens the result with the given id. The id must be part of the
// current window.
func (s *Session) Activate(ctx context.Context, id string) error {
	r, ok := s.lookup(id)
	if !ok {
		s.logger.Error("activation requested for unknown result", "id", id)
		return &UnknownResultError{ID: id}
	}
	if err := s.activator.Activate(ctx, r); err != nil {
		return err
	}
	s.transition(Activated)
	return nil
}

// LaunchSearch searches for terms and opens the best match. Without a match
// a flavor-bound session starts its app instead.
func (s *Session) LaunchSearch(ctx context.Context, terms []string) error {
	matches, err := s.search(ctx, terms)
	if err != nil {
		return err
	}

	switch {
	case len(matches) > 0:
		err = s.activator.Activate(ctx, matches[0].Record)
	case s.opts.Flavor != nil:
		err = s.activator.LaunchApp(ctx, *s.opts.Flavor)
	default:
		s.logger.Info("nothing to launch", "terms", terms)
		return nil
	}
	if err != nil {
		return err
	}
	s.transition(Activated)
	return nil
}

func (s *Session) transition(to State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Idle {
		s.state = to
	}
}
