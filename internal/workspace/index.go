package workspace

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/fgrehm/vscode-search-provider/internal/flavor"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Loader reads the recent workspaces of one flavor.
type Loader interface {
	Load(ctx context.Context, f flavor.Flavor) ([]Record, error)
}

// Snapshot is an immutable view of the index. Records are kept in discovery
// order: flavor order first, then the order of the flavor's store.
type Snapshot struct {
	records []Record
	byID    map[string]int

	// LoadedAt is when the snapshot was built. Zero for the initial empty
	// snapshot.
	LoadedAt time.Time
}

// NewSnapshot builds a snapshot from records. Later records with an id that
// was already seen are dropped.
func NewSnapshot(records []Record, loadedAt time.Time) *Snapshot {
	s := &Snapshot{
		records:  make([]Record, 0, len(records)),
		byID:     make(map[string]int, len(records)),
		LoadedAt: loadedAt,
	}
	for _, r := range records {
		if _, ok := s.byID[r.ID]; ok {
			continue
		}
		s.byID[r.ID] = len(s.records)
		s.records = append(s.records, r)
	}
	return s
}

// Records returns the records in discovery order. The slice must not be
// modified.
func (s *Snapshot) Records() []Record {
	return s.records
}

// Get returns the record with the given id.
func (s *Snapshot) Get(id string) (Record, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Record{}, false
	}
	return s.records[i], true
}

// Len returns the number of records.
func (s *Snapshot) Len() int {
	return len(s.records)
}

// IDs returns all record ids in discovery order.
func (s *Snapshot) IDs() []string {
	ids := make([]string, len(s.records))
	for i, r := range s.records {
		ids[i] = r.ID
	}
	return ids
}

// Index holds the current snapshot of all flavors' recent workspaces.
// Readers never block; Refresh builds a new snapshot and swaps it in.
type Index struct {
	flavors []flavor.Flavor
	loader  Loader
	logger  *slog.Logger
	now     func() time.Time

	current atomic.Pointer[Snapshot]
	refresh singleflight.Group
}

// NewIndex creates an empty index over the given flavors.
func NewIndex(flavors []flavor.Flavor, loader Loader, logger *slog.Logger) *Index {
	ix := &Index{
		flavors: flavors,
		loader:  loader,
		logger:  logger,
		now:     time.Now,
	}
	ix.current.Store(NewSnapshot(nil, time.Time{}))
	return ix
}

// Flavors returns the flavors the index reads from.
func (ix *Index) Flavors() []flavor.Flavor {
	return ix.flavors
}

// Snapshot returns the current snapshot.
func (ix *Index) Snapshot() *Snapshot {
	return ix.current.Load()
}

// Get looks up a record in the current snapshot.
func (ix *Index) Get(id string) (Record, bool) {
	return ix.Snapshot().Get(id)
}

// Refresh rebuilds the index from the stores of all flavors. Concurrent calls
// share one in-flight refresh. Cancelling ctx stops waiting but does not
// abort the refresh other callers may be waiting on.
func (ix *Index) Refresh(ctx context.Context) (*Snapshot, error) {
	ch := ix.refresh.DoChan("refresh", func() (any, error) {
		return ix.rebuild(context.WithoutCancel(ctx)), nil
	})
	select {
	case res := <-ch:
		if res.Shared {
			ix.logger.Debug("joined in-flight refresh")
		}
		return res.Val.(*Snapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (ix *Index) rebuild(ctx context.Context) *Snapshot {
	started := ix.now()
	perFlavor := make([][]Record, len(ix.flavors))

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range ix.flavors {
		g.Go(func() error {
			records, err := ix.loader.Load(gctx, f)
			if err != nil {
				// One flavor's broken store must not hide the others.
				ix.logger.Warn("failed to load recent workspaces", "flavor", f.ID, "error", err)
				return nil
			}
			ix.logger.Debug("loaded recent workspaces", "flavor", f.ID, "count", len(records))
			perFlavor[i] = records
			return nil
		})
	}
	_ = g.Wait()

	var all []Record
	for _, records := range perFlavor {
		all = append(all, records...)
	}

	snap := NewSnapshot(all, started)
	ix.current.Store(snap)
	ix.logger.Info("index refreshed", "workspaces", snap.Len(), "duration", ix.now().Sub(started))
	return snap
}
