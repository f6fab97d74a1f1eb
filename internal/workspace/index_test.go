package workspace

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fgrehm/vscode-search-provider/internal/flavor"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeLoader returns canned records per flavor id.
type fakeLoader struct {
	records map[string][]Record
	errs    map[string]error
	calls   atomic.Int32

	// gate, when set, blocks every Load until it is closed.
	gate chan struct{}
}

func (l *fakeLoader) Load(ctx context.Context, f flavor.Flavor) ([]Record, error) {
	l.calls.Add(1)
	if l.gate != nil {
		<-l.gate
	}
	if err := l.errs[f.ID]; err != nil {
		return nil, err
	}
	return l.records[f.ID], nil
}

func rec(flavorID, uri, name string) Record {
	return Record{
		ID:     RecordID(flavorID, uri),
		Name:   name,
		URI:    uri,
		Kind:   KindFolder,
		Flavor: flavor.Flavor{ID: flavorID},
	}
}

var testFlavors = []flavor.Flavor{{ID: "code-oss"}, {ID: "codium"}}

func TestIndex_EmptyBeforeRefresh(t *testing.T) {
	ix := NewIndex(testFlavors, &fakeLoader{}, discardLogger())
	snap := ix.Snapshot()
	if snap == nil {
		t.Fatal("Snapshot() returned nil")
	}
	if snap.Len() != 0 {
		t.Errorf("Len() = %d, want 0", snap.Len())
	}
}

func TestIndex_RefreshConcatenatesInFlavorOrder(t *testing.T) {
	loader := &fakeLoader{records: map[string][]Record{
		"code-oss": {rec("code-oss", "file:///home/u/alpha", "alpha"), rec("code-oss", "file:///home/u/beta", "beta")},
		"codium":   {rec("codium", "file:///home/u/alpha", "alpha")},
	}}
	ix := NewIndex(testFlavors, loader, discardLogger())

	snap, err := ix.Refresh(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		RecordID("code-oss", "file:///home/u/alpha"),
		RecordID("code-oss", "file:///home/u/beta"),
		RecordID("codium", "file:///home/u/alpha"),
	}
	got := snap.IDs()
	if len(got) != len(want) {
		t.Fatalf("IDs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("IDs()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	// Same URI in two flavors stays two records.
	if got[0] == got[2] {
		t.Error("records of different flavors share an id")
	}
	if ix.Snapshot() != snap {
		t.Error("Refresh did not install the returned snapshot")
	}
}

func TestIndex_RefreshIdempotent(t *testing.T) {
	loader := &fakeLoader{records: map[string][]Record{
		"code-oss": {rec("code-oss", "file:///home/u/alpha", "alpha")},
	}}
	ix := NewIndex(testFlavors, loader, discardLogger())

	first, err := ix.Refresh(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, err := ix.Refresh(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	a, b := first.IDs(), second.IDs()
	if len(a) != len(b) {
		t.Fatalf("id sets differ: %v vs %v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("id[%d] differs: %q vs %q", i, a[i], b[i])
		}
	}
}

func TestIndex_FlavorErrorDoesNotHideOthers(t *testing.T) {
	loader := &fakeLoader{
		records: map[string][]Record{
			"codium": {rec("codium", "file:///home/u/alpha", "alpha")},
		},
		errs: map[string]error{"code-oss": errors.New("corrupt")},
	}
	ix := NewIndex(testFlavors, loader, discardLogger())

	snap, err := ix.Refresh(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Len() != 1 {
		t.Errorf("Len() = %d, want 1", snap.Len())
	}
}

func TestIndex_ConcurrentRefreshCoalesces(t *testing.T) {
	loader := &fakeLoader{
		records: map[string][]Record{"code-oss": {rec("code-oss", "file:///a", "a")}},
		gate:    make(chan struct{}),
	}
	ix := NewIndex([]flavor.Flavor{{ID: "code-oss"}}, loader, discardLogger())

	const callers = 5
	var wg sync.WaitGroup
	results := make([]*Snapshot, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := ix.Refresh(context.Background())
			if err != nil {
				t.Errorf("Refresh: %v", err)
			}
			results[i] = snap
		}()
	}

	// Wait for the first caller to reach the loader, give the rest time to
	// join the in-flight refresh, then release it.
	deadline := time.Now().Add(2 * time.Second)
	for loader.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	close(loader.gate)
	wg.Wait()

	if n := loader.calls.Load(); n != 1 {
		t.Errorf("loader called %d times, want 1", n)
	}
	for i, snap := range results {
		if snap != results[0] {
			t.Errorf("caller %d got a different snapshot", i)
		}
	}
}

func TestIndex_RefreshCancelledCallerStopsWaiting(t *testing.T) {
	loader := &fakeLoader{gate: make(chan struct{})}
	ix := NewIndex([]flavor.Flavor{{ID: "code-oss"}}, loader, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ix.Refresh(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Refresh() error = %v, want context.Canceled", err)
	}
	close(loader.gate)
}

func TestNewSnapshot_DropsDuplicateIDs(t *testing.T) {
	a := rec("code-oss", "file:///a", "first")
	dup := rec("code-oss", "file:///a", "second")
	snap := NewSnapshot([]Record{a, dup}, time.Time{})

	if snap.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", snap.Len())
	}
	got, ok := snap.Get(a.ID)
	if !ok || got.Name != "first" {
		t.Errorf("Get() = %+v, %v; want first record", got, ok)
	}
}

func TestRecordID_Stable(t *testing.T) {
	a := RecordID("code", "file:///home/u/alpha")
	b := RecordID("code", "file:///home/u/alpha")
	if a != b {
		t.Errorf("RecordID not deterministic: %q != %q", a, b)
	}
	if RecordID("codium", "file:///home/u/alpha") == a {
		t.Error("different flavors produced the same id")
	}
	if RecordID("code", "file:///home/u/beta") == a {
		t.Error("different URIs produced the same id")
	}
}

func TestRecord_Description(t *testing.T) {
	local := Record{URI: "file:///home/u/alpha", Path: "/home/u/alpha"}
	if got := local.Description(); got != "/home/u/alpha" {
		t.Errorf("Description() = %q", got)
	}
	remote := Record{URI: "vscode-remote://ssh-remote+box/srv/app"}
	if got := remote.Description(); got != remote.URI {
		t.Errorf("Description() = %q", got)
	}
}
