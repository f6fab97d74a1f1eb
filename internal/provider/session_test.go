package provider

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fgrehm/vscode-search-provider/internal/flavor"
	"github.com/fgrehm/vscode-search-provider/internal/workspace"
)

var (
	codeOSS = flavor.Flavor{ID: "code-oss", Icon: "code-oss", Exec: `code-oss "${URI}"`}
	codium  = flavor.Flavor{ID: "codium", Icon: "vscodium", Exec: `codium "${URI}"`}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func record(id, name, path string, f flavor.Flavor) workspace.Record {
	return workspace.Record{
		ID:     id,
		Name:   name,
		URI:    "file://" + path,
		Path:   path,
		Kind:   workspace.KindFolder,
		Flavor: f,
	}
}

// staticSource serves a fixed snapshot.
type staticSource struct {
	snap      *workspace.Snapshot
	refreshes atomic.Int32
}

func (s *staticSource) Snapshot() *workspace.Snapshot { return s.snap }

func (s *staticSource) Refresh(context.Context) (*workspace.Snapshot, error) {
	s.refreshes.Add(1)
	return s.snap, nil
}

// fakeActivator records activations.
type fakeActivator struct {
	mu        sync.Mutex
	activated []workspace.Record
	launched  []flavor.Flavor
	err       error
}

func (a *fakeActivator) Activate(_ context.Context, r workspace.Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.activated = append(a.activated, r)
	return a.err
}

func (a *fakeActivator) LaunchApp(_ context.Context, f flavor.Flavor) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.launched = append(a.launched, f)
	return a.err
}

func scenario() (*staticSource, *fakeActivator, *Session) {
	src := &staticSource{snap: workspace.NewSnapshot([]workspace.Record{
		record("id1", "project-alpha", "/home/u/alpha", codeOSS),
		record("id2", "project-beta", "/home/u/beta", codeOSS),
	}, time.Now())}
	act := &fakeActivator{}
	return src, act, NewSession(src, act, Options{Limit: 10}, discardLogger())
}

func TestSession_ConcreteScenario(t *testing.T) {
	_, act, s := scenario()
	ctx := context.Background()

	ids, err := s.Search(ctx, []string{"alpha"})
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(ids, []string{"id1"}) {
		t.Errorf("Search(alpha) = %v, want [id1]", ids)
	}

	ids, err = s.Search(ctx, []string{"project"})
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(ids, []string{"id1", "id2"}) {
		t.Errorf("Search(project) = %v, want [id1 id2]", ids)
	}

	if err := s.Activate(ctx, "id1"); err != nil {
		t.Fatalf("Activate(id1): %v", err)
	}
	if len(act.activated) != 1 || act.activated[0].Path != "/home/u/alpha" {
		t.Errorf("activated = %+v, want alpha", act.activated)
	}
	if act.activated[0].Flavor.ID != "code-oss" {
		t.Errorf("activated flavor = %q", act.activated[0].Flavor.ID)
	}

	var unknown *UnknownResultError
	if err := s.Activate(ctx, "id9"); !errors.As(err, &unknown) || unknown.ID != "id9" {
		t.Errorf("Activate(id9) error = %v, want UnknownResultError", err)
	}
}

func TestSession_StateTransitions(t *testing.T) {
	_, _, s := scenario()
	ctx := context.Background()

	if s.State() != Idle {
		t.Fatalf("initial state = %v, want idle", s.State())
	}
	if metas := s.Metas([]string{"id1"}); len(metas) != 0 {
		t.Errorf("idle session served metadata: %+v", metas)
	}
	if s.State() != Idle {
		t.Errorf("state after metadata on idle = %v, want idle", s.State())
	}

	if _, err := s.Search(ctx, []string{"alpha"}); err != nil {
		t.Fatal(err)
	}
	if s.State() != Searched {
		t.Errorf("state = %v, want searched", s.State())
	}

	s.Metas([]string{"id1"})
	if s.State() != MetadataServed {
		t.Errorf("state = %v, want metadata-served", s.State())
	}

	if err := s.Activate(ctx, "id1"); err != nil {
		t.Fatal(err)
	}
	if s.State() != Activated {
		t.Errorf("state = %v, want activated", s.State())
	}

	// The window survives activation.
	if err := s.Activate(ctx, "id1"); err != nil {
		t.Errorf("second activation: %v", err)
	}

	if _, err := s.Search(ctx, []string{"beta"}); err != nil {
		t.Fatal(err)
	}
	if s.State() != Searched {
		t.Errorf("state = %v, want searched", s.State())
	}
}

func TestSession_WindowIsolation(t *testing.T) {
	_, act, s := scenario()
	ctx := context.Background()

	if _, err := s.Search(ctx, []string{"alpha"}); err != nil {
		t.Fatal(err)
	}

	// id2 exists in the index but not in the window.
	metas := s.Metas([]string{"id2", "id1"})
	if len(metas) != 1 || metas[0].ID != "id1" {
		t.Errorf("Metas() = %+v, want only id1", metas)
	}

	var unknown *UnknownResultError
	if err := s.Activate(ctx, "id2"); !errors.As(err, &unknown) {
		t.Errorf("Activate(id2) error = %v, want UnknownResultError", err)
	}
	if len(act.activated) != 0 {
		t.Errorf("activator called for id outside window: %+v", act.activated)
	}
}

func TestSession_Metas(t *testing.T) {
	_, _, s := scenario()
	if _, err := s.Search(context.Background(), []string{"project"}); err != nil {
		t.Fatal(err)
	}

	metas := s.Metas([]string{"id2", "id1"})
	want := []Meta{
		{ID: "id2", Name: "project-beta", Description: "/home/u/beta", Icon: "code-oss"},
		{ID: "id1", Name: "project-alpha", Description: "/home/u/alpha", Icon: "code-oss"},
	}
	if !slices.Equal(metas, want) {
		t.Errorf("Metas() = %+v, want %+v", metas, want)
	}
}

func TestSession_EmptyTermsClearWindow(t *testing.T) {
	_, _, s := scenario()
	ctx := context.Background()

	if _, err := s.Search(ctx, []string{"alpha"}); err != nil {
		t.Fatal(err)
	}
	ids, err := s.Search(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 {
		t.Errorf("Search(nil) = %v, want empty", ids)
	}
	if metas := s.Metas([]string{"id1"}); len(metas) != 0 {
		t.Errorf("window not replaced: %+v", metas)
	}
}

func TestSession_ActivateLaunchError(t *testing.T) {
	_, act, s := scenario()
	act.err = errors.New("spawn failed")
	ctx := context.Background()

	if _, err := s.Search(ctx, []string{"alpha"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Activate(ctx, "id1"); !errors.Is(err, act.err) {
		t.Errorf("Activate() error = %v, want %v", err, act.err)
	}

	// The failure does not break later requests.
	act.err = nil
	if err := s.Activate(ctx, "id1"); err != nil {
		t.Errorf("Activate() after failure: %v", err)
	}
}

func TestSession_FlavorFilter(t *testing.T) {
	src := &staticSource{snap: workspace.NewSnapshot([]workspace.Record{
		record("oss-alpha", "alpha", "/home/u/alpha", codeOSS),
		record("codium-alpha", "alpha", "/home/u/alpha", codium),
	}, time.Now())}
	f := codium
	s := NewSession(src, &fakeActivator{}, Options{Flavor: &f, Limit: 10}, discardLogger())

	ids, err := s.Search(context.Background(), []string{"alpha"})
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(ids, []string{"codium-alpha"}) {
		t.Errorf("Search() = %v, want [codium-alpha]", ids)
	}
}

func TestSession_Limit(t *testing.T) {
	src, act, _ := scenario()
	s := NewSession(src, act, Options{Limit: 1}, discardLogger())

	ids, err := s.Search(context.Background(), []string{"project"})
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 {
		t.Errorf("got %d results, want 1", len(ids))
	}
}

func TestSession_RefreshOnSearch(t *testing.T) {
	src, act, _ := scenario()
	s := NewSession(src, act, Options{Limit: 10, RefreshOnSearch: true}, discardLogger())
	ctx := context.Background()

	if _, err := s.Search(ctx, []string{"alpha"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Subsearch(ctx, []string{"id1"}, []string{"alpha"}); err != nil {
		t.Fatal(err)
	}
	if n := src.refreshes.Load(); n != 1 {
		t.Errorf("refreshes = %d, want 1 (initial search only)", n)
	}
}

func TestSession_Subsearch(t *testing.T) {
	_, _, s := scenario()
	ctx := context.Background()

	ids, err := s.Subsearch(ctx, []string{"id2", "gone"}, []string{"project"})
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(ids, []string{"id2"}) {
		t.Errorf("Subsearch() = %v, want [id2]", ids)
	}
	if err := s.Activate(ctx, "id1"); err == nil {
		t.Error("id1 should not be in the refined window")
	}
	if err := s.Activate(ctx, "id2"); err != nil {
		t.Errorf("Activate(id2): %v", err)
	}
}

func TestSession_LaunchSearch(t *testing.T) {
	src, act, s := scenario()
	ctx := context.Background()

	if err := s.LaunchSearch(ctx, []string{"beta"}); err != nil {
		t.Fatal(err)
	}
	if len(act.activated) != 1 || act.activated[0].ID != "id2" {
		t.Errorf("activated = %+v, want id2", act.activated)
	}

	// No match, no flavor: nothing happens.
	if err := s.LaunchSearch(ctx, []string{"gamma"}); err != nil {
		t.Fatal(err)
	}
	if len(act.launched) != 0 {
		t.Errorf("launched apps = %+v, want none", act.launched)
	}

	// No match on a flavor-bound session starts the app.
	f := codeOSS
	bound := NewSession(src, act, Options{Flavor: &f, Limit: 10}, discardLogger())
	if err := bound.LaunchSearch(ctx, []string{"gamma"}); err != nil {
		t.Fatal(err)
	}
	if len(act.launched) != 1 || act.launched[0].ID != "code-oss" {
		t.Errorf("launched apps = %+v, want code-oss", act.launched)
	}
}

// gatedSource blocks every Refresh until the test releases it.
type gatedSource struct {
	snap    *workspace.Snapshot
	calls   atomic.Int32
	entered chan int
	release []chan struct{}
}

func (s *gatedSource) Snapshot() *workspace.Snapshot { return s.snap }

func (s *gatedSource) Refresh(ctx context.Context) (*workspace.Snapshot, error) {
	n := int(s.calls.Add(1)) - 1
	s.entered <- n
	select {
	case <-s.release[n]:
		return s.snap, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestSession_StaleSearchDoesNotOverwriteNewer(t *testing.T) {
	src := &gatedSource{
		snap: workspace.NewSnapshot([]workspace.Record{
			record("id1", "project-alpha", "/home/u/alpha", codeOSS),
			record("id2", "project-beta", "/home/u/beta", codeOSS),
		}, time.Now()),
		entered: make(chan int),
		release: []chan struct{}{make(chan struct{}), make(chan struct{})},
	}
	s := NewSession(src, &fakeActivator{}, Options{Limit: 10, RefreshOnSearch: true}, discardLogger())
	ctx := context.Background()

	type result struct {
		ids []string
		err error
	}
	doneA := make(chan result, 1)
	doneB := make(chan result, 1)

	go func() {
		ids, err := s.Search(ctx, []string{"alpha"})
		doneA <- result{ids, err}
	}()
	<-src.entered

	go func() {
		ids, err := s.Search(ctx, []string{"beta"})
		doneB <- result{ids, err}
	}()
	<-src.entered

	// B completes first, then the stale A.
	close(src.release[1])
	b := <-doneB
	close(src.release[0])
	a := <-doneA

	if a.err != nil || b.err != nil {
		t.Fatalf("errors: A=%v B=%v", a.err, b.err)
	}
	if !slices.Equal(a.ids, []string{"id1"}) || !slices.Equal(b.ids, []string{"id2"}) {
		t.Fatalf("results A=%v B=%v", a.ids, b.ids)
	}

	if metas := s.Metas([]string{"id1"}); len(metas) != 0 {
		t.Errorf("stale search installed its window: %+v", metas)
	}
	if metas := s.Metas([]string{"id2"}); len(metas) != 1 {
		t.Errorf("newer window missing: %+v", metas)
	}
}

func TestSession_ConcurrentUse(t *testing.T) {
	_, _, s := scenario()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			terms := []string{"alpha"}
			if i%2 == 0 {
				terms = []string{"project"}
			}
			ids, err := s.Search(ctx, terms)
			if err != nil {
				t.Errorf("Search: %v", err)
				return
			}
			s.Metas(ids)
			for _, id := range ids {
				var unknown *UnknownResultError
				if err := s.Activate(ctx, id); err != nil && !errors.As(err, &unknown) {
					t.Errorf("Activate: %v", err)
				}
			}
		}()
	}
	wg.Wait()
}

func TestState_String(t *testing.T) {
	for state, want := range map[State]string{
		Idle:           "idle",
		Searched:       "searched",
		MetadataServed: "metadata-served",
		Activated:      "activated",
		State(42):      "unknown",
	} {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(state), got, want)
		}
	}
}
