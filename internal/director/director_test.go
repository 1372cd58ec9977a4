package director

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/szaturnusz/radiodir/internal/catalog"
	"github.com/szaturnusz/radiodir/internal/favorites"
	"github.com/szaturnusz/radiodir/internal/loader"
	"github.com/szaturnusz/radiodir/internal/resolver"
	"github.com/szaturnusz/radiodir/internal/snapshot"
	"github.com/szaturnusz/radiodir/internal/station"
)

const stationsJSON = `[
	{"stationuuid":"aaa","name":"Dead FM","country":"Austria","tags":"pop","url":"http://a/s","lastcheckok":"0"},
	{"stationuuid":"bbb","name":"Radio Budapest","country":"Hungary","tags":"talk","url":"http://b/s"},
	{"stationuuid":"ccc","name":"Night Lounge","country":"France","tags":"jazz,smooth","url":"http://c/s"}
]`

type results struct {
	visible []station.Record
	hasMore bool
	total   int
}

type harness struct {
	d        *Director
	statuses chan CatalogStatus
	results  chan results
	resolved chan string
}

func newHarness(t *testing.T, stationsBody string) *harness {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(stationsBody))
	}))
	t.Cleanup(srv.Close)

	h := &harness{
		statuses: make(chan CatalogStatus, 16),
		results:  make(chan results, 16),
		resolved: make(chan string, 16),
	}
	favs := favorites.Open(filepath.Join(t.TempDir(), "favorites.json"))
	h.d = New(Options{
		Loader: &loader.Loader{
			Store:    &snapshot.Store{Dir: t.TempDir()},
			Endpoint: srv.URL,
			Limit:    100,
		},
		Favorites: favs,
		Resolver:  &resolver.Resolver{},
		Callbacks: Callbacks{
			OnCatalogStatus: func(s CatalogStatus) { h.statuses <- s },
			OnResultsChanged: func(v []station.Record, more bool, total int) {
				h.results <- results{visible: v, hasMore: more, total: total}
			},
			OnResolvedURL: func(_, url string) { h.resolved <- url },
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.d.Run(ctx)
	return h
}

func (h *harness) waitReady(t *testing.T) CatalogStatus {
	t.Helper()
	for {
		select {
		case s := <-h.statuses:
			if s.State == StateLoading {
				continue
			}
			return s
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for the catalog")
		}
	}
}

func (h *harness) waitResults(t *testing.T) results {
	t.Helper()
	select {
	case r := <-h.results:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for results")
		return results{}
	}
}

func names(recs []station.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Name
	}
	return out
}

func TestRun_loadsAndFilters(t *testing.T) {
	h := newHarness(t, stationsJSON)

	s := h.waitReady(t)
	if s.State != StateReady {
		t.Fatalf("load failed: %v", s.Err)
	}
	if s.Stations != 2 {
		t.Fatalf("catalog has %d stations, want 2 (dead one filtered)", s.Stations)
	}
	if s.Source != loader.SourceRemote {
		t.Errorf("first load came from %q, want remote", s.Source)
	}

	r := h.waitResults(t)
	if got := names(r.visible); len(got) != 2 || got[0] != "Radio Budapest" || got[1] != "Night Lounge" {
		t.Fatalf("initial results = %v", got)
	}
	if r.hasMore {
		t.Error("hasMore true for 2 stations in a 50-wide window")
	}
	if r.total != 2 {
		t.Errorf("total = %d, want 2", r.total)
	}

	h.d.SetCategory(catalog.CountryPrefix + "Hungary")
	r = h.waitResults(t)
	if got := names(r.visible); len(got) != 1 || got[0] != "Radio Budapest" {
		t.Fatalf("country filter = %v", got)
	}

	h.d.SetCategory(catalog.KeyAll)
	h.waitResults(t)
	h.d.SetSearchText("jazz")
	r = h.waitResults(t)
	if got := names(r.visible); len(got) != 1 || got[0] != "Night Lounge" {
		t.Fatalf("text filter = %v (tags should match)", got)
	}
}

func TestToggleFavorite_updatesFavoritesView(t *testing.T) {
	h := newHarness(t, stationsJSON)
	h.waitReady(t)
	h.waitResults(t)

	h.d.SetCategory(catalog.KeyFavorites)
	if r := h.waitResults(t); len(r.visible) != 0 {
		t.Fatalf("favorites not empty at start: %v", names(r.visible))
	}

	h.d.ToggleFavorite("ccc")
	if r := h.waitResults(t); len(r.visible) != 1 || r.visible[0].ID != "ccc" {
		t.Fatalf("after toggle on: %v", names(r.visible))
	}

	h.d.ToggleFavorite("ccc")
	if r := h.waitResults(t); len(r.visible) != 0 {
		t.Fatalf("after toggle off: %v", names(r.visible))
	}
}

func TestSelect_resolvesStream(t *testing.T) {
	h := newHarness(t, stationsJSON)
	h.waitReady(t)
	h.waitResults(t)

	// A direct stream URL resolves to itself without touching the network.
	h.d.Select("bbb")
	select {
	case url := <-h.resolved:
		if url != "http://b/s" {
			t.Fatalf("resolved to %q, want the direct URL back", url)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for resolution")
	}
}

func TestRefresh_reloadsFromNetwork(t *testing.T) {
	h := newHarness(t, stationsJSON)
	h.waitReady(t)
	h.waitResults(t)

	h.d.Refresh()
	if s := h.waitReady(t); s.State != StateReady || s.Stations != 2 {
		t.Fatalf("refresh: state=%v stations=%d err=%v", s.State, s.Stations, s.Err)
	}
	h.waitResults(t)
}

func TestCountries_sortedFromCatalog(t *testing.T) {
	h := newHarness(t, stationsJSON)
	h.waitReady(t)
	h.waitResults(t)

	got := h.d.Countries()
	if len(got) != 2 || got[0] != "France" || got[1] != "Hungary" {
		t.Fatalf("Countries() = %v, want [France Hungary]", got)
	}
}

func TestShutdown_lateCallsDoNotBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(stationsJSON))
	}))
	defer srv.Close()

	d := New(Options{
		Loader: &loader.Loader{
			Store:    &snapshot.Store{Dir: t.TempDir()},
			Endpoint: srv.URL,
			Limit:    100,
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(runDone)
	}()
	cancel()
	select {
	case <-runDone:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}

	finished := make(chan struct{})
	go func() {
		// More posts than the command buffer holds, plus the synchronous
		// round-trip; none may block once the loop has stopped.
		for i := 0; i < 100; i++ {
			d.LoadMore()
		}
		d.Refresh()
		if got := d.Countries(); got != nil {
			t.Errorf("Countries() after shutdown = %v, want nil", got)
		}
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("host calls blocked after the loop stopped")
	}
}

func TestRun_failedLoadReportsStatus(t *testing.T) {
	h := newHarness(t, `{"oops": true`)
	s := h.waitReady(t)
	if s.State != StateFailed {
		t.Fatalf("state = %v, want failed", s.State)
	}
	if s.Err == nil {
		t.Fatal("failed status carries no error")
	}
	var aq *loader.AcquisitionError
	if !errors.As(s.Err, &aq) {
		t.Fatalf("error %v is not an acquisition error", s.Err)
	}
}
