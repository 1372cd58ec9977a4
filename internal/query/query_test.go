package query

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/szaturnusz/radiodir/internal/catalog"
	"github.com/szaturnusz/radiodir/internal/station"
)

func buildCatalog(raws ...station.Raw) *catalog.Catalog {
	return catalog.Build(raws)
}

func ids(recs []station.Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

func TestFilter_textOverNameAndTags(t *testing.T) {
	c := buildCatalog(
		station.Raw{StationUUID: "a", Name: "Smooth Jazz FM"},
		station.Raw{StationUUID: "b", Name: "Rock One", Tags: "classic rock"},
		station.Raw{StationUUID: "c", Name: "Radio C", Tags: "jazz,funk"},
		station.Raw{StationUUID: "d", Name: "News 24"},
	)
	st := NewState()
	st.SetText("JAZZ")
	got := ids(Filter(c, nil, st))
	if !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("filtered = %v (name or tags, case-insensitive, catalog order)", got)
	}
}

func TestFilter_emptyTextReturnsBase(t *testing.T) {
	c := buildCatalog(
		station.Raw{StationUUID: "a"},
		station.Raw{StationUUID: "b"},
	)
	st := NewState()
	if got := ids(Filter(c, nil, st)); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("base = %v", got)
	}
}

func TestFilter_composesWithCategory(t *testing.T) {
	c := buildCatalog(
		station.Raw{StationUUID: "a", Country: "HU", Tags: "jazz"},
		station.Raw{StationUUID: "b", Country: "DE", Tags: "jazz"},
		station.Raw{StationUUID: "c", Country: "HU", Tags: "pop"},
	)
	st := NewState()
	st.SetCategory(catalog.CountryPrefix + "HU")
	st.SetText("jazz")
	if got := ids(Filter(c, nil, st)); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("country+text = %v", got)
	}
}

func TestFilter_isPure(t *testing.T) {
	c := buildCatalog(
		station.Raw{StationUUID: "a", Name: "Jazz"},
		station.Raw{StationUUID: "b", Name: "Rock"},
	)
	st := NewState()
	st.SetText("jazz")
	first := ids(Filter(c, nil, st))
	second := ids(Filter(c, nil, st))
	if !reflect.DeepEqual(first, second) {
		t.Errorf("same inputs gave %v then %v", first, second)
	}
}

func TestWindow_materialization(t *testing.T) {
	var recs []station.Record
	for i := 0; i < 120; i++ {
		recs = append(recs, station.Record{ID: fmt.Sprintf("s%03d", i)})
	}

	visible, hasMore := Window(recs, DefaultWindow)
	if len(visible) != 50 || !hasMore {
		t.Errorf("window(50): len=%d hasMore=%v", len(visible), hasMore)
	}
	if visible[0].ID != "s000" || visible[49].ID != "s049" {
		t.Errorf("window must be the prefix: %s..%s", visible[0].ID, visible[49].ID)
	}

	visible, hasMore = Window(recs, 200)
	if len(visible) != 120 || hasMore {
		t.Errorf("oversized window: len=%d hasMore=%v", len(visible), hasMore)
	}

	visible, hasMore = Window(nil, DefaultWindow)
	if len(visible) != 0 || hasMore {
		t.Errorf("empty input: len=%d hasMore=%v", len(visible), hasMore)
	}
}

func TestState_paginationMonotonicity(t *testing.T) {
	var recs []station.Record
	for i := 0; i < 175; i++ {
		recs = append(recs, station.Record{ID: fmt.Sprintf("s%03d", i)})
	}

	st := NewState()
	for n := 0; n < 4; n++ {
		want := DefaultWindow + n*WindowIncrement
		if st.WindowSize != want {
			t.Fatalf("after %d grows: WindowSize = %d, want %d", n, st.WindowSize, want)
		}
		_, hasMore := Window(recs, st.WindowSize)
		if wantMore := st.WindowSize < len(recs); hasMore != wantMore {
			t.Errorf("size %d: hasMore = %v, want %v", st.WindowSize, hasMore, wantMore)
		}
		st.Grow()
	}

	// hasMore goes false exactly once the window covers everything.
	if _, hasMore := Window(recs, 200); hasMore {
		t.Error("hasMore must be false once windowSize >= len(filtered)")
	}
}

func TestState_resets(t *testing.T) {
	st := NewState()
	st.Grow()
	st.Grow()
	if st.WindowSize != 150 {
		t.Fatalf("WindowSize = %d", st.WindowSize)
	}

	st.SetCategory(catalog.KeyTV)
	if st.WindowSize != DefaultWindow {
		t.Error("category change must reset the window")
	}

	st.Grow()
	st.SetText("news")
	if st.WindowSize != DefaultWindow {
		t.Error("text change must reset the window")
	}
	if st.Category != catalog.KeyTV {
		t.Error("text change must not touch the category")
	}
}

func TestFilter_favoritesCategory(t *testing.T) {
	c := buildCatalog(
		station.Raw{StationUUID: "a", Name: "Alpha Jazz"},
		station.Raw{StationUUID: "b", Name: "Beta Jazz"},
		station.Raw{StationUUID: "c", Name: "Gamma Rock"},
	)
	favs := map[string]bool{"b": true, "c": true}
	isFav := func(id string) bool { return favs[id] }

	st := NewState()
	st.SetCategory(catalog.KeyFavorites)
	if got := ids(Filter(c, isFav, st)); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Errorf("favorites = %v", got)
	}

	st.SetText("jazz")
	if got := ids(Filter(c, isFav, st)); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("favorites+text = %v", got)
	}
}
