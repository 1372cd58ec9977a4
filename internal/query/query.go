// Package query combines a category selection with a free-text search and
// materializes incrementally growing result windows. Filter is a pure
// function of its inputs; all state lives in the host-owned State value.
package query

import (
	"strings"

	"github.com/szaturnusz/radiodir/internal/catalog"
	"github.com/szaturnusz/radiodir/internal/station"
)

const (
	// DefaultWindow is the initial number of materialized results.
	DefaultWindow = 50
	// WindowIncrement is how much one "load more" grows the window.
	WindowIncrement = 50
)

// State is the host-owned query state. WindowSize only grows; it resets to
// DefaultWindow whenever category or text change.
type State struct {
	Category   string
	Text       string
	WindowSize int
}

// NewState returns the initial state: the full catalog, no text, default window.
func NewState() State {
	return State{Category: catalog.KeyAll, WindowSize: DefaultWindow}
}

// SetCategory switches the category and resets the window. The search text is
// kept; only the window resets.
func (s *State) SetCategory(key string) {
	s.Category = key
	s.WindowSize = DefaultWindow
}

// SetText replaces the search text and resets the window.
func (s *State) SetText(text string) {
	s.Text = text
	s.WindowSize = DefaultWindow
}

// Grow widens the window by WindowIncrement. The window never shrinks here;
// only SetCategory/SetText reset it.
func (s *State) Grow() {
	s.WindowSize += WindowIncrement
}

// Filter returns the records matching state: the category's base sequence,
// narrowed by a case-insensitive substring match of Text against name and
// joined tags. Base order is preserved; results are never re-sorted by
// relevance. isFavorite resolves the favorites category and may be nil.
func Filter(c *catalog.Catalog, isFavorite func(id string) bool, state State) []station.Record {
	base := c.ByCategory(state.Category, isFavorite)
	text := strings.ToLower(strings.TrimSpace(state.Text))
	if text == "" {
		return base
	}
	var out []station.Record
	for _, rec := range base {
		if strings.Contains(strings.ToLower(rec.Name), text) ||
			strings.Contains(rec.TagsJoined(), text) {
			out = append(out, rec)
		}
	}
	return out
}

// Window materializes the first min(size, len(filtered)) records and reports
// whether more remain beyond the window.
func Window(filtered []station.Record, size int) (visible []station.Record, hasMore bool) {
	if size < 0 {
		size = 0
	}
	if size > len(filtered) {
		size = len(filtered)
	}
	return filtered[:size], size < len(filtered)
}
