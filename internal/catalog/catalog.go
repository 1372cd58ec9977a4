// Package catalog turns the raw station list into the deduplicated,
// indexed collection the query engine reads. A Catalog is built wholesale by
// Build on every load or refresh and never mutated afterwards; readers hold
// it as an immutable value.
package catalog

import (
	"sort"
	"strings"

	"github.com/szaturnusz/radiodir/internal/station"
)

// Category keys. Country buckets use CountryPrefix + the exact country name.
const (
	KeyAll       = "all"
	KeyFavorites = "favorites"
	KeyTV        = "tv"

	CountryPrefix = "country:"
)

// Catalog is the deduplicated, ordered station collection plus the derived
// category index. The favorites category is not precomputed; it is resolved
// at query time against the live favorites set.
type Catalog struct {
	Stations  []station.Record
	Countries []string // distinct non-empty countries, sorted

	index map[string][]station.Record
}

// Build runs the single-pass dedup and dead-entry filter, then derives the
// category index.
//
// Acceptance rules, in order, per input record:
//   - skip when the liveness field is present and equal to the dead sentinel
//     (an absent field means unknown and is kept),
//   - skip when the record has no id,
//   - skip when the id was already accepted: the first occurrence wins and
//     input order is preserved. First-seen-wins is an observable ordering
//     contract, not an accident.
func Build(raws []station.Raw) *Catalog {
	seen := make(map[string]struct{}, len(raws))
	accepted := make([]station.Record, 0, len(raws))
	for _, raw := range raws {
		if raw.Dead() {
			continue
		}
		rec, ok := station.Normalize(raw)
		if !ok {
			continue
		}
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		seen[rec.ID] = struct{}{}
		accepted = append(accepted, rec)
	}

	c := &Catalog{
		Stations: accepted,
		index:    make(map[string][]station.Record),
	}
	c.index[KeyAll] = accepted

	countrySet := make(map[string]struct{})
	for _, rec := range accepted {
		if isTV(rec) {
			c.index[KeyTV] = append(c.index[KeyTV], rec)
		}
		if rec.Country != "" {
			key := CountryPrefix + rec.Country
			c.index[key] = append(c.index[key], rec)
			countrySet[rec.Country] = struct{}{}
		}
	}
	c.Countries = make([]string, 0, len(countrySet))
	for country := range countrySet {
		c.Countries = append(c.Countries, country)
	}
	sort.Strings(c.Countries)
	return c
}

// isTV reports whether a station is a TV channel by its tags: the "tv" tag
// must match as an exact token, while "video" and "television" match as
// substrings of the joined tag string. The asymmetry is inherited behavior
// and kept on purpose ("catv" is not TV, "music videos" is).
func isTV(rec station.Record) bool {
	for _, tag := range rec.Tags {
		if tag == "tv" {
			return true
		}
	}
	joined := rec.TagsJoined()
	return strings.Contains(joined, "video") || strings.Contains(joined, "television")
}

// ByCategory returns the ordered base sequence for a category key.
// isFavorite resolves the dynamic favorites category and may be nil when the
// caller never passes KeyFavorites. Unknown country buckets yield an empty
// sequence; any other unknown key falls back to the full list, mirroring how
// the host sidebar treats an unrecognized selection.
func (c *Catalog) ByCategory(key string, isFavorite func(id string) bool) []station.Record {
	switch {
	case key == KeyFavorites:
		if isFavorite == nil {
			return nil
		}
		var out []station.Record
		for _, rec := range c.Stations {
			if isFavorite(rec.ID) {
				out = append(out, rec)
			}
		}
		return out
	case key == KeyTV:
		return c.index[KeyTV]
	case strings.HasPrefix(key, CountryPrefix):
		return c.index[key]
	default:
		return c.index[KeyAll]
	}
}

// Len returns the number of accepted stations.
func (c *Catalog) Len() int {
	return len(c.Stations)
}
