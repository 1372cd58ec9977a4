// Package station defines the raw radio-browser station object and the
// normalized immutable record the rest of the directory works with.
package station

import (
	"strconv"
	"strings"
)

// Flag is the radio-browser liveness flag. Mirrors report it either as a
// string ("0"/"1") or a bare number, so it unmarshals from both. A nil *Flag
// means the field was absent, which is "unknown, keep".
type Flag string

// FlagDead is the sentinel meaning the station failed its last liveness check.
const FlagDead Flag = "0"

// UnmarshalJSON accepts both `"0"` and `0`.
func (f *Flag) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	*f = Flag(s)
	return nil
}

// MarshalJSON re-emits the flag as a string.
func (f Flag) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(f))), nil
}

// Raw mirrors the fields consumed from one station object of the remote
// directory API (and of the on-disk snapshot, which stores the same shape).
type Raw struct {
	StationUUID string `json:"stationuuid"`
	Name        string `json:"name"`
	Country     string `json:"country,omitempty"`
	Tags        string `json:"tags,omitempty"` // comma-joined
	URL         string `json:"url"`
	Favicon     string `json:"favicon,omitempty"`
	LastCheckOK *Flag  `json:"lastcheckok,omitempty"`
}

// Dead reports whether the liveness field is present and equal to the "not ok"
// sentinel. Absence of the field means unknown, which is not dead.
func (r Raw) Dead() bool {
	return r.LastCheckOK != nil && *r.LastCheckOK == FlagDead
}

// Record is the normalized, immutable station value. Identity is ID.
type Record struct {
	ID        string
	Name      string
	Country   string
	Tags      []string // lowercase, comma-split, trimmed, order preserved
	StreamURL string
	LogoURL   string
	KnownDead bool
}

// Normalize converts a raw station into a Record. Returns false when the raw
// object has no id; such entries carry no identity and are dropped.
func Normalize(raw Raw) (Record, bool) {
	if raw.StationUUID == "" {
		return Record{}, false
	}
	return Record{
		ID:        raw.StationUUID,
		Name:      raw.Name,
		Country:   raw.Country,
		Tags:      SplitTags(raw.Tags),
		StreamURL: raw.URL,
		LogoURL:   raw.Favicon,
		KnownDead: raw.Dead(),
	}, true
}

// TagsJoined returns the tag list re-joined with commas, lowercased. Used for
// substring matching against the whole tag string.
func (r Record) TagsJoined() string {
	return strings.Join(r.Tags, ",")
}

// SplitTags lowercases and splits a comma-joined tag string, trimming each
// tag and dropping empties. Order is preserved.
func SplitTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(strings.ToLower(s), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
