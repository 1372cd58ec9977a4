// Package favorites persists the set of favorite station ids as a JSON array
// under the per-user config directory. The set survives catalog refreshes and
// is independent of the snapshot store.
package favorites

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/szaturnusz/radiodir/internal/logging"
)

// DefaultPath returns <user config dir>/radiodir/favorites.json.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("favorites: user config dir: %w", err)
	}
	return filepath.Join(base, "radiodir", "favorites.json"), nil
}

// Store is a mutex-guarded favorite-id set backed by one JSON file.
// Safe for use from the director loop and background workers.
type Store struct {
	mu   sync.Mutex
	path string
	ids  map[string]struct{}
}

// Open loads the set at path. A missing or unreadable file yields an empty
// set; read failures are logged, never surfaced.
func Open(path string) *Store {
	s := &Store{path: path, ids: make(map[string]struct{})}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log := logging.Component("favorites")
			log.Warn().Err(err).Msg("read failed; starting empty")
		}
		return s
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		log := logging.Component("favorites")
		log.Warn().Err(err).Msg("parse failed; starting empty")
		return s
	}
	for _, id := range list {
		s.ids[id] = struct{}{}
	}
	return s
}

// Contains reports whether id is a favorite.
func (s *Store) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// Toggle flips id's membership, saves, and returns the new state.
// Write failures are logged and not retried; the in-memory set stays
// authoritative for the session.
func (s *Store) Toggle(id string) bool {
	s.mu.Lock()
	_, had := s.ids[id]
	if had {
		delete(s.ids, id)
	} else {
		s.ids[id] = struct{}{}
	}
	err := s.saveLocked()
	s.mu.Unlock()
	if err != nil {
		log := logging.Component("favorites")
		log.Warn().Err(err).Msg("save failed")
	}
	return !had
}

// IDs returns the favorite ids, sorted for stable output.
func (s *Store) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of favorites.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

func (s *Store) saveLocked() error {
	list := make([]string, 0, len(s.ids))
	for id := range s.ids {
		list = append(list, id)
	}
	sort.Strings(list)
	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	dir := filepath.Dir(filepath.Clean(s.path))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".favorites-*.json.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil || closeErr != nil {
		os.Remove(tmpName)
		if writeErr != nil {
			return writeErr
		}
		return closeErr
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
