// Package snapshot persists the raw station catalog as a bzip2-compressed
// JSON document. The filename embeds a schema version token; bumping the
// version orphans the old file and forces a fresh remote fetch, which is the
// only cache-invalidation mechanism (there is no TTL).
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dsnet/compress/bzip2"

	"github.com/szaturnusz/radiodir/internal/logging"
	"github.com/szaturnusz/radiodir/internal/station"
)

// ErrNoSnapshot is returned by Load when no usable snapshot exists on disk.
// Absent, truncated, and unparseable files all collapse into this: a bad
// cache is a cache miss, never a fatal condition.
var ErrNoSnapshot = errors.New("snapshot: no usable snapshot")

// DefaultVersion is the current snapshot schema token.
const DefaultVersion = "v2"

// document is the on-disk shape: { "radios": [ ... ] }.
type document struct {
	Radios []station.Raw `json:"radios"`
}

// Store reads and writes the compressed snapshot under Dir.
type Store struct {
	Dir     string
	Version string // defaults to DefaultVersion when empty
}

// Path returns the versioned snapshot file path.
func (s *Store) Path() string {
	v := s.Version
	if v == "" {
		v = DefaultVersion
	}
	return filepath.Join(s.Dir, "stations_cache_"+v+".json.bz2")
}

// Load returns the stations from the snapshot, or ErrNoSnapshot when the file
// is absent or unreadable in any way.
func (s *Store) Load() ([]station.Raw, error) {
	log := logging.Component("snapshot")
	f, err := os.Open(s.Path())
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", s.Path()).Msg("snapshot unreadable; treating as miss")
		}
		return nil, ErrNoSnapshot
	}
	defer f.Close()

	bz, err := bzip2.NewReader(f, nil)
	if err != nil {
		log.Warn().Err(err).Msg("bzip2 reader init failed; treating as miss")
		return nil, ErrNoSnapshot
	}
	data, err := io.ReadAll(bz)
	if cerr := bz.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Warn().Err(err).Str("path", s.Path()).Msg("snapshot decompress failed; treating as miss")
		return nil, ErrNoSnapshot
	}

	// Wrapped document is the written shape; a bare top-level array is also
	// accepted for compatibility with older snapshots.
	var doc document
	if err := json.Unmarshal(data, &doc); err == nil && doc.Radios != nil {
		return doc.Radios, nil
	}
	var arr []station.Raw
	if err := json.Unmarshal(data, &arr); err == nil {
		return arr, nil
	}
	log.Warn().Str("path", s.Path()).Msg("snapshot JSON unparseable; treating as miss")
	return nil, ErrNoSnapshot
}

// Save writes the stations as a compressed document using a temp-file-then-
// rename strategy so a crashed write leaves either the old snapshot or a file
// that simply fails to parse on next load.
func (s *Store) Save(radios []station.Raw) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("snapshot save: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(s.Dir, ".stations-*.json.bz2.tmp")
	if err != nil {
		return fmt.Errorf("snapshot save: create temp: %w", err)
	}
	tmpName := tmp.Name()

	writeErr := writeCompressed(tmp, document{Radios: radios})
	closeErr := tmp.Close()
	if writeErr != nil || closeErr != nil {
		os.Remove(tmpName)
		if writeErr != nil {
			return fmt.Errorf("snapshot save: write: %w", writeErr)
		}
		return fmt.Errorf("snapshot save: close: %w", closeErr)
	}
	if err := os.Rename(tmpName, s.Path()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("snapshot save: rename: %w", err)
	}
	return nil
}

func writeCompressed(w io.Writer, doc document) error {
	bz, err := bzip2.NewWriter(w, &bzip2.WriterConfig{Level: bzip2.DefaultCompression})
	if err != nil {
		return err
	}
	encErr := json.NewEncoder(bz).Encode(doc)
	closeErr := bz.Close()
	if encErr != nil {
		return encErr
	}
	return closeErr
}
