// Package loader decides between the on-disk snapshot and a remote bulk
// fetch. Policy: the snapshot always wins when it exists; the network is hit
// only when there is no usable snapshot, or on an explicit refresh.
package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/szaturnusz/radiodir/internal/httpclient"
	"github.com/szaturnusz/radiodir/internal/logging"
	"github.com/szaturnusz/radiodir/internal/metrics"
	"github.com/szaturnusz/radiodir/internal/snapshot"
	"github.com/szaturnusz/radiodir/internal/station"
)

const (
	// DefaultEndpoint is a public radio-browser mirror.
	DefaultEndpoint = "https://de1.api.radio-browser.info"
	// DefaultLimit is the bulk request result cap. Generous on purpose: one
	// request fetches the whole directory.
	DefaultLimit = 100000
	// DefaultTimeout bounds the bulk fetch.
	DefaultTimeout = 15 * time.Second
)

// Source identifies where a successful load came from.
type Source string

const (
	SourceSnapshot Source = "snapshot"
	SourceRemote   Source = "remote"
)

// AcquisitionError means the remote catalog could not be acquired and no
// usable snapshot exists: the system has nothing to show. It is surfaced to
// the host as a status message, never as a process failure.
type AcquisitionError struct {
	RunID string
	Err   error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("catalog acquisition failed (run %s): %v", e.RunID, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// Loader acquires the raw station list.
type Loader struct {
	Store    *snapshot.Store
	Client   *http.Client
	Endpoint string
	Limit    int
	Timeout  time.Duration
}

func (l *Loader) endpoint() string {
	if l.Endpoint != "" {
		return l.Endpoint
	}
	return DefaultEndpoint
}

func (l *Loader) limit() int {
	if l.Limit > 0 {
		return l.Limit
	}
	return DefaultLimit
}

func (l *Loader) client() *http.Client {
	if l.Client != nil {
		return l.Client
	}
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return httpclient.WithTimeout(timeout)
}

// Load returns the raw stations, snapshot-first. When no snapshot exists it
// performs the bulk fetch and persists the result; a snapshot save failure is
// logged but does not fail the load.
func (l *Loader) Load(ctx context.Context) ([]station.Raw, Source, error) {
	log := logging.Component("loader")

	if raws, err := l.Store.Load(); err == nil {
		log.Info().Int("stations", len(raws)).Str("path", l.Store.Path()).Msg("serving snapshot")
		metrics.CatalogLoads.WithLabelValues(string(SourceSnapshot)).Inc()
		return raws, SourceSnapshot, nil
	} else if !errors.Is(err, snapshot.ErrNoSnapshot) {
		return nil, "", err
	}

	raws, err := l.fetchAndStore(ctx)
	if err != nil {
		return nil, "", err
	}
	return raws, SourceRemote, nil
}

// Refresh always performs the bulk fetch and overwrites the snapshot.
func (l *Loader) Refresh(ctx context.Context) ([]station.Raw, error) {
	return l.fetchAndStore(ctx)
}

func (l *Loader) fetchAndStore(ctx context.Context) ([]station.Raw, error) {
	log := logging.Component("loader")
	runID := uuid.NewString()

	raws, err := l.fetchRemote(ctx, runID)
	if err != nil {
		metrics.CatalogLoadFailures.Inc()
		return nil, &AcquisitionError{RunID: runID, Err: err}
	}
	metrics.CatalogLoads.WithLabelValues(string(SourceRemote)).Inc()

	if err := l.Store.Save(raws); err != nil {
		metrics.SnapshotSaveFailures.Inc()
		log.Warn().Err(err).Str("run", runID).Msg("snapshot save failed; continuing with in-memory catalog")
	}
	return raws, nil
}

// fetchRemote performs the single bulk GET. Non-2xx, a network error, and a
// parse error are all acquisition failures; there are no partial results.
func (l *Loader) fetchRemote(ctx context.Context, runID string) ([]station.Raw, error) {
	log := logging.Component("loader")
	url := fmt.Sprintf("%s/json/stations?limit=%d", l.endpoint(), l.limit())
	log.Info().Str("run", runID).Str("url", url).Msg("fetching station directory")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("directory fetch: HTTP %d", resp.StatusCode)
	}

	var raws []station.Raw
	if err := json.NewDecoder(resp.Body).Decode(&raws); err != nil {
		return nil, fmt.Errorf("directory parse: %w", err)
	}
	log.Info().Str("run", runID).Int("stations", len(raws)).Msg("directory fetched")
	return raws, nil
}
