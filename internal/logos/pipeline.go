// Package logos fetches, caches, decodes, and thumbnails station logo
// images. Work runs on a fixed-size worker pool so one slow host cannot
// starve the rest; failures are swallowed per station (the logo simply never
// arrives) and only show up in logs and metrics.
package logos

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/szaturnusz/radiodir/internal/httpclient"
	"github.com/szaturnusz/radiodir/internal/logging"
	"github.com/szaturnusz/radiodir/internal/metrics"
	"github.com/szaturnusz/radiodir/internal/safeurl"
)

const (
	// DefaultWorkers is the worker pool size.
	DefaultWorkers = 4
	// DefaultThumbSize is the square thumbnail bounding box, in pixels.
	DefaultThumbSize = 64
	// defaultQueueDepth bounds pending requests; a full queue drops the
	// request (the host re-requests when the card is recreated).
	defaultQueueDepth = 256
	// maxLogoBytes caps a fetched logo body.
	maxLogoBytes = 4 << 20
	// defaultExt is used when the URL's extension is missing or implausible.
	defaultExt = ".png"
)

// Thumbnail is a decoded logo delivered on the results channel.
type Thumbnail struct {
	StationID string
	Image     image.Image
}

type task struct {
	stationID string
	logoURL   string
}

// Config drives a Pipeline. Zero values get safe defaults from New.
type Config struct {
	CacheDir     string
	Workers      int
	QueueDepth   int
	FetchTimeout time.Duration
	ThumbSize    int
	Client       *http.Client

	// HostRate/HostBurst bound request frequency per remote host, on top of
	// the pool-wide concurrency bound.
	HostRate  rate.Limit
	HostBurst int
}

func (c *Config) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.QueueDepth <= 0 {
		c.QueueDepth = defaultQueueDepth
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 5 * time.Second
	}
	if c.ThumbSize <= 0 {
		c.ThumbSize = DefaultThumbSize
	}
	if c.Client == nil {
		c.Client = httpclient.WithTimeout(c.FetchTimeout)
	}
	if c.HostRate <= 0 {
		c.HostRate = rate.Every(200 * time.Millisecond)
	}
	if c.HostBurst <= 0 {
		c.HostBurst = 4
	}
}

// Pipeline is the bounded-concurrency logo acquisition pool.
type Pipeline struct {
	cfg     Config
	tasks   chan task
	results chan Thumbnail

	mu       sync.Mutex
	inflight map[string]struct{}
	limiters map[string]*rate.Limiter
}

// New creates a Pipeline; call Start to spin up the workers.
func New(cfg Config) *Pipeline {
	cfg.applyDefaults()
	return &Pipeline{
		cfg:      cfg,
		tasks:    make(chan task, cfg.QueueDepth),
		results:  make(chan Thumbnail, cfg.Workers),
		inflight: make(map[string]struct{}),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Start launches the worker pool. Cancel ctx to stop; workers finish their
// current task and exit.
func (p *Pipeline) Start(ctx context.Context) {
	for i := 0; i < p.cfg.Workers; i++ {
		go p.worker(ctx)
	}
}

// Results is the single delivery channel. The director drains it on its
// serialized loop; thumbnails may arrive out of request order and for
// stations no longer visible.
func (p *Pipeline) Results() <-chan Thumbnail {
	return p.results
}

// Request submits one station's logo for acquisition. Non-blocking: returns
// false when the URL is unusable, the station is already in flight, or the
// queue is full. A station is never worked on by two workers at once.
func (p *Pipeline) Request(stationID, logoURL string) bool {
	if stationID == "" || logoURL == "" || !safeurl.IsHTTPOrHTTPS(logoURL) {
		return false
	}
	p.mu.Lock()
	if _, busy := p.inflight[stationID]; busy {
		p.mu.Unlock()
		return false
	}
	p.inflight[stationID] = struct{}{}
	p.mu.Unlock()

	select {
	case p.tasks <- task{stationID: stationID, logoURL: logoURL}:
		return true
	default:
		p.done(stationID)
		return false
	}
}

func (p *Pipeline) done(stationID string) {
	p.mu.Lock()
	delete(p.inflight, stationID)
	p.mu.Unlock()
}

func (p *Pipeline) worker(ctx context.Context) {
	log := logging.Component("logos")
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-p.tasks:
			img, err := p.acquire(ctx, t)
			p.done(t.stationID)
			if err != nil {
				log.Debug().Err(err).Str("station", t.stationID).
					Str("url", safeurl.Redact(t.logoURL)).Msg("logo dropped")
				continue
			}
			select {
			case p.results <- Thumbnail{StationID: t.stationID, Image: img}:
				metrics.LogoOutcomes.WithLabelValues("delivered").Inc()
			case <-ctx.Done():
				return
			}
		}
	}
}

// acquire runs the per-station chain: cache check, fetch, sniff, decode,
// thumbnail. On any decode failure the cached file is deleted so a later
// attempt starts clean instead of being pinned to one bad file.
func (p *Pipeline) acquire(ctx context.Context, t task) (image.Image, error) {
	path := p.cachePath(t.stationID, t.logoURL)

	if fileNonEmpty(path) {
		metrics.LogoOutcomes.WithLabelValues("cached").Inc()
	} else {
		if err := p.fetch(ctx, t.logoURL, path); err != nil {
			metrics.LogoOutcomes.WithLabelValues("fetch_failed").Inc()
			return nil, err
		}
		metrics.LogoOutcomes.WithLabelValues("fetched").Inc()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	img, err := decodeThumbnail(t.logoURL, data, p.cfg.ThumbSize)
	if err != nil {
		// Terminal decode failure: remove the file so the station is
		// retried instead of permanently stuck on a corrupt cache entry.
		if rmErr := os.Remove(path); rmErr == nil {
			metrics.LogoOutcomes.WithLabelValues("corrupt_deleted").Inc()
		}
		metrics.LogoOutcomes.WithLabelValues("decode_failed").Inc()
		return nil, err
	}
	return img, nil
}

// fetch downloads the logo into path. Non-2xx responses and HTML bodies
// (typically a broken-image-turned-error-page) are failures; nothing is
// written in those cases.
func (p *Pipeline) fetch(ctx context.Context, logoURL, path string) error {
	if err := p.limiter(logoURL).Wait(ctx); err != nil {
		return err
	}
	reqCtx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, logoURL, nil)
	if err != nil {
		return err
	}
	resp, err := p.cfg.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("logo fetch: HTTP %d", resp.StatusCode)
	}
	if ct := strings.ToLower(resp.Header.Get("Content-Type")); strings.Contains(ct, "text/html") {
		return fmt.Errorf("logo fetch: server returned an HTML page")
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxLogoBytes))
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("logo fetch: empty body")
	}
	// Some hosts declare image/* on error pages; sniff the bytes too.
	if looksLikeMarkup(data) {
		return fmt.Errorf("logo fetch: body is markup, not an image")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// limiter returns the per-host rate limiter for logoURL's host.
func (p *Pipeline) limiter(logoURL string) *rate.Limiter {
	host := ""
	if u, err := url.Parse(logoURL); err == nil {
		host = u.Host
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	lim, ok := p.limiters[host]
	if !ok {
		lim = rate.NewLimiter(p.cfg.HostRate, p.cfg.HostBurst)
		p.limiters[host] = lim
	}
	return lim
}

// cachePath maps (stationID, logo URL) to the on-disk cache file:
// <cacheDir>/<stationID><ext>.
func (p *Pipeline) cachePath(stationID, logoURL string) string {
	return filepath.Join(p.cfg.CacheDir, sanitizeID(stationID)+NormalizedExt(logoURL))
}

// NormalizedExt extracts the logo URL's file extension, lowercased. A missing
// or implausibly long (>5 chars including the dot) extension falls back to
// the default image extension.
func NormalizedExt(logoURL string) string {
	p := logoURL
	if u, err := url.Parse(logoURL); err == nil && u.Path != "" {
		p = u.Path
	}
	ext := strings.ToLower(filepath.Ext(p))
	if ext == "" || len(ext) > 5 {
		return defaultExt
	}
	return ext
}

func sanitizeID(id string) string {
	s := strings.ReplaceAll(id, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, "\x00", "_")
	if s == "" {
		s = "unknown"
	}
	return s
}

// fileNonEmpty reports whether path exists with a non-zero size. An empty
// cache file is treated as absent; the decode path will clean it up.
func fileNonEmpty(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}
