// Package resolver unwraps indirection playlists (.m3u, .pls) into a directly
// playable stream URL. Modern streaming and container formats are passed
// through untouched, and every failure degrades to returning the input URL:
// a resolution problem is never fatal, the host just tries the raw URL.
package resolver

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/szaturnusz/radiodir/internal/httpclient"
	"github.com/szaturnusz/radiodir/internal/logging"
	"github.com/szaturnusz/radiodir/internal/metrics"
	"github.com/szaturnusz/radiodir/internal/safeurl"
)

// indirectionSuffixes name playlist formats whose body holds the real URL.
var indirectionSuffixes = []string{".m3u", ".pls"}

// passthroughSuffixes are modern streaming/container formats that must never
// be unwrapped, even when they also end in an indirection suffix. Exclusion
// takes precedence.
var passthroughSuffixes = []string{".m3u8", ".mpd", ".mp4", ".webm", ".mkv", ".flv"}

// maxPlaylistBytes caps how much of a playlist body is read.
const maxPlaylistBytes = 256 << 10

// Resolver fetches and parses indirection playlists.
type Resolver struct {
	Client  *http.Client
	Timeout time.Duration // defaults to 5s
}

func (r *Resolver) client() *http.Client {
	if r.Client != nil {
		return r.Client
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return httpclient.WithTimeout(timeout)
}

// Resolve returns a playable URL for rawURL. Synchronous; callers run it off
// the serialized host context.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) string {
	if !NeedsResolution(rawURL) {
		metrics.ResolveOutcomes.WithLabelValues("passthrough").Inc()
		return rawURL
	}
	log := logging.Component("resolver")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		metrics.ResolveOutcomes.WithLabelValues("failed").Inc()
		return rawURL
	}
	resp, err := r.client().Do(req)
	if err != nil {
		log.Debug().Err(err).Str("url", safeurl.Redact(rawURL)).Msg("playlist fetch failed; playing raw URL")
		metrics.ResolveOutcomes.WithLabelValues("failed").Inc()
		return rawURL
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Debug().Int("status", resp.StatusCode).Str("url", safeurl.Redact(rawURL)).Msg("playlist fetch non-2xx")
		metrics.ResolveOutcomes.WithLabelValues("failed").Inc()
		return rawURL
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPlaylistBytes))
	if err != nil {
		metrics.ResolveOutcomes.WithLabelValues("failed").Inc()
		return rawURL
	}

	if target := FirstPlayable(rawURL, string(body)); target != "" {
		log.Debug().Str("from", safeurl.Redact(rawURL)).Str("to", safeurl.Redact(target)).Msg("playlist unwrapped")
		metrics.ResolveOutcomes.WithLabelValues("resolved").Inc()
		return target
	}
	metrics.ResolveOutcomes.WithLabelValues("failed").Inc()
	return rawURL
}

// NeedsResolution reports whether rawURL is an indirection playlist the
// resolver should fetch. Passthrough suffixes win over indirection suffixes,
// and non-http(s) URLs are never fetched.
func NeedsResolution(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, suffix := range passthroughSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return false
		}
	}
	for _, suffix := range indirectionSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return safeurl.IsHTTPOrHTTPS(rawURL)
		}
	}
	return false
}

// FirstPlayable extracts the first playable URL from a playlist body.
// A PLS body yields the first File1= value; PLS is detected by "pls" in the
// URL or a [playlist] section in the body (body detection wins even for .m3u
// URLs). Otherwise the body is treated as line-oriented M3U and the first
// non-comment absolute http(s) line is returned. Empty string means no
// playable line was found.
func FirstPlayable(rawURL, body string) string {
	lines := strings.Split(body, "\n")

	if strings.Contains(strings.ToLower(rawURL), "pls") ||
		strings.Contains(strings.ToLower(body), "[playlist]") {
		for _, line := range lines {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(strings.ToLower(trimmed), "file1=") {
				return strings.TrimSpace(trimmed[len("file1="):])
			}
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
			return trimmed
		}
	}
	return ""
}
