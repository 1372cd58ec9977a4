package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds directory, cache, and pipeline settings.
// Load from env; call LoadEnvFile(".env") before Load() to use a .env file.
type Config struct {
	// Directory API
	Endpoint     string // station directory base URL
	FetchLimit   int    // max stations per bulk fetch
	FetchTimeout time.Duration

	// Paths
	DataDir         string // snapshot storage, e.g. ~/.cache/radiodir
	SnapshotVersion string // bumping invalidates old snapshots
	LogoCacheDir    string // raw logo files, e.g. ~/.cache/radiodir/logos
	FavoritesPath   string // JSON favorites file; "" = user config dir default

	// Logo pipeline
	LogoWorkers int
	LogoTimeout time.Duration
	ThumbSize   int

	// Playlist resolution
	ResolveTimeout time.Duration

	// RefreshCron schedules unconditional catalog refreshes ("" = disabled).
	RefreshCron string

	// MetricsAddr serves Prometheus metrics when set, e.g. ":9090".
	MetricsAddr string

	Debug bool
}

// Load reads config from environment, filling unset keys with defaults.
func Load() *Config {
	c := &Config{
		Endpoint:        getEnv("RADIODIR_ENDPOINT", "https://de1.api.radio-browser.info"),
		FetchLimit:      getEnvInt("RADIODIR_FETCH_LIMIT", 100000),
		FetchTimeout:    getEnvDuration("RADIODIR_FETCH_TIMEOUT", 15*time.Second),
		DataDir:         getEnv("RADIODIR_DATA_DIR", defaultDataDir()),
		SnapshotVersion: getEnv("RADIODIR_SNAPSHOT_VERSION", "v2"),
		LogoCacheDir:    os.Getenv("RADIODIR_LOGO_CACHE_DIR"),
		FavoritesPath:   os.Getenv("RADIODIR_FAVORITES_PATH"),
		LogoWorkers:     getEnvInt("RADIODIR_LOGO_WORKERS", 4),
		LogoTimeout:     getEnvDuration("RADIODIR_LOGO_TIMEOUT", 5*time.Second),
		ThumbSize:       getEnvInt("RADIODIR_THUMB_SIZE", 64),
		ResolveTimeout:  getEnvDuration("RADIODIR_RESOLVE_TIMEOUT", 5*time.Second),
		RefreshCron:     os.Getenv("RADIODIR_REFRESH_CRON"),
		MetricsAddr:     os.Getenv("RADIODIR_METRICS_ADDR"),
		Debug:           getEnvBool("RADIODIR_DEBUG", false),
	}
	if c.FetchLimit <= 0 {
		c.FetchLimit = 100000
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 15 * time.Second
	}
	if c.LogoWorkers <= 0 {
		c.LogoWorkers = 4
	}
	if c.ThumbSize <= 0 {
		c.ThumbSize = 64
	}
	if c.LogoCacheDir == "" {
		c.LogoCacheDir = filepath.Join(c.DataDir, "logos")
	}
	return c
}

// defaultDataDir prefers the user cache dir; falls back to a relative dir so
// a sandboxed run still works.
func defaultDataDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "radiodir")
	}
	return "./radiodir-data"
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, _ := strconv.Atoi(v)
		return n
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
