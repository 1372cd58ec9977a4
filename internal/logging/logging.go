// Package logging provides per-component zerolog loggers with a shared
// console writer. Level defaults to info; set RADIODIR_DEBUG=true (or call
// SetDebug) to enable debug output from the pipelines.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu   sync.RWMutex
	base = newBase(os.Stderr)
)

func newBase(w io.Writer) zerolog.Logger {
	lvl := zerolog.InfoLevel
	if v := os.Getenv("RADIODIR_DEBUG"); v == "1" || strings.EqualFold(v, "true") {
		lvl = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(lvl).With().Timestamp().Logger()
}

// Component returns a logger tagged with the given component name
// ("loader", "logos", "resolver", ...).
func Component(name string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base.With().Str("component", name).Logger()
}

// SetDebug switches the global level at runtime.
func SetDebug(on bool) {
	mu.Lock()
	defer mu.Unlock()
	lvl := zerolog.InfoLevel
	if on {
		lvl = zerolog.DebugLevel
	}
	base = base.Level(lvl)
}

// SetOutput redirects all component loggers; tests use it to silence or
// capture output.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	base = newBase(w)
}
