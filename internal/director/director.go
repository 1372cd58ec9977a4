// Package director owns the application state machine: one goroutine applies
// catalog loads, query changes, favorite toggles, thumbnail deliveries, and
// stream resolutions in a strict serial order, so callers never need a lock
// around the visible results.
package director

import (
	"context"
	"image"

	"github.com/robfig/cron/v3"

	"github.com/szaturnusz/radiodir/internal/catalog"
	"github.com/szaturnusz/radiodir/internal/favorites"
	"github.com/szaturnusz/radiodir/internal/loader"
	"github.com/szaturnusz/radiodir/internal/logging"
	"github.com/szaturnusz/radiodir/internal/logos"
	"github.com/szaturnusz/radiodir/internal/query"
	"github.com/szaturnusz/radiodir/internal/resolver"
	"github.com/szaturnusz/radiodir/internal/station"
)

// LoadState describes where a catalog load currently stands.
type LoadState string

const (
	StateLoading LoadState = "loading"
	StateReady   LoadState = "ready"
	StateFailed  LoadState = "failed"
)

// CatalogStatus is pushed to the host whenever a load starts or finishes.
type CatalogStatus struct {
	State    LoadState
	Source   loader.Source
	Stations int
	Err      error
}

// Callbacks are the host's hooks. Every callback is invoked from the
// director's loop goroutine, never concurrently with another callback or
// with a queued command.
type Callbacks struct {
	OnCatalogStatus  func(CatalogStatus)
	OnResultsChanged func(visible []station.Record, hasMore bool, total int)
	OnThumbnailReady func(stationID string, img image.Image)
	OnResolvedURL    func(stationID, streamURL string)
}

// Options wires the director's collaborators.
type Options struct {
	Loader    *loader.Loader
	Favorites *favorites.Store
	Logos     *logos.Pipeline
	Resolver  *resolver.Resolver
	Callbacks Callbacks

	// RefreshCron, when non-empty, schedules unconditional catalog
	// refreshes on the given cron expression.
	RefreshCron string
}

// Director is the serialized core. Construct with New, then call Run once;
// all other methods are safe from any goroutine and are applied in order on
// the loop.
type Director struct {
	opts Options
	cmds chan func()
	done chan struct{} // closed when Run returns; unblocks late posts

	// Loop-owned state. Only the Run goroutine touches these.
	runCtx     context.Context
	catalog    *catalog.Catalog
	state      query.State
	loading    bool
	resolveGen uint64
}

// New creates a Director. Run must be called before the queued methods have
// any effect.
func New(opts Options) *Director {
	return &Director{
		opts:  opts,
		cmds:  make(chan func(), 64),
		done:  make(chan struct{}),
		state: query.NewState(),
	}
}

// Run drives the loop until ctx is canceled. It kicks off the initial
// catalog load, starts the logo pool, and installs the optional refresh
// schedule. Run blocks; callers usually run it in a goroutine.
func (d *Director) Run(ctx context.Context) {
	log := logging.Component("director")
	d.runCtx = ctx
	defer close(d.done)

	if d.opts.Logos != nil {
		d.opts.Logos.Start(ctx)
	}
	if d.opts.RefreshCron != "" {
		c := cron.New()
		if _, err := c.AddFunc(d.opts.RefreshCron, func() { d.Refresh() }); err != nil {
			log.Warn().Err(err).Str("schedule", d.opts.RefreshCron).
				Msg("refresh schedule rejected")
		} else {
			c.Start()
			defer c.Stop()
		}
	}

	d.startLoad(ctx, false)

	var thumbs <-chan logos.Thumbnail
	if d.opts.Logos != nil {
		thumbs = d.opts.Logos.Results()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-d.cmds:
			cmd()
		case th := <-thumbs:
			if d.opts.Callbacks.OnThumbnailReady != nil {
				d.opts.Callbacks.OnThumbnailReady(th.StationID, th.Image)
			}
		}
	}
}

// Refresh forces a network fetch, replacing the stored snapshot. A refresh
// already in flight absorbs the request.
func (d *Director) Refresh() {
	d.post(func() { d.startLoad(d.runCtx, true) })
}

// SetCategory switches the active category and resets the result window.
func (d *Director) SetCategory(key string) {
	d.post(func() {
		d.state.SetCategory(key)
		d.recompute()
	})
}

// SetSearchText replaces the free-text filter and resets the result window.
func (d *Director) SetSearchText(text string) {
	d.post(func() {
		d.state.SetText(text)
		d.recompute()
	})
}

// LoadMore widens the result window by one increment.
func (d *Director) LoadMore() {
	d.post(func() {
		d.state.Grow()
		d.recompute()
	})
}

// ToggleFavorite flips a station's favorite bit and persists the set. When
// the favorites category is active the visible results change immediately.
func (d *Director) ToggleFavorite(stationID string) {
	d.post(func() {
		if d.opts.Favorites == nil {
			return
		}
		d.opts.Favorites.Toggle(stationID)
		if d.state.Category == catalog.KeyFavorites {
			d.recompute()
		}
	})
}

// Select resolves a station's stream URL for playback. Selecting another
// station before the previous resolution finishes drops the stale result.
func (d *Director) Select(stationID string) {
	d.post(func() {
		rec, ok := d.lookup(stationID)
		if !ok || d.opts.Resolver == nil {
			return
		}
		d.resolveGen++
		gen := d.resolveGen
		ctx := d.runCtx
		go func() {
			resolved := d.opts.Resolver.Resolve(ctx, rec.StreamURL)
			d.post(func() {
				if gen != d.resolveGen {
					return
				}
				if d.opts.Callbacks.OnResolvedURL != nil {
					d.opts.Callbacks.OnResolvedURL(stationID, resolved)
				}
			})
		}()
	})
}

// post queues cmd for the loop. Once Run has returned the command is
// discarded instead of blocking the caller forever.
func (d *Director) post(cmd func()) {
	select {
	case d.cmds <- cmd:
	case <-d.done:
	}
}

// startLoad runs the loader off-loop and posts the outcome back. Only one
// load is in flight at a time.
func (d *Director) startLoad(ctx context.Context, force bool) {
	if d.loading {
		return
	}
	d.loading = true
	d.status(CatalogStatus{State: StateLoading})

	go func() {
		var (
			raws []station.Raw
			src  loader.Source
			err  error
		)
		if force {
			raws, err = d.opts.Loader.Refresh(ctx)
			src = loader.SourceRemote
		} else {
			raws, src, err = d.opts.Loader.Load(ctx)
		}
		d.post(func() {
			d.loading = false
			if err != nil {
				d.status(CatalogStatus{State: StateFailed, Err: err})
				return
			}
			d.catalog = catalog.Build(raws)
			d.status(CatalogStatus{
				State:    StateReady,
				Source:   src,
				Stations: len(d.catalog.Stations),
			})
			d.recompute()
		})
	}()
}

func (d *Director) status(s CatalogStatus) {
	if d.opts.Callbacks.OnCatalogStatus != nil {
		d.opts.Callbacks.OnCatalogStatus(s)
	}
}

// recompute re-derives the visible window from the catalog and query state,
// notifies the host, and queues logo work for what just became visible.
func (d *Director) recompute() {
	if d.catalog == nil {
		return
	}
	filtered := query.Filter(d.catalog, d.isFavorite, d.state)
	visible, hasMore := query.Window(filtered, d.state.WindowSize)
	if d.opts.Callbacks.OnResultsChanged != nil {
		d.opts.Callbacks.OnResultsChanged(visible, hasMore, len(filtered))
	}
	if d.opts.Logos != nil {
		for _, rec := range visible {
			d.opts.Logos.Request(rec.ID, rec.LogoURL)
		}
	}
}

func (d *Director) isFavorite(id string) bool {
	return d.opts.Favorites != nil && d.opts.Favorites.Contains(id)
}

func (d *Director) lookup(stationID string) (station.Record, bool) {
	if d.catalog == nil {
		return station.Record{}, false
	}
	for _, rec := range d.catalog.Stations {
		if rec.ID == stationID {
			return rec, true
		}
	}
	return station.Record{}, false
}

// Countries lists the catalog's country category keys; empty before the
// first successful load and after the loop has stopped. Synchronous: it
// round-trips through the loop.
func (d *Director) Countries() []string {
	out := make(chan []string, 1)
	d.post(func() {
		if d.catalog == nil {
			out <- nil
			return
		}
		cs := make([]string, len(d.catalog.Countries))
		copy(cs, d.catalog.Countries)
		out <- cs
	})
	select {
	case cs := <-out:
		return cs
	case <-d.done:
		return nil
	}
}
