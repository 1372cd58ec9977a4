// Command radiodir: station directory tooling built around the cached
// radio-browser catalog.
//
//	refresh    Fetch the full station list and replace the local snapshot
//	query      Load the catalog (snapshot-first) and print a filtered window
//	resolve    Resolve a station URL (follow .m3u/.pls indirection) and print the playable URL
//	logos      Prefetch and decode logos for the current query window
//	favorite   Toggle a station id in the favorites file, or list favorites
//	run        Headless service: keep the catalog fresh on a schedule, serve metrics
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/szaturnusz/radiodir/internal/catalog"
	"github.com/szaturnusz/radiodir/internal/config"
	"github.com/szaturnusz/radiodir/internal/director"
	"github.com/szaturnusz/radiodir/internal/favorites"
	"github.com/szaturnusz/radiodir/internal/health"
	"github.com/szaturnusz/radiodir/internal/loader"
	"github.com/szaturnusz/radiodir/internal/logging"
	"github.com/szaturnusz/radiodir/internal/logos"
	"github.com/szaturnusz/radiodir/internal/query"
	"github.com/szaturnusz/radiodir/internal/resolver"
	"github.com/szaturnusz/radiodir/internal/snapshot"
	"github.com/szaturnusz/radiodir/internal/station"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <refresh|query|resolve|logos|favorite|run> [flags]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  refresh   Fetch the station list and replace the local snapshot\n")
	fmt.Fprintf(os.Stderr, "  query     Print a filtered window of the catalog (-category, -search, -limit)\n")
	fmt.Fprintf(os.Stderr, "  resolve   Print the playable stream URL for a station id or raw URL\n")
	fmt.Fprintf(os.Stderr, "  logos     Prefetch logos for the current query window into the cache\n")
	fmt.Fprintf(os.Stderr, "  favorite  Toggle a station id (-toggle ID) or list favorites\n")
	fmt.Fprintf(os.Stderr, "  run       Headless: scheduled refresh + Prometheus metrics\n")
	os.Exit(1)
}

func newLoader(cfg *config.Config) *loader.Loader {
	return &loader.Loader{
		Store:    &snapshot.Store{Dir: cfg.DataDir, Version: cfg.SnapshotVersion},
		Endpoint: cfg.Endpoint,
		Limit:    cfg.FetchLimit,
		Timeout:  cfg.FetchTimeout,
	}
}

// loadCatalog builds the catalog snapshot-first; exits on acquisition failure.
func loadCatalog(ctx context.Context, cfg *config.Config) *catalog.Catalog {
	log := logging.Component("radiodir")
	raws, src, err := newLoader(cfg).Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("catalog unavailable")
	}
	c := catalog.Build(raws)
	log.Info().Str("source", string(src)).Int("stations", len(c.Stations)).Msg("catalog ready")
	return c
}

func main() {
	_ = config.LoadEnvFile(".env")
	cfg := config.Load()
	logging.SetDebug(cfg.Debug)
	log := logging.Component("radiodir")

	queryCmd := flag.NewFlagSet("query", flag.ExitOnError)
	queryCategory := queryCmd.String("category", catalog.KeyAll, "category key: all, favorites, tv, or country:<Name>")
	querySearch := queryCmd.String("search", "", "case-insensitive name/tag filter")
	queryLimit := queryCmd.Int("limit", query.DefaultWindow, "window size")
	queryCountries := queryCmd.Bool("countries", false, "list country keys instead of stations")

	resolveCmd := flag.NewFlagSet("resolve", flag.ExitOnError)
	resolveURL := resolveCmd.String("url", "", "raw URL to resolve (bypasses catalog lookup)")
	resolveID := resolveCmd.String("id", "", "station id whose stream URL to resolve")

	logosCmd := flag.NewFlagSet("logos", flag.ExitOnError)
	logosCategory := logosCmd.String("category", catalog.KeyAll, "category key")
	logosSearch := logosCmd.String("search", "", "name/tag filter")
	logosLimit := logosCmd.Int("limit", query.DefaultWindow, "window size")

	favCmd := flag.NewFlagSet("favorite", flag.ExitOnError)
	favToggle := favCmd.String("toggle", "", "station id to toggle")

	runCmd := flag.NewFlagSet("run", flag.ExitOnError)
	runCron := runCmd.String("cron", "", "refresh schedule (default: RADIODIR_REFRESH_CRON)")

	if len(os.Args) < 2 {
		usage()
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "refresh":
		start := time.Now()
		raws, err := newLoader(cfg).Refresh(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("refresh failed")
		}
		c := catalog.Build(raws)
		log.Info().Int("fetched", len(raws)).Int("usable", len(c.Stations)).
			Dur("took", time.Since(start)).Msg("snapshot replaced")

	case "query":
		_ = queryCmd.Parse(os.Args[2:])
		c := loadCatalog(ctx, cfg)
		if *queryCountries {
			for _, country := range c.Countries {
				fmt.Println(catalog.CountryPrefix + country)
			}
			return
		}
		visible, hasMore := queryWindow(c, cfg, *queryCategory, *querySearch, *queryLimit)
		for _, rec := range visible {
			fmt.Printf("%s\t%s\t%s\t%s\n", rec.ID, rec.Name, rec.Country, rec.TagsJoined())
		}
		if hasMore {
			fmt.Fprintf(os.Stderr, "(more results; raise -limit)\n")
		}

	case "resolve":
		_ = resolveCmd.Parse(os.Args[2:])
		raw := *resolveURL
		if raw == "" && *resolveID != "" {
			c := loadCatalog(ctx, cfg)
			found := false
			for _, rec := range c.Stations {
				if rec.ID == *resolveID {
					raw, found = rec.StreamURL, true
					break
				}
			}
			if !found {
				log.Fatal().Str("id", *resolveID).Msg("station not in catalog")
			}
		}
		if raw == "" {
			log.Fatal().Msg("resolve needs -url or -id")
		}
		r := &resolver.Resolver{Timeout: cfg.ResolveTimeout}
		fmt.Println(r.Resolve(ctx, raw))

	case "logos":
		_ = logosCmd.Parse(os.Args[2:])
		c := loadCatalog(ctx, cfg)
		visible, _ := queryWindow(c, cfg, *logosCategory, *logosSearch, *logosLimit)
		pipe := logos.New(logos.Config{
			CacheDir:     cfg.LogoCacheDir,
			Workers:      cfg.LogoWorkers,
			FetchTimeout: cfg.LogoTimeout,
			ThumbSize:    cfg.ThumbSize,
		})
		pipe.Start(ctx)
		requested := 0
		for _, rec := range visible {
			if pipe.Request(rec.ID, rec.LogoURL) {
				requested++
			}
		}
		done := 0
		deadline := time.After(time.Duration(requested)*cfg.LogoTimeout + 10*time.Second)
		for done < requested {
			select {
			case th := <-pipe.Results():
				b := th.Image.Bounds()
				log.Info().Str("station", th.StationID).
					Str("size", fmt.Sprintf("%dx%d", b.Dx(), b.Dy())).Msg("logo ready")
				done++
			case <-deadline:
				log.Warn().Int("done", done).Int("requested", requested).Msg("gave up waiting")
				return
			case <-ctx.Done():
				return
			}
		}
		log.Info().Int("decoded", done).Int("requested", requested).Msg("logo prefetch finished")

	case "favorite":
		_ = favCmd.Parse(os.Args[2:])
		favs := mustFavorites(cfg)
		if *favToggle != "" {
			if favs.Toggle(*favToggle) {
				fmt.Printf("%s added\n", *favToggle)
			} else {
				fmt.Printf("%s removed\n", *favToggle)
			}
			return
		}
		for _, id := range favs.IDs() {
			fmt.Println(id)
		}

	case "run":
		_ = runCmd.Parse(os.Args[2:])
		cronSpec := *runCron
		if cronSpec == "" {
			cronSpec = cfg.RefreshCron
		}
		if err := health.CheckDirectory(ctx, cfg.Endpoint); err != nil {
			// Advisory: the snapshot still serves while the API is down.
			log.Warn().Err(err).Msg("directory check failed")
		}
		if cfg.MetricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error().Err(err).Msg("metrics server failed")
				}
			}()
			go func() {
				<-ctx.Done()
				shutCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutCtx)
			}()
			log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
		}
		d := director.New(director.Options{
			Loader:    newLoader(cfg),
			Favorites: mustFavorites(cfg),
			Logos: logos.New(logos.Config{
				CacheDir:     cfg.LogoCacheDir,
				Workers:      cfg.LogoWorkers,
				FetchTimeout: cfg.LogoTimeout,
				ThumbSize:    cfg.ThumbSize,
			}),
			Resolver:    &resolver.Resolver{Timeout: cfg.ResolveTimeout},
			RefreshCron: cronSpec,
			Callbacks: director.Callbacks{
				OnCatalogStatus: func(s director.CatalogStatus) {
					switch s.State {
					case director.StateLoading:
						log.Info().Msg("catalog loading")
					case director.StateReady:
						log.Info().Str("source", string(s.Source)).
							Int("stations", s.Stations).Msg("catalog ready")
					case director.StateFailed:
						log.Error().Err(s.Err).Msg("catalog load failed")
					}
				},
			},
		})
		d.Run(ctx)

	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n", os.Args[1])
		usage()
	}
}

func queryWindow(c *catalog.Catalog, cfg *config.Config, category, search string, limit int) ([]station.Record, bool) {
	favs := mustFavorites(cfg)
	st := query.NewState()
	st.SetCategory(category)
	st.SetText(search)
	if limit > 0 {
		st.WindowSize = limit
	}
	filtered := query.Filter(c, favs.Contains, st)
	return query.Window(filtered, st.WindowSize)
}

func mustFavorites(cfg *config.Config) *favorites.Store {
	path := cfg.FavoritesPath
	if path == "" {
		p, err := favorites.DefaultPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "no favorites path available: %v\n", err)
			os.Exit(1)
		}
		path = p
	}
	return favorites.Open(path)
}
