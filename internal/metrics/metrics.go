// Package metrics registers the prometheus counters the catalog and image
// pipelines bump. Everything lives on the default registry; cmd/radiodir
// exposes it over HTTP when RADIODIR_METRICS_ADDR is set.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CatalogLoads counts catalog acquisitions by source ("snapshot" or "remote").
	CatalogLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radiodir_catalog_loads_total",
		Help: "Catalog acquisitions by source.",
	}, []string{"source"})

	// CatalogLoadFailures counts total-load failures (no cache, remote failed).
	CatalogLoadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "radiodir_catalog_load_failures_total",
		Help: "Catalog loads that failed with no usable snapshot.",
	})

	// SnapshotSaveFailures counts snapshot writes that did not stick.
	SnapshotSaveFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "radiodir_snapshot_save_failures_total",
		Help: "Snapshot save attempts that failed.",
	})

	// LogoOutcomes counts per-station logo pipeline terminations by outcome:
	// cached, fetched, fetch_failed, decode_failed, corrupt_deleted, delivered.
	LogoOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radiodir_logo_pipeline_total",
		Help: "Logo pipeline outcomes per station attempt.",
	}, []string{"outcome"})

	// ResolveOutcomes counts stream URL resolutions: resolved, passthrough, failed.
	ResolveOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radiodir_resolve_total",
		Help: "Stream URL resolution outcomes.",
	}, []string{"outcome"})
)
