// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package admin serves the operational HTTP API: health probes, Prometheus
// metrics, catalog inspection and rescans, live sessions and M3U export of
// client playlists.
package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/ManuGH/streamconnect/internal/catalog"
	"github.com/ManuGH/streamconnect/internal/health"
	"github.com/ManuGH/streamconnect/internal/playlist"
	"github.com/ManuGH/streamconnect/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Catalog is the catalog surface exposed to operators.
type Catalog interface {
	Entries() []catalog.Entry
	Refresh(ctx context.Context, trigger string) ([]catalog.Entry, error)
	Status() []catalog.RootState
	LastRefresh() time.Time
}

// SessionLister reports live sessions.
type SessionLister interface {
	Sessions() []session.Info
}

// Deps are the components the admin API reads from.
type Deps struct {
	Health    *health.Manager
	Catalog   Catalog
	Sessions  SessionLister
	Playlists *playlist.Store
}

// Options tune the admin router.
type Options struct {
	// RateLimit is the number of requests per minute per IP. 0 disables it.
	RateLimit int
	// TracingService names the otelhttp spans. Empty disables tracing.
	TracingService string
	// StreamURL prefixes video ids in exported M3U playlists.
	StreamURL string
}

type api struct {
	deps Deps
	opts Options
}

// NewHandler builds the admin router.
func NewHandler(deps Deps, opts Options) http.Handler {
	a := &api{deps: deps, opts: opts}

	r := chi.NewRouter()
	r.Use(recoverer)
	r.Use(requestID)
	r.Use(instrument)

	r.Get("/healthz", deps.Health.ServeHealth)
	r.Get("/readyz", deps.Health.ServeReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if opts.RateLimit > 0 {
			r.Use(rateLimit(opts.RateLimit, time.Minute))
		}
		r.Get("/catalog", a.handleCatalog)
		r.With(rateLimit(10, time.Minute)).Post("/catalog/rescan", a.handleRescan)
		r.Get("/sessions", a.handleSessions)
		r.Get("/sessions/{client}/playlists/{name}.m3u", a.handlePlaylistM3U)
	})

	if opts.TracingService != "" {
		return traced(opts.TracingService, r)
	}
	return r
}
