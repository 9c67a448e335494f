// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package daemon provides the core daemon bootstrapping and lifecycle management.
package daemon

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ManuGH/streamconnect/internal/admin"
	"github.com/ManuGH/streamconnect/internal/cache"
	"github.com/ManuGH/streamconnect/internal/catalog"
	"github.com/ManuGH/streamconnect/internal/config"
	"github.com/ManuGH/streamconnect/internal/health"
	"github.com/ManuGH/streamconnect/internal/log"
	"github.com/ManuGH/streamconnect/internal/playback"
	"github.com/ManuGH/streamconnect/internal/playlist"
	"github.com/ManuGH/streamconnect/internal/probe"
	"github.com/ManuGH/streamconnect/internal/server"
	"github.com/ManuGH/streamconnect/internal/session"
	"github.com/ManuGH/streamconnect/internal/storage/local"
	s3store "github.com/ManuGH/streamconnect/internal/storage/s3"
	"github.com/ManuGH/streamconnect/internal/telemetry"
)

// Build assembles the runtime described by cfg. Nothing listens until the
// returned App runs.
func Build(ctx context.Context, cfg config.AppConfig) (*App, error) {
	logger := log.WithComponent("daemon")

	report, err := health.PerformStartupChecks(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("startup checks: %w", err)
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.FromAppConfig(cfg))
	if err != nil {
		logger.Warn().Err(err).Msg("telemetry initialization failed, continuing without tracing")
		tp = nil
	}

	roots, err := BuildRoots(ctx, cfg)
	if err != nil {
		return nil, err
	}

	probeCache, err := cache.New(cfg.Cache, log.WithComponent("cache"))
	if err != nil {
		return nil, fmt.Errorf("probe cache: %w", err)
	}

	cat := catalog.New(roots, catalog.Options{Prober: buildProber(cfg, report, probeCache)})
	states := playback.NewTable()
	store := playlist.NewStore(cat)
	srv := server.New(server.FromAppConfig(cfg), session.Deps{
		Catalog:   cat,
		States:    states,
		Playlists: store,
	})

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewCatalogChecker(cat))
	for _, rc := range cfg.Storage.Roots {
		if rc.Type == config.RootTypeLocal {
			hm.RegisterChecker(health.Informational(health.NewDirChecker("root_"+rc.ID, rc.Path)))
		}
	}
	if rc, ok := probeCache.(*cache.RedisCache); ok {
		hm.RegisterChecker(health.Informational(health.NewPingChecker("probe_cache", rc.HealthCheck)))
	}

	var adminHandler http.Handler
	if cfg.Admin.ListenAddr != "" {
		opts := admin.Options{
			RateLimit: cfg.Admin.RateLimit,
			StreamURL: "streamd://" + cfg.ListenAddr,
		}
		if cfg.Telemetry.Enabled {
			opts.TracingService = cfg.Log.Service + "-admin"
		}
		adminHandler = admin.NewHandler(admin.Deps{
			Health:    hm,
			Catalog:   cat,
			Sessions:  srv,
			Playlists: store,
		}, opts)
	}

	mgr, err := NewManager(cfg, Deps{
		Logger:       logger,
		Server:       srv,
		AdminHandler: adminHandler,
	})
	if err != nil {
		return nil, err
	}
	if tp != nil {
		mgr.RegisterShutdownHook("telemetry", tp.Shutdown)
	}
	mgr.RegisterShutdownHook("probe_cache", func(context.Context) error { return probeCache.Close() })

	var watcher *catalog.Watcher
	if cfg.Catalog.Watch {
		watcher = catalog.NewWatcher(cat, cfg.Catalog.WatchDebounce)
	}

	return NewApp(logger, mgr, cat, srv, watcher), nil
}

// BuildRoots instantiates the configured storage roots in order.
func BuildRoots(ctx context.Context, cfg config.AppConfig) ([]catalog.Root, error) {
	roots := make([]catalog.Root, 0, len(cfg.Storage.Roots))
	for _, rc := range cfg.Storage.Roots {
		switch rc.Type {
		case config.RootTypeS3:
			r, err := s3store.New(ctx, s3store.Config{
				ID:         rc.ID,
				Bucket:     rc.S3.Bucket,
				Prefix:     rc.S3.Prefix,
				Endpoint:   rc.S3.Endpoint,
				Region:     rc.S3.Region,
				AccessKey:  rc.S3.AccessKey,
				SecretKey:  rc.S3.SecretKey,
				IncludeExt: rc.IncludeExt,
				PresignTTL: rc.S3.PresignTTL,
			})
			if err != nil {
				return nil, fmt.Errorf("storage root %s: %w", rc.ID, err)
			}
			roots = append(roots, r)
		default:
			roots = append(roots, local.New(local.Config{
				ID:         rc.ID,
				Path:       rc.Path,
				IncludeExt: rc.IncludeExt,
				MaxDepth:   rc.MaxDepth,
			}))
		}
	}
	return roots, nil
}

const (
	probeBreakerThreshold = 5
	probeBreakerCooldown  = time.Minute
)

func buildProber(cfg config.AppConfig, report health.StartupReport, c cache.Cache) probe.Prober {
	if !cfg.FFprobe.Enabled || !report.FFprobe {
		return probe.Nop{}
	}
	guarded := probe.NewGuarded(probe.NewFFprobe(cfg.FFprobe.Bin, cfg.FFprobe.Timeout), probeBreakerThreshold, probeBreakerCooldown)
	return probe.NewCached(guarded, c, cfg.Cache.TTL)
}

// WaitForShutdown returns a context cancelled on interrupt or termination.
func WaitForShutdown() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
