// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/streamconnect/internal/catalog"
	"github.com/ManuGH/streamconnect/internal/log"
	"github.com/ManuGH/streamconnect/internal/server"
	"github.com/rs/zerolog"
)

// App owns the long-lived runtime (initial scan, catalog watcher, rescan
// signal) and delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	catalog      *catalog.Catalog
	server       *server.Server
	watcher      *catalog.Watcher
	rescanSignal os.Signal
}

// NewApp creates a new App orchestrator. watcher may be nil.
func NewApp(logger zerolog.Logger, manager Manager, cat *catalog.Catalog, srv *server.Server, watcher *catalog.Watcher) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		catalog:      cat,
		server:       srv,
		watcher:      watcher,
		rescanSignal: syscall.SIGHUP,
	}
}

// Server returns the stream server.
func (a *App) Server() *server.Server { return a.server }

// AdminAddr returns the admin listener address, or nil.
func (a *App) AdminAddr() net.Addr {
	if a.manager == nil {
		return nil
	}
	return a.manager.AdminAddr()
}

// Run starts all owned background subsystems and blocks until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.catalog != nil {
		g.Go(func() error {
			entries, err := a.catalog.Refresh(ctx, catalog.TriggerStartup)
			if err != nil {
				a.logger.Warn().Err(err).Str(log.FieldEvent, "catalog.initial_scan_failed").Msg("initial catalog scan did not complete")
				return nil
			}
			a.logger.Info().
				Str(log.FieldEvent, "catalog.ready").
				Int("entries", len(entries)).
				Msg("catalog ready")
			return nil
		})
	}

	// The watcher is best-effort: the server keeps running without it.
	if a.watcher != nil {
		g.Go(func() error {
			if err := a.watcher.Run(ctx); err != nil {
				a.logger.Warn().Err(err).Str(log.FieldEvent, "catalog.watch_failed").Msg("catalog watcher stopped")
			}
			return nil
		})
	}

	if a.catalog != nil && a.rescanSignal != nil {
		g.Go(func() error {
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, a.rescanSignal)
			defer signal.Stop(sig)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-sig:
					a.logger.Info().
						Str(log.FieldEvent, "catalog.rescan_signal").
						Str("signal", a.rescanSignal.String()).
						Msg("received rescan signal")
					if _, err := a.catalog.Refresh(ctx, catalog.TriggerAdmin); err != nil {
						a.logger.Warn().Err(err).Msg("rescan failed")
					}
				}
			}
		})
	}

	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}
