// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"fmt"
	"strings"

	"github.com/ManuGH/streamconnect/internal/config"
	"github.com/ManuGH/streamconnect/internal/daemon"
	xglog "github.com/ManuGH/streamconnect/internal/log"
	"github.com/ManuGH/streamconnect/internal/version"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the streaming server",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return runServe(strings.TrimSpace(configPath))
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (YAML)")
	return cmd
}

func runServe(configPath string) error {
	// Safe defaults until the config file has been read.
	xglog.Configure(xglog.Config{
		Level:   "info",
		Service: "streamd",
		Version: version.Version,
	})
	cfg, err := config.NewLoader(configPath, version.Version).Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	xglog.Reconfigure(xglog.Config{
		Level:   cfg.Log.Level,
		Service: cfg.Log.Service,
		Version: version.Version,
	})
	logger := xglog.WithComponent("daemon")
	logger.Info().
		Str(xglog.FieldEvent, "startup").
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str("build_date", version.Date).
		Str(xglog.FieldListenAddr, cfg.ListenAddr).
		Int("roots", len(cfg.Storage.Roots)).
		Msg("starting streamd")

	ctx, stop := daemon.WaitForShutdown()
	defer stop()

	app, err := daemon.Build(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build daemon: %w", err)
	}
	if err := app.Run(ctx); err != nil {
		return err
	}
	logger.Info().Str(xglog.FieldEvent, "shutdown.complete").Msg("streamd stopped")
	return nil
}
