// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"

	"github.com/ManuGH/streamconnect/internal/config"
	"github.com/ManuGH/streamconnect/internal/log"
	"github.com/rs/zerolog"
)

// StartupReport carries facts discovered by the pre-flight checks that the
// daemon acts on.
type StartupReport struct {
	// FFprobe is false when probing is enabled but the binary is missing.
	FFprobe bool
}

// PerformStartupChecks validates the environment before starting the
// server. Listen addresses must parse; missing storage roots and a missing
// ffprobe binary are only warnings because the server runs without them.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) (StartupReport, error) {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	if err := checkListenAddr(logger, "stream", cfg.ListenAddr); err != nil {
		return StartupReport{}, err
	}
	if cfg.Admin.ListenAddr != "" {
		if err := checkListenAddr(logger, "admin", cfg.Admin.ListenAddr); err != nil {
			return StartupReport{}, err
		}
	}

	checkRoots(logger, cfg.Storage.Roots)

	report := StartupReport{FFprobe: cfg.FFprobe.Enabled}
	if cfg.FFprobe.Enabled {
		bin := cfg.FFprobe.Bin
		if bin == "" {
			bin = "ffprobe"
		}
		if _, err := exec.LookPath(bin); err != nil {
			logger.Warn().Err(err).Str("bin", bin).Msg("ffprobe not found; durations will be reported as 0")
			report.FFprobe = false
		}
	}

	logger.Info().Msg("startup checks passed")
	return report, nil
}

func checkListenAddr(logger zerolog.Logger, name, addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid %s listen address %q: %w", name, addr, err)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("invalid %s listen port %q in %q", name, port, addr)
	}
	logger.Debug().Str("addr", addr).Msgf("%s listen address is valid", name)
	return nil
}

func checkRoots(logger zerolog.Logger, roots []config.RootConfig) {
	for _, r := range roots {
		if r.Type != config.RootTypeLocal {
			continue
		}
		info, err := os.Stat(r.Path)
		switch {
		case err != nil:
			logger.Warn().Err(err).Str(log.FieldRootID, r.ID).Str(log.FieldPath, r.Path).
				Msg("storage root unavailable; it will list as empty")
		case !info.IsDir():
			logger.Warn().Str(log.FieldRootID, r.ID).Str(log.FieldPath, r.Path).
				Msg("storage root is not a directory; it will list as empty")
		}
	}
}
