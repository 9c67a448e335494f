// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package procgroup starts helper processes in their own process group so
// that cancelling one also stops anything it spawned.
package procgroup

import (
	"context"
	"os/exec"
	"syscall"
	"time"

	"github.com/ManuGH/streamconnect/internal/metrics"
)

// waitDelay bounds how long Wait blocks on inherited pipes after the
// group has been killed.
const waitDelay = 2 * time.Second

// CommandContext is exec.CommandContext with the process placed in a new
// group. When ctx is done the whole group receives SIGKILL.
func CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	// #nosec G204 -- callers pass operator-configured binaries
	cmd := exec.CommandContext(ctx, name, args...)
	Set(cmd)
	cmd.Cancel = func() error {
		err := Kill(cmd, syscall.SIGKILL)
		if err != nil {
			metrics.IncProbeKill("error")
			return err
		}
		metrics.IncProbeKill("killed")
		return nil
	}
	cmd.WaitDelay = waitDelay
	return cmd
}
