// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
)

// StreamServer is the TCP streaming server run by the manager.
type StreamServer interface {
	ListenAndServe(ctx context.Context) error
}

// Deps contains dependencies required by the daemon Manager.
type Deps struct {
	// Logger is the structured logger for the daemon
	Logger zerolog.Logger

	// Server is the streaming server
	Server StreamServer

	// AdminHandler serves the admin API. Nil disables the admin listener.
	AdminHandler http.Handler
}

// Validate checks if the dependencies are valid.
func (d *Deps) Validate() error {
	if d.Logger.GetLevel() == zerolog.Disabled {
		return ErrMissingLogger
	}
	if d.Server == nil {
		return ErrMissingServer
	}
	return nil
}
