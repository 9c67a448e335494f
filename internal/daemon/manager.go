// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ManuGH/streamconnect/internal/config"
	"github.com/ManuGH/streamconnect/internal/log"
	"github.com/rs/zerolog"
)

// ShutdownHook is a function that performs cleanup during graceful shutdown.
// Hooks are executed in reverse registration order (LIFO).
type ShutdownHook func(ctx context.Context) error

// Manager manages the daemon lifecycle: starting servers, handling shutdown.
type Manager interface {
	// Start starts all configured servers and blocks until shutdown
	Start(ctx context.Context) error

	// Shutdown gracefully shuts down all servers
	Shutdown(ctx context.Context) error

	// RegisterShutdownHook registers a function to be called during shutdown
	RegisterShutdownHook(name string, hook ShutdownHook)

	// AdminAddr returns the admin listener address once it is listening.
	AdminAddr() net.Addr
}

type manager struct {
	cfg  config.AppConfig
	deps Deps

	adminServer   *http.Server
	adminAddr     net.Addr
	streamCancel  context.CancelFunc
	streamStopped chan struct{}

	shutdownHooks []namedHook

	started  bool
	stopping bool
	mu       sync.Mutex

	logger zerolog.Logger
}

type namedHook struct {
	name string
	hook ShutdownHook
}

// NewManager creates a new daemon manager with the given configuration and dependencies.
func NewManager(cfg config.AppConfig, deps Deps) (Manager, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	return &manager{
		cfg:           cfg,
		deps:          deps,
		logger:        deps.Logger.With().Str(log.FieldComponent, "manager").Logger(),
		shutdownHooks: make([]namedHook, 0),
	}, nil
}

// Start starts the stream server and, if configured, the admin server. It
// blocks until ctx is cancelled or a server fails, then shuts down.
func (m *manager) Start(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("start context is nil")
	}

	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("manager already started")
	}
	m.started = true
	m.mu.Unlock()

	m.logger.Info().
		Str("listen", m.cfg.ListenAddr).
		Str("admin", m.cfg.Admin.ListenAddr).
		Dur("shutdown_timeout", m.cfg.ShutdownTimeout).
		Msg("starting daemon manager")

	errChan := make(chan error, 2)

	if m.deps.AdminHandler != nil && m.cfg.Admin.ListenAddr != "" {
		if err := m.startAdminServer(errChan); err != nil {
			return fmt.Errorf("failed to start admin server: %w", err)
		}
	}
	m.startStreamServer(ctx, errChan)

	select {
	case err := <-errChan:
		m.logger.Error().Err(err).Msg("server error, initiating shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.shutdownTimeout())
		defer cancel()
		if shutdownErr := m.Shutdown(shutdownCtx); shutdownErr != nil {
			return fmt.Errorf("server error and shutdown failure: %w", errors.Join(err, shutdownErr))
		}
		return err
	case <-ctx.Done():
		m.logger.Info().Msg("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.shutdownTimeout())
		defer cancel()
		return m.Shutdown(shutdownCtx)
	}
}

// startStreamServer runs the stream server on its own context so that
// Shutdown, not the caller, decides when sessions are torn down.
func (m *manager) startStreamServer(ctx context.Context, errChan chan<- error) {
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stopped := make(chan struct{})
	m.mu.Lock()
	m.streamCancel = cancel
	m.streamStopped = stopped
	m.mu.Unlock()

	go func() {
		defer close(stopped)
		if err := m.deps.Server.ListenAndServe(streamCtx); err != nil {
			m.logger.Error().
				Err(err).
				Str(log.FieldEvent, "stream.server.failed").
				Msg("stream server failed")
			errChan <- fmt.Errorf("stream server: %w", err)
		}
	}()
}

func (m *manager) startAdminServer(errChan chan<- error) error {
	ln, err := net.Listen("tcp", m.cfg.Admin.ListenAddr)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.adminAddr = ln.Addr()
	m.adminServer = &http.Server{
		Handler:           m.deps.AdminHandler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	srv := m.adminServer
	m.mu.Unlock()

	go func() {
		m.logger.Info().Str("addr", ln.Addr().String()).Msg("admin server listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error().
				Err(err).
				Str(log.FieldEvent, "admin.server.failed").
				Msg("admin server failed")
			errChan <- fmt.Errorf("admin server: %w", err)
		}
	}()
	return nil
}

func (m *manager) AdminAddr() net.Addr {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.adminAddr
}

func (m *manager) shutdownTimeout() time.Duration {
	if m.cfg.ShutdownTimeout > 0 {
		return m.cfg.ShutdownTimeout
	}
	return 15 * time.Second
}

func (m *manager) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("shutdown context is nil")
	}

	m.mu.Lock()
	if m.stopping {
		m.mu.Unlock()
		return nil
	}
	if !m.started {
		m.mu.Unlock()
		return ErrManagerNotStarted
	}
	m.stopping = true
	adminServer, streamCancel, streamStopped := m.adminServer, m.streamCancel, m.streamStopped
	hooks := append([]namedHook(nil), m.shutdownHooks...)
	m.mu.Unlock()

	m.logger.Info().Msg("shutting down daemon manager")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.shutdownTimeout())
	defer cancel()

	var errs []error

	if adminServer != nil {
		m.logger.Debug().Msg("shutting down admin server")
		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("admin server shutdown: %w", err))
		}
	}

	if streamCancel != nil {
		m.logger.Debug().Msg("closing stream sessions")
		streamCancel()
		select {
		case <-streamStopped:
		case <-shutdownCtx.Done():
			errs = append(errs, fmt.Errorf("stream server drain: %w", shutdownCtx.Err()))
		}
	}

	m.logger.Debug().Int("hooks", len(hooks)).Msg("executing shutdown hooks")
	for i := len(hooks) - 1; i >= 0; i-- {
		hook := hooks[i]
		hookStart := time.Now()
		if err := hook.hook(shutdownCtx); err != nil {
			m.logger.Error().
				Err(err).
				Str("hook", hook.name).
				Dur("duration", time.Since(hookStart)).
				Msg("shutdown hook failed")
			errs = append(errs, fmt.Errorf("hook %s: %w", hook.name, err))
		} else {
			m.logger.Debug().
				Str("hook", hook.name).
				Dur("duration", time.Since(hookStart)).
				Msg("shutdown hook completed")
		}
	}

	if len(errs) > 0 {
		m.logger.Error().
			Int("error_count", len(errs)).
			Msg("shutdown completed with errors")
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	m.logger.Info().Msg("daemon manager stopped cleanly")
	return nil
}

// RegisterShutdownHook registers a cleanup function to be called during shutdown.
// Hooks are executed in reverse registration order (LIFO).
func (m *manager) RegisterShutdownHook(name string, hook ShutdownHook) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.shutdownHooks = append(m.shutdownHooks, namedHook{name: name, hook: hook})
	m.logger.Debug().Str("hook", name).Msg("registered shutdown hook")
}
