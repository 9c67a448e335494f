// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package server accepts client connections and runs one session per
// connection against the shared catalog, playback and playlist tables.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/ManuGH/streamconnect/internal/config"
	"github.com/ManuGH/streamconnect/internal/log"
	"github.com/ManuGH/streamconnect/internal/metrics"
	"github.com/ManuGH/streamconnect/internal/ratelimit"
	"github.com/ManuGH/streamconnect/internal/session"
	"github.com/rs/zerolog"
	"golang.org/x/net/netutil"
)

// ErrAlreadyServing is returned when Serve is called twice.
var ErrAlreadyServing = errors.New("server already serving")

// Config controls the listener and the sessions it spawns.
type Config struct {
	ListenAddr     string
	KeyMode        string
	MaxConnections int
	ConnectRate    float64
	ConnectBurst   int
	Session        session.Config
}

// FromAppConfig derives the server configuration from the application config.
func FromAppConfig(cfg config.AppConfig) Config {
	return Config{
		ListenAddr:     cfg.ListenAddr,
		KeyMode:        cfg.Session.Key,
		MaxConnections: cfg.Session.MaxConnections,
		ConnectRate:    cfg.Session.ConnectRate,
		ConnectBurst:   cfg.Session.ConnectBurst,
		Session: session.Config{
			ChunkSize:         cfg.ChunkSize,
			CommandBuffer:     cfg.Session.CommandBuffer,
			WriteTimeout:      cfg.Session.WriteTimeout,
			ChunkInterval:     cfg.Pacing.ChunkInterval,
			MaxBytesPerSecond: cfg.Pacing.MaxBytesPerSecond,
			RefreshOnConnect:  cfg.Catalog.RefreshOnConnect,
		},
	}
}

type active struct {
	sess   *session.Session
	cancel context.CancelFunc
	done   chan struct{}
}

// Server is the streaming TCP server.
type Server struct {
	cfg       Config
	deps      session.Deps
	admission *ratelimit.Admission
	logger    zerolog.Logger

	mu       sync.Mutex
	listener net.Listener
	sessions map[string]*active
	wg       sync.WaitGroup
	ready    chan struct{}
}

// New creates a server. Sessions share deps.
func New(cfg Config, deps session.Deps) *Server {
	s := &Server{
		cfg:      cfg,
		deps:     deps,
		logger:   log.WithComponent("server"),
		sessions: make(map[string]*active),
		ready:    make(chan struct{}),
	}
	if cfg.ConnectRate > 0 {
		s.admission = ratelimit.NewAdmission(cfg.ConnectRate, cfg.ConnectBurst)
	}
	return s
}

// ListenAndServe listens on the configured address and serves until ctx
// is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.ListenAddr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled. On return the
// listener is closed and every session has finished.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}

	s.mu.Lock()
	if s.listener != nil {
		s.mu.Unlock()
		_ = ln.Close()
		return ErrAlreadyServing
	}
	s.listener = ln
	s.mu.Unlock()
	close(s.ready)

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	defer s.wg.Wait()

	s.logger.Info().
		Str(log.FieldEvent, "server.listening").
		Str(log.FieldListenAddr, ln.Addr().String()).
		Str("key_mode", s.keyMode()).
		Int("max_connections", s.cfg.MaxConnections).
		Msg("stream server listening")

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.logger.Info().Str(log.FieldEvent, "server.stopped").Msg("stream server stopped accepting")
				return nil
			}
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else {
				backoff = min(backoff*2, time.Second)
			}
			s.logger.Warn().Err(err).Dur("retry_in", backoff).Msg("accept failed")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
			}
			continue
		}
		backoff = 0

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(ctx, conn)
		}()
	}
}

// Ready is closed once the server has a listener.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Addr returns the listener address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Sessions reports the live sessions ordered by client key.
func (s *Server) Sessions() []session.Info {
	s.mu.Lock()
	out := make([]session.Info, 0, len(s.sessions))
	for _, a := range s.sessions {
		out = append(out, a.sess.Info())
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Client < out[j].Client })
	return out
}

func (s *Server) keyMode() string {
	if s.cfg.KeyMode == config.SessionKeyHost {
		return config.SessionKeyHost
	}
	return config.SessionKeyAddr
}

// clientKey identifies the peer in the shared tables.
func (s *Server) clientKey(addr net.Addr) string {
	if s.keyMode() == config.SessionKeyHost {
		return ratelimit.HostOf(addr.String())
	}
	return addr.String()
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	remote := conn.RemoteAddr().String()
	if s.admission != nil && !s.admission.Allow(remote) {
		metrics.IncConnectionRejected("rate_limited")
		s.logger.Warn().
			Str(log.FieldEvent, "server.rejected").
			Str(log.FieldClientAddr, remote).
			Msg("connection rate exceeded")
		_ = conn.Close()
		return
	}

	key := s.clientKey(conn.RemoteAddr())
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a := &active{
		sess:   session.New(conn, key, s.cfg.Session, s.deps),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	defer close(a.done)

	s.register(key, a)
	defer s.unregister(key, a)

	if err := a.sess.Run(sctx); err != nil {
		s.logger.Debug().Err(err).Str(log.FieldClientKey, key).Msg("session ended with error")
	}
}

// register records a as the session for key. A previous session under the
// same key is cancelled and awaited first so its eviction cannot race the
// new session's state.
func (s *Server) register(key string, a *active) {
	s.mu.Lock()
	prev := s.sessions[key]
	s.sessions[key] = a
	s.mu.Unlock()

	if prev != nil {
		s.logger.Info().
			Str(log.FieldEvent, "server.replaced").
			Str(log.FieldClientKey, key).
			Msg("client reconnected; closing previous session")
		prev.cancel()
		<-prev.done
	}
}

func (s *Server) unregister(key string, a *active) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[key] == a {
		delete(s.sessions, key)
	}
}
