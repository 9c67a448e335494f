// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package session runs one client connection: it sends the catalog, reads
// commands and drives chunked video transfers.
//
// A reader goroutine decodes COMMAND frames into a bounded channel. The
// session goroutine is the only writer to the connection and the only one
// that applies commands, so pause, resume and stop are ordered with respect
// to chunk emission. Between chunks the channel is polled without blocking;
// while paused or awaiting a command the session blocks on it.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ManuGH/streamconnect/internal/catalog"
	"github.com/ManuGH/streamconnect/internal/log"
	"github.com/ManuGH/streamconnect/internal/metrics"
	"github.com/ManuGH/streamconnect/internal/playback"
	"github.com/ManuGH/streamconnect/internal/playlist"
	"github.com/ManuGH/streamconnect/internal/protocol"
	"github.com/ManuGH/streamconnect/internal/ratelimit"
	"github.com/ManuGH/streamconnect/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Protocol states.
const (
	StateIdle      = "idle"
	StateAwaiting  = "awaiting_command"
	StateStreaming = "streaming"
	StatePaused    = "paused"
	StateClosed    = "closed"
)

// Session outcomes, used in logs and metrics.
const (
	OutcomeClientExit        = "client_exit"
	OutcomeDisconnect        = "disconnect"
	OutcomeProtocolViolation = "protocol_violation"
	OutcomeSocketError       = "socket_error"
	OutcomeShutdown          = "shutdown"
	OutcomePanic             = "panic"
)

var (
	errClientExit = errors.New("client requested exit")
	errClientGone = errors.New("client closed the connection")
)

// Catalog is the read side of the video catalog a session needs.
type Catalog interface {
	Refresh(ctx context.Context, trigger string) ([]catalog.Entry, error)
	Entries() []catalog.Entry
	FindByID(id string) (catalog.Entry, error)
	Open(ctx context.Context, e catalog.Entry) (io.ReadCloser, error)
}

// Config tunes a session.
type Config struct {
	ChunkSize         int
	CommandBuffer     int
	WriteTimeout      time.Duration
	ChunkInterval     time.Duration
	MaxBytesPerSecond int
	RefreshOnConnect  bool
}

// Deps are the shared components a session works against.
type Deps struct {
	Catalog   Catalog
	States    *playback.Table
	Playlists *playlist.Store
}

type input struct {
	cmd protocol.Command
	err error
}

// Session owns one client connection.
type Session struct {
	id        string
	key       string
	conn      net.Conn
	cfg       Config
	deps      Deps
	startedAt time.Time

	w      *protocol.Writer
	cmds   chan input
	pacer  *ratelimit.Pacer
	buf    []byte
	logger zerolog.Logger
	tracer trace.Tracer

	state   atomic.Value // string
	current atomic.Pointer[playback.State]
	outcome string
}

// New prepares a session for conn. key identifies the client in the shared
// playback and playlist tables.
func New(conn net.Conn, key string, cfg Config, deps Deps) *Session {
	if cfg.CommandBuffer <= 0 {
		cfg.CommandBuffer = 16
	}
	id := uuid.NewString()
	s := &Session{
		id:        id,
		key:       key,
		conn:      conn,
		cfg:       cfg,
		deps:      deps,
		startedAt: time.Now(),
		cmds:      make(chan input, cfg.CommandBuffer),
		pacer:     ratelimit.NewPacer(cfg.ChunkInterval, cfg.MaxBytesPerSecond, cfg.ChunkSize),
		buf:       make([]byte, cfg.ChunkSize),
		logger: log.WithComponent("session").With().
			Str(log.FieldSessionID, id).
			Str(log.FieldClientAddr, conn.RemoteAddr().String()).
			Str(log.FieldClientKey, key).
			Logger(),
		tracer: telemetry.Tracer("streamd/session"),
	}
	s.w = protocol.NewWriter(deadlineWriter{conn: conn, timeout: cfg.WriteTimeout})
	s.state.Store(StateIdle)
	return s
}

func (s *Session) ID() string           { return s.id }
func (s *Session) Key() string          { return s.key }
func (s *Session) RemoteAddr() string   { return s.conn.RemoteAddr().String() }
func (s *Session) StartedAt() time.Time { return s.startedAt }
func (s *Session) State() string        { return s.state.Load().(string) }

// Info is a point-in-time view of a session for operators.
type Info struct {
	ID         string             `json:"id"`
	Client     string             `json:"client"`
	RemoteAddr string             `json:"remote_addr"`
	State      string             `json:"state"`
	StartedAt  time.Time          `json:"started_at"`
	Playback   *playback.Snapshot `json:"playback,omitempty"`
}

// Info reports the session's current state.
func (s *Session) Info() Info {
	info := Info{
		ID:         s.id,
		Client:     s.key,
		RemoteAddr: s.RemoteAddr(),
		State:      s.State(),
		StartedAt:  s.startedAt,
	}
	if st := s.current.Load(); st != nil {
		snap := st.Snapshot()
		info.Playback = &snap
	}
	return info
}

func (s *Session) setState(next string) {
	prev := s.state.Swap(next)
	if prev != next {
		s.logger.Debug().
			Str(log.FieldOldState, fmt.Sprint(prev)).
			Str(log.FieldNewState, next).
			Msg("session state change")
	}
}

// Run serves the connection until the client exits, disconnects, violates
// the protocol or ctx is cancelled. The connection is closed and the
// client's playback state and playlists are evicted on return. A panic is
// recovered and returned as an error.
func (s *Session) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	stopClose := context.AfterFunc(ctx, func() { _ = s.conn.Close() })

	ctx = log.ContextWithSessionID(ctx, s.id)
	ctx = log.ContextWithClientAddr(ctx, s.RemoteAddr())
	ctx, span := s.tracer.Start(ctx, "session",
		trace.WithAttributes(
			attribute.String(telemetry.SessionIDKey, s.id),
			attribute.String(telemetry.ClientKeyKey, s.key),
		))

	readerDone := make(chan struct{})
	metrics.SessionStarted()
	s.logger.Info().Str(log.FieldEvent, "session.open").Msg("client connected")

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("session panic: %v", r)
			s.outcome = OutcomePanic
			s.logger.Error().
				Str(log.FieldEvent, "session.panic").
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("session panicked")
		}

		cancel()
		stopClose()
		_ = s.conn.Close()
		<-readerDone

		s.deps.States.Remove(s.key)
		s.deps.Playlists.RemoveClient(s.key)
		s.current.Store(nil)
		s.setState(StateClosed)

		metrics.SessionEnded(s.outcome)
		telemetry.RecordError(span, err, s.outcome)
		span.End()

		ev := s.logger.Info()
		if err != nil && s.outcome != OutcomeShutdown {
			ev = s.logger.Warn().Err(err)
		}
		ev.Str(log.FieldEvent, "session.close").
			Str(log.FieldOutcome, s.outcome).
			Dur("duration", time.Since(s.startedAt)).
			Msg("client disconnected")
	}()

	go func() {
		defer close(readerDone)
		s.readLoop(ctx)
	}()

	err = s.serve(ctx)
	s.outcome = classify(ctx, err)
	if s.outcome == OutcomeClientExit || s.outcome == OutcomeDisconnect || s.outcome == OutcomeShutdown {
		err = nil
	}
	return err
}

func (s *Session) serve(ctx context.Context) error {
	if err := s.sendCatalog(ctx, catalog.TriggerConnect, s.cfg.RefreshOnConnect); err != nil {
		return err
	}
	s.setState(StateAwaiting)

	for {
		cmd, err := s.next(ctx)
		if err != nil {
			return err
		}
		for {
			next, err := s.handle(ctx, cmd)
			if err != nil {
				return err
			}
			if next == nil {
				break
			}
			cmd = *next
		}
	}
}

// handle applies a command in the awaiting state. A non-nil command is
// returned when a stream was interrupted by another STREAM request.
func (s *Session) handle(ctx context.Context, cmd protocol.Command) (*protocol.Command, error) {
	s.logger.Debug().Str(log.FieldCommand, cmd.String()).Msg("command received")

	switch cmd.Op {
	case protocol.OpStream:
		return s.stream(ctx, cmd.VideoID)
	case protocol.OpPause, protocol.OpResume, protocol.OpStop:
		st, ok := s.deps.States.Get(s.key)
		if !ok {
			metrics.IncCommand(string(cmd.Op), protocol.ReplyNoActiveVideo)
			return nil, s.w.Reply(protocol.ReplyNoActiveVideo)
		}
		return nil, s.control(cmd, st)
	case protocol.OpChangeVideo:
		metrics.IncCommand(string(cmd.Op), protocol.ReplyNoActiveVideo)
		return nil, s.w.Reply(protocol.ReplyNoActiveVideo)
	case protocol.OpExit:
		metrics.IncCommand(string(cmd.Op), "ok")
		return nil, errClientExit
	default:
		return nil, s.answer(ctx, cmd)
	}
}

// control applies PAUSE, RESUME or STOP to st and acknowledges it.
func (s *Session) control(cmd protocol.Command, st *playback.State) error {
	var reply string
	switch cmd.Op {
	case protocol.OpPause:
		st.Pause()
		reply = protocol.ReplyVideoPaused
	case protocol.OpResume:
		st.Resume()
		reply = protocol.ReplyVideoResumed
	case protocol.OpStop:
		st.Stop()
		reply = protocol.ReplyVideoStopped
	default:
		return fmt.Errorf("%w: %s is not a playback control", protocol.ErrMalformed, cmd.Op)
	}
	metrics.IncCommand(string(cmd.Op), reply)
	return s.w.Reply(reply)
}

// next blocks for the next command.
func (s *Session) next(ctx context.Context) (protocol.Command, error) {
	select {
	case <-ctx.Done():
		return protocol.Command{}, ctx.Err()
	case in, ok := <-s.cmds:
		if !ok {
			return protocol.Command{}, errClientGone
		}
		return in.cmd, in.err
	}
}

// poll returns a pending command without blocking.
func (s *Session) poll() (protocol.Command, bool, error) {
	select {
	case in, ok := <-s.cmds:
		if !ok {
			return protocol.Command{}, false, errClientGone
		}
		return in.cmd, in.err == nil, in.err
	default:
		return protocol.Command{}, false, nil
	}
}

func (s *Session) readLoop(ctx context.Context) {
	defer close(s.cmds)

	for {
		f, err := protocol.ReadFrameLimit(s.conn, protocol.MaxCommandSize)
		if err == nil && f.Kind != protocol.KindCommand {
			err = fmt.Errorf("%w: client sent %s frame", protocol.ErrMalformed, f.Kind)
		}
		var cmd protocol.Command
		if err == nil {
			cmd, err = protocol.ParseCommand(string(f.Payload))
		}
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			select {
			case s.cmds <- input{err: err}:
			case <-ctx.Done():
			}
			return
		}

		select {
		case s.cmds <- input{cmd: cmd}:
		case <-ctx.Done():
			return
		}
	}
}

// classify maps the error that ended serve to an outcome.
func classify(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, errClientExit):
		return OutcomeClientExit
	case ctx.Err() != nil:
		return OutcomeShutdown
	case errors.Is(err, errClientGone),
		errors.Is(err, io.ErrClosedPipe),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ECONNRESET):
		return OutcomeDisconnect
	case errors.Is(err, protocol.ErrUnknownCommand),
		errors.Is(err, protocol.ErrMalformed),
		errors.Is(err, protocol.ErrFrameTooLarge),
		errors.Is(err, protocol.ErrVersionMismatch):
		return OutcomeProtocolViolation
	default:
		return OutcomeSocketError
	}
}

// deadlineWriter applies a fresh write deadline to every frame.
type deadlineWriter struct {
	conn    net.Conn
	timeout time.Duration
}

func (d deadlineWriter) Write(p []byte) (int, error) {
	if d.timeout > 0 {
		if err := d.conn.SetWriteDeadline(time.Now().Add(d.timeout)); err != nil {
			return 0, err
		}
	}
	return d.conn.Write(p)
}
