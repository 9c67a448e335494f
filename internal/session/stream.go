// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ManuGH/streamconnect/internal/log"
	"github.com/ManuGH/streamconnect/internal/metrics"
	"github.com/ManuGH/streamconnect/internal/playback"
	"github.com/ManuGH/streamconnect/internal/protocol"
	"github.com/ManuGH/streamconnect/internal/telemetry"
	"go.opentelemetry.io/otel/trace"
)

// Stream outcomes.
const (
	streamComplete  = "complete"
	streamStopped   = "stopped"
	streamChanged   = "changed"
	streamNotFound  = "not_found"
	streamReadError = "read_error"
	streamTruncated = "truncated"
	streamAborted   = "aborted"
)

// Reasons carried in VIDEO_ERROR frames.
const (
	reasonNotFound    = "video not found"
	reasonUnavailable = "video unavailable"
	reasonReadFailed  = "read failed"
	reasonTruncated   = "source shorter than catalog size"
)

// verdict is what an in-stream command asks the chunk loop to do.
type verdict int

const (
	keepGoing verdict = iota
	changeVideo
	stopVideo
)

// stream transfers video id. It returns a follow-up command when the
// client interrupted the transfer with another STREAM request. Errors are
// fatal to the session; per-video failures are reported with VIDEO_ERROR.
func (s *Session) stream(ctx context.Context, id string) (*protocol.Command, error) {
	op := string(protocol.OpStream)
	logger := s.logger.With().Str(log.FieldVideoID, id).Logger()

	entry, err := s.deps.Catalog.FindByID(id)
	if err != nil {
		metrics.IncCommand(op, streamNotFound)
		metrics.IncStream(streamNotFound)
		logger.Info().Str(log.FieldEvent, "stream.not_found").Msg("requested video is not in the catalog")
		return nil, s.w.VideoError(reasonNotFound)
	}

	ctx, span := s.tracer.Start(ctx, "stream",
		trace.WithAttributes(telemetry.StreamAttributes(entry.ID, entry.SizeBytes, entry.DurationSeconds)...))
	defer span.End()

	rc, err := s.deps.Catalog.Open(ctx, entry)
	if err != nil {
		metrics.IncCommand(op, streamReadError)
		metrics.IncStream(streamReadError)
		telemetry.RecordError(span, err, streamReadError)
		logger.Warn().Err(err).Str(log.FieldEvent, "stream.open_failed").Msg("failed to open video")
		return nil, s.w.VideoError(reasonUnavailable)
	}
	defer func() { _ = rc.Close() }()

	st := playback.NewState(entry.ID, entry.SizeBytes, entry.DurationSeconds)
	s.deps.States.Replace(s.key, st)
	s.current.Store(st)
	metrics.IncCommand(op, "ok")

	if err := s.w.VideoStart(protocol.VideoStart{
		ID:       entry.ID,
		FileSize: entry.SizeBytes,
		Duration: entry.DurationSeconds,
	}); err != nil {
		return nil, err
	}
	s.setState(StateStreaming)
	defer s.setState(StateAwaiting)

	logger.Info().
		Str(log.FieldEvent, "stream.start").
		Int64(log.FieldFileSize, entry.SizeBytes).
		Float64("duration_seconds", entry.DurationSeconds).
		Msg("stream started")

	var (
		src     = io.LimitReader(rc, entry.SizeBytes)
		read    int64
		chunks  int
		outcome = streamAborted
		next    *protocol.Command
	)
	defer func() {
		metrics.IncStream(outcome)
		span.SetAttributes(telemetry.StreamResultAttributes(outcome, chunks, st.BytesSent())...)
		logger.Info().
			Str(log.FieldEvent, "stream.end").
			Str(log.FieldOutcome, outcome).
			Int(log.FieldChunks, chunks).
			Int64(log.FieldBytesSent, st.BytesSent()).
			Msg("stream finished")
	}()

	for {
		n, rerr := io.ReadFull(src, s.buf)
		read += int64(n)

		if n > 0 {
			// A paused stream keeps its read position and waits here.
			for st.IsPaused() {
				cmd, err := s.next(ctx)
				if err != nil {
					return nil, err
				}
				v, follow, err := s.interrupt(ctx, st, cmd)
				if err != nil {
					return nil, err
				}
				if v != keepGoing {
					outcome, next = s.finish(st, v, follow)
					return next, s.conclude(v)
				}
			}
			s.setState(StateStreaming)
			if st.IsStopped() {
				outcome = streamStopped
				return nil, s.w.VideoEnd()
			}

			progress := st.UpdateBytesSent(int64(n))
			began := time.Now()
			if err := s.w.VideoChunk(s.buf[:n], progress); err != nil {
				return nil, err
			}
			metrics.ObserveChunk(n, time.Since(began))
			chunks++

			if err := s.pacer.Wait(ctx, n); err != nil {
				return nil, err
			}

			for {
				cmd, ok, err := s.poll()
				if err != nil {
					return nil, err
				}
				if !ok {
					break
				}
				v, follow, err := s.interrupt(ctx, st, cmd)
				if err != nil {
					return nil, err
				}
				if v != keepGoing {
					outcome, next = s.finish(st, v, follow)
					return next, s.conclude(v)
				}
			}
		}

		switch {
		case rerr == nil:
			continue
		case errors.Is(rerr, io.EOF), errors.Is(rerr, io.ErrUnexpectedEOF):
			st.Stop()
			if read < entry.SizeBytes {
				outcome = streamTruncated
				logger.Warn().
					Str(log.FieldEvent, "stream.truncated").
					Int64("read", read).
					Msg("video source ended early")
				return nil, s.w.VideoError(reasonTruncated)
			}
			outcome = streamComplete
			return nil, s.w.VideoEnd()
		default:
			st.Stop()
			outcome = streamReadError
			telemetry.RecordError(span, rerr, streamReadError)
			logger.Warn().Err(rerr).Str(log.FieldEvent, "stream.read_failed").Msg("failed to read video")
			return nil, s.w.VideoError(reasonReadFailed)
		}
	}
}

// interrupt applies a command received while a stream is active. follow
// is set when the command is a STREAM request to run after this stream.
func (s *Session) interrupt(ctx context.Context, st *playback.State, cmd protocol.Command) (verdict, *protocol.Command, error) {
	s.logger.Debug().
		Str(log.FieldCommand, cmd.String()).
		Bool("control", cmd.Interrupts()).
		Msg("command received mid-stream")

	if !cmd.Interrupts() {
		if cmd.Op == protocol.OpExit {
			metrics.IncCommand(string(cmd.Op), "ok")
			return keepGoing, nil, errClientExit
		}
		return keepGoing, nil, s.answer(ctx, cmd)
	}

	switch cmd.Op {
	case protocol.OpPause:
		s.setState(StatePaused)
		return keepGoing, nil, s.control(cmd, st)
	case protocol.OpResume:
		s.setState(StateStreaming)
		return keepGoing, nil, s.control(cmd, st)
	case protocol.OpStop:
		return stopVideo, nil, s.control(cmd, st)
	case protocol.OpChangeVideo:
		metrics.IncCommand(string(cmd.Op), "ok")
		return changeVideo, nil, nil
	default:
		return changeVideo, &cmd, nil
	}
}

// finish ends playback of st and reports the stream outcome.
func (s *Session) finish(st *playback.State, v verdict, follow *protocol.Command) (string, *protocol.Command) {
	st.Stop()
	if v == stopVideo {
		return streamStopped, nil
	}
	return streamChanged, follow
}

// conclude writes the frame that terminates an interrupted stream.
func (s *Session) conclude(v verdict) error {
	switch v {
	case stopVideo:
		return s.w.VideoEnd()
	case changeVideo:
		return s.w.VideoChange()
	default:
		return fmt.Errorf("unexpected verdict %d", v)
	}
}
