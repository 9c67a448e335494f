// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package protocol

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
)

// Writer encodes typed messages onto an underlying stream. Each message is
// handed to the stream in a single Write call. A Writer is not safe for
// concurrent use.
type Writer struct {
	w   io.Writer
	buf []byte
}

// NewWriter returns a Writer emitting frames to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) frame(kind Kind, payload []byte) error {
	return WriteFrame(w.w, kind, payload)
}

// Command sends a client command string.
func (w *Writer) Command(cmd string) error {
	return w.frame(KindCommand, []byte(cmd))
}

// Catalog sends the full listing. A nil slice is sent as an empty array.
func (w *Writer) Catalog(items []CatalogItem) error {
	if items == nil {
		items = []CatalogItem{}
	}
	p, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	return w.frame(KindCatalog, p)
}

// Reply sends a reply token such as VIDEO_PAUSED.
func (w *Writer) Reply(token string) error {
	return w.frame(KindReply, []byte(token))
}

// Playlist sends a rendered playlist.
func (w *Writer) Playlist(v PlaylistView) error {
	if v.Videos == nil {
		v.Videos = []CatalogItem{}
	}
	p, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode playlist: %w", err)
	}
	return w.frame(KindPlaylist, p)
}

// VideoStart announces a stream.
func (w *Writer) VideoStart(v VideoStart) error {
	p, err := EncodeVideoStart(v)
	if err != nil {
		return err
	}
	return w.frame(KindVideoStart, p)
}

// VideoChunk sends one block of video data. The frame is assembled in a
// buffer reused across calls.
func (w *Writer) VideoChunk(data []byte, progress float64) error {
	size := chunkPayloadSize(len(data))
	if size > MaxFrameSize {
		return fmt.Errorf("%w: chunk of %d bytes", ErrFrameTooLarge, len(data))
	}
	buf := w.buf[:0]
	buf = appendHeader(buf, KindVideoChunk, size)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(data)))
	buf = append(buf, data...)
	buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(progress))
	w.buf = buf
	_, err := w.w.Write(buf)
	return err
}

// VideoEnd closes a stream that ran to completion or was stopped.
func (w *Writer) VideoEnd() error {
	return w.frame(KindVideoEnd, nil)
}

// VideoChange closes a stream interrupted by a change request.
func (w *Writer) VideoChange() error {
	return w.frame(KindVideoChange, nil)
}

// VideoError reports a failed stream.
func (w *Writer) VideoError(reason string) error {
	return w.frame(KindVideoError, []byte(reason))
}
