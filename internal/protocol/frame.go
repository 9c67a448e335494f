// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// Version is the only frame version this package speaks.
	Version uint8 = 1

	// MaxFrameSize bounds the payload of a single frame.
	MaxFrameSize = 32 << 20
	// MaxCommandSize bounds the payload of a client COMMAND frame.
	MaxCommandSize = 4 << 10

	headerSize = 6
)

var (
	ErrMalformed       = errors.New("protocol: malformed frame")
	ErrFrameTooLarge   = errors.New("protocol: frame too large")
	ErrVersionMismatch = errors.New("protocol: version mismatch")
	ErrUnknownCommand  = errors.New("protocol: unknown command")
)

// Kind tags the payload schema of a frame.
type Kind uint8

const (
	KindCommand     Kind = 0x01
	KindCatalog     Kind = 0x10
	KindReply       Kind = 0x11
	KindPlaylist    Kind = 0x12
	KindVideoStart  Kind = 0x20
	KindVideoChunk  Kind = 0x21
	KindVideoEnd    Kind = 0x22
	KindVideoChange Kind = 0x23
	KindVideoError  Kind = 0x24
)

var kindNames = map[Kind]string{
	KindCommand:     "COMMAND",
	KindCatalog:     "CATALOG",
	KindReply:       "REPLY",
	KindPlaylist:    "PLAYLIST",
	KindVideoStart:  "VIDEO_START",
	KindVideoChunk:  "VIDEO_CHUNK",
	KindVideoEnd:    "VIDEO_END",
	KindVideoChange: "VIDEO_CHANGE",
	KindVideoError:  "VIDEO_ERROR",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("KIND(0x%02x)", uint8(k))
}

// Valid reports whether k is a known frame kind.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// Frame is one decoded message.
type Frame struct {
	Kind    Kind
	Payload []byte
}

// ReadFrame reads exactly one frame from r. A clean end of stream before the
// header yields io.EOF; anything else that stops short is ErrMalformed.
func ReadFrame(r io.Reader) (Frame, error) {
	return ReadFrameLimit(r, MaxFrameSize)
}

// ReadFrameLimit is ReadFrame with a payload bound of limit bytes, checked
// before the payload is allocated.
func ReadFrameLimit(r io.Reader, limit uint32) (Frame, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Frame{}, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, fmt.Errorf("%w: truncated header", ErrMalformed)
		}
		return Frame{}, err
	}

	if hdr[0] != Version {
		return Frame{}, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, hdr[0], Version)
	}
	kind := Kind(hdr[1])
	if !kind.Valid() {
		return Frame{}, fmt.Errorf("%w: unknown kind 0x%02x", ErrMalformed, hdr[1])
	}
	n := binary.BigEndian.Uint32(hdr[2:])
	if n > limit || n > MaxFrameSize {
		return Frame{}, fmt.Errorf("%w: %s of %d bytes", ErrFrameTooLarge, kind, n)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, fmt.Errorf("%w: truncated %s payload", ErrMalformed, kind)
		}
		return Frame{}, err
	}
	return Frame{Kind: kind, Payload: payload}, nil
}

// appendHeader appends a frame header for a payload of n bytes.
func appendHeader(dst []byte, kind Kind, n int) []byte {
	dst = append(dst, Version, byte(kind))
	return binary.BigEndian.AppendUint32(dst, uint32(n))
}

// WriteFrame writes one frame to w with a single Write call.
func WriteFrame(w io.Writer, kind Kind, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}
	buf := make([]byte, 0, headerSize+len(payload))
	buf = appendHeader(buf, kind, len(payload))
	buf = append(buf, payload...)
	_, err := w.Write(buf)
	return err
}
