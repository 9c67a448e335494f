// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package protocol

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
)

// CatalogItem is the client-visible form of a catalog entry. Server paths
// are never exposed.
type CatalogItem struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	RootID          string  `json:"root_id"`
	SizeBytes       int64   `json:"size_bytes"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// PlaylistView is the payload of a PLAYLIST frame.
type PlaylistView struct {
	Name   string        `json:"name"`
	Videos []CatalogItem `json:"videos"`
	Text   string        `json:"text"`
}

// VideoStart announces a stream.
type VideoStart struct {
	ID       string
	FileSize int64
	Duration float64
}

// VideoChunk carries one block of video bytes and the playback position
// reached after it.
type VideoChunk struct {
	Data     []byte
	Progress float64
}

// EncodeVideoStart renders idLen:uint16 | id | fileSize:int64 | duration:float64.
func EncodeVideoStart(v VideoStart) ([]byte, error) {
	if len(v.ID) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: video id too long", ErrMalformed)
	}
	buf := make([]byte, 0, 2+len(v.ID)+16)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(v.ID)))
	buf = append(buf, v.ID...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(v.FileSize))
	buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(v.Duration))
	return buf, nil
}

// DecodeVideoStart parses a VIDEO_START payload.
func DecodeVideoStart(p []byte) (VideoStart, error) {
	if len(p) < 2 {
		return VideoStart{}, fmt.Errorf("%w: short VIDEO_START", ErrMalformed)
	}
	n := int(binary.BigEndian.Uint16(p))
	if len(p) != 2+n+16 {
		return VideoStart{}, fmt.Errorf("%w: VIDEO_START length %d", ErrMalformed, len(p))
	}
	rest := p[2+n:]
	return VideoStart{
		ID:       string(p[2 : 2+n]),
		FileSize: int64(binary.BigEndian.Uint64(rest)),
		Duration: math.Float64frombits(binary.BigEndian.Uint64(rest[8:])),
	}, nil
}

// chunkPayloadSize is the VIDEO_CHUNK payload length for n data bytes.
func chunkPayloadSize(n int) int { return 4 + n + 8 }

// DecodeVideoChunk parses a VIDEO_CHUNK payload. Data aliases p.
func DecodeVideoChunk(p []byte) (VideoChunk, error) {
	if len(p) < 12 {
		return VideoChunk{}, fmt.Errorf("%w: short VIDEO_CHUNK", ErrMalformed)
	}
	n := int(binary.BigEndian.Uint32(p))
	if len(p) != chunkPayloadSize(n) {
		return VideoChunk{}, fmt.Errorf("%w: VIDEO_CHUNK count %d with %d byte payload", ErrMalformed, n, len(p))
	}
	return VideoChunk{
		Data:     p[4 : 4+n],
		Progress: math.Float64frombits(binary.BigEndian.Uint64(p[4+n:])),
	}, nil
}

// DecodeCatalog parses a CATALOG payload.
func DecodeCatalog(p []byte) ([]CatalogItem, error) {
	var items []CatalogItem
	if err := json.Unmarshal(p, &items); err != nil {
		return nil, fmt.Errorf("%w: catalog: %v", ErrMalformed, err)
	}
	return items, nil
}

// DecodePlaylist parses a PLAYLIST payload.
func DecodePlaylist(p []byte) (PlaylistView, error) {
	var v PlaylistView
	if err := json.Unmarshal(p, &v); err != nil {
		return PlaylistView{}, fmt.Errorf("%w: playlist: %v", ErrMalformed, err)
	}
	return v, nil
}
