// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_RoundTripsTypedMessages(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.Catalog([]CatalogItem{{ID: "v1", Title: "a.mp4", RootID: "storage1", SizeBytes: 3, DurationSeconds: 1.5}}))
	require.NoError(t, w.VideoStart(VideoStart{ID: "v1", FileSize: 3000000, Duration: 30}))
	require.NoError(t, w.VideoChunk([]byte("abc"), 10))
	require.NoError(t, w.VideoChunk([]byte("z"), 20))
	require.NoError(t, w.VideoEnd())
	require.NoError(t, w.Reply(ReplyVideoPaused))
	require.NoError(t, w.Playlist(PlaylistView{Name: "fav", Text: "Playlist: fav\n"}))

	f, err := ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, KindCatalog, f.Kind)
	items, err := DecodeCatalog(f.Payload)
	require.NoError(t, err)
	assert.Equal(t, []CatalogItem{{ID: "v1", Title: "a.mp4", RootID: "storage1", SizeBytes: 3, DurationSeconds: 1.5}}, items)

	f, err = ReadFrame(&buf)
	require.NoError(t, err)
	start, err := DecodeVideoStart(f.Payload)
	require.NoError(t, err)
	assert.Equal(t, VideoStart{ID: "v1", FileSize: 3000000, Duration: 30}, start)

	f, err = ReadFrame(&buf)
	require.NoError(t, err)
	chunk, err := DecodeVideoChunk(f.Payload)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), chunk.Data)
	assert.Equal(t, 10.0, chunk.Progress)

	// The reused buffer must not leak the previous chunk.
	f, err = ReadFrame(&buf)
	require.NoError(t, err)
	chunk, err = DecodeVideoChunk(f.Payload)
	require.NoError(t, err)
	assert.Equal(t, []byte("z"), chunk.Data)
	assert.Equal(t, 20.0, chunk.Progress)

	f, err = ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, KindVideoEnd, f.Kind)
	assert.Empty(t, f.Payload)

	f, err = ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, Frame{Kind: KindReply, Payload: []byte(ReplyVideoPaused)}, f)

	f, err = ReadFrame(&buf)
	require.NoError(t, err)
	view, err := DecodePlaylist(f.Payload)
	require.NoError(t, err)
	assert.Equal(t, "fav", view.Name)
	assert.Empty(t, view.Videos)

	_, err = ReadFrame(&buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadFrame_Violations(t *testing.T) {
	header := func(version, kind byte, n uint32) []byte {
		b := []byte{version, kind}
		return binary.BigEndian.AppendUint32(b, n)
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"version mismatch", header(2, byte(KindCommand), 0), ErrVersionMismatch},
		{"unknown kind", header(Version, 0x7f, 0), ErrMalformed},
		{"too large", header(Version, byte(KindCommand), MaxFrameSize+1), ErrFrameTooLarge},
		{"truncated header", []byte{Version, byte(KindCommand)}, ErrMalformed},
		{"truncated payload", append(header(Version, byte(KindCommand), 10), 'S'), ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadFrame(bytes.NewReader(tt.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestReadFrameLimit(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, KindCommand, bytes.Repeat([]byte{'A'}, MaxCommandSize)))
	f, err := ReadFrameLimit(&buf, MaxCommandSize)
	require.NoError(t, err)
	assert.Len(t, f.Payload, MaxCommandSize)

	buf.Reset()
	require.NoError(t, WriteFrame(&buf, KindCommand, bytes.Repeat([]byte{'A'}, MaxCommandSize+1)))
	_, err = ReadFrameLimit(&buf, MaxCommandSize)
	assert.ErrorIs(t, err, ErrFrameTooLarge)

	// The bound is checked from the header alone.
	hdr := binary.BigEndian.AppendUint32([]byte{Version, byte(KindCommand)}, MaxFrameSize)
	_, err = ReadFrameLimit(bytes.NewReader(hdr), MaxCommandSize)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestDecodeVideoChunk_RejectsBadCount(t *testing.T) {
	p := binary.BigEndian.AppendUint32(nil, 100)
	p = append(p, make([]byte, 8+3)...)
	_, err := DecodeVideoChunk(p)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "VIDEO_CHUNK", KindVideoChunk.String())
	assert.Equal(t, "KIND(0x7f)", Kind(0x7f).String())
}
