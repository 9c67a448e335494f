// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package server

import (
	"bytes"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/ManuGH/streamconnect/internal/catalog"
	"github.com/ManuGH/streamconnect/internal/config"
	"github.com/ManuGH/streamconnect/internal/playback"
	"github.com/ManuGH/streamconnect/internal/playlist"
	"github.com/ManuGH/streamconnect/internal/protocol"
	"github.com/ManuGH/streamconnect/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type staticCatalog struct {
	entries []catalog.Entry
	data    map[string][]byte
}

func (c *staticCatalog) Refresh(context.Context, string) ([]catalog.Entry, error) {
	return c.entries, nil
}

func (c *staticCatalog) Entries() []catalog.Entry { return c.entries }

func (c *staticCatalog) FindByID(id string) (catalog.Entry, error) {
	for _, e := range c.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return catalog.Entry{}, catalog.ErrNotFound
}

func (c *staticCatalog) Open(_ context.Context, e catalog.Entry) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(c.data[e.ID])), nil
}

func newCatalog() *staticCatalog {
	data := bytes.Repeat([]byte{7}, 4096)
	return &staticCatalog{
		entries: []catalog.Entry{{ID: "v1", Title: "one.mp4", RootID: "storage1", SizeBytes: int64(len(data)), DurationSeconds: 4}},
		data:    map[string][]byte{"v1": data},
	}
}

type fixture struct {
	srv    *Server
	deps   session.Deps
	cancel context.CancelFunc
	done   chan error
}

func serve(t *testing.T, cfg Config) *fixture {
	t.Helper()
	cat := newCatalog()
	deps := session.Deps{
		Catalog:   cat,
		States:    playback.NewTable(),
		Playlists: playlist.NewStore(cat),
	}
	if cfg.Session.ChunkSize == 0 {
		cfg.Session.ChunkSize = 1024
	}
	cfg.Session.WriteTimeout = 5 * time.Second

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	f := &fixture{srv: New(cfg, deps), deps: deps, cancel: cancel, done: make(chan error, 1)}
	go func() { f.done <- f.srv.Serve(ctx, ln) }()
	<-f.srv.Ready()
	return f
}

func (f *fixture) stop(t *testing.T) {
	t.Helper()
	f.cancel()
	select {
	case err := <-f.done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func dial(t *testing.T, f *fixture) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", f.srv.Addr().String(), 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn net.Conn, within time.Duration) (protocol.Frame, error) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(within)))
	return protocol.ReadFrame(conn)
}

func TestServer_StreamsOverTCP(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := serve(t, Config{})
	conn := dial(t, f)

	fr, err := readFrame(t, conn, 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, protocol.KindCatalog, fr.Kind)
	items, err := protocol.DecodeCatalog(fr.Payload)
	require.NoError(t, err)
	require.Len(t, items, 1)

	w := protocol.NewWriter(conn)
	require.NoError(t, w.Command("STREAM:v1"))

	fr, err = readFrame(t, conn, 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, protocol.KindVideoStart, fr.Kind)

	var progress []float64
	for {
		fr, err = readFrame(t, conn, 2*time.Second)
		require.NoError(t, err)
		if fr.Kind != protocol.KindVideoChunk {
			break
		}
		chunk, err := protocol.DecodeVideoChunk(fr.Payload)
		require.NoError(t, err)
		progress = append(progress, chunk.Progress)
	}
	assert.Equal(t, protocol.KindVideoEnd, fr.Kind)
	assert.Equal(t, []float64{1, 2, 3, 4}, progress)

	require.Eventually(t, func() bool { return len(f.srv.Sessions()) == 1 }, 2*time.Second, 10*time.Millisecond)
	info := f.srv.Sessions()[0]
	assert.Equal(t, conn.LocalAddr().String(), info.Client)
	require.NotNil(t, info.Playback)
	assert.Equal(t, "v1", info.Playback.VideoID)

	require.NoError(t, w.Command("EXIT"))
	_, err = readFrame(t, conn, 2*time.Second)
	assert.Error(t, err)

	require.Eventually(t, func() bool { return len(f.srv.Sessions()) == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, f.deps.States.Len())
	f.stop(t)
}

func TestServer_ShutdownClosesSessions(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := serve(t, Config{})
	conn := dial(t, f)
	_, err := readFrame(t, conn, 2*time.Second)
	require.NoError(t, err)

	f.stop(t)
	_, err = readFrame(t, conn, 2*time.Second)
	assert.Error(t, err)
}

func TestServer_MaxConnections(t *testing.T) {
	f := serve(t, Config{MaxConnections: 1})
	defer f.stop(t)

	first := dial(t, f)
	_, err := readFrame(t, first, 2*time.Second)
	require.NoError(t, err)

	second := dial(t, f)
	_, err = readFrame(t, second, 200*time.Millisecond)
	var ne net.Error
	require.ErrorAs(t, err, &ne)
	assert.True(t, ne.Timeout(), "second client must wait for a free slot")

	require.NoError(t, first.Close())
	fr, err := readFrame(t, second, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, protocol.KindCatalog, fr.Kind)
}

func TestServer_RejectsConnectionBursts(t *testing.T) {
	f := serve(t, Config{ConnectRate: 0.001, ConnectBurst: 1})
	defer f.stop(t)

	first := dial(t, f)
	_, err := readFrame(t, first, 2*time.Second)
	require.NoError(t, err)

	second := dial(t, f)
	_, err = readFrame(t, second, 2*time.Second)
	assert.ErrorIs(t, err, io.EOF)
}

func TestServer_HostKeyReplacesPreviousSession(t *testing.T) {
	f := serve(t, Config{KeyMode: config.SessionKeyHost})
	defer f.stop(t)

	first := dial(t, f)
	_, err := readFrame(t, first, 2*time.Second)
	require.NoError(t, err)
	w := protocol.NewWriter(first)
	require.NoError(t, w.Command("CREATE_PLAYLIST:fav"))
	fr, err := readFrame(t, first, 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, "PLAYLIST_CREATED:fav", string(fr.Payload))

	second := dial(t, f)
	fr, err = readFrame(t, second, 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, protocol.KindCatalog, fr.Kind)

	_, err = readFrame(t, first, 2*time.Second)
	assert.Error(t, err, "previous session must be closed")

	w2 := protocol.NewWriter(second)
	require.NoError(t, w2.Command("LIST_PLAYLISTS"))
	fr, err = readFrame(t, second, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "PLAYLISTS:", string(fr.Payload))

	sessions := f.srv.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "127.0.0.1", sessions[0].Client)
}

func TestFromAppConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.ListenAddr = ":9000"
	cfg.ChunkSize = 4096
	cfg.Session.MaxConnections = 8

	got := FromAppConfig(cfg)
	assert.Equal(t, ":9000", got.ListenAddr)
	assert.Equal(t, 8, got.MaxConnections)
	assert.Equal(t, 4096, got.Session.ChunkSize)
	assert.Equal(t, cfg.Pacing.ChunkInterval, got.Session.ChunkInterval)
	assert.True(t, got.Session.RefreshOnConnect)
}
