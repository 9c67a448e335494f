// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playlist

import (
	"strings"
	"testing"

	"github.com/ManuGH/streamconnect/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteM3U(t *testing.T) {
	p := Playlist{Name: "fav", Videos: []catalog.Entry{
		{ID: "v1", Title: "a.mp4", DurationSeconds: 29.6},
		{ID: "v2", Title: "line\nbreak.mp4"},
	}}

	var b strings.Builder
	require.NoError(t, WriteM3U(&b, p, func(e catalog.Entry) string { return "streamd://host:5058/" + e.ID }))

	want := "#EXTM3U\n" +
		"#PLAYLIST:fav\n" +
		"#EXTINF:30,a.mp4\n" +
		"streamd://host:5058/v1\n" +
		"#EXTINF:-1,line break.mp4\n" +
		"streamd://host:5058/v2\n"
	assert.Equal(t, want, b.String())
}

func FuzzWriteM3U(f *testing.F) {
	f.Add("fav", "Channel 1", "v1", 12.5)
	f.Add("", "", "", 0.0)
	f.Add("Unicode Тест", "a\r\nb", "id", -3.0)

	f.Fuzz(func(t *testing.T, name, title, id string, dur float64) {
		p := Playlist{Name: name, Videos: []catalog.Entry{{ID: id, Title: title, DurationSeconds: dur}}}
		var b strings.Builder
		if err := WriteM3U(&b, p, func(e catalog.Entry) string { return "streamd:///" + e.ID }); err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(b.String(), "#EXTM3U\n") {
			t.Fatal("missing header")
		}
		if got := strings.Count(b.String(), "\n"); got != 4 {
			t.Fatalf("expected 4 lines, got %d", got)
		}
	})
}
