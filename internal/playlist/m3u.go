// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playlist

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/ManuGH/streamconnect/internal/catalog"
)

// WriteM3U renders p as an extended M3U playlist. urlFor maps each video to
// the location written on its line.
func WriteM3U(w io.Writer, p Playlist, urlFor func(catalog.Entry) string) error {
	buf := &bytes.Buffer{}
	buf.WriteString("#EXTM3U\n")
	fmt.Fprintf(buf, "#PLAYLIST:%s\n", sanitize(p.Name))
	for _, v := range p.Videos {
		secs := -1
		if v.DurationSeconds > 0 {
			secs = int(math.Round(v.DurationSeconds))
		}
		fmt.Fprintf(buf, "#EXTINF:%d,%s\n", secs, sanitize(v.Title))
		buf.WriteString(sanitize(urlFor(v)))
		buf.WriteByte('\n')
	}
	_, err := io.Copy(w, buf)
	return err
}

// sanitize keeps a value on one line.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return ' '
		}
		return r
	}, s)
}
