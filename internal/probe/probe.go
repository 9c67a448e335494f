// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package probe extracts media durations for catalog entries.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/streamconnect/internal/log"
	"github.com/ManuGH/streamconnect/internal/procgroup"
)

// ErrNoDuration is returned when the media carries no usable duration.
var ErrNoDuration = errors.New("probe: no duration")

// Source identifies a media object to probe. Location is a local path or a
// URL ffprobe can open; Size and ModTime distinguish revisions of the same
// location.
type Source struct {
	Location string
	Size     int64
	ModTime  time.Time
}

// Prober returns the duration in seconds of a media object.
type Prober interface {
	Duration(ctx context.Context, src Source) (float64, error)
}

// Nop never finds a duration. It is used when probing is disabled.
type Nop struct{}

func (Nop) Duration(context.Context, Source) (float64, error) { return 0, ErrNoDuration }

// FFprobe runs the ffprobe binary.
type FFprobe struct {
	Bin     string
	Timeout time.Duration
}

// NewFFprobe returns an ffprobe-backed Prober. An empty bin resolves
// "ffprobe" from PATH.
func NewFFprobe(bin string, timeout time.Duration) *FFprobe {
	bin = strings.TrimSpace(bin)
	if bin == "" {
		bin = "ffprobe"
	}
	return &FFprobe{Bin: bin, Timeout: timeout}
}

type formatData struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Duration reads format=duration from ffprobe's JSON output.
func (p *FFprobe) Duration(ctx context.Context, src Source) (float64, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_entries", "format=duration",
		src.Location,
	}

	// A timed-out probe takes its children down with it.
	cmd := procgroup.CommandContext(ctx, p.Bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		errStr := stderr.String()
		if len(errStr) > 1024 {
			errStr = errStr[:1024] + "..."
		}
		return 0, fmt.Errorf("ffprobe failed: %w (stderr: %s)", err, errStr)
	}
	return parseDuration(out)
}

func parseDuration(out []byte) (float64, error) {
	var data formatData
	if err := json.Unmarshal(out, &data); err != nil {
		return 0, fmt.Errorf("json decode: %w", err)
	}
	if data.Format.Duration == "" || data.Format.Duration == "N/A" {
		return 0, ErrNoDuration
	}
	d, err := strconv.ParseFloat(data.Format.Duration, 64)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: %q", ErrNoDuration, data.Format.Duration)
	}
	return d, nil
}

// DurationOrZero probes src and maps any failure to 0, logging it at debug.
func DurationOrZero(ctx context.Context, p Prober, src Source) float64 {
	d, err := p.Duration(ctx, src)
	if err != nil {
		if ctx.Err() == nil {
			logger := log.WithComponent("probe")
			logger.Debug().
				Err(err).
				Str(log.FieldPath, src.Location).
				Msg("duration unavailable")
		}
		return 0
	}
	return d
}
