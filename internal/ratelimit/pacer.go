// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package ratelimit paces chunk emission and admits new connections.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces chunk writes of one stream. It combines a fixed minimum
// interval between chunks with an optional byte rate; either may be off.
// A Pacer belongs to a single session.
type Pacer struct {
	interval *rate.Limiter
	bytes    *rate.Limiter
}

// NewPacer returns a pacer. interval <= 0 disables the fixed spacing and
// bytesPerSecond <= 0 disables the byte rate. maxChunk is the largest n that
// will be passed to Wait.
func NewPacer(interval time.Duration, bytesPerSecond, maxChunk int) *Pacer {
	p := &Pacer{}
	if interval > 0 {
		p.interval = rate.NewLimiter(rate.Every(interval), 1)
	}
	if bytesPerSecond > 0 {
		p.bytes = rate.NewLimiter(rate.Limit(bytesPerSecond), max(bytesPerSecond, maxChunk))
	}
	return p
}

// Enabled reports whether Wait can block.
func (p *Pacer) Enabled() bool {
	return p != nil && (p.interval != nil || p.bytes != nil)
}

// Wait blocks until a chunk of n bytes may be sent or ctx is done.
func (p *Pacer) Wait(ctx context.Context, n int) error {
	if p == nil {
		return nil
	}
	if p.interval != nil {
		if err := p.interval.Wait(ctx); err != nil {
			return err
		}
	}
	if p.bytes != nil && n > 0 {
		if n > p.bytes.Burst() {
			n = p.bytes.Burst()
		}
		if err := p.bytes.WaitN(ctx, n); err != nil {
			return err
		}
	}
	return nil
}
