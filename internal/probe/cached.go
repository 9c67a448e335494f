// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package probe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/ManuGH/streamconnect/internal/cache"
	"github.com/ManuGH/streamconnect/internal/resilience"
	"golang.org/x/sync/singleflight"
)

// negativeTTL bounds how long a failed probe is remembered.
const negativeTTL = 10 * time.Minute

// Cached memoizes another Prober. Entries are keyed by location, size and
// modification time so a replaced file is probed again. Failures are cached
// for a shorter period.
type Cached struct {
	next  Prober
	cache cache.Cache
	ttl   time.Duration
	group singleflight.Group
}

// NewCached wraps next with c.
func NewCached(next Prober, c cache.Cache, ttl time.Duration) *Cached {
	return &Cached{next: next, cache: c, ttl: ttl}
}

func cacheKey(src Source) string {
	h := sha256.New()
	h.Write([]byte(src.Location))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(src.Size, 10)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(src.ModTime.UnixNano(), 10)))
	return "probe:" + hex.EncodeToString(h.Sum(nil)[:16])
}

func (c *Cached) Duration(ctx context.Context, src Source) (float64, error) {
	key := cacheKey(src)
	if raw, ok := c.cache.Get(ctx, key); ok {
		if len(raw) == 0 {
			return 0, ErrNoDuration
		}
		if d, err := strconv.ParseFloat(string(raw), 64); err == nil {
			return d, nil
		}
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		d, err := c.next.Duration(ctx, src)
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, context.Canceled) && !errors.Is(err, resilience.ErrCircuitOpen) {
				c.cache.Set(ctx, key, nil, negativeTTL)
			}
			return 0.0, err
		}
		c.cache.Set(ctx, key, []byte(strconv.FormatFloat(d, 'g', -1, 64)), c.ttl)
		return d, nil
	})
	return v.(float64), err
}
