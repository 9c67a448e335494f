// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ratelimit

import (
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Admission limits how fast a single host may open connections.
type Admission struct {
	limit      rate.Limit
	burst      int
	staleAfter time.Duration

	mu          sync.Mutex
	perHost     map[string]*hostLimiter
	lastCleanup time.Time
	now         func() time.Time
}

type hostLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewAdmission allows perSecond new connections per host with the given
// burst. perSecond <= 0 admits everything.
func NewAdmission(perSecond float64, burst int) *Admission {
	if burst <= 0 {
		burst = 1
	}
	return &Admission{
		limit:       rate.Limit(perSecond),
		burst:       burst,
		staleAfter:  5 * time.Minute,
		perHost:     make(map[string]*hostLimiter),
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

// Allow reports whether a connection from addr may proceed. addr may be a
// host or host:port.
func (a *Admission) Allow(addr string) bool {
	if a == nil || a.limit <= 0 {
		return true
	}
	host := HostOf(addr)
	now := a.now()

	a.mu.Lock()
	defer a.mu.Unlock()

	h, ok := a.perHost[host]
	if !ok {
		h = &hostLimiter{lim: rate.NewLimiter(a.limit, a.burst)}
		a.perHost[host] = h
	}
	h.lastSeen = now
	allowed := h.lim.AllowN(now, 1)

	if now.Sub(a.lastCleanup) >= a.staleAfter {
		for k, v := range a.perHost {
			if now.Sub(v.lastSeen) >= a.staleAfter {
				delete(a.perHost, k)
			}
		}
		a.lastCleanup = now
	}
	return allowed
}

// Hosts returns the number of hosts currently tracked.
func (a *Admission) Hosts() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.perHost)
}

// HostOf strips the port from addr, if any.
func HostOf(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
