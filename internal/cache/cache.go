// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package cache provides byte-valued TTL caches backed by process memory or
// Redis. streamd uses them to remember probe results across rescans and,
// with Redis, across restarts and replicas.
package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuGH/streamconnect/internal/config"
	"github.com/rs/zerolog"
)

// Cache is a TTL cache of opaque values.
type Cache interface {
	// Get returns the value stored under key, if present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	// Delete removes key.
	Delete(ctx context.Context, key string)
	// Stats returns hit/miss counters and the current size.
	Stats(ctx context.Context) Stats
	// Close releases background resources.
	Close() error
}

// Stats holds cache performance counters.
type Stats struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Sets        int64 `json:"sets"`
	Evictions   int64 `json:"evictions"`
	CurrentSize int   `json:"current_size"`
}

type counters struct {
	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	evictions atomic.Int64
}

func (c *counters) snapshot(size int) Stats {
	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Sets:        c.sets.Load(),
		Evictions:   c.evictions.Load(),
		CurrentSize: size,
	}
}

// New builds the cache selected by cfg.
func New(cfg config.CacheConfig, logger zerolog.Logger) (Cache, error) {
	switch cfg.Backend {
	case "", config.CacheBackendMemory:
		return NewMemoryCache(time.Minute), nil
	case config.CacheBackendRedis:
		c, err := NewRedisCache(RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

type entry struct {
	value      []byte
	expiration time.Time
}

func (e *entry) isExpired(now time.Time) bool {
	return now.After(e.expiration)
}

// MemoryCache is an in-process Cache with a background janitor.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	stats   counters

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewMemoryCache creates a memory cache. Expired entries are swept every
// cleanupInterval; zero disables the janitor.
func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]*entry),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go c.janitor(cleanupInterval)
	} else {
		close(c.done)
	}
	return c
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	e, found := c.entries[key]
	c.mu.RUnlock()

	if !found || e.isExpired(time.Now()) {
		c.stats.misses.Add(1)
		return nil, false
	}
	c.stats.hits.Add(1)
	return e.value, true
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	v := make([]byte, len(value))
	copy(v, value)

	c.mu.Lock()
	c.entries[key] = &entry{value: v, expiration: time.Now().Add(ttl)}
	c.mu.Unlock()
	c.stats.sets.Add(1)
}

func (c *MemoryCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *MemoryCache) Stats(context.Context) Stats {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()
	return c.stats.snapshot(n)
}

// deleteExpired removes expired entries and returns how many were dropped.
func (c *MemoryCache) deleteExpired() int {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for key, e := range c.entries {
		if e.isExpired(now) {
			delete(c.entries, key)
			count++
		}
	}
	c.stats.evictions.Add(int64(count))
	return count
}

func (c *MemoryCache) janitor(interval time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-c.stop:
			return
		}
	}
}

// Close stops the janitor and waits for it to exit.
func (c *MemoryCache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
	return nil
}
