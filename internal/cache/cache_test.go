// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/ManuGH/streamconnect/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)
	defer func() { _ = c.Close() }()

	buf := []byte("value1")
	c.Set(ctx, "key1", buf, 5*time.Minute)
	buf[0] = 'X'

	val, ok := c.Get(ctx, "key1")
	require.True(t, ok)
	assert.Equal(t, []byte("value1"), val, "stored value must be a copy")

	_, ok = c.Get(ctx, "nonexistent")
	assert.False(t, ok)

	stats := c.Stats(ctx)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, 1, stats.CurrentSize)
}

func TestMemoryCache_Expiration(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)

	c.Set(ctx, "shortlived", []byte("v"), 20*time.Millisecond)
	_, ok := c.Get(ctx, "shortlived")
	require.True(t, ok)

	time.Sleep(50 * time.Millisecond)
	_, ok = c.Get(ctx, "shortlived")
	assert.False(t, ok)

	assert.Equal(t, 1, c.deleteExpired())
	assert.Equal(t, int64(1), c.Stats(ctx).Evictions)
}

func TestMemoryCache_Delete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)

	c.Set(ctx, "k", []byte("v"), time.Minute)
	c.Delete(ctx, "k")
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryCache_JanitorStopsOnClose(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	c := NewMemoryCache(5 * time.Millisecond)
	c.Set(context.Background(), "k", []byte("v"), time.Millisecond)

	require.Eventually(t, func() bool {
		return c.Stats(context.Background()).CurrentSize == 0
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}

func TestNew_SelectsBackend(t *testing.T) {
	c, err := New(config.CacheConfig{Backend: config.CacheBackendMemory}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, c)
	require.NoError(t, c.Close())

	_, err = New(config.CacheConfig{Backend: "memcached"}, zerolog.Nop())
	assert.Error(t, err)
}
