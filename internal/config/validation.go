// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"

	"github.com/ManuGH/streamconnect/internal/validate"
	"github.com/rs/zerolog"
)

// Chunk size bounds in bytes.
const (
	MinChunkSize = 1 << 10
	MaxChunkSize = 16 << 20
)

// Validate validates the configuration using the centralized validation package.
// When a required value is absent the returned error wraps ErrMissingRequired.
func Validate(cfg AppConfig) error {
	v := validate.New()
	missing := false

	if cfg.ListenAddr == "" {
		v.AddError("listen_addr", "is required", cfg.ListenAddr)
		missing = true
	} else {
		v.ListenAddr("listen_addr", cfg.ListenAddr)
	}

	if cfg.ChunkSize == 0 {
		v.AddError("chunk_size", "is required", cfg.ChunkSize)
		missing = true
	} else {
		v.Range("chunk_size", cfg.ChunkSize, MinChunkSize, MaxChunkSize)
	}

	if len(cfg.Storage.Roots) == 0 {
		v.AddError("storage.roots", "at least one storage root is required", nil)
		missing = true
	}
	seen := make(map[string]struct{}, len(cfg.Storage.Roots))
	for i, r := range cfg.Storage.Roots {
		field := fmt.Sprintf("storage.roots[%d]", i)
		if _, dup := seen[r.ID]; dup {
			v.AddError(field+".id", "duplicate root id", r.ID)
		}
		seen[r.ID] = struct{}{}

		v.OneOf(field+".type", r.Type, []string{RootTypeLocal, RootTypeS3})
		switch r.Type {
		case RootTypeLocal:
			v.NotEmpty(field+".path", r.Path)
		case RootTypeS3:
			v.NotEmpty(field+".s3.bucket", r.S3.Bucket)
			if r.S3.Endpoint != "" {
				v.URL(field+".s3.endpoint", r.S3.Endpoint, []string{"http", "https"})
			}
		}
		v.NonNegative(field+".max_depth", r.MaxDepth)
		for _, ext := range r.IncludeExt {
			v.Extension(field+".include_ext", ext)
		}
	}

	v.NonNegativeDuration("shutdown_timeout", cfg.ShutdownTimeout)
	v.NonNegativeDuration("pacing.chunk_interval", cfg.Pacing.ChunkInterval)
	v.NonNegative("pacing.max_bytes_per_second", cfg.Pacing.MaxBytesPerSecond)
	if cfg.Pacing.MaxBytesPerSecond > 0 && cfg.Pacing.MaxBytesPerSecond < cfg.ChunkSize {
		v.AddError("pacing.max_bytes_per_second", "must be at least chunk_size", cfg.Pacing.MaxBytesPerSecond)
	}

	v.OneOf("session.key", cfg.Session.Key, []string{SessionKeyAddr, SessionKeyHost})
	v.Positive("session.command_buffer", cfg.Session.CommandBuffer)
	v.NonNegativeDuration("session.write_timeout", cfg.Session.WriteTimeout)
	v.NonNegative("session.max_connections", cfg.Session.MaxConnections)
	if cfg.Session.ConnectRate < 0 {
		v.AddError("session.connect_rate", "must be non-negative", cfg.Session.ConnectRate)
	}
	if cfg.Session.ConnectRate > 0 {
		v.Positive("session.connect_burst", cfg.Session.ConnectBurst)
	}

	v.NonNegativeDuration("catalog.watch_debounce", cfg.Catalog.WatchDebounce)
	for _, ext := range cfg.Catalog.DefaultExt {
		v.Extension("catalog.default_ext", ext)
	}

	v.NonNegativeDuration("ffprobe.timeout", cfg.FFprobe.Timeout)

	v.OneOf("cache.backend", cfg.Cache.Backend, []string{CacheBackendMemory, CacheBackendRedis})
	if cfg.Cache.Backend == CacheBackendRedis {
		v.NotEmpty("cache.redis.addr", cfg.Cache.Redis.Addr)
	}
	v.NonNegativeDuration("cache.ttl", cfg.Cache.TTL)

	if cfg.Admin.ListenAddr != "" {
		v.ListenAddr("admin.listen_addr", cfg.Admin.ListenAddr)
	}
	v.NonNegative("admin.rate_limit", cfg.Admin.RateLimit)

	if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
		v.AddError("log.level", "unknown log level", cfg.Log.Level)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("telemetry.sampling_rate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	if missing {
		return v.ErrWithCause(ErrMissingRequired)
	}
	return v.Err()
}
