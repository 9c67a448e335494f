// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import "time"

// Storage root backends.
const (
	RootTypeLocal = "local"
	RootTypeS3    = "s3"
)

// Client keying modes for the per-client tables.
const (
	SessionKeyAddr = "addr" // full peer address (host:port)
	SessionKeyHost = "host" // peer host only
)

// Probe cache backends.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// AppConfig is the effective streamd configuration.
type AppConfig struct {
	Version string `yaml:"-"`

	ListenAddr      string        `yaml:"listen_addr"`
	ChunkSize       int           `yaml:"chunk_size"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	Storage   StorageConfig   `yaml:"storage"`
	Pacing    PacingConfig    `yaml:"pacing"`
	Session   SessionConfig   `yaml:"session"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	FFprobe   FFprobeConfig   `yaml:"ffprobe"`
	Cache     CacheConfig     `yaml:"cache"`
	Admin     AdminConfig     `yaml:"admin"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// StorageConfig lists the storage roots aggregated into the catalog.
type StorageConfig struct {
	Roots []RootConfig `yaml:"roots"`
}

// RootConfig describes a single storage root.
type RootConfig struct {
	ID         string   `yaml:"id"`
	Type       string   `yaml:"type"`
	Path       string   `yaml:"path,omitempty"`
	IncludeExt []string `yaml:"include_ext,omitempty"`
	MaxDepth   int      `yaml:"max_depth,omitempty"`
	S3         S3Config `yaml:"s3,omitempty"`
}

// S3Config holds the bucket settings of an s3 root.
type S3Config struct {
	Bucket     string        `yaml:"bucket,omitempty"`
	Prefix     string        `yaml:"prefix,omitempty"`
	Endpoint   string        `yaml:"endpoint,omitempty"`
	Region     string        `yaml:"region,omitempty"`
	AccessKey  string        `yaml:"access_key,omitempty"`
	SecretKey  string        `yaml:"secret_key,omitempty"`
	PresignTTL time.Duration `yaml:"presign_ttl,omitempty"`
}

// PacingConfig controls chunk emission pacing.
type PacingConfig struct {
	ChunkInterval     time.Duration `yaml:"chunk_interval"`
	MaxBytesPerSecond int           `yaml:"max_bytes_per_second"`
}

// SessionConfig controls per-connection behaviour.
type SessionConfig struct {
	Key            string        `yaml:"key"`
	CommandBuffer  int           `yaml:"command_buffer"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxConnections int           `yaml:"max_connections"`
	ConnectRate    float64       `yaml:"connect_rate"`
	ConnectBurst   int           `yaml:"connect_burst"`
}

// CatalogConfig controls scanning and rescans.
type CatalogConfig struct {
	Watch            bool          `yaml:"watch"`
	WatchDebounce    time.Duration `yaml:"watch_debounce"`
	RefreshOnConnect bool          `yaml:"refresh_on_connect"`
	DefaultExt       []string      `yaml:"default_ext"`
}

// FFprobeConfig controls duration extraction.
type FFprobeConfig struct {
	Enabled bool          `yaml:"enabled"`
	Bin     string        `yaml:"bin"`
	Timeout time.Duration `yaml:"timeout"`
}

// CacheConfig selects the probe result cache.
type CacheConfig struct {
	Backend string        `yaml:"backend"`
	TTL     time.Duration `yaml:"ttl"`
	Redis   RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AdminConfig controls the operational HTTP surface.
type AdminConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	RateLimit  int    `yaml:"rate_limit"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
	Environment  string  `yaml:"environment"`
}

// Defaults returns the default configuration. Required values are left empty.
func Defaults() AppConfig {
	return AppConfig{
		ShutdownTimeout: 15 * time.Second,
		Pacing: PacingConfig{
			ChunkInterval: 200 * time.Millisecond,
		},
		Session: SessionConfig{
			Key:           SessionKeyAddr,
			CommandBuffer: 16,
			WriteTimeout:  30 * time.Second,
		},
		Catalog: CatalogConfig{
			Watch:            true,
			WatchDebounce:    2 * time.Second,
			RefreshOnConnect: true,
			DefaultExt:       []string{".mp4"},
		},
		FFprobe: FFprobeConfig{
			Enabled: true,
			Timeout: 10 * time.Second,
		},
		Cache: CacheConfig{
			Backend: CacheBackendMemory,
			TTL:     24 * time.Hour,
		},
		Admin: AdminConfig{
			RateLimit: 120,
		},
		Log: LogConfig{
			Level:   "info",
			Service: "streamd",
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
			Environment:  "production",
		},
	}
}
