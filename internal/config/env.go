// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/streamconnect/internal/log"
	"github.com/rs/zerolog"
)

// Environment keys recognised by the loader.
const (
	EnvListenAddr        = "STREAMD_LISTEN_ADDR"
	EnvChunkSize         = "STREAMD_CHUNK_SIZE"
	EnvStorageRoots      = "STREAMD_STORAGE_ROOTS"
	EnvChunkInterval     = "STREAMD_CHUNK_INTERVAL"
	EnvMaxBytesPerSecond = "STREAMD_MAX_BYTES_PER_SECOND"
	EnvSessionKey        = "STREAMD_SESSION_KEY"
	EnvAdminAddr         = "STREAMD_ADMIN_ADDR"
	EnvLogLevel          = "STREAMD_LOG_LEVEL"
	EnvCacheBackend      = "STREAMD_CACHE_BACKEND"
	EnvRedisAddr         = "STREAMD_REDIS_ADDR"
	EnvRedisPassword     = "STREAMD_REDIS_PASSWORD"
	EnvFFprobeBin        = "STREAMD_FFPROBE_BIN"
	EnvTelemetryEnabled  = "STREAMD_TELEMETRY_ENABLED"
	EnvTelemetryEndpoint = "STREAMD_TELEMETRY_ENDPOINT"
)

// ParseString reads a string from environment variable or returns default value.
// It logs the source (environment or default) for observability.
func ParseString(key, defaultValue string) string {
	return parseStringWithLogger(log.WithComponent("config"), key, defaultValue)
}

func parseStringWithLogger(logger zerolog.Logger, key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		lowerKey := strings.ToLower(key)
		switch {
		case strings.Contains(lowerKey, "password") || strings.Contains(lowerKey, "secret"):
			logger.Debug().
				Str("key", key).
				Str("source", "environment").
				Bool("sensitive", true).
				Msg("using environment variable")
		case value == "":
			logger.Debug().
				Str("key", key).
				Str("default", defaultValue).
				Str("source", "default").
				Msg("using default value (environment variable is empty)")
			return defaultValue
		default:
			logger.Debug().
				Str("key", key).
				Str("value", value).
				Str("source", "environment").
				Msg("using environment variable")
		}
		return value
	}
	return defaultValue
}

// ParseInt reads an integer from environment variable or returns default value.
// It validates the input and falls back to default on parse errors.
func ParseInt(key string, defaultValue int) int {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Int("default", defaultValue).
			Msg("invalid integer in environment variable, using default")
		return defaultValue
	}
	logger.Debug().
		Str("key", key).
		Int("value", i).
		Str("source", "environment").
		Msg("using environment variable")
	return i
}

// ParseDuration reads a duration from environment variable in Go duration format (e.g. "5s").
// It falls back to default on parse errors or empty variables and logs the choice.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Dur("default", defaultValue).
			Msg("invalid duration in environment variable, using default")
		return defaultValue
	}
	logger.Debug().
		Str("key", key).
		Dur("value", d).
		Str("source", "environment").
		Msg("using environment variable")
	return d
}

// ParseBool reads a boolean from environment variable or returns default value.
// It accepts "true", "false", "1", "0", "yes", "no" (case-insensitive).
func ParseBool(key string, defaultValue bool) bool {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Bool("default", defaultValue).
			Msg("invalid boolean in environment variable, using default")
		return defaultValue
	}
}

// ParseStorageRoots parses STREAMD_STORAGE_ROOTS. Entries are comma
// separated and either "id=path" or a bare path; bare paths get ids
// storage1, storage2, ... in order.
func ParseStorageRoots(raw string) []RootConfig {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var roots []RootConfig
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, path, ok := strings.Cut(part, "=")
		if !ok {
			path = id
			id = ""
		}
		roots = append(roots, RootConfig{
			ID:   strings.TrimSpace(id),
			Type: RootTypeLocal,
			Path: strings.TrimSpace(path),
		})
	}
	return roots
}
