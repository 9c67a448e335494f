// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{} // keys the loader looked at
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults.
// The returned config has been normalised and validated.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFileInto(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)
	cfg.Version = l.version
	normalize(&cfg)

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadFile parses a YAML file over the defaults without applying env
// overrides or validation.
func LoadFile(path string) (AppConfig, error) {
	cfg := Defaults()
	err := NewLoader(path, "").loadFileInto(path, &cfg)
	return cfg, err
}

// loadFileInto decodes a YAML file over cfg with STRICT parsing.
// Unknown fields are fatal to prevent silent misconfiguration.
func (l *Loader) loadFileInto(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if err == io.EOF {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("strict config parse error: %w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	cfg.ListenAddr = l.envString(EnvListenAddr, cfg.ListenAddr)
	cfg.ChunkSize = l.envInt(EnvChunkSize, cfg.ChunkSize)

	l.ConsumedEnvKeys[EnvStorageRoots] = struct{}{}
	if roots := ParseStorageRoots(os.Getenv(EnvStorageRoots)); len(roots) > 0 {
		cfg.Storage.Roots = roots
	}

	l.ConsumedEnvKeys[EnvChunkInterval] = struct{}{}
	cfg.Pacing.ChunkInterval = ParseDuration(EnvChunkInterval, cfg.Pacing.ChunkInterval)
	cfg.Pacing.MaxBytesPerSecond = l.envInt(EnvMaxBytesPerSecond, cfg.Pacing.MaxBytesPerSecond)

	cfg.Session.Key = l.envString(EnvSessionKey, cfg.Session.Key)
	cfg.Admin.ListenAddr = l.envString(EnvAdminAddr, cfg.Admin.ListenAddr)
	cfg.Log.Level = l.envString(EnvLogLevel, cfg.Log.Level)

	cfg.Cache.Backend = l.envString(EnvCacheBackend, cfg.Cache.Backend)
	cfg.Cache.Redis.Addr = l.envString(EnvRedisAddr, cfg.Cache.Redis.Addr)
	cfg.Cache.Redis.Password = l.envString(EnvRedisPassword, cfg.Cache.Redis.Password)

	cfg.FFprobe.Bin = l.envString(EnvFFprobeBin, cfg.FFprobe.Bin)

	cfg.Telemetry.Enabled = l.envBool(EnvTelemetryEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.Endpoint = l.envString(EnvTelemetryEndpoint, cfg.Telemetry.Endpoint)
}

// normalize fills derived values: root ids and types, per-root extension
// lists and lower-cased extensions.
func normalize(cfg *AppConfig) {
	cfg.ListenAddr = strings.TrimSpace(cfg.ListenAddr)
	cfg.Session.Key = strings.ToLower(strings.TrimSpace(cfg.Session.Key))
	cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))

	for i := range cfg.Catalog.DefaultExt {
		cfg.Catalog.DefaultExt[i] = strings.ToLower(strings.TrimSpace(cfg.Catalog.DefaultExt[i]))
	}

	for i := range cfg.Storage.Roots {
		r := &cfg.Storage.Roots[i]
		r.ID = strings.TrimSpace(r.ID)
		if r.ID == "" {
			r.ID = fmt.Sprintf("storage%d", i+1)
		}
		r.Type = strings.ToLower(strings.TrimSpace(r.Type))
		if r.Type == "" {
			r.Type = RootTypeLocal
		}
		if len(r.IncludeExt) == 0 {
			r.IncludeExt = append([]string(nil), cfg.Catalog.DefaultExt...)
		}
		for j := range r.IncludeExt {
			r.IncludeExt[j] = strings.ToLower(strings.TrimSpace(r.IncludeExt[j]))
		}
		if r.Type == RootTypeLocal && r.Path != "" {
			if abs, err := filepath.Abs(r.Path); err == nil {
				r.Path = abs
			}
		}
	}
}
