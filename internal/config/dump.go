// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

const maskedValue = "***"

// Masked returns a copy of cfg with credentials replaced for display.
func Masked(cfg AppConfig) AppConfig {
	out := cfg
	if out.Cache.Redis.Password != "" {
		out.Cache.Redis.Password = maskedValue
	}
	out.Storage.Roots = make([]RootConfig, len(cfg.Storage.Roots))
	for i, r := range cfg.Storage.Roots {
		if r.S3.AccessKey != "" {
			r.S3.AccessKey = maskedValue
		}
		if r.S3.SecretKey != "" {
			r.S3.SecretKey = maskedValue
		}
		out.Storage.Roots[i] = r
	}
	return out
}

// Dump renders the effective configuration as YAML with secrets masked.
func Dump(cfg AppConfig) ([]byte, error) {
	data, err := yaml.Marshal(Masked(cfg))
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// DumpFile writes Dump output atomically to path.
func DumpFile(cfg AppConfig, path string) error {
	data, err := Dump(cfg)
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config dump: %w", err)
	}
	return nil
}
