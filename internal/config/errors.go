// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import "errors"

var (
	// ErrMissingRequired classifies validation failures caused by an absent
	// required value (listen address, chunk size, storage roots).
	ErrMissingRequired = errors.New("missing required configuration value")

	// ErrUnknownConfigField classifies strict YAML parse failures caused by unknown keys.
	ErrUnknownConfigField = errors.New("unknown config field")
)
