// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config loads the streamd configuration.
//
// Precedence is ENV > YAML file > defaults. The listen address, the chunk
// size and at least one storage root are required; a missing value is a
// startup error (ErrMissingRequired), never a runtime one.
package config
