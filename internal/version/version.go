// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package version holds build metadata, set with -ldflags -X at link time.
package version

var (
	// Version is the release version.
	Version = "v0.1.0"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// String formats the metadata for humans.
func String() string {
	return Version + " (commit: " + Commit + ", built: " + Date + ")"
}
