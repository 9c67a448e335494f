// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package catalog aggregates storage roots into one listing of videos.
//
// A Catalog owns an immutable listing that is rebuilt by Refresh and swapped
// in atomically, so readers never lock. Video ids are opaque UUIDs assigned
// once per (root, object key) and reused by later scans for the lifetime of
// the process.
package catalog

import (
	"context"
	"errors"
	"io"
	"path"
	"time"

	"golang.org/x/text/unicode/norm"
)

var (
	// ErrNotFound is returned when an id does not resolve.
	ErrNotFound = errors.New("catalog: video not found")
	// ErrRootUnavailable is returned when a storage root cannot be listed or
	// is not configured.
	ErrRootUnavailable = errors.New("catalog: storage root unavailable")
)

// Entry is the metadata of one video. Entries are never mutated after a scan
// builds them.
type Entry struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	RootID          string    `json:"root_id"`
	Key             string    `json:"-"`
	Path            string    `json:"-"`
	SizeBytes       int64     `json:"size_bytes"`
	DurationSeconds float64   `json:"duration_seconds"`
	ModTime         time.Time `json:"mod_time"`
}

// Object is one file as reported by a Root. Key is slash separated and
// relative to the root; Path is where the object lives, for logs and
// probing.
type Object struct {
	Key     string
	Path    string
	Size    int64
	ModTime time.Time
}

// Root is a storage backend the catalog can list and read from.
type Root interface {
	// ID is the configured root id.
	ID() string
	// Kind names the backend, e.g. "local" or "s3".
	Kind() string
	// List returns every video object in the root. Objects that cannot be
	// read are skipped by the implementation.
	List(ctx context.Context) ([]Object, error)
	// Open opens an object for sequential reading.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Locator is implemented by roots whose objects need a location other than
// Object.Path for duration probing, such as a presigned URL.
type Locator interface {
	Locate(ctx context.Context, key string) (string, error)
}

// Watchable is implemented by roots backed by directories that can be
// watched for changes.
type Watchable interface {
	WatchDirs(ctx context.Context) ([]string, error)
}

// titleFor derives a display title from an object key.
func titleFor(key string) string {
	return norm.NFC.String(path.Base(key))
}
