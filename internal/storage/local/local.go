// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package local implements a catalog root over a directory tree.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ManuGH/streamconnect/internal/catalog"
	"github.com/ManuGH/streamconnect/internal/log"
	"github.com/rs/zerolog"
)

// ErrOutsideRoot is returned for keys or symlinks that escape the root.
var ErrOutsideRoot = errors.New("local: path escapes root")

// Config describes a local root.
type Config struct {
	ID         string
	Path       string
	IncludeExt []string // lower-case, with leading dot; empty accepts every file
	MaxDepth   int      // 0 = unlimited
}

// Root serves videos from a directory. Symlinks are followed only while
// their target stays inside the root.
type Root struct {
	cfg    Config
	logger zerolog.Logger
}

var (
	_ catalog.Root      = (*Root)(nil)
	_ catalog.Watchable = (*Root)(nil)
)

// New returns a root for cfg. The directory is not touched until List.
func New(cfg Config) *Root {
	return &Root{
		cfg:    cfg,
		logger: log.WithComponent("storage.local").With().Str(log.FieldRootID, cfg.ID).Logger(),
	}
}

func (r *Root) ID() string   { return r.cfg.ID }
func (r *Root) Kind() string { return "local" }

// List walks the directory. Unreadable entries are logged and skipped; only
// a missing or unreadable root directory fails the listing.
func (r *Root) List(ctx context.Context) ([]catalog.Object, error) {
	rootResolved, err := r.resolvedRoot()
	if err != nil {
		return nil, err
	}

	var objects []catalog.Object
	err = filepath.WalkDir(rootResolved, func(p string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if walkErr != nil {
			if p == rootResolved {
				return walkErr
			}
			r.logScanError("walk", walkErr, p)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if p == rootResolved {
				return nil
			}
			if r.cfg.MaxDepth > 0 && depth(rootResolved, p) >= r.cfg.MaxDepth {
				return fs.SkipDir
			}
			return nil
		}

		if !allowedExtension(filepath.Ext(d.Name()), r.cfg.IncludeExt) {
			return nil
		}

		fileResolved, err := filepath.EvalSymlinks(p)
		if err != nil {
			r.logScanError("symlink", err, p)
			return nil
		}
		if _, err := confine(rootResolved, fileResolved); err != nil {
			r.logScanError("confinement", err, p)
			return nil
		}

		info, err := os.Stat(fileResolved)
		if err != nil {
			r.logScanError("stat", err, p)
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(rootResolved, p)
		if err != nil {
			r.logScanError("rel", err, p)
			return nil
		}

		objects = append(objects, catalog.Object{
			Key:     filepath.ToSlash(rel),
			Path:    p,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", r.cfg.ID, err)
	}
	return objects, nil
}

// Open opens the file for key after checking it stays inside the root.
func (r *Root) Open(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := r.pathFor(key)
	if err != nil {
		return nil, err
	}
	// #nosec G304 -- path is confined to the configured root above
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	return f, nil
}

// WatchDirs returns the root and every readable subdirectory within MaxDepth.
func (r *Root) WatchDirs(ctx context.Context) ([]string, error) {
	rootResolved, err := r.resolvedRoot()
	if err != nil {
		return nil, err
	}

	var dirs []string
	err = filepath.WalkDir(rootResolved, func(p string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if p == rootResolved {
				return walkErr
			}
			return fs.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if p != rootResolved && r.cfg.MaxDepth > 0 && depth(rootResolved, p) >= r.cfg.MaxDepth {
			return fs.SkipDir
		}
		dirs = append(dirs, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", r.cfg.ID, err)
	}
	return dirs, nil
}

func (r *Root) resolvedRoot() (string, error) {
	resolved, err := filepath.EvalSymlinks(r.cfg.Path)
	if err != nil {
		return "", fmt.Errorf("resolve root path: %w", err)
	}
	fi, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("stat root path: %w", err)
	}
	if !fi.IsDir() {
		return "", fmt.Errorf("root path %s is not a directory", resolved)
	}
	return filepath.Clean(resolved), nil
}

func (r *Root) pathFor(key string) (string, error) {
	if key == "" || filepath.IsAbs(key) {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, key)
	}
	rootResolved, err := r.resolvedRoot()
	if err != nil {
		return "", err
	}
	joined := filepath.Join(rootResolved, filepath.FromSlash(key))
	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", key, err)
	}
	if _, err := confine(rootResolved, resolved); err != nil {
		return "", err
	}
	return resolved, nil
}

// confine returns p relative to root, failing if p lies outside it.
func confine(root, p string) (string, error) {
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, p)
	}
	return rel, nil
}

func depth(root, dir string) int {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return 0
	}
	return strings.Count(rel, string(os.PathSeparator)) + 1
}

func allowedExtension(ext string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if strings.EqualFold(ext, a) {
			return true
		}
	}
	return false
}

func (r *Root) logScanError(event string, err error, p string) {
	r.logger.Warn().
		Str(log.FieldEvent, "scan."+event).
		Str(log.FieldPath, p).
		Err(err).
		Msg("skipping unreadable entry")
}
