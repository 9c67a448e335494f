// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package catalog

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ManuGH/streamconnect/internal/log"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher rescans the catalog when files under watchable roots change.
// Bursts of events are collapsed into one rescan per debounce window.
type Watcher struct {
	catalog  *Catalog
	debounce time.Duration
	logger   zerolog.Logger

	// refreshed, when set, receives a value after every watch-triggered rescan.
	refreshed chan<- struct{}
}

// NewWatcher creates a watcher for cat.
func NewWatcher(cat *Catalog, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{
		catalog:  cat,
		debounce: debounce,
		logger:   log.WithComponent("catalog.watch"),
	}
}

// Run watches until ctx is cancelled. It returns nil when no root is
// watchable.
func (w *Watcher) Run(ctx context.Context) error {
	var dirs []string
	for _, r := range w.catalog.Roots() {
		wr, ok := r.(Watchable)
		if !ok {
			continue
		}
		d, err := wr.WatchDirs(ctx)
		if err != nil {
			w.logger.Warn().Err(err).Str(log.FieldRootID, r.ID()).Msg("cannot enumerate directories to watch")
			continue
		}
		dirs = append(dirs, d...)
	}
	if len(dirs) == 0 {
		w.logger.Debug().Msg("no watchable roots")
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	for _, d := range dirs {
		if err := fw.Add(d); err != nil {
			w.logger.Warn().Err(err).Str(log.FieldPath, d).Msg("cannot watch directory")
		}
	}
	w.logger.Info().Int("dirs", len(fw.WatchList())).Msg("watching storage roots")

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if err := fw.Add(ev.Name); err != nil {
						w.logger.Warn().Err(err).Str(log.FieldPath, ev.Name).Msg("cannot watch new directory")
					}
				}
			}
			fire = time.After(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("fsnotify error")

		case <-fire:
			fire = nil
			if _, err := w.catalog.Refresh(ctx, TriggerWatch); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				w.logger.Warn().Err(err).Msg("rescan after change failed")
				continue
			}
			w.logger.Info().Str(log.FieldEvent, "catalog.rescan").Int("entries", w.catalog.Len()).Msg("catalog rescanned after change")
			if w.refreshed != nil {
				select {
				case w.refreshed <- struct{}{}:
				default:
				}
			}
		}
	}
}
