// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package catalog

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuGH/streamconnect/internal/log"
	"github.com/ManuGH/streamconnect/internal/metrics"
	"github.com/ManuGH/streamconnect/internal/probe"
	"github.com/ManuGH/streamconnect/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Refresh triggers, used as metric labels.
const (
	TriggerStartup = "startup"
	TriggerConnect = "connect"
	TriggerList    = "list"
	TriggerWatch   = "watch"
	TriggerAdmin   = "admin"
)

const defaultProbeConcurrency = 4

// RootStatus is the outcome of the last scan of a root.
type RootStatus string

const (
	RootStatusNever    RootStatus = "never"
	RootStatusOK       RootStatus = "ok"
	RootStatusDegraded RootStatus = "degraded"
	RootStatusFailed   RootStatus = "failed"
)

// RootState reports a root for the admin API. Paths are not included.
type RootState struct {
	ID        string     `json:"id"`
	Kind      string     `json:"kind"`
	Status    RootStatus `json:"status"`
	Entries   int        `json:"entries"`
	LastScan  time.Time  `json:"last_scan,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// Options tune a Catalog.
type Options struct {
	// Prober supplies durations. Nil disables probing.
	Prober probe.Prober
	// ProbeConcurrency bounds concurrent probes per root.
	ProbeConcurrency int
}

type listing struct {
	entries   []Entry
	byID      map[string]int
	scannedAt time.Time
}

// Catalog aggregates roots into one listing.
type Catalog struct {
	roots      []Root
	rootByID   map[string]Root
	prober     probe.Prober
	probeLimit int
	ids        *registry
	logger     zerolog.Logger
	tracer     trace.Tracer

	current atomic.Pointer[listing]
	group   singleflight.Group

	statusMu sync.RWMutex
	status   map[string]RootState
}

// New creates a catalog over roots. The listing is empty until the first
// Refresh.
func New(roots []Root, opts Options) *Catalog {
	if opts.Prober == nil {
		opts.Prober = probe.Nop{}
	}
	if opts.ProbeConcurrency <= 0 {
		opts.ProbeConcurrency = defaultProbeConcurrency
	}

	c := &Catalog{
		roots:      roots,
		rootByID:   make(map[string]Root, len(roots)),
		prober:     opts.Prober,
		probeLimit: opts.ProbeConcurrency,
		ids:        newRegistry(),
		logger:     log.WithComponent("catalog"),
		tracer:     telemetry.Tracer("streamd/catalog"),
		status:     make(map[string]RootState, len(roots)),
	}
	for _, r := range roots {
		c.rootByID[r.ID()] = r
		c.status[r.ID()] = RootState{ID: r.ID(), Kind: r.Kind(), Status: RootStatusNever}
	}
	return c
}

// Roots returns the configured roots in order.
func (c *Catalog) Roots() []Root {
	return slices.Clone(c.roots)
}

// Refresh rescans every root and swaps in the new listing. Concurrent calls
// share one scan. The scan itself is not cancelled when ctx is; ctx only
// bounds how long the caller waits.
func (c *Catalog) Refresh(ctx context.Context, trigger string) ([]Entry, error) {
	ch := c.group.DoChan("refresh", func() (any, error) {
		scanCtx := context.WithoutCancel(ctx)
		l := c.scan(scanCtx)
		c.current.Store(l)
		metrics.IncCatalogRefresh(trigger)
		return l, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.(*listing).entries), nil
	}
}

// ListAll rebuilds the listing and returns it in root order, then key order.
func (c *Catalog) ListAll(ctx context.Context) ([]Entry, error) {
	return c.Refresh(ctx, TriggerList)
}

// Entries returns the current listing without rescanning.
func (c *Catalog) Entries() []Entry {
	l := c.current.Load()
	if l == nil {
		return nil
	}
	return slices.Clone(l.entries)
}

// Len returns the number of entries in the current listing.
func (c *Catalog) Len() int {
	l := c.current.Load()
	if l == nil {
		return 0
	}
	return len(l.entries)
}

// Ready reports whether at least one scan has completed.
func (c *Catalog) Ready() bool {
	return c.current.Load() != nil
}

// LastRefresh returns when the current listing was built.
func (c *Catalog) LastRefresh() time.Time {
	l := c.current.Load()
	if l == nil {
		return time.Time{}
	}
	return l.scannedAt
}

// FindByID resolves an id against the current listing.
func (c *Catalog) FindByID(id string) (Entry, error) {
	if l := c.current.Load(); l != nil {
		if i, ok := l.byID[id]; ok {
			return l.entries[i], nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Open opens the entry's object on its root.
func (c *Catalog) Open(ctx context.Context, e Entry) (io.ReadCloser, error) {
	r, ok := c.rootByID[e.RootID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRootUnavailable, e.RootID)
	}
	return r.Open(ctx, e.Key)
}

// Status reports every root in configured order.
func (c *Catalog) Status() []RootState {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()

	out := make([]RootState, 0, len(c.roots))
	for _, r := range c.roots {
		out = append(out, c.status[r.ID()])
	}
	return out
}

func (c *Catalog) setStatus(s RootState) {
	c.statusMu.Lock()
	c.status[s.ID] = s
	c.statusMu.Unlock()
}

func (c *Catalog) scan(ctx context.Context) *listing {
	ctx, span := c.tracer.Start(ctx, "catalog.refresh")
	defer span.End()

	perRoot := make([][]Entry, len(c.roots))
	var g errgroup.Group
	for i, r := range c.roots {
		g.Go(func() error {
			perRoot[i] = c.scanRoot(ctx, r)
			return nil
		})
	}
	_ = g.Wait()

	l := &listing{byID: make(map[string]int), scannedAt: time.Now()}
	for _, entries := range perRoot {
		for _, e := range entries {
			if _, dup := l.byID[e.ID]; dup {
				continue
			}
			l.byID[e.ID] = len(l.entries)
			l.entries = append(l.entries, e)
		}
	}

	span.SetAttributes(attribute.Int(telemetry.CatalogCountKey, len(l.entries)))
	c.logger.Info().
		Str(log.FieldEvent, "catalog.scan_complete").
		Int("entries", len(l.entries)).
		Int("roots", len(c.roots)).
		Msg("catalog rebuilt")
	return l
}

// scanRoot lists one root. A root that cannot be listed contributes no
// entries; the failure is logged and recorded in its status.
func (c *Catalog) scanRoot(ctx context.Context, r Root) []Entry {
	start := time.Now()
	logger := c.logger.With().Str(log.FieldRootID, r.ID()).Logger()

	ctx, span := c.tracer.Start(ctx, "catalog.scan_root",
		trace.WithAttributes(attribute.String(telemetry.CatalogRootKey, r.ID())))
	defer span.End()

	objects, err := r.List(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %s: %v", ErrRootUnavailable, r.ID(), err)
		telemetry.RecordError(span, err, "root_unavailable")
		metrics.ObserveCatalogScan(r.ID(), time.Since(start), 0, err)
		c.setStatus(RootState{
			ID: r.ID(), Kind: r.Kind(), Status: RootStatusFailed,
			LastScan: time.Now(), LastError: err.Error(),
		})
		logger.Warn().Err(err).Str(log.FieldEvent, "catalog.root_failed").Msg("storage root unreadable, listing it as empty")
		return nil
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })

	entries := make([]Entry, len(objects))
	skipped := 0
	g := new(errgroup.Group)
	g.SetLimit(c.probeLimit)
	for i, obj := range objects {
		if obj.Key == "" || obj.Size < 0 {
			skipped++
			continue
		}
		g.Go(func() error {
			entries[i] = c.buildEntry(ctx, r, obj)
			return nil
		})
	}
	_ = g.Wait()

	out := entries[:0]
	for _, e := range entries {
		if e.ID != "" {
			out = append(out, e)
		}
	}

	status := RootStatusOK
	if skipped > 0 {
		status = RootStatusDegraded
	}
	c.setStatus(RootState{ID: r.ID(), Kind: r.Kind(), Status: status, Entries: len(out), LastScan: time.Now()})
	metrics.ObserveCatalogScan(r.ID(), time.Since(start), len(out), nil)
	span.SetAttributes(attribute.Int(telemetry.CatalogCountKey, len(out)))

	logger.Debug().
		Int("entries", len(out)).
		Int("skipped", skipped).
		Dur("took", time.Since(start)).
		Msg("root scanned")
	return out
}

func (c *Catalog) buildEntry(ctx context.Context, r Root, obj Object) Entry {
	location := obj.Path
	if loc, ok := r.(Locator); ok {
		l, err := loc.Locate(ctx, obj.Key)
		if err != nil {
			c.logger.Debug().Err(err).Str(log.FieldRootID, r.ID()).Str("key", obj.Key).Msg("no probe location")
			location = ""
		} else {
			location = l
		}
	}

	var duration float64
	if location != "" {
		duration = probe.DurationOrZero(ctx, c.prober, probe.Source{
			Location: location,
			Size:     obj.Size,
			ModTime:  obj.ModTime,
		})
	}

	return Entry{
		ID:              c.ids.id(r.ID(), obj.Key),
		Title:           titleFor(obj.Key),
		RootID:          r.ID(),
		Key:             obj.Key,
		Path:            obj.Path,
		SizeBytes:       obj.Size,
		DurationSeconds: duration,
		ModTime:         obj.ModTime,
	}
}
