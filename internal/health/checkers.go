// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ManuGH/streamconnect/internal/catalog"
)

// CatalogSource is the part of the catalog the checker inspects.
type CatalogSource interface {
	Ready() bool
	Status() []catalog.RootState
}

// CatalogChecker reports unhealthy until the first scan finished and
// degraded while any root fails to scan.
type CatalogChecker struct {
	cat CatalogSource
}

func NewCatalogChecker(cat CatalogSource) *CatalogChecker {
	return &CatalogChecker{cat: cat}
}

func (c *CatalogChecker) Name() string { return "catalog" }

func (c *CatalogChecker) Check(_ context.Context) CheckResult {
	if !c.cat.Ready() {
		return CheckResult{Status: StatusUnhealthy, Message: "initial scan not finished"}
	}

	var failed []string
	entries := 0
	for _, r := range c.cat.Status() {
		entries += r.Entries
		if r.Status == catalog.RootStatusFailed {
			failed = append(failed, r.ID)
		}
	}
	if len(failed) > 0 {
		return CheckResult{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("%d videos", entries),
			Error:   "unreadable roots: " + strings.Join(failed, ","),
		}
	}
	return CheckResult{Status: StatusHealthy, Message: fmt.Sprintf("%d videos", entries)}
}

// DirChecker checks that a local storage root exists and is a directory.
type DirChecker struct {
	name string
	path string
}

func NewDirChecker(name, path string) *DirChecker {
	return &DirChecker{name: name, path: path}
}

func (c *DirChecker) Name() string { return c.name }

func (c *DirChecker) Check(_ context.Context) CheckResult {
	info, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return CheckResult{Status: StatusUnhealthy, Error: "directory not found", Message: c.path}
		}
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	if !info.IsDir() {
		return CheckResult{Status: StatusUnhealthy, Error: "expected directory, got file", Message: c.path}
	}
	return CheckResult{Status: StatusHealthy}
}

// PingChecker wraps a connectivity probe such as a Redis ping.
type PingChecker struct {
	name    string
	timeout time.Duration
	ping    func(context.Context) error
}

// NewPingChecker bounds ping to 2s.
func NewPingChecker(name string, ping func(context.Context) error) *PingChecker {
	return &PingChecker{name: name, timeout: 2 * time.Second, ping: ping}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// informational downgrades unhealthy results to degraded so a component
// can be reported without failing readiness.
type informational struct {
	Checker
}

// Informational wraps c so that it never makes the service unready.
func Informational(c Checker) Checker {
	return informational{Checker: c}
}

func (i informational) Check(ctx context.Context) CheckResult {
	r := i.Checker.Check(ctx)
	if r.Status == StatusUnhealthy {
		r.Status = StatusDegraded
	}
	return r
}
