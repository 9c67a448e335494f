// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ManuGH/streamconnect/internal/catalog"
	"github.com/ManuGH/streamconnect/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockChecker struct {
	name   string
	status Status
}

func (m *mockChecker) Name() string { return m.name }

func (m *mockChecker) Check(context.Context) CheckResult {
	return CheckResult{Status: m.status}
}

type fakeCatalog struct {
	ready  bool
	status []catalog.RootState
}

func (f fakeCatalog) Ready() bool                 { return f.ready }
func (f fakeCatalog) Status() []catalog.RootState { return f.status }

func TestManager_Health_NoCheckers(t *testing.T) {
	m := NewManager("v1.0.0")

	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "v1.0.0", resp.Version)
	assert.GreaterOrEqual(t, resp.Uptime, int64(0))
	assert.Nil(t, resp.Checks)
}

func TestManager_Health_WithCheckers(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "healthy", status: StatusHealthy})
	m.RegisterChecker(&mockChecker{name: "degraded", status: StatusDegraded})

	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Nil(t, resp.Checks)

	resp = m.Health(context.Background(), true)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Len(t, resp.Checks, 2)
	assert.Equal(t, StatusDegraded, resp.Checks["degraded"].Status)
}

func TestManager_Ready(t *testing.T) {
	tests := []struct {
		name      string
		checkers  []Checker
		wantReady bool
		want      Status
	}{
		{name: "no checkers", wantReady: true, want: StatusHealthy},
		{name: "degraded stays ready", checkers: []Checker{&mockChecker{"a", StatusDegraded}}, wantReady: true, want: StatusDegraded},
		{name: "unhealthy", checkers: []Checker{&mockChecker{"a", StatusHealthy}, &mockChecker{"b", StatusUnhealthy}}, wantReady: false, want: StatusUnhealthy},
		{name: "informational", checkers: []Checker{Informational(&mockChecker{"b", StatusUnhealthy})}, wantReady: true, want: StatusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager("test")
			for _, c := range tt.checkers {
				m.RegisterChecker(c)
			}
			resp := m.Ready(context.Background())
			assert.Equal(t, tt.wantReady, resp.Ready)
			assert.Equal(t, tt.want, resp.Status)
		})
	}
}

func TestServeReady_StatusCodes(t *testing.T) {
	m := NewManager("test")
	m.RegisterChecker(&mockChecker{name: "catalog", status: StatusUnhealthy})

	rec := httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp ReadinessResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Ready)

	rec = httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz?verbose=true", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestCatalogChecker(t *testing.T) {
	c := NewCatalogChecker(fakeCatalog{})
	assert.Equal(t, StatusUnhealthy, c.Check(context.Background()).Status)

	c = NewCatalogChecker(fakeCatalog{ready: true, status: []catalog.RootState{
		{ID: "storage1", Status: catalog.RootStatusOK, Entries: 3},
	}})
	r := c.Check(context.Background())
	assert.Equal(t, StatusHealthy, r.Status)
	assert.Equal(t, "3 videos", r.Message)

	c = NewCatalogChecker(fakeCatalog{ready: true, status: []catalog.RootState{
		{ID: "storage1", Status: catalog.RootStatusOK, Entries: 3},
		{ID: "storage2", Status: catalog.RootStatusFailed},
	}})
	r = c.Check(context.Background())
	assert.Equal(t, StatusDegraded, r.Status)
	assert.Contains(t, r.Error, "storage2")
}

func TestDirChecker(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	assert.Equal(t, StatusHealthy, NewDirChecker("root", dir).Check(context.Background()).Status)
	assert.Equal(t, StatusUnhealthy, NewDirChecker("root", file).Check(context.Background()).Status)
	assert.Equal(t, StatusUnhealthy, NewDirChecker("root", filepath.Join(dir, "missing")).Check(context.Background()).Status)
}

func TestPingChecker(t *testing.T) {
	ok := NewPingChecker("redis", func(context.Context) error { return nil })
	assert.Equal(t, StatusHealthy, ok.Check(context.Background()).Status)

	bad := NewPingChecker("redis", func(context.Context) error { return errors.New("connection refused") })
	r := bad.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, r.Status)
	assert.Equal(t, "connection refused", r.Error)
}

func TestPerformStartupChecks(t *testing.T) {
	cfg := config.Defaults()
	cfg.ListenAddr = "127.0.0.1:9000"
	cfg.Storage.Roots = []config.RootConfig{{ID: "storage1", Type: config.RootTypeLocal, Path: filepath.Join(t.TempDir(), "missing")}}
	cfg.FFprobe.Bin = filepath.Join(t.TempDir(), "no-ffprobe")

	report, err := PerformStartupChecks(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, report.FFprobe)

	cfg.ListenAddr = "no-port"
	_, err = PerformStartupChecks(context.Background(), cfg)
	assert.Error(t, err)

	cfg.ListenAddr = ":9000"
	cfg.Admin.ListenAddr = ":99999"
	_, err = PerformStartupChecks(context.Background(), cfg)
	assert.Error(t, err)
}
