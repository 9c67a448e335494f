// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics_test

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ManuGH/streamconnect/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromhttpExposure(t *testing.T) {
	metrics.IncStream("end")

	srv := httptest.NewServer(promhttp.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "streamd_streams_total")
}

func TestSessionGauge(t *testing.T) {
	before := testutil.ToFloat64(metrics.ActiveSessions)
	metrics.SessionStarted()
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ActiveSessions))

	ended := testutil.ToFloat64(metrics.SessionsTotal.WithLabelValues("client_exit"))
	metrics.SessionEnded("client_exit")
	assert.Equal(t, before, testutil.ToFloat64(metrics.ActiveSessions))
	assert.Equal(t, ended+1, testutil.ToFloat64(metrics.SessionsTotal.WithLabelValues("client_exit")))
}

func TestObserveChunk(t *testing.T) {
	bytesBefore := testutil.ToFloat64(metrics.ChunkBytesTotal)
	metrics.ObserveChunk(1000, time.Millisecond)
	assert.Equal(t, bytesBefore+1000, testutil.ToFloat64(metrics.ChunkBytesTotal))

	var m dto.Metric
	require.NoError(t, metrics.ChunkWriteDuration.Write(&m))
	assert.GreaterOrEqual(t, m.GetHistogram().GetSampleCount(), uint64(1))
}

func TestObserveCatalogScan(t *testing.T) {
	metrics.ObserveCatalogScan("test-root", 10*time.Millisecond, 3, nil)
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.CatalogEntries.WithLabelValues("test-root")))

	errsBefore := testutil.ToFloat64(metrics.CatalogScanErrorsTotal.WithLabelValues("test-root"))
	metrics.ObserveCatalogScan("test-root", time.Millisecond, 0, errors.New("gone"))
	assert.Equal(t, errsBefore+1, testutil.ToFloat64(metrics.CatalogScanErrorsTotal.WithLabelValues("test-root")))
}

func TestObserveAdminRequest(t *testing.T) {
	metrics.ObserveAdminRequest("GET", "/api/v1/catalog", 200, 5*time.Millisecond)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(metrics.AdminRequestDuration), 1)
}

func TestCircuitBreakerState(t *testing.T) {
	metrics.SetCircuitBreakerState("ffprobe-test", "open")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("ffprobe-test", "open")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("ffprobe-test", "closed")))

	metrics.SetCircuitBreakerState("ffprobe-test", "closed")
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("ffprobe-test", "open")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("ffprobe-test", "closed")))
}
