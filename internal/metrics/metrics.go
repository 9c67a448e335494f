// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package metrics provides Prometheus collectors for streamd.
// Labels never carry client addresses, session ids or video ids.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveSessions is the number of connected clients.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streamd_active_sessions",
		Help: "Current number of connected streaming sessions.",
	})

	// SessionsTotal counts finished sessions by how they ended.
	SessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamd_sessions_total",
		Help: "Total number of finished sessions, by outcome.",
	}, []string{"outcome"})

	// ConnectionsRejectedTotal counts connections refused before a session started.
	ConnectionsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamd_connections_rejected_total",
		Help: "Total number of connections rejected at admission, by reason.",
	}, []string{"reason"})

	// CommandsTotal counts client commands by verb and reply.
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamd_commands_total",
		Help: "Total number of client commands processed, by command and result.",
	}, []string{"command", "result"})

	// StreamsTotal counts streams by how they terminated.
	StreamsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamd_streams_total",
		Help: "Total number of streams, by terminal event (end, change, stopped, error).",
	}, []string{"outcome"})

	// ChunkBytesTotal counts video payload bytes written to clients.
	ChunkBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamd_chunk_bytes_total",
		Help: "Total number of video bytes sent in VIDEO_CHUNK frames.",
	})

	// ChunksTotal counts VIDEO_CHUNK frames.
	ChunksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamd_chunks_total",
		Help: "Total number of VIDEO_CHUNK frames sent.",
	})

	// ChunkWriteDuration observes how long a chunk frame write blocked.
	ChunkWriteDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "streamd_chunk_write_duration_seconds",
		Help:    "Time spent writing one VIDEO_CHUNK frame to the socket.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})

	// CatalogScanDuration observes scan time per root.
	CatalogScanDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "streamd_catalog_scan_duration_seconds",
		Help:    "Duration of a storage root scan, by root.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"root"})

	// CatalogEntries is the number of entries per root after the last scan.
	CatalogEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "streamd_catalog_entries",
		Help: "Number of catalog entries from the last scan, by root.",
	}, []string{"root"})

	// CatalogScanErrorsTotal counts roots that could not be listed.
	CatalogScanErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamd_catalog_scan_errors_total",
		Help: "Total number of failed root scans, by root.",
	}, []string{"root"})

	// CatalogRefreshesTotal counts catalog rebuilds by trigger.
	CatalogRefreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamd_catalog_refreshes_total",
		Help: "Total number of catalog rebuilds, by trigger.",
	}, []string{"trigger"})

	// AdminRequestDuration observes admin API latency by route pattern.
	AdminRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "streamd_admin_request_duration_seconds",
		Help:    "Admin HTTP request latencies in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	// AdminRequestsInFlight is the number of admin requests being served.
	AdminRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streamd_admin_requests_in_flight",
		Help: "Current number of admin HTTP requests being served.",
	})

	// CircuitBreakerState is 1 for the current state of each breaker, 0 otherwise.
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "streamd_circuit_breaker_state",
		Help: "Circuit breaker state (1 for the active state), by breaker and state.",
	}, []string{"breaker", "state"})

	// CircuitBreakerTripsTotal counts transitions into the open state.
	CircuitBreakerTripsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamd_circuit_breaker_trips_total",
		Help: "Total number of circuit breaker trips, by breaker and reason.",
	}, []string{"breaker", "reason"})

	// ProbeKillsTotal counts probe process groups killed on cancellation.
	ProbeKillsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamd_probe_kills_total",
		Help: "Total number of probe process groups signalled, by result.",
	}, []string{"result"})
)

var breakerStates = []string{"closed", "open", "half-open"}

// SessionStarted increments the active session gauge.
func SessionStarted() {
	ActiveSessions.Inc()
}

// SessionEnded decrements the active session gauge and records the outcome.
func SessionEnded(outcome string) {
	ActiveSessions.Dec()
	SessionsTotal.WithLabelValues(outcome).Inc()
}

// IncConnectionRejected records an admission rejection.
func IncConnectionRejected(reason string) {
	ConnectionsRejectedTotal.WithLabelValues(reason).Inc()
}

// IncCommand records a processed command.
func IncCommand(command, result string) {
	CommandsTotal.WithLabelValues(command, result).Inc()
}

// IncStream records the terminal event of a stream.
func IncStream(outcome string) {
	StreamsTotal.WithLabelValues(outcome).Inc()
}

// ObserveChunk records one chunk frame of n payload bytes.
func ObserveChunk(n int, took time.Duration) {
	ChunksTotal.Inc()
	ChunkBytesTotal.Add(float64(n))
	ChunkWriteDuration.Observe(took.Seconds())
}

// ObserveCatalogScan records a root scan.
func ObserveCatalogScan(root string, took time.Duration, entries int, err error) {
	CatalogScanDuration.WithLabelValues(root).Observe(took.Seconds())
	CatalogEntries.WithLabelValues(root).Set(float64(entries))
	if err != nil {
		CatalogScanErrorsTotal.WithLabelValues(root).Inc()
	}
}

// IncCatalogRefresh records a catalog rebuild.
func IncCatalogRefresh(trigger string) {
	CatalogRefreshesTotal.WithLabelValues(trigger).Inc()
}

// ObserveAdminRequest records one admin HTTP request.
func ObserveAdminRequest(method, route string, status int, took time.Duration) {
	AdminRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(took.Seconds())
}

// SetCircuitBreakerState marks state as the active state of breaker.
func SetCircuitBreakerState(breaker, state string) {
	for _, s := range breakerStates {
		v := 0.0
		if s == state {
			v = 1
		}
		CircuitBreakerState.WithLabelValues(breaker, s).Set(v)
	}
}

// RecordCircuitBreakerTrip records breaker opening.
func RecordCircuitBreakerTrip(breaker, reason string) {
	CircuitBreakerTripsTotal.WithLabelValues(breaker, reason).Inc()
}

// IncProbeKill records a probe process group kill.
func IncProbeKill(result string) {
	ProbeKillsTotal.WithLabelValues(result).Inc()
}
