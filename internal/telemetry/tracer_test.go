// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/ManuGH/streamconnect/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{Enabled: false, ExporterType: "grpc"})
	require.NoError(t, err)
	assert.Nil(t, provider.tp)

	_, span := otel.Tracer("test").Start(context.Background(), "noop-check")
	assert.False(t, span.IsRecording())
	span.End()

	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, ExporterType: "invalid"})
	require.Error(t, err)
	assert.Equal(t, "unsupported exporter type: invalid (supported: grpc, http)", err.Error())
}

func TestSamplerFor(t *testing.T) {
	assert.Contains(t, samplerFor(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, samplerFor(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, samplerFor(0.5).Description(), "TraceIDRatioBased")
}

func TestFromAppConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Version = "v9"
	cfg.Telemetry.Enabled = true

	got := FromAppConfig(cfg)
	assert.True(t, got.Enabled)
	assert.Equal(t, "streamd", got.ServiceName)
	assert.Equal(t, "v9", got.ServiceVersion)
	assert.Equal(t, "grpc", got.ExporterType)
}

func TestRecordErrorAndAttributes(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, span := tp.Tracer("test").Start(context.Background(), "stream")
	span.SetAttributes(StreamAttributes("v1", 300, 3)...)
	span.SetAttributes(StreamResultAttributes("error", 2, 200)...)
	RecordError(span, errors.New("disk gone"), "io")
	RecordError(span, nil, "ignored")
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.String(VideoIDKey, "v1"))
	assert.Contains(t, spans[0].Attributes(), attribute.String(ErrorTypeKey, "io"))
}
