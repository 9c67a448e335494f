// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys shared by streamd spans.
const (
	SessionIDKey     = "session.id"
	ClientKeyKey     = "session.client_key"
	VideoIDKey       = "video.id"
	VideoSizeKey     = "video.size_bytes"
	VideoDurationKey = "video.duration_seconds"
	StreamOutcomeKey = "stream.outcome"
	StreamChunksKey  = "stream.chunks"
	StreamBytesKey   = "stream.bytes_sent"
	CatalogRootKey   = "catalog.root"
	CatalogCountKey  = "catalog.entries"
	ErrorTypeKey     = "error.type"
)

// StreamAttributes describes the video being streamed.
func StreamAttributes(videoID string, size int64, duration float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(VideoIDKey, videoID),
		attribute.Int64(VideoSizeKey, size),
		attribute.Float64(VideoDurationKey, duration),
	}
}

// StreamResultAttributes describes how a stream ended.
func StreamResultAttributes(outcome string, chunks int, bytesSent int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(StreamOutcomeKey, outcome),
		attribute.Int(StreamChunksKey, chunks),
		attribute.Int64(StreamBytesKey, bytesSent),
	}
}

// RecordError marks span as failed with err. A nil err is ignored.
func RecordError(span trace.Span, err error, errType string) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if errType != "" {
		span.SetAttributes(attribute.String(ErrorTypeKey, errType))
	}
}
