// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		sid  string
		addr string
	}{
		{name: "nil context", ctx: nil, sid: "s-1", addr: "127.0.0.1:4000"},
		{name: "background", ctx: context.Background(), sid: "s-2", addr: "[::1]:5000"},
		{name: "empty values", ctx: context.Background()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ContextWithSessionID(tt.ctx, tt.sid)
			ctx = ContextWithClientAddr(ctx, tt.addr)
			assert.Equal(t, tt.sid, SessionIDFromContext(ctx))
			assert.Equal(t, tt.addr, ClientAddrFromContext(ctx))
		})
	}

	assert.Empty(t, SessionIDFromContext(nil))
	assert.Empty(t, ClientAddrFromContext(nil))
}

func TestWithContextAddsSessionFields(t *testing.T) {
	var buf bytes.Buffer
	Reconfigure(Config{Level: "debug", Output: &buf, Service: "test"})
	t.Cleanup(func() { Reconfigure(Config{}) })

	ctx := ContextWithSessionID(context.Background(), "sess-42")
	ctx = ContextWithClientAddr(ctx, "10.0.0.5:1234")

	l := WithComponentFromContext(ctx, "session")
	l.Info().Str(FieldEvent, "session.open").Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "test", entry["service"])
	assert.Equal(t, "session", entry[FieldComponent])
	assert.Equal(t, "sess-42", entry[FieldSessionID])
	assert.Equal(t, "10.0.0.5:1234", entry[FieldClientAddr])
	assert.Equal(t, "session.open", entry[FieldEvent])
}

func TestWithContextNoFieldsReturnsSameLogger(t *testing.T) {
	var buf bytes.Buffer
	Reconfigure(Config{Output: &buf})
	t.Cleanup(func() { Reconfigure(Config{}) })

	l := WithContext(context.Background(), Base())
	l.Info().Msg("plain")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	_, hasSession := entry[FieldSessionID]
	assert.False(t, hasSession)
	assert.Equal(t, "streamd", entry["service"])
}
