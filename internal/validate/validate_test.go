// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package validate

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidator_ListenAddr(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{"all interfaces", ":5000", false},
		{"loopback", "127.0.0.1:8080", false},
		{"ipv6", "[::1]:9000", false},
		{"empty", "", true},
		{"missing port", "localhost", true},
		{"port zero", ":0", true},
		{"port too large", ":70000", true},
		{"non numeric port", ":http", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.ListenAddr("listen_addr", tt.addr)
			if tt.wantErr && v.IsValid() {
				t.Errorf("expected error for %q, got none", tt.addr)
			}
			if !tt.wantErr && !v.IsValid() {
				t.Errorf("unexpected error: %v", v.Err())
			}
		})
	}
}

func TestValidator_Range(t *testing.T) {
	v := New()
	v.Range("chunk_size", 512, 1024, 1<<24)
	v.Range("ok", 2048, 1024, 1<<24)
	if len(v.Errors()) != 1 {
		t.Fatalf("expected exactly one error, got %d", len(v.Errors()))
	}
	if v.Errors()[0].Field != "chunk_size" {
		t.Errorf("unexpected field %q", v.Errors()[0].Field)
	}
}

func TestValidator_Extension(t *testing.T) {
	for ext, wantErr := range map[string]bool{
		".mp4":  false,
		".MKV":  false,
		"mp4":   true,
		".":     true,
		"./mp4": true,
		"":      true,
	} {
		v := New()
		v.Extension("include_ext", ext)
		if wantErr == v.IsValid() {
			t.Errorf("Extension(%q): wantErr=%v, valid=%v", ext, wantErr, v.IsValid())
		}
	}
}

func TestValidator_NonNegativeDuration(t *testing.T) {
	v := New()
	v.NonNegativeDuration("pacing.chunk_interval", -time.Second)
	v.NonNegativeDuration("pacing.other", 0)
	if len(v.Errors()) != 1 {
		t.Fatalf("expected one error, got %v", v.Errors())
	}
}

func TestValidator_MultipleErrors(t *testing.T) {
	v := New()
	v.NotEmpty("storage.roots[0].id", " ")
	v.OneOf("storage.roots[0].type", "ftp", []string{"local", "s3"})
	v.Positive("session.command_buffer", 0)

	err := v.Err()
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	for _, field := range []string{"storage.roots[0].id", "storage.roots[0].type", "session.command_buffer"} {
		if !strings.Contains(msg, field) {
			t.Errorf("error message missing %s: %s", field, msg)
		}
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(verr.Errors()) != 3 {
		t.Errorf("expected 3 errors, got %d", len(verr.Errors()))
	}
}

func TestValidator_ErrWithCause(t *testing.T) {
	sentinel := errors.New("missing required")

	v := New()
	if err := v.ErrWithCause(sentinel); err != nil {
		t.Fatalf("valid validator must return nil, got %v", err)
	}

	v.AddError("chunk_size", "required", 0)
	err := v.ErrWithCause(sentinel)
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected errors.Is to match sentinel, got %v", err)
	}
}

func TestValidator_URL(t *testing.T) {
	v := New()
	v.URL("endpoint", "http://minio:9000", []string{"http", "https"})
	v.URL("endpoint", "ftp://minio:9000", []string{"http", "https"})
	v.URL("endpoint", "http://", nil)
	if len(v.Errors()) != 2 {
		t.Fatalf("expected 2 errors, got %v", v.Errors())
	}
}
