// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockClock struct {
	now time.Time
}

func (m *mockClock) Now() time.Time { return m.now }

var errBoom = errors.New("boom")

func fail() error { return errBoom }
func ok() error   { return nil }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	clock := &mockClock{now: time.Now()}
	cb := NewCircuitBreaker("test-open", 3, 30*time.Second, WithClock(clock))

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, cb.Execute(fail), errBoom)
	}
	assert.Equal(t, StateClosed, cb.State())

	assert.ErrorIs(t, cb.Execute(fail), errBoom)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_SuccessResetsCount(t *testing.T) {
	cb := NewCircuitBreaker("test-reset", 2, time.Minute)

	_ = cb.Execute(fail)
	require.NoError(t, cb.Execute(ok))
	_ = cb.Execute(fail)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenTrial(t *testing.T) {
	clock := &mockClock{now: time.Now()}
	cb := NewCircuitBreaker("test-half", 1, 10*time.Second, WithClock(clock))

	_ = cb.Execute(fail)
	require.Equal(t, StateOpen, cb.State())

	clock.now = clock.now.Add(11 * time.Second)
	assert.ErrorIs(t, cb.Execute(fail), errBoom)
	assert.Equal(t, StateOpen, cb.State(), "failed trial reopens")
	assert.ErrorIs(t, cb.Execute(ok), ErrCircuitOpen)

	clock.now = clock.now.Add(11 * time.Second)
	require.NoError(t, cb.Execute(ok))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_SingleTrialInFlight(t *testing.T) {
	clock := &mockClock{now: time.Now()}
	cb := NewCircuitBreaker("test-single", 1, time.Second, WithClock(clock))
	_ = cb.Execute(fail)
	clock.now = clock.now.Add(2 * time.Second)

	inner := make(chan error, 1)
	err := cb.Execute(func() error {
		inner <- cb.Execute(ok)
		return nil
	})
	require.NoError(t, err)
	assert.ErrorIs(t, <-inner, ErrCircuitOpen)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_FailureFilter(t *testing.T) {
	benign := errors.New("benign")
	cb := NewCircuitBreaker("test-filter", 1, time.Minute,
		WithFailureFilter(func(err error) bool { return !errors.Is(err, benign) }))

	assert.ErrorIs(t, cb.Execute(func() error { return benign }), benign)
	assert.Equal(t, StateClosed, cb.State())

	_ = cb.Execute(fail)
	assert.Equal(t, StateOpen, cb.State())
}
