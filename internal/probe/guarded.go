// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package probe

import (
	"context"
	"errors"
	"time"

	"github.com/ManuGH/streamconnect/internal/resilience"
)

// Guarded stops calling next after repeated tool failures, so a broken
// prober does not cost one timeout per catalog entry. Media without a
// duration and cancelled probes do not count as failures.
type Guarded struct {
	next    Prober
	breaker *resilience.CircuitBreaker
}

// NewGuarded wraps next with a breaker that opens after threshold
// consecutive failures and retries after cooldown.
func NewGuarded(next Prober, threshold int, cooldown time.Duration) *Guarded {
	return &Guarded{
		next: next,
		breaker: resilience.NewCircuitBreaker("ffprobe", threshold, cooldown,
			resilience.WithFailureFilter(isToolFailure)),
	}
}

func isToolFailure(err error) bool {
	return !errors.Is(err, ErrNoDuration) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

func (g *Guarded) Duration(ctx context.Context, src Source) (float64, error) {
	var d float64
	err := g.breaker.Execute(func() error {
		var err error
		d, err = g.next.Duration(ctx, src)
		return err
	})
	return d, err
}

// State reports the breaker state.
func (g *Guarded) State() resilience.State {
	return g.breaker.State()
}
