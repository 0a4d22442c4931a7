// Package clock provides time abstractions for production and testing
package clock

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Real returns the production clock
func Real() clockwork.Clock {
	return clockwork.NewRealClock()
}

// Pacer waits a fixed interval between upstream requests
type Pacer struct {
	clock    clockwork.Clock
	interval time.Duration
}

// NewPacer creates a Pacer that sleeps interval on clock
func NewPacer(clock clockwork.Clock, interval time.Duration) *Pacer {
	return &Pacer{clock: clock, interval: interval}
}

// Pace blocks for the interval or until ctx is done
func (p *Pacer) Pace(ctx context.Context) error {
	if p.interval <= 0 {
		return ctx.Err()
	}

	timer := p.clock.NewTimer(p.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}

// NoPacing never waits
type NoPacing struct{}

// Pace returns immediately unless ctx is already done
func (NoPacing) Pace(ctx context.Context) error {
	return ctx.Err()
}
