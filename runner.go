package spisim

import (
	"context"
	"errors"
	"time"

	"github.com/benbjohnson/clock"
)

var errBadPeriod = errors.New("spisim: tick period must be positive")

// Runner advances a Bus in real time, one tick per period. The engines
// themselves have no notion of wall time; the Runner is the driving tick
// source for callers that want the simulation to progress on its own.
type Runner struct {
	bus    *Bus
	clk    clock.Clock
	period time.Duration
}

// NewRunner returns a Runner driving bus once per period off the system
// clock.
func NewRunner(bus *Bus, period time.Duration) (*Runner, error) {
	if period <= 0 {
		return nil, errBadPeriod
	}
	return &Runner{bus: bus, clk: clock.New(), period: period}, nil
}

// WithClock substitutes the tick source, typically a *clock.Mock in tests.
func (r *Runner) WithClock(clk clock.Clock) *Runner {
	r.clk = clk
	return r
}

// Run ticks the bus until ctx is canceled and returns the context's error.
func (r *Runner) Run(ctx context.Context) error {
	t := r.clk.Ticker(r.period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			r.bus.Tick()
		}
	}
}
