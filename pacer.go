package hackchat

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
)

// Clock abstracts time for the join pacer.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Pacer spaces join attempts at least interval apart. Reservations are taken
// in call order, so concurrent callers are served one slot after another.
type Pacer struct {
	lim   *rate.Limiter
	clock Clock
}

// NewPacer returns a pacer granting one slot per interval. A zero interval
// never waits; a nil clock means SystemClock.
func NewPacer(interval time.Duration, clock Clock) *Pacer {
	if clock == nil {
		clock = SystemClock
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Pacer{lim: rate.NewLimiter(limit, 1), clock: clock}
}

// Wait blocks until the next join slot.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := p.clock.Now()
	r := p.lim.ReserveN(now, 1)
	if !r.OK() {
		return errors.New("hackchat: join pacer cannot grant a slot")
	}
	d := r.DelayFrom(now)
	if d <= 0 {
		return nil
	}
	if err := p.clock.Sleep(ctx, d); err != nil {
		r.CancelAt(p.clock.Now())
		return err
	}
	return nil
}
