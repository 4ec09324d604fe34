package progress

import (
	"context"
	"time"
)

// Sampler re-evaluates a Curve on a fixed tick.
type Sampler struct {
	Curve    Curve
	Interval time.Duration
	Now      func() time.Time
}

// NewSampler returns a sampler ticking every TickInterval.
func NewSampler(c Curve) *Sampler {
	return &Sampler{Curve: c, Interval: TickInterval, Now: time.Now}
}

// Run emits a View immediately and then on every tick for as long as active
// reports true. It returns when active reports false or ctx is done; it
// never emits a completed View itself.
func (s *Sampler) Run(ctx context.Context, startedAt time.Time, estimated time.Duration, active func() bool, emit func(View)) {
	now := s.Now
	if now == nil {
		now = time.Now
	}
	interval := s.Interval
	if interval <= 0 {
		interval = TickInterval
	}

	if !active() {
		return
	}
	emit(Estimate(s.Curve, now().Sub(startedAt), estimated))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !active() {
				return
			}
			emit(Estimate(s.Curve, now().Sub(startedAt), estimated))
		}
	}
}
