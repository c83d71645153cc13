package queue

import (
	"context"
	"sync"
	"time"
)

// Pacer spaces consecutive starts by at least interval.
//
// Wait returns immediately the first time and afterwards blocks until
// interval has elapsed since the previous Wait returned. Waiters are served
// one at a time.
type Pacer struct {
	interval time.Duration
	mu       sync.Mutex
	last     time.Time
	started  bool
	now      func() time.Time
}

// NewPacer creates a Pacer. A non-positive interval never blocks.
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{interval: interval, now: time.Now}
}

// Interval returns the configured spacing.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}

// Wait blocks until the next start is allowed or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	if p.started && p.interval > 0 {
		if d := p.last.Add(p.interval).Sub(p.now()); d > 0 {
			timer := time.NewTimer(d)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	p.last = p.now()
	p.started = true
	return nil
}
