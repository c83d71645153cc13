// Package ratelimit provides a sliding-window call limiter used to stay under
// per-minute quotas of outbound APIs.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/teranos/jobpulse/errors"
)

// ErrLimited is returned by Allow when the window is full.
var ErrLimited = errors.New("rate limit exceeded")

// Window enforces at most max calls in any trailing span of length window.
type Window struct {
	max       int
	window    time.Duration
	mu        sync.Mutex
	callTimes []time.Time
	timeNow   func() time.Time // Injectable for testing
}

// NewWindow creates a limiter with real time.
func NewWindow(max int, window time.Duration) *Window {
	return NewWindowWithClock(max, window, time.Now)
}

// NewWindowWithClock creates a limiter with an injectable clock (for testing).
func NewWindowWithClock(max int, window time.Duration, timeNow func() time.Time) *Window {
	return &Window{
		max:       max,
		window:    window,
		callTimes: make([]time.Time, 0, max),
		timeNow:   timeNow,
	}
}

// Allow records a call if the window has room, or returns ErrLimited.
func (w *Window) Allow() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, err := w.allowLocked(w.timeNow())
	return err
}

// allowLocked returns how long until the oldest call expires when the window is full.
func (w *Window) allowLocked(now time.Time) (time.Duration, error) {
	w.removeExpiredCalls(now)

	if len(w.callTimes) >= w.max {
		retryIn := w.callTimes[0].Add(w.window).Sub(now)
		err := errors.Wrapf(ErrLimited, "%d calls per %s", w.max, w.window)
		err = errors.WithDetail(err, fmt.Sprintf("Current calls in window: %d", len(w.callTimes)))
		err = errors.WithDetail(err, fmt.Sprintf("Retry in: %s", retryIn))
		return retryIn, err
	}

	w.callTimes = append(w.callTimes, now)
	return 0, nil
}

// Wait blocks until a call is allowed or ctx is done.
func (w *Window) Wait(ctx context.Context) error {
	for {
		w.mu.Lock()
		retryIn, err := w.allowLocked(w.timeNow())
		w.mu.Unlock()
		if err == nil {
			return nil
		}
		if retryIn <= 0 {
			retryIn = time.Millisecond
		}

		timer := time.NewTimer(retryIn)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// removeExpiredCalls drops timestamps outside the sliding window.
// Must be called with lock held.
func (w *Window) removeExpiredCalls(now time.Time) {
	cutoff := now.Add(-w.window)

	expired := 0
	for _, callTime := range w.callTimes {
		if !callTime.After(cutoff) {
			expired++
		} else {
			break
		}
	}

	w.callTimes = w.callTimes[expired:]
}

// Reset clears the limiter state.
func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.callTimes = w.callTimes[:0]
}

// Stats returns the calls in the current window and the remaining capacity.
func (w *Window) Stats() (callsInWindow int, remaining int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.removeExpiredCalls(w.timeNow())

	callsInWindow = len(w.callTimes)
	remaining = w.max - callsInWindow
	if remaining < 0 {
		remaining = 0
	}
	return callsInWindow, remaining
}
