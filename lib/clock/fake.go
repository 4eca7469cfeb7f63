// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"time"
)

// NewFake returns a Fake clock initialized to the given time. Time
// stands still until Advance is called.
func NewFake(initial time.Time) *Fake {
	return &Fake{current: initial}
}

// Fake is a deterministic Clock for tests. Pending After channels and
// AfterFunc callbacks fire, in deadline order, when Advance moves the
// clock past their deadline. AfterFunc callbacks run synchronously
// inside Advance; do not call Advance from within a callback.
//
// Fake is safe for concurrent use.
type Fake struct {
	mu      sync.Mutex
	current time.Time
	waiters []*fakeWaiter
}

type fakeWaiter struct {
	deadline time.Time
	channel  chan time.Time // nil for AfterFunc waiters
	callback func()         // nil for After waiters
	stopped  bool
	fired    bool
}

// Now returns the current fake time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// After returns a channel that receives once the clock advances past
// the deadline. If d <= 0 the channel receives immediately.
func (f *Fake) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	channel := make(chan time.Time, 1)
	if d <= 0 {
		channel <- f.current
		return channel
	}
	f.waiters = append(f.waiters, &fakeWaiter{
		deadline: f.current.Add(d),
		channel:  channel,
	})
	return channel
}

// AfterFunc registers f to run when the clock advances past the
// deadline. If d <= 0, f runs before AfterFunc returns.
func (f *Fake) AfterFunc(d time.Duration, fn func()) *Timer {
	f.mu.Lock()
	if d <= 0 {
		f.mu.Unlock()
		fn()
		return &Timer{
			stop:  func() bool { return false },
			reset: func(time.Duration) bool { return false },
		}
	}
	waiter := &fakeWaiter{
		deadline: f.current.Add(d),
		callback: fn,
	}
	f.waiters = append(f.waiters, waiter)
	f.mu.Unlock()

	return &Timer{
		stop: func() bool {
			f.mu.Lock()
			defer f.mu.Unlock()
			wasPending := !waiter.stopped && !waiter.fired
			waiter.stopped = true
			return wasPending
		},
		reset: func(d time.Duration) bool {
			f.mu.Lock()
			defer f.mu.Unlock()
			wasPending := !waiter.stopped && !waiter.fired
			waiter.deadline = f.current.Add(d)
			waiter.stopped = false
			waiter.fired = false
			return wasPending
		},
	}
}

// Advance moves the clock forward by d, firing every waiter whose
// deadline falls within the advanced interval, in deadline order.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.current.Add(d)

	for {
		next := f.nextDueLocked(target)
		if next == nil {
			break
		}
		next.fired = true
		if !next.deadline.After(f.current) {
			// Deadline already passed; fire at current time.
			next.deadline = f.current
		}
		f.current = next.deadline
		if next.channel != nil {
			next.channel <- f.current
		}
		if next.callback != nil {
			// Run without the lock so the callback can register
			// new waiters (e.g. a debounce re-arm).
			callback := next.callback
			f.mu.Unlock()
			callback()
			f.mu.Lock()
		}
	}

	f.current = target
	f.compactLocked()
	f.mu.Unlock()
}

// nextDueLocked returns the unfired, unstopped waiter with the
// earliest deadline at or before target, or nil.
func (f *Fake) nextDueLocked(target time.Time) *fakeWaiter {
	var next *fakeWaiter
	for _, w := range f.waiters {
		if w.stopped || w.fired || w.deadline.After(target) {
			continue
		}
		if next == nil || w.deadline.Before(next.deadline) {
			next = w
		}
	}
	return next
}

// compactLocked drops fired and stopped waiters.
func (f *Fake) compactLocked() {
	kept := f.waiters[:0]
	for _, w := range f.waiters {
		if !w.stopped && !w.fired {
			kept = append(kept, w)
		}
	}
	f.waiters = kept
}
