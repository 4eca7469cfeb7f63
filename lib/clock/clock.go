// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time operations for testability. Production
// code injects Real(); tests inject NewFake() and advance time
// deterministically. Every component that debounces, delays, or
// timestamps accepts a Clock instead of calling the time package
// directly.
package clock

import "time"

// Clock provides the time operations used by the dashboard: current
// time for feed timestamps and serialization headers, and delayed
// callbacks for debouncing, transient indicators, and highlight fades.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the fire time once
	// duration d has elapsed.
	After(d time.Duration) <-chan time.Time

	// AfterFunc schedules f to run after duration d. The returned
	// Timer can cancel the pending call with Stop or re-arm it with
	// Reset. If d <= 0, f runs before AfterFunc returns.
	AfterFunc(d time.Duration, f func()) *Timer
}

// Timer is a handle to a pending AfterFunc call.
type Timer struct {
	stop  func() bool
	reset func(time.Duration) bool
}

// Stop cancels the pending call. Reports whether the call was still
// pending. Safe to call multiple times.
func (t *Timer) Stop() bool { return t.stop() }

// Reset re-arms the timer to fire after duration d, replacing the
// previous deadline. Reports whether the call was still pending.
func (t *Timer) Reset(d time.Duration) bool { return t.reset(d) }

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (realClock) AfterFunc(d time.Duration, f func()) *Timer {
	if d <= 0 {
		f()
		return &Timer{
			stop:  func() bool { return false },
			reset: func(time.Duration) bool { return false },
		}
	}
	timer := time.AfterFunc(d, f)
	return &Timer{stop: timer.Stop, reset: timer.Reset}
}
