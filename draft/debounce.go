// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package draft

import (
	"sync"
	"time"

	"github.com/dreamvisitor/dashboard/lib/clock"
)

// Debouncer coalesces bursts of calls into one trailing invocation.
// The user search input uses it so a typing burst issues one gateway
// query rather than one per keystroke.
type Debouncer struct {
	clock clock.Clock
	delay time.Duration

	mu    sync.Mutex
	timer *clock.Timer
}

// NewDebouncer returns a Debouncer firing delay after the last Trigger.
func NewDebouncer(clk clock.Clock, delay time.Duration) *Debouncer {
	return &Debouncer{clock: clk, delay: delay}
}

// Trigger schedules fn to run after the delay, replacing any pending
// invocation. Only the last fn of a burst runs.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.clock.AfterFunc(d.delay, fn)
}

// Stop cancels any pending invocation.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
