// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

// Package console merges server log lines and issued commands into one
// chronological transcript, tracks command execution status, and walks
// the operator through unacknowledged failures.
package console

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dreamvisitor/dashboard/lib/clock"
)

// Kind distinguishes the two feed item shapes.
type Kind string

const (
	KindLog     Kind = "log"
	KindCommand Kind = "command"
)

// Status is a command's execution state. Log items have no status.
type Status string

const (
	StatusSent     Status = "sent"
	StatusReceived Status = "received"
	StatusExecuted Status = "executed"
	StatusFailed   Status = "failed"
)

// Item is one transcript entry.
type Item struct {
	Kind      Kind
	ID        string
	Text      string
	Status    Status
	Timestamp time.Time
	// ClientID links an optimistic local command to its authoritative
	// echo: the submitter generates it and embeds it in the create
	// payload, and the echo carries it back.
	ClientID string
	// Local marks an optimistic entry not yet confirmed by the server.
	Local bool
}

// DefaultHighlightDelay is how long a failure stays highlighted after
// the cursor visits it before it counts as viewed.
const DefaultHighlightDelay = 1500 * time.Millisecond

// FeedConfig carries Feed dependencies.
type FeedConfig struct {
	Clock clock.Clock

	// HistoryLimit caps the transcript length; the oldest items are
	// dropped past it. Zero means unlimited.
	HistoryLimit int

	// HighlightDelay overrides DefaultHighlightDelay when positive.
	HighlightDelay time.Duration

	// OnChange, if set, runs after every observable mutation.
	OnChange func()
}

// Feed is the merged transcript. Safe for concurrent use: realtime
// handlers ingest while the UI reads and submits.
type Feed struct {
	clock          clock.Clock
	historyLimit   int
	highlightDelay time.Duration
	onChange       func()

	mu      sync.Mutex
	items   []Item
	pending map[string]bool
	viewed  map[string]bool
	// cursorOrder is the visual order of failed items supplied by the
	// view at jump time; cursor indexes into it.
	cursorOrder []string
	cursor      int
}

// NewFeed returns an empty Feed.
func NewFeed(cfg FeedConfig) *Feed {
	delay := cfg.HighlightDelay
	if delay <= 0 {
		delay = DefaultHighlightDelay
	}
	return &Feed{
		clock:          cfg.Clock,
		historyLimit:   cfg.HistoryLimit,
		highlightDelay: delay,
		onChange:       cfg.OnChange,
		pending:        make(map[string]bool),
		viewed:         make(map[string]bool),
	}
}

// Ingest merges items from the bulk fetch or the realtime stream into
// the transcript: ascending timestamp order, composite-key dedupe, and
// two replacement rules — an echo matching a pending client id
// collapses the optimistic local copy, and an update for a known
// command id replaces it in place (a status transition, not a new
// entry).
func (f *Feed) Ingest(items ...Item) {
	f.mu.Lock()
	changed := false
	for _, item := range items {
		if f.ingestLocked(item) {
			changed = true
		}
	}
	if changed {
		f.trimLocked()
	}
	f.mu.Unlock()
	if changed {
		f.notify()
	}
}

func (f *Feed) ingestLocked(item Item) bool {
	if item.Kind == KindCommand && !item.Local {
		if item.ClientID != "" && f.pending[item.ClientID] {
			delete(f.pending, item.ClientID)
			for i := range f.items {
				if f.items[i].Local && f.items[i].ClientID == item.ClientID {
					f.items[i] = item
					f.sortLocked()
					return true
				}
			}
		}
		for i := range f.items {
			if f.items[i].Kind == KindCommand && !f.items[i].Local && f.items[i].ID == item.ID {
				if f.items[i] == item {
					return false
				}
				f.items[i] = item
				f.sortLocked()
				return true
			}
		}
	}

	for _, existing := range f.items {
		if existing.Kind == item.Kind && existing.ID == item.ID && existing.Timestamp.Equal(item.Timestamp) {
			return false
		}
	}

	f.items = append(f.items, item)
	f.sortLocked()
	return true
}

func (f *Feed) sortLocked() {
	sort.SliceStable(f.items, func(i, j int) bool {
		return f.items[i].Timestamp.Before(f.items[j].Timestamp)
	})
}

func (f *Feed) trimLocked() {
	if f.historyLimit <= 0 || len(f.items) <= f.historyLimit {
		return
	}
	dropped := f.items[:len(f.items)-f.historyLimit]
	for _, item := range dropped {
		delete(f.viewed, item.ID)
	}
	f.items = append([]Item(nil), f.items[len(f.items)-f.historyLimit:]...)
}

// Items returns a copy of the transcript in display order.
func (f *Feed) Items() []Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Item(nil), f.items...)
}

// Submit validates command text and appends an optimistic local entry.
// The text is trimmed; empty submissions are rejected. The returned
// item carries the client id the caller must embed in the create
// payload so the echo collapses the local copy.
func (f *Feed) Submit(text string) (Item, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Item{}, false
	}
	clientID := uuid.NewString()
	item := Item{
		Kind:      KindCommand,
		ID:        clientID,
		Text:      text,
		Status:    StatusSent,
		Timestamp: f.clock.Now(),
		ClientID:  clientID,
		Local:     true,
	}

	f.mu.Lock()
	f.pending[clientID] = true
	f.items = append(f.items, item)
	f.sortLocked()
	f.trimLocked()
	f.mu.Unlock()
	f.notify()
	return item, true
}

// MarkFailed transitions a pending local command to failed, for
// submissions the gateway rejected outright.
func (f *Feed) MarkFailed(clientID string) {
	f.mu.Lock()
	changed := false
	for i := range f.items {
		if f.items[i].Local && f.items[i].ClientID == clientID {
			f.items[i].Status = StatusFailed
			changed = true
			break
		}
	}
	delete(f.pending, clientID)
	f.mu.Unlock()
	if changed {
		f.notify()
	}
}

// Failed returns the failed-status items in transcript order.
func (f *Feed) Failed() []Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	var failed []Item
	for _, item := range f.items {
		if item.Kind == KindCommand && item.Status == StatusFailed {
			failed = append(failed, item)
		}
	}
	return failed
}

// UnviewedFailures counts failed items the operator has not been
// walked to yet. This is the badge value.
func (f *Feed) UnviewedFailures() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, item := range f.items {
		if item.Kind == KindCommand && item.Status == StatusFailed && !f.viewed[item.ID] {
			count++
		}
	}
	return count
}

// Viewed reports whether a failure has been acknowledged.
func (f *Feed) Viewed(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.viewed[id]
}

// SetFailureOrder records the on-screen order of failed items as the
// view laid them out. The jump cursor walks this order, not the data
// order, because vertical position is the operator's navigation frame.
// Resetting the order rewinds the cursor.
func (f *Feed) SetFailureOrder(ids []string) {
	f.mu.Lock()
	f.cursorOrder = append([]string(nil), ids...)
	f.cursor = 0
	f.mu.Unlock()
}

// NextFailure advances the cursor to the next on-screen failure,
// wrapping to the first after the last, and schedules the visited item
// to count as viewed after the highlight delay. Returns false when no
// order is set or it is empty.
func (f *Feed) NextFailure() (string, bool) {
	f.mu.Lock()
	if len(f.cursorOrder) == 0 {
		f.mu.Unlock()
		return "", false
	}
	id := f.cursorOrder[f.cursor%len(f.cursorOrder)]
	f.cursor++
	alreadyViewed := f.viewed[id]
	f.mu.Unlock()

	if !alreadyViewed {
		f.clock.AfterFunc(f.highlightDelay, func() {
			f.mu.Lock()
			f.viewed[id] = true
			f.mu.Unlock()
			f.notify()
		})
	}
	return id, true
}

func (f *Feed) notify() {
	if f.onChange != nil {
		f.onChange()
	}
}
