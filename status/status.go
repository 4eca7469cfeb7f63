// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

// Package status watches the read-only server status record shown in
// the dashboard header: player count, tick timings, and reachability.
package status

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dreamvisitor/dashboard/gateway"
)

// Collection holds the singleton server status record, written by the
// bot on a fixed interval.
const Collection = "server_status"

// Snapshot is one observation of the server's health.
type Snapshot struct {
	Online      bool
	PlayerCount int
	PlayerLimit int
	TPS         float64
	MSPT        float64
}

// Watcher keeps the latest Snapshot current via an initial fetch plus
// a realtime subscription.
type Watcher struct {
	client   *gateway.Client
	logger   *slog.Logger
	onChange func()

	mu       sync.Mutex
	snapshot Snapshot
	loaded   bool
}

// NewWatcher returns a Watcher. onChange, if non-nil, runs after every
// snapshot update.
func NewWatcher(client *gateway.Client, logger *slog.Logger, onChange func()) *Watcher {
	return &Watcher{
		client:   client,
		logger:   logger.With("component", "status"),
		onChange: onChange,
	}
}

// Snapshot returns the latest observation and whether one has loaded.
func (w *Watcher) Snapshot() (Snapshot, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot, w.loaded
}

// Load fetches the current status record. A missing record means the
// bot has never reported: the server shows as offline, not an error.
func (w *Watcher) Load(ctx context.Context) error {
	record, err := w.client.GetFirst(ctx, Collection, gateway.Query{})
	if gateway.IsNotFound(err) {
		w.adopt(Snapshot{})
		return nil
	}
	if err != nil {
		return err
	}
	w.adopt(snapshot(record))
	return nil
}

// Watch subscribes to status updates. The returned function cancels
// the subscription.
func (w *Watcher) Watch() (func(), error) {
	return w.client.Subscribe(Collection, func(event gateway.SubscriptionEvent) {
		w.adopt(snapshot(event.Record))
	})
}

func (w *Watcher) adopt(s Snapshot) {
	w.mu.Lock()
	w.snapshot = s
	w.loaded = true
	w.mu.Unlock()
	if w.onChange != nil {
		w.onChange()
	}
}

func snapshot(record gateway.Record) Snapshot {
	return Snapshot{
		Online:      record.GetBool("online"),
		PlayerCount: record.GetInt("playerCount"),
		PlayerLimit: record.GetInt("playerLimit"),
		TPS:         record.GetFloat("tps"),
		MSPT:        record.GetFloat("mspt"),
	}
}
