// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package status

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dreamvisitor/dashboard/gateway"
)

func newTestWatcher(t *testing.T, items ...map[string]any) *Watcher {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if items == nil {
			items = []map[string]any{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"page": 1, "perPage": 1, "totalItems": len(items), "totalPages": 1,
			"items": items,
		})
	}))
	t.Cleanup(server.Close)

	client, err := gateway.NewClient(gateway.ClientConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return NewWatcher(client, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
}

func TestLoad(t *testing.T) {
	watcher := newTestWatcher(t, map[string]any{
		"id": "st1", "online": true,
		"playerCount": 12.0, "playerLimit": 20.0,
		"tps": 19.8, "mspt": 42.5,
	})

	if _, loaded := watcher.Snapshot(); loaded {
		t.Fatal("snapshot loaded before Load")
	}
	if err := watcher.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	snapshot, loaded := watcher.Snapshot()
	if !loaded {
		t.Fatal("snapshot not loaded")
	}
	if !snapshot.Online || snapshot.PlayerCount != 12 || snapshot.PlayerLimit != 20 {
		t.Errorf("snapshot = %+v", snapshot)
	}
	if snapshot.TPS != 19.8 || snapshot.MSPT != 42.5 {
		t.Errorf("tick timings = %+v", snapshot)
	}
}

func TestLoadMissingRecordIsOffline(t *testing.T) {
	watcher := newTestWatcher(t)

	if err := watcher.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	snapshot, loaded := watcher.Snapshot()
	if !loaded {
		t.Fatal("snapshot not loaded")
	}
	if snapshot.Online {
		t.Error("missing status record reported online")
	}
}

func TestOnChangeFires(t *testing.T) {
	changes := 0
	watcher := newTestWatcher(t, map[string]any{"id": "st1", "online": true})
	watcher.onChange = func() { changes++ }

	if err := watcher.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if changes != 1 {
		t.Errorf("changes = %d, want 1", changes)
	}
}
