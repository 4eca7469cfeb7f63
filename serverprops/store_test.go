// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package serverprops

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dreamvisitor/dashboard/gateway"
	"github.com/dreamvisitor/dashboard/lib/clock"
)

// propsServer emulates the gateway endpoints the Store touches: the
// server_config list, the file download, and multipart create/update.
type propsServer struct {
	t        *testing.T
	recordID string
	filename string
	content  string
	updates  int
	creates  int
}

func (p *propsServer) record() map[string]any {
	return map[string]any{
		"id":             p.recordID,
		"collectionName": Collection,
		FileField:        p.filename,
	}
}

func (p *propsServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/collections/server_config/records":
		items := []map[string]any{}
		if p.recordID != "" {
			items = append(items, p.record())
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"page": 1, "perPage": 1, "totalItems": len(items), "totalPages": 1,
			"items": items,
		})
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/files/"):
		_, _ = io.WriteString(w, p.content)
	case r.Method == http.MethodPatch && r.URL.Path == "/api/collections/server_config/records/"+p.recordID:
		p.updates++
		p.storeUpload(r)
		writeJSON(w, http.StatusOK, p.record())
	case r.Method == http.MethodPost && r.URL.Path == "/api/collections/server_config/records":
		p.creates++
		p.recordID = "sc-created"
		p.storeUpload(r)
		writeJSON(w, http.StatusOK, p.record())
	default:
		p.t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func (p *propsServer) storeUpload(r *http.Request) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		p.t.Errorf("parsing multipart upload: %v", err)
		return
	}
	file, header, err := r.FormFile(FileField)
	if err != nil {
		p.t.Errorf("upload missing %q part: %v", FileField, err)
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		p.t.Errorf("reading upload: %v", err)
		return
	}
	p.filename = header.Filename
	p.content = string(content)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestStore(t *testing.T, server *propsServer) *Store {
	t.Helper()
	server.t = t
	httpServer := httptest.NewServer(server)
	t.Cleanup(httpServer.Close)

	client, err := gateway.NewClient(gateway.ClientConfig{BaseURL: httpServer.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	clk := clock.NewFake(time.Date(2026, time.August, 31, 10, 0, 0, 0, time.UTC))
	return NewStore(client, clk, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestStoreLoadParsesFile(t *testing.T) {
	store := newTestStore(t, &propsServer{
		recordID: "sc1",
		filename: "server_properties_x.properties",
		content:  "max-players=20\nwhite-list=true\n",
	})

	props, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := props["maxPlayers"]; got != 20 {
		t.Errorf("maxPlayers = %#v", got)
	}
	if got := props["whiteList"]; got != true {
		t.Errorf("whiteList = %#v", got)
	}
}

func TestStoreLoadWithoutFileIsEmpty(t *testing.T) {
	store := newTestStore(t, &propsServer{recordID: "sc1"})

	props, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(props) != 0 {
		t.Fatalf("props = %#v, want empty", props)
	}
}

func TestStoreLoadMissingRecordIsNotFound(t *testing.T) {
	store := newTestStore(t, &propsServer{})

	_, err := store.Load(context.Background())
	if !gateway.IsNotFound(err) {
		t.Fatalf("Load error = %v, want not-found", err)
	}
}

func TestStoreSaveUpdatesExistingRecord(t *testing.T) {
	server := &propsServer{
		recordID: "sc1",
		filename: "old.properties",
		content:  "max-players=20\n",
	}
	store := newTestStore(t, server)
	if _, err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	saved, err := store.Save(context.Background(), gateway.Record{"maxPlayers": 30})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if server.updates != 1 || server.creates != 0 {
		t.Fatalf("updates=%d creates=%d, want 1/0", server.updates, server.creates)
	}
	if !strings.Contains(server.content, "max-players=30\n") {
		t.Errorf("uploaded content missing edit:\n%s", server.content)
	}
	if !strings.HasPrefix(server.content, "#Minecraft server properties\n") {
		t.Errorf("uploaded content missing header:\n%s", server.content)
	}
	if got := saved["maxPlayers"]; got != 30 {
		t.Errorf("saved record maxPlayers = %#v", got)
	}
}

func TestStoreSaveCreatesMissingRecord(t *testing.T) {
	server := &propsServer{}
	store := newTestStore(t, server)

	if _, err := store.Save(context.Background(), gateway.Record{"motd": "hello"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if server.creates != 1 {
		t.Fatalf("creates = %d, want 1", server.creates)
	}

	// The next save is an update against the created record.
	if _, err := store.Save(context.Background(), gateway.Record{"motd": "again"}); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	if server.updates != 1 {
		t.Fatalf("updates = %d, want 1", server.updates)
	}
}
