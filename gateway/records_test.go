// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client, server
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestGetOne(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/collections/users/records/abc123" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("expand"); got != "infractions" {
			t.Errorf("expand = %q", got)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":       "abc123",
			"username": "stonley",
			"balance":  42.5,
		})
	}))

	record, err := client.GetOne(context.Background(), "users", "abc123", Query{Expand: "infractions"})
	if err != nil {
		t.Fatalf("GetOne: %v", err)
	}
	if record.ID() != "abc123" {
		t.Errorf("ID = %q", record.ID())
	}
	if record.GetString("username") != "stonley" {
		t.Errorf("username = %q", record.GetString("username"))
	}
	if record.GetFloat("balance") != 42.5 {
		t.Errorf("balance = %v", record.GetFloat("balance"))
	}
}

func TestGetOneNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"status":  404,
			"message": "The requested resource wasn't found.",
		})
	}))

	_, err := client.GetOne(context.Background(), "users", "missing", Query{})
	if !IsNotFound(err) {
		t.Fatalf("IsNotFound = false for %v", err)
	}
	if IsAuth(err) || IsValidation(err) || IsServer(err) {
		t.Errorf("error misclassified: %v", err)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		status int
		check  func(error) bool
		name   string
	}{
		{http.StatusUnauthorized, IsAuth, "auth 401"},
		{http.StatusForbidden, IsAuth, "auth 403"},
		{http.StatusBadRequest, IsValidation, "validation 400"},
		{http.StatusNotFound, IsNotFound, "not found 404"},
		{http.StatusInternalServerError, IsServer, "server 500"},
		{http.StatusBadGateway, IsServer, "server 502"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, map[string]any{"status": tt.status, "message": "nope"})
			}))
			_, err := client.GetOne(context.Background(), "users", "x", Query{})
			if err == nil {
				t.Fatal("expected error")
			}
			if !tt.check(err) {
				t.Errorf("classifier rejected %v", err)
			}
		})
	}
}

func TestGetList(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("page") != "2" || q.Get("perPage") != "25" {
			t.Errorf("paging params = %v", q)
		}
		if q.Get("filter") != `username ~ "stone"` {
			t.Errorf("filter = %q", q.Get("filter"))
		}
		if q.Get("sort") != "-created" {
			t.Errorf("sort = %q", q.Get("sort"))
		}
		writeJSON(w, http.StatusOK, ResultList{
			Page: 2, PerPage: 25, TotalItems: 26, TotalPages: 2,
			Items: []Record{{"id": "u26"}},
		})
	}))

	list, err := client.GetList(context.Background(), "users", 2, 25, Query{
		Filter: `username ~ "stone"`,
		Sort:   "-created",
	})
	if err != nil {
		t.Fatalf("GetList: %v", err)
	}
	if list.TotalItems != 26 || len(list.Items) != 1 {
		t.Errorf("list = %+v", list)
	}
}

func TestGetFirstEmptyCollectionIsNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ResultList{Page: 1, TotalPages: 0})
	}))

	_, err := client.GetFirst(context.Background(), "config", Query{})
	if !IsNotFound(err) {
		t.Fatalf("empty collection: IsNotFound = false for %v", err)
	}
}

func TestGetFullListPages(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		switch page {
		case "1":
			items := make([]Record, fullListBatchSize)
			for i := range items {
				items[i] = Record{"id": fmt.Sprintf("a%d", i)}
			}
			writeJSON(w, http.StatusOK, ResultList{Page: 1, TotalPages: 2, Items: items})
		case "2":
			writeJSON(w, http.StatusOK, ResultList{Page: 2, TotalPages: 2, Items: []Record{{"id": "last"}}})
		default:
			t.Errorf("unexpected page %q", page)
		}
	}))

	records, err := client.GetFullList(context.Background(), "logs", 0, Query{})
	if err != nil {
		t.Fatalf("GetFullList: %v", err)
	}
	if len(records) != fullListBatchSize+1 {
		t.Errorf("len = %d, want %d", len(records), fullListBatchSize+1)
	}
	if records[len(records)-1].ID() != "last" {
		t.Errorf("last id = %q", records[len(records)-1].ID())
	}
}

func TestGetFullListLimit(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		items := make([]Record, fullListBatchSize)
		for i := range items {
			items[i] = Record{"id": fmt.Sprintf("r%d", i)}
		}
		writeJSON(w, http.StatusOK, ResultList{Page: 1, TotalPages: 5, Items: items})
	}))

	records, err := client.GetFullList(context.Background(), "logs", 10, Query{})
	if err != nil {
		t.Fatalf("GetFullList: %v", err)
	}
	if len(records) != 10 {
		t.Errorf("len = %d, want 10", len(records))
	}
}

func TestCreateAndUpdate(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			var payload map[string]any
			_ = json.NewDecoder(r.Body).Decode(&payload)
			if payload["value"] != float64(5) {
				t.Errorf("create payload = %v", payload)
			}
			writeJSON(w, http.StatusOK, map[string]any{"id": "new1", "value": 5})
		case r.Method == http.MethodPatch:
			if r.URL.Path != "/api/collections/infractions/records/new1" {
				t.Errorf("update path = %q", r.URL.Path)
			}
			writeJSON(w, http.StatusOK, map[string]any{"id": "new1", "value": 7})
		default:
			t.Errorf("method = %q", r.Method)
		}
	}))

	created, err := client.Create(context.Background(), "infractions", map[string]any{"value": 5}, Query{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID() != "new1" {
		t.Errorf("created id = %q", created.ID())
	}

	updated, err := client.Update(context.Background(), "infractions", "new1", map[string]any{"value": 7}, Query{})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.GetInt("value") != 7 {
		t.Errorf("updated value = %d", updated.GetInt("value"))
	}
}

func TestUpdateWithoutIDRejected(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request reached server")
	}))
	if _, err := client.Update(context.Background(), "config", "", nil, Query{}); err == nil {
		t.Fatal("Update with empty id succeeded")
	}
}

func TestRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(func() {
		close(release)
		server.Close()
	})

	client, err := NewClient(ClientConfig{BaseURL: server.URL, RequestTimeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.GetOne(context.Background(), "users", "abc123", Query{})
	if err == nil {
		t.Fatal("request outlasting the timeout succeeded")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded in the chain", err)
	}
}
