// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package botconfig

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

// configServer emulates the config and locations collections.
type configServer struct {
	t               *testing.T
	config          map[string]any
	location        map[string]any
	configUpdates   int
	configCreates   int
	locationUpdates int
	locationCreates int
}

func (c *configServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/collections/config/records":
		items := []map[string]any{}
		if c.config != nil {
			items = append(items, c.config)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"page": 1, "perPage": 1, "totalItems": len(items), "totalPages": 1,
			"items": items,
		})
	case r.Method == http.MethodPatch && r.URL.Path == "/api/collections/config/records/cfg1":
		c.configUpdates++
		c.mergeConfig(r)
		writeJSON(w, http.StatusOK, c.config)
	case r.Method == http.MethodPost && r.URL.Path == "/api/collections/config/records":
		c.configCreates++
		c.config = map[string]any{"id": "cfg-created"}
		c.mergeConfig(r)
		writeJSON(w, http.StatusOK, c.config)
	case r.Method == http.MethodPatch && r.URL.Path == "/api/collections/locations/records/loc1":
		c.locationUpdates++
		c.mergeLocation(r)
		writeJSON(w, http.StatusOK, c.location)
	case r.Method == http.MethodPost && r.URL.Path == "/api/collections/locations/records":
		c.locationCreates++
		c.location = map[string]any{"id": "loc-created"}
		c.mergeLocation(r)
		writeJSON(w, http.StatusOK, c.location)
	default:
		c.t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func (c *configServer) mergeConfig(r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		c.t.Errorf("decoding config payload: %v", err)
		return
	}
	for key, value := range payload {
		c.config[key] = value
	}
}

func (c *configServer) mergeLocation(r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		c.t.Errorf("decoding location payload: %v", err)
		return
	}
	for key, value := range payload {
		c.location[key] = value
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestStore(t *testing.T, server *configServer) *Store {
	t.Helper()
	server.t = t
	httpServer := httptest.NewServer(server)
	t.Cleanup(httpServer.Close)

	client, err := gateway.NewClient(gateway.ClientConfig{BaseURL: httpServer.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return NewStore(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNormalizeCoercesTypes(t *testing.T) {
	// JSON decoding turns every number into float64; ints must narrow
	// and nulls must become defaults.
	record := Normalize(gateway.Record{
		"id":                   "cfg1",
		"debug":                true,
		"playerLimitOverride":  float64(20),
		"dailyBaseAmount":      float64(12.5),
		"infractionExpireTime": nil,
		"websiteUrl":           "https://woftnw.org",
		"unknownField":         "dropped",
	})

	if got := record["debug"]; got != true {
		t.Errorf("debug = %#v", got)
	}
	if got := record["playerLimitOverride"]; got != 20 {
		t.Errorf("playerLimitOverride = %#v, want int 20", got)
	}
	if got := record["dailyBaseAmount"]; got != 12.5 {
		t.Errorf("dailyBaseAmount = %#v", got)
	}
	if got := record["infractionExpireTime"]; got != 90 {
		t.Errorf("null infractionExpireTime = %#v, want default 90", got)
	}
	if got := record["websiteUrl"]; got != "https://woftnw.org" {
		t.Errorf("websiteUrl = %#v", got)
	}
	if _, ok := record["unknownField"]; ok {
		t.Error("unknown field survived normalization")
	}
	if got := record.ID(); got != "cfg1" {
		t.Errorf("id = %q", got)
	}
}

func TestNormalizeDefaultsForMissingFields(t *testing.T) {
	record := Normalize(gateway.Record{})

	if got := record["playerLimitOverride"]; got != -1 {
		t.Errorf("playerLimitOverride default = %#v, want -1", got)
	}
	if got := record["webWhitelist"]; got != true {
		t.Errorf("webWhitelist default = %#v, want true", got)
	}
	if got := record["shopName"]; got != "Shop" {
		t.Errorf("shopName default = %#v", got)
	}
	location, ok := record["hubLocation"].(map[string]any)
	if !ok {
		t.Fatalf("hubLocation = %#v, want location map", record["hubLocation"])
	}
	if got := location["world"]; got != "" {
		t.Errorf("hubLocation.world = %#v", got)
	}
}

func TestNormalizeExpandsHubLocation(t *testing.T) {
	record := Normalize(gateway.Record{
		"id":          "cfg1",
		"hubLocation": "loc1",
		"expand": map[string]any{
			"hubLocation": map[string]any{
				"id": "loc1", "x": 100.5, "y": 64.0, "z": -20.0,
				"pitch": 0.0, "yaw": 90.0, "world": "world",
			},
		},
	})

	location, ok := record["hubLocation"].(map[string]any)
	if !ok {
		t.Fatalf("hubLocation = %#v", record["hubLocation"])
	}
	if got := location["id"]; got != "loc1" {
		t.Errorf("location id = %#v", got)
	}
	if got := location["x"]; got != 100.5 {
		t.Errorf("location x = %#v", got)
	}
	if got := location["world"]; got != "world" {
		t.Errorf("location world = %#v", got)
	}
}

func TestLoadMissingRecordYieldsDefaults(t *testing.T) {
	store := newTestStore(t, &configServer{})

	record, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if record.ID() != "" {
		t.Errorf("id = %q, want empty for missing singleton", record.ID())
	}
	if got := record["infractionExpireTime"]; got != 90 {
		t.Errorf("infractionExpireTime = %#v", got)
	}
}

func TestSaveUpsertsLocationBeforeParent(t *testing.T) {
	server := &configServer{
		config:   map[string]any{"id": "cfg1", "debug": false, "hubLocation": "loc1"},
		location: map[string]any{"id": "loc1", "x": 0.0, "world": "world"},
	}
	store := newTestStore(t, server)

	draft := Normalize(gateway.Record{"id": "cfg1", "debug": false})
	draft["debug"] = true
	draft["hubLocation"] = map[string]any{
		"id": "loc1", "x": 50.0, "y": 70.0, "z": 0.0,
		"pitch": 0.0, "yaw": 0.0, "world": "world",
	}

	saved, err := store.Save(context.Background(), draft)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if server.locationUpdates != 1 {
		t.Fatalf("location updates = %d, want 1", server.locationUpdates)
	}
	if server.configUpdates != 1 {
		t.Fatalf("config updates = %d, want 1", server.configUpdates)
	}
	if got := server.config["hubLocation"]; got != "loc1" {
		t.Errorf("parent hubLocation = %#v, want location id", got)
	}
	if got := server.location["x"]; got != 50.0 {
		t.Errorf("location x = %#v, want 50", got)
	}
	location, _ := saved["hubLocation"].(map[string]any)
	if location == nil || location["x"] != 50.0 {
		t.Errorf("saved hubLocation = %#v", saved["hubLocation"])
	}
}

func TestSaveCreatesLocationWithoutID(t *testing.T) {
	server := &configServer{
		config: map[string]any{"id": "cfg1"},
	}
	store := newTestStore(t, server)

	draft := Normalize(gateway.Record{"id": "cfg1"})
	draft["hubLocation"] = map[string]any{
		"id": "", "x": 1.0, "y": 2.0, "z": 3.0,
		"pitch": 0.0, "yaw": 0.0, "world": "hub",
	}

	saved, err := store.Save(context.Background(), draft)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if server.locationCreates != 1 {
		t.Fatalf("location creates = %d, want 1", server.locationCreates)
	}
	if got := server.config["hubLocation"]; got != "loc-created" {
		t.Errorf("parent hubLocation = %#v", got)
	}
	location, _ := saved["hubLocation"].(map[string]any)
	if location == nil || location["id"] != "loc-created" {
		t.Errorf("saved hubLocation = %#v", saved["hubLocation"])
	}
}

func TestSaveUntouchedLocationSkipsUpsert(t *testing.T) {
	server := &configServer{
		config: map[string]any{"id": "cfg1"},
	}
	store := newTestStore(t, server)

	draft := Normalize(gateway.Record{"id": "cfg1"})
	draft["debug"] = true
	if _, err := store.Save(context.Background(), draft); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if server.locationCreates != 0 || server.locationUpdates != 0 {
		t.Fatalf("untouched location hit the store: creates=%d updates=%d",
			server.locationCreates, server.locationUpdates)
	}
}

func TestSaveCreatesMissingConfig(t *testing.T) {
	server := &configServer{}
	store := newTestStore(t, server)

	draft := Normalize(gateway.Record{})
	draft["debug"] = true
	saved, err := store.Save(context.Background(), draft)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if server.configCreates != 1 {
		t.Fatalf("config creates = %d, want 1", server.configCreates)
	}
	if saved.ID() != "cfg-created" {
		t.Errorf("saved id = %q", saved.ID())
	}
}
