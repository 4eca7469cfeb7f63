// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/dreamvisitor/dashboard/lib/testutil"
)

// sseServer is a minimal realtime endpoint: it emits the connect
// event, records subscription registrations, and lets the test push
// events to the open stream.
type sseServer struct {
	mu     sync.Mutex
	topics []string
	events chan string

	registered chan struct{}
}

func newSSEServer() *sseServer {
	return &sseServer{
		events:     make(chan string, 16),
		registered: make(chan struct{}, 4),
	}
}

func (s *sseServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var payload struct {
			ClientID      string   `json:"clientId"`
			Subscriptions []string `json:"subscriptions"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		s.mu.Lock()
		s.topics = payload.Subscriptions
		s.mu.Unlock()
		s.registered <- struct{}{}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	flusher := w.(http.Flusher)
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "event: PB_CONNECT\ndata: {\"clientId\":\"c1\"}\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case raw := <-s.events:
			fmt.Fprint(w, raw)
			flusher.Flush()
		}
	}
}

func (s *sseServer) push(topic string, event SubscriptionEvent) {
	data, _ := json.Marshal(event)
	s.events <- fmt.Sprintf("event: %s\ndata: %s\n\n", topic, data)
}

func TestSubscribeDeliversEvents(t *testing.T) {
	sse := newSSEServer()
	client, _ := newTestClient(t, sse)

	received := make(chan SubscriptionEvent, 4)
	unsubscribe, err := client.Subscribe("commands", func(e SubscriptionEvent) {
		received <- e
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer unsubscribe()

	testutil.RequireReceive(t, sse.registered, 5*time.Second, "subscription registration")
	sse.mu.Lock()
	topics := sse.topics
	sse.mu.Unlock()
	if len(topics) != 1 || topics[0] != "commands" {
		t.Fatalf("registered topics = %v", topics)
	}

	sse.push("commands", SubscriptionEvent{
		Action: "update",
		Record: Record{"id": "cmd1", "status": "failed"},
	})

	event := testutil.RequireReceive(t, received, 5*time.Second, "pushed event")
	if event.Action != "update" || event.Record.ID() != "cmd1" {
		t.Errorf("event = %+v", event)
	}
}

func TestSubscribeTopicIsolation(t *testing.T) {
	sse := newSSEServer()
	client, _ := newTestClient(t, sse)

	logEvents := make(chan SubscriptionEvent, 4)
	unsubLogs, err := client.Subscribe("logs", func(e SubscriptionEvent) { logEvents <- e })
	if err != nil {
		t.Fatalf("Subscribe logs: %v", err)
	}
	defer unsubLogs()
	testutil.RequireReceive(t, sse.registered, 5*time.Second, "logs registration")

	// An event for a different topic must not reach the logs handler.
	sse.push("commands", SubscriptionEvent{Action: "create", Record: Record{"id": "c1"}})
	sse.push("logs", SubscriptionEvent{Action: "create", Record: Record{"id": "l1"}})

	event := testutil.RequireReceive(t, logEvents, 5*time.Second, "logs event")
	if event.Record.ID() != "l1" {
		t.Errorf("logs handler got %q", event.Record.ID())
	}
	testutil.RequireNoReceive(t, logEvents, 100*time.Millisecond, "cross-topic leak")
}

func TestUnsubscribeIdempotent(t *testing.T) {
	sse := newSSEServer()
	client, _ := newTestClient(t, sse)

	unsubscribe, err := client.Subscribe("config/cfg1", func(SubscriptionEvent) {})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	testutil.RequireReceive(t, sse.registered, 5*time.Second, "registration")

	unsubscribe()
	unsubscribe() // second call must be a no-op
}
