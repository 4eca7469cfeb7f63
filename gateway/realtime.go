// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// SubscriptionEvent is a remote change notification: the gateway
// pushed a write to a subscribed collection or record.
type SubscriptionEvent struct {
	// Action is "create", "update", or "delete".
	Action string `json:"action"`
	// Record is the affected record as of the write.
	Record Record `json:"record"`
}

// Handler receives subscription events. Handlers run on the realtime
// goroutine; they must hand work off (e.g. into a program's message
// loop) rather than block.
type Handler func(SubscriptionEvent)

// Subscribe registers a handler for a topic: either a collection name
// (wildcard — every record) or "collection/recordID". The returned
// function unsubscribes; it is safe to call more than once and must
// be called when the subscribing view unmounts.
//
// The first subscription opens one server-sent-event stream shared by
// all topics on this client. The stream reconnects with bounded
// exponential backoff on failure, re-registering all active topics;
// events arriving for a topic are delivered in server emission order.
func (c *Client) Subscribe(topic string, handler Handler) (func(), error) {
	if topic == "" {
		return nil, fmt.Errorf("gateway: Subscribe requires a topic")
	}
	if handler == nil {
		return nil, fmt.Errorf("gateway: Subscribe requires a handler")
	}
	return c.realtime().add(topic, handler), nil
}

// realtime lazily creates the shared realtime connection manager.
func (c *Client) realtime() *realtimeConn {
	c.rtOnce.Do(func() {
		c.rt = &realtimeConn{
			client: c,
			subs:   make(map[string]map[int]Handler),
		}
	})
	return c.rt
}

// realtimeConn owns the SSE stream and the subscription set. It
// starts its reader goroutine when the first topic is added and stops
// it when the last one is removed.
type realtimeConn struct {
	client *Client

	mu       sync.Mutex
	subs     map[string]map[int]Handler // topic -> subscriber id -> handler
	nextID   int
	clientID string             // announced by the stream's connect event
	cancel   context.CancelFunc // stops the reader goroutine
	running  bool
}

func (rt *realtimeConn) add(topic string, handler Handler) func() {
	rt.mu.Lock()
	rt.nextID++
	id := rt.nextID
	if rt.subs[topic] == nil {
		rt.subs[topic] = make(map[int]Handler)
	}
	rt.subs[topic][id] = handler

	if !rt.running {
		rt.running = true
		ctx, cancel := context.WithCancel(context.Background())
		rt.cancel = cancel
		go rt.run(ctx)
	} else if rt.clientID != "" {
		// Stream already established: push the grown topic set.
		go rt.syncTopics(rt.clientID)
	}
	rt.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { rt.remove(topic, id) })
	}
}

func (rt *realtimeConn) remove(topic string, id int) {
	rt.mu.Lock()
	if handlers, ok := rt.subs[topic]; ok {
		delete(handlers, id)
		if len(handlers) == 0 {
			delete(rt.subs, topic)
		}
	}
	empty := len(rt.subs) == 0
	clientID := rt.clientID
	if empty && rt.running {
		rt.cancel()
		rt.running = false
		rt.clientID = ""
	}
	rt.mu.Unlock()

	if !empty && clientID != "" {
		go rt.syncTopics(clientID)
	}
}

// run is the reader loop: connect, consume events, reconnect on error
// with bounded exponential backoff. Exits when ctx is cancelled.
func (rt *realtimeConn) run(ctx context.Context) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxInterval = 10 * time.Second
	policy.MaxElapsedTime = 0 // retry until cancelled

	for {
		err := rt.stream(ctx)
		if ctx.Err() != nil {
			return
		}
		wait := policy.NextBackOff()
		rt.client.logger.Warn("realtime stream interrupted, reconnecting",
			"error", err,
			"backoff", wait,
		)
		// Drop pooled connections that may have gone bad with the stream.
		rt.client.CloseIdleConnections()
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// stream opens one SSE connection and consumes it until error or
// cancellation. A successful connect event resets nothing here; the
// caller's backoff naturally resets because NextBackOff is only
// consulted after a failure following a long-lived stream.
func (rt *realtimeConn) stream(ctx context.Context) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, rt.client.baseURL+"/api/realtime", nil)
	if err != nil {
		return fmt.Errorf("gateway: creating realtime request: %w", err)
	}
	request.Header.Set("Accept", "text/event-stream")
	if token := rt.client.auth.Token(); token != "" {
		request.Header.Set("Authorization", token)
	}

	response, err := rt.client.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("gateway: realtime connect failed: %w", err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway: realtime connect returned %d", response.StatusCode)
	}

	scanner := bufio.NewScanner(response.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var eventName string
	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			rt.dispatch(eventName, data.String())
			eventName = ""
			data.Reset()
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
		// id: and retry: fields are ignored; the subscription set is
		// re-registered from scratch on reconnect.
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("gateway: realtime stream read: %w", err)
	}
	return fmt.Errorf("gateway: realtime stream closed by server")
}

// connectEventName is the stream's hello event announcing the client ID.
const connectEventName = "PB_CONNECT"

func (rt *realtimeConn) dispatch(eventName, data string) {
	if eventName == "" {
		return
	}

	if eventName == connectEventName {
		var hello struct {
			ClientID string `json:"clientId"`
		}
		if err := json.Unmarshal([]byte(data), &hello); err != nil || hello.ClientID == "" {
			rt.client.logger.Error("realtime connect event malformed", "data", data)
			return
		}
		rt.mu.Lock()
		rt.clientID = hello.ClientID
		rt.mu.Unlock()
		rt.syncTopics(hello.ClientID)
		return
	}

	var event SubscriptionEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		rt.client.logger.Error("realtime event malformed",
			"topic", eventName,
			"error", err,
		)
		return
	}

	rt.mu.Lock()
	handlers := make([]Handler, 0, len(rt.subs[eventName]))
	for _, handler := range rt.subs[eventName] {
		handlers = append(handlers, handler)
	}
	rt.mu.Unlock()

	for _, handler := range handlers {
		handler(event)
	}
}

// syncTopics registers the current topic set with the gateway for
// this stream's client ID. Called after connect and whenever the set
// changes while connected.
func (rt *realtimeConn) syncTopics(clientID string) {
	rt.mu.Lock()
	topics := make([]string, 0, len(rt.subs))
	for topic := range rt.subs {
		topics = append(topics, topic)
	}
	rt.mu.Unlock()

	payload := map[string]any{
		"clientId":      clientID,
		"subscriptions": topics,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := rt.client.doRequest(ctx, http.MethodPost, "/api/realtime", nil, payload); err != nil {
		rt.client.logger.Error("realtime subscription registration failed",
			"topics", topics,
			"error", err,
		)
	}
}
