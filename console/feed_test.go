// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"testing"
	"time"

	"github.com/dreamvisitor/dashboard/lib/clock"
)

var feedEpoch = time.Date(2026, time.August, 31, 12, 0, 0, 0, time.UTC)

func at(seconds int) time.Time { return feedEpoch.Add(time.Duration(seconds) * time.Second) }

func newTestFeed(cfg FeedConfig) (*Feed, *clock.Fake) {
	clk := clock.NewFake(feedEpoch)
	cfg.Clock = clk
	return NewFeed(cfg), clk
}

func TestIngestSortsByTimestamp(t *testing.T) {
	feed, _ := newTestFeed(FeedConfig{})

	feed.Ingest(
		Item{Kind: KindLog, ID: "l2", Text: "second", Timestamp: at(2)},
		Item{Kind: KindCommand, ID: "c1", Text: "list", Status: StatusExecuted, Timestamp: at(1)},
		Item{Kind: KindLog, ID: "l3", Text: "third", Timestamp: at(3)},
	)

	items := feed.Items()
	if len(items) != 3 {
		t.Fatalf("items = %d, want 3", len(items))
	}
	for i, wantID := range []string{"c1", "l2", "l3"} {
		if items[i].ID != wantID {
			t.Errorf("items[%d].ID = %q, want %q", i, items[i].ID, wantID)
		}
	}
}

func TestIngestDeduplicatesCompositeKey(t *testing.T) {
	feed, _ := newTestFeed(FeedConfig{})

	// The same log arriving from the bulk fetch and the stream.
	entry := Item{Kind: KindLog, ID: "l1", Text: "joined", Timestamp: at(1)}
	feed.Ingest(entry)
	feed.Ingest(entry)

	if got := len(feed.Items()); got != 1 {
		t.Fatalf("items = %d, want 1 after duplicate ingest", got)
	}

	// Same id, same timestamp, different kind is a distinct key.
	feed.Ingest(Item{Kind: KindCommand, ID: "l1", Text: "joined", Status: StatusSent, Timestamp: at(1)})
	if got := len(feed.Items()); got != 2 {
		t.Fatalf("items = %d, want 2 for distinct kinds", got)
	}
}

func TestIngestCommandStatusTransitionReplaces(t *testing.T) {
	feed, _ := newTestFeed(FeedConfig{})

	feed.Ingest(Item{Kind: KindCommand, ID: "c1", Text: "stop", Status: StatusSent, Timestamp: at(1)})
	feed.Ingest(Item{Kind: KindCommand, ID: "c1", Text: "stop", Status: StatusExecuted, Timestamp: at(2)})

	items := feed.Items()
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1 after status transition", len(items))
	}
	if items[0].Status != StatusExecuted {
		t.Errorf("status = %q, want executed", items[0].Status)
	}
}

func TestSubmitTrimsAndRejectsEmpty(t *testing.T) {
	feed, _ := newTestFeed(FeedConfig{})

	if _, ok := feed.Submit("   "); ok {
		t.Fatal("whitespace-only command accepted")
	}
	if _, ok := feed.Submit(""); ok {
		t.Fatal("empty command accepted")
	}

	item, ok := feed.Submit("  say hello  ")
	if !ok {
		t.Fatal("valid command rejected")
	}
	if item.Text != "say hello" {
		t.Errorf("text = %q, want trimmed", item.Text)
	}
	if !item.Local || item.ClientID == "" {
		t.Errorf("optimistic item = %+v, want local with client id", item)
	}
	if item.Status != StatusSent {
		t.Errorf("status = %q, want sent", item.Status)
	}
}

func TestEchoCollapsesOptimisticEntry(t *testing.T) {
	feed, _ := newTestFeed(FeedConfig{})

	local, ok := feed.Submit("say hello")
	if !ok {
		t.Fatal("Submit rejected")
	}
	if got := len(feed.Items()); got != 1 {
		t.Fatalf("items = %d after submit, want 1", got)
	}

	// The authoritative echo arrives with the server id and the client
	// id from the create payload.
	feed.Ingest(Item{
		Kind: KindCommand, ID: "srv1", Text: "say hello",
		Status: StatusReceived, Timestamp: at(1), ClientID: local.ClientID,
	})

	items := feed.Items()
	if len(items) != 1 {
		t.Fatalf("items = %d after echo, want 1 (no double entry)", len(items))
	}
	if items[0].Local {
		t.Error("item still marked local after echo")
	}
	if items[0].ID != "srv1" || items[0].Status != StatusReceived {
		t.Errorf("item = %+v, want authoritative copy", items[0])
	}

	// Later status updates address the server id.
	feed.Ingest(Item{
		Kind: KindCommand, ID: "srv1", Text: "say hello",
		Status: StatusExecuted, Timestamp: at(2), ClientID: local.ClientID,
	})
	items = feed.Items()
	if len(items) != 1 || items[0].Status != StatusExecuted {
		t.Errorf("after update: %+v", items)
	}
}

func TestMarkFailed(t *testing.T) {
	feed, _ := newTestFeed(FeedConfig{})

	local, _ := feed.Submit("badcommand")
	feed.MarkFailed(local.ClientID)

	items := feed.Items()
	if items[0].Status != StatusFailed {
		t.Errorf("status = %q, want failed", items[0].Status)
	}
	if got := len(feed.Failed()); got != 1 {
		t.Errorf("Failed() = %d items, want 1", got)
	}
}

func TestHistoryLimitDropsOldest(t *testing.T) {
	feed, _ := newTestFeed(FeedConfig{HistoryLimit: 3})

	for i := 1; i <= 5; i++ {
		feed.Ingest(Item{Kind: KindLog, ID: logID(i), Timestamp: at(i)})
	}

	items := feed.Items()
	if len(items) != 3 {
		t.Fatalf("items = %d, want 3", len(items))
	}
	if items[0].ID != "l3" || items[2].ID != "l5" {
		t.Errorf("kept items = %v, want l3..l5", items)
	}
}

func logID(i int) string { return "l" + string(rune('0'+i)) }

func TestFailureCursorWalksVisualOrderAndWraps(t *testing.T) {
	feed, clk := newTestFeed(FeedConfig{})

	feed.Ingest(
		Item{Kind: KindCommand, ID: "c1", Status: StatusFailed, Timestamp: at(1)},
		Item{Kind: KindCommand, ID: "c2", Status: StatusFailed, Timestamp: at(2)},
		Item{Kind: KindCommand, ID: "c3", Status: StatusFailed, Timestamp: at(3)},
	)
	if got := feed.UnviewedFailures(); got != 3 {
		t.Fatalf("UnviewedFailures = %d, want 3", got)
	}

	// The view supplies its on-screen order, which differs from data
	// order.
	feed.SetFailureOrder([]string{"c2", "c1", "c3"})

	visits := []string{}
	for i := 0; i < 4; i++ {
		id, ok := feed.NextFailure()
		if !ok {
			t.Fatalf("NextFailure #%d returned none", i)
		}
		visits = append(visits, id)
	}
	want := []string{"c2", "c1", "c3", "c2"}
	for i := range want {
		if visits[i] != want[i] {
			t.Fatalf("visits = %v, want %v", visits, want)
		}
	}

	// Viewed status lands only after the highlight delay.
	if feed.Viewed("c2") {
		t.Fatal("c2 viewed before highlight delay")
	}
	clk.Advance(DefaultHighlightDelay)
	if !feed.Viewed("c2") || !feed.Viewed("c1") || !feed.Viewed("c3") {
		t.Fatal("failures not viewed after highlight delay")
	}
	if got := feed.UnviewedFailures(); got != 0 {
		t.Errorf("UnviewedFailures = %d, want 0", got)
	}
}

func TestNextFailureWithoutOrder(t *testing.T) {
	feed, _ := newTestFeed(FeedConfig{})
	if _, ok := feed.NextFailure(); ok {
		t.Fatal("NextFailure returned an id with no order set")
	}
}

func TestOnChangeFiresOnMutations(t *testing.T) {
	changes := 0
	clk := clock.NewFake(feedEpoch)
	feed := NewFeed(FeedConfig{Clock: clk, OnChange: func() { changes++ }})

	feed.Ingest(Item{Kind: KindLog, ID: "l1", Timestamp: at(1)})
	if changes != 1 {
		t.Fatalf("changes = %d after ingest, want 1", changes)
	}

	// A pure duplicate is not a change.
	feed.Ingest(Item{Kind: KindLog, ID: "l1", Timestamp: at(1)})
	if changes != 1 {
		t.Fatalf("changes = %d after duplicate, want 1", changes)
	}

	feed.Submit("say hi")
	if changes != 2 {
		t.Fatalf("changes = %d after submit, want 2", changes)
	}
}
