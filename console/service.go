// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dreamvisitor/dashboard/gateway"
)

// Collections backing the transcript.
const (
	LogsCollection     = "logs"
	CommandsCollection = "commands"
)

// Service connects a Feed to the gateway: bulk history fetch, realtime
// ingestion, and command submission.
type Service struct {
	client *gateway.Client
	feed   *Feed
	logger *slog.Logger

	historyLimit int
}

// NewService returns a Service feeding the given Feed.
func NewService(client *gateway.Client, feed *Feed, historyLimit int, logger *slog.Logger) *Service {
	return &Service{
		client:       client,
		feed:         feed,
		logger:       logger.With("component", "console"),
		historyLimit: historyLimit,
	}
}

// Feed returns the transcript this service fills.
func (s *Service) Feed() *Feed { return s.feed }

// LoadHistory bulk-fetches recent logs and commands and merges them
// into the feed. The two fetches are capped to the history limit each;
// the merge rule interleaves them by timestamp.
func (s *Service) LoadHistory(ctx context.Context) error {
	logs, err := s.client.GetFullList(ctx, LogsCollection, s.historyLimit, gateway.Query{Sort: "-created"})
	if err != nil {
		return fmt.Errorf("console: fetch logs: %w", err)
	}
	commands, err := s.client.GetFullList(ctx, CommandsCollection, s.historyLimit, gateway.Query{Sort: "-created"})
	if err != nil {
		return fmt.Errorf("console: fetch commands: %w", err)
	}

	items := make([]Item, 0, len(logs)+len(commands))
	for _, record := range logs {
		items = append(items, logItem(record))
	}
	for _, record := range commands {
		items = append(items, commandItem(record))
	}
	s.feed.Ingest(items...)
	s.logger.Info("history loaded", "logs", len(logs), "commands", len(commands))
	return nil
}

// Watch subscribes to both collections, merging realtime arrivals into
// the feed. The returned function cancels both subscriptions.
func (s *Service) Watch() (func(), error) {
	unsubscribeLogs, err := s.client.Subscribe(LogsCollection, func(event gateway.SubscriptionEvent) {
		s.feed.Ingest(logItem(event.Record))
	})
	if err != nil {
		return nil, fmt.Errorf("console: subscribe logs: %w", err)
	}
	unsubscribeCommands, err := s.client.Subscribe(CommandsCollection, func(event gateway.SubscriptionEvent) {
		s.feed.Ingest(commandItem(event.Record))
	})
	if err != nil {
		unsubscribeLogs()
		return nil, fmt.Errorf("console: subscribe commands: %w", err)
	}
	return func() {
		unsubscribeLogs()
		unsubscribeCommands()
	}, nil
}

// Send submits command text: optimistic local append, then the create
// call whose realtime echo collapses the local copy. A rejected create
// marks the local entry failed instead of dropping it.
func (s *Service) Send(ctx context.Context, text string) error {
	item, ok := s.feed.Submit(text)
	if !ok {
		return nil
	}
	_, err := s.client.Create(ctx, CommandsCollection, map[string]any{
		"command":  item.Text,
		"status":   string(StatusSent),
		"clientId": item.ClientID,
	}, gateway.Query{})
	if err != nil {
		if gateway.IsCancelled(err) {
			return err
		}
		s.feed.MarkFailed(item.ClientID)
		s.logger.Error("command rejected", "error", err)
		return fmt.Errorf("console: send command: %w", err)
	}
	return nil
}

func logItem(record gateway.Record) Item {
	return Item{
		Kind:      KindLog,
		ID:        record.ID(),
		Text:      record.GetString("message"),
		Timestamp: record.Created(),
	}
}

func commandItem(record gateway.Record) Item {
	return Item{
		Kind:      KindCommand,
		ID:        record.ID(),
		Text:      record.GetString("command"),
		Status:    Status(record.GetString("status")),
		Timestamp: record.Created(),
		ClientID:  record.GetString("clientId"),
	}
}
