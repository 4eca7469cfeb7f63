// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package serverprops

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dreamvisitor/dashboard/draft"
	"github.com/dreamvisitor/dashboard/gateway"
	"github.com/dreamvisitor/dashboard/lib/clock"
)

const (
	// Collection holds the singleton server_config record whose
	// server_properties file field is the server.properties content.
	Collection = "server_config"
	// FileField is the file field on the server_config record.
	FileField = "server_properties"
	// Filename is the name the file is uploaded under.
	Filename = "server.properties"
)

// Store is a draft.Store over the server.properties file attachment.
// Load downloads and parses the file; Save serializes the draft and
// uploads it, creating the server_config record on first save if none
// exists.
type Store struct {
	client *gateway.Client
	clock  clock.Clock
	logger *slog.Logger

	mu       sync.Mutex
	recordID string
}

// NewStore returns a Store over the given gateway client.
func NewStore(client *gateway.Client, clk clock.Clock, logger *slog.Logger) *Store {
	return &Store{
		client: client,
		clock:  clk,
		logger: logger.With("component", "serverprops"),
	}
}

// Load implements draft.Store. A server_config record without an
// attached file yields an empty property record rather than an error:
// the record exists, it just has nothing to edit yet.
func (s *Store) Load(ctx context.Context) (gateway.Record, error) {
	config, err := s.client.GetFirst(ctx, Collection, gateway.Query{})
	if err != nil {
		return nil, err
	}
	s.setRecordID(config.ID())

	if config.GetString(FileField) == "" {
		s.logger.Info("server_config has no properties file yet")
		return gateway.Record{}, nil
	}
	content, err := s.client.DownloadFile(ctx, config, FileField)
	if err != nil {
		return nil, fmt.Errorf("serverprops: download properties: %w", err)
	}
	return Parse(string(content)), nil
}

// Save implements draft.Store. The returned record is the draft itself:
// the server stores opaque file bytes, so the serialized-then-reparsed
// draft is the authoritative post-save state.
func (s *Store) Save(ctx context.Context, record gateway.Record) (gateway.Record, error) {
	content := []byte(Serialize(record, s.clock.Now()))

	s.mu.Lock()
	recordID := s.recordID
	s.mu.Unlock()

	var (
		saved gateway.Record
		err   error
	)
	if recordID == "" {
		saved, err = s.client.CreateWithFile(ctx, Collection, FileField, Filename, content)
	} else {
		saved, err = s.client.UploadFile(ctx, Collection, recordID, FileField, Filename, content)
	}
	if err != nil {
		return nil, fmt.Errorf("serverprops: upload properties: %w", err)
	}
	s.setRecordID(saved.ID())
	s.logger.Info("properties uploaded", "record", saved.ID(), "bytes", len(content))
	return record.Clone(), nil
}

// Watch subscribes to server_config realtime events and feeds the
// re-downloaded property record to the synchronizer. The returned
// function cancels the subscription.
func (s *Store) Watch(ctx context.Context, sync *draft.Synchronizer) (func(), error) {
	return s.client.Subscribe(Collection, func(_ gateway.SubscriptionEvent) {
		// The event carries the record but not the file content, so a
		// fresh load is needed either way.
		record, err := s.Load(ctx)
		if err != nil {
			if !gateway.IsCancelled(err) {
				s.logger.Error("reload after remote change failed", "error", err)
			}
			return
		}
		sync.HandleRemote(ctx, record)
	})
}

func (s *Store) setRecordID(id string) {
	s.mu.Lock()
	s.recordID = id
	s.mu.Unlock()
}
