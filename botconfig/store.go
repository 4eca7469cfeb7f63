// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package botconfig

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dreamvisitor/dashboard/draft"
	"github.com/dreamvisitor/dashboard/gateway"
)

const (
	// Collection holds the singleton bot config record.
	Collection = "config"
	// LocationCollection holds location records referenced by relation
	// fields such as hubLocation.
	LocationCollection = "locations"
)

// Store is a draft.Store over the bot config singleton. Location
// relation fields are edited inline in the draft and upserted as their
// own records before the parent write.
type Store struct {
	client *gateway.Client
	logger *slog.Logger
}

// NewStore returns a Store over the given gateway client.
func NewStore(client *gateway.Client, logger *slog.Logger) *Store {
	return &Store{client: client, logger: logger.With("component", "botconfig")}
}

// Load implements draft.Store, normalizing the remote record against
// the schema so every field holds a defined, canonically typed value.
func (s *Store) Load(ctx context.Context) (gateway.Record, error) {
	record, err := s.client.GetFirst(ctx, Collection, gateway.Query{Expand: "hubLocation"})
	if gateway.IsNotFound(err) {
		// No config record yet: an all-defaults draft with no id, so
		// the first apply creates the record.
		s.logger.Info("config record missing, starting from defaults")
		return Normalize(gateway.Record{}), nil
	}
	if err != nil {
		return nil, err
	}
	return Normalize(record), nil
}

// Save implements draft.Store. Location sub-objects are upserted first
// so their ids can be attached to the parent payload; the parent is
// then updated, or created when no config record exists yet.
func (s *Store) Save(ctx context.Context, record gateway.Record) (gateway.Record, error) {
	payload := make(map[string]any, len(Fields))
	locations := make(map[string]map[string]any)

	for _, field := range Fields {
		value, present := record[field.Name]
		if !present {
			continue
		}
		if field.Kind == KindLocation {
			location, ok := value.(map[string]any)
			if !ok || untouchedLocation(location) {
				continue
			}
			locationID, err := s.upsertLocation(ctx, location)
			if err != nil {
				return nil, fmt.Errorf("botconfig: save %s: %w", field.Name, err)
			}
			location["id"] = locationID
			locations[field.Name] = location
			payload[field.Name] = locationID
			continue
		}
		payload[field.Name] = value
	}

	var (
		saved gateway.Record
		err   error
	)
	if id := record.ID(); id != "" {
		saved, err = s.client.Update(ctx, Collection, id, payload, gateway.Query{})
	} else {
		saved, err = s.client.Create(ctx, Collection, payload, gateway.Query{})
	}
	if err != nil {
		return nil, fmt.Errorf("botconfig: save config: %w", err)
	}

	normalized := Normalize(saved)
	// The write response does not expand relations; the upserted
	// sub-objects are already authoritative.
	for name, location := range locations {
		normalized[name] = location
	}
	s.logger.Info("config saved", "record", normalized.ID())
	return normalized, nil
}

// untouchedLocation reports whether a location value is still the
// never-edited default, in which case no record is created for it.
func untouchedLocation(location map[string]any) bool {
	if id, _ := location["id"].(string); id != "" {
		return false
	}
	if world, _ := location["world"].(string); world != "" {
		return false
	}
	for _, key := range []string{"x", "y", "z", "pitch", "yaw"} {
		if v, _ := location[key].(float64); v != 0 {
			return false
		}
	}
	return true
}

// upsertLocation updates the location record when it has an id, else
// creates one, returning the id to attach to the parent.
func (s *Store) upsertLocation(ctx context.Context, location map[string]any) (string, error) {
	payload := make(map[string]any, len(LocationKeys))
	for _, key := range LocationKeys {
		if value, ok := location[key]; ok {
			payload[key] = value
		}
	}

	id, _ := location["id"].(string)
	if id != "" {
		updated, err := s.client.Update(ctx, LocationCollection, id, payload, gateway.Query{})
		if err != nil {
			return "", err
		}
		return updated.ID(), nil
	}
	created, err := s.client.Create(ctx, LocationCollection, payload, gateway.Query{})
	if err != nil {
		return "", err
	}
	return created.ID(), nil
}

// Watch subscribes to config realtime events and feeds a fresh
// normalized load to the synchronizer. The returned function cancels
// the subscription.
func (s *Store) Watch(ctx context.Context, sync *draft.Synchronizer) (func(), error) {
	return s.client.Subscribe(Collection, func(_ gateway.SubscriptionEvent) {
		// The event record carries relation ids but no expansions, so
		// the expanded record is re-fetched.
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
