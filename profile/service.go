// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dreamvisitor/dashboard/gateway"
)

// Request keys shared across keystrokes and selection changes so the
// transport aborts superseded calls.
const (
	fetchRequestKey  = "profile-fetch"
	searchRequestKey = "profile-search"
)

// ErrSuperseded is returned by Fetch when a newer fetch was issued
// before this one completed. Callers discard the result silently, the
// same as a cancellation.
var ErrSuperseded = errors.New("profile: fetch superseded by a newer request")

// ErrBusy is returned by infraction writes while another write is in
// flight. The UI disables the submit control on this state.
var ErrBusy = errors.New("profile: another write is in flight")

// Service mediates profile fetches and infraction writes for the users
// view. Safe for concurrent use.
type Service struct {
	client *gateway.Client
	logger *slog.Logger

	mu   sync.Mutex
	seq  uint64
	busy bool
}

// NewService returns a Service over the given gateway client.
func NewService(client *gateway.Client, logger *slog.Logger) *Service {
	return &Service{client: client, logger: logger.With("component", "profile")}
}

// Fetch loads a user's full aggregate. Each call supersedes any
// in-flight fetch: the transport aborts the older request via the
// shared request key, and a response completing out of order returns
// ErrSuperseded instead of stale data.
func (s *Service) Fetch(ctx context.Context, userID string) (*Aggregate, error) {
	if userID == "" {
		return nil, fmt.Errorf("profile: fetch requires a user id")
	}

	s.mu.Lock()
	s.seq++
	issued := s.seq
	s.mu.Unlock()

	user, err := s.client.GetOne(ctx, UsersCollection, userID, gateway.Query{
		Expand:     expandRelations,
		RequestKey: fetchRequestKey,
	})

	s.mu.Lock()
	latest := s.seq
	s.mu.Unlock()
	if issued != latest {
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, err
	}
	return newAggregate(user), nil
}

// CreateInfraction records a new infraction against a user and returns
// the re-fetched aggregate. Value must be positive. Only one write may
// be in flight at a time.
func (s *Service) CreateInfraction(ctx context.Context, userID string, value int, reason string, sendWarning bool) (*Aggregate, error) {
	if value <= 0 {
		return nil, fmt.Errorf("profile: infraction value must be positive, got %d", value)
	}
	if userID == "" {
		return nil, fmt.Errorf("profile: infraction requires a user id")
	}
	release, err := s.acquireWrite()
	if err != nil {
		return nil, err
	}
	defer release()

	created, err := s.client.Create(ctx, InfractionsCollection, map[string]any{
		"user":        userID,
		"value":       value,
		"reason":      reason,
		"sendWarning": sendWarning,
		"expired":     false,
	}, gateway.Query{})
	if err != nil {
		return nil, fmt.Errorf("profile: create infraction: %w", err)
	}
	s.logger.Info("infraction created", "user", userID, "infraction", created.ID(), "value", value)

	// The user's relation list and any server-derived fields changed;
	// the re-fetch is the reconciliation.
	return s.refetch(ctx, userID)
}

// EditInfraction updates an existing infraction and returns the
// re-fetched aggregate.
func (s *Service) EditInfraction(ctx context.Context, userID, infractionID string, value int, reason string, expired, sendWarning bool) (*Aggregate, error) {
	if value <= 0 {
		return nil, fmt.Errorf("profile: infraction value must be positive, got %d", value)
	}
	release, err := s.acquireWrite()
	if err != nil {
		return nil, err
	}
	defer release()

	_, err = s.client.Update(ctx, InfractionsCollection, infractionID, map[string]any{
		"value":       value,
		"reason":      reason,
		"expired":     expired,
		"sendWarning": sendWarning,
	}, gateway.Query{})
	if err != nil {
		return nil, fmt.Errorf("profile: update infraction %s: %w", infractionID, err)
	}
	s.logger.Info("infraction updated", "user", userID, "infraction", infractionID)

	return s.refetch(ctx, userID)
}

// refetch reloads the aggregate after a write without the supersession
// guard: the write already succeeded, so its reconciling fetch must not
// be discarded in favor of an older browse fetch.
func (s *Service) refetch(ctx context.Context, userID string) (*Aggregate, error) {
	user, err := s.client.GetOne(ctx, UsersCollection, userID, gateway.Query{
		Expand:     expandRelations,
		RequestKey: fetchRequestKey,
	})
	if err != nil {
		return nil, fmt.Errorf("profile: refetch after write: %w", err)
	}
	return newAggregate(user), nil
}

func (s *Service) acquireWrite() (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return nil, ErrBusy
	}
	s.busy = true
	return func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}, nil
}

// Busy reports whether an infraction write is in flight.
func (s *Service) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}
