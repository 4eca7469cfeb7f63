// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// usersCollection is the auth collection holding operator accounts.
const usersCollection = "users"

// AuthResponse is returned by AuthWithPassword.
type AuthResponse struct {
	Token  string `json:"token"`
	Record Record `json:"record"`
}

// AuthWithPassword authenticates against the operator accounts
// collection. On success the token and auth record are saved in the
// client's auth store, and every subsequent request carries the token.
func (c *Client) AuthWithPassword(ctx context.Context, identity, password string) (*AuthResponse, error) {
	if identity == "" {
		return nil, fmt.Errorf("gateway: identity is required for login")
	}
	if password == "" {
		return nil, fmt.Errorf("gateway: password is required for login")
	}

	payload := map[string]any{
		"identity": identity,
		"password": password,
	}
	path := "/api/collections/" + usersCollection + "/auth-with-password"
	body, err := c.doRequest(ctx, http.MethodPost, path, nil, payload)
	if err != nil {
		return nil, fmt.Errorf("gateway: login failed: %w", err)
	}

	var response AuthResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("gateway: failed to parse login response: %w", err)
	}

	c.auth.save(response.Token, response.Record)
	c.logger.Info("authenticated with gateway",
		"user_id", response.Record.ID(),
	)
	return &response, nil
}

// RequestPasswordReset asks the gateway to send a password reset
// email. The gateway responds identically whether or not the email is
// known, so this cannot be used to probe accounts.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	if email == "" {
		return fmt.Errorf("gateway: email is required for password reset")
	}
	payload := map[string]any{"email": email}
	path := "/api/collections/" + usersCollection + "/request-password-reset"
	if _, err := c.doRequest(ctx, http.MethodPost, path, nil, payload); err != nil {
		return fmt.Errorf("gateway: password reset request failed: %w", err)
	}
	return nil
}

// AuthStore holds the current auth token and record. It mirrors the
// gateway SDK's auth store: one per client, observable, cleared on
// logout or when the gateway rejects the token.
type AuthStore struct {
	mu       sync.Mutex
	token    string
	record   Record
	handlers []func()
}

func newAuthStore() *AuthStore {
	return &AuthStore{}
}

// Token returns the current auth token, or "".
func (s *AuthStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Record returns the authenticated operator's record, or nil.
func (s *AuthStore) Record() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record
}

// Valid reports whether a token is present and unexpired. The token's
// signature is the gateway's concern; the client only peeks at the
// expiry claim to avoid presenting a session it knows is dead.
func (s *AuthStore) Valid() bool {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()
	if token == "" {
		return false
	}

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	expiry, err := claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return false
	}
	return expiry.After(time.Now())
}

// OnChange registers a handler invoked after every auth state change
// (login, logout, clear). Handlers run synchronously in registration
// order.
func (s *AuthStore) OnChange(handler func()) {
	s.mu.Lock()
	s.handlers = append(s.handlers, handler)
	s.mu.Unlock()
}

// Clear discards the token and record (logout).
func (s *AuthStore) Clear() {
	s.save("", nil)
}

func (s *AuthStore) save(token string, record Record) {
	s.mu.Lock()
	s.token = token
	s.record = record
	handlers := make([]func(), len(s.handlers))
	copy(handlers, s.handlers)
	s.mu.Unlock()

	for _, handler := range handlers {
		handler()
	}
}
