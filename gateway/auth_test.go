// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, expiry time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  "op1",
		"exp": expiry.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func TestAuthWithPassword(t *testing.T) {
	token := signedToken(t, time.Now().Add(time.Hour))

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/collections/users/auth-with-password":
			writeJSON(w, http.StatusOK, map[string]any{
				"token":  token,
				"record": map[string]any{"id": "op1", "email": "admin@example.com"},
			})
		case "/api/collections/config/records/cfg1":
			// Authenticated follow-up must carry the token.
			if got := r.Header.Get("Authorization"); got != token {
				t.Errorf("Authorization = %q", got)
			}
			writeJSON(w, http.StatusOK, map[string]any{"id": "cfg1"})
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))

	response, err := client.AuthWithPassword(context.Background(), "admin@example.com", "hunter22")
	if err != nil {
		t.Fatalf("AuthWithPassword: %v", err)
	}
	if response.Record.ID() != "op1" {
		t.Errorf("auth record id = %q", response.Record.ID())
	}
	if !client.AuthStore().Valid() {
		t.Error("auth store invalid after login")
	}

	if _, err := client.GetOne(context.Background(), "config", "cfg1", Query{}); err != nil {
		t.Fatalf("authenticated fetch: %v", err)
	}
}

func TestAuthWithPasswordRejected(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"status":  400,
			"message": "Failed to authenticate.",
		})
	}))

	_, err := client.AuthWithPassword(context.Background(), "admin@example.com", "wrong")
	if err == nil {
		t.Fatal("login succeeded with bad credentials")
	}
	if client.AuthStore().Valid() {
		t.Error("auth store valid after failed login")
	}
}

func TestAuthStoreValidExpiry(t *testing.T) {
	store := newAuthStore()

	if store.Valid() {
		t.Error("empty store reports valid")
	}

	store.save(signedToken(t, time.Now().Add(time.Hour)), Record{"id": "op1"})
	if !store.Valid() {
		t.Error("unexpired token reports invalid")
	}

	store.save(signedToken(t, time.Now().Add(-time.Minute)), Record{"id": "op1"})
	if store.Valid() {
		t.Error("expired token reports valid")
	}

	store.save("not-a-jwt", Record{"id": "op1"})
	if store.Valid() {
		t.Error("garbage token reports valid")
	}
}

func TestAuthStoreOnChange(t *testing.T) {
	store := newAuthStore()

	var calls int
	store.OnChange(func() { calls++ })

	store.save("tok", Record{"id": "x"})
	store.Clear()

	if calls != 2 {
		t.Errorf("OnChange calls = %d, want 2", calls)
	}
	if store.Token() != "" || store.Record() != nil {
		t.Error("Clear did not reset store")
	}
}
