// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// APIError represents a structured error response from the gateway.
// Callers use errors.As to extract the structured information:
//
//	var apiErr *gateway.APIError
//	if errors.As(err, &apiErr) {
//	    if apiErr.Status == http.StatusNotFound { ... }
//	}
type APIError struct {
	// Status is the HTTP status code of the response.
	Status int `json:"status"`
	// Message is the human-readable error description from the server.
	Message string `json:"message"`
	// Data carries per-field validation details when Status is 400.
	Data map[string]any `json:"data"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway: %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a gateway 404 — for example a
// singleton config record that was never created.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsAuth reports whether err is a gateway 401 or 403. The caller
// should prompt re-authentication rather than retry.
func IsAuth(err error) bool {
	return hasStatus(err, http.StatusUnauthorized) || hasStatus(err, http.StatusForbidden)
}

// IsValidation reports whether err is a gateway 400 carrying
// per-field validation data.
func IsValidation(err error) bool {
	return hasStatus(err, http.StatusBadRequest)
}

// IsServer reports whether err is a 5xx gateway response.
func IsServer(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status >= 500
}

// IsCancelled reports whether err resulted from an aborted request —
// either an explicit context cancellation or a keyed reissue. Aborted
// requests are a non-error: callers must discard the result silently
// and never surface the failure to the operator.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// Retryable reports whether the operation that produced err may
// succeed on retry: network failures and 5xx responses. Auth,
// validation, not-found, and cancellation errors are permanent from
// the client's point of view.
func Retryable(err error) bool {
	if err == nil || IsCancelled(err) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}
	// No structured response at all: transport-level failure
	// (unreachable gateway, reset connection, timeout).
	return true
}

func hasStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
