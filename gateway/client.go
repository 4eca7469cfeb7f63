// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// BaseURL is the gateway base URL (e.g. "http://127.0.0.1:8090").
	BaseURL string
	// HTTPClient is used for all requests. If nil, http.DefaultClient
	// is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
	// RequestTimeout bounds each record operation when positive. The
	// realtime stream is exempt: it is a long-lived connection.
	RequestTimeout time.Duration
}

// Client talks to the record gateway. It is safe for concurrent use;
// all record operations go through one shared HTTP client and one
// auth store.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	logger         *slog.Logger
	auth           *AuthStore
	cancels        *cancelRegistry
	requestTimeout time.Duration

	rtOnce sync.Once
	rt     *realtimeConn
}

// NewClient creates a gateway client. The returned client is
// unauthenticated; call AuthWithPassword before touching protected
// collections.
func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("gateway: BaseURL is required")
	}
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("gateway: invalid BaseURL %q: %w", config.BaseURL, err)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:        strings.TrimRight(config.BaseURL, "/"),
		httpClient:     httpClient,
		logger:         logger,
		auth:           newAuthStore(),
		cancels:        newCancelRegistry(),
		requestTimeout: config.RequestTimeout,
	}, nil
}

// BaseURL returns the configured gateway base URL without a trailing
// slash.
func (c *Client) BaseURL() string { return c.baseURL }

// AuthStore returns the client's auth store. The store is shared by
// every operation on this client.
func (c *Client) AuthStore() *AuthStore { return c.auth }

// CloseIdleConnections closes idle HTTP connections in the underlying
// transport's pool. Call after a network disruption so subsequent
// requests open fresh TCP connections instead of reusing a poisoned
// pooled one.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// Health probes the gateway's health endpoint. Useful for checking
// reachability before presenting the login screen.
func (c *Client) Health(ctx context.Context) error {
	if _, err := c.doRequest(ctx, http.MethodGet, "/api/health", nil, nil); err != nil {
		return fmt.Errorf("gateway: health check failed: %w", err)
	}
	return nil
}

// doRequest performs an HTTP request to the gateway and returns the
// response body. On 2xx, returns the body. On 4xx/5xx, returns a
// *APIError. The auth token, when present in the store, is attached
// to every request.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, requestBody any) ([]byte, error) {
	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("gateway: failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("gateway: failed to create request: %w", err)
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token := c.auth.Token(); token != "" {
		request.Header.Set("Authorization", token)
	}

	return c.finishRequest(request, method, path)
}

// doRequestRaw performs an HTTP request with a caller-built body and
// content type (multipart file upload, raw download).
func (c *Client) doRequestRaw(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("gateway: failed to create request: %w", err)
	}
	if contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}
	if token := c.auth.Token(); token != "" {
		request.Header.Set("Authorization", token)
	}

	return c.finishRequest(request, method, path)
}

// requestContext applies the configured per-request timeout. The
// response body is fully read before doRequest returns, so the
// deadline covers the whole exchange.
func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.requestTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.requestTimeout)
}

func (c *Client) finishRequest(request *http.Request, method, path string) ([]byte, error) {
	response, err := c.httpClient.Do(request)
	if err != nil {
		// Context cancellation surfaces as a url.Error wrapping
		// context.Canceled; keep the chain intact for IsCancelled.
		return nil, fmt.Errorf("gateway: request to %s %s failed: %w", method, path, err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("gateway: failed to read response body: %w", err)
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return responseBody, nil
	}

	// All gateway error responses share one JSON shape.
	var apiErr APIError
	if jsonErr := json.Unmarshal(responseBody, &apiErr); jsonErr != nil {
		return nil, fmt.Errorf("gateway: unexpected %d response from %s %s: %s",
			response.StatusCode, method, path, string(responseBody))
	}
	apiErr.Status = response.StatusCode

	return responseBody, &apiErr
}

// maxResponseBytes bounds response reads. The largest legitimate
// payloads are full-list fetches of the console history, well under
// this cap.
const maxResponseBytes = 32 << 20
