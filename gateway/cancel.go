// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"sync"
)

// cancelRegistry implements abort-on-reissue request cancellation.
// Each key names a logical request slot (for example "user-search" or
// "profile-fetch"); acquiring a key cancels whatever request currently
// holds it. Search-as-you-type and profile switching use this so a
// slow stale response can never clobber a faster new one.
type cancelRegistry struct {
	mu      sync.Mutex
	pending map[string]context.CancelFunc
}

func newCancelRegistry() *cancelRegistry {
	return &cancelRegistry{pending: make(map[string]context.CancelFunc)}
}

// acquire cancels any in-flight request holding key and derives a new
// cancellable context for this one. The returned release must be
// called when the request completes; it only clears the slot if the
// slot still belongs to this request.
func (r *cancelRegistry) acquire(ctx context.Context, key string) (context.Context, func()) {
	derived, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	if prior, ok := r.pending[key]; ok {
		prior()
	}
	r.pending[key] = cancel
	r.mu.Unlock()

	release := func() {
		r.mu.Lock()
		// Another request may have taken the slot already; comparing
		// function values is not possible, so track ownership by
		// checking cancellation instead: if our context is done, the
		// slot either moved on or was cancelled with us.
		if derived.Err() == nil {
			delete(r.pending, key)
		}
		r.mu.Unlock()
		cancel()
	}
	return derived, release
}

// CancelRequest aborts the in-flight request registered under key, if
// any. Used when a view unmounts while its fetch is still running.
func (c *Client) CancelRequest(key string) {
	c.cancels.mu.Lock()
	defer c.cancels.mu.Unlock()
	if cancel, ok := c.cancels.pending[key]; ok {
		cancel()
		delete(c.cancels.pending, key)
	}
}
