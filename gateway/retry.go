// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// retryAttempts bounds automatic retries of initial loads. After the
// last attempt the caller falls back to a manual retry affordance.
const retryAttempts = 3

// Retry runs op with bounded exponential backoff: up to three
// attempts, retrying only errors that Retryable considers transient
// (network failures, 5xx). Auth, validation, not-found, and cancelled
// errors end the loop immediately with the original error.
//
// Intended for initial panel loads, where a flaky gateway should not
// strand the operator on an error screen they have to dismiss.
func Retry(ctx context.Context, op func(ctx context.Context) error) error {
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(250*time.Millisecond),
		backoff.WithMaxInterval(2*time.Second),
	), retryAttempts-1)

	return backoff.Retry(func() error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(policy, ctx))
}
