// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

// Package gateway is the client for the record gateway: the
// backend-as-a-service that stores all Dreamvisitor dashboard state.
// It provides record CRUD with relational expansion, password
// authentication, file download and upload, realtime subscriptions
// over server-sent events, and keyed request cancellation.
//
// The gateway owns all persistence and validation; this package only
// moves records across the wire. Create a Client with NewClient and
// authenticate with AuthWithPassword before calling record operations
// on protected collections.
//
// Request cancellation follows abort-on-reissue semantics: operations
// that carry a Query.RequestKey cancel any in-flight operation issued
// with the same key. Aborted operations fail with a context.Canceled
// wrapped error; callers detect it with IsCancelled and treat it as a
// non-error.
package gateway
