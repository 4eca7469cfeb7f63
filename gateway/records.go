// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Query carries the optional parameters of record operations.
type Query struct {
	// Filter is a gateway filter expression
	// (e.g. `username ~ "stone"`).
	Filter string

	// Sort is a comma-separated sort expression; "-" prefixes
	// descending fields (e.g. "-created").
	Sort string

	// Expand names relation fields to expand into sub-records,
	// comma-separated (e.g. "infractions,hubLocation").
	Expand string

	// RequestKey, when non-empty, registers this operation in the
	// cancellation registry: issuing another operation with the same
	// key aborts this one.
	RequestKey string
}

// ResultList is one page of a list query.
type ResultList struct {
	Page       int      `json:"page"`
	PerPage    int      `json:"perPage"`
	TotalItems int      `json:"totalItems"`
	TotalPages int      `json:"totalPages"`
	Items      []Record `json:"items"`
}

// GetOne fetches a single record by id.
func (c *Client) GetOne(ctx context.Context, collection, id string, query Query) (Record, error) {
	if id == "" {
		return nil, fmt.Errorf("gateway: GetOne requires a record id")
	}
	ctx, release := c.scope(ctx, query)
	defer release()

	path := recordPath(collection) + "/" + url.PathEscape(id)
	body, err := c.doRequest(ctx, http.MethodGet, path, query.values(), nil)
	if err != nil {
		return nil, fmt.Errorf("gateway: get %s/%s: %w", collection, id, err)
	}
	return decodeRecord(body)
}

// GetList fetches one page of records.
func (c *Client) GetList(ctx context.Context, collection string, page, perPage int, query Query) (*ResultList, error) {
	ctx, release := c.scope(ctx, query)
	defer release()

	values := query.values()
	values.Set("page", strconv.Itoa(page))
	values.Set("perPage", strconv.Itoa(perPage))

	body, err := c.doRequest(ctx, http.MethodGet, recordPath(collection), values, nil)
	if err != nil {
		return nil, fmt.Errorf("gateway: list %s: %w", collection, err)
	}

	var list ResultList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("gateway: failed to parse list response: %w", err)
	}
	return &list, nil
}

// GetFirst fetches the first record of a collection, for singleton
// collections such as the bot config. A collection with no records
// yields a 404 *APIError (check with IsNotFound).
func (c *Client) GetFirst(ctx context.Context, collection string, query Query) (Record, error) {
	list, err := c.GetList(ctx, collection, 1, 1, query)
	if err != nil {
		return nil, err
	}
	if len(list.Items) == 0 {
		return nil, fmt.Errorf("gateway: first of %s: %w", collection,
			&APIError{Status: http.StatusNotFound, Message: "no records in collection"})
	}
	return list.Items[0], nil
}

// GetFullList fetches every record of a collection, paging through
// batches of fullListBatchSize. Limit caps the total when positive.
func (c *Client) GetFullList(ctx context.Context, collection string, limit int, query Query) ([]Record, error) {
	var all []Record
	for page := 1; ; page++ {
		list, err := c.GetList(ctx, collection, page, fullListBatchSize, query)
		if err != nil {
			return nil, err
		}
		all = append(all, list.Items...)
		if limit > 0 && len(all) >= limit {
			return all[:limit], nil
		}
		if page >= list.TotalPages || len(list.Items) == 0 {
			return all, nil
		}
	}
}

// Create inserts a new record and returns the server's copy (with id
// and timestamps assigned).
func (c *Client) Create(ctx context.Context, collection string, payload map[string]any, query Query) (Record, error) {
	ctx, release := c.scope(ctx, query)
	defer release()

	body, err := c.doRequest(ctx, http.MethodPost, recordPath(collection), query.values(), payload)
	if err != nil {
		return nil, fmt.Errorf("gateway: create in %s: %w", collection, err)
	}
	return decodeRecord(body)
}

// Update patches an existing record and returns the server's copy.
func (c *Client) Update(ctx context.Context, collection, id string, payload map[string]any, query Query) (Record, error) {
	if id == "" {
		return nil, fmt.Errorf("gateway: Update requires a record id")
	}
	ctx, release := c.scope(ctx, query)
	defer release()

	path := recordPath(collection) + "/" + url.PathEscape(id)
	body, err := c.doRequest(ctx, http.MethodPatch, path, query.values(), payload)
	if err != nil {
		return nil, fmt.Errorf("gateway: update %s/%s: %w", collection, id, err)
	}
	return decodeRecord(body)
}

// fullListBatchSize is the page size GetFullList requests. Matches
// the gateway SDK default.
const fullListBatchSize = 200

// scope applies the query's RequestKey to the context via the
// cancellation registry. Without a key, the context passes through
// and release is a no-op.
func (c *Client) scope(ctx context.Context, query Query) (context.Context, func()) {
	if query.RequestKey == "" {
		return ctx, func() {}
	}
	return c.cancels.acquire(ctx, query.RequestKey)
}

func (q Query) values() url.Values {
	values := url.Values{}
	if q.Filter != "" {
		values.Set("filter", q.Filter)
	}
	if q.Sort != "" {
		values.Set("sort", q.Sort)
	}
	if q.Expand != "" {
		values.Set("expand", q.Expand)
	}
	return values
}

func recordPath(collection string) string {
	return "/api/collections/" + url.PathEscape(collection) + "/records"
}

func decodeRecord(body []byte) (Record, error) {
	var record Record
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, fmt.Errorf("gateway: failed to parse record response: %w", err)
	}
	return record, nil
}
