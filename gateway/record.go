// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"time"

	"github.com/tiendc/go-deepcopy"
)

// Record is a gateway record: a field map as decoded from the wire.
// The gateway's schema is dynamic, so fields are accessed through
// typed getters that coerce JSON's limited numeric repertoire into
// the type the caller needs. Missing or null fields yield the zero
// value — inputs bound to record fields are never undefined.
type Record map[string]any

// recordTimeLayout is the gateway's timestamp wire format.
const recordTimeLayout = "2006-01-02 15:04:05.000Z"

// ID returns the record id, or "" for a record that does not yet
// exist remotely.
func (r Record) ID() string { return r.GetString("id") }

// Collection returns the collection name the record belongs to.
func (r Record) Collection() string { return r.GetString("collectionName") }

// Created returns the record creation time, or the zero time when
// absent or unparseable.
func (r Record) Created() time.Time { return r.GetTime("created") }

// Updated returns the record's last server-side modification time.
func (r Record) Updated() time.Time { return r.GetTime("updated") }

// GetString returns the named field as a string, or "".
func (r Record) GetString(name string) string {
	if s, ok := r[name].(string); ok {
		return s
	}
	return ""
}

// GetBool returns the named field as a bool, or false.
func (r Record) GetBool(name string) bool {
	if b, ok := r[name].(bool); ok {
		return b
	}
	return false
}

// GetFloat returns the named field as a float64. JSON numbers decode
// as float64; integer and nil values coerce. Anything else yields 0.
func (r Record) GetFloat(name string) float64 {
	switch v := r[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// GetInt returns the named field truncated to an int.
func (r Record) GetInt(name string) int {
	return int(r.GetFloat(name))
}

// GetTime parses the named field as a gateway timestamp. Returns the
// zero time for missing or malformed values.
func (r Record) GetTime(name string) time.Time {
	s := r.GetString(name)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(recordTimeLayout, s)
	if err != nil {
		// Fall back to RFC 3339 for gateways that emit it.
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}
		}
	}
	return t
}

// GetStringSlice returns the named field as a string slice. Relation
// list fields decode as []any of strings.
func (r Record) GetStringSlice(name string) []string {
	raw, ok := r[name].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Expand returns the expanded relation record stored under the given
// field name, or nil when the relation was not expanded. For
// multi-relation fields use ExpandList.
func (r Record) Expand(field string) Record {
	expand, ok := r["expand"].(map[string]any)
	if !ok {
		return nil
	}
	if sub, ok := expand[field].(map[string]any); ok {
		return Record(sub)
	}
	return nil
}

// ExpandList returns the expanded records of a multi-relation field,
// or nil when the relation was not expanded.
func (r Record) ExpandList(field string) []Record {
	expand, ok := r["expand"].(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := expand[field].([]any)
	if !ok {
		return nil
	}
	out := make([]Record, 0, len(raw))
	for _, v := range raw {
		if sub, ok := v.(map[string]any); ok {
			out = append(out, Record(sub))
		}
	}
	return out
}

// Clone returns a deep copy of the record. Drafts and their originals
// must never alias nested maps or slices, otherwise a field edit
// would silently leak into the known-good copy.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	var out Record
	if err := deepcopy.Copy(&out, r); err != nil {
		// Records are plain JSON-decoded values; copying them cannot
		// fail. Return a shallow copy rather than panic if it ever does.
		out = make(Record, len(r))
		for k, v := range r {
			out[k] = v
		}
	}
	return out
}
