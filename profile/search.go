// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package profile

import (
	"context"
	"sort"

	"github.com/junegunn/fzf/src/util"

	"github.com/dreamvisitor/dashboard/gateway"
	"github.com/dreamvisitor/dashboard/lib/tui"
)

// SearchResult is one user ranked against the search pattern.
type SearchResult struct {
	User  gateway.Record
	Score int
	// Positions are matched rune indices into the display name, for
	// highlight rendering.
	Positions []int
}

// DisplayName returns the best human-readable name for a user record:
// the Minecraft username when linked, else the Discord id.
func DisplayName(user gateway.Record) string {
	if name := user.GetString("mc_username"); name != "" {
		return name
	}
	return user.GetString("discord_id")
}

// Search fetches the user list and fuzzy-ranks it against pattern.
// An empty pattern returns all users in fetch order with zero scores.
// Successive calls share a request key, so each keystroke aborts the
// previous list fetch.
func (s *Service) Search(ctx context.Context, pattern string) ([]SearchResult, error) {
	users, err := s.client.GetFullList(ctx, UsersCollection, 0, gateway.Query{
		Sort:       "mc_username",
		RequestKey: searchRequestKey,
	})
	if err != nil {
		return nil, err
	}
	return Rank(users, pattern), nil
}

// Rank fuzzy-scores users against pattern, dropping non-matches and
// ordering best-first. Ties keep the incoming order so results are
// stable across keystrokes.
func Rank(users []gateway.Record, pattern string) []SearchResult {
	if pattern == "" {
		results := make([]SearchResult, 0, len(users))
		for _, user := range users {
			results = append(results, SearchResult{User: user})
		}
		return results
	}

	runes := []rune(pattern)
	slab := util.MakeSlab(100*1024, 2048)
	var results []SearchResult
	for _, user := range users {
		match := tui.FuzzyMatch(DisplayName(user), runes, slab)
		if match.Score <= 0 {
			// The Discord id is a fallback haystack so numeric
			// searches still find unlinked users.
			match = tui.FuzzyMatch(user.GetString("discord_id"), runes, slab)
			match.Positions = nil
		}
		if match.Score <= 0 {
			continue
		}
		results = append(results, SearchResult{
			User:      user,
			Score:     match.Score,
			Positions: match.Positions,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}
