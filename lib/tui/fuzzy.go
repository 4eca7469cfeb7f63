// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// FuzzyResult is the outcome of one fuzzy match: a relevance score and
// the matched rune positions for highlighting. A zero Score means no
// match.
type FuzzyResult struct {
	Score     int
	Positions []int
}

// FuzzyMatch scores pattern against text case-insensitively using the
// fzf v2 algorithm. The slab is an optional scratch allocation reused
// across calls in a ranking loop; pass nil for one-off matches.
func FuzzyMatch(text string, pattern []rune, slab *util.Slab) FuzzyResult {
	if len(pattern) == 0 || text == "" {
		return FuzzyResult{}
	}
	lowered := []rune(strings.ToLower(string(pattern)))
	chars := util.ToChars([]byte(strings.ToLower(text)))
	result, positions := algo.FuzzyMatchV2(false, true, true, &chars, lowered, true, slab)
	if result.Score <= 0 {
		return FuzzyResult{}
	}
	out := FuzzyResult{Score: result.Score}
	if positions != nil {
		out.Positions = *positions
	}
	return out
}
