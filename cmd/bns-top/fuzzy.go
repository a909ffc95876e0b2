// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"strings"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// fuzzyScore matches pattern against text with fzf's V2 algorithm,
// case-insensitively. Returns 0 for no match; higher is better.
func fuzzyScore(text string, pattern []rune, slab *util.Slab) int {
	if len(pattern) == 0 {
		return 1
	}
	chars := util.ToChars([]byte(strings.ToLower(text)))
	result, _ := algo.FuzzyMatchV2(false, true, true, &chars, pattern, false, slab)
	return result.Score
}

// lowerPattern prepares a filter string for fuzzyScore.
func lowerPattern(filter string) []rune {
	return []rune(strings.ToLower(filter))
}
