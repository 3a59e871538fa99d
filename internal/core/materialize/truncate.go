// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package materialize

import (
	"strings"
	"unicode/utf8"
)

const paragraphBreak = "\n\n"

// cutAtByte returns the longest prefix of s no longer than limit bytes that
// does not split a UTF-8 sequence.
func cutAtByte(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if limit >= len(s) {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

// truncateRunes keeps at most n runes.
func truncateRunes(s string, n int) (string, bool) {
	if n <= 0 {
		return "", s != ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i], true
		}
		count++
	}
	return s, false
}

// lightTruncate cuts at the last paragraph boundary before limit, or hard
// cuts when there is none.
func lightTruncate(s string, limit int) string {
	window := cutAtByte(s, limit)
	if i := strings.LastIndex(window, paragraphBreak); i > 0 {
		return window[:i]
	}
	return window
}

// smartTruncate only honours a paragraph boundary inside the trailing
// fraction of the window, so a break near the start cannot discard most of
// the budget.
func smartTruncate(s string, limit int, fraction float64) string {
	window := cutAtByte(s, limit)
	i := strings.LastIndex(window, paragraphBreak)
	if i > 0 && float64(i) >= float64(limit)*(1-fraction) {
		return window[:i]
	}
	return window
}

// aggressiveTruncate always hard cuts.
func aggressiveTruncate(s string, limit int) string {
	return cutAtByte(s, limit)
}
