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

package repair

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// The value group stops at the closing quote or at the end of input, so a
// string cut off by truncation is still captured. RE2 keeps the scan linear.
var (
	narrativeFields = []string{"narrative", "summary", "story", "transcript"}
	fieldPatterns   = map[string]*regexp.Regexp{}
)

func init() {
	for _, name := range append([]string{"title", "mood"}, narrativeFields...) {
		fieldPatterns[name] = regexp.MustCompile(`"` + name + `"\s*:\s*"((?:[^"\\]|\\.)*)`)
	}
}

// extract is the partial extraction tier: a best-effort scan over at most
// MaxScanBytes of the raw text for the one field a consumer cannot do
// without.
func (l *Ladder) extract(raw string) (map[string]any, error) {
	scan := raw
	if len(scan) > l.config.MaxScanBytes {
		scan = cutAtByte(scan, l.config.MaxScanBytes)
	}

	var narrative string
	for _, name := range narrativeFields {
		if v := findString(scan, name); v != "" {
			narrative = v
			break
		}
	}
	if n := utf8.RuneCountInString(narrative); n < l.config.MinNarrativeLength {
		return nil, fmt.Errorf("narrative field has %d runes, need %d", n, l.config.MinNarrativeLength)
	}

	title := findString(scan, "title")
	if title == "" {
		title = "Untitled"
	}
	mood := findString(scan, "mood")
	if mood == "" {
		mood = "neutral"
	}
	return synthesize(title, narrative, mood, l.config.PartialConfidence), nil
}

func findString(text, field string) string {
	m := fieldPatterns[field].FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(unescape(m[1]))
}

// unescape decodes a JSON string body, falling back to replacing the common
// escapes when the body is malformed.
func unescape(body string) string {
	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		if c := body[i]; c < 0x20 {
			sb.Write(escapeControl(c))
		} else {
			sb.WriteByte(c)
		}
	}
	var out string
	if err := json.Unmarshal([]byte(`"`+sb.String()+`"`), &out); err == nil {
		return out
	}
	return strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\r`, "\r", `\"`, `"`, `\/`, "/", `\\`, `\`).Replace(body)
}

func cutAtByte(s string, limit int) string {
	if limit >= len(s) {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

// synthesize builds a minimal document in the decoded JSON shape, with one
// placeholder scene.
func synthesize(title, narrative, mood string, confidence float64) map[string]any {
	return map[string]any{
		"title":      title,
		"narrative":  narrative,
		"mood":       mood,
		"characters": []any{},
		"confidence": confidence,
		"scenes": []any{
			map[string]any{
				"sequence_number": float64(1),
				"start":           "00:00:00",
				"end":             "00:00:00",
				"setting":         "",
				"description":     "Scene details could not be recovered from the model output.",
				"characters":      []any{},
				"dialogue":        []any{},
			},
		},
	}
}
