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

// Package repair recovers a structured object from free-form model output that
// is supposed to be JSON. Parse runs a fixed ladder of increasingly aggressive
// strategies and always returns an outcome:
//
//  1. strict: strip a code fence, clip to the outermost braces, decode
//  2. markdown_strip: trim whitespace and fence markers only, decode
//  3. intelligent_repair: escape control characters, drop trailing commas
//     and close a truncated document, decode
//  4. partial_extraction: bounded pattern scan for the narrative field
//  5. fallback: the raw text as narrative with one placeholder scene
//
// Every tier appends a note, so callers can see why the earlier tiers failed.
// Only the fallback reports Success=false.
package repair

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jaycherian/gcp-go-media-narrative/internal/core/model"
)

// Config tunes the ladder.
type Config struct {
	TruncationSlack    int     `toml:"truncation_slack" json:"truncation_slack"`         // Bytes after the last '}' tolerated before assuming truncation.
	MaxScanBytes       int     `toml:"max_scan_bytes" json:"max_scan_bytes"`             // Bound for the partial extraction scan.
	MinNarrativeLength int     `toml:"min_narrative_length" json:"min_narrative_length"` // Runes.
	FallbackLength     int     `toml:"fallback_length" json:"fallback_length"`           // Runes of raw text kept by the fallback.
	PartialConfidence  float64 `toml:"partial_confidence" json:"partial_confidence"`
	FallbackConfidence float64 `toml:"fallback_confidence" json:"fallback_confidence"`
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		TruncationSlack:    3,
		MaxScanBytes:       256 * 1024,
		MinNarrativeLength: 40,
		FallbackLength:     2000,
		PartialConfidence:  0.4,
		FallbackConfidence: 0.1,
	}
}

var errNotObject = errors.New("decoded value is not an object")

// Ladder parses raw model output. It holds only configuration.
type Ladder struct {
	config Config
}

// NewLadder creates a ladder with the given tuning.
func NewLadder(config Config) *Ladder {
	return &Ladder{config: config}
}

// Parse runs the ladder over raw. It never panics, whatever the input.
func (l *Ladder) Parse(raw string) (outcome model.ParseOutcome) {
	defer func() {
		// The tiers are total over their input; this guards future edits.
		if r := recover(); r != nil {
			outcome = l.fallback(raw, append(outcome.RepairNotes, fmt.Sprintf("recovered from panic: %v", r)))
		}
	}()

	var notes []string
	note := func(strategy model.ParseStrategy, err error) {
		if err != nil {
			notes = append(notes, fmt.Sprintf("%s: failed: %v", strategy, err))
			return
		}
		notes = append(notes, fmt.Sprintf("%s: ok", strategy))
	}

	data, err := decodeObject(clipBraces(stripFence(raw)))
	note(model.StrategyStrict, err)
	if err == nil {
		return model.ParseOutcome{Success: true, Data: data, StrategyUsed: model.StrategyStrict, RepairNotes: notes}
	}

	stripped := stripMarkers(raw)
	data, err = decodeObject(stripped)
	note(model.StrategyMarkdownStrip, err)
	if err == nil {
		return model.ParseOutcome{Success: true, Data: data, StrategyUsed: model.StrategyMarkdownStrip, RepairNotes: notes}
	}

	data, truncated, repairNotes, err := l.repair(stripped)
	notes = append(notes, repairNotes...)
	note(model.StrategyIntelligentRepair, err)
	if err == nil {
		return model.ParseOutcome{
			Success:      true,
			Data:         data,
			StrategyUsed: model.StrategyIntelligentRepair,
			RepairNotes:  notes,
			Truncated:    truncated,
		}
	}

	data, err = l.extract(raw)
	note(model.StrategyPartialExtraction, err)
	if err == nil {
		return model.ParseOutcome{Success: true, Data: data, StrategyUsed: model.StrategyPartialExtraction, RepairNotes: notes}
	}

	return l.fallback(raw, notes)
}

// repair is the third tier. truncated reports whether the document had to be
// closed.
func (l *Ladder) repair(stripped string) (map[string]any, bool, []string, error) {
	start := strings.IndexByte(stripped, '{')
	if start < 0 {
		return nil, false, nil, errors.New("no object start")
	}
	body := stripped[start:]
	var notes []string
	if end := strings.LastIndexByte(body, '}'); end >= 0 {
		if tail := strings.TrimSpace(body[end+1:]); len(tail) <= l.config.TruncationSlack {
			body = body[:end+1]
		} else {
			notes = append(notes, fmt.Sprintf("%d bytes after the last '}', treating as truncated", len(tail)))
		}
	} else {
		notes = append(notes, "no closing brace, treating as truncated")
	}

	res := repairScan(body)
	notes = append(notes, res.notes...)
	data, err := decodeObject(res.text)
	return data, res.closed, notes, err
}

// Fallback jumps straight to the last tier. It is used when every attempt
// produced data the validator rejected.
func (l *Ladder) Fallback(raw string) model.ParseOutcome {
	return l.fallback(raw, nil)
}

// fallback is the last tier and cannot fail.
func (l *Ladder) fallback(raw string, notes []string) model.ParseOutcome {
	text := strings.TrimSpace(strings.ToValidUTF8(raw, "\uFFFD"))
	text, cut := truncateRunes(text, l.config.FallbackLength)
	if cut {
		text += "..."
	}
	if text == "" {
		text = "The model returned no usable content."
	}
	notes = append(notes, fmt.Sprintf("%s: ok", model.StrategyFallback))
	return model.ParseOutcome{
		Success:      false,
		Data:         synthesize("Untitled", text, "neutral", l.config.FallbackConfidence),
		StrategyUsed: model.StrategyFallback,
		RepairNotes:  notes,
	}
}

// decodeObject accepts only a single JSON object.
func decodeObject(text string) (map[string]any, error) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	return obj, nil
}

// stripFence returns the body of the first markdown code fence, or the text
// unchanged when there is none. An unclosed fence runs to the end.
func stripFence(text string) string {
	open := strings.Index(text, "```")
	if open < 0 {
		return text
	}
	body := text[open+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		// Drop the info string, e.g. "json".
		if info := strings.TrimSpace(body[:nl]); !strings.ContainsAny(info, "{[") {
			body = body[nl+1:]
		}
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return body
}

// clipBraces keeps the span from the first '{' to the last '}'.
func clipBraces(text string) string {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return text
	}
	return text[start : end+1]
}

// stripMarkers trims whitespace and fence markers at the edges only.
func stripMarkers(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = text[3:]
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			if info := strings.TrimSpace(text[:nl]); !strings.ContainsAny(info, "{[") {
				text = text[nl+1:]
			}
		} else {
			text = strings.TrimPrefix(text, "json")
		}
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func truncateRunes(s string, n int) (string, bool) {
	if utf8.RuneCountInString(s) <= n {
		return s, false
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
