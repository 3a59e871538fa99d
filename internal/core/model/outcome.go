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

package model

import "fmt"

// ParseStrategy names a rung of the repair ladder, ordered from strict to fallback.
type ParseStrategy int

const (
	StrategyStrict ParseStrategy = iota
	StrategyMarkdownStrip
	StrategyIntelligentRepair
	StrategyPartialExtraction
	StrategyFallback
)

// String returns the tier name.
func (s ParseStrategy) String() string {
	switch s {
	case StrategyStrict:
		return "strict"
	case StrategyMarkdownStrip:
		return "markdown_strip"
	case StrategyIntelligentRepair:
		return "intelligent_repair"
	case StrategyPartialExtraction:
		return "partial_extraction"
	case StrategyFallback:
		return "fallback"
	}
	return "unknown"
}

// MarshalText lets strategies travel as readable strings in JSON and logs.
func (s ParseStrategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (s *ParseStrategy) UnmarshalText(text []byte) error {
	for candidate := StrategyStrict; candidate <= StrategyFallback; candidate++ {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown parse strategy %q", text)
}

// Degraded reports whether the data came from a salvage tier rather than a
// structural parse.
func (s ParseStrategy) Degraded() bool {
	return s >= StrategyPartialExtraction
}

// ParseOutcome is produced for every raw response, successful or not.
type ParseOutcome struct {
	Success      bool           `json:"success"`
	Data         map[string]any `json:"data,omitempty"`
	StrategyUsed ParseStrategy  `json:"strategy_used"`
	RepairNotes  []string       `json:"repair_notes"`
	Truncated    bool           `json:"truncated"`
}
