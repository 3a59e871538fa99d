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
	"fmt"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// Estimator predicts how many model tokens a text will consume.
type Estimator interface {
	Estimate(text string) int
}

// HeuristicEstimator divides the rune count by a fixed chars-per-token ratio.
type HeuristicEstimator struct {
	CharsPerToken int
}

// Estimate divides the rune count by CharsPerToken (4 when unset), rounding up.
func (h HeuristicEstimator) Estimate(text string) int {
	cpt := h.CharsPerToken
	if cpt <= 0 {
		cpt = 4
	}
	runes := utf8.RuneCountInString(text)
	return (runes + cpt - 1) / cpt
}

// TiktokenEstimator counts tokens with a BPE encoding. Gemini does not publish
// its tokenizer, so this is still an estimate, but a tighter one than the
// heuristic for code-like or non-Latin text.
type TiktokenEstimator struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenEstimator loads the named encoding, e.g. "cl100k_base".
func NewTiktokenEstimator(encoding string) (*TiktokenEstimator, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %q: %w", encoding, err)
	}
	return &TiktokenEstimator{encoding: enc}, nil
}

// Estimate counts tokens with the loaded encoding.
func (t *TiktokenEstimator) Estimate(text string) int {
	return len(t.encoding.Encode(text, nil, nil))
}
