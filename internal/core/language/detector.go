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

// Package language infers the target language of a source item when the
// caller gave no hint. The budget planner only needs to know whether the
// output will be in a token-heavy script, so detection is limited to a small
// candidate set and is skipped for short samples.
package language

import (
	"strings"
	"unicode/utf8"

	"github.com/pemistahl/lingua-go"
)

// DefaultCandidates covers the languages the pipeline budgets for explicitly
// plus the common Latin-script languages.
var DefaultCandidates = []lingua.Language{
	lingua.English,
	lingua.Spanish,
	lingua.French,
	lingua.German,
	lingua.Portuguese,
	lingua.Italian,
	lingua.Chinese,
	lingua.Japanese,
	lingua.Korean,
}

// minSampleRunes is the shortest sample worth detecting.
const minSampleRunes = 20

// maxSampleBytes bounds detection cost on long transcripts.
const maxSampleBytes = 4096

// Detector wraps a lingua detector. A zero Detector reports no language.
type Detector struct {
	detector lingua.LanguageDetector
}

// NewDetector builds a detector restricted to the given candidates.
func NewDetector(candidates ...lingua.Language) *Detector {
	if len(candidates) < 2 {
		candidates = DefaultCandidates
	}
	return &Detector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(candidates...).
			WithMinimumRelativeDistance(0.1).
			Build(),
	}
}

// Detect returns the lowercase ISO 639-1 code of the dominant language of the
// samples, or "" when it cannot tell.
func (d *Detector) Detect(samples ...string) string {
	if d == nil || d.detector == nil {
		return ""
	}
	var sb strings.Builder
	for _, s := range samples {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(s)
		if sb.Len() >= maxSampleBytes {
			break
		}
	}
	text := sb.String()
	if len(text) > maxSampleBytes {
		text = strings.ToValidUTF8(text[:maxSampleBytes], "")
	}
	if utf8.RuneCountInString(text) < minSampleRunes {
		return ""
	}
	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}
