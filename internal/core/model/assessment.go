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

// ComplexityLevel is one of four discrete tiers summarizing how much
// generation budget a source needs.
type ComplexityLevel int

const (
	Simple ComplexityLevel = iota
	Moderate
	Complex
	Extreme
)

// String returns the lower-case level name.
func (l ComplexityLevel) String() string {
	switch l {
	case Simple:
		return "simple"
	case Moderate:
		return "moderate"
	case Complex:
		return "complex"
	case Extreme:
		return "extreme"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// MarshalText lets levels travel as readable strings in JSON and logs.
func (l ComplexityLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (l *ComplexityLevel) UnmarshalText(text []byte) error {
	for _, candidate := range []ComplexityLevel{Simple, Moderate, Complex, Extreme} {
		if candidate.String() == string(text) {
			*l = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown complexity level %q", text)
}

// LevelForScore maps a 0-100 score onto the fixed threshold table.
func LevelForScore(score int) ComplexityLevel {
	switch {
	case score <= 30:
		return Simple
	case score <= 65:
		return Moderate
	case score <= 85:
		return Complex
	default:
		return Extreme
	}
}

// RiskLevel rates a single risk category.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
)

// String returns the lower-case risk name.
func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	}
	return fmt.Sprintf("risk(%d)", int(r))
}

// MarshalText encodes the risk by name.
func (r RiskLevel) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (r *RiskLevel) UnmarshalText(text []byte) error {
	for _, candidate := range []RiskLevel{RiskLow, RiskMedium, RiskHigh} {
		if candidate.String() == string(text) {
			*r = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown risk level %q", text)
}

// RiskFactors are computed independently of the headline score.
type RiskFactors struct {
	TokenOverflow  RiskLevel `json:"token_overflow"`
	ProcessingTime RiskLevel `json:"processing_time"`
	Truncation     RiskLevel `json:"truncation"`
}

// ScoringMode records which weighting scheme produced a score.
type ScoringMode string

const (
	ScoringFull  ScoringMode = "full"
	ScoringBasic ScoringMode = "basic"
)

// SubScores are the five step-function outputs, each in [0,100].
type SubScores struct {
	Duration   int `json:"duration"`
	Characters int `json:"characters"`
	Scenes     int `json:"scenes"`
	Dialogues  int `json:"dialogues"`
	Transcript int `json:"transcript"`
}

// ComplexityAssessment is derived deterministically from a ContentSignal. It is
// recomputed, never patched in place.
type ComplexityAssessment struct {
	Score             int             `json:"score"`
	Level             ComplexityLevel `json:"level"`
	Risks             RiskFactors     `json:"risk_factors"`
	RecommendedBudget int             `json:"recommended_budget"`
	Mode              ScoringMode     `json:"mode"`
	SubScores         SubScores       `json:"sub_scores"`
}

// LevelTable assigns one integer per complexity level. It is the shape used by
// every per-level tuning table (base tokens, structured caps).
type LevelTable struct {
	Simple   int `toml:"simple" json:"simple"`
	Moderate int `toml:"moderate" json:"moderate"`
	Complex  int `toml:"complex" json:"complex"`
	Extreme  int `toml:"extreme" json:"extreme"`
}

// For returns the entry for a level. Unknown levels read as Extreme.
func (t LevelTable) For(level ComplexityLevel) int {
	switch level {
	case Simple:
		return t.Simple
	case Moderate:
		return t.Moderate
	case Complex:
		return t.Complex
	}
	return t.Extreme
}

// LevelScale is the float counterpart of LevelTable.
type LevelScale struct {
	Simple   float64 `toml:"simple" json:"simple"`
	Moderate float64 `toml:"moderate" json:"moderate"`
	Complex  float64 `toml:"complex" json:"complex"`
	Extreme  float64 `toml:"extreme" json:"extreme"`
}

// For returns the multiplier for level.
func (s LevelScale) For(level ComplexityLevel) float64 {
	switch level {
	case Simple:
		return s.Simple
	case Moderate:
		return s.Moderate
	case Complex:
		return s.Complex
	}
	return s.Extreme
}

// DefaultBaseTokens is the free-text output budget per level. It decreases as
// complexity rises because more fields compete for the same hard ceiling.
var DefaultBaseTokens = LevelTable{Simple: 8192, Moderate: 6144, Complex: 4096, Extreme: 3072}
