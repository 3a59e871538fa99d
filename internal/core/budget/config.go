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

package budget

import (
	"errors"
	"fmt"

	"github.com/jaycherian/gcp-go-media-narrative/internal/core/model"
)

// RiskDiscount is the fractional reduction applied for a Medium or High risk.
type RiskDiscount struct {
	Medium float64 `toml:"medium" json:"medium"`
	High   float64 `toml:"high" json:"high"`
}

// Factor returns the multiplier for a risk level.
func (d RiskDiscount) Factor(level model.RiskLevel) float64 {
	switch level {
	case model.RiskHigh:
		return 1 - d.High
	case model.RiskMedium:
		return 1 - d.Medium
	}
	return 1
}

// Discounts compose multiplicatively in field order: token overflow, then
// processing time, then truncation.
type Discounts struct {
	TokenOverflow  RiskDiscount `toml:"token_overflow" json:"token_overflow"`
	ProcessingTime RiskDiscount `toml:"processing_time" json:"processing_time"`
	Truncation     RiskDiscount `toml:"truncation" json:"truncation"`
}

// Timeouts controls the per-attempt deadline.
type Timeouts struct {
	BaseMs       int     `toml:"base_ms" json:"base_ms"`
	MediumFactor float64 `toml:"medium_factor" json:"medium_factor"`
	HighFactor   float64 `toml:"high_factor" json:"high_factor"`
	MinMs        int     `toml:"min_ms" json:"min_ms"`
	MaxMs        int     `toml:"max_ms" json:"max_ms"`
}

// Config is the planner tuning. Heavy languages are ISO 639-1 codes whose
// scripts need more tokens per semantic unit.
type Config struct {
	BaseTokens         model.LevelTable `toml:"base_tokens" json:"base_tokens"`
	StructuredCaps     model.LevelTable `toml:"structured_caps" json:"structured_caps"`
	Floor              int              `toml:"floor" json:"floor"`
	StructuredFloor    int              `toml:"structured_floor" json:"structured_floor"`
	HeavyLanguages     []string         `toml:"heavy_languages" json:"heavy_languages"`
	LanguageMultiplier float64          `toml:"language_multiplier" json:"language_multiplier"`
	Discounts          Discounts        `toml:"discounts" json:"discounts"`
	Creativity         model.LevelScale `toml:"creativity" json:"creativity"`
	Timeouts           Timeouts         `toml:"timeouts" json:"timeouts"`
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		BaseTokens:         model.DefaultBaseTokens,
		StructuredCaps:     model.LevelTable{Simple: 4096, Moderate: 3072, Complex: 2048, Extreme: 1536},
		Floor:              1024,
		StructuredFloor:    768,
		HeavyLanguages:     []string{"zh", "ja", "ko"},
		LanguageMultiplier: 1.5,
		Discounts: Discounts{
			TokenOverflow:  RiskDiscount{Medium: 0.25, High: 0.40},
			ProcessingTime: RiskDiscount{Medium: 0.10, High: 0.20},
			Truncation:     RiskDiscount{Medium: 0.15, High: 0.30},
		},
		Creativity: model.LevelScale{Simple: 0.8, Moderate: 0.6, Complex: 0.4, Extreme: 0.2},
		Timeouts: Timeouts{
			BaseMs:       30000,
			MediumFactor: 1.5,
			HighFactor:   2.5,
			MinMs:        15000,
			MaxMs:        120000,
		},
	}
}

// Validate checks the invariants the planner relies on.
func (c Config) Validate() error {
	var errs []error
	if c.Floor <= 0 || c.StructuredFloor <= 0 {
		errs = append(errs, errors.New("floors must be positive"))
	}
	if c.LanguageMultiplier < 1 {
		errs = append(errs, fmt.Errorf("language multiplier %.2f must be >= 1", c.LanguageMultiplier))
	}
	for name, d := range map[string]RiskDiscount{
		"token_overflow":  c.Discounts.TokenOverflow,
		"processing_time": c.Discounts.ProcessingTime,
		"truncation":      c.Discounts.Truncation,
	} {
		if d.Medium < 0 || d.High < 0 || d.Medium >= 1 || d.High >= 1 {
			errs = append(errs, fmt.Errorf("%s discount must be in [0,1)", name))
		}
	}
	if c.Timeouts.MinMs <= 0 || c.Timeouts.MaxMs < c.Timeouts.MinMs {
		errs = append(errs, errors.New("timeout bounds are inverted"))
	}
	return errors.Join(errs...)
}

// AdjustConfig tunes the feedback adjuster.
type AdjustConfig struct {
	SizeLimitFactor float64 `toml:"size_limit_factor" json:"size_limit_factor"` // Applied when the model hit its size limit.
	ShrinkFactor    float64 `toml:"shrink_factor" json:"shrink_factor"`         // Applied on truncation, degraded parse or invalid payload.
	CreativityStep  float64 `toml:"creativity_step" json:"creativity_step"`
	MinCreativity   float64 `toml:"min_creativity" json:"min_creativity"`
	SlowFraction    float64 `toml:"slow_fraction" json:"slow_fraction"` // Fraction of the timeout after which an attempt counts as slow.
	TimeoutGrowth   float64 `toml:"timeout_growth" json:"timeout_growth"`
}

// DefaultAdjustConfig returns the production tuning.
func DefaultAdjustConfig() AdjustConfig {
	return AdjustConfig{
		SizeLimitFactor: 0.75,
		ShrinkFactor:    0.8,
		CreativityStep:  0.1,
		MinCreativity:   0.1,
		SlowFraction:    0.8,
		TimeoutGrowth:   1.5,
	}
}
