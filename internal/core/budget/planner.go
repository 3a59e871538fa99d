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

// Package budget plans the generation parameters for one attempt and
// recomputes them from the feedback of a failed attempt.
//
// The planner starts from a per-level token table, applies a language
// multiplier and the risk discounts, and clamps to a language-dependent floor.
// Budgets are values: the adjuster never mutates its input and every retry
// receives a fresh budget.
package budget

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/jaycherian/gcp-go-media-narrative/internal/core/model"
)

// PlanOption customizes a single Plan call.
type PlanOption func(*planRequest)

type planRequest struct {
	language string
	mode     model.OutputMode
}

// WithLanguage sets the target language hint (ISO 639-1, region suffixes ignored).
func WithLanguage(language string) PlanOption {
	return func(r *planRequest) {
		r.language = NormalizeLanguage(language)
	}
}

// WithOutputMode requests Structured or FreeText output. FreeText is the default.
func WithOutputMode(mode model.OutputMode) PlanOption {
	return func(r *planRequest) {
		r.mode = mode
	}
}

// Planner produces budgets from assessments.
type Planner struct {
	config Config
}

// NewPlanner creates a planner with the given tuning.
func NewPlanner(config Config) *Planner {
	return &Planner{config: config}
}

// Plan computes the budget for an assessment.
func (p *Planner) Plan(assessment model.ComplexityAssessment, opts ...PlanOption) model.GenerationBudget {
	req := planRequest{mode: model.FreeText}
	for _, opt := range opts {
		opt(&req)
	}

	multiplier := p.languageMultiplier(req.language)
	base := p.config.BaseTokens.For(assessment.Level)
	if req.mode == model.Structured {
		base = p.config.StructuredCaps.For(assessment.Level)
	}

	notes := []string{fmt.Sprintf("level=%s base=%d", assessment.Level, base)}
	size := float64(base) * multiplier
	if multiplier != 1 {
		notes = append(notes, fmt.Sprintf("lang=%s x%.2f", req.language, multiplier))
	}

	d := p.config.Discounts
	for _, step := range []struct {
		name     string
		risk     model.RiskLevel
		discount RiskDiscount
	}{
		{"token_overflow", assessment.Risks.TokenOverflow, d.TokenOverflow},
		{"processing_time", assessment.Risks.ProcessingTime, d.ProcessingTime},
		{"truncation", assessment.Risks.Truncation, d.Truncation},
	} {
		if f := step.discount.Factor(step.risk); f != 1 {
			size *= f
			notes = append(notes, fmt.Sprintf("%s=%s x%.2f", step.name, step.risk, f))
		}
	}

	floor := p.Floor(req.language, req.mode)
	maxOutput := int(math.Round(size))
	if maxOutput < floor {
		maxOutput = floor
		notes = append(notes, fmt.Sprintf("clamped to floor %d", floor))
	}
	notes = append(notes, fmt.Sprintf("mode=%s => %d tokens", req.mode, maxOutput))

	return model.GenerationBudget{
		MaxOutputSize: maxOutput,
		Creativity:    p.config.Creativity.For(assessment.Level),
		TimeoutMs:     p.timeout(assessment.Risks.ProcessingTime),
		OutputMode:    req.mode,
		Rationale:     strings.Join(notes, "; "),
		Level:         assessment.Level,
		Language:      req.language,
		Attempt:       1,
	}
}

// Floor is the smallest MaxOutputSize any budget for this language and mode
// may carry.
func (p *Planner) Floor(language string, mode model.OutputMode) int {
	floor := p.config.Floor
	if mode == model.Structured {
		floor = p.config.StructuredFloor
	}
	return int(math.Ceil(float64(floor) * p.languageMultiplier(NormalizeLanguage(language))))
}

// MaxTimeoutMs is the ceiling for any attempt deadline.
func (p *Planner) MaxTimeoutMs() int {
	return p.config.Timeouts.MaxMs
}

func (p *Planner) languageMultiplier(language string) float64 {
	if language != "" && slices.Contains(p.config.HeavyLanguages, language) {
		return p.config.LanguageMultiplier
	}
	return 1
}

func (p *Planner) timeout(risk model.RiskLevel) int {
	t := p.config.Timeouts
	ms := float64(t.BaseMs)
	switch risk {
	case model.RiskMedium:
		ms *= t.MediumFactor
	case model.RiskHigh:
		ms *= t.HighFactor
	}
	return clampInt(int(math.Round(ms)), t.MinMs, t.MaxMs)
}

// NormalizeLanguage lowercases a language tag and drops any region suffix,
// so "zh-TW" and "ZH_cn" both read as "zh".
func NormalizeLanguage(language string) string {
	language = strings.ToLower(strings.TrimSpace(language))
	if i := strings.IndexAny(language, "-_"); i >= 0 {
		language = language[:i]
	}
	return language
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
