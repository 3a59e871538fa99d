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

package budget_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-media-narrative/internal/core/budget"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/model"
)

func allHigh(level model.ComplexityLevel) model.ComplexityAssessment {
	return model.ComplexityAssessment{
		Level: level,
		Risks: model.RiskFactors{
			TokenOverflow:  model.RiskHigh,
			ProcessingTime: model.RiskHigh,
			Truncation:     model.RiskHigh,
		},
	}
}

func newPlanner(t *testing.T) *budget.Planner {
	config := budget.DefaultConfig()
	require.NoError(t, config.Validate())
	return budget.NewPlanner(config)
}

func TestPlanSimpleFreeText(t *testing.T) {
	out := newPlanner(t).Plan(model.ComplexityAssessment{Level: model.Simple})

	assert.Equal(t, 8192, out.MaxOutputSize)
	assert.Equal(t, 0.8, out.Creativity)
	assert.Equal(t, 30000, out.TimeoutMs)
	assert.Equal(t, model.FreeText, out.OutputMode)
	assert.Equal(t, 1, out.Attempt)
	assert.Contains(t, out.Rationale, "level=simple")
}

// Extreme free text with every risk high lands just above the floor and well
// under half the Simple baseline.
func TestPlanExtremeAllRisksHigh(t *testing.T) {
	out := newPlanner(t).Plan(allHigh(model.Extreme), budget.WithOutputMode(model.FreeText))

	assert.Equal(t, 1032, out.MaxOutputSize)
	assert.GreaterOrEqual(t, out.MaxOutputSize, 1024)
	assert.Less(t, out.MaxOutputSize, 8192/2)
	assert.Equal(t, 0.2, out.Creativity)
	assert.Equal(t, 75000, out.TimeoutMs)
	assert.Contains(t, out.Rationale, "token_overflow=high")
	assert.Contains(t, out.Rationale, "truncation=high")
}

func TestPlanModerateMediumRisks(t *testing.T) {
	assessment := model.ComplexityAssessment{
		Level: model.Moderate,
		Risks: model.RiskFactors{
			TokenOverflow:  model.RiskMedium,
			ProcessingTime: model.RiskMedium,
			Truncation:     model.RiskMedium,
		},
	}
	out := newPlanner(t).Plan(assessment)
	assert.Equal(t, 3525, out.MaxOutputSize)
	assert.Equal(t, 45000, out.TimeoutMs)
	assert.Equal(t, 0.6, out.Creativity)
}

func TestPlanStructuredUsesCapsAndFloor(t *testing.T) {
	planner := newPlanner(t)

	out := planner.Plan(model.ComplexityAssessment{Level: model.Complex}, budget.WithOutputMode(model.Structured))
	assert.Equal(t, 2048, out.MaxOutputSize)
	assert.Equal(t, model.Structured, out.OutputMode)

	out = planner.Plan(allHigh(model.Extreme), budget.WithOutputMode(model.Structured))
	assert.Equal(t, 768, out.MaxOutputSize)
	assert.Contains(t, out.Rationale, "clamped to floor 768")
}

func TestPlanHeavyLanguage(t *testing.T) {
	planner := newPlanner(t)

	out := planner.Plan(model.ComplexityAssessment{Level: model.Complex}, budget.WithLanguage("ja-JP"))
	assert.Equal(t, "ja", out.Language)
	assert.Equal(t, 6144, out.MaxOutputSize)

	out = planner.Plan(allHigh(model.Extreme), budget.WithLanguage("ZH"), budget.WithOutputMode(model.Structured))
	assert.Equal(t, 1152, out.MaxOutputSize)
	assert.Equal(t, 1152, planner.Floor("zh", model.Structured))

	out = planner.Plan(model.ComplexityAssessment{Level: model.Complex}, budget.WithLanguage("en"))
	assert.Equal(t, 4096, out.MaxOutputSize)
}

// No combination of inputs plans below the floor for its language and mode.
func TestPlanNeverBelowFloor(t *testing.T) {
	planner := newPlanner(t)
	levels := []model.ComplexityLevel{model.Simple, model.Moderate, model.Complex, model.Extreme}
	risks := []model.RiskLevel{model.RiskLow, model.RiskMedium, model.RiskHigh}
	for _, level := range levels {
		for _, r1 := range risks {
			for _, r2 := range risks {
				for _, r3 := range risks {
					for _, mode := range []model.OutputMode{model.FreeText, model.Structured} {
						for _, lang := range []string{"", "en", "ko"} {
							a := model.ComplexityAssessment{Level: level, Risks: model.RiskFactors{TokenOverflow: r1, ProcessingTime: r2, Truncation: r3}}
							out := planner.Plan(a, budget.WithOutputMode(mode), budget.WithLanguage(lang))
							assert.GreaterOrEqual(t, out.MaxOutputSize, planner.Floor(lang, mode))
							assert.GreaterOrEqual(t, out.TimeoutMs, 15000)
							assert.LessOrEqual(t, out.TimeoutMs, 120000)
						}
					}
				}
			}
		}
	}
}

func TestNormalizeLanguage(t *testing.T) {
	assert.Equal(t, "pt", budget.NormalizeLanguage(" PT_br "))
	assert.Equal(t, "zh", budget.NormalizeLanguage("zh-Hant"))
	assert.Equal(t, "", budget.NormalizeLanguage(""))
}

func TestConfigValidate(t *testing.T) {
	config := budget.DefaultConfig()
	config.Floor = 0
	config.Discounts.Truncation.High = 1
	config.Timeouts.MaxMs = 10
	err := config.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floors must be positive")
	assert.Contains(t, err.Error(), "truncation discount")
	assert.Contains(t, err.Error(), "timeout bounds")
}
