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
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jaycherian/gcp-go-media-narrative/internal/core/model"
)

// Adjuster derives a stricter budget for the next attempt from the outcome of
// the previous one.
type Adjuster struct {
	config  AdjustConfig
	planner *Planner
}

// NewAdjuster creates an adjuster. The planner supplies floors and the
// timeout ceiling so adjusted budgets obey the same bounds as planned ones.
func NewAdjuster(config AdjustConfig, planner *Planner) *Adjuster {
	return &Adjuster{config: config, planner: planner}
}

// NeedsRetry reports whether an outcome carries a budget exhaustion or shape
// failure signal worth another attempt.
func NeedsRetry(outcome model.AttemptOutcome) bool {
	return outcome.FinishReason == model.FinishSizeLimit ||
		outcome.FinishReason == model.FinishError ||
		outcome.Truncated ||
		outcome.Invalid ||
		outcome.Strategy.Degraded()
}

// Adjust returns the budget for the next attempt.
func (a *Adjuster) Adjust(budget model.GenerationBudget, outcome model.AttemptOutcome) model.GenerationBudget {
	next := budget
	next.Attempt = budget.Attempt + 1
	var notes []string

	size := float64(budget.MaxOutputSize)
	switch {
	case outcome.FinishReason == model.FinishSizeLimit:
		size *= a.config.SizeLimitFactor
		next.Creativity = math.Max(a.config.MinCreativity, budget.Creativity-a.config.CreativityStep)
		notes = append(notes, fmt.Sprintf("size limit x%.2f", a.config.SizeLimitFactor))
	case outcome.Truncated || outcome.Invalid || outcome.Strategy.Degraded():
		size *= a.config.ShrinkFactor
		notes = append(notes, fmt.Sprintf("%s x%.2f", shapeReason(outcome), a.config.ShrinkFactor))
	}
	if next.Creativity > 1 {
		next.Creativity = 1
	}

	floor := a.planner.Floor(budget.Language, budget.OutputMode)
	next.MaxOutputSize = max(int(math.Round(size)), floor)

	timeout := budget.Timeout()
	if timeout > 0 && outcome.Elapsed > time.Duration(float64(timeout)*a.config.SlowFraction) {
		grown := int(math.Round(float64(budget.TimeoutMs) * a.config.TimeoutGrowth))
		next.TimeoutMs = min(grown, a.planner.MaxTimeoutMs())
		notes = append(notes, fmt.Sprintf("slow %s timeout=%dms", outcome.Elapsed.Round(time.Millisecond), next.TimeoutMs))
	}

	if len(notes) == 0 {
		notes = append(notes, "unchanged")
	}
	next.Rationale = fmt.Sprintf("%s | attempt %d: %s => %d tokens",
		budget.Rationale, next.Attempt, strings.Join(notes, ", "), next.MaxOutputSize)
	return next
}

func shapeReason(outcome model.AttemptOutcome) string {
	switch {
	case outcome.Truncated:
		return "truncated"
	case outcome.Invalid:
		return "invalid"
	}
	return "degraded parse " + outcome.Strategy.String()
}
