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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// planning commands: complexity assessment and budget planning.
package commands

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jaycherian/gcp-go-media-narrative/internal/core/budget"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/complexity"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/language"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/model"
)

// AssessComplexity scores the signal under SignalParam.
type AssessComplexity struct {
	cor.BaseCommand
	scorer *complexity.Scorer
}

// NewAssessComplexity creates the command that scores a content signal.
func NewAssessComplexity(name string, scorer *complexity.Scorer) *AssessComplexity {
	out := &AssessComplexity{BaseCommand: *cor.NewBaseCommand(name), scorer: scorer}
	out.InputParamName = SignalParam
	out.OutputParamName = AssessmentParam
	return out
}

// Execute scores the signal and stores the assessment.
func (c *AssessComplexity) Execute(context cor.Context) {
	signal, ok := cor.Value[model.ContentSignal](context, c.GetInputParam())
	if !ok {
		c.Fail(context, fmt.Errorf("input %q is not a content signal", c.GetInputParam()))
		return
	}

	assessment := c.scorer.Assess(signal)
	trace.SpanFromContext(context.GetContext()).SetAttributes(
		attribute.Int("complexity.score", assessment.Score),
		attribute.String("complexity.level", assessment.Level.String()),
		attribute.String("complexity.mode", string(assessment.Mode)),
	)
	slog.DebugContext(context.GetContext(), "assessed complexity",
		"source_id", signal.SourceID, "score", assessment.Score, "level", assessment.Level.String())
	c.Succeed(context, assessment, attribute.String("level", assessment.Level.String()))
}

// PlanBudget plans the first attempt's budget from the assessment under
// AssessmentParam. The target language is the signal's hint, or detected from
// its text when a detector is set.
type PlanBudget struct {
	cor.BaseCommand
	planner  *budget.Planner
	detector *language.Detector
	mode     model.OutputMode
}

// NewPlanBudget creates the command that plans the first generation budget.
//
// Inputs:
//   - name: the command name.
//   - planner: derives token and time limits from an assessment.
//   - detector: guesses the language when the signal carries no hint. May be nil.
//   - mode: free text or structured output.
func NewPlanBudget(name string, planner *budget.Planner, detector *language.Detector, mode model.OutputMode) *PlanBudget {
	out := &PlanBudget{BaseCommand: *cor.NewBaseCommand(name), planner: planner, detector: detector, mode: mode}
	out.InputParamName = AssessmentParam
	out.OutputParamName = BudgetParam
	return out
}

// Execute plans the budget for the stored assessment.
func (c *PlanBudget) Execute(context cor.Context) {
	assessment, ok := cor.Value[model.ComplexityAssessment](context, c.GetInputParam())
	if !ok {
		c.Fail(context, fmt.Errorf("input %q is not a complexity assessment", c.GetInputParam()))
		return
	}
	signal, _ := cor.Value[model.ContentSignal](context, SignalParam)

	lang := signal.Language
	if lang == "" && c.detector != nil {
		lang = c.detector.Detect(signal.Transcript, signal.Description, signal.Title)
	}

	planned := c.planner.Plan(assessment, budget.WithLanguage(lang), budget.WithOutputMode(c.mode))
	trace.SpanFromContext(context.GetContext()).SetAttributes(
		attribute.Int("budget.max_output_size", planned.MaxOutputSize),
		attribute.Float64("budget.creativity", planned.Creativity),
		attribute.Int("budget.timeout_ms", planned.TimeoutMs),
		attribute.String("budget.language", planned.Language),
	)
	c.Succeed(context, planned, attribute.String("level", planned.Level.String()))
}
