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

// Package workflow assembles commands into the pipelines the server runs.
// This file defines the adaptive narrative workflow.
//
// Logic Flow:
//  1. Planning: the signal is scored and a first budget is planned.
//  2. Each attempt materializes the content for its budget, prompts the
//     model, runs the repair ladder over the answer and validates the
//     result. Attempts run in their own context so a failed attempt leaves
//     no errors behind.
//  3. The retry Machine decides from the attempt's outcome whether to stop or
//     to retry with an adjusted budget.
//  4. The best attempt wins: valid before rejected, then the lower ladder
//     tier, then fewer warnings. When no attempt passed validation, the last
//     answer is run through the fallback tier so a payload always exists.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jaycherian/gcp-go-media-narrative/internal/cloud"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/budget"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/commands"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/complexity"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/language"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/materialize"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/model"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/repair"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/validate"
)

// NarrativeWorkflow turns a model.ContentSignal into a *model.NarrativeResult.
// The signal is read from the input param (or SignalParam) and the result is
// written to commands.NarrativeParam and the chain output.
type NarrativeWorkflow struct {
	cor.BaseCommand
	machine   *Machine
	ladder    *repair.Ladder
	validator *validate.Validator

	planning   cor.Chain
	generating cor.Chain
	parsing    cor.Chain
	validating cor.Chain

	attemptCounter metric.Int64Counter
}

// NewNarrativeWorkflow builds every pipeline component from config.Pipeline
// and prompts generator.
func NewNarrativeWorkflow(config *cloud.Config, generator model.Generator) (*NarrativeWorkflow, error) {
	pipeline := config.Pipeline
	if err := pipeline.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline configuration: %w", err)
	}

	narrative, err := commands.NewNarrativeGenerator("narrative-generator", config, generator)
	if err != nil {
		return nil, err
	}

	var estimator materialize.Estimator
	if enc := pipeline.Materializer.TokenEncoding; enc != "" {
		tk, err := materialize.NewTiktokenEstimator(enc)
		if err != nil {
			slog.Warn("falling back to the heuristic token estimator", "encoding", enc, "error", err)
		} else {
			estimator = tk
		}
	}

	var detector *language.Detector
	if pipeline.DetectLanguage {
		detector = language.NewDetector()
	}

	planner := budget.NewPlanner(pipeline.Planner)
	out := &NarrativeWorkflow{
		BaseCommand: *cor.NewBaseCommand("narrative-workflow"),
		machine:     NewMachine(pipeline.MaxAttempts, budget.NewAdjuster(pipeline.Adjuster, planner)),
		ladder:      repair.NewLadder(pipeline.Ladder),
		validator:   validate.NewValidator(validate.DefaultRules()),
	}

	out.planning = cor.NewBaseChain("narrative-planning").
		AddCommand(commands.NewAssessComplexity("assess-complexity", complexity.NewScorer(pipeline.Scorer))).
		AddCommand(commands.NewPlanBudget("plan-budget", planner, detector, pipeline.OutputMode))
	out.generating = cor.NewBaseChain("narrative-generating").
		AddCommand(commands.NewMaterializeContent("materialize-content", materialize.NewMaterializer(pipeline.Materializer, estimator))).
		AddCommand(narrative)
	out.parsing = cor.NewBaseChain("narrative-parsing").
		AddCommand(commands.NewParseResponse("parse-response", out.ladder))
	out.validating = cor.NewBaseChain("narrative-validating").
		AddCommand(commands.NewValidatePayload("validate-payload", out.validator))

	out.attemptCounter, _ = out.Meter.Int64Counter("narrative-workflow.attempts")
	return out, nil
}

func (w *NarrativeWorkflow) signal(context cor.Context) (model.ContentSignal, bool) {
	if s, ok := cor.Value[model.ContentSignal](context, w.GetInputParam()); ok {
		return s, true
	}
	return cor.Value[model.ContentSignal](context, commands.SignalParam)
}

// IsExecutable reports whether the context carries a content signal.
func (w *NarrativeWorkflow) IsExecutable(context cor.Context) bool {
	if context == nil || context.GetContext() == nil {
		return false
	}
	_, ok := w.signal(context)
	return ok
}

// Run executes the workflow outside of a chain.
func (w *NarrativeWorkflow) Run(ctx context.Context, signal model.ContentSignal) (*model.NarrativeResult, error) {
	chainCtx := cor.NewBaseContext(ctx)
	chainCtx.Add(cor.CtxIn, signal)
	w.Execute(chainCtx)
	if err := chainCtx.Err(); err != nil {
		return nil, err
	}
	result, _ := cor.Value[*model.NarrativeResult](chainCtx, commands.NarrativeParam)
	return result, nil
}

// candidate is one attempt that reached validation.
type candidate struct {
	attempt int
	budget  model.GenerationBudget
	outcome model.ParseOutcome
	payload *model.ValidatedPayload
	quality model.QualityTier
}

// better ranks a over b.
func (a *candidate) better(b *candidate) bool {
	if b == nil {
		return true
	}
	if (a.payload != nil) != (b.payload != nil) {
		return a.payload != nil
	}
	if a.outcome.StrategyUsed != b.outcome.StrategyUsed {
		return a.outcome.StrategyUsed < b.outcome.StrategyUsed
	}
	if a.payload != nil && len(a.payload.Warnings) != len(b.payload.Warnings) {
		return len(a.payload.Warnings) < len(b.payload.Warnings)
	}
	return false
}

// Execute plans the first budget, then drives the retry state machine until
// it reaches a terminal state.
func (w *NarrativeWorkflow) Execute(context cor.Context) {
	signal, ok := w.signal(context)
	if !ok {
		w.Fail(context, fmt.Errorf("no content signal under %q or %q", w.GetInputParam(), commands.SignalParam))
		return
	}
	signal = signal.Normalized()
	context.Add(commands.SignalParam, signal)

	w.planning.Execute(context)
	if context.HasErrors() {
		return
	}
	assessment, _ := cor.Value[model.ComplexityAssessment](context, commands.AssessmentParam)
	planned, _ := cor.Value[model.GenerationBudget](context, commands.BudgetParam)

	var (
		best      *candidate
		attemptCx cor.Context
		lastRaw   string
		generated bool
		lastErr   error
	)
	step := w.machine.Next(Start(planned), Outcome{})
	for !step.State.Terminal() {
		var observed Outcome
		switch step.State {
		case Generating:
			attemptCx = cor.NewBaseContext(context.GetContext())
			attemptCx.Add(commands.SignalParam, signal).
				Add(commands.AssessmentParam, assessment).
				Add(commands.BudgetParam, step.Budget)
			if w.attemptCounter != nil {
				w.attemptCounter.Add(context.GetContext(), 1, metric.WithAttributes(attribute.Int("attempt", step.Attempt)))
			}
			slog.InfoContext(context.GetContext(), "generating narrative",
				"source_id", signal.SourceID, "attempt", step.Attempt, "budget", step.Budget.MaxOutputSize, "rationale", step.Budget.Rationale)

			w.generating.Execute(attemptCx)
			if err := attemptCx.Err(); err != nil {
				lastErr = err
				elapsed, _ := cor.Value[time.Duration](attemptCx, commands.ElapsedParam)
				observed = Outcome{Err: err, Attempt: model.AttemptOutcome{Elapsed: elapsed}}
				if context.GetContext().Err() != nil {
					// The caller gave up; further attempts cannot succeed.
					step = Step{State: Failed, Attempt: step.Attempt, Budget: step.Budget}
					continue
				}
			} else if result, ok := cor.Value[model.GenerationResult](attemptCx, commands.ResponseParam); ok {
				lastRaw, generated = result.Text, true
			}

		case Parsing:
			w.parsing.Execute(attemptCx)

		case Validating:
			w.validating.Execute(attemptCx)
			c, attemptOutcome := w.observe(attemptCx, step)
			observed = Outcome{Attempt: attemptOutcome}
			if c.better(best) {
				best = c
			}
		}
		step = w.machine.Next(step, observed)
	}

	if best == nil || best.payload == nil {
		if !generated {
			w.Fail(context, fmt.Errorf("narrative generation failed after %d attempts: %w", step.Attempt, lastErr))
			return
		}
		fallback, err := w.fallback(lastRaw, best)
		if err != nil {
			w.Fail(context, err)
			return
		}
		best = fallback
	}

	result := &model.NarrativeResult{
		SourceID:    signal.SourceID,
		Payload:     best.payload,
		Assessment:  assessment,
		Budget:      best.budget,
		Strategy:    best.outcome.StrategyUsed,
		QualityTier: best.quality,
		Attempts:    step.Attempt,
		RepairNotes: best.outcome.RepairNotes,
	}
	slog.InfoContext(context.GetContext(), "narrative complete",
		"source_id", result.SourceID, "state", step.State.String(), "attempts", result.Attempts,
		"selected_attempt", best.attempt, "strategy", result.Strategy.String(), "warnings", len(result.Payload.Warnings))
	context.Add(commands.NarrativeParam, result)
	w.Succeed(context, result, attribute.String("strategy", result.Strategy.String()))
	context.Add(cor.CtxOut, result)
}

// observe reads what one attempt produced.
func (w *NarrativeWorkflow) observe(attemptCx cor.Context, step Step) (*candidate, model.AttemptOutcome) {
	result, _ := cor.Value[model.GenerationResult](attemptCx, commands.ResponseParam)
	outcome, _ := cor.Value[model.ParseOutcome](attemptCx, commands.OutcomeParam)
	content, _ := cor.Value[model.MaterializedContent](attemptCx, commands.ContentParam)
	elapsed, _ := cor.Value[time.Duration](attemptCx, commands.ElapsedParam)
	payload, _ := cor.Value[*model.ValidatedPayload](attemptCx, commands.PayloadParam)

	return &candidate{
			attempt: step.Attempt,
			budget:  step.Budget,
			outcome: outcome,
			payload: payload,
			quality: content.QualityTier,
		}, model.AttemptOutcome{
			FinishReason: result.FinishReason,
			Truncated:    outcome.Truncated,
			Strategy:     outcome.StrategyUsed,
			Invalid:      payload == nil,
			Elapsed:      elapsed,
		}
}

// fallback synthesizes a payload from the last raw answer once every attempt
// was rejected. rejected is the best of those attempts.
func (w *NarrativeWorkflow) fallback(raw string, rejected *candidate) (*candidate, error) {
	outcome := w.ladder.Fallback(raw)
	payload, err := w.validator.Validate(outcome.Data)
	if err != nil {
		return nil, fmt.Errorf("fallback synthesis rejected: %w", err)
	}
	out := &candidate{outcome: outcome, payload: payload, quality: model.QualityMetadataOnly}
	if rejected != nil {
		out.attempt, out.budget, out.quality = rejected.attempt, rejected.budget, rejected.quality
		out.outcome.RepairNotes = append(append([]string{}, rejected.outcome.RepairNotes...), outcome.RepairNotes...)
	}
	return out, nil
}
