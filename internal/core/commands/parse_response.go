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
// commands that turn raw model output into a validated payload.
package commands

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jaycherian/gcp-go-media-narrative/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/model"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/repair"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/validate"
)

// ParseResponse runs the repair ladder over the text of the
// model.GenerationResult under ResponseParam. It never records an error: the
// ladder always yields an outcome, at worst the fallback.
type ParseResponse struct {
	cor.BaseCommand
	ladder *repair.Ladder
}

// NewParseResponse creates the command that runs the repair ladder over the
// raw model reply.
func NewParseResponse(name string, ladder *repair.Ladder) *ParseResponse {
	out := &ParseResponse{BaseCommand: *cor.NewBaseCommand(name), ladder: ladder}
	out.InputParamName = ResponseParam
	out.OutputParamName = OutcomeParam
	return out
}

// Execute runs the ladder over the reply text and stores the outcome. The
// ladder always produces one, so only a missing input fails the command.
func (c *ParseResponse) Execute(context cor.Context) {
	result, ok := cor.Value[model.GenerationResult](context, c.GetInputParam())
	if !ok {
		c.Fail(context, fmt.Errorf("input %q is not a generation result", c.GetInputParam()))
		return
	}

	outcome := c.ladder.Parse(result.Text)
	trace.SpanFromContext(context.GetContext()).SetAttributes(
		attribute.String("parse.strategy", outcome.StrategyUsed.String()),
		attribute.Bool("parse.success", outcome.Success),
		attribute.Bool("parse.truncated", outcome.Truncated),
	)
	if outcome.StrategyUsed != model.StrategyStrict {
		slog.InfoContext(context.GetContext(), "model output needed repair",
			"strategy", outcome.StrategyUsed.String(), "truncated", outcome.Truncated, "notes", outcome.RepairNotes)
	}
	c.Succeed(context, outcome, attribute.String("strategy", outcome.StrategyUsed.String()))
}

// ValidatePayload leniently validates the data of the model.ParseOutcome
// under OutcomeParam. A rejected candidate is stored under RejectionParam
// rather than failing the chain; whether to retry is the workflow's call.
type ValidatePayload struct {
	cor.BaseCommand
	validator *validate.Validator
}

// NewValidatePayload creates the command that turns a parse outcome into a
// ValidatedPayload.
func NewValidatePayload(name string, validator *validate.Validator) *ValidatePayload {
	out := &ValidatePayload{BaseCommand: *cor.NewBaseCommand(name), validator: validator}
	out.InputParamName = OutcomeParam
	out.OutputParamName = PayloadParam
	return out
}

// Execute validates the parsed data, filling defaults and recording each as a
// warning.
//
// Inputs:
//   - the ParseOutcome stored under the command's input parameter.
//
// Outputs:
//   - a *model.ValidatedPayload under the output parameter, or the
//     rejection error under RejectionParam when no usable scene collection
//     exists. A rejection does not fail the command.
func (c *ValidatePayload) Execute(context cor.Context) {
	outcome, ok := cor.Value[model.ParseOutcome](context, c.GetInputParam())
	if !ok {
		c.Fail(context, fmt.Errorf("input %q is not a parse outcome", c.GetInputParam()))
		return
	}

	payload, err := c.validator.Validate(outcome.Data)
	if err != nil {
		slog.WarnContext(context.GetContext(), "candidate rejected", "strategy", outcome.StrategyUsed.String(), "error", err)
		context.Add(RejectionParam, err)
		if c.ErrorCounter != nil {
			c.ErrorCounter.Add(context.GetContext(), 1)
		}
		return
	}
	trace.SpanFromContext(context.GetContext()).SetAttributes(
		attribute.Int("validate.warnings", len(payload.Warnings)),
		attribute.Int("validate.scenes", len(payload.Document.Scenes)),
	)
	c.Succeed(context, payload)
}
