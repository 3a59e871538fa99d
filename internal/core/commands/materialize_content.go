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
// command that renders the signal into prompt content sized to the budget.
package commands

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jaycherian/gcp-go-media-narrative/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/materialize"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/model"
)

// MaterializeContent reads SignalParam, AssessmentParam and BudgetParam and
// writes the rendered content to ContentParam. It runs once per attempt, so a
// shrunken retry budget yields shorter content.
type MaterializeContent struct {
	cor.BaseCommand
	materializer *materialize.Materializer
}

// NewMaterializeContent creates the command that renders the prompt for the
// planned budget.
func NewMaterializeContent(name string, materializer *materialize.Materializer) *MaterializeContent {
	out := &MaterializeContent{BaseCommand: *cor.NewBaseCommand(name), materializer: materializer}
	out.InputParamName = BudgetParam
	out.OutputParamName = ContentParam
	return out
}

// Execute reads the signal and budget from the context and stores the rendered
// prompt as the command's output.
func (c *MaterializeContent) Execute(context cor.Context) {
	planned, ok := cor.Value[model.GenerationBudget](context, c.GetInputParam())
	if !ok {
		c.Fail(context, fmt.Errorf("input %q is not a generation budget", c.GetInputParam()))
		return
	}
	signal, ok := cor.Value[model.ContentSignal](context, SignalParam)
	if !ok {
		c.Fail(context, fmt.Errorf("no content signal under %q", SignalParam))
		return
	}
	assessment, ok := cor.Value[model.ComplexityAssessment](context, AssessmentParam)
	if !ok {
		c.Fail(context, fmt.Errorf("no complexity assessment under %q", AssessmentParam))
		return
	}

	content := c.materializer.Materialize(signal, assessment, planned)
	trace.SpanFromContext(context.GetContext()).SetAttributes(
		attribute.String("content.strategy", content.Strategy),
		attribute.String("content.quality_tier", string(content.QualityTier)),
		attribute.Int("content.estimated_size", content.EstimatedSize),
	)
	c.Succeed(context, content, attribute.String("strategy", content.Strategy))
}
