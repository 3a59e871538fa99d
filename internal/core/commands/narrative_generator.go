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
// command that prompts the generative model for a narrative.
//
// The prompt is a Go template rendered with the materialized content, the
// JSON schema of the expected document and a complete example document
// (few-shot prompting). A category may override the template and prepend its
// own system instructions. The call is bounded by the budget's timeout.
package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"text/template"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jaycherian/gcp-go-media-narrative/internal/cloud"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/model"
)

// NarrativeGenerator sends the rendered prompt to a model.Generator and
// writes the model.GenerationResult to ResponseParam.
type NarrativeGenerator struct {
	cor.BaseCommand
	config    *cloud.Config
	generator model.Generator
	template  *template.Template
	overrides map[string]*template.Template // Keyed by category.

	inputTokenCounter  metric.Int64Counter
	outputTokenCounter metric.Int64Counter
	finishCounter      metric.Int64Counter
	latency            metric.Float64Histogram
}

// NewNarrativeGenerator parses the configured narrative template and every
// category override.
func NewNarrativeGenerator(name string, config *cloud.Config, generator model.Generator) (*NarrativeGenerator, error) {
	text := config.PromptTemplates.NarrativePrompt
	if strings.TrimSpace(text) == "" {
		text = cloud.DefaultNarrativePrompt
	}
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse narrative prompt: %w", err)
	}

	overrides := make(map[string]*template.Template)
	for key, cat := range config.Categories {
		if strings.TrimSpace(cat.Narrative) == "" {
			continue
		}
		t, err := template.New(name + "-" + key).Parse(cat.Narrative)
		if err != nil {
			return nil, fmt.Errorf("failed to parse narrative prompt for category %s: %w", key, err)
		}
		overrides[key] = t
	}

	out := &NarrativeGenerator{
		BaseCommand: *cor.NewBaseCommand(name),
		config:      config,
		generator:   generator,
		template:    tmpl,
		overrides:   overrides,
	}
	out.InputParamName = ContentParam
	out.OutputParamName = ResponseParam

	out.inputTokenCounter, _ = out.Meter.Int64Counter(fmt.Sprintf("%s.gemini.token.input", name))
	out.outputTokenCounter, _ = out.Meter.Int64Counter(fmt.Sprintf("%s.gemini.token.output", name))
	out.finishCounter, _ = out.Meter.Int64Counter(fmt.Sprintf("%s.finish", name))
	out.latency, _ = out.Meter.Float64Histogram(fmt.Sprintf("%s.latency", name), metric.WithUnit("ms"))
	return out, nil
}

// GenerateParams creates the map of values substituted into the template.
func (t *NarrativeGenerator) GenerateParams(content model.MaterializedContent, signal model.ContentSignal, planned model.GenerationBudget) map[string]any {
	params := make(map[string]any)

	var cats strings.Builder
	for _, key := range slices.Sorted(maps.Keys(t.config.Categories)) {
		fmt.Fprintf(&cats, "%s - %s; ", key, t.config.Categories[key].Definition)
	}
	params["CATEGORIES"] = cats.String()
	params["CATEGORY"] = signal.Category
	params["LANGUAGE"] = planned.Language
	params["QUALITY_TIER"] = string(content.QualityTier)
	params["STRUCTURED"] = planned.OutputMode == model.Structured
	params["SCHEMA"] = model.NarrativeSchemaJSON()

	example, _ := json.Marshal(model.GetExampleNarrative())
	params["EXAMPLE_JSON"] = string(example)
	params["CONTENT"] = content.Text
	return params
}

// Prompt renders the prompt for one attempt.
func (t *NarrativeGenerator) Prompt(content model.MaterializedContent, signal model.ContentSignal, planned model.GenerationBudget) (string, error) {
	tmpl := t.template
	if o, ok := t.overrides[signal.Category]; ok {
		tmpl = o
	}
	var buffer bytes.Buffer
	if cat, ok := t.config.Categories[signal.Category]; ok && cat.SystemInstructions != "" {
		buffer.WriteString(strings.TrimSpace(cat.SystemInstructions))
		buffer.WriteString("\n\n")
	}
	if err := tmpl.Execute(&buffer, t.GenerateParams(content, signal, planned)); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buffer.String(), nil
}

// Execute sends the prompt to the model and stores the raw reply. A reply
// that stops early is kept, with its finish reason, for the ladder to repair.
func (t *NarrativeGenerator) Execute(chCtx cor.Context) {
	content, ok := cor.Value[model.MaterializedContent](chCtx, t.GetInputParam())
	if !ok {
		t.Fail(chCtx, fmt.Errorf("input %q is not materialized content", t.GetInputParam()))
		return
	}
	planned, ok := cor.Value[model.GenerationBudget](chCtx, BudgetParam)
	if !ok {
		t.Fail(chCtx, fmt.Errorf("no generation budget under %q", BudgetParam))
		return
	}
	signal, _ := cor.Value[model.ContentSignal](chCtx, SignalParam)

	prompt, err := t.Prompt(content, signal, planned)
	if err != nil {
		t.Fail(chCtx, err)
		return
	}

	ctx := chCtx.GetContext()
	if planned.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, planned.Timeout())
		defer cancel()
	}

	started := time.Now()
	result, err := t.generator.Generate(ctx, prompt, planned)
	elapsed := time.Since(started)
	chCtx.Add(ElapsedParam, elapsed)

	attrs := metric.WithAttributes(attribute.Int("attempt", planned.Attempt))
	if t.latency != nil {
		t.latency.Record(chCtx.GetContext(), float64(elapsed.Microseconds())/1000, attrs)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("generation exceeded the %dms budget timeout: %w", planned.TimeoutMs, err)
		}
		t.Fail(chCtx, fmt.Errorf("gemini request failed: %w", err), attribute.Int("attempt", planned.Attempt))
		return
	}

	if t.inputTokenCounter != nil {
		t.inputTokenCounter.Add(chCtx.GetContext(), int64(result.InputTokens), attrs)
	}
	if t.outputTokenCounter != nil {
		t.outputTokenCounter.Add(chCtx.GetContext(), int64(result.OutputTokens), attrs)
	}
	if t.finishCounter != nil {
		t.finishCounter.Add(chCtx.GetContext(), 1, metric.WithAttributes(attribute.String("finish_reason", string(result.FinishReason))))
	}
	trace.SpanFromContext(chCtx.GetContext()).SetAttributes(
		attribute.String("generation.finish_reason", string(result.FinishReason)),
		attribute.Int("generation.output_tokens", result.OutputTokens),
		attribute.Int64("generation.elapsed_ms", elapsed.Milliseconds()),
	)
	t.Succeed(chCtx, result, attribute.Int("attempt", planned.Attempt))
}
