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

// Package cloud defines the application configuration, loaded from TOML
// files, and the clients and wrappers for the Google Cloud services the
// narrative pipeline talks to.
//
// This file holds the configuration structs:
//   - BigQueryDataSource: dataset and table for persisted narratives.
//   - PromptTemplates: text templates for the narrative prompt.
//   - VertexAiLLMModel: one configured generative model.
//   - TopicSubscription: one Pub/Sub subscription.
//   - Storage: the bucket signal documents are read from.
//   - Category: a source category and its prompt overrides.
//   - Pipeline: tuning for every stage of the adaptive generation pipeline.
//   - Config: the root of all of the above.
package cloud

import (
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-media-narrative/internal/core/budget"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/complexity"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/materialize"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/model"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/repair"
)

// DefaultSafetySettings disables blocking for every harm category. Source
// material is trusted, and a blocked response would only reach the fallback
// tier of the repair ladder.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// BigQueryDataSource locates the narrative table.
type BigQueryDataSource struct {
	DatasetName    string `toml:"dataset"`
	NarrativeTable string `toml:"narrative_table"`
}

// PromptTemplates holds the prompt templates.
type PromptTemplates struct {
	NarrativePrompt string `toml:"narrative"` // Rendered with the materialized content, schema and example.
}

// DefaultNarrativePrompt is used when no narrative template is configured.
// STRUCTURED, SCHEMA, EXAMPLE_JSON, CATEGORIES, CATEGORY, LANGUAGE,
// QUALITY_TIER and CONTENT are supplied at render time.
const DefaultNarrativePrompt = `You are a story editor. Retell the source below as a narrative that a reader
who has not seen it can follow. Keep scenes in order and do not invent events.
{{if .LANGUAGE}}Write in the language with ISO 639-1 code "{{.LANGUAGE}}".{{end}}
{{if eq .QUALITY_TIER "metadata_only"}}Only metadata is available; keep the narrative short and give a single scene.{{end}}
{{if .CATEGORY}}The source is a {{.CATEGORY}}. Known categories: {{.CATEGORIES}}{{end}}
{{if .STRUCTURED}}Respond with a single JSON object that conforms to this JSON schema:
{{.SCHEMA}}
Here is an example of a valid response:
{{.EXAMPLE_JSON}}
{{else}}Respond with a title line, a mood line, the narrative, then the scenes in order.{{end}}
SOURCE:
{{.CONTENT}}
`

// VertexAiLLMModel represents the configuration for a Vertex AI large language model (LLM).
type VertexAiLLMModel struct {
	Model              string  `toml:"model"`
	SystemInstructions string  `toml:"system_instructions"`
	Temperature        float32 `toml:"temperature"` // Replaced per attempt by the budget's creativity.
	TopP               float32 `toml:"top_p"`
	TopK               float32 `toml:"top_k"`
	MaxTokens          int32   `toml:"max_tokens"` // Hard ceiling; the budget may only lower it.
	OutputFormat       string  `toml:"output_format"`
	RateLimit          int     `toml:"rate_limit"` // Requests per second.
}

// TopicSubscription represents the configuration for a Pub/Sub topic subscription.
type TopicSubscription struct {
	Name             string `toml:"name"`
	DeadLetterTopic  string `toml:"dead_letter_topic"`
	TimeoutInSeconds int    `toml:"timeout_in_seconds"`
}

// Storage names the bucket holding signal documents.
type Storage struct {
	SignalBucket string `toml:"signal_bucket"`
}

// Category defines a source category and optional overrides for the system
// instructions and prompt template.
type Category struct {
	Name               string `toml:"name"`
	Definition         string `toml:"definition"`
	SystemInstructions string `toml:"system_instructions"`
	Narrative          string `toml:"narrative"`
}

// Pipeline tunes the adaptive generation pipeline.
type Pipeline struct {
	AgentModel     string              `toml:"agent_model"`     // Key into Config.AgentModels.
	MaxAttempts    int                 `toml:"max_attempts"`    // Content-shape retry ceiling.
	OutputMode     model.OutputMode    `toml:"output_mode"`     // "structured" or "free_text".
	DetectLanguage bool                `toml:"detect_language"` // Detect the target language when no hint is given.
	Scorer         complexity.Config   `toml:"scorer"`
	Planner        budget.Config       `toml:"planner"`
	Adjuster       budget.AdjustConfig `toml:"adjuster"`
	Materializer   materialize.Config  `toml:"materializer"`
	Ladder         repair.Config       `toml:"ladder"`
}

// DefaultPipeline returns the production tuning.
func DefaultPipeline() Pipeline {
	return Pipeline{
		AgentModel:     "creative-flash",
		MaxAttempts:    3,
		OutputMode:     model.Structured,
		DetectLanguage: true,
		Scorer:         complexity.DefaultConfig(),
		Planner:        budget.DefaultConfig(),
		Adjuster:       budget.DefaultAdjustConfig(),
		Materializer:   materialize.DefaultConfig(),
		Ladder:         repair.DefaultConfig(),
	}
}

// Validate reports every inconsistent setting.
func (p Pipeline) Validate() error {
	var errs []error
	if p.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("max_attempts must be >= 1, got %d", p.MaxAttempts))
	}
	if p.OutputMode != model.Structured && p.OutputMode != model.FreeText {
		errs = append(errs, fmt.Errorf("unknown output_mode %q", p.OutputMode))
	}
	if err := p.Scorer.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("scorer: %w", err))
	}
	if err := p.Planner.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("planner: %w", err))
	}
	return errors.Join(errs...)
}

// Config represents the overall configuration for the application, loaded
// from TOML files.
type Config struct {
	Application struct {
		Name            string `toml:"name"`
		GoogleProjectId string `toml:"google_project_id"`
		GoogleLocation  string `toml:"location"`
		Port            int    `toml:"port"`
	} `toml:"application"`
	Storage            Storage                      `toml:"storage"`
	BigQueryDataSource BigQueryDataSource           `toml:"big_query_data_source"`
	PromptTemplates    PromptTemplates              `toml:"prompt_templates"`
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions"` // Keyed by a logical name, e.g. "SignalTopic".
	AgentModels        map[string]VertexAiLLMModel  `toml:"agent_models"`        // Keyed by a logical name, e.g. "creative-flash".
	Categories         map[string]Category          `toml:"categories"`
	Pipeline           Pipeline                     `toml:"pipeline"`
}

// NewConfig creates a Config with initialized maps and the default pipeline
// tuning, so an empty or partial TOML file still yields a usable config.
func NewConfig() *Config {
	c := &Config{
		TopicSubscriptions: make(map[string]TopicSubscription),
		AgentModels:        make(map[string]VertexAiLLMModel),
		Categories:         make(map[string]Category),
		Pipeline:           DefaultPipeline(),
	}
	c.Application.Port = 8080
	c.PromptTemplates.NarrativePrompt = DefaultNarrativePrompt
	return c
}
