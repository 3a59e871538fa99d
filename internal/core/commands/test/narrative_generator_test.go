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

package commands_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-media-narrative/internal/cloud"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/commands"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/model"
	test "github.com/jaycherian/gcp-go-media-narrative/internal/testutil"
)

// stalledGenerator blocks until its context is done.
type stalledGenerator struct{}

func (stalledGenerator) Generate(ctx context.Context, _ string, _ model.GenerationBudget) (model.GenerationResult, error) {
	<-ctx.Done()
	return model.GenerationResult{FinishReason: model.FinishError}, ctx.Err()
}

func content(text string) model.MaterializedContent {
	return model.MaterializedContent{Text: text, QualityTier: model.QualityFull, Strategy: "full_detail"}
}

func generationContext(signal model.ContentSignal, planned model.GenerationBudget) cor.Context {
	chCtx := cor.NewBaseContext(context.Background())
	chCtx.Add(commands.SignalParam, signal)
	chCtx.Add(commands.BudgetParam, planned)
	chCtx.Add(commands.ContentParam, content("Title: Serenity"))
	return chCtx
}

func TestPromptStructured(t *testing.T) {
	gen, err := commands.NewNarrativeGenerator("narrative-test", test.GetConfig(), test.NewScriptedGenerator())
	require.NoError(t, err)

	signal := test.AnalyzedSignal()
	prompt, err := gen.Prompt(content("Title: Serenity\nTranscript: ..."), signal, model.GenerationBudget{OutputMode: model.Structured, Language: "de"})
	require.NoError(t, err)

	assert.Contains(t, prompt, `Write in the language with ISO 639-1 code "de".`)
	assert.Contains(t, prompt, "The source is a trailer.")
	assert.Contains(t, prompt, "movie - A feature length film; ")
	assert.Contains(t, prompt, model.NarrativeSchemaJSON())
	assert.Contains(t, prompt, `"title":"Serenity"`)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(prompt), "SOURCE:\nTitle: Serenity\nTranscript: ..."))
}

func TestPromptFreeText(t *testing.T) {
	gen, err := commands.NewNarrativeGenerator("narrative-test", test.GetConfig(), test.NewScriptedGenerator())
	require.NoError(t, err)

	c := content("Title: X")
	c.QualityTier = model.QualityMetadataOnly
	prompt, err := gen.Prompt(c, test.SimpleSignal(), model.GenerationBudget{OutputMode: model.FreeText})
	require.NoError(t, err)

	assert.NotContains(t, prompt, "JSON schema")
	assert.NotContains(t, prompt, "Write in the language")
	assert.Contains(t, prompt, "Only metadata is available")
	assert.Contains(t, prompt, "Respond with a title line")
}

func TestPromptCategoryOverrides(t *testing.T) {
	config := cloud.NewConfig()
	config.Categories["movie"] = cloud.Category{
		Name:               "Movie",
		SystemInstructions: "Treat the transcript as a screenplay.",
	}
	config.Categories["news"] = cloud.Category{Name: "News", Narrative: "NEWS {{.CONTENT}}"}
	gen, err := commands.NewNarrativeGenerator("narrative-test", config, test.NewScriptedGenerator())
	require.NoError(t, err)

	signal := test.SimpleSignal()
	signal.Category = "movie"
	prompt, err := gen.Prompt(content("body"), signal, model.GenerationBudget{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(prompt, "Treat the transcript as a screenplay.\n\nYou are a story editor."))

	signal.Category = "news"
	prompt, err = gen.Prompt(content("body"), signal, model.GenerationBudget{})
	require.NoError(t, err)
	assert.Equal(t, "NEWS body", prompt)
}

func TestBadTemplate(t *testing.T) {
	config := cloud.NewConfig()
	config.PromptTemplates.NarrativePrompt = "{{.CONTENT"
	_, err := commands.NewNarrativeGenerator("narrative-test", config, test.NewScriptedGenerator())
	assert.Error(t, err)

	config = cloud.NewConfig()
	config.Categories["news"] = cloud.Category{Narrative: "{{if}}"}
	_, err = commands.NewNarrativeGenerator("narrative-test", config, test.NewScriptedGenerator())
	assert.ErrorContains(t, err, "category news")
}

func TestGeneratorExecute(t *testing.T) {
	scripted := test.NewScriptedGenerator(test.CutOff(test.TruncatedNarrativeJSON))
	gen, err := commands.NewNarrativeGenerator("narrative-test", test.GetConfig(), scripted)
	require.NoError(t, err)

	planned := model.GenerationBudget{MaxOutputSize: 2048, TimeoutMs: 30000, OutputMode: model.Structured, Attempt: 2}
	chCtx := generationContext(test.AnalyzedSignal(), planned)
	gen.Execute(chCtx)

	require.NoError(t, chCtx.Err())
	result, ok := cor.Value[model.GenerationResult](chCtx, commands.ResponseParam)
	require.True(t, ok)
	assert.Equal(t, model.FinishSizeLimit, result.FinishReason)
	_, ok = cor.Value[time.Duration](chCtx, commands.ElapsedParam)
	assert.True(t, ok)

	require.Equal(t, 1, scripted.Calls())
	assert.Equal(t, planned, scripted.Budgets[0])
	assert.Contains(t, scripted.Prompts[0], "SOURCE:\nTitle: Serenity")
}

func TestGeneratorTransportError(t *testing.T) {
	gen, err := commands.NewNarrativeGenerator("narrative-test", test.GetConfig(), test.NewScriptedGenerator(test.Failure(errors.New("unavailable"))))
	require.NoError(t, err)

	chCtx := generationContext(test.SimpleSignal(), model.GenerationBudget{MaxOutputSize: 1024})
	gen.Execute(chCtx)

	assert.ErrorContains(t, chCtx.Err(), "unavailable")
	assert.Nil(t, chCtx.Get(commands.ResponseParam))
}

func TestGeneratorBudgetTimeout(t *testing.T) {
	gen, err := commands.NewNarrativeGenerator("narrative-test", test.GetConfig(), stalledGenerator{})
	require.NoError(t, err)

	chCtx := generationContext(test.SimpleSignal(), model.GenerationBudget{MaxOutputSize: 1024, TimeoutMs: 20})
	gen.Execute(chCtx)

	err = chCtx.Err()
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorContains(t, err, "exceeded the 20ms budget timeout")
}

func TestGeneratorNeedsBudget(t *testing.T) {
	gen, err := commands.NewNarrativeGenerator("narrative-test", test.GetConfig(), test.NewScriptedGenerator())
	require.NoError(t, err)

	chCtx := cor.NewBaseContext(context.Background())
	chCtx.Add(commands.ContentParam, content("x"))
	gen.Execute(chCtx)
	assert.ErrorContains(t, chCtx.Err(), "no generation budget")
}
