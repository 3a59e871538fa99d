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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-media-narrative/internal/cloud"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/budget"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/commands"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/complexity"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/materialize"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/model"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/repair"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/validate"
	test "github.com/jaycherian/gcp-go-media-narrative/internal/testutil"
)

func TestSignalTrigger(t *testing.T) {
	cmd := commands.NewSignalTriggerToGCSObject("trigger")
	chCtx := cor.NewBaseContext(context.Background())
	chCtx.Add(cor.CtxIn, test.GetTestSignalMessageText())
	cmd.Execute(chCtx)

	require.NoError(t, chCtx.Err())
	obj, ok := cor.Value[*cloud.GCSObject](chCtx, cloud.GetGCSObjectName())
	require.True(t, ok)
	assert.Equal(t, "gs://narrative_signals/test-trailer-001.json", obj.SourceID())
	assert.Equal(t, "application/json", obj.MIMEType)
	assert.Same(t, obj, chCtx.Get(cor.CtxOut))
}

func TestSignalTriggerRejects(t *testing.T) {
	for _, in := range []string{"{", `{"kind": "storage#object"}`} {
		chCtx := cor.NewBaseContext(context.Background())
		chCtx.Add(cor.CtxIn, in)
		commands.NewSignalTriggerToGCSObject("trigger").Execute(chCtx)
		assert.True(t, chCtx.HasErrors(), in)
	}
}

func loaderContext(name string) cor.Context {
	chCtx := cor.NewBaseContext(context.Background())
	chCtx.Add(cor.CtxIn, &cloud.GCSObject{Bucket: "narrative_signals", Name: name})
	return chCtx
}

func TestSignalLoader(t *testing.T) {
	source := test.MemorySignalSource{
		"gs://narrative_signals/serenity.json": test.SignalDocument(),
		"gs://narrative_signals/clip.png":      "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR",
	}
	loader := commands.NewSignalLoader("loader", source)

	chCtx := loaderContext("serenity.json")
	loader.Execute(chCtx)
	require.NoError(t, chCtx.Err())
	signal, ok := cor.Value[model.ContentSignal](chCtx, commands.SignalParam)
	require.True(t, ok)
	assert.Equal(t, "Serenity", signal.Title)
	assert.Equal(t, signal, chCtx.Get(cor.CtxOut))

	chCtx = loaderContext("clip.png")
	loader.Execute(chCtx)
	assert.NoError(t, chCtx.Err())
	assert.Nil(t, chCtx.Get(commands.SignalParam))
	skipped, ok := cor.Value[error](chCtx, commands.SkippedParam)
	require.True(t, ok)
	assert.ErrorIs(t, skipped, cloud.ErrNotSignalDocument)

	chCtx = loaderContext("missing.json")
	loader.Execute(chCtx)
	assert.ErrorContains(t, chCtx.Err(), "failed to load signal")
}

func TestPlanningChain(t *testing.T) {
	chain := cor.NewBaseChain("planning")
	chain.AddCommand(commands.NewAssessComplexity("assess", complexity.NewScorer(complexity.DefaultConfig())))
	chain.AddCommand(commands.NewPlanBudget("plan", budget.NewPlanner(budget.DefaultConfig()), nil, model.Structured))
	chain.AddCommand(commands.NewMaterializeContent("materialize", materialize.NewMaterializer(materialize.DefaultConfig(), nil)))

	signal := test.AnalyzedSignal()
	signal.Language = "ja"
	chCtx := cor.NewBaseContext(context.Background())
	chCtx.Add(commands.SignalParam, signal)
	chain.Execute(chCtx)
	require.NoError(t, chCtx.Err())

	assessment, ok := cor.Value[model.ComplexityAssessment](chCtx, commands.AssessmentParam)
	require.True(t, ok)
	assert.Equal(t, model.Simple, assessment.Level)

	planned, ok := cor.Value[model.GenerationBudget](chCtx, commands.BudgetParam)
	require.True(t, ok)
	assert.Equal(t, "ja", planned.Language)
	assert.Equal(t, model.Structured, planned.OutputMode)
	assert.Equal(t, 6144, planned.MaxOutputSize)

	c, ok := cor.Value[model.MaterializedContent](chCtx, commands.ContentParam)
	require.True(t, ok)
	assert.Equal(t, materialize.StrategyFullDetail, c.Strategy)
}

func TestPlanningNeedsSignal(t *testing.T) {
	chain := cor.NewBaseChain("planning")
	chain.AddCommand(commands.NewAssessComplexity("assess", complexity.NewScorer(complexity.DefaultConfig())))
	chCtx := cor.NewBaseContext(context.Background())
	chain.Execute(chCtx)
	assert.ErrorContains(t, chCtx.Err(), "not executable")
}

func parseContext(text string, reason model.FinishReason) cor.Context {
	chCtx := cor.NewBaseContext(context.Background())
	chCtx.Add(commands.ResponseParam, model.GenerationResult{Text: text, FinishReason: reason})
	return chCtx
}

func parsingChain() cor.Chain {
	chain := cor.NewBaseChain("parsing")
	chain.AddCommand(commands.NewParseResponse("parse", repair.NewLadder(repair.DefaultConfig())))
	chain.AddCommand(commands.NewValidatePayload("validate", validate.NewValidator(validate.DefaultRules())))
	return chain
}

func TestParseAndValidate(t *testing.T) {
	chCtx := parseContext(test.FencedNarrativeJSON, model.FinishStop)
	parsingChain().Execute(chCtx)
	require.NoError(t, chCtx.Err())

	outcome, ok := cor.Value[model.ParseOutcome](chCtx, commands.OutcomeParam)
	require.True(t, ok)
	assert.Equal(t, model.StrategyIntelligentRepair, outcome.StrategyUsed)

	payload, ok := cor.Value[*model.ValidatedPayload](chCtx, commands.PayloadParam)
	require.True(t, ok)
	assert.Equal(t, "Serenity", payload.Document.Title)
	assert.Nil(t, chCtx.Get(commands.RejectionParam))
}

// A rejected candidate is not a chain error.
func TestValidateRejection(t *testing.T) {
	chCtx := parseContext(test.NoScenesJSON, model.FinishStop)
	parsingChain().Execute(chCtx)

	assert.NoError(t, chCtx.Err())
	assert.Nil(t, chCtx.Get(commands.PayloadParam))
	rejection, ok := cor.Value[error](chCtx, commands.RejectionParam)
	require.True(t, ok)
	assert.ErrorIs(t, rejection, validate.ErrMissingScenes)
}

func narrativeResult() *model.NarrativeResult {
	return &model.NarrativeResult{
		SourceID:    "gs://narrative_signals/serenity.json",
		Payload:     &model.ValidatedPayload{Document: *model.GetExampleNarrative(), Warnings: []string{}},
		Strategy:    model.StrategyStrict,
		QualityTier: model.QualityFull,
		Attempts:    1,
	}
}

func TestPersist(t *testing.T) {
	inserter := &test.RecordingInserter{}
	cmd := commands.NewNarrativePersist("persist", inserter)
	chCtx := cor.NewBaseContext(context.Background())
	chCtx.Add(commands.NarrativeParam, narrativeResult())
	cmd.Execute(chCtx)

	require.NoError(t, chCtx.Err())
	require.Len(t, inserter.Rows, 1)
	record, ok := inserter.Rows[0].(*model.NarrativeRecord)
	require.True(t, ok)
	assert.Equal(t, model.NarrativeID("gs://narrative_signals/serenity.json"), record.Id)
	assert.Equal(t, "strict", record.Strategy)
	assert.Same(t, record, chCtx.Get(cor.CtxOut))
}

func TestPersistFailures(t *testing.T) {
	inserter := &test.RecordingInserter{Err: errors.New("quota exceeded")}
	chCtx := cor.NewBaseContext(context.Background())
	chCtx.Add(commands.NarrativeParam, narrativeResult())
	commands.NewNarrativePersist("persist", inserter).Execute(chCtx)
	assert.ErrorContains(t, chCtx.Err(), "quota exceeded")

	chCtx = cor.NewBaseContext(context.Background())
	chCtx.Add(commands.NarrativeParam, &model.NarrativeResult{SourceID: "x"})
	commands.NewNarrativePersist("persist", &test.RecordingInserter{}).Execute(chCtx)
	assert.ErrorContains(t, chCtx.Err(), "holds no narrative")
}
