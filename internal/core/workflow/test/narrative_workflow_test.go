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

package workflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-media-narrative/internal/core/commands"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/model"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/workflow"
	test "github.com/jaycherian/gcp-go-media-narrative/internal/testutil"
)

func run(t *testing.T, ctx context.Context, replies ...test.Reply) (*model.NarrativeResult, *test.ScriptedGenerator, error) {
	t.Helper()
	ctx, span := tracer.Start(ctx, t.Name())
	defer span.End()

	gen := test.NewScriptedGenerator(replies...)
	w, err := workflow.NewNarrativeWorkflow(config, gen)
	require.NoError(t, err)
	result, err := w.Run(ctx, test.AnalyzedSignal())
	return result, gen, err
}

func TestNarrativeFirstAttempt(t *testing.T) {
	result, gen, err := run(t, context.Background(), test.Answer(test.ValidNarrativeJSON))
	require.NoError(t, err)

	assert.Equal(t, 1, gen.Calls())
	assert.Equal(t, "gs://narrative_signals/serenity.json", result.SourceID)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, model.StrategyStrict, result.Strategy)
	assert.Equal(t, model.QualityFull, result.QualityTier)
	assert.Equal(t, model.Simple, result.Assessment.Level)
	assert.Equal(t, 4096, result.Budget.MaxOutputSize)
	assert.Equal(t, 1, result.Budget.Attempt)
	assert.Equal(t, "Serenity", result.Payload.Document.Title)
	assert.Len(t, result.Payload.Document.Scenes, 2)
	assert.Empty(t, result.Payload.Warnings)
}

func TestNarrativeRetriesAfterSizeLimit(t *testing.T) {
	result, gen, err := run(t, context.Background(),
		test.CutOff(test.TruncatedNarrativeJSON),
		test.Answer(test.ValidNarrativeJSON))
	require.NoError(t, err)

	require.Equal(t, 2, gen.Calls())
	assert.Equal(t, 4096, gen.Budgets[0].MaxOutputSize)
	assert.Equal(t, 3072, gen.Budgets[1].MaxOutputSize)
	assert.Equal(t, 2, gen.Budgets[1].Attempt)
	assert.InDelta(t, 0.7, gen.Budgets[1].Creativity, 1e-9)

	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, model.StrategyStrict, result.Strategy)
	assert.Equal(t, 3072, result.Budget.MaxOutputSize)
	assert.Contains(t, result.Budget.Rationale, "size limit x0.75")
}

func TestNarrativeKeepsBestDegradedAttempt(t *testing.T) {
	result, gen, err := run(t, context.Background(), test.Answer(test.TruncatedNarrativeJSON))
	require.NoError(t, err)

	require.Equal(t, 3, gen.Calls())
	assert.Equal(t, []int{4096, 3277, 2622}, []int{
		gen.Budgets[0].MaxOutputSize, gen.Budgets[1].MaxOutputSize, gen.Budgets[2].MaxOutputSize,
	})

	// Every attempt repaired the same way; the earliest is kept.
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, model.StrategyIntelligentRepair, result.Strategy)
	assert.Equal(t, 1, result.Budget.Attempt)
	assert.Equal(t, 4096, result.Budget.MaxOutputSize)
	require.Len(t, result.Payload.Document.Scenes, 2)
	assert.Equal(t, "The crew arg", result.Payload.Document.Scenes[1].Description)
}

func TestNarrativePrefersRepairOverFallback(t *testing.T) {
	result, gen, err := run(t, context.Background(),
		test.Answer(test.ProseAnswer),
		test.Answer(test.FencedNarrativeJSON))
	require.NoError(t, err)

	assert.Equal(t, 2, gen.Calls())
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, 2, result.Budget.Attempt)
	assert.Equal(t, 3277, result.Budget.MaxOutputSize)
	assert.Equal(t, model.StrategyIntelligentRepair, result.Strategy)
	assert.Equal(t, "Serenity", result.Payload.Document.Title)
}

func TestNarrativeProseFallsBack(t *testing.T) {
	result, gen, err := run(t, context.Background(), test.Answer(test.ProseAnswer))
	require.NoError(t, err)

	assert.Equal(t, 3, gen.Calls())
	assert.Equal(t, model.StrategyFallback, result.Strategy)
	assert.Equal(t, "Untitled", result.Payload.Document.Title)
	assert.Equal(t, "not json at all", result.Payload.Document.Narrative)
	assert.Less(t, result.Payload.Document.Confidence, 0.5)
	assert.NotEmpty(t, result.Payload.Document.Scenes)
}

func TestNarrativeInvalidAnswersAreSynthesized(t *testing.T) {
	result, gen, err := run(t, context.Background(), test.Answer(test.NoScenesJSON))
	require.NoError(t, err)

	assert.Equal(t, 3, gen.Calls())
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, model.StrategyFallback, result.Strategy)
	assert.Equal(t, model.QualityFull, result.QualityTier)
	assert.NotNil(t, result.Payload)
	assert.Contains(t, result.RepairNotes, "fallback: ok")
}

func TestNarrativeTransportFailures(t *testing.T) {
	_, gen, err := run(t, context.Background(), test.Failure(errors.New("backend unavailable")))
	require.Error(t, err)
	assert.Equal(t, 3, gen.Calls())
	assert.Contains(t, err.Error(), "narrative generation failed after 3 attempts")
	assert.Contains(t, err.Error(), "backend unavailable")
}

func TestNarrativeRecoversFromTransportFailure(t *testing.T) {
	result, gen, err := run(t, context.Background(),
		test.Failure(errors.New("backend unavailable")),
		test.Answer(test.ValidNarrativeJSON))
	require.NoError(t, err)

	assert.Equal(t, 2, gen.Calls())
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, model.StrategyStrict, result.Strategy)
	assert.Equal(t, 4096, result.Budget.MaxOutputSize)
}

func TestNarrativeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, gen, err := run(t, ctx, test.Answer(test.ValidNarrativeJSON))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, gen.Calls())
}

func TestNarrativeInChain(t *testing.T) {
	gen := test.NewScriptedGenerator(test.Answer(test.ValidNarrativeJSON))
	w, err := workflow.NewNarrativeWorkflow(config, gen)
	require.NoError(t, err)

	chCtx := cor.NewBaseContext(context.Background())
	chCtx.Add(commands.SignalParam, test.SimpleSignal())
	w.Execute(chCtx)
	require.NoError(t, chCtx.Err())

	result, ok := cor.Value[*model.NarrativeResult](chCtx, commands.NarrativeParam)
	require.True(t, ok)
	assert.Same(t, result, chCtx.Get(cor.CtxOut))
	assert.Equal(t, "gs://narrative_signals/simple.json", result.SourceID)
	assert.Equal(t, model.QualityFull, result.QualityTier)
}

func TestNarrativeWithoutSignal(t *testing.T) {
	w, err := workflow.NewNarrativeWorkflow(config, test.NewScriptedGenerator())
	require.NoError(t, err)

	chCtx := cor.NewBaseContext(context.Background())
	assert.False(t, w.IsExecutable(chCtx))
	w.Execute(chCtx)
	assert.True(t, chCtx.HasErrors())
}

func TestNarrativeRejectsBadPipeline(t *testing.T) {
	bad := *config
	bad.Pipeline.MaxAttempts = 0
	_, err := workflow.NewNarrativeWorkflow(&bad, test.NewScriptedGenerator())
	assert.ErrorContains(t, err, "invalid pipeline configuration")
}
