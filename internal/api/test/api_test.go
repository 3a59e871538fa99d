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

package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-media-narrative/internal/api"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/budget"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/complexity"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/model"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/repair"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/services"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/validate"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/workflow"
	test "github.com/jaycherian/gcp-go-media-narrative/internal/testutil"
)

type memoryReader map[string]*model.NarrativeRecord

func (m memoryReader) Get(_ context.Context, id string) (*model.NarrativeRecord, error) {
	if r, ok := m[id]; ok {
		return r, nil
	}
	return nil, services.ErrNotFound
}

func (m memoryReader) GetBySource(ctx context.Context, sourceID string) (*model.NarrativeRecord, error) {
	return m.Get(ctx, model.NarrativeID(sourceID))
}

func (m memoryReader) GetScene(ctx context.Context, id string, sequence int) (*model.NarrativeScene, error) {
	r, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	for i := range r.Scenes {
		if r.Scenes[i].SequenceNumber == sequence {
			return &r.Scenes[i], nil
		}
	}
	return nil, services.ErrNotFound
}

func (m memoryReader) List(_ context.Context, limit int) ([]*model.NarrativeRecord, error) {
	out := make([]*model.NarrativeRecord, 0, len(m))
	for _, r := range m {
		if len(out) == limit {
			break
		}
		out = append(out, r)
	}
	return out, nil
}

type failingReader struct{}

func (failingReader) Get(context.Context, string) (*model.NarrativeRecord, error) {
	return nil, errors.New("bigquery unavailable")
}

func (failingReader) GetBySource(context.Context, string) (*model.NarrativeRecord, error) {
	return nil, errors.New("bigquery unavailable")
}

func (failingReader) GetScene(context.Context, string, int) (*model.NarrativeScene, error) {
	return nil, errors.New("bigquery unavailable")
}

func (failingReader) List(context.Context, int) ([]*model.NarrativeRecord, error) {
	return nil, errors.New("bigquery unavailable")
}

func newHandlers(t *testing.T, replies ...test.Reply) *api.Handlers {
	t.Helper()
	config := test.GetConfig()
	runner, err := workflow.NewNarrativeWorkflow(config, test.NewScriptedGenerator(replies...))
	require.NoError(t, err)
	return &api.Handlers{
		Runner:     runner,
		Scorer:     complexity.NewScorer(config.Pipeline.Scorer),
		Planner:    budget.NewPlanner(config.Pipeline.Planner),
		Ladder:     repair.NewLadder(config.Pipeline.Ladder),
		Validator:  validate.NewValidator(validate.DefaultRules()),
		OutputMode: config.Pipeline.OutputMode,
	}
}

func newRouter(h *api.Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	v1 := r.Group("/api/v1")
	api.NarrativeRouter(v1, h)
	api.Dashboard(v1, h)
	return r
}

func do(t *testing.T, r http.Handler, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func doList(t *testing.T, r http.Handler, path string) (int, []map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out []map[string]any
	if w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func signalJSON(t *testing.T) string {
	t.Helper()
	b, err := json.Marshal(test.AnalyzedSignal())
	require.NoError(t, err)
	return string(b)
}

func TestCreateNarrative(t *testing.T) {
	h := newHandlers(t, test.Answer(test.ValidNarrativeJSON))
	store := &test.RecordingInserter{}
	h.Store = store

	code, body := do(t, newRouter(h), http.MethodPost, "/api/v1/narratives", signalJSON(t))
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, model.NarrativeID("gs://narrative_signals/serenity.json"), body["id"])
	assert.Equal(t, true, body["persisted"])
	require.Len(t, store.Rows, 1)

	result := body["result"].(map[string]any)
	assert.Equal(t, "strict", result["strategy"])
	assert.Equal(t, "full", result["quality_tier"])
	assert.EqualValues(t, 1, result["attempts"])
}

func TestCreateNarrativeWithoutPersist(t *testing.T) {
	h := newHandlers(t, test.Answer(test.ValidNarrativeJSON))
	store := &test.RecordingInserter{}
	h.Store = store

	code, body := do(t, newRouter(h), http.MethodPost, "/api/v1/narratives?persist=false", signalJSON(t))
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, false, body["persisted"])
	assert.Empty(t, store.Rows)
}

func TestCreateNarrativeErrors(t *testing.T) {
	r := newRouter(newHandlers(t, test.Failure(errors.New("backend unavailable"))))

	code, body := do(t, r, http.MethodPost, "/api/v1/narratives", `{"title": "no id"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "source_id is required", body["error"])

	code, _ = do(t, r, http.MethodPost, "/api/v1/narratives", `{`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = do(t, r, http.MethodPost, "/api/v1/narratives", signalJSON(t))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Contains(t, body["error"], "backend unavailable")
}

func TestReadNarratives(t *testing.T) {
	h := newHandlers(t)
	id := model.NarrativeID("gs://narrative_signals/serenity.json")
	h.Narratives = memoryReader{id: {Id: id, Title: "Serenity", Strategy: "strict", QualityTier: "full", Attempts: 1}}
	r := newRouter(h)

	code, body := do(t, r, http.MethodGet, "/api/v1/narratives/"+id, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Serenity", body["title"])

	code, body = do(t, r, http.MethodGet, "/api/v1/narratives/unknown", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, services.ErrNotFound.Error(), body["error"])

	h.Narratives = failingReader{}
	code, _ = do(t, r, http.MethodGet, "/api/v1/narratives/"+id, "")
	assert.Equal(t, http.StatusInternalServerError, code)

	h.Narratives = nil
	code, _ = do(t, r, http.MethodGet, "/api/v1/narratives/"+id, "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestNarrativeScenes(t *testing.T) {
	h := newHandlers(t)
	id := model.NarrativeID("gs://narrative_signals/serenity.json")
	h.Narratives = memoryReader{id: {Id: id, Title: "Serenity", Scenes: []model.NarrativeScene{
		{SequenceNumber: 1, Description: "A battle rages at dawn."},
		{SequenceNumber: 2, Description: "The crew argue."},
	}}}
	r := newRouter(h)

	code, body := do(t, r, http.MethodGet, "/api/v1/narratives/"+id+"/scenes/2", "")
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "The crew argue.", body["description"])
	assert.EqualValues(t, 2, body["sequence_number"])

	code, _ = do(t, r, http.MethodGet, "/api/v1/narratives/"+id+"/scenes/9", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, r, http.MethodGet, "/api/v1/narratives/unknown/scenes/1", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, body = do(t, r, http.MethodGet, "/api/v1/narratives/"+id+"/scenes/first", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["error"], "scene_id must be a sequence number")

	h.Narratives = failingReader{}
	code, _ = do(t, r, http.MethodGet, "/api/v1/narratives/"+id+"/scenes/1", "")
	assert.Equal(t, http.StatusInternalServerError, code)

	h.Narratives = nil
	code, _ = do(t, r, http.MethodGet, "/api/v1/narratives/"+id+"/scenes/1", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestListNarratives(t *testing.T) {
	h := newHandlers(t)
	id := model.NarrativeID("gs://narrative_signals/serenity.json")
	h.Narratives = memoryReader{
		id:  {Id: id, SourceId: "gs://narrative_signals/serenity.json", Title: "Serenity"},
		"b": {Id: "b", Title: "Other"},
		"c": {Id: "c", Title: "Third"},
	}
	r := newRouter(h)

	code, list := doList(t, r, "/api/v1/narratives")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, list, 3)

	code, list = doList(t, r, "/api/v1/narratives?count=2")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, list, 2)

	code, list = doList(t, r, "/api/v1/narratives?source_id=gs://narrative_signals/serenity.json")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, list, 1)
	assert.Equal(t, "Serenity", list[0]["title"])

	code, _ = doList(t, r, "/api/v1/narratives?source_id=gs://narrative_signals/missing.json")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestComplexity(t *testing.T) {
	r := newRouter(newHandlers(t))

	code, body := do(t, r, http.MethodPost, "/api/v1/complexity", `{"duration_seconds": 10}`)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 4, body["score"])
	assert.Equal(t, "simple", body["level"])
	assert.EqualValues(t, 8192, body["recommended_budget"])

	code, _ = do(t, r, http.MethodPost, "/api/v1/complexity", `[]`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestBudget(t *testing.T) {
	r := newRouter(newHandlers(t))

	code, body := do(t, r, http.MethodPost, "/api/v1/budget", `{"signal": {"duration_seconds": 10}, "output_mode": "free_text"}`)
	require.Equal(t, http.StatusOK, code, body)
	planned := body["budget"].(map[string]any)
	assert.EqualValues(t, 8192, planned["max_output_size"])
	assert.EqualValues(t, 30000, planned["timeout_ms"])
	assert.Equal(t, "free_text", planned["output_mode"])

	code, body = do(t, r, http.MethodPost, "/api/v1/budget", `{"signal": {"duration_seconds": 10}, "language": "ja"}`)
	require.Equal(t, http.StatusOK, code, body)
	planned = body["budget"].(map[string]any)
	assert.Equal(t, "structured", planned["output_mode"])
	assert.EqualValues(t, 6144, planned["max_output_size"])

	code, _ = do(t, r, http.MethodPost, "/api/v1/budget", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, r, http.MethodPost, "/api/v1/budget", `{"signal": {}, "output_mode": "yaml"}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestParse(t *testing.T) {
	r := newRouter(newHandlers(t))

	code, body := do(t, r, http.MethodPost, "/api/v1/parse", test.FencedNarrativeJSON)
	require.Equal(t, http.StatusOK, code, body)
	outcome := body["outcome"].(map[string]any)
	assert.Equal(t, "intelligent_repair", outcome["strategy_used"])
	payload := body["payload"].(map[string]any)
	assert.Equal(t, "Serenity", payload["document"].(map[string]any)["title"])

	code, body = do(t, r, http.MethodPost, "/api/v1/parse?strict=true", test.NoScenesJSON)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.NotEmpty(t, body["error"])

	code, _ = do(t, r, http.MethodPost, "/api/v1/parse?strict=true", test.ValidNarrativeJSON)
	assert.Equal(t, http.StatusOK, code)
}

func TestStats(t *testing.T) {
	h := newHandlers(t)
	h.Narratives = memoryReader{
		"a": {Id: "a", Strategy: "strict", QualityTier: "full", Attempts: 1},
		"b": {Id: "b", Strategy: "fallback", QualityTier: "partial", Attempts: 3, Warnings: []string{"x", "y"}},
	}
	r := newRouter(h)

	code, body := do(t, r, http.MethodGet, "/api/v1/stats", "")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, body["sampled"])
	assert.EqualValues(t, 2, body["mean_attempts"])
	assert.EqualValues(t, 1, body["mean_warnings"])
	assert.Equal(t, map[string]any{"strict": float64(1), "fallback": float64(1)}, body["by_strategy"])

	h.Narratives = nil
	code, _ = do(t, r, http.MethodGet, "/api/v1/stats", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}
