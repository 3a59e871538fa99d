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

// Package api exposes the narrative pipeline over HTTP. Every route takes and
// returns JSON; failures are reported as {"error": "..."}.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-media-narrative/internal/core/budget"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/commands"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/complexity"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/model"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/repair"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/services"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/validate"
)

// NarrativeRunner runs the full pipeline for one signal.
type NarrativeRunner interface {
	Run(ctx context.Context, signal model.ContentSignal) (*model.NarrativeResult, error)
}

// NarrativeReader reads persisted narratives. Lookups that match nothing
// return services.ErrNotFound.
type NarrativeReader interface {
	Get(ctx context.Context, id string) (*model.NarrativeRecord, error)
	GetBySource(ctx context.Context, sourceID string) (*model.NarrativeRecord, error)
	GetScene(ctx context.Context, id string, sequence int) (*model.NarrativeScene, error)
	List(ctx context.Context, limit int) ([]*model.NarrativeRecord, error)
}

// Handlers holds what the routes need. Store and Narratives may be nil, in
// which case results are not persisted and the read routes answer 503.
type Handlers struct {
	Runner     NarrativeRunner
	Store      commands.RowInserter
	Narratives NarrativeReader
	Scorer     *complexity.Scorer
	Planner    *budget.Planner
	Ladder     *repair.Ladder
	Validator  *validate.Validator
	OutputMode model.OutputMode
}

func abort(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// NarrativeRouter registers the narrative and tooling routes.
func NarrativeRouter(r *gin.RouterGroup, h *Handlers) {
	narratives := r.Group("/narratives")
	{
		narratives.POST("", h.createNarrative)
		narratives.GET("", h.listNarratives)
		narratives.GET("/:id", h.getNarrative)
		narratives.GET("/:id/scenes/:scene_id", h.getScene)
	}
	r.POST("/complexity", h.assess)
	r.POST("/budget", h.plan)
	r.POST("/parse", h.parse)
}

func (h *Handlers) createNarrative(c *gin.Context) {
	var signal model.ContentSignal
	if err := c.ShouldBindJSON(&signal); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	if signal.SourceID == "" {
		abort(c, http.StatusBadRequest, errors.New("source_id is required"))
		return
	}

	result, err := h.Runner.Run(c.Request.Context(), signal)
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}

	record := model.NewNarrativeRecord(result)
	persisted := false
	if h.Store != nil && c.DefaultQuery("persist", "true") != "false" {
		if err := h.Store.Put(c.Request.Context(), record); err != nil {
			abort(c, http.StatusInternalServerError, err)
			return
		}
		persisted = true
	}
	c.JSON(http.StatusOK, gin.H{"id": record.Id, "persisted": persisted, "result": result})
}

func (h *Handlers) getNarrative(c *gin.Context) {
	if h.Narratives == nil {
		abort(c, http.StatusServiceUnavailable, errors.New("narrative storage is not configured"))
		return
	}
	out, err := h.Narratives.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortRead(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) getScene(c *gin.Context) {
	if h.Narratives == nil {
		abort(c, http.StatusServiceUnavailable, errors.New("narrative storage is not configured"))
		return
	}
	sequence, err := strconv.Atoi(c.Param("scene_id"))
	if err != nil {
		abort(c, http.StatusBadRequest, fmt.Errorf("scene_id must be a sequence number: %w", err))
		return
	}
	out, err := h.Narratives.GetScene(c.Request.Context(), c.Param("id"), sequence)
	if err != nil {
		abortRead(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// abortRead maps a read failure to 404 or 500.
func abortRead(c *gin.Context, err error) {
	if errors.Is(err, services.ErrNotFound) {
		abort(c, http.StatusNotFound, err)
		return
	}
	abort(c, http.StatusInternalServerError, err)
}

// listNarratives returns the newest narratives, or with ?source_id= the one
// generated for that source.
func (h *Handlers) listNarratives(c *gin.Context) {
	if h.Narratives == nil {
		abort(c, http.StatusServiceUnavailable, errors.New("narrative storage is not configured"))
		return
	}
	if sourceID := c.Query("source_id"); sourceID != "" {
		out, err := h.Narratives.GetBySource(c.Request.Context(), sourceID)
		if err != nil {
			abortRead(c, err)
			return
		}
		c.JSON(http.StatusOK, []*model.NarrativeRecord{out})
		return
	}
	count, err := strconv.Atoi(c.DefaultQuery("count", "10"))
	if err != nil || count <= 0 || count > 100 {
		count = 10
	}
	out, err := h.Narratives.List(c.Request.Context(), count)
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) assess(c *gin.Context) {
	var signal model.ContentSignal
	if err := c.ShouldBindJSON(&signal); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusOK, h.Scorer.Assess(signal.Normalized()))
}

// budgetRequest plans from an assessment, or from a signal scored on the fly.
type budgetRequest struct {
	Signal     *model.ContentSignal        `json:"signal"`
	Assessment *model.ComplexityAssessment `json:"assessment"`
	Language   string                      `json:"language"`
	OutputMode model.OutputMode            `json:"output_mode"`
}

func (h *Handlers) plan(c *gin.Context) {
	var req budgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	var assessment model.ComplexityAssessment
	switch {
	case req.Assessment != nil:
		assessment = *req.Assessment
	case req.Signal != nil:
		assessment = h.Scorer.Assess(req.Signal.Normalized())
		if req.Language == "" {
			req.Language = req.Signal.Language
		}
	default:
		abort(c, http.StatusBadRequest, errors.New("either signal or assessment is required"))
		return
	}
	mode := req.OutputMode
	if mode == "" {
		mode = h.OutputMode
	}
	if mode != model.Structured && mode != model.FreeText {
		abort(c, http.StatusBadRequest, errors.New("output_mode must be structured or free_text"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"assessment": assessment,
		"budget":     h.Planner.Plan(assessment, budget.WithLanguage(req.Language), budget.WithOutputMode(mode)),
	})
}

// parse accepts the raw model text as the request body. With strict=true the
// payload must need no repair at all.
func (h *Handlers) parse(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 4<<20))
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	outcome := h.Ladder.Parse(string(body))

	validator := h.Validator.Validate
	if strings.EqualFold(c.Query("strict"), "true") {
		validator = h.Validator.ValidateStrict
	}
	payload, err := validator(outcome.Data)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"outcome": outcome, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcome": outcome, "payload": payload})
}
