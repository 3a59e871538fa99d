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

package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Stats summarizes recent narratives: how many needed repair and at which
// quality they were produced.
type Stats struct {
	Sampled       int            `json:"sampled"`
	ByStrategy    map[string]int `json:"by_strategy"`
	ByQualityTier map[string]int `json:"by_quality_tier"`
	MeanAttempts  float64        `json:"mean_attempts"`
	MeanWarnings  float64        `json:"mean_warnings"`
}

// Dashboard registers the stats route.
func Dashboard(r *gin.RouterGroup, h *Handlers) {
	stats := r.Group("/stats")
	{
		stats.GET("", func(c *gin.Context) {
			if h.Narratives == nil {
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "narrative storage is not configured"})
				return
			}
			count, err := strconv.Atoi(c.DefaultQuery("count", "100"))
			if err != nil || count <= 0 || count > 1000 {
				count = 100
			}
			records, err := h.Narratives.List(c.Request.Context(), count)
			if err != nil {
				abort(c, http.StatusInternalServerError, err)
				return
			}

			out := Stats{ByStrategy: map[string]int{}, ByQualityTier: map[string]int{}}
			attempts, warnings := 0, 0
			for _, r := range records {
				out.Sampled++
				out.ByStrategy[r.Strategy]++
				out.ByQualityTier[r.QualityTier]++
				attempts += r.Attempts
				warnings += len(r.Warnings)
			}
			if out.Sampled > 0 {
				out.MeanAttempts = float64(attempts) / float64(out.Sampled)
				out.MeanWarnings = float64(warnings) / float64(out.Sampled)
			}
			c.JSON(http.StatusOK, out)
		})
	}
}
