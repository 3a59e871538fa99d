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

package model

// QualityTier describes how much source detail survived materialization.
type QualityTier string

const (
	QualityFull         QualityTier = "full"
	QualityPartial      QualityTier = "partial"
	QualityMetadataOnly QualityTier = "metadata_only"
)

// MaterializedContent is the literal payload sent to the model for one attempt.
type MaterializedContent struct {
	Text                  string      `json:"text"`
	QualityTier           QualityTier `json:"quality_tier"`
	SimplificationApplied bool        `json:"simplification_applied"`
	EstimatedSize         int         `json:"estimated_size"` // Estimated tokens.
	Strategy              string      `json:"strategy"`
}
