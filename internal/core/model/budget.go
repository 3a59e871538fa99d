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

import (
	"context"
	"time"
)

// OutputMode selects between JSON-constrained and prose generation.
type OutputMode string

const (
	Structured OutputMode = "structured"
	FreeText   OutputMode = "free_text"
)

// GenerationBudget holds the generation parameters planned for one attempt.
// It is a value: the feedback adjuster returns a fresh budget for each retry.
type GenerationBudget struct {
	MaxOutputSize int             `json:"max_output_size"` // Output token ceiling.
	Creativity    float64         `json:"creativity"`      // Sampling temperature in [0,1].
	TimeoutMs     int             `json:"timeout_ms"`
	OutputMode    OutputMode      `json:"output_mode"`
	Rationale     string          `json:"rationale"`
	Level         ComplexityLevel `json:"level"`
	Language      string          `json:"language,omitempty"`
	Attempt       int             `json:"attempt"`
}

// Timeout converts TimeoutMs for use with context.WithTimeout.
func (b GenerationBudget) Timeout() time.Duration {
	return time.Duration(b.TimeoutMs) * time.Millisecond
}

// FinishReason is the generator's normalized stop reason.
type FinishReason string

const (
	FinishStop      FinishReason = "stop"
	FinishSizeLimit FinishReason = "size_limit"
	FinishError     FinishReason = "error"
)

// GenerationResult is what the remote model returned for one prompt.
type GenerationResult struct {
	Text         string       `json:"text"`
	FinishReason FinishReason `json:"finish_reason"`
	InputTokens  int          `json:"input_tokens,omitempty"`
	OutputTokens int          `json:"output_tokens,omitempty"`
}

// Generator is the remote generative call. Implementations own transport
// retries; the pipeline only inspects FinishReason.
type Generator interface {
	Generate(ctx context.Context, prompt string, budget GenerationBudget) (GenerationResult, error)
}

// SignalSource resolves a source id into its content signal.
type SignalSource interface {
	FetchContentSignal(ctx context.Context, sourceID string) (ContentSignal, error)
}

// AttemptOutcome is the feedback the adjuster needs from a completed attempt.
type AttemptOutcome struct {
	FinishReason FinishReason
	Truncated    bool          // The repair ladder had to close a cut-off document.
	Strategy     ParseStrategy // Ladder tier that produced the data.
	Invalid      bool          // The validator could not locate the scene collection.
	Elapsed      time.Duration
}
