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

package complexity

import (
	"errors"
	"fmt"

	"github.com/jaycherian/gcp-go-media-narrative/internal/core/model"
)

// Step is one rung of a step function: any value <= Max scores Score.
type Step struct {
	Max   float64 `toml:"max" json:"max"`
	Score int     `toml:"score" json:"score"`
}

// Steps is an ascending step function. Values above the last rung score 100.
type Steps []Step

// Eval maps a raw measurement into [0,100]. Negative and NaN values read as 0.
func (s Steps) Eval(value float64) int {
	if !(value > 0) {
		value = 0
	}
	for _, step := range s {
		if value <= step.Max {
			return step.Score
		}
	}
	return 100
}

func (s Steps) validate(name string) error {
	for i, step := range s {
		if step.Score < 0 || step.Score > 100 {
			return fmt.Errorf("%s step %d: score %d outside [0,100]", name, i, step.Score)
		}
		if i > 0 && (step.Max <= s[i-1].Max || step.Score < s[i-1].Score) {
			return fmt.Errorf("%s step %d: steps must ascend", name, i)
		}
	}
	return nil
}

// Weights for the full (analysis available) scoring mode.
type Weights struct {
	Duration   float64 `toml:"duration" json:"duration"`
	Characters float64 `toml:"characters" json:"characters"`
	Scenes     float64 `toml:"scenes" json:"scenes"`
	Dialogues  float64 `toml:"dialogues" json:"dialogues"`
	Transcript float64 `toml:"transcript" json:"transcript"`
}

// BasicWeights apply when no video analysis has been performed.
type BasicWeights struct {
	Duration   float64 `toml:"duration" json:"duration"`
	Transcript float64 `toml:"transcript" json:"transcript"`
}

// Thresholds escalate a measurement to Medium above Medium and High above High.
type Thresholds struct {
	Medium float64 `toml:"medium" json:"medium"`
	High   float64 `toml:"high" json:"high"`
}

// Rate returns the risk level for a measurement.
func (t Thresholds) Rate(value float64) model.RiskLevel {
	switch {
	case value > t.High:
		return model.RiskHigh
	case value > t.Medium:
		return model.RiskMedium
	}
	return model.RiskLow
}

// StructuredCost estimates how many output characters each analysed element
// adds to the structured part of a response.
type StructuredCost struct {
	PerCharacter     int `toml:"per_character" json:"per_character"`
	PerScene         int `toml:"per_scene" json:"per_scene"`
	PerDialogue      int `toml:"per_dialogue" json:"per_dialogue"`
	PerVisualElement int `toml:"per_visual_element" json:"per_visual_element"`
}

// Config holds every threshold and weight the scorer uses.
type Config struct {
	DurationSteps   Steps            `toml:"duration_steps" json:"duration_steps"`
	CharacterSteps  Steps            `toml:"character_steps" json:"character_steps"`
	SceneSteps      Steps            `toml:"scene_steps" json:"scene_steps"`
	DialogueSteps   Steps            `toml:"dialogue_steps" json:"dialogue_steps"`
	TranscriptSteps Steps            `toml:"transcript_steps" json:"transcript_steps"`
	Weights         Weights          `toml:"weights" json:"weights"`
	BasicWeights    BasicWeights     `toml:"basic_weights" json:"basic_weights"`
	TokenOverflow   Thresholds       `toml:"token_overflow" json:"token_overflow"`
	ProcessingTime  Thresholds       `toml:"processing_time" json:"processing_time"`
	Truncation      Thresholds       `toml:"truncation" json:"truncation"`
	StructuredCost  StructuredCost   `toml:"structured_cost" json:"structured_cost"`
	BaseTokens      model.LevelTable `toml:"base_tokens" json:"base_tokens"`
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		DurationSteps:   Steps{{0, 0}, {60, 10}, {180, 25}, {300, 40}, {600, 60}, {1200, 80}},
		CharacterSteps:  Steps{{0, 0}, {2, 15}, {5, 35}, {10, 60}, {20, 80}},
		SceneSteps:      Steps{{0, 0}, {3, 15}, {8, 35}, {15, 60}, {30, 80}},
		DialogueSteps:   Steps{{0, 0}, {10, 15}, {30, 35}, {60, 60}, {120, 80}},
		TranscriptSteps: Steps{{0, 0}, {1000, 10}, {5000, 30}, {15000, 55}, {40000, 80}},
		Weights: Weights{
			Duration:   0.15,
			Characters: 0.25,
			Scenes:     0.20,
			Dialogues:  0.15,
			Transcript: 0.25,
		},
		BasicWeights:   BasicWeights{Duration: 0.40, Transcript: 0.60},
		TokenOverflow:  Thresholds{Medium: 20000, High: 50000},
		ProcessingTime: Thresholds{Medium: 600, High: 1800},
		Truncation:     Thresholds{Medium: 4000, High: 10000},
		StructuredCost: StructuredCost{PerCharacter: 150, PerScene: 250, PerDialogue: 80, PerVisualElement: 40},
		BaseTokens:     model.DefaultBaseTokens,
	}
}

// Validate rejects tables that would break the [0,100] range or monotonicity.
func (c Config) Validate() error {
	errs := []error{
		c.DurationSteps.validate("duration"),
		c.CharacterSteps.validate("characters"),
		c.SceneSteps.validate("scenes"),
		c.DialogueSteps.validate("dialogues"),
		c.TranscriptSteps.validate("transcript"),
	}
	w := c.Weights
	for _, v := range []float64{w.Duration, w.Characters, w.Scenes, w.Dialogues, w.Transcript, c.BasicWeights.Duration, c.BasicWeights.Transcript} {
		if v < 0 {
			errs = append(errs, errors.New("weights must not be negative"))
			break
		}
	}
	if sum := w.Duration + w.Characters + w.Scenes + w.Dialogues + w.Transcript; sum > 1.0001 {
		errs = append(errs, fmt.Errorf("full weights sum to %.3f, want <= 1", sum))
	}
	if sum := c.BasicWeights.Duration + c.BasicWeights.Transcript; sum > 1.0001 {
		errs = append(errs, fmt.Errorf("basic weights sum to %.3f, want <= 1", sum))
	}
	return errors.Join(errs...)
}
