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

// Package complexity turns the raw characteristics of a source item into a
// 0-100 complexity score, a discrete level, and three independent risk
// ratings. The scorer is a pure function of its input: no I/O, no shared
// state, and every input (including the zero value) produces an assessment.
//
// Two weighting schemes exist. Full mode blends duration, characters, scenes,
// dialogues and transcript length. Basic mode is used when no video analysis
// has been performed and blends only duration and transcript length. Both
// produce scores on the same scale, so downstream consumers never branch on
// the mode.
package complexity

import (
	"math"
	"unicode/utf8"

	"github.com/jaycherian/gcp-go-media-narrative/internal/core/model"
)

// Scorer assesses content signals. It holds only its configuration and is safe
// for concurrent use.
type Scorer struct {
	config Config
}

// NewScorer creates a scorer with the given tuning.
func NewScorer(config Config) *Scorer {
	return &Scorer{config: config}
}

// Assess derives a ComplexityAssessment from a signal.
func (s *Scorer) Assess(signal model.ContentSignal) model.ComplexityAssessment {
	sub := s.subScores(signal)

	var raw float64
	mode := model.ScoringBasic
	if signal.HasAnalysis() {
		mode = model.ScoringFull
		w := s.config.Weights
		raw = w.Duration*float64(sub.Duration) +
			w.Characters*float64(sub.Characters) +
			w.Scenes*float64(sub.Scenes) +
			w.Dialogues*float64(sub.Dialogues) +
			w.Transcript*float64(sub.Transcript)
	} else {
		w := s.config.BasicWeights
		raw = w.Duration*float64(sub.Duration) + w.Transcript*float64(sub.Transcript)
	}

	score := clampScore(raw)
	level := model.LevelForScore(score)
	return model.ComplexityAssessment{
		Score:             score,
		Level:             level,
		Risks:             s.risks(signal),
		RecommendedBudget: s.config.BaseTokens.For(level),
		Mode:              mode,
		SubScores:         sub,
	}
}

func (s *Scorer) subScores(signal model.ContentSignal) model.SubScores {
	characters, scenes, dialogues, _ := analysisCounts(signal)
	return model.SubScores{
		Duration:   s.config.DurationSteps.Eval(signal.DurationSeconds),
		Characters: s.config.CharacterSteps.Eval(float64(characters)),
		Scenes:     s.config.SceneSteps.Eval(float64(scenes)),
		Dialogues:  s.config.DialogueSteps.Eval(float64(dialogues)),
		Transcript: s.config.TranscriptSteps.Eval(float64(transcriptLength(signal))),
	}
}

func (s *Scorer) risks(signal model.ContentSignal) model.RiskFactors {
	characters, scenes, dialogues, visual := analysisCounts(signal)
	cost := s.config.StructuredCost
	structured := cost.PerCharacter*characters +
		cost.PerScene*scenes +
		cost.PerDialogue*dialogues +
		cost.PerVisualElement*visual

	duration := signal.DurationSeconds
	if math.IsNaN(duration) {
		duration = 0
	}
	return model.RiskFactors{
		TokenOverflow:  s.config.TokenOverflow.Rate(float64(signal.TotalTextLength())),
		ProcessingTime: s.config.ProcessingTime.Rate(duration),
		Truncation:     s.config.Truncation.Rate(float64(structured)),
	}
}

// analysisCounts reads declared counts, raised to the size of the attached
// analysis when that is larger. Negative counts read as zero.
func analysisCounts(signal model.ContentSignal) (characters, scenes, dialogues, visual int) {
	characters = max(signal.CharacterCount, 0)
	scenes = max(signal.SceneCount, 0)
	dialogues = max(signal.DialogueCount, 0)
	visual = max(signal.VisualElementCount, 0)
	if a := signal.Analysis; a != nil {
		characters = max(characters, len(a.Characters))
		scenes = max(scenes, len(a.Scenes))
		dialogues = max(dialogues, len(a.Dialogues))
		visual = max(visual, len(a.VisualElements))
	}
	return
}

func transcriptLength(signal model.ContentSignal) int {
	return max(signal.TranscriptLength, utf8.RuneCountInString(signal.Transcript), 0)
}

func clampScore(raw float64) int {
	if math.IsNaN(raw) {
		return 0
	}
	return int(math.Round(math.Max(0, math.Min(100, raw))))
}
