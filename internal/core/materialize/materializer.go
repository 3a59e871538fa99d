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

// Package materialize builds the literal content payload sent to the model,
// degrading source detail in proportion to the planned budget. Degrading
// before the call is cheaper and more predictable than hoping the model
// truncates gracefully, and it keeps the repair ladder's input small.
//
// The strategy is chosen only by the assessment level:
//
//	Simple    everything verbatim                         QualityFull
//	Moderate  per-section caps, light truncation          QualityFull or QualityPartial
//	Complex   halved caps, smart truncation, marker       QualityPartial
//	Extreme   title and description excerpt only          QualityMetadataOnly
package materialize

import (
	"fmt"
	"strings"

	"github.com/jaycherian/gcp-go-media-narrative/internal/core/model"
)

// Caps bound the enumerated sections of the video analysis.
type Caps struct {
	Characters       int `toml:"characters" json:"characters"`
	Scenes           int `toml:"scenes" json:"scenes"`
	DialogueLines    int `toml:"dialogue_lines" json:"dialogue_lines"`
	SceneDescription int `toml:"scene_description" json:"scene_description"` // Runes per scene description.
}

// Config tunes the materializer.
type Config struct {
	CharsPerToken      int     `toml:"chars_per_token" json:"chars_per_token"`
	ModerateCaps       Caps    `toml:"moderate_caps" json:"moderate_caps"`
	ComplexCaps        Caps    `toml:"complex_caps" json:"complex_caps"`
	ExtremeDescription int     `toml:"extreme_description" json:"extreme_description"` // Runes of description kept at Extreme.
	SmartWindow        float64 `toml:"smart_window" json:"smart_window"`               // Trailing fraction searched for a paragraph break.
	Marker             string  `toml:"marker" json:"marker"`
	TokenEncoding      string  `toml:"token_encoding" json:"token_encoding"` // Optional tiktoken encoding for size estimates.
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		CharsPerToken:      4,
		ModerateCaps:       Caps{Characters: 10, Scenes: 20, DialogueLines: 40, SceneDescription: 300},
		ComplexCaps:        Caps{Characters: 5, Scenes: 10, DialogueLines: 20, SceneDescription: 150},
		ExtremeDescription: 500,
		SmartWindow:        0.3,
		Marker:             "[Content optimized for processing]",
	}
}

// Strategy names recorded on MaterializedContent.
const (
	StrategyFullDetail      = "full_detail"
	StrategyLightTruncation = "light_truncation"
	StrategySmartTruncation = "smart_truncation"
	StrategyMetadataOnly    = "metadata_only"
)

// Materializer turns a signal into a prompt payload.
type Materializer struct {
	config    Config
	estimator Estimator
}

// NewMaterializer creates a materializer. A nil estimator falls back to the
// chars-per-token heuristic.
func NewMaterializer(config Config, estimator Estimator) *Materializer {
	if estimator == nil {
		estimator = HeuristicEstimator{CharsPerToken: config.CharsPerToken}
	}
	return &Materializer{config: config, estimator: estimator}
}

// TargetBytes is the byte budget for a payload under the given budget.
func (m *Materializer) TargetBytes(budget model.GenerationBudget) int {
	cpt := m.config.CharsPerToken
	if cpt <= 0 {
		cpt = 4
	}
	return budget.MaxOutputSize * cpt
}

// Materialize renders the payload for one attempt.
func (m *Materializer) Materialize(signal model.ContentSignal, assessment model.ComplexityAssessment, budget model.GenerationBudget) model.MaterializedContent {
	target := m.TargetBytes(budget)

	var out model.MaterializedContent
	switch assessment.Level {
	case model.Simple:
		out = model.MaterializedContent{
			Text:        render(signal, nil),
			QualityTier: model.QualityFull,
			Strategy:    StrategyFullDetail,
		}
	case model.Moderate:
		text, capped := renderCapped(signal, m.config.ModerateCaps)
		out = model.MaterializedContent{
			Text:                  text,
			QualityTier:           model.QualityFull,
			SimplificationApplied: capped,
			Strategy:              StrategyLightTruncation,
		}
		if len(text) > target {
			out.Text = m.withMarker(lightTruncate(text, m.room(target)))
			out.QualityTier = model.QualityPartial
			out.SimplificationApplied = true
		}
	case model.Complex:
		text, _ := renderCapped(signal, m.config.ComplexCaps)
		if room := m.room(target); len(text) > room {
			text = smartTruncate(text, room, m.config.SmartWindow)
		}
		out = model.MaterializedContent{
			Text:                  m.withMarker(text),
			QualityTier:           model.QualityPartial,
			SimplificationApplied: true,
			Strategy:              StrategySmartTruncation,
		}
	default:
		out = model.MaterializedContent{
			Text:                  m.withMarker(aggressiveTruncate(m.renderMetadata(signal), m.room(target))),
			QualityTier:           model.QualityMetadataOnly,
			SimplificationApplied: true,
			Strategy:              StrategyMetadataOnly,
		}
	}
	out.EstimatedSize = m.estimator.Estimate(out.Text)
	return out
}

// room is the byte budget left for content once the marker is appended.
func (m *Materializer) room(target int) int {
	return max(target-len(paragraphBreak)-len(m.config.Marker), 0)
}

func (m *Materializer) withMarker(text string) string {
	text = strings.TrimRight(text, " \n\t")
	if text == "" {
		return m.config.Marker
	}
	return text + paragraphBreak + m.config.Marker
}

func (m *Materializer) renderMetadata(signal model.ContentSignal) string {
	var sb strings.Builder
	writeField(&sb, "Title", signal.Title)
	excerpt, _ := truncateRunes(strings.TrimSpace(signal.Description), m.config.ExtremeDescription)
	writeField(&sb, "Description", excerpt)
	writeField(&sb, "Category", signal.Category)
	if signal.DurationSeconds > 0 {
		writeField(&sb, "Duration", fmt.Sprintf("%.0f seconds", signal.DurationSeconds))
	}
	return sb.String()
}

// renderCapped renders the signal with the caps applied and reports whether
// any cap dropped content.
func renderCapped(signal model.ContentSignal, caps Caps) (string, bool) {
	return render(signal, &caps), capsApply(signal.Analysis, caps)
}

func capsApply(a *model.VideoAnalysis, caps Caps) bool {
	if a == nil {
		return false
	}
	if len(a.Characters) > caps.Characters || len(a.Scenes) > caps.Scenes || len(a.Dialogues) > caps.DialogueLines {
		return true
	}
	for _, sc := range a.Scenes {
		if _, cut := truncateRunes(sc.Description, caps.SceneDescription); cut {
			return true
		}
	}
	return false
}

// render lays the signal out as plain sections separated by blank lines, so
// paragraph-aware truncation drops whole sections and transcript paragraphs.
func render(signal model.ContentSignal, caps *Caps) string {
	var sb strings.Builder
	writeField(&sb, "Title", signal.Title)
	writeField(&sb, "Description", strings.TrimSpace(signal.Description))
	writeField(&sb, "Category", signal.Category)
	if signal.DurationSeconds > 0 {
		writeField(&sb, "Duration", fmt.Sprintf("%.0f seconds", signal.DurationSeconds))
	}

	if a := signal.Analysis; a != nil {
		characters, scenes, dialogues := a.Characters, a.Scenes, a.Dialogues
		if caps != nil {
			characters = characters[:min(len(characters), caps.Characters)]
			scenes = scenes[:min(len(scenes), caps.Scenes)]
			dialogues = dialogues[:min(len(dialogues), caps.DialogueLines)]
		}
		if len(characters) > 0 {
			section(&sb, "Characters")
			for _, c := range characters {
				if c.Description != "" {
					fmt.Fprintf(&sb, "- %s: %s\n", c.Name, c.Description)
				} else {
					fmt.Fprintf(&sb, "- %s\n", c.Name)
				}
			}
		}
		if len(scenes) > 0 {
			section(&sb, "Scenes")
			for i, sc := range scenes {
				desc := sc.Description
				if caps != nil {
					if cut, truncated := truncateRunes(desc, caps.SceneDescription); truncated {
						desc = cut + "..."
					}
				}
				fmt.Fprintf(&sb, "%d. [%s - %s] %s\n", i+1, sc.Start, sc.End, desc)
			}
		}
		if len(dialogues) > 0 {
			section(&sb, "Dialogue")
			for _, d := range dialogues {
				if d.Speaker != "" {
					fmt.Fprintf(&sb, "%s: %s\n", d.Speaker, d.Line)
				} else {
					fmt.Fprintf(&sb, "%s\n", d.Line)
				}
			}
		}
		if len(a.VisualElements) > 0 {
			section(&sb, "Visual elements")
			sb.WriteString(strings.Join(a.VisualElements, ", "))
			sb.WriteString("\n")
		}
	}

	if t := strings.TrimSpace(signal.Transcript); t != "" {
		section(&sb, "Transcript")
		sb.WriteString(t)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func writeField(sb *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(sb, "%s: %s\n", name, value)
}

func section(sb *strings.Builder, name string) {
	if sb.Len() > 0 {
		sb.WriteString("\n")
	}
	sb.WriteString(name)
	sb.WriteString(":\n")
}
