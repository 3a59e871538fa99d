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

// Package model defines the core data structures for the application.
// This file holds the content signal: the immutable snapshot of a source item
// (video metadata, transcript, optional video analysis) that the complexity
// scorer and the content materializer work from.
package model

import "unicode/utf8"

// CharacterNote is a character identified by an earlier video analysis pass.
type CharacterNote struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// SceneNote is a scene boundary with a short description.
type SceneNote struct {
	Start       string `json:"start"`
	End         string `json:"end"`
	Description string `json:"description,omitempty"`
}

// DialogueLine is a single attributed line of dialogue.
type DialogueLine struct {
	Speaker string `json:"speaker,omitempty"`
	Line    string `json:"line"`
}

// VideoAnalysis is the output of the (external) visual analysis step. When it
// is absent the scorer runs in basic mode.
type VideoAnalysis struct {
	Characters     []CharacterNote `json:"characters,omitempty"`
	Scenes         []SceneNote     `json:"scenes,omitempty"`
	Dialogues      []DialogueLine  `json:"dialogues,omitempty"`
	VisualElements []string        `json:"visual_elements,omitempty"`
}

// ContentSignal is created once per source item and never mutated. The counts
// drive scoring; the material (transcript, analysis) drives materialization.
type ContentSignal struct {
	SourceID           string         `json:"source_id,omitempty"`
	Title              string         `json:"title,omitempty"`
	Description        string         `json:"description,omitempty"`
	Category           string         `json:"category,omitempty"`
	Language           string         `json:"language,omitempty"` // Optional target language hint (ISO 639-1).
	DurationSeconds    float64        `json:"duration_seconds"`
	TranscriptLength   int            `json:"transcript_length"`
	CharacterCount     int            `json:"character_count"`
	SceneCount         int            `json:"scene_count"`
	DialogueCount      int            `json:"dialogue_count"`
	DescriptionLength  int            `json:"description_length"`
	VisualElementCount int            `json:"visual_element_count"`
	Transcript         string         `json:"transcript,omitempty"`
	Analysis           *VideoAnalysis `json:"analysis,omitempty"`
}

// NewContentSignal builds a signal from source material, deriving every count
// from the material itself.
func NewContentSignal(sourceID, title, description string, durationSeconds float64, transcript string, analysis *VideoAnalysis) ContentSignal {
	out := ContentSignal{
		SourceID:          sourceID,
		Title:             title,
		Description:       description,
		DurationSeconds:   durationSeconds,
		Transcript:        transcript,
		TranscriptLength:  utf8.RuneCountInString(transcript),
		DescriptionLength: utf8.RuneCountInString(description),
		Analysis:          analysis,
	}
	if analysis != nil {
		out.CharacterCount = len(analysis.Characters)
		out.SceneCount = len(analysis.Scenes)
		out.DialogueCount = len(analysis.Dialogues)
		out.VisualElementCount = len(analysis.VisualElements)
	}
	return out
}

// HasAnalysis reports whether video analysis sub-scores are available: an
// analysis is attached, or the signal declares analysis counts.
func (s ContentSignal) HasAnalysis() bool {
	return s.Analysis != nil || s.CharacterCount > 0 || s.SceneCount > 0 || s.DialogueCount > 0 || s.VisualElementCount > 0
}

// TotalTextLength is the estimated character count across every textual field
// of the signal. Declared lengths win over the material when they are larger,
// so a signal carrying only counts is still measured.
func (s ContentSignal) TotalTextLength() int {
	transcript := max(s.TranscriptLength, utf8.RuneCountInString(s.Transcript))
	description := max(s.DescriptionLength, utf8.RuneCountInString(s.Description))
	total := transcript + description + utf8.RuneCountInString(s.Title)
	if s.Analysis != nil {
		for _, c := range s.Analysis.Characters {
			total += utf8.RuneCountInString(c.Name) + utf8.RuneCountInString(c.Description)
		}
		for _, sc := range s.Analysis.Scenes {
			total += utf8.RuneCountInString(sc.Description)
		}
		for _, d := range s.Analysis.Dialogues {
			total += utf8.RuneCountInString(d.Speaker) + utf8.RuneCountInString(d.Line)
		}
		for _, v := range s.Analysis.VisualElements {
			total += utf8.RuneCountInString(v)
		}
	}
	return total
}

// Normalized fills any zero count from the attached material, leaving
// declared counts untouched.
func (s ContentSignal) Normalized() ContentSignal {
	if s.TranscriptLength == 0 {
		s.TranscriptLength = utf8.RuneCountInString(s.Transcript)
	}
	if s.DescriptionLength == 0 {
		s.DescriptionLength = utf8.RuneCountInString(s.Description)
	}
	if a := s.Analysis; a != nil {
		if s.CharacterCount == 0 {
			s.CharacterCount = len(a.Characters)
		}
		if s.SceneCount == 0 {
			s.SceneCount = len(a.Scenes)
		}
		if s.DialogueCount == 0 {
			s.DialogueCount = len(a.Dialogues)
		}
		if s.VisualElementCount == 0 {
			s.VisualElementCount = len(a.VisualElements)
		}
	}
	return s
}
