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

package test

import (
	"fmt"
	"strings"

	"github.com/jaycherian/gcp-go-media-narrative/internal/core/model"
)

// SimpleSignal is a short clip with no analysis and no transcript.
func SimpleSignal() model.ContentSignal {
	return model.ContentSignal{
		SourceID:        "gs://narrative_signals/simple.json",
		Title:           "Morning Coffee",
		Description:     "A barista prepares a latte.",
		DurationSeconds: 10,
	}
}

// AnalyzedSignal is a trailer with a moderate amount of analysis.
func AnalyzedSignal() model.ContentSignal {
	analysis := &model.VideoAnalysis{
		Characters: []model.CharacterNote{
			{Name: "Malcolm Reynolds", Description: "Captain of Serenity"},
			{Name: "River Tam", Description: "A gifted young fugitive"},
			{Name: "Simon Tam", Description: "River's brother, a surgeon"},
		},
		Scenes: []model.SceneNote{
			{Start: "00:00:00", End: "00:00:42", Description: "A battle rages at dawn."},
			{Start: "00:00:43", End: "00:01:30", Description: "The crew argue in the cargo hold."},
			{Start: "00:01:31", End: "00:02:10", Description: "Serenity flees through a storm of Reaver ships."},
		},
		Dialogues: []model.DialogueLine{
			{Speaker: "MAL", Line: "I aim to misbehave."},
			{Speaker: "SIMON", Line: "It's all right, River. I'm here."},
		},
		VisualElements: []string{"spaceship", "storm", "battlefield"},
	}
	transcript := "MAL: We have a job. SIMON: She is not cargo. RIVER: They're coming. " +
		"The crew of Serenity must decide whether to keep running or turn and face what hunts them."
	out := model.NewContentSignal("gs://narrative_signals/serenity.json", "Serenity", "Official trailer", 130, transcript, analysis)
	out.Category = "trailer"
	return out
}

// ExtremeSignal is a feature-length film with a long transcript and dense
// analysis.
func ExtremeSignal() model.ContentSignal {
	analysis := &model.VideoAnalysis{}
	for i := range 40 {
		analysis.Characters = append(analysis.Characters, model.CharacterNote{Name: fmt.Sprintf("Character %d", i+1), Description: "A member of the ensemble cast."})
	}
	for i := range 120 {
		analysis.Scenes = append(analysis.Scenes, model.SceneNote{
			Start:       fmt.Sprintf("00:%02d:%02d", i/2, (i%2)*30),
			End:         fmt.Sprintf("00:%02d:%02d", i/2, (i%2)*30+29),
			Description: strings.Repeat("Something happens in this scene. ", 10),
		})
	}
	for i := range 600 {
		analysis.Dialogues = append(analysis.Dialogues, model.DialogueLine{Speaker: fmt.Sprintf("C%d", i%40), Line: "A line of dialogue."})
	}
	transcript := strings.Repeat("This is a sentence of the transcript that goes on and on.\n\n", 2500)
	return model.NewContentSignal("gs://narrative_signals/epic.json", "The Epic", strings.Repeat("A very long film. ", 50), 3*60*60, transcript, analysis)
}

// SignalDocument is AnalyzedSignal as the JSON stored in the signal bucket.
func SignalDocument() string {
	return `{
  "title": "Serenity",
  "description": "Official trailer",
  "category": "trailer",
  "duration_seconds": 130,
  "transcript": "MAL: We have a job. SIMON: She is not cargo. RIVER: They're coming.",
  "analysis": {
    "characters": [{"name": "Malcolm Reynolds"}, {"name": "River Tam"}],
    "scenes": [{"start": "00:00:00", "end": "00:00:42", "description": "A battle rages at dawn."}],
    "dialogues": [{"speaker": "MAL", "line": "I aim to misbehave."}]
  }
}`
}
