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

// Package model defines the data structures for the application. This file,
// `examples.go`, provides hardcoded example instances used for few-shot
// prompting: a concrete document in the prompt steers the model towards the
// exact JSON shape the repair ladder and validator expect.
package model

// GetExampleScene creates a sample scene for the few-shot example.
func GetExampleScene() NarrativeScene {
	return NarrativeScene{
		SequenceNumber: 1,
		Start:          "00:00:00",
		End:            "00:00:42",
		Setting:        "A battlefield at dawn",
		Description:    "River Tam runs through the chaos of a raging battle until her brother Simon finds her and pulls her to safety.",
		Characters:     []string{"River Tam", "Simon Tam"},
		Dialogue:       []string{"SIMON: It's all right, River. I'm here."},
	}
}

// GetExampleNarrative creates a sample narrative document.
func GetExampleNarrative() *NarrativeDocument {
	second := GetExampleScene()
	second.SequenceNumber = 2
	second.Start, second.End = "00:00:43", "00:01:30"
	second.Setting = "The cargo hold of Serenity"
	second.Description = "Mal Reynolds argues with his crew about keeping the fugitives aboard while the Operative closes in."
	second.Characters = []string{"Malcolm Reynolds", "River Tam"}
	second.Dialogue = []string{"MAL: I aim to misbehave."}

	return &NarrativeDocument{
		Title:      "Serenity",
		Narrative:  "The crew of the ship Serenity try to evade an assassin sent to recapture telepath River, and uncover the secret the Alliance is desperate to hide.",
		Mood:       "tense",
		Characters: []string{"Malcolm Reynolds", "River Tam", "Simon Tam"},
		Confidence: 0.9,
		Scenes:     []NarrativeScene{GetExampleScene(), second},
	}
}
