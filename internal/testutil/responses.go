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

// Canned model answers, from clean to hopeless.
const (
	ValidNarrativeJSON = `{
  "title": "Serenity",
  "narrative": "The crew of Serenity shelter two fugitives and are hunted across the system by an Operative of the Alliance.",
  "mood": "tense",
  "characters": ["Malcolm Reynolds", "River Tam"],
  "confidence": 0.9,
  "scenes": [
    {"sequence_number": 1, "start": "00:00:00", "end": "00:00:42", "setting": "Battlefield", "description": "A battle rages at dawn.", "characters": ["River Tam"], "dialogue": []},
    {"sequence_number": 2, "start": "00:00:43", "end": "00:01:30", "setting": "Cargo hold", "description": "The crew argue.", "characters": ["Malcolm Reynolds"], "dialogue": ["MAL: I aim to misbehave."]}
  ]
}`

	// FencedNarrativeJSON wraps a document with a trailing comma in a code fence.
	FencedNarrativeJSON = "Here is the narrative:\n```json\n" + `{
  "title": "Serenity",
  "narrative": "The crew of Serenity shelter two fugitives and are hunted across the system.",
  "mood": "tense",
  "scenes": [{"sequence_number": 1, "description": "A battle rages at dawn."},],
}` + "\n```\n"

	// TruncatedNarrativeJSON stops in the middle of the second scene.
	TruncatedNarrativeJSON = `{
  "title": "Serenity",
  "narrative": "The crew of Serenity shelter two fugitives and are hunted across the system by an Operative.",
  "mood": "tense",
  "confidence": 0.8,
  "scenes": [
    {"sequence_number": 1, "start": "00:00:00", "end": "00:00:42", "description": "A battle rages at dawn."},
    {"sequence_number": 2, "start": "00:00:43", "description": "The crew arg`

	// NoScenesJSON is well formed but carries no scene collection.
	NoScenesJSON = `{"title": "Serenity", "narrative": "A story without scenes.", "mood": "calm"}`

	// ProseAnswer ignores the requested format entirely.
	ProseAnswer = "not json at all"
)
