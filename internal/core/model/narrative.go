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

// Package model defines the core data structures for the application. This
// file defines the narrative document the model is asked to produce and the
// persistent record written to BigQuery once a document has been validated.
package model

import (
	"time"

	"github.com/google/uuid"
)

// NarrativeScene is one element of the mandatory ordered scene collection.
type NarrativeScene struct {
	SequenceNumber int      `json:"sequence_number" bigquery:"sequence_number"`
	Start          string   `json:"start" bigquery:"start"`
	End            string   `json:"end" bigquery:"end"`
	Setting        string   `json:"setting" bigquery:"setting"`
	Description    string   `json:"description" bigquery:"description"`
	Characters     []string `json:"characters" bigquery:"characters"`
	Dialogue       []string `json:"dialogue" bigquery:"dialogue"`
}

// NarrativeDocument is the structured narrative description of a source item.
// Scenes is the only field the validator refuses to invent.
type NarrativeDocument struct {
	Title      string           `json:"title"`
	Narrative  string           `json:"narrative" jsonschema:"description=Flowing prose retelling of the whole source"`
	Mood       string           `json:"mood" jsonschema:"description=Single word tone tag"`
	Characters []string         `json:"characters"`
	Confidence float64          `json:"confidence" jsonschema:"minimum=0,maximum=1"`
	Scenes     []NarrativeScene `json:"scenes" jsonschema:"minItems=1"`
}

// ValidatedPayload is the terminal artifact handed to callers. Warnings lists
// every default that was substituted.
type ValidatedPayload struct {
	Document NarrativeDocument `json:"document"`
	Warnings []string          `json:"warnings"`
}

// NarrativeRecord is the persistent form of a validated narrative.
type NarrativeRecord struct {
	Id          string           `json:"id" bigquery:"id"`
	SourceId    string           `json:"source_id" bigquery:"source_id"`
	CreateDate  time.Time        `json:"create_date" bigquery:"create_date"`
	Title       string           `json:"title" bigquery:"title"`
	Narrative   string           `json:"narrative" bigquery:"narrative"`
	Mood        string           `json:"mood" bigquery:"mood"`
	Characters  []string         `json:"characters" bigquery:"characters"`
	Confidence  float64          `json:"confidence" bigquery:"confidence"`
	Strategy    string           `json:"strategy" bigquery:"strategy"`
	QualityTier string           `json:"quality_tier" bigquery:"quality_tier"`
	Attempts    int              `json:"attempts" bigquery:"attempts"`
	Warnings    []string         `json:"warnings" bigquery:"warnings"`
	Scenes      []NarrativeScene `json:"scenes" bigquery:"scenes"`
}

// NarrativeID derives a stable id from the source id, so re-processing the
// same source overwrites rather than duplicates.
func NarrativeID(sourceID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(sourceID)).String()
}

// NarrativeResult is what the pipeline returns for one source: the selected
// attempt's payload plus the diagnostics that explain how it was obtained.
type NarrativeResult struct {
	SourceID    string               `json:"source_id"`
	Payload     *ValidatedPayload    `json:"payload"`
	Assessment  ComplexityAssessment `json:"assessment"`
	Budget      GenerationBudget     `json:"budget"` // Budget of the selected attempt.
	Strategy    ParseStrategy        `json:"strategy"`
	QualityTier QualityTier          `json:"quality_tier"`
	Attempts    int                  `json:"attempts"` // Attempts made, not the index of the selected one.
	RepairNotes []string             `json:"repair_notes,omitempty"`
}

// NewNarrativeRecord flattens a result into the row persisted to BigQuery.
func NewNarrativeRecord(result *NarrativeResult) *NarrativeRecord {
	payload := result.Payload
	doc := payload.Document
	return &NarrativeRecord{
		Id:          NarrativeID(result.SourceID),
		SourceId:    result.SourceID,
		CreateDate:  time.Now(),
		Title:       doc.Title,
		Narrative:   doc.Narrative,
		Mood:        doc.Mood,
		Characters:  append(make([]string, 0, len(doc.Characters)), doc.Characters...),
		Confidence:  doc.Confidence,
		Strategy:    result.Strategy.String(),
		QualityTier: string(result.QualityTier),
		Attempts:    result.Attempts,
		Warnings:    append(make([]string, 0, len(payload.Warnings)), payload.Warnings...),
		Scenes:      append(make([]NarrativeScene, 0, len(doc.Scenes)), doc.Scenes...),
	}
}
