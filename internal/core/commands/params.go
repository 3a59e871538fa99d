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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface for the narrative
// pipeline. This file names the context keys the commands share.
package commands

// Context keys written and read by the pipeline commands. A command reads its
// primary input from its input param and the rest of its inputs from these
// keys, so commands can be reordered without rewiring.
const (
	SignalParam     = "__SIGNAL__"     // model.ContentSignal
	AssessmentParam = "__ASSESSMENT__" // model.ComplexityAssessment
	BudgetParam     = "__BUDGET__"     // model.GenerationBudget
	ContentParam    = "__CONTENT__"    // model.MaterializedContent
	ResponseParam   = "__RESPONSE__"   // model.GenerationResult
	ElapsedParam    = "__ELAPSED__"    // time.Duration of the Generate call
	OutcomeParam    = "__OUTCOME__"    // model.ParseOutcome
	PayloadParam    = "__PAYLOAD__"    // *model.ValidatedPayload
	RejectionParam  = "__REJECTION__"  // error from the validator
	NarrativeParam  = "__NARRATIVE__"  // *model.NarrativeResult
	SkippedParam    = "__SKIPPED__"    // error explaining why an object was skipped
)
