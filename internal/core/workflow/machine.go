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

// Package workflow assembles commands into the pipelines the server runs.
// This file defines the retry state machine of the narrative workflow. The
// machine is pure: it only decides the next step, the workflow performs it.
package workflow

import (
	"fmt"

	"github.com/jaycherian/gcp-go-media-narrative/internal/core/budget"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/model"
)

// State is a stage of one narrative run.
type State int

const (
	Planning State = iota
	Generating
	Parsing
	Validating
	Retrying
	Done
	Failed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Planning:
		return "planning"
	case Generating:
		return "generating"
	case Parsing:
		return "parsing"
	case Validating:
		return "validating"
	case Retrying:
		return "retrying"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}

// Step is the machine's position: the state, the attempt it belongs to and
// the budget that attempt runs with. Feedback carries the outcome that sent
// the machine into Retrying.
type Step struct {
	State    State
	Attempt  int
	Budget   model.GenerationBudget
	Feedback model.AttemptOutcome
}

// Outcome is what the workflow observed while performing a step. Err is set
// when Generating failed at the transport level; Attempt is filled once the
// candidate has been validated.
type Outcome struct {
	Err     error
	Attempt model.AttemptOutcome
}

// Machine holds the retry ceiling and the adjuster that tightens the budget
// between attempts.
type Machine struct {
	MaxAttempts int
	Adjuster    *budget.Adjuster
}

// NewMachine creates a machine allowing at most maxAttempts generations.
func NewMachine(maxAttempts int, adjuster *budget.Adjuster) *Machine {
	return &Machine{MaxAttempts: max(maxAttempts, 1), Adjuster: adjuster}
}

// Start is the initial step for a planned budget.
func Start(planned model.GenerationBudget) Step {
	return Step{State: Planning, Budget: planned}
}

// Next returns the step after step given what was observed performing it.
func (m *Machine) Next(step Step, outcome Outcome) Step {
	switch step.State {
	case Planning:
		b := step.Budget
		b.Attempt = 1
		return Step{State: Generating, Attempt: 1, Budget: b}

	case Generating:
		if outcome.Err != nil {
			feedback := outcome.Attempt
			feedback.FinishReason = model.FinishError
			return m.retryOr(step, feedback, Failed)
		}
		return Step{State: Parsing, Attempt: step.Attempt, Budget: step.Budget}

	case Parsing:
		return Step{State: Validating, Attempt: step.Attempt, Budget: step.Budget}

	case Validating:
		if budget.NeedsRetry(outcome.Attempt) {
			return m.retryOr(step, outcome.Attempt, Done)
		}
		return Step{State: Done, Attempt: step.Attempt, Budget: step.Budget}

	case Retrying:
		next := step.Budget
		if m.Adjuster != nil {
			next = m.Adjuster.Adjust(step.Budget, step.Feedback)
		}
		next.Attempt = step.Attempt + 1
		return Step{State: Generating, Attempt: step.Attempt + 1, Budget: next}
	}
	return step
}

// retryOr moves to Retrying while attempts remain and to exhausted otherwise.
func (m *Machine) retryOr(step Step, feedback model.AttemptOutcome, exhausted State) Step {
	if step.Attempt < m.MaxAttempts {
		return Step{State: Retrying, Attempt: step.Attempt, Budget: step.Budget, Feedback: feedback}
	}
	return Step{State: exhausted, Attempt: step.Attempt, Budget: step.Budget, Feedback: feedback}
}
