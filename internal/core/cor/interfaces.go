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

// Package cor (Chain of Responsibility) provides the building blocks the
// narrative pipeline is assembled from: commands that each perform one stage,
// chains that run commands in order, and a context that carries the stage
// values between them.
package cor

import (
	"context"
)

// CtxIn and CtxOut are the piping keys. After each command a BaseChain moves
// the value found under CtxOut to CtxIn for the next command.
const (
	CtxIn  = "__IN__"
	CtxOut = "__OUT__"
)

// Context is the property bag shared by every command of one chain execution.
type Context interface {
	// SetContext replaces the Go context, which carries cancellation and the
	// current span.
	SetContext(ctx context.Context)
	GetContext() context.Context

	// Add stores a value and returns the Context for chaining.
	Add(key string, value any) Context
	Get(key string) any
	Remove(key string)

	// AddError records the error of a command, keyed by the command name.
	AddError(key string, err error)
	GetErrors() map[string]error
	HasErrors() bool
	// Err joins every recorded error, ordered by key. It is nil when there are none.
	Err() error
}

// Executable is anything with stage logic.
type Executable interface {
	Execute(context Context)
}

// Command is one pipeline stage.
type Command interface {
	Executable

	// GetName identifies the command in spans, metrics and logs.
	GetName() string
	// GetInputParam is the key the command reads its primary input from.
	GetInputParam() string
	// GetOutputParam is the key the command writes its primary output to.
	GetOutputParam() string
	// IsExecutable is checked by the chain before Execute.
	IsExecutable(context Context) bool
}

// Chain runs commands in order. A Chain is itself a Command, so chains nest.
type Chain interface {
	Command

	// ContinueOnFailure makes the chain run the remaining commands after one
	// has recorded an error.
	ContinueOnFailure(bool) Chain
	AddCommand(command Command) Chain
}
