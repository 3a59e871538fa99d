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

package cor

import (
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// BaseChain runs its commands sequentially, one child span per command, and
// pipes CtxOut of each command into CtxIn of the next. It stops at the first
// recorded error unless ContinueOnFailure(true) was set.
type BaseChain struct {
	BaseCommand
	continueOnFailure bool
	commands          []Command
	stageDuration     metric.Float64Histogram
}

// NewBaseChain creates an empty chain.
func NewBaseChain(name string) *BaseChain {
	base := NewBaseCommand(name)
	histogram, err := base.Meter.Float64Histogram(
		fmt.Sprintf("%s.stage.duration", name),
		metric.WithUnit("ms"),
		metric.WithDescription("Duration of each command executed by the chain"),
	)
	if err != nil {
		slog.Warn("failed to create stage histogram", "chain", name, "error", err)
	}
	return &BaseChain{BaseCommand: *base, stageDuration: histogram}
}

// ContinueOnFailure sets whether the chain keeps executing after a command
// fails. The default is to stop at the first failure.
func (c *BaseChain) ContinueOnFailure(continueOnFailure bool) Chain {
	c.continueOnFailure = continueOnFailure
	return c
}

// AddCommand appends command to the chain.
//
// Inputs:
//   - command: the next link. Its input parameter is fed from the output
//     parameter of the command before it.
//
// Outputs:
//   - the chain itself, so links can be added fluently.
func (c *BaseChain) AddCommand(command Command) Chain {
	c.commands = append(c.commands, command)
	return c
}

// IsExecutable only needs a Go context; the first command checks its own input.
func (c *BaseChain) IsExecutable(context Context) bool {
	return context != nil && context.GetContext() != nil
}

// Execute runs each executable command in order, piping the output of one
// command into the input of the next. Without ContinueOnFailure the chain
// stops once the context holds an error.
func (c *BaseChain) Execute(chCtx Context) {
	parentCtx := chCtx.GetContext()
	outerCtx, chainSpan := c.Tracer.Start(parentCtx, fmt.Sprintf("%s_execute", c.GetName()))
	defer func() {
		chCtx.SetContext(parentCtx)
		chainSpan.End()
	}()

	for _, command := range c.commands {
		if chCtx.HasErrors() && !c.continueOnFailure {
			break
		}
		commandCtx, commandSpan := c.Tracer.Start(outerCtx, command.GetName())

		if command.IsExecutable(chCtx) {
			started := time.Now()
			chCtx.SetContext(commandCtx)
			command.Execute(chCtx)
			chCtx.SetContext(outerCtx)
			if c.stageDuration != nil {
				c.stageDuration.Record(outerCtx, float64(time.Since(started).Microseconds())/1000,
					metric.WithAttributes(attribute.String("command", command.GetName())))
			}
		} else {
			chCtx.AddError(command.GetName(), fmt.Errorf("command %s is not executable: missing input %q", command.GetName(), command.GetInputParam()))
		}

		if err, failed := chCtx.GetErrors()[command.GetName()]; failed {
			commandSpan.SetStatus(codes.Error, err.Error())
		} else {
			commandSpan.SetStatus(codes.Ok, "")
		}
		commandSpan.End()

		out := chCtx.Get(CtxOut)
		chCtx.Remove(CtxIn)
		if out != nil {
			chCtx.Add(CtxIn, out)
		}
		chCtx.Remove(CtxOut)
	}

	if chCtx.HasErrors() {
		chainSpan.SetStatus(codes.Error, "chain failed")
	} else {
		chainSpan.SetStatus(codes.Ok, "")
	}
}
