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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationScope names the meter and tracers of every command.
const InstrumentationScope = "github.com/jaycherian/gcp-go-media-narrative"

// BaseCommand is embedded by every command. It carries the piping keys and
// the command's telemetry: a tracer plus success and error counters named
// after the command.
type BaseCommand struct {
	Name            string
	InputParamName  string
	OutputParamName string
	Tracer          trace.Tracer
	Meter           metric.Meter
	SuccessCounter  metric.Int64Counter
	ErrorCounter    metric.Int64Counter
}

// NewBaseCommand creates a command base with telemetry registered on the
// global providers.
func NewBaseCommand(name string) *BaseCommand {
	meter := otel.Meter(InstrumentationScope)
	successCounter, err := meter.Int64Counter(fmt.Sprintf("%s.counter.success", name))
	if err != nil {
		slog.Warn("failed to create success counter", "command", name, "error", err)
	}
	errorCounter, err := meter.Int64Counter(fmt.Sprintf("%s.counter.error", name))
	if err != nil {
		slog.Warn("failed to create error counter", "command", name, "error", err)
	}
	return &BaseCommand{
		Name:           name,
		Tracer:         otel.Tracer(name),
		Meter:          meter,
		SuccessCounter: successCounter,
		ErrorCounter:   errorCounter,
	}
}

// GetName returns the name the command logs and records errors under.
func (c *BaseCommand) GetName() string {
	return c.Name
}

// IsExecutable requires a Go context and a value under the input key.
func (c *BaseCommand) IsExecutable(context Context) bool {
	return context != nil && context.GetContext() != nil && context.Get(c.GetInputParam()) != nil
}

// GetInputParam defaults to CtxIn so commands pipe inside a BaseChain.
func (c *BaseCommand) GetInputParam() string {
	if c.InputParamName == "" {
		return CtxIn
	}
	return c.InputParamName
}

// GetOutputParam defaults to CtxOut.
func (c *BaseCommand) GetOutputParam() string {
	if c.OutputParamName == "" {
		return CtxOut
	}
	return c.OutputParamName
}

// Succeed stores the output and counts a success.
func (c *BaseCommand) Succeed(context Context, output any, attrs ...attribute.KeyValue) {
	context.Add(c.GetOutputParam(), output)
	if c.SuccessCounter != nil {
		c.SuccessCounter.Add(context.GetContext(), 1, metric.WithAttributes(attrs...))
	}
}

// Fail records err on the context, the current span and the error counter.
func (c *BaseCommand) Fail(context Context, err error, attrs ...attribute.KeyValue) {
	ctx := context.GetContext()
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	slog.ErrorContext(ctx, "command failed", "command", c.Name, "error", err)
	context.AddError(c.GetName(), err)
	if c.ErrorCounter != nil {
		c.ErrorCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}
