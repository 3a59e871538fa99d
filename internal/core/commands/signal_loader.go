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
// Responsibility (COR) pattern's Command interface. This file defines the
// command that loads the content signal for a Cloud Storage object.
package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jaycherian/gcp-go-media-narrative/internal/cloud"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/model"
)

// SignalLoader fetches the signal document named by the *cloud.GCSObject under
// its input param. Objects that are not signal documents (media uploaded to
// the same bucket, for instance) are skipped rather than failed, so their
// notifications are acknowledged instead of redelivered forever.
type SignalLoader struct {
	cor.BaseCommand
	source model.SignalSource
}

// NewSignalLoader creates the command that fetches a content signal by source id.
func NewSignalLoader(name string, source model.SignalSource) *SignalLoader {
	out := &SignalLoader{BaseCommand: *cor.NewBaseCommand(name), source: source}
	out.OutputParamName = SignalParam
	return out
}

// Execute fetches the signal for the GCS object under the input parameter.
// Objects that are not signal documents are marked skipped rather than failed.
func (c *SignalLoader) Execute(context cor.Context) {
	obj, ok := cor.Value[*cloud.GCSObject](context, c.GetInputParam())
	if !ok {
		c.Fail(context, fmt.Errorf("input %q is not a GCS object", c.GetInputParam()))
		return
	}

	signal, err := c.source.FetchContentSignal(context.GetContext(), obj.SourceID())
	if errors.Is(err, cloud.ErrNotSignalDocument) {
		slog.InfoContext(context.GetContext(), "skipping object", "source_id", obj.SourceID(), "reason", err)
		context.Add(SkippedParam, err)
		return
	}
	if err != nil {
		c.Fail(context, fmt.Errorf("failed to load signal: %w", err))
		return
	}

	c.Succeed(context, signal)
	context.Add(cor.CtxOut, signal)
}
