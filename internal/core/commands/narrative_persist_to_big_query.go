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
// command that persists a narrative to BigQuery.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/bigquery"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jaycherian/gcp-go-media-narrative/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/model"
)

// RowInserter is the part of *bigquery.Inserter the command needs.
type RowInserter interface {
	Put(ctx context.Context, src any) error
}

// NarrativePersistToBigQuery streams the record of the *model.NarrativeResult
// under its input param into the narrative table.
type NarrativePersistToBigQuery struct {
	cor.BaseCommand
	inserter RowInserter
}

// NewNarrativePersistToBigQuery targets dataset.table through client.
func NewNarrativePersistToBigQuery(name string, client *bigquery.Client, dataset string, table string) *NarrativePersistToBigQuery {
	return NewNarrativePersist(name, client.Dataset(dataset).Table(table).Inserter())
}

// NewNarrativePersist writes through any inserter.
func NewNarrativePersist(name string, inserter RowInserter) *NarrativePersistToBigQuery {
	out := &NarrativePersistToBigQuery{BaseCommand: *cor.NewBaseCommand(name), inserter: inserter}
	out.InputParamName = NarrativeParam
	return out
}

// Execute converts the validated payload into a NarrativeRecord and inserts it.
func (s *NarrativePersistToBigQuery) Execute(context cor.Context) {
	result, ok := cor.Value[*model.NarrativeResult](context, s.GetInputParam())
	if !ok || result.Payload == nil {
		s.Fail(context, fmt.Errorf("input %q holds no narrative", s.GetInputParam()))
		return
	}

	record := model.NewNarrativeRecord(result)
	if err := s.inserter.Put(context.GetContext(), record); err != nil {
		s.Fail(context, fmt.Errorf("bigquery insert failed for source '%s': %w", result.SourceID, err))
		return
	}

	slog.InfoContext(context.GetContext(), "persisted narrative",
		"id", record.Id, "source_id", record.SourceId, "strategy", record.Strategy, "attempts", record.Attempts)
	s.Succeed(context, record, attribute.String("quality_tier", record.QualityTier))
}
