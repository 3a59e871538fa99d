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
// This file defines the ingestion workflow bound to the signal topic: a Cloud
// Storage notification names a signal document, the document is loaded, a
// narrative is generated for it and the result is persisted to BigQuery.
package workflow

import (
	"fmt"
	"log/slog"

	"github.com/jaycherian/gcp-go-media-narrative/internal/cloud"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/commands"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/model"
)

// NarrativeIngestionWorkflow runs in two chains so that an object which is
// not a signal document ends the run without an error, and its notification
// is acknowledged.
type NarrativeIngestionWorkflow struct {
	cor.BaseCommand
	load    cor.Chain
	narrate cor.Chain
}

// NewNarrativeIngestionWorkflow wires the workflow from the shared clients.
func NewNarrativeIngestionWorkflow(config *cloud.Config, cloudClients *cloud.ServiceClients) (*NarrativeIngestionWorkflow, error) {
	generator, ok := cloudClients.AgentModels[config.Pipeline.AgentModel]
	if !ok {
		return nil, fmt.Errorf("no agent model configured under key %q", config.Pipeline.AgentModel)
	}
	narrative, err := NewNarrativeWorkflow(config, generator)
	if err != nil {
		return nil, err
	}
	persist := commands.NewNarrativePersistToBigQuery("narrative-persist-to-bigquery",
		cloudClients.BigQueryClient,
		config.BigQueryDataSource.DatasetName,
		config.BigQueryDataSource.NarrativeTable)
	return NewNarrativeIngestion(cloudClients.SignalSource, narrative, persist), nil
}

// NewNarrativeIngestion assembles the workflow from its parts.
func NewNarrativeIngestion(source model.SignalSource, narrative cor.Command, persist cor.Command) *NarrativeIngestionWorkflow {
	out := &NarrativeIngestionWorkflow{BaseCommand: *cor.NewBaseCommand("narrative-ingestion")}
	out.load = cor.NewBaseChain("narrative-ingestion-load").
		AddCommand(commands.NewSignalTriggerToGCSObject("signal-trigger-to-gcs-object")).
		AddCommand(commands.NewSignalLoader("signal-loader", source))
	out.narrate = cor.NewBaseChain("narrative-ingestion-narrate").
		AddCommand(narrative).
		AddCommand(persist)
	return out
}

// Execute loads the signal named by the notification and, unless the object
// was skipped, hands it to the narrative workflow.
func (m *NarrativeIngestionWorkflow) Execute(context cor.Context) {
	m.load.Execute(context)
	if context.HasErrors() {
		return
	}
	if skipped := context.Get(commands.SkippedParam); skipped != nil {
		slog.InfoContext(context.GetContext(), "ingestion skipped", "reason", skipped)
		return
	}
	context.Add(cor.CtxIn, context.Get(commands.SignalParam))
	m.narrate.Execute(context)
}
