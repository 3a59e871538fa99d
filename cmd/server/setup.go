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

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jaycherian/gcp-go-media-narrative/internal/api"
	"github.com/jaycherian/gcp-go-media-narrative/internal/cloud"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/budget"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/complexity"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/repair"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/services"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/validate"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/workflow"
)

type StateManager struct {
	config   *cloud.Config
	cloud    *cloud.ServiceClients
	handlers *api.Handlers
}

var state = &StateManager{}

// SetupOS defaults the configuration directory and runtime when the
// environment does not set them.
func SetupOS() error {
	if os.Getenv(cloud.EnvConfigFilePrefix) == "" {
		if err := os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			return err
		}
	}
	if os.Getenv(cloud.EnvConfigRuntime) == "" {
		return os.Setenv(cloud.EnvConfigRuntime, "local")
	}
	return nil
}

// GetConfig loads and validates the server configuration once, then returns
// the cached copy.
func GetConfig() (*cloud.Config, error) {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			return nil, fmt.Errorf("failed to setup os: %w", err)
		}
		config := cloud.NewConfig()
		if err := cloud.LoadConfig(config); err != nil {
			return nil, err
		}
		if err := config.Pipeline.Validate(); err != nil {
			return nil, fmt.Errorf("invalid pipeline configuration: %w", err)
		}
		state.config = config
	}
	return state.config, nil
}

// InitState creates the cloud clients and services the handlers depend on.
//
// Inputs:
//   - ctx: the application's root context. Clients live as long as it does.
//
// Outputs:
//   - an error if configuration or any client fails to initialize.
func InitState(ctx context.Context) error {
	config, err := GetConfig()
	if err != nil {
		return err
	}

	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		return err
	}
	state.cloud = cloudClients

	generator, ok := cloudClients.AgentModels[config.Pipeline.AgentModel]
	if !ok {
		return fmt.Errorf("no agent model configured under key %q", config.Pipeline.AgentModel)
	}
	narrative, err := workflow.NewNarrativeWorkflow(config, generator)
	if err != nil {
		return err
	}

	pipeline := config.Pipeline
	dataset := cloudClients.BigQueryClient.Dataset(config.BigQueryDataSource.DatasetName)
	state.handlers = &api.Handlers{
		Runner: narrative,
		Store:  dataset.Table(config.BigQueryDataSource.NarrativeTable).Inserter(),
		Narratives: &services.NarrativeService{
			BigqueryClient: cloudClients.BigQueryClient,
			DatasetName:    config.BigQueryDataSource.DatasetName,
			NarrativeTable: config.BigQueryDataSource.NarrativeTable,
		},
		Scorer:     complexity.NewScorer(pipeline.Scorer),
		Planner:    budget.NewPlanner(pipeline.Planner),
		Ladder:     repair.NewLadder(pipeline.Ladder),
		Validator:  validate.NewValidator(validate.DefaultRules()),
		OutputMode: pipeline.OutputMode,
	}
	return SetupListeners(ctx, config, cloudClients)
}
