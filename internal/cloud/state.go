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

// Package cloud provides components for interacting with Google Cloud services.
// This file builds ServiceClients, the container of every external client the
// server and workers share.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"google.golang.org/genai"
)

// ServiceClients holds the initialized Google Cloud clients and the
// configured wrappers built on top of them.
type ServiceClients struct {
	StorageClient   *storage.Client
	PubsubClient    *pubsub.Client
	GenAIClient     *genai.Client
	BigQueryClient  *bigquery.Client
	PubSubListeners map[string]*PubSubListener              // Keyed by the TopicSubscriptions key.
	AgentModels     map[string]*QuotaAwareGenerativeAIModel // Keyed by the AgentModels key.
	SignalSource    *GCSSignalSource
}

// Close releases the clients that hold connections.
func (c *ServiceClients) Close() error {
	var errs []error
	if c.StorageClient != nil {
		errs = append(errs, c.StorageClient.Close())
	}
	if c.PubsubClient != nil {
		errs = append(errs, c.PubsubClient.Close())
	}
	if c.BigQueryClient != nil {
		errs = append(errs, c.BigQueryClient.Close())
	}
	return errors.Join(errs...)
}

// NewCloudServiceClients creates every client the configuration asks for.
func NewCloudServiceClients(ctx context.Context, config *Config) (*ServiceClients, error) {
	projectID := config.Application.GoogleProjectId

	sc, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	pc, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: config.Application.GoogleLocation,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	bc, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create bigquery client: %w", err)
	}

	subscriptions := make(map[string]*PubSubListener, len(config.TopicSubscriptions))
	for key, values := range config.TopicSubscriptions {
		listener, err := NewPubSubListener(pc, values.Name, nil)
		if err != nil {
			return nil, err
		}
		subscriptions[key] = listener
	}

	agentModels := make(map[string]*QuotaAwareGenerativeAIModel, len(config.AgentModels))
	for key, values := range config.AgentModels {
		agentModels[key] = NewQuotaAwareModel(NewGenerateContentConfig(values), values.Model, gc.Models, values.RateLimit)
		slog.InfoContext(ctx, "configured agent model", "key", key, "model", values.Model, "rate_limit", values.RateLimit)
	}

	return &ServiceClients{
		StorageClient:   sc,
		PubsubClient:    pc,
		GenAIClient:     gc,
		BigQueryClient:  bc,
		PubSubListeners: subscriptions,
		AgentModels:     agentModels,
		SignalSource:    &GCSSignalSource{Client: sc, DefaultBucket: config.Storage.SignalBucket},
	}, nil
}

// NewGenerateContentConfig converts a model configuration into the base
// request config. Temperature and output size are overridden per attempt.
func NewGenerateContentConfig(values VertexAiLLMModel) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(values.Temperature),
		MaxOutputTokens:  values.MaxTokens,
		SafetySettings:   DefaultSafetySettings,
		ResponseMIMEType: values.OutputFormat,
	}
	if values.TopP > 0 {
		config.TopP = genai.Ptr(values.TopP)
	}
	if values.TopK > 0 {
		config.TopK = genai.Ptr(values.TopK)
	}
	if values.SystemInstructions != "" {
		config.SystemInstruction = genai.NewContentFromText(values.SystemInstructions, genai.RoleUser)
	}
	return config
}
