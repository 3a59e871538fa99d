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
	"log/slog"

	"github.com/jaycherian/gcp-go-media-narrative/internal/cloud"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/workflow"
)

// SignalTopic is the TopicSubscriptions key of the signal bucket's
// notification subscription.
const SignalTopic = "SignalTopic"

// SetupListeners binds the ingestion workflow to the signal topic and starts
// listening. Without a subscription the server still serves the API.
func SetupListeners(ctx context.Context, config *cloud.Config, cloudClients *cloud.ServiceClients) error {
	listener, ok := cloudClients.PubSubListeners[SignalTopic]
	if !ok {
		slog.WarnContext(ctx, "no subscription configured, ingestion disabled", "topic", SignalTopic)
		return nil
	}

	ingestion, err := workflow.NewNarrativeIngestionWorkflow(config, cloudClients)
	if err != nil {
		return err
	}
	listener.SetCommand(ingestion)
	listener.Listen(ctx)
	return nil
}
