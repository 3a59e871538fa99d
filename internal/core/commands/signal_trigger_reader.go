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
// command that turns a Cloud Storage Pub/Sub notification into a GCSObject.
package commands

import (
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jaycherian/gcp-go-media-narrative/internal/cloud"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/cor"
)

// SignalTriggerToGCSObject parses the raw notification text found under its
// input param.
type SignalTriggerToGCSObject struct {
	cor.BaseCommand
}

// NewSignalTriggerToGCSObject creates the command that decodes a storage
// notification into a GCSObject.
func NewSignalTriggerToGCSObject(name string) *SignalTriggerToGCSObject {
	return &SignalTriggerToGCSObject{BaseCommand: *cor.NewBaseCommand(name)}
}

// Execute decodes the Pub/Sub message body. A notification without a bucket
// or object name fails the command.
func (c *SignalTriggerToGCSObject) Execute(context cor.Context) {
	in, ok := cor.Value[string](context, c.GetInputParam())
	if !ok {
		c.Fail(context, fmt.Errorf("input %q is not a notification string", c.GetInputParam()))
		return
	}

	var notification cloud.GCSPubSubNotification
	if err := json.Unmarshal([]byte(in), &notification); err != nil {
		c.Fail(context, fmt.Errorf("failed to unmarshal GCS notification: %w", err))
		return
	}
	if notification.Bucket == "" || notification.Name == "" {
		c.Fail(context, fmt.Errorf("GCS notification %q has no bucket or object name", notification.ID))
		return
	}

	msg := &cloud.GCSObject{Bucket: notification.Bucket, Name: notification.Name, MIMEType: notification.ContentType}
	context.Add(cloud.GetGCSObjectName(), msg)
	c.Succeed(context, msg, attribute.String("bucket", msg.Bucket))
	context.Add(cor.CtxOut, msg)
}
