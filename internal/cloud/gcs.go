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

// Package cloud contains data structures and utilities for interacting with
// Google Cloud services. This file covers Cloud Storage: the Pub/Sub
// notification payload, and a model.SignalSource that reads signal documents
// (JSON-encoded content signals) from a bucket.
package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/h2non/filetype"

	"github.com/jaycherian/gcp-go-media-narrative/internal/core/model"
)

// ErrNotSignalDocument is returned when an object is media or another binary
// format rather than a JSON signal document.
var ErrNotSignalDocument = errors.New("object is not a signal document")

// MaxSignalDocumentBytes bounds how much of an object is read.
const MaxSignalDocumentBytes = 32 << 20

// GetGCSObjectName is the context key for the GCSObject being processed.
func GetGCSObjectName() string {
	return "__GCS__OBJ__"
}

// GCSPubSubNotification is the payload of a Cloud Storage Pub/Sub
// notification. Only the fields the ingestion workflow reads are mapped.
type GCSPubSubNotification struct {
	Kind        string         `json:"kind"`
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Bucket      string         `json:"bucket"`
	Generation  string         `json:"generation"`
	ContentType string         `json:"contentType"`
	Size        string         `json:"size"`
	MetaData    map[string]any `json:"metadata"`
}

// GCSObject is the lightweight form of a notification passed between commands.
type GCSObject struct {
	Bucket   string
	Name     string
	MIMEType string
}

// SourceID is the id under which signals and narratives for this object are
// stored: "gs://bucket/name".
func (o GCSObject) SourceID() string {
	return "gs://" + o.Bucket + "/" + o.Name
}

// ParseSourceID splits "gs://bucket/name" or a bare object name (resolved
// against defaultBucket).
func ParseSourceID(sourceID, defaultBucket string) (GCSObject, error) {
	if rest, ok := strings.CutPrefix(sourceID, "gs://"); ok {
		bucket, name, found := strings.Cut(rest, "/")
		if !found || bucket == "" || name == "" {
			return GCSObject{}, fmt.Errorf("malformed source id %q", sourceID)
		}
		return GCSObject{Bucket: bucket, Name: name}, nil
	}
	if defaultBucket == "" || sourceID == "" {
		return GCSObject{}, fmt.Errorf("source id %q has no bucket", sourceID)
	}
	return GCSObject{Bucket: defaultBucket, Name: strings.TrimPrefix(sourceID, "/")}, nil
}

// GCSSignalSource implements model.SignalSource over a bucket.
type GCSSignalSource struct {
	Client        *storage.Client
	DefaultBucket string
}

// FetchContentSignal reads and decodes the signal document for sourceID.
func (g *GCSSignalSource) FetchContentSignal(ctx context.Context, sourceID string) (model.ContentSignal, error) {
	obj, err := ParseSourceID(sourceID, g.DefaultBucket)
	if err != nil {
		return model.ContentSignal{}, err
	}
	reader, err := g.Client.Bucket(obj.Bucket).Object(obj.Name).NewReader(ctx)
	if err != nil {
		return model.ContentSignal{}, fmt.Errorf("failed to open %s: %w", obj.SourceID(), err)
	}
	defer reader.Close()

	data, err := io.ReadAll(io.LimitReader(reader, MaxSignalDocumentBytes))
	if err != nil {
		return model.ContentSignal{}, fmt.Errorf("failed to read %s: %w", obj.SourceID(), err)
	}
	return DecodeSignalDocument(obj.SourceID(), data)
}

// DecodeSignalDocument sniffs data, rejects media and other binary formats
// with ErrNotSignalDocument, and decodes the JSON signal. Counts missing from
// the document are derived from its material.
func DecodeSignalDocument(sourceID string, data []byte) (model.ContentSignal, error) {
	if filetype.IsVideo(data) || filetype.IsAudio(data) || filetype.IsImage(data) {
		kind, _ := filetype.Match(data)
		return model.ContentSignal{}, fmt.Errorf("%w: %s is %s", ErrNotSignalDocument, sourceID, kind.MIME.Value)
	}
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		return model.ContentSignal{}, fmt.Errorf("%w: %s is %s", ErrNotSignalDocument, sourceID, kind.MIME.Value)
	}

	var signal model.ContentSignal
	if err := json.Unmarshal(data, &signal); err != nil {
		return model.ContentSignal{}, fmt.Errorf("%w: %s: %v", ErrNotSignalDocument, sourceID, err)
	}
	if signal.SourceID == "" {
		signal.SourceID = sourceID
	}
	if signal.Title == "" {
		signal.Title = strings.TrimSuffix(path.Base(sourceID), path.Ext(sourceID))
	}
	return signal.Normalized(), nil
}
