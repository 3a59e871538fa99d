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

package services_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"cloud.google.com/go/bigquery"
	"github.com/zeebo/assert"
	"google.golang.org/api/option"

	"github.com/jaycherian/gcp-go-media-narrative/internal/cloud"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/model"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/services"
	test "github.com/jaycherian/gcp-go-media-narrative/internal/testutil"
)

func TestNarrativeServiceFQN(t *testing.T) {
	ctx := context.Background()
	client, err := bigquery.NewClient(ctx, "narrative-project", option.WithoutAuthentication())
	assert.NoError(t, err)
	defer client.Close()

	svc := &services.NarrativeService{BigqueryClient: client, DatasetName: "narrative_ds", NarrativeTable: "narratives"}
	assert.Equal(t, svc.GetFQN(), "narrative-project.narrative_ds.narratives")
}

// TestNarrativeServiceGet reads back a narrative persisted by an earlier
// ingestion run. It needs credentials and a populated table.
func TestNarrativeServiceGet(t *testing.T) {
	sourceID := os.Getenv("NARRATIVE_TEST_SOURCE_ID")
	if sourceID == "" {
		t.Skip("NARRATIVE_TEST_SOURCE_ID not set")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config := test.GetConfig()
	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	test.HandleErr(err, t)
	defer cloudClients.Close()

	svc := &services.NarrativeService{
		BigqueryClient: cloudClients.BigQueryClient,
		DatasetName:    config.BigQueryDataSource.DatasetName,
		NarrativeTable: config.BigQueryDataSource.NarrativeTable,
	}

	out, err := svc.GetBySource(ctx, sourceID)
	assert.NoError(t, err)
	assert.NotNil(t, out)
	assert.Equal(t, out.Id, model.NarrativeID(sourceID))
	assert.That(t, len(out.Scenes) > 0)

	first := out.Scenes[0]
	scene, err := svc.GetScene(ctx, out.Id, first.SequenceNumber)
	assert.NoError(t, err)
	assert.Equal(t, scene.Description, first.Description)

	_, err = svc.GetScene(ctx, out.Id, -1)
	assert.That(t, errors.Is(err, services.ErrNotFound))

	_, err = svc.Get(ctx, "00000000-0000-0000-0000-000000000000")
	assert.That(t, errors.Is(err, services.ErrNotFound))
}
