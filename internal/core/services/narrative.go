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

// Package services holds the read side of the application. This file defines
// the service that reads persisted narratives back from BigQuery.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/jaycherian/gcp-go-media-narrative/internal/core/model"
)

// ErrNotFound is returned when no row matches.
var ErrNotFound = errors.New("narrative not found")

// NarrativeService queries the narrative table.
type NarrativeService struct {
	BigqueryClient *bigquery.Client
	DatasetName    string
	NarrativeTable string
}

// GetFQN returns the table name in the dotted form Standard SQL expects.
func (s *NarrativeService) GetFQN() string {
	fqn := s.BigqueryClient.Dataset(s.DatasetName).Table(s.NarrativeTable).FullyQualifiedName()
	return strings.Replace(fqn, ":", ".", -1)
}

// Get returns the most recent narrative with the given id.
func (s *NarrativeService) Get(ctx context.Context, id string) (*model.NarrativeRecord, error) {
	q := s.BigqueryClient.Query(fmt.Sprintf(QryFindNarrativeById, s.GetFQN()))
	q.Parameters = []bigquery.QueryParameter{{Name: "id", Value: id}}
	out := &model.NarrativeRecord{}
	if err := readOne(ctx, q, out); err != nil {
		return nil, fmt.Errorf("narrative %s: %w", id, err)
	}
	return out, nil
}

// GetBySource returns the narrative generated for a source id.
func (s *NarrativeService) GetBySource(ctx context.Context, sourceID string) (*model.NarrativeRecord, error) {
	return s.Get(ctx, model.NarrativeID(sourceID))
}

// GetScene returns one scene of a narrative.
func (s *NarrativeService) GetScene(ctx context.Context, id string, sequence int) (*model.NarrativeScene, error) {
	q := s.BigqueryClient.Query(fmt.Sprintf(QryGetNarrativeScene, s.GetFQN()))
	q.Parameters = []bigquery.QueryParameter{{Name: "id", Value: id}, {Name: "sequence", Value: sequence}}
	out := &model.NarrativeScene{}
	if err := readOne(ctx, q, out); err != nil {
		return nil, fmt.Errorf("narrative %s scene %d: %w", id, sequence, err)
	}
	return out, nil
}

// List returns up to limit narratives, newest first.
func (s *NarrativeService) List(ctx context.Context, limit int) ([]*model.NarrativeRecord, error) {
	q := s.BigqueryClient.Query(fmt.Sprintf(QryListNarratives, s.GetFQN()))
	q.Parameters = []bigquery.QueryParameter{{Name: "limit", Value: limit}}
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read from BigQuery: %w", err)
	}
	out := make([]*model.NarrativeRecord, 0, limit)
	for {
		r := &model.NarrativeRecord{}
		err := itr.Next(r)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return out, fmt.Errorf("failed to iterate results: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

func readOne(ctx context.Context, q *bigquery.Query, dst any) error {
	itr, err := q.Read(ctx)
	if err != nil {
		return fmt.Errorf("failed to read from BigQuery: %w", err)
	}
	err = itr.Next(dst)
	if errors.Is(err, iterator.Done) {
		return ErrNotFound
	}
	return err
}
