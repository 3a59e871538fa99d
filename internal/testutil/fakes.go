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

package test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jaycherian/gcp-go-media-narrative/internal/cloud"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/model"
)

// Reply is one scripted answer of a ScriptedGenerator.
type Reply struct {
	Result model.GenerationResult
	Err    error
}

// Answer is a reply that finished normally.
func Answer(text string) Reply {
	return Reply{Result: model.GenerationResult{Text: text, FinishReason: model.FinishStop}}
}

// CutOff is a reply that hit the output size limit.
func CutOff(text string) Reply {
	return Reply{Result: model.GenerationResult{Text: text, FinishReason: model.FinishSizeLimit}}
}

// Failure is a transport error.
func Failure(err error) Reply {
	return Reply{Result: model.GenerationResult{FinishReason: model.FinishError}, Err: err}
}

// ScriptedGenerator is a model.Generator that plays back replies in order and
// records every call. The last reply repeats once the script is exhausted.
type ScriptedGenerator struct {
	mu      sync.Mutex
	replies []Reply
	Prompts []string
	Budgets []model.GenerationBudget
}

// NewScriptedGenerator answers each call with the next reply. The last reply
// repeats once the script runs out.
func NewScriptedGenerator(replies ...Reply) *ScriptedGenerator {
	return &ScriptedGenerator{replies: replies}
}

// Generate records the call and returns the next scripted reply.
func (g *ScriptedGenerator) Generate(ctx context.Context, prompt string, budget model.GenerationBudget) (model.GenerationResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return model.GenerationResult{FinishReason: model.FinishError}, err
	}
	i := len(g.Budgets)
	g.Prompts = append(g.Prompts, prompt)
	g.Budgets = append(g.Budgets, budget)
	if len(g.replies) == 0 {
		return model.GenerationResult{FinishReason: model.FinishError}, errors.New("no scripted reply")
	}
	r := g.replies[min(i, len(g.replies)-1)]
	return r.Result, r.Err
}

// Calls is the number of Generate calls so far.
func (g *ScriptedGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Budgets)
}

// MemorySignalSource serves signal documents from a map keyed by source id.
type MemorySignalSource map[string]string

// FetchContentSignal decodes the document stored under sourceID.
func (m MemorySignalSource) FetchContentSignal(_ context.Context, sourceID string) (model.ContentSignal, error) {
	doc, ok := m[sourceID]
	if !ok {
		return model.ContentSignal{}, fmt.Errorf("no object %s", sourceID)
	}
	return cloud.DecodeSignalDocument(sourceID, []byte(doc))
}

// RecordingInserter keeps every row put to it. Err, when set, is returned
// instead.
type RecordingInserter struct {
	mu   sync.Mutex
	Rows []any
	Err  error
}

// Put records src instead of inserting it.
func (r *RecordingInserter) Put(_ context.Context, src any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Rows = append(r.Rows, src)
	return nil
}
