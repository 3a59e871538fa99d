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
// This file wraps the Gemini models API as a model.Generator with client-side
// rate limiting and transport retries.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-media-narrative/internal/core/model"
)

// ContentGenerator is the subset of *genai.Models the wrapper needs.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// QuotaAwareGenerativeAIModel decorates a Gemini model with a token bucket
// limiter and bounded retries for transport failures. Budget exhaustion is
// not retried here; it is reported through the finish reason.
type QuotaAwareGenerativeAIModel struct {
	GenerativeContentConfig *genai.GenerateContentConfig
	ModelName               string
	ModelHandle             ContentGenerator
	RateLimit               *rate.Limiter
	RetryBackoff            time.Duration

	inputTokens  metric.Int64Counter
	outputTokens metric.Int64Counter
	retries      metric.Int64Counter
}

// NewQuotaAwareModel wraps handle. requestsPerSecond is both the refill rate
// and the burst.
func NewQuotaAwareModel(config *genai.GenerateContentConfig, name string, handle ContentGenerator, requestsPerSecond int) *QuotaAwareGenerativeAIModel {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	meter := otel.Meter("github.com/jaycherian/gcp-go-media-narrative/cloud")
	q := &QuotaAwareGenerativeAIModel{
		GenerativeContentConfig: config,
		ModelName:               name,
		ModelHandle:             handle,
		RateLimit:               rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		RetryBackoff:            2 * time.Second,
	}
	q.inputTokens, _ = meter.Int64Counter("gemini.token.input")
	q.outputTokens, _ = meter.Int64Counter("gemini.token.output")
	q.retries, _ = meter.Int64Counter("gemini.retry")
	return q
}

// Generate implements model.Generator. The budget sets the temperature, the
// output token ceiling and, in structured mode, the JSON response type.
func (q *QuotaAwareGenerativeAIModel) Generate(ctx context.Context, prompt string, budget model.GenerationBudget) (model.GenerationResult, error) {
	config := q.configFor(budget)
	attrs := metric.WithAttributes(attribute.String("model", q.ModelName))

	var lastErr error
	for try := 0; try <= MaxRetries; try++ {
		if err := q.RateLimit.Wait(ctx); err != nil {
			return model.GenerationResult{}, fmt.Errorf("rate limiter wait: %w", err)
		}
		resp, err := q.ModelHandle.GenerateContent(ctx, q.ModelName, genai.Text(prompt), config)
		if err == nil {
			in, out := usage(resp)
			q.add(ctx, q.inputTokens, in, attrs)
			q.add(ctx, q.outputTokens, out, attrs)
			return model.GenerationResult{
				Text:         responseText(resp),
				FinishReason: finishReason(resp),
				InputTokens:  in,
				OutputTokens: out,
			}, nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || try == MaxRetries {
			break
		}
		q.add(ctx, q.retries, 1, attrs)
		slog.WarnContext(ctx, "gemini request failed, retrying", "model", q.ModelName, "try", try+1, "error", err)
		select {
		case <-ctx.Done():
			return model.GenerationResult{}, fmt.Errorf("gemini request abandoned: %w", errors.Join(lastErr, ctx.Err()))
		case <-time.After(q.RetryBackoff * time.Duration(try+1)):
		}
	}
	return model.GenerationResult{FinishReason: model.FinishError}, fmt.Errorf("gemini request failed: %w", lastErr)
}

func (q *QuotaAwareGenerativeAIModel) configFor(budget model.GenerationBudget) *genai.GenerateContentConfig {
	var config genai.GenerateContentConfig
	if q.GenerativeContentConfig != nil {
		config = *q.GenerativeContentConfig
	}
	config.Temperature = genai.Ptr(float32(budget.Creativity))
	if size := int32(budget.MaxOutputSize); size > 0 && (config.MaxOutputTokens == 0 || size < config.MaxOutputTokens) {
		config.MaxOutputTokens = size
	}
	if budget.OutputMode == model.Structured {
		config.ResponseMIMEType = "application/json"
	} else {
		config.ResponseMIMEType = "text/plain"
	}
	return &config
}

func (q *QuotaAwareGenerativeAIModel) add(ctx context.Context, counter metric.Int64Counter, n int, opts metric.AddOption) {
	if counter != nil && n > 0 {
		counter.Add(ctx, int64(n), opts)
	}
}
