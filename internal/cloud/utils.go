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
// This file holds the hierarchical configuration loader and the helpers that
// turn a Gemini response into the pipeline's GenerationResult.
package cloud

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-media-narrative/internal/core/model"
)

const (
	ConfigFileBaseName  = ".env"
	ConfigFileExtension = ".toml"
	ConfigSeparator     = "."
	EnvConfigFilePrefix = "GCP_CONFIG_PREFIX" // Directory holding the config files.
	EnvConfigRuntime    = "GCP_RUNTIME"       // Runtime name, e.g. "local", "test", "prod".
	MaxRetries          = 3                   // Transport-level retries per Generate call.
)

func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// LoadConfig decodes <prefix>/.env.toml and then <prefix>/.env.<runtime>.toml
// into baseConfig, so values in the runtime file override the base file.
// Missing files are skipped; the runtime defaults to "test".
func LoadConfig(baseConfig any) error {
	prefix := os.Getenv(EnvConfigFilePrefix)
	if len(prefix) > 0 && !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix = prefix + string(os.PathSeparator)
	}
	runtime := os.Getenv(EnvConfigRuntime)
	if runtime == "" {
		runtime = "test"
	}

	files := []string{
		prefix + ConfigFileBaseName + ConfigFileExtension,
		prefix + ConfigFileBaseName + ConfigSeparator + runtime + ConfigFileExtension,
	}
	for _, file := range files {
		if !fileExists(file) {
			slog.Debug("configuration file not found, skipping", "file", file)
			continue
		}
		if _, err := toml.DecodeFile(file, baseConfig); err != nil {
			return fmt.Errorf("failed to decode configuration file %s: %w", file, err)
		}
		slog.Info("loaded configuration file", "file", file)
	}
	return nil
}

// responseText concatenates the non-thought text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}

// finishReason normalizes the Gemini finish reason. Every stop other than a
// natural one or the token limit counts as an error; the text is still kept.
func finishReason(resp *genai.GenerateContentResponse) model.FinishReason {
	if resp == nil || len(resp.Candidates) == 0 {
		return model.FinishError
	}
	switch resp.Candidates[0].FinishReason {
	case genai.FinishReasonStop, genai.FinishReasonUnspecified, "":
		return model.FinishStop
	case genai.FinishReasonMaxTokens:
		return model.FinishSizeLimit
	}
	return model.FinishError
}

// usage returns prompt and candidate token counts.
func usage(resp *genai.GenerateContentResponse) (int, int) {
	if resp == nil || resp.UsageMetadata == nil {
		return 0, 0
	}
	return int(resp.UsageMetadata.PromptTokenCount), int(resp.UsageMetadata.CandidatesTokenCount)
}
