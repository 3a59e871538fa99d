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

// Package test provides shared fixtures for the package tests: a cached test
// configuration, sample signals and notifications, canned model answers and
// in-memory fakes of the external dependencies.
package test

import (
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/jaycherian/gcp-go-media-narrative/internal/cloud"
)

type StateManager struct {
	config *cloud.Config
}

var state = &StateManager{}

// HandleErr fails the test on a non-nil error.
func HandleErr(err error, t *testing.T) {
	if err != nil {
		t.Errorf("Error reading config file: %v", err)
	}
}

// configDir finds the repository's configs directory by walking up from the
// working directory, which for `go test` is the package directory.
func configDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "configs"
	}
	for {
		candidate := filepath.Join(dir, "configs")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "configs"
		}
		dir = parent
	}
}

// SetupOS points the configuration loader at the repository's configs with
// the test runtime overrides.
func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, configDir())
	if err != nil {
		return err
	}
	// Overrides come from .env.test.toml.
	err = os.Setenv(cloud.EnvConfigRuntime, "test")
	return err
}

// GetConfig loads the test configuration once and caches it.
func GetConfig() *cloud.Config {
	if state.config == nil {
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		config := cloud.NewConfig()
		if err := cloud.LoadConfig(config); err != nil {
			log.Fatalf("failed to load test configuration: %v\n", err)
		}
		state.config = config
	}
	return state.config
}

// GetTestSignalMessageText is a Cloud Storage notification for a signal
// document.
func GetTestSignalMessageText() string {
	return `{
  "kind": "storage#object",
  "id": "narrative_signals/test-trailer-001.json/1728615848664286",
  "selfLink": "https://www.googleapis.com/storage/v1/b/narrative_signals/o/test-trailer-001.json",
  "name": "test-trailer-001.json",
  "bucket": "narrative_signals",
  "generation": "1728615848664286",
  "metageneration": "1",
  "contentType": "application/json",
  "timeCreated": "2024-10-11T03:04:08.672Z",
  "updated": "2024-10-11T03:04:08.672Z",
  "storageClass": "STANDARD",
  "size": "18734",
  "md5Hash": "67c1rAU+1RYZzK5zp8iBkA==",
  "metadata": { "touch": "18" },
  "crc32c": "IYeSTw==",
  "etag": "CN658+yrhYkDEAE="
}`
}

// GetTestMediaMessageText is a notification for a video uploaded to the
// signal bucket by mistake.
func GetTestMediaMessageText() string {
	return `{
  "kind": "storage#object",
  "name": "test-trailer-001.mp4",
  "bucket": "narrative_signals",
  "contentType": "video/mp4",
  "size": "259348037"
}`
}
