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

// narratectl runs the offline stages of the narrative pipeline from the
// command line: scoring, budget planning, parsing and validation. Nothing it
// does calls a model or a cloud service.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jaycherian/gcp-go-media-narrative/internal/cloud"
	"github.com/jaycherian/gcp-go-media-narrative/internal/telemetry"
)

var (
	configDir   string
	runtimeName string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "narratectl",
	Short: "Inspect the adaptive narrative pipeline offline",
	Long: `narratectl runs the deterministic stages of the narrative pipeline on local
files: complexity scoring, budget planning, response repair and validation.

Tuning is read from the same TOML files the server uses.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(telemetry.NewHandler(os.Stderr, level)))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Directory holding .env.toml (default: $GCP_CONFIG_PREFIX, else built-in tuning)")
	rootCmd.PersistentFlags().StringVar(&runtimeName, "runtime", "", "Runtime override file to layer on top (default: $GCP_RUNTIME)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
}

// loadConfig returns the built-in tuning layered with any configured files.
func loadConfig() (*cloud.Config, error) {
	if configDir != "" {
		if err := os.Setenv(cloud.EnvConfigFilePrefix, configDir); err != nil {
			return nil, err
		}
	}
	if runtimeName != "" {
		if err := os.Setenv(cloud.EnvConfigRuntime, runtimeName); err != nil {
			return nil, err
		}
	}
	config := cloud.NewConfig()
	if os.Getenv(cloud.EnvConfigFilePrefix) == "" {
		return config, nil
	}
	if err := cloud.LoadConfig(config); err != nil {
		return nil, err
	}
	if err := config.Pipeline.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline configuration: %w", err)
	}
	return config, nil
}

// readInput reads a file, or stdin when path is "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
