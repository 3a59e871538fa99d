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
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jaycherian/gcp-go-media-narrative/internal/core/budget"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/complexity"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/language"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/model"
)

var (
	signalPath string
	planLang   string
	structured bool
	detectLang bool
)

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Score the complexity of a content signal",
	Long: `Score a content signal document and print the assessment.

Examples:
  narratectl assess --signal serenity.json
  cat serenity.json | narratectl assess --signal -`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		signal, err := loadSignal(signalPath)
		if err != nil {
			return err
		}
		config, err := loadConfig()
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), complexity.NewScorer(config.Pipeline.Scorer).Assess(signal))
	},
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Plan the first generation budget for a content signal",
	Long: `Score a content signal and plan the budget of its first attempt.

Examples:
  narratectl plan --signal serenity.json
  narratectl plan --signal serenity.json --lang ja --structured
  narratectl plan --signal serenity.json --detect-language`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		signal, err := loadSignal(signalPath)
		if err != nil {
			return err
		}
		config, err := loadConfig()
		if err != nil {
			return err
		}

		lang := planLang
		if lang == "" {
			lang = signal.Language
		}
		if lang == "" && detectLang {
			lang = language.NewDetector().Detect(signal.Transcript, signal.Description, signal.Title)
		}
		mode := model.FreeText
		if structured {
			mode = model.Structured
		}

		assessment := complexity.NewScorer(config.Pipeline.Scorer).Assess(signal)
		planned := budget.NewPlanner(config.Pipeline.Planner).Plan(assessment, budget.WithLanguage(lang), budget.WithOutputMode(mode))
		return printJSON(cmd.OutOrStdout(), map[string]any{"assessment": assessment, "budget": planned})
	},
}

func init() {
	for _, c := range []*cobra.Command{assessCmd, planCmd} {
		c.Flags().StringVar(&signalPath, "signal", "", "Signal document (JSON), or - for stdin")
		_ = c.MarkFlagRequired("signal")
		rootCmd.AddCommand(c)
	}
	planCmd.Flags().StringVar(&planLang, "lang", "", "Target language (ISO 639-1); overrides the signal's hint")
	planCmd.Flags().BoolVar(&structured, "structured", false, "Plan for structured (JSON) output")
	planCmd.Flags().BoolVar(&detectLang, "detect-language", false, "Detect the language from the signal text when none is given")
}

func loadSignal(path string) (model.ContentSignal, error) {
	data, err := readInput(path)
	if err != nil {
		return model.ContentSignal{}, err
	}
	var signal model.ContentSignal
	if err := json.Unmarshal(data, &signal); err != nil {
		return model.ContentSignal{}, fmt.Errorf("failed to decode signal %s: %w", path, err)
	}
	return signal.Normalized(), nil
}
