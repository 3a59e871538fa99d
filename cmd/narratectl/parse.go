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
	"github.com/spf13/cobra"

	"github.com/jaycherian/gcp-go-media-narrative/internal/core/repair"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/validate"
)

var (
	rawPath string
	strict  bool
)

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Run the repair ladder over a raw model response",
	Long: `Run the repair ladder over a raw model response and print the outcome,
including the strategy that succeeded and the repair notes.

Examples:
  narratectl parse --raw response.txt`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readInput(rawPath)
		if err != nil {
			return err
		}
		config, err := loadConfig()
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), repair.NewLadder(config.Pipeline.Ladder).Parse(string(raw)))
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Parse and validate a raw model response",
	Long: `Parse a raw model response and validate the result. By default missing or
mistyped fields are filled with defaults and reported as warnings; with
--strict every defect is an error.

Examples:
  narratectl validate --raw response.txt
  narratectl validate --raw response.txt --strict`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readInput(rawPath)
		if err != nil {
			return err
		}
		config, err := loadConfig()
		if err != nil {
			return err
		}
		outcome := repair.NewLadder(config.Pipeline.Ladder).Parse(string(raw))
		validator := validate.NewValidator(validate.DefaultRules())
		check := validator.Validate
		if strict {
			check = validator.ValidateStrict
		}
		payload, err := check(outcome.Data)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{"strategy": outcome.StrategyUsed, "payload": payload})
	},
}

func init() {
	for _, c := range []*cobra.Command{parseCmd, validateCmd} {
		c.Flags().StringVar(&rawPath, "raw", "", "Raw model response, or - for stdin")
		_ = c.MarkFlagRequired("raw")
		rootCmd.AddCommand(c)
	}
	validateCmd.Flags().BoolVar(&strict, "strict", false, "Fail on any defect instead of filling defaults")
}
