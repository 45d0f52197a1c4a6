// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command topo inspects symbol-graph snapshots: invariant analysis,
// neighborhood assembly, and virtual-apply validation of proposed edits.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/topology/pkg/logging"
)

// Shared flags inherited by every subcommand.
var (
	flagGraphPath  string
	flagLayersPath string
	flagJSONOutput bool
	flagVerbose    bool
)

// logger is initialized in the root PersistentPreRunE.
var logger *logging.Logger

// rootCmd is the topo entry point.
var rootCmd = &cobra.Command{
	Use:   "topo",
	Short: "Inspect symbol-graph topology",
	Long: `Analyze dependency-graph snapshots produced by a source extractor.

A snapshot is a JSON document {"symbols": [...], "edges": [...]}; layer
rules come from an optional YAML configuration.

Subcommands:
  analyze   - Compute betti numbers, cycles, coupling, and the solid score
  assemble  - Cut a seed-driven neighborhood for an agent task
  validate  - Virtually apply proposed edits and red-flag unsafe ones`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logging.LevelWarn
		if flagVerbose {
			level = logging.LevelDebug
		}
		logger = logging.New(logging.Config{
			Level:   level,
			Service: "topo",
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Close()
		}
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "topo: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagGraphPath, "graph", "",
		"Path to the graph snapshot JSON (required)")
	rootCmd.PersistentFlags().StringVar(&flagLayersPath, "layers", "",
		"Path to the layer configuration YAML (optional)")
	rootCmd.PersistentFlags().BoolVar(&flagJSONOutput, "json", false,
		"Output as JSON for scripting")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false,
		"Enable debug logging")
	_ = rootCmd.MarkPersistentFlagRequired("graph")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(assembleCmd)
	rootCmd.AddCommand(validateCmd)
}
