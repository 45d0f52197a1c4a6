// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/topology/validate"
)

// Validate-specific flags.
var (
	validateEditsPath  string
	validatePrevBetti1 int
)

// validateCmd virtually applies proposed edits against a snapshot.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Virtually apply proposed edits and red-flag unsafe ones",
	Long: `Apply an edit batch against a copy-on-write overlay of the graph and
report whether it introduces cycles or new layer violations.

The edits file holds a JSON array of edits:
  [{"file_path": "...", "operation": "modify",
    "new_symbols": [...], "new_edges": [...], "removed_symbol_ids": [...]}]

Exit status is 0 for a safe edit and 2 for a red-flagged one, so the
command slots directly into scripted gates.

Examples:
  topo validate --graph graph.json --edits edits.json
  topo validate --graph graph.json --edits edits.json --layers layers.yaml
  topo validate --graph graph.json --edits edits.json --previous-betti-1 3`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateEditsPath, "edits", "",
		"Path to the edit batch JSON (required)")
	validateCmd.Flags().IntVar(&validatePrevBetti1, "previous-betti-1", -1,
		"Cycle-count baseline from an earlier round (-1 uses the base graph)")
	_ = validateCmd.MarkFlagRequired("edits")
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	g, err := loadGraph(ctx, flagGraphPath)
	if err != nil {
		return err
	}
	cfg, err := loadLayers(flagLayersPath)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(validateEditsPath)
	if err != nil {
		return fmt.Errorf("read edits: %w", err)
	}
	var edits []validate.Edit
	if err := json.Unmarshal(data, &edits); err != nil {
		return fmt.Errorf("parse edits %s: %w", validateEditsPath, err)
	}

	v := validate.NewValidator(g, cfg, validate.WithLogger(logger))
	var opts []validate.ValidateOption
	if validatePrevBetti1 >= 0 {
		opts = append(opts, validate.WithPreviousBetti1(validatePrevBetti1))
	}
	result := v.Validate(ctx, edits, opts...)

	if flagJSONOutput {
		if err := printJSON(result); err != nil {
			return err
		}
	} else {
		printResult(result)
	}

	if result.RedFlagged() {
		os.Exit(2)
	}
	return nil
}

// printResult renders a human-readable verdict.
func printResult(result *validate.ValidationResult) {
	verdict := "SAFE"
	if result.RedFlagged() {
		verdict = "RED FLAG"
	}
	fmt.Printf("Verdict:        %s (%s)\n", verdict, result.State)
	fmt.Printf("Cycle count:    %d -> %d (betti_1)\n",
		result.OriginalBetti1, result.NewBetti1)
	fmt.Printf("New cycles:     %v\n", result.IntroducesCycles)
	fmt.Printf("New symbols:    %d\n", len(result.NewSymbols))
	fmt.Printf("New edges:      %d\n", len(result.NewDependencies))

	if len(result.CyclesDetected) > 0 {
		fmt.Printf("\nCycles after edit (%d):\n", len(result.CyclesDetected))
		for _, cycle := range result.CyclesDetected {
			fmt.Printf("  - %s\n", strings.Join(cycle, " -> "))
		}
	}
	if len(result.LayerViolations) > 0 {
		fmt.Printf("\nNew layer violations (%d):\n", len(result.LayerViolations))
		for _, v := range result.LayerViolations {
			fmt.Printf("  - [%s] %s (%s) -> %s (%s)\n",
				v.Kind, v.FromID, v.FromLayer, v.ToID, v.ToLayer)
		}
	}
	for _, issue := range result.CrossFileIssues {
		fmt.Printf("note: %s\n", issue)
	}
	for _, w := range result.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	for _, e := range result.Errors {
		fmt.Printf("error: %s\n", e)
	}
}
