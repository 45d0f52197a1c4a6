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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/topology/neighborhood"
)

// Assemble-specific flags.
var (
	assembleDepth     int
	assembleThreshold float64
	assembleIssueID   string
	assembleHydrate   string
)

// assembleCmd cuts a seed-driven neighborhood from a snapshot.
var assembleCmd = &cobra.Command{
	Use:   "assemble SEED...",
	Short: "Cut a bounded neighborhood around seed symbols",
	Long: `Assemble the MiniCodebase for a task: the seed symbols plus
everything reachable within the hop budget over edges at or above the
strength threshold, annotated with importance and cycle membership.

Examples:
  topo assemble "handlers/agent.go::HandleAgent" --graph graph.json
  topo assemble seedA seedB --graph graph.json --depth 3 --threshold 0.5
  topo assemble seedA --graph graph.json --hydrate-root . --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAssemble,
}

func init() {
	assembleCmd.Flags().IntVar(&assembleDepth, "depth", 2,
		"Hop budget for the BFS (0 returns exactly the seeds)")
	assembleCmd.Flags().Float64Var(&assembleThreshold, "threshold", 0.0,
		"Minimum edge strength to traverse, in [0, 1]")
	assembleCmd.Flags().StringVar(&assembleIssueID, "issue-id", "",
		"Task identifier stamped into the result (generated if empty)")
	assembleCmd.Flags().StringVar(&assembleHydrate, "hydrate-root", "",
		"Project root for source-text hydration (skipped if empty)")
}

func runAssemble(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	g, err := loadGraph(ctx, flagGraphPath)
	if err != nil {
		return err
	}
	cfg, err := loadLayers(flagLayersPath)
	if err != nil {
		return err
	}

	asm := neighborhood.NewAssembler(
		neighborhood.WithLayerConfig(cfg),
		neighborhood.WithLogger(logger),
	)
	mc, err := asm.Assemble(ctx, g, args, assembleDepth, assembleThreshold,
		neighborhood.WithIssueID(assembleIssueID))
	if err != nil {
		return err
	}

	if assembleHydrate != "" {
		h := &neighborhood.FileHydrator{Root: assembleHydrate}
		if err := mc.Hydrate(h); err != nil {
			logger.Warn("partial hydration", "error", err)
		}
	}

	if flagJSONOutput {
		return printJSON(mc)
	}
	printMiniCodebase(mc)
	return nil
}

// printMiniCodebase renders a human-readable assembly summary.
func printMiniCodebase(mc *neighborhood.MiniCodebase) {
	fmt.Printf("Issue:          %s\n", mc.Metadata.IssueID)
	fmt.Printf("Seeds:          %d\n", len(mc.SeedSymbols))
	fmt.Printf("Members:        %d of %d symbols (depth %d, threshold %.2f)\n",
		len(mc.Symbols), mc.Metadata.TotalSymbolsInGraph,
		mc.Metadata.Depth, mc.Metadata.StrengthThreshold)
	fmt.Printf("Files:          %d\n", len(mc.Files))
	fmt.Printf("Cycle count:    %d (betti_1)\n", mc.Invariants.Betti1)
	fmt.Printf("Solid score:    %.1f / 100\n", mc.Metadata.SolidScore)

	fmt.Println("\nSymbols by importance:")
	for _, s := range mc.Symbols {
		marker := " "
		if s.InCycle {
			marker = "*"
		}
		fmt.Printf("  %s %-40s %.3f  %s\n", marker, s.ID, s.Importance, s.FilePath)
	}
	if len(mc.Invariants.Notes) > 0 {
		fmt.Println("\nNotes:")
		for _, note := range mc.Invariants.Notes {
			fmt.Printf("  - %s\n", note)
		}
	}
}
