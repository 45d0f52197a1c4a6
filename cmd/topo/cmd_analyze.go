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
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/topology/invariant"
)

// analyzeCmd computes the invariant report for a snapshot.
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Compute topological health metrics for a graph snapshot",
	Long: `Compute betti numbers, dependency cycles, triangle count, coupling
density, layer violations, and the composite solid score (0-100).

Examples:
  topo analyze --graph graph.json
  topo analyze --graph graph.json --layers layers.yaml
  topo analyze --graph graph.json --json`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	g, err := loadGraph(ctx, flagGraphPath)
	if err != nil {
		return err
	}
	cfg, err := loadLayers(flagLayersPath)
	if err != nil {
		return err
	}

	report, err := invariant.Analyze(ctx, g, cfg)
	if err != nil {
		return err
	}

	if flagJSONOutput {
		return printJSON(report)
	}
	printReport(report, g.SymbolCount(), g.EdgeCount())
	return nil
}

// printReport renders a human-readable report.
func printReport(report *invariant.Report, symbols, edges int) {
	fmt.Printf("Symbols:        %d\n", symbols)
	fmt.Printf("Edges:          %d\n", edges)
	fmt.Printf("Components:     %d\n", report.Betti0)
	fmt.Printf("Cycle count:    %d (betti_1)\n", report.Betti1)
	if report.TrianglesCapped {
		fmt.Printf("Triangles:      skipped (graph too large)\n")
	} else {
		fmt.Printf("Triangles:      %d\n", report.TriangleCount)
	}
	fmt.Printf("Coupling:       %.4f\n", report.CouplingScore)
	fmt.Printf("Solid score:    %.1f / 100\n", report.SolidScore)

	if len(report.CyclesDetected) > 0 {
		fmt.Printf("\nDependency cycles (%d):\n", len(report.CyclesDetected))
		for _, cycle := range report.CyclesDetected {
			fmt.Printf("  - %s\n", strings.Join(cycle, " -> "))
		}
	}
	if len(report.LayerViolations) > 0 {
		fmt.Printf("\nLayer violations (%d):\n", len(report.LayerViolations))
		for _, v := range report.LayerViolations {
			fmt.Printf("  - [%s] %s (%s) -> %s (%s)\n",
				v.Kind, v.FromID, v.FromLayer, v.ToID, v.ToLayer)
		}
	}
}
