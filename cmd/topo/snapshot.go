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
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/AleutianAI/topology/graph"
	"github.com/AleutianAI/topology/layer"
)

// snapshot is the on-disk graph document produced by a source extractor.
type snapshot struct {
	Symbols []graph.Symbol `json:"symbols"`
	Edges   []graph.Edge   `json:"edges"`
}

// loadGraph reads a snapshot and builds a frozen graph from it.
//
// Per-item build failures are logged and tolerated; the command operates
// on whatever subset inserted cleanly.
func loadGraph(ctx context.Context, path string) (*graph.SymbolGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse graph snapshot %s: %w", path, err)
	}

	builder := graph.NewBuilder(graph.WithLogger(logger))
	result := builder.Build(ctx, snap.Symbols, snap.Edges)
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if result.HasErrors() {
		logger.Warn("graph snapshot built with failures",
			"symbol_errors", len(result.SymbolErrors),
			"edge_errors", len(result.EdgeErrors))
		for _, se := range result.SymbolErrors {
			logger.Debug("symbol rejected", "symbol_id", se.SymbolID, "error", se.Err)
		}
		for _, ee := range result.EdgeErrors {
			logger.Debug("edge rejected",
				"source", ee.SourceID, "target", ee.TargetID, "error", ee.Err)
		}
	}
	return result.Graph, nil
}

// loadLayers reads the optional layer configuration.
func loadLayers(path string) (*layer.Config, error) {
	if path == "" {
		return nil, nil
	}
	return layer.LoadFile(path)
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
