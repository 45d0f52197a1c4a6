// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package neighborhood

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/topology/graph"
	"github.com/AleutianAI/topology/layer"
)

// ============================================================================
// Test Fixtures
// ============================================================================

// weightedEdge is a compact edge spec for fixtures.
type weightedEdge struct {
	source   string
	target   string
	strength float64
}

// buildGraph constructs a frozen graph from id->path symbols and
// weighted calls edges.
func buildGraph(t *testing.T, paths map[string]string, edges []weightedEdge) *graph.SymbolGraph {
	t.Helper()
	g := graph.NewSymbolGraph()
	for id, path := range paths {
		err := g.InsertSymbol(graph.Symbol{
			ID:        id,
			Name:      id,
			Kind:      graph.SymbolKindFunction,
			FilePath:  path,
			ByteStart: 0,
			ByteEnd:   50,
			StartLine: 1,
			EndLine:   5,
		})
		require.NoError(t, err)
	}
	for _, e := range edges {
		err := g.InsertEdge(graph.Edge{
			SourceID: e.source,
			TargetID: e.target,
			Kind:     graph.EdgeKindCalls,
			Strength: e.strength,
		})
		require.NoError(t, err)
	}
	g.Freeze()
	return g
}

// sameFile maps every id to a shared file path.
func sameFile(ids ...string) map[string]string {
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		out[id] = "pkg/core.go"
	}
	return out
}

// chainGraph builds x -> y (0.9) -> z (0.3) -> w (0.9).
func chainGraph(t *testing.T) *graph.SymbolGraph {
	t.Helper()
	return buildGraph(t, sameFile("x", "y", "z", "w"), []weightedEdge{
		{"x", "y", 0.9},
		{"y", "z", 0.3},
		{"z", "w", 0.9},
	})
}

// ============================================================================
// Input Validation
// ============================================================================

func TestAssemble_EmptySeeds(t *testing.T) {
	g := chainGraph(t)
	_, err := NewAssembler().Assemble(context.Background(), g, nil, 2, 0.5)
	require.ErrorIs(t, err, ErrEmptySeeds)
}

func TestAssemble_NegativeDepth(t *testing.T) {
	g := chainGraph(t)
	_, err := NewAssembler().Assemble(context.Background(), g, []string{"x"}, -1, 0.5)
	require.ErrorIs(t, err, ErrInvalidDepth)
}

func TestAssemble_ThresholdOutOfRange(t *testing.T) {
	g := chainGraph(t)
	_, err := NewAssembler().Assemble(context.Background(), g, []string{"x"}, 2, 1.5)
	require.ErrorIs(t, err, ErrInvalidThreshold)
	_, err = NewAssembler().Assemble(context.Background(), g, []string{"x"}, 2, -0.1)
	require.ErrorIs(t, err, ErrInvalidThreshold)
}

func TestAssemble_UnknownSeed(t *testing.T) {
	g := chainGraph(t)
	_, err := NewAssembler().Assemble(context.Background(), g, []string{"x", "ghost"}, 2, 0.5)
	require.ErrorIs(t, err, ErrSeedNotFound)
	assert.Contains(t, err.Error(), "ghost")
}

// ============================================================================
// Traversal
// ============================================================================

func TestAssemble_DepthZeroReturnsExactlySeeds(t *testing.T) {
	g := chainGraph(t)

	mc, err := NewAssembler().Assemble(context.Background(), g, []string{"y", "x"}, 0, 0.0)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"x", "y"}, mc.SymbolIDs())
	assert.Equal(t, []string{"y", "x"}, mc.SeedSymbols)
	assert.Equal(t, 0, mc.Metadata.Depth)
	assert.Equal(t, 4, mc.Metadata.TotalSymbolsInGraph)
}

func TestAssemble_ThresholdPrunesWeakEdges(t *testing.T) {
	// y -> z is below threshold, so z and (transitively) w are excluded.
	g := chainGraph(t)

	mc, err := NewAssembler().Assemble(context.Background(), g, []string{"x"}, 2, 0.5)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"x", "y"}, mc.SymbolIDs())
	assert.False(t, mc.Contains("z"))
	assert.False(t, mc.Contains("w"))
}

func TestAssemble_TraversalIsUndirected(t *testing.T) {
	// Seeding at the sink still pulls in the caller.
	g := buildGraph(t, sameFile("caller", "callee"), []weightedEdge{
		{"caller", "callee", 0.8},
	})

	mc, err := NewAssembler().Assemble(context.Background(), g, []string{"callee"}, 1, 0.5)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"callee", "caller"}, mc.SymbolIDs())
}

func TestAssemble_SeedsIncludedRegardlessOfThreshold(t *testing.T) {
	g := chainGraph(t)

	mc, err := NewAssembler().Assemble(context.Background(), g, []string{"z"}, 0, 1.0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"z"}, mc.SymbolIDs())
}

func TestAssemble_DepthMonotonicity(t *testing.T) {
	g := chainGraph(t)
	asm := NewAssembler()

	prev := 0
	for depth := 0; depth <= 3; depth++ {
		mc, err := asm.Assemble(context.Background(), g, []string{"x"}, depth, 0.0)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(mc.Symbols), prev,
			"increasing depth must never shrink the neighborhood")
		prev = len(mc.Symbols)
	}
}

func TestAssemble_ThresholdMonotonicity(t *testing.T) {
	g := chainGraph(t)
	asm := NewAssembler()

	prev := g.SymbolCount() + 1
	for _, threshold := range []float64{0.0, 0.3, 0.5, 0.9, 1.0} {
		mc, err := asm.Assemble(context.Background(), g, []string{"x"}, 3, threshold)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(mc.Symbols), prev,
			"increasing threshold must never grow the neighborhood")
		prev = len(mc.Symbols)
	}
}

func TestAssemble_DuplicateSeedsCollapse(t *testing.T) {
	g := chainGraph(t)

	mc, err := NewAssembler().Assemble(context.Background(), g, []string{"x", "x"}, 0, 0.0)
	require.NoError(t, err)

	assert.Equal(t, []string{"x"}, mc.SeedSymbols)
	assert.Len(t, mc.Symbols, 1)
}

// ============================================================================
// Annotations
// ============================================================================

func TestAssemble_ImportanceRanking(t *testing.T) {
	// hub touches three edges; leaves touch one each.
	g := buildGraph(t, sameFile("hub", "l1", "l2", "l3"), []weightedEdge{
		{"hub", "l1", 0.8},
		{"hub", "l2", 0.8},
		{"l3", "hub", 0.8},
	})

	mc, err := NewAssembler().Assemble(context.Background(), g, []string{"hub"}, 1, 0.0)
	require.NoError(t, err)

	require.Len(t, mc.Symbols, 4)
	assert.Equal(t, "hub", mc.Symbols[0].ID)
	assert.InDelta(t, 1.0, mc.Symbols[0].Importance, 1e-9)
	for _, s := range mc.Symbols[1:] {
		assert.Less(t, s.Importance, 1.0)
	}
}

func TestAssemble_InCycleFlags(t *testing.T) {
	g := buildGraph(t, sameFile("a", "b", "c", "d"), []weightedEdge{
		{"a", "b", 1.0},
		{"b", "a", 1.0},
		{"b", "c", 1.0},
		{"c", "d", 1.0},
	})

	mc, err := NewAssembler().Assemble(context.Background(), g, []string{"a"}, 3, 0.0)
	require.NoError(t, err)

	flags := make(map[string]bool)
	for _, s := range mc.Symbols {
		flags[s.ID] = s.InCycle
	}
	assert.True(t, flags["a"])
	assert.True(t, flags["b"])
	assert.False(t, flags["c"])
	assert.False(t, flags["d"])
	assert.Equal(t, 0, mc.Invariants.Betti1) // a<->b is one undirected edge
}

func TestAssemble_InvariantsFromLayerConfig(t *testing.T) {
	cfg, err := layer.New([]layer.Layer{
		{Name: "Data", Level: 0, Paths: []string{"data/"}},
		{Name: "UI", Level: 1, Paths: []string{"ui/"}, AllowedDeps: []int{0}},
	})
	require.NoError(t, err)

	g := buildGraph(t, map[string]string{
		"d": "data/store.go",
		"u": "ui/view.go",
	}, []weightedEdge{
		{"d", "u", 0.9}, // Data depending on UI is forbidden
	})

	asm := NewAssembler(WithLayerConfig(cfg))
	mc, err := asm.Assemble(context.Background(), g, []string{"d"}, 1, 0.0)
	require.NoError(t, err)

	assert.Contains(t, mc.Invariants.ForbiddenDependencies, "Data -> UI")
	assert.NotEmpty(t, mc.Invariants.LayerConstraints)
	require.Len(t, mc.Invariants.Notes, 1)
	assert.Contains(t, mc.Invariants.Notes[0], "existing layer violation")
}

func TestAssemble_FilesAreSortedAndDistinct(t *testing.T) {
	g := buildGraph(t, map[string]string{
		"a": "pkg/b.go",
		"b": "pkg/a.go",
		"c": "pkg/b.go",
	}, []weightedEdge{
		{"a", "b", 1.0},
		{"a", "c", 1.0},
	})

	mc, err := NewAssembler().Assemble(context.Background(), g, []string{"a"}, 1, 0.0)
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg/a.go", "pkg/b.go"}, mc.Files)
}

func TestAssemble_IssueID(t *testing.T) {
	g := chainGraph(t)
	asm := NewAssembler()

	mc, err := asm.Assemble(context.Background(), g, []string{"x"}, 0, 0.0,
		WithIssueID("issue-42"))
	require.NoError(t, err)
	assert.Equal(t, "issue-42", mc.Metadata.IssueID)

	mc, err = asm.Assemble(context.Background(), g, []string{"x"}, 0, 0.0)
	require.NoError(t, err)
	assert.NotEmpty(t, mc.Metadata.IssueID, "a missing issue id is generated")
}

func TestAssemble_NeverMutatesGraph(t *testing.T) {
	g := chainGraph(t)
	before := g.Fingerprint()

	_, err := NewAssembler().Assemble(context.Background(), g, []string{"x"}, 3, 0.0)
	require.NoError(t, err)

	assert.Equal(t, before, g.Fingerprint())
	assert.Equal(t, 4, g.SymbolCount())
	assert.Equal(t, 3, g.EdgeCount())
}
