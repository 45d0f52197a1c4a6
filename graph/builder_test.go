// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_CleanBuild(t *testing.T) {
	symbols := []Symbol{testSymbol("a"), testSymbol("b")}
	edges := []Edge{{SourceID: "a", TargetID: "b", Kind: EdgeKindCalls, Strength: 0.8}}

	result := NewBuilder().Build(context.Background(), symbols, edges)

	require.NotNil(t, result.Graph)
	assert.False(t, result.HasErrors())
	assert.False(t, result.Incomplete)
	assert.NoError(t, result.Err())
	assert.True(t, result.Graph.IsFrozen())
	assert.Equal(t, 2, result.Graph.SymbolCount())
	assert.Equal(t, 1, result.Graph.EdgeCount())
}

func TestBuilder_CollectsAllFailures(t *testing.T) {
	symbols := []Symbol{
		testSymbol("a"),
		testSymbol("a"), // duplicate
		{ID: ""},        // invalid
		testSymbol("b"),
	}
	edges := []Edge{
		{SourceID: "a", TargetID: "b", Kind: EdgeKindCalls, Strength: 1},
		{SourceID: "a", TargetID: "ghost", Kind: EdgeKindCalls, Strength: 1}, // dangling
		{SourceID: "a", TargetID: "b", Kind: EdgeKindImports, Strength: 2},   // bad strength
	}

	result := NewBuilder().Build(context.Background(), symbols, edges)

	require.True(t, result.HasErrors())
	require.Len(t, result.SymbolErrors, 2)
	require.Len(t, result.EdgeErrors, 2)
	assert.ErrorIs(t, result.SymbolErrors[0].Err, ErrDuplicateSymbol)
	assert.ErrorIs(t, result.SymbolErrors[1].Err, ErrInvalidSymbol)
	assert.ErrorIs(t, result.EdgeErrors[0].Err, ErrDanglingReference)
	assert.ErrorIs(t, result.EdgeErrors[1].Err, ErrInvalidStrength)

	// The clean subset still builds and freezes.
	assert.False(t, result.Incomplete)
	assert.True(t, result.Graph.IsFrozen())
	assert.Equal(t, 2, result.Graph.SymbolCount())
	assert.Equal(t, 1, result.Graph.EdgeCount())
}

func TestBuilder_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := NewBuilder().Build(ctx, []Symbol{testSymbol("a")}, nil)

	assert.True(t, result.Incomplete)
	assert.ErrorIs(t, result.Err(), ErrBuildCancelled)
	assert.False(t, result.Graph.IsFrozen())
}

func TestBuilder_ProgressCallback(t *testing.T) {
	var phases []ProgressPhase
	builder := NewBuilder(WithProgressCallback(func(p BuildProgress) {
		phases = append(phases, p.Phase)
		assert.LessOrEqual(t, p.Processed, p.Total)
	}))

	symbols := []Symbol{testSymbol("a"), testSymbol("b")}
	edges := []Edge{{SourceID: "a", TargetID: "b", Kind: EdgeKindCalls, Strength: 1}}
	result := builder.Build(context.Background(), symbols, edges)

	require.False(t, result.HasErrors())
	assert.Contains(t, phases, ProgressPhaseSymbols)
	assert.Contains(t, phases, ProgressPhaseEdges)
	assert.Equal(t, ProgressPhaseFinalizing, phases[len(phases)-1])
}
