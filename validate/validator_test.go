// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/topology/graph"
	"github.com/AleutianAI/topology/invariant"
	"github.com/AleutianAI/topology/layer"
)

// acyclicChain builds the frozen base a -> b -> c.
func acyclicChain(t *testing.T) *graph.SymbolGraph {
	t.Helper()
	return buildGraph(t, sameFile("a", "b", "c"), [][2]string{
		{"a", "b"}, {"b", "c"},
	})
}

// twoLayerConfig defines Data (0) and UI (1, may depend on Data).
func twoLayerConfig(t *testing.T) *layer.Config {
	t.Helper()
	cfg, err := layer.New([]layer.Layer{
		{Name: "Data", Level: 0, Paths: []string{"data/"}},
		{Name: "UI", Level: 1, Paths: []string{"ui/"}, AllowedDeps: []int{0}},
	})
	require.NoError(t, err)
	return cfg
}

// ============================================================================
// Cycle Detection
// ============================================================================

func TestValidate_ClosingEdgeIntroducesCycle(t *testing.T) {
	base := acyclicChain(t)
	v := NewValidator(base, nil)

	result := v.Validate(context.Background(), []Edit{{
		FilePath:  "pkg/core.go",
		Operation: OperationModify,
		NewEdges:  []graph.Edge{testEdge("c", "a")},
	}})

	assert.Equal(t, 0, result.OriginalBetti1)
	assert.Equal(t, 1, result.NewBetti1)
	assert.True(t, result.IntroducesCycles)
	assert.False(t, result.IsSafe)
	assert.Equal(t, StateRedFlagged, result.State)
	require.Len(t, result.CyclesDetected, 1)
	assert.Equal(t, []string{"a", "b", "c"}, result.CyclesDetected[0])
	assert.Equal(t, []string{"c -> a"}, result.NewDependencies)
}

func TestValidate_SafeAddition(t *testing.T) {
	base := acyclicChain(t)
	v := NewValidator(base, nil)

	result := v.Validate(context.Background(), []Edit{{
		FilePath:   "pkg/core.go",
		Operation:  OperationModify,
		NewSymbols: []graph.Symbol{testSymbol("d", "pkg/core.go")},
		NewEdges:   []graph.Edge{testEdge("c", "d")},
	}})

	assert.True(t, result.IsSafe)
	assert.Equal(t, StateSafe, result.State)
	assert.False(t, result.IntroducesCycles)
	assert.Equal(t, result.OriginalBetti1, result.NewBetti1)
	assert.Equal(t, []string{"d"}, result.NewSymbols)
	assert.Empty(t, result.Errors)
}

func TestValidate_RemovingCycleMemberIsSafe(t *testing.T) {
	base := buildGraph(t, sameFile("a", "b", "c"), [][2]string{
		{"a", "b"}, {"b", "c"}, {"c", "a"},
	})
	v := NewValidator(base, nil)

	result := v.Validate(context.Background(), []Edit{{
		FilePath:         "pkg/core.go",
		Operation:        OperationDelete,
		RemovedSymbolIDs: []string{"c"},
	}})

	assert.Equal(t, 1, result.OriginalBetti1)
	assert.Equal(t, 0, result.NewBetti1)
	assert.False(t, result.IntroducesCycles)
	assert.True(t, result.IsSafe)
	assert.Empty(t, result.CyclesDetected)
}

func TestValidate_PreviousBetti1Baseline(t *testing.T) {
	// The base already carries one cycle. Against a stricter baseline
	// from an earlier round, even a no-op edit counts as introducing it.
	base := buildGraph(t, sameFile("a", "b", "c"), [][2]string{
		{"a", "b"}, {"b", "c"}, {"c", "a"},
	})
	v := NewValidator(base, nil)

	noop := v.Validate(context.Background(), nil)
	assert.False(t, noop.IntroducesCycles)

	strict := v.Validate(context.Background(), nil, WithPreviousBetti1(0))
	assert.True(t, strict.IntroducesCycles)
	assert.False(t, strict.IsSafe)
}

// ============================================================================
// Collisions and Malformed Input
// ============================================================================

func TestValidate_SymbolCollisionFailsFast(t *testing.T) {
	base := acyclicChain(t)
	v := NewValidator(base, nil)

	result := v.Validate(context.Background(), []Edit{{
		FilePath:   "pkg/core.go",
		Operation:  OperationCreate,
		NewSymbols: []graph.Symbol{testSymbol("a", "pkg/core.go")},
	}})

	assert.False(t, result.IsSafe)
	assert.Equal(t, StateCollisionRejected, result.State)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "collision")
	assert.Empty(t, result.CyclesDetected, "no analysis after a collision")
}

func TestValidate_RemoveThenReAddSameID(t *testing.T) {
	base := acyclicChain(t)
	v := NewValidator(base, nil)

	result := v.Validate(context.Background(), []Edit{{
		FilePath:         "pkg/core.go",
		Operation:        OperationModify,
		RemovedSymbolIDs: []string{"b"},
		NewSymbols:       []graph.Symbol{testSymbol("b", "pkg/rewritten.go")},
		NewEdges:         []graph.Edge{testEdge("a", "b"), testEdge("b", "c")},
	}})

	assert.Empty(t, result.Errors, "replacing a removed symbol is not a collision")
	assert.True(t, result.IsSafe)
	assert.Equal(t, result.OriginalBetti1, result.NewBetti1,
		"re-creating the original edges keeps the cycle count")
}

func TestValidate_ReplacementClosingCycleRedFlags(t *testing.T) {
	// The rewritten c keeps its outgoing dependency and gains c -> a,
	// closing a cycle. The replacement's edges must be analyzed, not
	// masked by the removal of the old c.
	base := acyclicChain(t)
	v := NewValidator(base, nil)

	result := v.Validate(context.Background(), []Edit{{
		FilePath:         "pkg/core.go",
		Operation:        OperationModify,
		RemovedSymbolIDs: []string{"c"},
		NewSymbols:       []graph.Symbol{testSymbol("c", "pkg/core.go")},
		NewEdges:         []graph.Edge{testEdge("b", "c"), testEdge("c", "a")},
	}})

	assert.Empty(t, result.Errors)
	assert.Equal(t, 0, result.OriginalBetti1)
	assert.Equal(t, 1, result.NewBetti1)
	assert.True(t, result.IntroducesCycles)
	assert.False(t, result.IsSafe)
	assert.Equal(t, StateRedFlagged, result.State)
	require.Len(t, result.CyclesDetected, 1)
	assert.Equal(t, []string{"a", "b", "c"}, result.CyclesDetected[0])
}

func TestValidate_ReplacementDropsOldEdges(t *testing.T) {
	// Replacing b without re-adding its edges leaves a and c disconnected.
	base := acyclicChain(t)
	v := NewValidator(base, nil)

	result := v.Validate(context.Background(), []Edit{{
		FilePath:         "pkg/core.go",
		Operation:        OperationModify,
		RemovedSymbolIDs: []string{"b"},
		NewSymbols:       []graph.Symbol{testSymbol("b", "pkg/rewritten.go")},
	}})

	assert.Empty(t, result.Errors)
	assert.True(t, result.IsSafe)
	assert.Empty(t, result.NewDependencies)
	assert.Equal(t, 0, result.NewBetti1)
}

func TestValidate_DanglingEdgeFoldedIntoErrors(t *testing.T) {
	base := acyclicChain(t)
	v := NewValidator(base, nil)

	result := v.Validate(context.Background(), []Edit{{
		FilePath:  "pkg/core.go",
		Operation: OperationModify,
		NewEdges:  []graph.Edge{testEdge("a", "ghost")},
	}})

	assert.False(t, result.IsSafe)
	assert.Equal(t, StateRedFlagged, result.State)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "dangling")
	// The bad edge is skipped; the rest still analyzes.
	assert.Equal(t, result.OriginalBetti1, result.NewBetti1)
}

func TestValidate_UnknownRemovalIsWarningOnly(t *testing.T) {
	base := acyclicChain(t)
	v := NewValidator(base, nil)

	result := v.Validate(context.Background(), []Edit{{
		FilePath:         "pkg/core.go",
		Operation:        OperationDelete,
		RemovedSymbolIDs: []string{"ghost"},
	}})

	assert.True(t, result.IsSafe)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "ghost")
}

func TestValidate_UnknownOperation(t *testing.T) {
	base := acyclicChain(t)
	v := NewValidator(base, nil)

	result := v.Validate(context.Background(), []Edit{{
		FilePath:  "pkg/core.go",
		Operation: Operation("rename"),
	}})

	assert.False(t, result.IsSafe)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "rename")
}

// ============================================================================
// Layer Violations
// ============================================================================

func TestValidate_NewLayerViolationRedFlags(t *testing.T) {
	base := buildGraph(t, map[string]string{
		"data::store": "data/store.go",
		"ui::view":    "ui/view.go",
	}, nil)
	v := NewValidator(base, twoLayerConfig(t))

	result := v.Validate(context.Background(), []Edit{{
		FilePath:  "data/store.go",
		Operation: OperationModify,
		NewEdges:  []graph.Edge{testEdge("data::store", "ui::view")},
	}})

	assert.False(t, result.IsSafe)
	require.Len(t, result.LayerViolations, 1)
	assert.Equal(t, "Data", result.LayerViolations[0].FromLayer)
	assert.Equal(t, "UI", result.LayerViolations[0].ToLayer)
	assert.Equal(t, invariant.ViolationUpstreamDependency, result.LayerViolations[0].Kind)
}

func TestValidate_PreExistingViolationsTolerated(t *testing.T) {
	// The base already violates Data -> UI; an unrelated edit stays safe.
	base := buildGraph(t, map[string]string{
		"data::store": "data/store.go",
		"ui::view":    "ui/view.go",
		"ui::panel":   "ui/panel.go",
	}, [][2]string{
		{"data::store", "ui::view"},
	})
	v := NewValidator(base, twoLayerConfig(t))

	result := v.Validate(context.Background(), []Edit{{
		FilePath:  "ui/panel.go",
		Operation: OperationModify,
		NewEdges:  []graph.Edge{testEdge("ui::panel", "data::store")},
	}})

	assert.True(t, result.IsSafe)
	assert.Empty(t, result.LayerViolations)
}

// ============================================================================
// Cross-File Issues
// ============================================================================

func TestValidate_CrossFileEdgesAreWarningsNotFailures(t *testing.T) {
	base := buildGraph(t, map[string]string{
		"a": "pkg/a.go",
		"b": "pkg/b.go",
	}, nil)
	v := NewValidator(base, nil)

	result := v.Validate(context.Background(), []Edit{{
		FilePath:  "pkg/a.go",
		Operation: OperationModify,
		NewEdges:  []graph.Edge{testEdge("a", "b")},
	}})

	assert.True(t, result.IsSafe)
	require.Len(t, result.CrossFileIssues, 1)
	assert.Contains(t, result.CrossFileIssues[0], "pkg/a.go")
	assert.Contains(t, result.CrossFileIssues[0], "pkg/b.go")
	assert.Contains(t, result.Warnings, result.CrossFileIssues[0],
		"cross-file issues surface as warnings")
}

// ============================================================================
// Concurrency and Independence
// ============================================================================

func TestValidate_OrderIndependent(t *testing.T) {
	base := acyclicChain(t)

	closing := []Edit{{
		FilePath: "pkg/core.go", Operation: OperationModify,
		NewEdges: []graph.Edge{testEdge("c", "a")},
	}}
	extending := []Edit{{
		FilePath: "pkg/core.go", Operation: OperationModify,
		NewSymbols: []graph.Symbol{testSymbol("d", "pkg/core.go")},
		NewEdges:   []graph.Edge{testEdge("c", "d")},
	}}

	v1 := NewValidator(base, nil)
	first := v1.Validate(context.Background(), closing)
	second := v1.Validate(context.Background(), extending)

	v2 := NewValidator(base, nil)
	reversedSecond := v2.Validate(context.Background(), extending)
	reversedFirst := v2.Validate(context.Background(), closing)

	assert.Equal(t, first, reversedFirst)
	assert.Equal(t, second, reversedSecond)
}

func TestValidateAll_IndexAligned(t *testing.T) {
	base := acyclicChain(t)
	cache, err := invariant.NewReportCache(16)
	require.NoError(t, err)
	v := NewValidator(base, nil, WithReportCache(cache))

	candidates := [][]Edit{
		{{FilePath: "pkg/core.go", Operation: OperationModify,
			NewEdges: []graph.Edge{testEdge("c", "a")}}}, // closes the cycle
		{{FilePath: "pkg/core.go", Operation: OperationModify,
			NewSymbols: []graph.Symbol{testSymbol("d", "pkg/core.go")},
			NewEdges:   []graph.Edge{testEdge("c", "d")}}}, // safe
		{{FilePath: "pkg/core.go", Operation: OperationCreate,
			NewSymbols: []graph.Symbol{testSymbol("a", "pkg/core.go")}}}, // collision
	}

	results := v.ValidateAll(context.Background(), candidates)
	require.Len(t, results, 3)

	assert.True(t, results[0].IntroducesCycles)
	assert.True(t, results[1].IsSafe)
	assert.Equal(t, StateCollisionRejected, results[2].State)
}

func TestValidate_NeverMutatesBase(t *testing.T) {
	base := acyclicChain(t)
	before := base.Fingerprint()
	v := NewValidator(base, nil)

	for i := 0; i < 3; i++ {
		v.Validate(context.Background(), []Edit{{
			FilePath:         "pkg/core.go",
			Operation:        OperationModify,
			RemovedSymbolIDs: []string{"a"},
			NewSymbols:       []graph.Symbol{testSymbol("z", "pkg/core.go")},
			NewEdges:         []graph.Edge{testEdge("z", "b")},
		}})
	}

	assert.Equal(t, before, base.Fingerprint())
	assert.Equal(t, 3, base.SymbolCount())
	assert.Equal(t, 2, base.EdgeCount())
}
