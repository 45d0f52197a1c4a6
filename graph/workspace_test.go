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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspace_CurrentBeforePublish(t *testing.T) {
	w := NewWorkspace()
	_, err := w.Current()
	require.ErrorIs(t, err, ErrNoGraph)
}

func TestWorkspace_SwapRequiresFrozen(t *testing.T) {
	w := NewWorkspace()

	building := NewSymbolGraph()
	require.ErrorIs(t, w.Swap(building), ErrGraphNotFrozen)
	require.ErrorIs(t, w.Swap(nil), ErrGraphNotFrozen)

	building.Freeze()
	require.NoError(t, w.Swap(building))

	got, err := w.Current()
	require.NoError(t, err)
	assert.Same(t, building, got)
}

func TestWorkspace_ReadersKeepTheirGeneration(t *testing.T) {
	g1 := NewSymbolGraph()
	mustAddSymbol(t, g1, "old")
	g1.Freeze()

	w, err := NewWorkspaceWith(g1)
	require.NoError(t, err)

	captured, err := w.Current()
	require.NoError(t, err)

	g2 := NewSymbolGraph()
	mustAddSymbol(t, g2, "new")
	g2.Freeze()
	require.NoError(t, w.Swap(g2))

	// The captured generation is unchanged by the swap.
	assert.True(t, captured.Contains("old"))
	assert.False(t, captured.Contains("new"))

	live, err := w.Current()
	require.NoError(t, err)
	assert.Same(t, g2, live)
}

func TestWorkspace_ConcurrentSwapsAndReads(t *testing.T) {
	w := NewWorkspace()

	first := NewSymbolGraph()
	first.Freeze()
	require.NoError(t, w.Swap(first))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g := NewSymbolGraph()
			g.Freeze()
			assert.NoError(t, w.Swap(g))
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			g, err := w.Current()
			assert.NoError(t, err)
			assert.True(t, g.IsFrozen(), "readers never observe a building graph")
		}()
	}
	wg.Wait()
}
