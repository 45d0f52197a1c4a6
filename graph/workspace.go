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
	"errors"
	"sync/atomic"
)

// Workspace-level sentinel errors.
var (
	// ErrGraphNotFrozen is returned when publishing a graph that is still
	// in the building state.
	ErrGraphNotFrozen = errors.New("graph must be frozen before publishing")

	// ErrNoGraph is returned by Current when no graph has been published.
	ErrNoGraph = errors.New("no graph has been published")
)

// Workspace holds the live SymbolGraph for a session and swaps in rebuilt
// graphs atomically.
//
// Description:
//
//	The graph is treated as an immutable value per generation. A rebuild
//	constructs a complete new graph and publishes it with Swap(); readers
//	that captured the previous generation keep using it unchanged, so
//	concurrent analyses never observe a partially updated graph. There is
//	deliberately no in-place incremental update path.
//
// Thread Safety:
//
//	Workspace is safe for concurrent use. Current() and Swap() are
//	lock-free atomic operations.
type Workspace struct {
	current atomic.Pointer[SymbolGraph]
}

// NewWorkspace creates a workspace with no published graph.
func NewWorkspace() *Workspace {
	return &Workspace{}
}

// NewWorkspaceWith creates a workspace and publishes the given graph.
//
// The graph must be frozen.
func NewWorkspaceWith(g *SymbolGraph) (*Workspace, error) {
	w := NewWorkspace()
	if err := w.Swap(g); err != nil {
		return nil, err
	}
	return w, nil
}

// Current returns the live graph generation.
//
// The returned graph is immutable; callers may hold it for the duration
// of an analysis regardless of later swaps.
func (w *Workspace) Current() (*SymbolGraph, error) {
	g := w.current.Load()
	if g == nil {
		return nil, ErrNoGraph
	}
	return g, nil
}

// Swap publishes a rebuilt graph as the new live generation.
//
// Errors:
//
//	ErrGraphNotFrozen - The graph is still accepting inserts.
func (w *Workspace) Swap(g *SymbolGraph) error {
	if g == nil || !g.IsFrozen() {
		return ErrGraphNotFrozen
	}
	w.current.Store(g)
	return nil
}
