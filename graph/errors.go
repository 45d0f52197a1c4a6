// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph provides the canonical in-memory symbol dependency graph.
//
// The graph package contains types for representing a codebase as a directed
// weighted graph where nodes are symbols (functions, types, modules) and
// edges are dependency relations (calls, imports, implements, references,
// extends) with a continuous strength in [0, 1].
//
// # Ownership Model
//
// Symbols and edges are stored by value. Once inserted they are immutable;
// queries return copies, never aliases into internal state.
//
// # Thread Safety
//
// SymbolGraph is NOT safe for concurrent use during building. It is designed
// for:
//   - Single-writer access during the build phase (InsertSymbol, InsertEdge)
//   - Read-only access after Freeze() is called
//
// After Freeze(), the graph can be safely read from any number of
// goroutines. Rebuilds never modify a frozen graph: a new graph is built
// from scratch and swapped in atomically via Workspace.
//
// # Lifecycle
//
//  1. Create with NewSymbolGraph()
//  2. Build with InsertSymbol() and InsertEdge() calls (or graph.Builder)
//  3. Call Freeze() to finalize
//  4. Publish via Workspace.Swap(); query through the View interface
package graph

import "errors"

// Sentinel errors for graph operations.
var (
	// ErrGraphFrozen is returned when attempting to modify a frozen graph.
	// Once Freeze() is called, the graph becomes read-only and no further
	// symbols or edges can be inserted.
	ErrGraphFrozen = errors.New("graph is frozen and cannot be modified")

	// ErrDuplicateSymbol is returned when inserting a symbol whose ID
	// already exists in the graph.
	ErrDuplicateSymbol = errors.New("duplicate symbol ID")

	// ErrDanglingReference is returned when an edge references a symbol ID
	// that is not present in the graph. Both endpoints must exist before
	// an edge can be inserted.
	ErrDanglingReference = errors.New("edge references unknown symbol")

	// ErrInvalidSymbol is returned when a symbol fails validation
	// (empty ID, inverted byte range, or inverted line range).
	ErrInvalidSymbol = errors.New("invalid symbol")

	// ErrInvalidStrength is returned when an edge strength is outside [0, 1].
	ErrInvalidStrength = errors.New("edge strength outside [0, 1]")

	// ErrBuildCancelled is returned when a batch build is cancelled via context.
	ErrBuildCancelled = errors.New("build cancelled")
)
