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
	"fmt"
	"sync/atomic"
	"time"
)

// GraphState represents the lifecycle state of the graph.
type GraphState int

const (
	// GraphStateBuilding indicates the graph is accepting inserts.
	GraphStateBuilding GraphState = iota

	// GraphStateReadOnly indicates the graph is frozen and read-only.
	GraphStateReadOnly
)

// String returns the string representation of the GraphState.
func (s GraphState) String() string {
	switch s {
	case GraphStateBuilding:
		return "building"
	case GraphStateReadOnly:
		return "readonly"
	default:
		return "unknown"
	}
}

// graphSequence provides process-unique ids for fingerprinting.
// Incremented once per NewSymbolGraph call.
var graphSequence atomic.Uint64

// SymbolGraph is the canonical in-memory dependency graph for a workspace.
//
// It owns symbols (id -> Symbol) and per-symbol adjacency indices
// (outgoing and incoming edges). Every edge's endpoints must reference
// existing symbols; insertion fails otherwise.
//
// Thread Safety:
//
//	SymbolGraph is NOT safe for concurrent use during building. After
//	Freeze() it is immutable and safe for unlimited concurrent readers.
//	Rebuilds must construct a new graph and publish it via Workspace.
type SymbolGraph struct {
	// symbols maps symbol ID to Symbol.
	symbols map[string]Symbol

	// edges maps (source, target, kind) to the merged edge, enforcing
	// the max-strength duplicate merge rule.
	edges map[edgeKey]*Edge

	// outgoing and incoming hold per-symbol adjacency. The *Edge values
	// are shared with the edges map so strength merges are visible
	// everywhere.
	outgoing map[string][]*Edge
	incoming map[string][]*Edge

	// state is the current lifecycle state.
	state GraphState

	// sequence is the process-unique graph id used for fingerprinting.
	sequence uint64

	// BuiltAtMilli is the Unix timestamp in milliseconds when Freeze()
	// was called. Zero if the graph has not been frozen.
	BuiltAtMilli int64
}

// NewSymbolGraph creates a new empty graph in the Building state.
func NewSymbolGraph() *SymbolGraph {
	return &SymbolGraph{
		symbols:  make(map[string]Symbol),
		edges:    make(map[edgeKey]*Edge),
		outgoing: make(map[string][]*Edge),
		incoming: make(map[string][]*Edge),
		state:    GraphStateBuilding,
		sequence: graphSequence.Add(1),
	}
}

// State returns the current lifecycle state of the graph.
func (g *SymbolGraph) State() GraphState {
	return g.state
}

// IsFrozen returns true if the graph is in read-only mode.
func (g *SymbolGraph) IsFrozen() bool {
	return g.state == GraphStateReadOnly
}

// Freeze transitions the graph to read-only mode.
//
// After Freeze(), InsertSymbol and InsertEdge return ErrGraphFrozen.
// The operation is irreversible. Safe concurrent reading is guaranteed
// only after Freeze() returns.
func (g *SymbolGraph) Freeze() {
	g.state = GraphStateReadOnly
	g.BuiltAtMilli = time.Now().UnixMilli()
}

// InsertSymbol adds a symbol to the graph.
//
// Errors:
//
//	ErrGraphFrozen - Graph has been frozen
//	ErrInvalidSymbol - Symbol fails validation
//	ErrDuplicateSymbol - A symbol with the same ID already exists
func (g *SymbolGraph) InsertSymbol(sym Symbol) error {
	if g.state == GraphStateReadOnly {
		return ErrGraphFrozen
	}
	if err := sym.Validate(); err != nil {
		return err
	}
	if _, exists := g.symbols[sym.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateSymbol, sym.ID)
	}

	g.symbols[sym.ID] = sym
	return nil
}

// InsertEdge adds a directed, weighted edge between two existing symbols.
//
// A duplicate edge with identical (source, target, kind) merges into the
// existing one by keeping the maximum strength; the edge count does not
// change in that case.
//
// Errors:
//
//	ErrGraphFrozen - Graph has been frozen
//	ErrInvalidStrength - Strength outside [0, 1]
//	ErrDanglingReference - Either endpoint does not exist
func (g *SymbolGraph) InsertEdge(e Edge) error {
	if g.state == GraphStateReadOnly {
		return ErrGraphFrozen
	}
	if err := e.Validate(); err != nil {
		return err
	}
	if _, ok := g.symbols[e.SourceID]; !ok {
		return fmt.Errorf("%w: source %s", ErrDanglingReference, e.SourceID)
	}
	if _, ok := g.symbols[e.TargetID]; !ok {
		return fmt.Errorf("%w: target %s", ErrDanglingReference, e.TargetID)
	}

	key := edgeKey{source: e.SourceID, target: e.TargetID, kind: e.Kind}
	if existing, ok := g.edges[key]; ok {
		if e.Strength > existing.Strength {
			existing.Strength = e.Strength
		}
		return nil
	}

	stored := &Edge{
		SourceID: e.SourceID,
		TargetID: e.TargetID,
		Kind:     e.Kind,
		Strength: e.Strength,
	}
	g.edges[key] = stored
	g.outgoing[e.SourceID] = append(g.outgoing[e.SourceID], stored)
	g.incoming[e.TargetID] = append(g.incoming[e.TargetID], stored)
	return nil
}

// Symbol returns the symbol with the given ID, if present.
func (g *SymbolGraph) Symbol(id string) (Symbol, bool) {
	sym, ok := g.symbols[id]
	return sym, ok
}

// Contains reports whether a symbol with the given ID exists.
func (g *SymbolGraph) Contains(id string) bool {
	_, ok := g.symbols[id]
	return ok
}

// SymbolCount returns the number of symbols in the graph.
func (g *SymbolGraph) SymbolCount() int {
	return len(g.symbols)
}

// EdgeCount returns the number of distinct directed edges in the graph.
func (g *SymbolGraph) EdgeCount() int {
	return len(g.edges)
}

// Symbols returns a restartable iterator over all symbols.
//
// Iteration order is unspecified (map order). The iterator may be
// consumed any number of times and stopped early by yielding false.
func (g *SymbolGraph) Symbols() func(yield func(Symbol) bool) {
	return func(yield func(Symbol) bool) {
		for _, sym := range g.symbols {
			if !yield(sym) {
				return
			}
		}
	}
}

// Neighbors returns a restartable iterator over the edges incident to the
// given symbol.
//
// For DirectionBoth, outgoing edges are yielded before incoming ones and
// a self-loop is yielded exactly once. Unknown IDs yield nothing. Edges
// are yielded by value; callers cannot mutate graph state through them.
func (g *SymbolGraph) Neighbors(id string, dir Direction) func(yield func(Edge) bool) {
	return func(yield func(Edge) bool) {
		if dir == DirectionOut || dir == DirectionBoth {
			for _, e := range g.outgoing[id] {
				if !yield(*e) {
					return
				}
			}
		}
		if dir == DirectionIn || dir == DirectionBoth {
			for _, e := range g.incoming[id] {
				if dir == DirectionBoth && e.SourceID == e.TargetID {
					continue // already yielded on the outgoing pass
				}
				if !yield(*e) {
					return
				}
			}
		}
	}
}

// Fingerprint returns a cheap identity string for cache keying.
//
// The fingerprint combines the process-unique graph sequence number with
// the freeze timestamp and counts. Distinct builds therefore never
// collide, and the value is stable once the graph is frozen.
func (g *SymbolGraph) Fingerprint() string {
	return fmt.Sprintf("g%d:v%d:e%d:t%d",
		g.sequence, len(g.symbols), len(g.edges), g.BuiltAtMilli)
}

// Subgraph returns a read-only projection containing only the given
// symbol IDs and the edges whose endpoints are both included.
//
// The projection shares storage with the receiver: it is cheap to create
// (no symbol or edge copying) and must only be used while the underlying
// graph is frozen. Unknown IDs are ignored.
func (g *SymbolGraph) Subgraph(ids []string) *Subgraph {
	included := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := g.symbols[id]; ok {
			included[id] = struct{}{}
		}
	}

	// Count surviving edges once so EdgeCount is O(1) afterwards.
	edgeCount := 0
	for id := range included {
		for _, e := range g.outgoing[id] {
			if _, ok := included[e.TargetID]; ok {
				edgeCount++
			}
		}
	}

	return &Subgraph{
		base:      g,
		included:  included,
		edgeCount: edgeCount,
	}
}

// Subgraph is a read-only projection of a SymbolGraph restricted to a
// subset of symbol IDs. Edges survive only if both endpoints are included.
//
// Thread Safety: safe for concurrent use provided the base graph is frozen.
type Subgraph struct {
	base      *SymbolGraph
	included  map[string]struct{}
	edgeCount int
}

// Symbol returns the symbol with the given ID if it is included.
func (s *Subgraph) Symbol(id string) (Symbol, bool) {
	if _, ok := s.included[id]; !ok {
		return Symbol{}, false
	}
	return s.base.Symbol(id)
}

// Symbols returns a restartable iterator over the included symbols.
func (s *Subgraph) Symbols() func(yield func(Symbol) bool) {
	return func(yield func(Symbol) bool) {
		for id := range s.included {
			sym, ok := s.base.symbols[id]
			if !ok {
				continue
			}
			if !yield(sym) {
				return
			}
		}
	}
}

// Neighbors returns the incident edges of id whose other endpoint is also
// included in the projection.
func (s *Subgraph) Neighbors(id string, dir Direction) func(yield func(Edge) bool) {
	return func(yield func(Edge) bool) {
		if _, ok := s.included[id]; !ok {
			return
		}
		inner := s.base.Neighbors(id, dir)
		inner(func(e Edge) bool {
			if _, ok := s.included[e.SourceID]; !ok {
				return true
			}
			if _, ok := s.included[e.TargetID]; !ok {
				return true
			}
			return yield(e)
		})
	}
}

// SymbolCount returns the number of included symbols.
func (s *Subgraph) SymbolCount() int {
	return len(s.included)
}

// EdgeCount returns the number of surviving directed edges.
func (s *Subgraph) EdgeCount() int {
	return s.edgeCount
}

// Fingerprint returns a cache key distinguishing this projection from its
// base and from projections with a different member set.
func (s *Subgraph) Fingerprint() string {
	return fmt.Sprintf("%s|sub:v%d:e%d:h%x",
		s.base.Fingerprint(), len(s.included), s.edgeCount, s.memberHash())
}

// memberHash folds the member IDs into an order-independent hash.
func (s *Subgraph) memberHash() uint64 {
	var h uint64
	for id := range s.included {
		var f uint64 = 14695981039346656037 // FNV-1a offset basis
		for i := 0; i < len(id); i++ {
			f ^= uint64(id[i])
			f *= 1099511628211
		}
		h ^= f // XOR keeps the fold independent of map order
	}
	return h
}

// Interface conformance checks.
var (
	_ View = (*SymbolGraph)(nil)
	_ View = (*Subgraph)(nil)
)
