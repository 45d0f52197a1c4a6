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
	"fmt"

	"github.com/AleutianAI/topology/graph"
)

// Overlay is a copy-on-write view of a base graph with an edit delta
// applied: added symbols and edges are visible, removed symbols and
// their incident edges are not.
//
// Description:
//
//	The overlay stores only the delta. Neighbor queries answer from the
//	delta first, then fall through to the base with removed endpoints
//	filtered out, so construction cost is proportional to the edit, not
//	the graph. The base graph is never touched; N overlays over the same
//	frozen base are fully independent.
//
//	An id may be both removed and re-added (a replacement): the added
//	symbol wins, its delta edges are live, and the base symbol's old
//	incident edges stay excluded.
//
// Thread Safety: immutable after construction; safe for concurrent
// readers provided the base graph is frozen.
type Overlay struct {
	base *graph.SymbolGraph

	added   map[string]graph.Symbol
	removed map[string]struct{}

	addedOut map[string][]graph.Edge
	addedIn  map[string][]graph.Edge

	addedEdgeCount    int
	survivingBaseEdge int
}

// overlayEdgeKey identifies a directed edge for deduplication.
type overlayEdgeKey struct {
	source string
	target string
	kind   graph.EdgeKind
}

// newOverlay applies a pre-screened delta to the base graph.
//
// Callers (the validator) are responsible for collision and dangling
// checks; the overlay only deduplicates edges already present in the
// base or repeated within the delta.
func newOverlay(base *graph.SymbolGraph, addedSymbols []graph.Symbol, addedEdges []graph.Edge, removedIDs []string) *Overlay {
	o := &Overlay{
		base:     base,
		added:    make(map[string]graph.Symbol, len(addedSymbols)),
		removed:  make(map[string]struct{}, len(removedIDs)),
		addedOut: make(map[string][]graph.Edge),
		addedIn:  make(map[string][]graph.Edge),
	}

	for _, id := range removedIDs {
		if base.Contains(id) {
			o.removed[id] = struct{}{}
		}
	}
	for _, sym := range addedSymbols {
		o.added[sym.ID] = sym
	}

	seen := make(map[overlayEdgeKey]struct{}, len(addedEdges))
	for _, e := range addedEdges {
		key := overlayEdgeKey{source: e.SourceID, target: e.TargetID, kind: e.Kind}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if o.hasBaseEdge(e.SourceID, e.TargetID, e.Kind) {
			continue
		}
		o.addedOut[e.SourceID] = append(o.addedOut[e.SourceID], e)
		o.addedIn[e.TargetID] = append(o.addedIn[e.TargetID], e)
		o.addedEdgeCount++
	}

	o.survivingBaseEdge = o.countSurvivingBaseEdges()
	return o
}

// hasBaseEdge reports whether the base holds a surviving edge with the
// given identity.
func (o *Overlay) hasBaseEdge(source, target string, kind graph.EdgeKind) bool {
	if _, gone := o.removed[source]; gone {
		return false
	}
	if _, gone := o.removed[target]; gone {
		return false
	}
	found := false
	o.base.Neighbors(source, graph.DirectionOut)(func(e graph.Edge) bool {
		if e.TargetID == target && e.Kind == kind {
			found = true
			return false
		}
		return true
	})
	return found
}

// countSurvivingBaseEdges subtracts edges incident to removed symbols.
func (o *Overlay) countSurvivingBaseEdges() int {
	if len(o.removed) == 0 {
		return o.base.EdgeCount()
	}

	dead := make(map[overlayEdgeKey]struct{})
	for id := range o.removed {
		o.base.Neighbors(id, graph.DirectionBoth)(func(e graph.Edge) bool {
			dead[overlayEdgeKey{source: e.SourceID, target: e.TargetID, kind: e.Kind}] = struct{}{}
			return true
		})
	}
	return o.base.EdgeCount() - len(dead)
}

// baseEdgeVisible reports whether a base edge survives in the overlay.
// Removal excises the base symbol's incident edges even when the same
// id is re-added; the replacement only carries its own delta edges.
func (o *Overlay) baseEdgeVisible(e graph.Edge) bool {
	if _, gone := o.removed[e.SourceID]; gone {
		return false
	}
	if _, gone := o.removed[e.TargetID]; gone {
		return false
	}
	return true
}

// deltaEdgeVisible reports whether a delta edge survives in the
// overlay. A removed-and-re-added endpoint is live.
func (o *Overlay) deltaEdgeVisible(e graph.Edge) bool {
	return o.symbolVisible(e.SourceID) && o.symbolVisible(e.TargetID)
}

// symbolVisible reports whether id resolves to a symbol, with the
// delta taking precedence over a removal of the same id.
func (o *Overlay) symbolVisible(id string) bool {
	if _, ok := o.added[id]; ok {
		return true
	}
	if _, gone := o.removed[id]; gone {
		return false
	}
	return o.base.Contains(id)
}

// Symbol returns the symbol with the given ID, if visible. A re-added
// symbol shadows both the removal and the base entry.
func (o *Overlay) Symbol(id string) (graph.Symbol, bool) {
	if sym, ok := o.added[id]; ok {
		return sym, true
	}
	if _, gone := o.removed[id]; gone {
		return graph.Symbol{}, false
	}
	return o.base.Symbol(id)
}

// Contains reports whether a symbol is visible in the overlay.
func (o *Overlay) Contains(id string) bool {
	_, ok := o.Symbol(id)
	return ok
}

// Symbols returns a restartable iterator over the visible symbols:
// surviving base symbols first, then added ones.
func (o *Overlay) Symbols() func(yield func(graph.Symbol) bool) {
	return func(yield func(graph.Symbol) bool) {
		stopped := false
		o.base.Symbols()(func(sym graph.Symbol) bool {
			if _, gone := o.removed[sym.ID]; gone {
				return true
			}
			if !yield(sym) {
				stopped = true
				return false
			}
			return true
		})
		if stopped {
			return
		}
		for _, sym := range o.added {
			if !yield(sym) {
				return
			}
		}
	}
}

// Neighbors returns the visible incident edges: the delta first, then
// surviving base edges.
func (o *Overlay) Neighbors(id string, dir graph.Direction) func(yield func(graph.Edge) bool) {
	return func(yield func(graph.Edge) bool) {
		if !o.symbolVisible(id) {
			return
		}

		if dir == graph.DirectionOut || dir == graph.DirectionBoth {
			for _, e := range o.addedOut[id] {
				if !o.deltaEdgeVisible(e) {
					continue
				}
				if !yield(e) {
					return
				}
			}
		}
		if dir == graph.DirectionIn || dir == graph.DirectionBoth {
			for _, e := range o.addedIn[id] {
				if !o.deltaEdgeVisible(e) {
					continue
				}
				if dir == graph.DirectionBoth && e.SourceID == e.TargetID {
					continue // already yielded on the outgoing pass
				}
				if !yield(e) {
					return
				}
			}
		}

		o.base.Neighbors(id, dir)(func(e graph.Edge) bool {
			if !o.baseEdgeVisible(e) {
				return true
			}
			return yield(e)
		})
	}
}

// SymbolCount returns the number of visible symbols.
func (o *Overlay) SymbolCount() int {
	return o.base.SymbolCount() - len(o.removed) + len(o.added)
}

// EdgeCount returns the number of visible distinct directed edges.
func (o *Overlay) EdgeCount() int {
	return o.survivingBaseEdge + o.addedEdgeCount
}

// Fingerprint combines the base fingerprint with an order-independent
// hash of the delta, so distinct edits over the same base never share a
// cached analysis.
func (o *Overlay) Fingerprint() string {
	var h uint64
	for id := range o.added {
		h ^= fnvFold("+" + id)
	}
	for id := range o.removed {
		h ^= fnvFold("-" + id)
	}
	for _, edges := range o.addedOut {
		for _, e := range edges {
			h ^= fnvFold("e:" + e.SourceID + ">" + e.TargetID + ":" + e.Kind.String())
		}
	}
	return fmt.Sprintf("%s|edit:v%d:e%d:h%x",
		o.base.Fingerprint(), o.SymbolCount(), o.EdgeCount(), h)
}

// fnvFold hashes one delta item with FNV-1a.
func fnvFold(s string) uint64 {
	var f uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		f ^= uint64(s[i])
		f *= 1099511628211
	}
	return f
}

// Interface conformance check.
var _ graph.View = (*Overlay)(nil)
