// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package invariant

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/AleutianAI/topology/graph"
	"github.com/AleutianAI/topology/layer"
)

// ErrNilView is returned when Analyze is given a nil view.
var ErrNilView = errors.New("analysis requires a non-nil graph view")

// Options configures analysis behavior.
type Options struct {
	// TriangleVertexCap bounds brute-force triangle counting. Views with
	// more symbols skip the count and set TrianglesCapped on the report.
	// Zero or negative disables the cap.
	TriangleVertexCap int
}

// Option is a functional option for configuring analysis.
type Option func(*Options)

// WithTriangleVertexCap overrides DefaultTriangleVertexCap.
func WithTriangleVertexCap(n int) Option {
	return func(o *Options) {
		o.TriangleVertexCap = n
	}
}

// analysis is the per-call working state: dense indexing plus the
// deduplicated edge structures every metric reads from.
type analysis struct {
	ids     []string
	indexOf map[string]int
	symbols []graph.Symbol

	// outgoing holds sorted, deduplicated successor indexes per node,
	// self-loops excluded (tracked separately in selfLoop).
	outgoing [][]int
	selfLoop []bool

	// directedPairs counts distinct ordered (source, target) pairs,
	// self-loops excluded. Input to the coupling score.
	directedPairs int

	// undirectedEdges counts distinct unordered pairs, one per self-loop
	// included. Input to betti_1.
	undirectedEdges int

	uf *unionFind
}

// Analyze computes the invariant report for a graph view.
//
// Description:
//
//	Runs every metric in one pass family over a deduplicated edge
//	snapshot: weak components via union-find (betti_0), independent
//	cycle count (betti_1), strongly connected components via iterative
//	Tarjan (cycles_detected), triangle count, directed coupling density,
//	layer violations against cfg, and the composite solid score.
//
//	The analysis never mutates the view. With a frozen view and a fixed
//	cfg the report is fully deterministic: slices are produced in sorted
//	order, so two calls yield byte-identical JSON.
//
// Inputs:
//
//	ctx - Context for tracing. Analysis is bounded work and is not
//	      cancelled mid-flight.
//	view - The graph or subgraph to analyze. Must be non-nil.
//	cfg - Optional layer configuration. Nil disables layer checking;
//	      LayerViolations is then always empty and the solid score
//	      carries no violation penalty.
//
// Outputs:
//
//	*Report - The computed metrics. Never nil on success.
//	error - ErrNilView if view is nil.
//
// Thread Safety: safe for concurrent calls over shared frozen views.
//
// Complexity: O(V + E) for components and cycles, O(sum deg^2) for
// triangles (capped), O(E) for layer checks.
func Analyze(ctx context.Context, view graph.View, cfg *layer.Config, opts ...Option) (*Report, error) {
	if view == nil {
		return nil, ErrNilView
	}

	options := Options{TriangleVertexCap: DefaultTriangleVertexCap}
	for _, opt := range opts {
		opt(&options)
	}

	ctx, span := startAnalyzeSpan(ctx, view)
	defer span.End()
	start := time.Now()

	a := newAnalysis(view)
	report := &Report{
		Betti0:          a.betti0(),
		CyclesDetected:  a.cycles(),
		LayerViolations: make([]LayerViolation, 0),
	}
	report.Betti1 = a.betti1(report.Betti0)
	report.TriangleCount, report.TrianglesCapped = a.triangles(options.TriangleVertexCap)
	report.CouplingScore = a.coupling()
	if cfg != nil {
		report.LayerViolations = a.layerViolations(cfg, report.CyclesDetected)
	}
	report.SolidScore = solidScore(report.Betti1, report.CouplingScore, len(report.LayerViolations))

	setAnalyzeSpanResult(span, report)
	recordAnalyzeMetrics(ctx, time.Since(start), report)
	return report, nil
}

// newAnalysis snapshots the view into dense-index edge structures.
func newAnalysis(view graph.View) *analysis {
	a := &analysis{indexOf: make(map[string]int, view.SymbolCount())}

	view.Symbols()(func(sym graph.Symbol) bool {
		a.ids = append(a.ids, sym.ID)
		return true
	})
	sort.Strings(a.ids)

	n := len(a.ids)
	a.symbols = make([]graph.Symbol, n)
	a.outgoing = make([][]int, n)
	a.selfLoop = make([]bool, n)
	a.uf = newUnionFind(n)
	for i, id := range a.ids {
		a.indexOf[id] = i
		sym, _ := view.Symbol(id)
		a.symbols[i] = sym
	}

	// Dedupe edges across kinds: one ordered pair per (source, target).
	seen := make(map[[2]int]struct{})
	for u, id := range a.ids {
		view.Neighbors(id, graph.DirectionOut)(func(e graph.Edge) bool {
			v, ok := a.indexOf[e.TargetID]
			if !ok {
				return true
			}
			if v == u {
				if !a.selfLoop[u] {
					a.selfLoop[u] = true
					a.undirectedEdges++
				}
				return true
			}
			if _, dup := seen[[2]int{u, v}]; dup {
				return true
			}
			seen[[2]int{u, v}] = struct{}{}
			a.outgoing[u] = append(a.outgoing[u], v)
			a.directedPairs++

			// Count the unordered pair once even when both directions exist.
			if _, reverse := seen[[2]int{v, u}]; !reverse {
				a.undirectedEdges++
			}
			a.uf.union(u, v)
			return true
		})
	}
	for _, succ := range a.outgoing {
		sort.Ints(succ)
	}
	return a
}

// betti0 returns the number of weakly connected components.
func (a *analysis) betti0() int {
	return a.uf.components
}

// betti1 returns the independent cycle count of the undirected 1-complex:
// E - V + betti_0 over distinct undirected edges.
func (a *analysis) betti1(betti0 int) int {
	return a.undirectedEdges - len(a.ids) + betti0
}

// cycles returns one sorted ID slice per SCC of size > 1 or self-loop,
// ordered by length descending then by first ID.
func (a *analysis) cycles() [][]string {
	out := make([][]string, 0)
	for _, scc := range stronglyConnectedComponents(a.outgoing) {
		if len(scc) == 1 && !a.selfLoop[scc[0]] {
			continue
		}
		cycle := make([]string, len(scc))
		for i, idx := range scc {
			cycle[i] = a.ids[idx]
		}
		sort.Strings(cycle)
		out = append(out, cycle)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i][0] < out[j][0]
	})
	return out
}

// triangles counts unordered triples with all three pairwise edges
// present, direction ignored. Returns (0, true) when the view exceeds
// the vertex cap.
func (a *analysis) triangles(vertexCap int) (int, bool) {
	n := len(a.ids)
	if vertexCap > 0 && n > vertexCap {
		return 0, true
	}

	// Undirected neighbor sets restricted to higher indexes, so each
	// triangle is counted exactly once at its lowest vertex pair.
	higher := make([]map[int]struct{}, n)
	for i := range higher {
		higher[i] = make(map[int]struct{})
	}
	for u, succ := range a.outgoing {
		for _, v := range succ {
			lo, hi := u, v
			if lo > hi {
				lo, hi = hi, lo
			}
			higher[lo][hi] = struct{}{}
		}
	}

	count := 0
	for u := 0; u < n; u++ {
		for v := range higher[u] {
			for w := range higher[v] {
				if _, ok := higher[u][w]; ok {
					count++
				}
			}
		}
	}
	return count, false
}

// coupling returns the directed edge density: distinct ordered pairs
// over V*(V-1). Zero for V <= 1.
func (a *analysis) coupling() float64 {
	n := len(a.ids)
	if n <= 1 {
		return 0
	}
	return float64(a.directedPairs) / float64(n*(n-1))
}

// layerViolations checks every distinct directed pair against the layer
// configuration, then appends one cycle violation per detected cycle.
//
// Symbols with no layer assignment never produce upstream violations.
// Output order is deterministic: upstream violations sorted by
// (from_id, to_id), then cycle violations in cycle order.
func (a *analysis) layerViolations(cfg *layer.Config, cycles [][]string) []LayerViolation {
	out := make([]LayerViolation, 0)

	layers := make([]layer.Layer, len(a.ids))
	assigned := make([]bool, len(a.ids))
	for i, sym := range a.symbols {
		layers[i], assigned[i] = cfg.LayerOf(sym)
	}

	for u := range a.ids {
		if !assigned[u] {
			continue
		}
		for _, v := range a.outgoing[u] {
			if !assigned[v] {
				continue
			}
			if cfg.Allowed(layers[u], layers[v]) {
				continue
			}
			out = append(out, LayerViolation{
				FromID:    a.ids[u],
				FromLayer: layers[u].Name,
				ToID:      a.ids[v],
				ToLayer:   layers[v].Name,
				Kind:      ViolationUpstreamDependency,
			})
		}
	}

	// One violation per cycle, anchored at the lexicographically smallest
	// intra-cycle edge so repeated runs report the same representative.
	for _, cycle := range cycles {
		if v, ok := a.cycleRepresentative(cycle, layers, assigned); ok {
			out = append(out, v)
		}
	}
	return out
}

// cycleRepresentative picks the smallest (source, target) edge whose
// endpoints both lie in the cycle.
func (a *analysis) cycleRepresentative(cycle []string, layers []layer.Layer, assigned []bool) (LayerViolation, bool) {
	members := make(map[int]struct{}, len(cycle))
	for _, id := range cycle {
		if idx, ok := a.indexOf[id]; ok {
			members[idx] = struct{}{}
		}
	}

	bestFrom, bestTo := -1, -1
	for _, id := range cycle {
		u := a.indexOf[id]
		if a.selfLoop[u] && (bestFrom == -1 || a.ids[u] < a.ids[bestFrom]) {
			bestFrom, bestTo = u, u
		}
		for _, v := range a.outgoing[u] {
			if _, ok := members[v]; !ok {
				continue
			}
			if bestFrom == -1 ||
				a.ids[u] < a.ids[bestFrom] ||
				(a.ids[u] == a.ids[bestFrom] && a.ids[v] < a.ids[bestTo]) {
				bestFrom, bestTo = u, v
			}
		}
	}
	if bestFrom == -1 {
		return LayerViolation{}, false
	}

	v := LayerViolation{
		FromID: a.ids[bestFrom],
		ToID:   a.ids[bestTo],
		Kind:   ViolationCycle,
	}
	if assigned[bestFrom] {
		v.FromLayer = layers[bestFrom].Name
	}
	if bestTo >= 0 && assigned[bestTo] {
		v.ToLayer = layers[bestTo].Name
	}
	return v, true
}

// solidScore applies the pinned penalty weights, flooring at 0.
func solidScore(betti1 int, coupling float64, violations int) float64 {
	cyclePenalty := min(cycleWeight*float64(betti1), cyclePenaltyCap)
	couplingPenalty := min(couplingWeight*coupling, couplingPenaltyCap)
	layerPenalty := min(violationWeight*float64(violations), violationPenalty)

	score := 100.0 - cyclePenalty - couplingPenalty - layerPenalty
	if score < 0 {
		return 0
	}
	return score
}
