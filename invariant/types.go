// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package invariant computes topological health metrics over a symbol
// graph view.
//
// The analyzer is a pure function of (view, layer config): Betti numbers,
// cycle detection via strongly connected components, triangle count,
// coupling density, architectural layer violations, and a composite solid
// score. Repeated calls on the same view yield identical reports, and no
// call ever mutates the view, so any number of analyses may run
// concurrently over a shared frozen graph.
package invariant

import (
	"encoding/json"
	"fmt"
)

// Solid score weights.
//
// These constants are a fixed implementation choice so that scores are
// reproducible across runs and pinnable in tests:
//
//	solid = 100 - min(5*betti_1, 40)
//	            - min(50*coupling, 30)
//	            - min(10*len(layer_violations), 30)
//
// floored at 0. A tree-shaped, decoupled, violation-free graph scores 100.
const (
	cycleWeight        = 5.0
	cyclePenaltyCap    = 40.0
	couplingWeight     = 50.0
	couplingPenaltyCap = 30.0
	violationWeight    = 10.0
	violationPenalty   = 30.0
)

// DefaultTriangleVertexCap bounds brute-force triangle counting.
//
// Triangle enumeration is quadratic in degree; at MiniCodebase scale it
// is cheap, but a whole-workspace graph can be large. Views above the
// cap skip the count (TrianglesCapped is set on the report).
const DefaultTriangleVertexCap = 4096

// ViolationKind classifies a layer violation.
type ViolationKind int

const (
	// ViolationUnknown indicates an unrecognized violation kind.
	ViolationUnknown ViolationKind = iota

	// ViolationUpstreamDependency indicates an edge pointing at a layer
	// the source layer is not allowed to depend on.
	ViolationUpstreamDependency

	// ViolationCycle indicates an edge participating in a dependency cycle.
	ViolationCycle
)

// violationKindNames maps ViolationKind values to strings.
var violationKindNames = map[ViolationKind]string{
	ViolationUnknown:            "unknown",
	ViolationUpstreamDependency: "upstream_dependency",
	ViolationCycle:              "cycle",
}

// String returns the string representation of the ViolationKind.
func (k ViolationKind) String() string {
	if name, ok := violationKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON implements json.Marshaler for ViolationKind.
func (k ViolationKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON implements json.Unmarshaler for ViolationKind.
func (k *ViolationKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("ViolationKind must be a string: %w", err)
	}
	for kind, name := range violationKindNames {
		if name == s {
			*k = kind
			return nil
		}
	}
	*k = ViolationUnknown
	return nil
}

// LayerViolation records a dependency edge crossing an architectural
// layer boundary in a disallowed direction, or participating in a cycle.
type LayerViolation struct {
	// FromID is the depending symbol.
	FromID string `json:"from_id"`

	// FromLayer is the depending symbol's layer name ("" if unassigned).
	FromLayer string `json:"from_layer"`

	// ToID is the depended-upon symbol.
	ToID string `json:"to_id"`

	// ToLayer is the depended-upon symbol's layer name ("" if unassigned).
	ToLayer string `json:"to_layer"`

	// Kind classifies the violation.
	Kind ViolationKind `json:"violation_kind"`
}

// Report is the output of one analysis: a pure function of the analyzed
// view and the layer configuration.
type Report struct {
	// Betti0 is the number of weakly connected components.
	Betti0 int `json:"betti_0"`

	// Betti1 is the first Betti number: the number of independent cycles
	// of the graph viewed as an undirected 1-complex,
	// E - V + Betti0 over distinct undirected edges.
	Betti1 int `json:"betti_1"`

	// TriangleCount is the number of unordered symbol triples with all
	// three pairwise edges present, direction ignored.
	TriangleCount int `json:"triangle_count"`

	// TrianglesCapped is true if the view exceeded the triangle vertex
	// cap and TriangleCount was skipped (reported as 0).
	TrianglesCapped bool `json:"triangles_capped,omitempty"`

	// CouplingScore is the directed edge density: distinct ordered
	// (source, target) pairs over V*(V-1). Zero for V <= 1.
	CouplingScore float64 `json:"coupling_score"`

	// SolidScore is the composite health score in [0, 100]; see the
	// weight constants for the exact formula.
	SolidScore float64 `json:"solid_score"`

	// CyclesDetected lists one entry per strongly connected component of
	// size > 1 (or self-loop). IDs within a cycle are sorted; cycles are
	// ordered by length descending, then by first ID.
	CyclesDetected [][]string `json:"cycles_detected"`

	// LayerViolations lists upstream-dependency violations plus one
	// cycle violation per detected cycle. Always empty when no layer
	// configuration is supplied.
	LayerViolations []LayerViolation `json:"layer_violations"`
}

// HasCycles reports whether any dependency cycle was detected.
func (r *Report) HasCycles() bool {
	return len(r.CyclesDetected) > 0
}

// InCycle returns the set of symbol IDs participating in any detected
// cycle.
func (r *Report) InCycle() map[string]bool {
	out := make(map[string]bool)
	for _, cycle := range r.CyclesDetected {
		for _, id := range cycle {
			out[id] = true
		}
	}
	return out
}
