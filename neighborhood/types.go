// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package neighborhood assembles bounded, seed-driven slices of the
// symbol graph for downstream code-generation agents.
//
// Each agent receives a MiniCodebase: the seed symbols plus everything
// reachable within a hop budget over sufficiently strong edges, annotated
// with importance scores, cycle membership, and the invariants the agent
// must not break. Assembly is metadata-only; source text is attached
// afterwards through a Hydrator so graph traversal never touches disk.
package neighborhood

import (
	"errors"

	"github.com/AleutianAI/topology/graph"
)

// Sentinel errors for neighborhood assembly.
var (
	// ErrEmptySeeds is returned when no seed symbols are given.
	ErrEmptySeeds = errors.New("assembly requires at least one seed symbol")

	// ErrInvalidDepth is returned for a negative hop budget.
	ErrInvalidDepth = errors.New("depth must be >= 0")

	// ErrInvalidThreshold is returned for a strength threshold outside [0, 1].
	ErrInvalidThreshold = errors.New("strength threshold must be in [0, 1]")

	// ErrSeedNotFound is returned when a seed ID is absent from the graph.
	ErrSeedNotFound = errors.New("seed symbol not found in graph")
)

// MiniSymbol is one symbol in an assembled neighborhood.
type MiniSymbol struct {
	// ID is the symbol's stable identifier.
	ID string `json:"id"`

	// Name is the symbol's source-level name.
	Name string `json:"name"`

	// FilePath is the containing file, relative to project root.
	FilePath string `json:"file_path"`

	// Kind is the symbol's entity kind.
	Kind graph.SymbolKind `json:"kind"`

	// Code is the symbol's source text. Empty until hydrated.
	Code string `json:"code,omitempty"`

	// ByteStart and ByteEnd delimit the definition in the file.
	ByteStart int `json:"byte_start"`
	ByteEnd   int `json:"byte_end"`

	// Importance scores the symbol's connectivity inside the
	// neighborhood, normalized to [0, 1] with the best-connected symbol
	// at 1.0.
	Importance float64 `json:"importance"`

	// InCycle is true if the symbol participates in a dependency cycle
	// within the neighborhood.
	InCycle bool `json:"in_cycle"`
}

// Invariants captures the topological constraints an agent editing this
// neighborhood must preserve.
type Invariants struct {
	// Betti1 is the neighborhood's independent cycle count at assembly
	// time. Edits must not increase it.
	Betti1 int `json:"betti_1"`

	// ForbiddenDependencies lists disallowed layer-to-layer directions,
	// e.g. "Data -> UI".
	ForbiddenDependencies []string `json:"forbidden_dependencies"`

	// LayerConstraints lists the human-readable layer rules in force.
	LayerConstraints []string `json:"layer_constraints"`

	// Notes carries free-form warnings (existing cycles, existing
	// violations) the agent should know about.
	Notes []string `json:"notes"`
}

// Metadata records how the neighborhood was assembled.
type Metadata struct {
	// Depth is the hop budget used.
	Depth int `json:"depth"`

	// StrengthThreshold is the minimum edge strength traversed.
	StrengthThreshold float64 `json:"strength_threshold"`

	// TotalSymbolsInGraph is the size of the full graph the neighborhood
	// was cut from.
	TotalSymbolsInGraph int `json:"total_symbols_in_graph"`

	// SolidScore is the neighborhood's health score at assembly time.
	SolidScore float64 `json:"solid_score"`

	// IssueID correlates the assembly with the task that requested it.
	// Generated if the caller does not supply one.
	IssueID string `json:"issue_id"`
}

// MiniCodebase is a self-contained slice of the graph handed to one
// code-generation agent.
type MiniCodebase struct {
	// SeedSymbols are the requested entry points, in request order.
	SeedSymbols []string `json:"seed_symbols"`

	// Symbols are the neighborhood members, sorted by importance
	// descending then ID ascending.
	Symbols []MiniSymbol `json:"symbols"`

	// Files are the distinct files covered, sorted.
	Files []string `json:"files"`

	// Invariants are the constraints to preserve.
	Invariants Invariants `json:"invariants"`

	// Metadata records the assembly parameters.
	Metadata Metadata `json:"metadata"`
}

// SymbolIDs returns the member IDs in symbol order.
func (mc *MiniCodebase) SymbolIDs() []string {
	out := make([]string, len(mc.Symbols))
	for i, s := range mc.Symbols {
		out[i] = s.ID
	}
	return out
}

// Contains reports whether the neighborhood includes the given symbol.
func (mc *MiniCodebase) Contains(id string) bool {
	for _, s := range mc.Symbols {
		if s.ID == id {
			return true
		}
	}
	return false
}
