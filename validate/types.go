// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validate virtually applies proposed edits against a symbol
// graph and red-flags the ones that would damage its topology.
//
// Each validation builds a private copy-on-write overlay of the frozen
// base graph, re-analyzes it, and compares before and after. The base is
// never mutated, so any number of candidate edits can be validated
// concurrently and the outcomes are independent of ordering. Validation
// never raises for malformed edits: failures are folded into the
// ValidationResult so a voting layer always receives a comparable value
// per candidate.
package validate

import (
	"encoding/json"
	"fmt"

	"github.com/AleutianAI/topology/graph"
	"github.com/AleutianAI/topology/invariant"
)

// Operation describes what an edit does to a file.
type Operation string

const (
	// OperationCreate adds a new file.
	OperationCreate Operation = "create"

	// OperationModify changes an existing file.
	OperationModify Operation = "modify"

	// OperationDelete removes a file.
	OperationDelete Operation = "delete"
)

// Valid reports whether the operation is a known value.
func (o Operation) Valid() bool {
	switch o {
	case OperationCreate, OperationModify, OperationDelete:
		return true
	}
	return false
}

// Edit is one proposed change to one file, expressed as its effect on
// the symbol graph.
type Edit struct {
	// FilePath is the file the edit touches.
	FilePath string `json:"file_path"`

	// Operation is what the edit does to the file.
	Operation Operation `json:"operation"`

	// NewSymbols are symbols the edit introduces.
	NewSymbols []graph.Symbol `json:"new_symbols,omitempty"`

	// NewEdges are dependencies the edit introduces. Endpoints may
	// reference base symbols or NewSymbols from any edit in the batch.
	NewEdges []graph.Edge `json:"new_edges,omitempty"`

	// RemovedSymbolIDs are base symbols the edit deletes, along with all
	// their incident edges.
	RemovedSymbolIDs []string `json:"removed_symbol_ids,omitempty"`
}

// State tracks a validation through its lifecycle.
//
// Pending -> {CollisionRejected | Analyzed} -> {Safe | RedFlagged}.
// CollisionRejected, Safe, and RedFlagged are terminal; there are no
// internal retries.
type State int

const (
	// StatePending indicates validation has not completed.
	StatePending State = iota

	// StateCollisionRejected indicates a new symbol ID collided with an
	// existing one; analysis was skipped.
	StateCollisionRejected

	// StateAnalyzed indicates the overlay was analyzed (transient).
	StateAnalyzed

	// StateSafe indicates the edit preserves every invariant.
	StateSafe

	// StateRedFlagged indicates the edit must not be committed.
	StateRedFlagged
)

// stateNames maps State values to strings.
var stateNames = map[State]string{
	StatePending:           "pending",
	StateCollisionRejected: "collision_rejected",
	StateAnalyzed:          "analyzed",
	StateSafe:              "safe",
	StateRedFlagged:        "red_flagged",
}

// String returns the string representation of the State.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON implements json.Marshaler for State.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements json.Unmarshaler for State.
func (s *State) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("State must be a string: %w", err)
	}
	for state, name := range stateNames {
		if name == str {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown validation state %q", str)
}

// ValidationResult is the verdict on one candidate edit batch.
//
// A result is always produced, even for malformed input: internal
// failures land in Errors with IsSafe false rather than surfacing as a
// raised error, so results stay comparable across candidates.
type ValidationResult struct {
	// IsSafe is true when the edit introduces no cycles, no new layer
	// violations, and no errors occurred.
	IsSafe bool `json:"is_safe"`

	// OriginalBetti1 is the base graph's independent cycle count.
	OriginalBetti1 int `json:"original_betti_1"`

	// NewBetti1 is the overlay's independent cycle count.
	NewBetti1 int `json:"new_betti_1"`

	// IntroducesCycles is true when NewBetti1 exceeds the baseline
	// (the supplied previous count, or OriginalBetti1 when absent).
	IntroducesCycles bool `json:"introduces_cycles"`

	// CyclesDetected lists the overlay's cycles after the edit.
	CyclesDetected [][]string `json:"cycles_detected"`

	// LayerViolations lists violations present in the overlay but not in
	// the base. Pre-existing violations are tolerated and omitted.
	LayerViolations []invariant.LayerViolation `json:"layer_violations"`

	// NewSymbols lists the IDs the edit introduces.
	NewSymbols []string `json:"new_symbols"`

	// NewDependencies lists the edges the edit introduces, as
	// "source -> target" strings.
	NewDependencies []string `json:"new_dependencies"`

	// CrossFileIssues lists new edges whose endpoints sit in different
	// files. Each entry is mirrored into Warnings; never a failure.
	CrossFileIssues []string `json:"cross_file_issues"`

	// Warnings carries non-fatal observations.
	Warnings []string `json:"warnings"`

	// Errors carries failures that made the candidate unsafe.
	Errors []string `json:"errors"`

	// State is the terminal lifecycle state.
	State State `json:"state"`
}

// RedFlagged reports whether the edit must be rejected.
func (r *ValidationResult) RedFlagged() bool {
	return !r.IsSafe
}
