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
	"encoding/json"
	"fmt"
)

// SymbolKind indicates what type of code entity a symbol is.
type SymbolKind int

const (
	// SymbolKindUnknown indicates an unrecognized symbol type.
	SymbolKindUnknown SymbolKind = iota

	// SymbolKindFunction represents a free function or method.
	SymbolKindFunction

	// SymbolKindStruct represents a struct or record type.
	SymbolKindStruct

	// SymbolKindEnum represents an enumeration type.
	SymbolKindEnum

	// SymbolKindInterface represents an interface or trait.
	SymbolKindInterface

	// SymbolKindClass represents a class in class-based languages.
	SymbolKindClass

	// SymbolKindModule represents a module, package, or file-level unit.
	SymbolKindModule

	// SymbolKindConstant represents a named constant.
	SymbolKindConstant

	// SymbolKindType represents a type alias or other named type.
	SymbolKindType
)

// symbolKindNames maps SymbolKind values to their string representations.
var symbolKindNames = map[SymbolKind]string{
	SymbolKindUnknown:   "unknown",
	SymbolKindFunction:  "function",
	SymbolKindStruct:    "struct",
	SymbolKindEnum:      "enum",
	SymbolKindInterface: "interface",
	SymbolKindClass:     "class",
	SymbolKindModule:    "module",
	SymbolKindConstant:  "const",
	SymbolKindType:      "type",
}

// String returns the string representation of the SymbolKind.
//
// Returns "unknown" for unrecognized values.
func (k SymbolKind) String() string {
	if name, ok := symbolKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON implements json.Marshaler for SymbolKind.
//
// Serializes the kind as a JSON string (e.g., "function") rather than
// a number for better readability and forward compatibility.
func (k SymbolKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON implements json.Unmarshaler for SymbolKind.
//
// Accepts both string values (e.g., "function") and numeric values
// for backward compatibility.
func (k *SymbolKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*k = ParseSymbolKind(s)
		return nil
	}

	var i int
	if err := json.Unmarshal(data, &i); err != nil {
		return fmt.Errorf("SymbolKind must be string or int: %w", err)
	}
	*k = SymbolKind(i)
	return nil
}

// ParseSymbolKind converts a string to a SymbolKind.
//
// Returns SymbolKindUnknown if the string is not recognized.
// "trait" is accepted as an alias for "interface".
func ParseSymbolKind(s string) SymbolKind {
	if s == "trait" {
		return SymbolKindInterface
	}
	for kind, name := range symbolKindNames {
		if name == s {
			return kind
		}
	}
	return SymbolKindUnknown
}

// EdgeKind defines the type of dependency relation between two symbols.
type EdgeKind int

const (
	// EdgeKindUnknown indicates an unrecognized relation type.
	EdgeKindUnknown EdgeKind = iota

	// EdgeKindCalls indicates a function/method calls another function/method.
	EdgeKindCalls

	// EdgeKindImports indicates a module imports another module.
	EdgeKindImports

	// EdgeKindImplements indicates a type implements an interface.
	EdgeKindImplements

	// EdgeKindReferences indicates a symbol references another symbol (general).
	EdgeKindReferences

	// EdgeKindExtends indicates a type extends or embeds another type.
	EdgeKindExtends

	// NumEdgeKinds is the total number of edge kinds (for array sizing).
	NumEdgeKinds
)

// edgeKindNames maps EdgeKind values to their string representations.
var edgeKindNames = map[EdgeKind]string{
	EdgeKindUnknown:    "unknown",
	EdgeKindCalls:      "calls",
	EdgeKindImports:    "imports",
	EdgeKindImplements: "implements",
	EdgeKindReferences: "references",
	EdgeKindExtends:    "extends",
}

// String returns the string representation of the EdgeKind.
func (k EdgeKind) String() string {
	if name, ok := edgeKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON implements json.Marshaler for EdgeKind.
func (k EdgeKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON implements json.Unmarshaler for EdgeKind.
//
// Accepts both string and numeric values.
func (k *EdgeKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*k = ParseEdgeKind(s)
		return nil
	}

	var i int
	if err := json.Unmarshal(data, &i); err != nil {
		return fmt.Errorf("EdgeKind must be string or int: %w", err)
	}
	*k = EdgeKind(i)
	return nil
}

// ParseEdgeKind converts a string to an EdgeKind.
//
// Returns EdgeKindUnknown if the string is not recognized.
func ParseEdgeKind(s string) EdgeKind {
	for kind, name := range edgeKindNames {
		if name == s {
			return kind
		}
	}
	return EdgeKindUnknown
}

// Symbol represents a named code entity extracted by the source-extraction
// collaborator.
//
// Symbols form the nodes of the dependency graph. Identity is the ID; the
// extraction layer is responsible for a stable scheme (for example
// "file_path::qualified_name") so identity survives rebuilds.
//
// Symbols are immutable values. The graph stores and returns copies.
type Symbol struct {
	// ID is the stable unique identifier for this symbol.
	// Example: "handlers/agent.go::HandleAgent"
	ID string `json:"id"`

	// Name is the symbol's identifier as it appears in source code.
	Name string `json:"name"`

	// Kind indicates what type of entity this is (function, struct, etc.).
	Kind SymbolKind `json:"kind"`

	// FilePath is the path to the containing file, relative to project root.
	FilePath string `json:"file_path"`

	// ByteStart is the byte offset where the symbol definition starts.
	ByteStart int `json:"byte_start"`

	// ByteEnd is the byte offset where the symbol definition ends (exclusive).
	ByteEnd int `json:"byte_end"`

	// StartLine is the 1-indexed line number where the definition starts.
	StartLine int `json:"start_line"`

	// EndLine is the 1-indexed line number where the definition ends.
	EndLine int `json:"end_line"`
}

// Validate checks structural integrity of the symbol.
//
// Returns ErrInvalidSymbol (wrapped with detail) if the ID is empty,
// the byte range is inverted, or the line range is inverted.
func (s Symbol) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: empty ID", ErrInvalidSymbol)
	}
	if s.ByteEnd < s.ByteStart {
		return fmt.Errorf("%w: %s: byte range [%d, %d) is inverted",
			ErrInvalidSymbol, s.ID, s.ByteStart, s.ByteEnd)
	}
	if s.EndLine < s.StartLine {
		return fmt.Errorf("%w: %s: line range %d-%d is inverted",
			ErrInvalidSymbol, s.ID, s.StartLine, s.EndLine)
	}
	return nil
}

// Edge represents a directed, weighted dependency relation between two
// symbols.
//
// Duplicate edges with identical (SourceID, TargetID, Kind) merge on
// insertion by keeping the maximum strength. Strength is a continuous
// confidence/coupling weight in [0, 1] assigned by the extraction layer.
type Edge struct {
	// SourceID is the ID of the depending symbol.
	SourceID string `json:"source_id"`

	// TargetID is the ID of the depended-upon symbol.
	TargetID string `json:"target_id"`

	// Kind is the relation type (calls, imports, etc.).
	Kind EdgeKind `json:"kind"`

	// Strength is the dependency weight in [0, 1].
	Strength float64 `json:"strength"`
}

// Validate checks structural integrity of the edge.
func (e Edge) Validate() error {
	if e.SourceID == "" || e.TargetID == "" {
		return fmt.Errorf("%w: edge %q -> %q has an empty endpoint",
			ErrInvalidSymbol, e.SourceID, e.TargetID)
	}
	if e.Strength < 0 || e.Strength > 1 {
		return fmt.Errorf("%w: %s -> %s (%s): %g",
			ErrInvalidStrength, e.SourceID, e.TargetID, e.Kind, e.Strength)
	}
	return nil
}

// edgeKey identifies an edge for duplicate merging.
type edgeKey struct {
	source string
	target string
	kind   EdgeKind
}

// Direction selects which adjacency lists Neighbors traverses.
type Direction int

const (
	// DirectionOut follows edges where the symbol is the source.
	DirectionOut Direction = iota

	// DirectionIn follows edges where the symbol is the target.
	DirectionIn

	// DirectionBoth follows edges in both directions.
	DirectionBoth
)

// String returns the string representation of the Direction.
func (d Direction) String() string {
	switch d {
	case DirectionOut:
		return "out"
	case DirectionIn:
		return "in"
	case DirectionBoth:
		return "both"
	default:
		return "unknown"
	}
}

// View is a read-only projection of a symbol graph.
//
// Both SymbolGraph and derived structures (Subgraph projections, the
// validator's copy-on-write overlay) implement View, so analysis code is
// agnostic about whether it is looking at the canonical graph, a bounded
// neighborhood, or a hypothetical post-edit state.
//
// Implementations MUST be safe for concurrent readers and MUST NOT be
// mutated while a View on them is in use.
type View interface {
	// Symbol returns the symbol with the given ID, if present.
	Symbol(id string) (Symbol, bool)

	// Symbols returns a restartable iterator over all symbols.
	// Iteration order is unspecified.
	Symbols() func(yield func(Symbol) bool)

	// Neighbors returns a restartable iterator over the edges incident to
	// the given symbol in the given direction. For DirectionBoth, outgoing
	// edges are yielded before incoming ones; a self-loop is yielded once.
	// Unknown IDs yield nothing.
	Neighbors(id string, dir Direction) func(yield func(Edge) bool)

	// SymbolCount returns the number of symbols in the view.
	SymbolCount() int

	// EdgeCount returns the number of distinct directed edges in the view.
	EdgeCount() int

	// Fingerprint returns a cheap identity string for cache keying.
	// Two views with different content have different fingerprints;
	// a view's fingerprint is stable for its lifetime.
	Fingerprint() string
}
