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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymbolKind_JSONIsString(t *testing.T) {
	data, err := json.Marshal(SymbolKindInterface)
	require.NoError(t, err)
	assert.Equal(t, `"interface"`, string(data))

	var k SymbolKind
	require.NoError(t, json.Unmarshal([]byte(`"struct"`), &k))
	assert.Equal(t, SymbolKindStruct, k)

	// Numeric form is accepted for older snapshots.
	require.NoError(t, json.Unmarshal([]byte(`1`), &k))
	assert.Equal(t, SymbolKindFunction, k)
}

func TestParseSymbolKind_TraitAlias(t *testing.T) {
	assert.Equal(t, SymbolKindInterface, ParseSymbolKind("trait"))
	assert.Equal(t, SymbolKindUnknown, ParseSymbolKind("gibberish"))
}

func TestEdgeKind_JSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(EdgeKindImplements)
	require.NoError(t, err)
	assert.Equal(t, `"implements"`, string(data))

	var k EdgeKind
	require.NoError(t, json.Unmarshal(data, &k))
	assert.Equal(t, EdgeKindImplements, k)
}

func TestSymbol_Validate(t *testing.T) {
	require.NoError(t, testSymbol("ok").Validate())

	badLines := testSymbol("lines")
	badLines.StartLine, badLines.EndLine = 9, 3
	require.ErrorIs(t, badLines.Validate(), ErrInvalidSymbol)
}

func TestEdge_Validate(t *testing.T) {
	require.NoError(t, Edge{
		SourceID: "a", TargetID: "b", Kind: EdgeKindCalls, Strength: 0.5,
	}.Validate())

	require.ErrorIs(t, Edge{
		SourceID: "", TargetID: "b", Kind: EdgeKindCalls, Strength: 0.5,
	}.Validate(), ErrInvalidSymbol)

	require.ErrorIs(t, Edge{
		SourceID: "a", TargetID: "b", Kind: EdgeKindCalls, Strength: -0.1,
	}.Validate(), ErrInvalidStrength)
}
