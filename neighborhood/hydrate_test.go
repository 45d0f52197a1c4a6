// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package neighborhood

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHydrator returns canned text per file path.
type fakeHydrator struct {
	byPath map[string]string
	errs   map[string]error
}

func (f *fakeHydrator) ReadRange(filePath string, start, end int) ([]byte, error) {
	if err, ok := f.errs[filePath]; ok {
		return nil, err
	}
	text, ok := f.byPath[filePath]
	if !ok {
		return nil, os.ErrNotExist
	}
	return []byte(text)[start:end], nil
}

func TestHydrate_FillsCode(t *testing.T) {
	mc := &MiniCodebase{
		Symbols: []MiniSymbol{
			{ID: "a", FilePath: "pkg/a.go", ByteStart: 0, ByteEnd: 4},
			{ID: "b", FilePath: "pkg/b.go", ByteStart: 5, ByteEnd: 9},
		},
	}
	h := &fakeHydrator{byPath: map[string]string{
		"pkg/a.go": "func A() {}",
		"pkg/b.go": "var  bbbb = 1",
	}}

	require.NoError(t, mc.Hydrate(h))
	assert.Equal(t, "func", mc.Symbols[0].Code)
	assert.Equal(t, "bbbb", mc.Symbols[1].Code)
}

func TestHydrate_CollectsFailuresWithoutAborting(t *testing.T) {
	readErr := errors.New("disk on fire")
	mc := &MiniCodebase{
		Symbols: []MiniSymbol{
			{ID: "bad", FilePath: "gone.go", ByteStart: 0, ByteEnd: 1},
			{ID: "good", FilePath: "pkg/a.go", ByteStart: 0, ByteEnd: 4},
		},
	}
	h := &fakeHydrator{
		byPath: map[string]string{"pkg/a.go": "func A() {}"},
		errs:   map[string]error{"gone.go": readErr},
	}

	err := mc.Hydrate(h)
	require.ErrorIs(t, err, readErr)
	assert.Empty(t, mc.Symbols[0].Code)
	assert.Equal(t, "func", mc.Symbols[1].Code, "later symbols still hydrate")
}

func TestFileHydrator_ReadRange(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pkg"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "pkg", "a.go"), []byte("package pkg"), 0o644))

	h := &FileHydrator{Root: root}

	text, err := h.ReadRange("pkg/a.go", 8, 11)
	require.NoError(t, err)
	assert.Equal(t, "pkg", string(text))
}

func TestFileHydrator_RangeBeyondFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("short"), 0o644))

	h := &FileHydrator{Root: root}

	_, err := h.ReadRange("a.go", 0, 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestFileHydrator_InvalidRange(t *testing.T) {
	h := &FileHydrator{Root: t.TempDir()}
	_, err := h.ReadRange("a.go", 5, 2)
	require.Error(t, err)
}
