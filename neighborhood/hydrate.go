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
	"fmt"
	"os"
	"path/filepath"
)

// Hydrator supplies source text for symbol byte ranges.
//
// Assembly never reads files; this is the collaborator boundary where
// disk access happens. Implementations must be safe for concurrent use.
type Hydrator interface {
	// ReadRange returns the bytes [start, end) of the given file.
	ReadRange(filePath string, start, end int) ([]byte, error)
}

// Hydrate fills MiniSymbol.Code for every member using the given
// hydrator.
//
// Per-symbol read failures do not abort hydration: the symbol's Code is
// left empty and all failures are joined into the returned error. A nil
// return means every member hydrated.
func (mc *MiniCodebase) Hydrate(h Hydrator) error {
	var errs []error
	for i := range mc.Symbols {
		sym := &mc.Symbols[i]
		text, err := h.ReadRange(sym.FilePath, sym.ByteStart, sym.ByteEnd)
		if err != nil {
			errs = append(errs, fmt.Errorf("hydrate %s: %w", sym.ID, err))
			continue
		}
		sym.Code = string(text)
	}
	return errors.Join(errs...)
}

// FileHydrator reads byte ranges from files under a root directory.
type FileHydrator struct {
	// Root is prepended to symbol file paths.
	Root string
}

// ReadRange implements Hydrator.
func (f *FileHydrator) ReadRange(filePath string, start, end int) ([]byte, error) {
	if start < 0 || end < start {
		return nil, fmt.Errorf("invalid byte range [%d, %d) for %s", start, end, filePath)
	}

	data, err := os.ReadFile(filepath.Join(f.Root, filePath))
	if err != nil {
		return nil, err
	}
	if end > len(data) {
		return nil, fmt.Errorf("byte range [%d, %d) exceeds %s (%d bytes)",
			start, end, filePath, len(data))
	}
	return data[start:end], nil
}

// Interface conformance check.
var _ Hydrator = (*FileHydrator)(nil)
