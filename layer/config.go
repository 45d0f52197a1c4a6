// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package layer models the architectural layer configuration consumed by
// the invariant analyzer.
//
// A layer configuration is externally supplied project configuration: an
// ordered set of named layers, each with a numeric level and the set of
// lower levels it is allowed to depend on. Symbols are assigned to layers
// by file-path prefix. A missing configuration simply disables layer
// checking; betti and coupling metrics are computed either way.
package layer

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/topology/graph"
)

// Sentinel errors for layer configuration.
var (
	// ErrNoLayers is returned when a configuration defines no layers.
	ErrNoLayers = errors.New("layer config defines no layers")

	// ErrDuplicateLevel is returned when two layers share a level.
	ErrDuplicateLevel = errors.New("duplicate layer level")

	// ErrDuplicateName is returned when two layers share a name.
	ErrDuplicateName = errors.New("duplicate layer name")

	// ErrInvalidAllowedDep is returned when a layer's allowed_deps entry
	// is not a strictly lower, existing level.
	ErrInvalidAllowedDep = errors.New("allowed_deps entry must be a lower existing level")
)

// Layer describes one architectural layer.
type Layer struct {
	// Name is the human-readable layer name (e.g., "UI", "Logic", "Data").
	Name string `yaml:"name" json:"name" validate:"required"`

	// Level is the layer's position; lower levels sit closer to the user.
	Level int `yaml:"level" json:"level" validate:"gte=0"`

	// Paths lists file-path prefixes assigning symbols to this layer.
	// The longest matching prefix across all layers wins.
	Paths []string `yaml:"paths" json:"paths"`

	// AllowedDeps lists the lower levels this layer may depend on.
	// A layer may always depend on itself.
	AllowedDeps []int `yaml:"allowed_deps" json:"allowed_deps"`
}

// Config is an immutable, validated layer configuration.
//
// Thread Safety: Config is read-only after construction and safe for
// concurrent use.
type Config struct {
	layers  []Layer
	byLevel map[int]Layer
	byName  map[string]Layer
	allowed map[int]map[int]struct{}
}

// configFile is the YAML document shape for LoadFile.
type configFile struct {
	Layers []Layer `yaml:"layers" validate:"required,min=1,dive"`
}

// structValidator checks the declarative `validate` tags.
var structValidator = validator.New(validator.WithRequiredStructEnabled())

// New creates a validated Config from the given layers.
//
// Errors:
//
//	ErrNoLayers - layers is empty
//	ErrDuplicateLevel / ErrDuplicateName - two layers collide
//	ErrInvalidAllowedDep - an allowed_deps entry is not a lower existing level
func New(layers []Layer) (*Config, error) {
	if len(layers) == 0 {
		return nil, ErrNoLayers
	}
	if err := structValidator.Struct(configFile{Layers: layers}); err != nil {
		return nil, fmt.Errorf("layer config validation: %w", err)
	}

	cfg := &Config{
		layers:  make([]Layer, len(layers)),
		byLevel: make(map[int]Layer, len(layers)),
		byName:  make(map[string]Layer, len(layers)),
		allowed: make(map[int]map[int]struct{}, len(layers)),
	}
	copy(cfg.layers, layers)
	sort.Slice(cfg.layers, func(i, j int) bool { return cfg.layers[i].Level < cfg.layers[j].Level })

	for _, l := range cfg.layers {
		if _, exists := cfg.byLevel[l.Level]; exists {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateLevel, l.Level)
		}
		if _, exists := cfg.byName[l.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, l.Name)
		}
		cfg.byLevel[l.Level] = l
		cfg.byName[l.Name] = l
	}

	for _, l := range cfg.layers {
		deps := make(map[int]struct{}, len(l.AllowedDeps))
		for _, dep := range l.AllowedDeps {
			if dep >= l.Level {
				return nil, fmt.Errorf("%w: layer %s (level %d) allows %d",
					ErrInvalidAllowedDep, l.Name, l.Level, dep)
			}
			if _, exists := cfg.byLevel[dep]; !exists {
				return nil, fmt.Errorf("%w: layer %s allows undefined level %d",
					ErrInvalidAllowedDep, l.Name, dep)
			}
			deps[dep] = struct{}{}
		}
		cfg.allowed[l.Level] = deps
	}

	return cfg, nil
}

// LoadFile reads and validates a YAML layer configuration.
//
// Expected document shape:
//
//	layers:
//	  - name: UI
//	    level: 0
//	    paths: ["ui/"]
//	    allowed_deps: []
//	  - name: Logic
//	    level: 1
//	    paths: ["logic/"]
//	    allowed_deps: [0]
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layer config %s: %w", path, err)
	}

	var doc configFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse layer config %s: %w", path, err)
	}

	cfg, err := New(doc.Layers)
	if err != nil {
		return nil, fmt.Errorf("layer config %s: %w", path, err)
	}
	return cfg, nil
}

// Layers returns the layers in ascending level order.
//
// The returned slice is a defensive copy.
func (c *Config) Layers() []Layer {
	out := make([]Layer, len(c.layers))
	copy(out, c.layers)
	return out
}

// ByName returns the layer with the given name, if defined.
func (c *Config) ByName(name string) (Layer, bool) {
	l, ok := c.byName[name]
	return l, ok
}

// LayerOf assigns a symbol to a layer by file-path prefix.
//
// The longest matching prefix across all layers wins. Symbols matching
// no prefix belong to no layer and are never layer violations.
func (c *Config) LayerOf(sym graph.Symbol) (Layer, bool) {
	var best Layer
	bestLen := -1
	for _, l := range c.layers {
		for _, prefix := range l.Paths {
			if strings.HasPrefix(sym.FilePath, prefix) && len(prefix) > bestLen {
				best = l
				bestLen = len(prefix)
			}
		}
	}
	return best, bestLen >= 0
}

// Allowed reports whether a dependency from one layer to another is
// permitted. Same-layer dependencies are always allowed.
func (c *Config) Allowed(from, to Layer) bool {
	if from.Level == to.Level {
		return true
	}
	_, ok := c.allowed[from.Level][to.Level]
	return ok
}

// Describe returns one human-readable constraint string per layer,
// in ascending level order.
//
// Example: "Logic (level 1) may depend on levels: 0".
func (c *Config) Describe() []string {
	out := make([]string, 0, len(c.layers))
	for _, l := range c.layers {
		if len(l.AllowedDeps) == 0 {
			out = append(out, fmt.Sprintf("%s (level %d) may depend on levels: none", l.Name, l.Level))
			continue
		}
		deps := make([]int, len(l.AllowedDeps))
		copy(deps, l.AllowedDeps)
		sort.Ints(deps)
		parts := make([]string, len(deps))
		for i, d := range deps {
			parts[i] = fmt.Sprintf("%d", d)
		}
		out = append(out, fmt.Sprintf("%s (level %d) may depend on levels: %s",
			l.Name, l.Level, strings.Join(parts, ", ")))
	}
	return out
}
