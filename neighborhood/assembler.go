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
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/topology/graph"
	"github.com/AleutianAI/topology/invariant"
	"github.com/AleutianAI/topology/layer"
	"github.com/AleutianAI/topology/pkg/logging"
)

// Options configures an Assembler's construction-time collaborators.
type Options struct {
	// LayerConfig enables layer constraints in assembled invariants.
	// May be nil.
	LayerConfig *layer.Config

	// Reports memoizes invariant analysis per subgraph fingerprint.
	// May be nil, in which case every assembly analyzes directly.
	Reports *invariant.ReportCache

	// Logger receives assembly diagnostics. May be nil.
	Logger *logging.Logger
}

// Option is a functional option for configuring an Assembler.
type Option func(*Options)

// WithLayerConfig sets the layer configuration.
func WithLayerConfig(cfg *layer.Config) Option {
	return func(o *Options) {
		o.LayerConfig = cfg
	}
}

// WithReportCache sets the invariant report cache.
func WithReportCache(c *invariant.ReportCache) Option {
	return func(o *Options) {
		o.Reports = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// AssembleOption is a per-call option for Assemble.
type AssembleOption func(*assembleParams)

// assembleParams holds per-call parameters.
type assembleParams struct {
	issueID string
}

// WithIssueID correlates the assembly with a task identifier. A fresh
// UUID is generated when absent.
func WithIssueID(id string) AssembleOption {
	return func(p *assembleParams) {
		p.issueID = id
	}
}

// Assembler cuts bounded neighborhoods out of a symbol graph.
//
// Thread Safety: safe for concurrent use over frozen graphs; each
// Assemble call owns its working state.
type Assembler struct {
	options Options
}

// NewAssembler creates an Assembler with the given options.
func NewAssembler(opts ...Option) *Assembler {
	options := Options{}
	for _, opt := range opts {
		opt(&options)
	}
	return &Assembler{options: options}
}

// Assemble cuts the neighborhood around the seed symbols.
//
// Description:
//
//	Runs a multi-source BFS from the seeds over both edge directions,
//	following only edges with strength >= threshold, out to the given
//	hop budget. Seeds are always included regardless of threshold;
//	depth 0 returns exactly the seeds. The resulting member set is
//	projected to a subgraph, analyzed, and packaged with importance
//	scores, cycle flags, and the invariants the consumer must preserve.
//
//	Assembly performs no I/O: MiniSymbol.Code stays empty until the
//	caller hydrates the result (see Hydrator).
//
// Inputs:
//
//	ctx - Context for tracing.
//	g - The frozen graph to cut from.
//	seeds - Entry-point symbol IDs. Must be non-empty and present.
//	depth - Hop budget, >= 0.
//	threshold - Minimum edge strength to traverse, in [0, 1].
//
// Outputs:
//
//	*MiniCodebase - The assembled neighborhood. Never nil on success.
//	error - ErrEmptySeeds, ErrInvalidDepth, ErrInvalidThreshold, or
//	        ErrSeedNotFound (wrapped with the offending ID).
func (a *Assembler) Assemble(ctx context.Context, g *graph.SymbolGraph, seeds []string, depth int, threshold float64, opts ...AssembleOption) (*MiniCodebase, error) {
	params := assembleParams{}
	for _, opt := range opts {
		opt(&params)
	}

	if len(seeds) == 0 {
		return nil, ErrEmptySeeds
	}
	if depth < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDepth, depth)
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: %g", ErrInvalidThreshold, threshold)
	}
	for _, id := range seeds {
		if !g.Contains(id) {
			return nil, fmt.Errorf("%w: %s", ErrSeedNotFound, id)
		}
	}

	ctx, span := startAssembleSpan(ctx, len(seeds), depth, threshold)
	defer span.End()
	start := time.Now()

	members := a.traverse(g, seeds, depth, threshold)
	sub := g.Subgraph(members)

	report, err := a.analyzeSubgraph(ctx, sub)
	if err != nil {
		return nil, err
	}

	mc := a.buildMiniCodebase(g, sub, report, seeds, members)
	mc.Metadata = Metadata{
		Depth:               depth,
		StrengthThreshold:   threshold,
		TotalSymbolsInGraph: g.SymbolCount(),
		SolidScore:          report.SolidScore,
		IssueID:             params.issueID,
	}
	if mc.Metadata.IssueID == "" {
		mc.Metadata.IssueID = uuid.NewString()
	}

	if a.options.Logger != nil {
		a.options.Logger.Debug("neighborhood assembled",
			"seeds", len(seeds),
			"members", len(members),
			"depth", depth,
			"threshold", threshold,
			"issue_id", mc.Metadata.IssueID)
	}
	setAssembleSpanResult(span, len(members), report.Betti1)
	recordAssembleMetrics(ctx, time.Since(start), len(members))
	return mc, nil
}

// traverse runs the bounded multi-source BFS and returns the member IDs.
func (a *Assembler) traverse(g *graph.SymbolGraph, seeds []string, depth int, threshold float64) []string {
	visited := make(map[string]int, len(seeds))
	frontier := make([]string, 0, len(seeds))
	for _, id := range seeds {
		if _, seen := visited[id]; seen {
			continue
		}
		visited[id] = 0
		frontier = append(frontier, id)
	}

	for dist := 1; dist <= depth && len(frontier) > 0; dist++ {
		next := make([]string, 0)
		for _, id := range frontier {
			g.Neighbors(id, graph.DirectionBoth)(func(e graph.Edge) bool {
				if e.Strength < threshold {
					return true
				}
				other := e.TargetID
				if other == id {
					other = e.SourceID
				}
				if _, seen := visited[other]; seen {
					return true
				}
				visited[other] = dist
				next = append(next, other)
				return true
			})
		}
		frontier = next
	}

	members := make([]string, 0, len(visited))
	for id := range visited {
		members = append(members, id)
	}
	sort.Strings(members)
	return members
}

// analyzeSubgraph runs (or looks up) the invariant analysis for the cut.
func (a *Assembler) analyzeSubgraph(ctx context.Context, sub *graph.Subgraph) (*invariant.Report, error) {
	if a.options.Reports != nil {
		return a.options.Reports.GetOrAnalyze(ctx, sub, a.options.LayerConfig)
	}
	return invariant.Analyze(ctx, sub, a.options.LayerConfig)
}

// buildMiniCodebase turns the member set and its analysis into a
// MiniCodebase.
func (a *Assembler) buildMiniCodebase(g *graph.SymbolGraph, sub *graph.Subgraph, report *invariant.Report, seeds, members []string) *MiniCodebase {
	inCycle := report.InCycle()
	importance := a.importanceScores(sub, members)

	symbols := make([]MiniSymbol, 0, len(members))
	fileSet := make(map[string]struct{})
	for _, id := range members {
		sym, ok := g.Symbol(id)
		if !ok {
			continue
		}
		symbols = append(symbols, MiniSymbol{
			ID:         sym.ID,
			Name:       sym.Name,
			FilePath:   sym.FilePath,
			Kind:       sym.Kind,
			ByteStart:  sym.ByteStart,
			ByteEnd:    sym.ByteEnd,
			Importance: importance[id],
			InCycle:    inCycle[id],
		})
		fileSet[sym.FilePath] = struct{}{}
	}
	sort.Slice(symbols, func(i, j int) bool {
		if symbols[i].Importance != symbols[j].Importance {
			return symbols[i].Importance > symbols[j].Importance
		}
		return symbols[i].ID < symbols[j].ID
	})

	files := make([]string, 0, len(fileSet))
	for f := range fileSet {
		files = append(files, f)
	}
	sort.Strings(files)

	// Seeds in request order, deduplicated.
	seedList := make([]string, 0, len(seeds))
	seedSeen := make(map[string]struct{}, len(seeds))
	for _, id := range seeds {
		if _, dup := seedSeen[id]; dup {
			continue
		}
		seedSeen[id] = struct{}{}
		seedList = append(seedList, id)
	}

	return &MiniCodebase{
		SeedSymbols: seedList,
		Symbols:     symbols,
		Files:       files,
		Invariants:  a.buildInvariants(report),
	}
}

// importanceScores computes the normalized adjacent-strength sum for
// each member over edges inside the cut. Ranking only; the
// best-connected member scores 1.0.
func (a *Assembler) importanceScores(sub *graph.Subgraph, members []string) map[string]float64 {
	raw := make(map[string]float64, len(members))
	maxRaw := 0.0
	for _, id := range members {
		sum := 0.0
		sub.Neighbors(id, graph.DirectionBoth)(func(e graph.Edge) bool {
			sum += e.Strength
			return true
		})
		raw[id] = sum
		if sum > maxRaw {
			maxRaw = sum
		}
	}

	out := make(map[string]float64, len(members))
	for id, sum := range raw {
		if maxRaw > 0 {
			out[id] = sum / maxRaw
		}
	}
	return out
}

// buildInvariants derives the constraint block handed to the consumer.
func (a *Assembler) buildInvariants(report *invariant.Report) Invariants {
	inv := Invariants{
		Betti1:                report.Betti1,
		ForbiddenDependencies: make([]string, 0),
		LayerConstraints:      make([]string, 0),
		Notes:                 make([]string, 0),
	}

	if cfg := a.options.LayerConfig; cfg != nil {
		inv.LayerConstraints = cfg.Describe()
		layers := cfg.Layers()
		for _, from := range layers {
			for _, to := range layers {
				if from.Level == to.Level || cfg.Allowed(from, to) {
					continue
				}
				inv.ForbiddenDependencies = append(inv.ForbiddenDependencies,
					fmt.Sprintf("%s -> %s", from.Name, to.Name))
			}
		}
	}

	for _, cycle := range report.CyclesDetected {
		note := "dependency cycle: " + cycle[0]
		for _, id := range cycle[1:] {
			note += ", " + id
		}
		inv.Notes = append(inv.Notes, note)
	}
	for _, v := range report.LayerViolations {
		if v.Kind != invariant.ViolationUpstreamDependency {
			continue
		}
		inv.Notes = append(inv.Notes,
			fmt.Sprintf("existing layer violation: %s (%s) -> %s (%s)",
				v.FromID, v.FromLayer, v.ToID, v.ToLayer))
	}
	return inv
}
