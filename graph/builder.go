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
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/topology/pkg/logging"
)

// ProgressPhase indicates which phase of building is in progress.
type ProgressPhase int

const (
	// ProgressPhaseSymbols indicates symbols are being inserted.
	ProgressPhaseSymbols ProgressPhase = iota

	// ProgressPhaseEdges indicates edges are being inserted.
	ProgressPhaseEdges

	// ProgressPhaseFinalizing indicates the graph is being frozen.
	ProgressPhaseFinalizing
)

// String returns the string representation of the ProgressPhase.
func (p ProgressPhase) String() string {
	switch p {
	case ProgressPhaseSymbols:
		return "symbols"
	case ProgressPhaseEdges:
		return "edges"
	case ProgressPhaseFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// BuildProgress contains progress information during a build.
type BuildProgress struct {
	// Phase is the current build phase.
	Phase ProgressPhase

	// Processed is the number of items processed in the current phase.
	Processed int

	// Total is the total number of items in the current phase.
	Total int
}

// ProgressFunc is a callback function for build progress updates.
type ProgressFunc func(progress BuildProgress)

// SymbolError records a symbol that could not be inserted.
type SymbolError struct {
	// SymbolID is the ID of the offending symbol ("" if unavailable).
	SymbolID string

	// Err is the insertion error.
	Err error
}

// EdgeError records an edge that could not be inserted.
type EdgeError struct {
	// SourceID and TargetID identify the offending edge.
	SourceID string
	TargetID string

	// Kind is the edge kind.
	Kind EdgeKind

	// Err is the insertion error.
	Err error
}

// BuildResult contains the built graph plus any per-item failures.
//
// A build is resilient: a malformed symbol or edge aborts only that
// insertion, and all failures are collected here rather than stopping
// the build at the first one.
type BuildResult struct {
	// Graph is the built graph. Frozen unless Incomplete is true.
	Graph *SymbolGraph

	// SymbolErrors lists symbols that failed to insert.
	SymbolErrors []SymbolError

	// EdgeErrors lists edges that failed to insert.
	EdgeErrors []EdgeError

	// Incomplete is true if the build was cancelled before finishing.
	Incomplete bool

	// DurationMilli is how long the build took, in milliseconds.
	DurationMilli int64
}

// HasErrors reports whether any symbol or edge failed to insert.
func (r *BuildResult) HasErrors() bool {
	return len(r.SymbolErrors) > 0 || len(r.EdgeErrors) > 0
}

// Err returns ErrBuildCancelled if the build was interrupted before the
// graph could be frozen, nil otherwise. Per-item insert failures are not
// errors at this level; see HasErrors.
func (r *BuildResult) Err() error {
	if r.Incomplete {
		return ErrBuildCancelled
	}
	return nil
}

// BuilderOptions configures Builder behavior.
type BuilderOptions struct {
	// ProgressCallback is called periodically with build progress.
	// May be nil.
	ProgressCallback ProgressFunc

	// Logger receives per-failure debug logs. May be nil.
	Logger *logging.Logger
}

// BuilderOption is a functional option for configuring Builder.
type BuilderOption func(*BuilderOptions)

// WithProgressCallback sets the progress callback function.
func WithProgressCallback(fn ProgressFunc) BuilderOption {
	return func(o *BuilderOptions) {
		o.ProgressCallback = fn
	}
}

// WithLogger sets the logger used for per-failure diagnostics.
func WithLogger(l *logging.Logger) BuilderOption {
	return func(o *BuilderOptions) {
		o.Logger = l
	}
}

// Builder constructs symbol graphs from extraction output.
//
// The builder is stateless and can be reused across multiple builds.
// Each Build() call creates a new graph.
//
// Thread Safety:
//
//	Builder is safe for concurrent use. Each Build() call operates
//	independently with its own internal state.
type Builder struct {
	options BuilderOptions
}

// NewBuilder creates a new Builder with the given options.
func NewBuilder(opts ...BuilderOption) *Builder {
	options := BuilderOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	return &Builder{options: options}
}

// Build constructs a frozen graph from extraction output.
//
// Description:
//
//	Inserts all symbols, then all edges, then freezes the graph. The
//	build is resilient to individual failures: a duplicate symbol or a
//	dangling edge is recorded in the result and the build continues, so
//	callers see every problem in one pass rather than one at a time.
//
// Inputs:
//
//	ctx - Context for cancellation. Build checks it periodically; on
//	      cancellation a partial, unfrozen result is returned with
//	      Incomplete set.
//	symbols - Symbols from the extraction collaborator.
//	edges - Edges from the extraction collaborator.
//
// Outputs:
//
//	*BuildResult - The graph plus collected failures. Never nil.
func (b *Builder) Build(ctx context.Context, symbols []Symbol, edges []Edge) *BuildResult {
	ctx, span := startBuildSpan(ctx, len(symbols), len(edges))
	defer span.End()

	start := time.Now()
	result := &BuildResult{
		Graph:        NewSymbolGraph(),
		SymbolErrors: make([]SymbolError, 0),
		EdgeErrors:   make([]EdgeError, 0),
	}

	// Phase 1: symbols.
	for i, sym := range symbols {
		if ctx.Err() != nil {
			return b.finish(ctx, span, result, start, true)
		}

		if err := result.Graph.InsertSymbol(sym); err != nil {
			result.SymbolErrors = append(result.SymbolErrors, SymbolError{
				SymbolID: sym.ID,
				Err:      err,
			})
			b.logFailure("symbol insert failed", "symbol_id", sym.ID, "error", err)
			continue
		}
		b.reportProgress(ProgressPhaseSymbols, i+1, len(symbols))
	}

	// Phase 2: edges.
	for i, e := range edges {
		if ctx.Err() != nil {
			return b.finish(ctx, span, result, start, true)
		}

		if err := result.Graph.InsertEdge(e); err != nil {
			result.EdgeErrors = append(result.EdgeErrors, EdgeError{
				SourceID: e.SourceID,
				TargetID: e.TargetID,
				Kind:     e.Kind,
				Err:      err,
			})
			b.logFailure("edge insert failed",
				"source", e.SourceID, "target", e.TargetID, "error", err)
			continue
		}
		b.reportProgress(ProgressPhaseEdges, i+1, len(edges))
	}

	// Phase 3: finalize.
	result.Graph.Freeze()
	b.reportProgress(ProgressPhaseFinalizing, 1, 1)

	return b.finish(ctx, span, result, start, false)
}

// finish stamps duration, records telemetry, and returns the result.
func (b *Builder) finish(ctx context.Context, span trace.Span, result *BuildResult, start time.Time, incomplete bool) *BuildResult {
	result.Incomplete = incomplete
	result.DurationMilli = time.Since(start).Milliseconds()

	symbolCount := result.Graph.SymbolCount()
	edgeCount := result.Graph.EdgeCount()
	failures := len(result.SymbolErrors) + len(result.EdgeErrors)

	setBuildSpanResult(span, symbolCount, edgeCount, failures, incomplete)
	recordBuildMetrics(ctx, time.Since(start), symbolCount, edgeCount, !incomplete)

	return result
}

// logFailure logs a per-item failure if a logger is configured.
func (b *Builder) logFailure(msg string, args ...any) {
	if b.options.Logger != nil {
		b.options.Logger.Debug(msg, args...)
	}
}

// reportProgress calls the progress callback if configured.
func (b *Builder) reportProgress(phase ProgressPhase, processed, total int) {
	if b.options.ProgressCallback == nil {
		return
	}
	b.options.ProgressCallback(BuildProgress{
		Phase:     phase,
		Processed: processed,
		Total:     total,
	})
}
