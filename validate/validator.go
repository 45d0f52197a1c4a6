// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/topology/graph"
	"github.com/AleutianAI/topology/invariant"
	"github.com/AleutianAI/topology/layer"
	"github.com/AleutianAI/topology/pkg/logging"
)

// Options configures a Validator's construction-time collaborators.
type Options struct {
	// Reports memoizes invariant analysis; the base graph's report is the
	// hot entry since every candidate re-reads it. May be nil.
	Reports *invariant.ReportCache

	// Logger receives validation diagnostics. May be nil.
	Logger *logging.Logger
}

// Option is a functional option for configuring a Validator.
type Option func(*Options)

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

// ValidateOption is a per-call option for Validate.
type ValidateOption func(*validateParams)

// validateParams holds per-call parameters.
type validateParams struct {
	previousBetti1 *int
}

// WithPreviousBetti1 supplies the cycle-count baseline from an earlier
// validation round. When absent, the base graph's own count is the
// baseline.
func WithPreviousBetti1(n int) ValidateOption {
	return func(p *validateParams) {
		p.previousBetti1 = &n
	}
}

// Validator virtually applies candidate edits against a frozen base
// graph.
//
// Thread Safety: safe for concurrent use; every Validate call owns a
// private overlay, so k candidates from k parallel agents can be
// validated simultaneously with order-independent outcomes.
type Validator struct {
	base    *graph.SymbolGraph
	cfg     *layer.Config
	options Options
}

// NewValidator creates a Validator over the given frozen base graph.
// cfg may be nil, which disables layer checking.
func NewValidator(base *graph.SymbolGraph, cfg *layer.Config, opts ...Option) *Validator {
	options := Options{}
	for _, opt := range opts {
		opt(&options)
	}
	return &Validator{base: base, cfg: cfg, options: options}
}

// Validate evaluates one candidate edit batch.
//
// Description:
//
//	Builds a copy-on-write overlay of the base graph with the batch's
//	delta applied, analyzes base and overlay, and compares. The base is
//	never mutated. Malformed input (colliding symbol IDs, dangling
//	edges, invalid operations) is folded into the result's Errors rather
//	than raised, because the consuming voting layer needs a comparable
//	verdict per candidate, never an exception.
//
//	A symbol ID collision rejects the candidate before any analysis
//	(State == StateCollisionRejected). Other malformed items are
//	recorded, skipped, and analysis proceeds on the remainder.
//
// Outputs:
//
//	*ValidationResult - Never nil. IsSafe is true only when the edit
//	introduces no cycles beyond the baseline, no layer violations
//	beyond those already in the base, and no errors occurred.
func (v *Validator) Validate(ctx context.Context, edits []Edit, opts ...ValidateOption) *ValidationResult {
	params := validateParams{}
	for _, opt := range opts {
		opt(&params)
	}

	ctx, span := startValidateSpan(ctx, len(edits))
	defer span.End()
	start := time.Now()

	result := newResult()
	delta := v.screen(edits, result)
	if result.State == StateCollisionRejected {
		v.finish(ctx, span, result, start)
		return result
	}

	overlay := newOverlay(v.base, delta.symbols, delta.edges, delta.removed)

	baseReport, err := v.analyze(ctx, v.base)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("base analysis: %v", err))
	}
	overlayReport, err := v.analyze(ctx, overlay)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("overlay analysis: %v", err))
	}
	if baseReport == nil || overlayReport == nil {
		result.IsSafe = false
		result.State = StateRedFlagged
		v.finish(ctx, span, result, start)
		return result
	}
	result.State = StateAnalyzed

	result.OriginalBetti1 = baseReport.Betti1
	result.NewBetti1 = overlayReport.Betti1
	result.CyclesDetected = overlayReport.CyclesDetected

	baseline := result.OriginalBetti1
	if params.previousBetti1 != nil {
		baseline = *params.previousBetti1
	}
	result.IntroducesCycles = result.NewBetti1 > baseline

	result.LayerViolations = newViolations(baseReport, overlayReport)
	v.describeDelta(delta, result)

	result.IsSafe = !result.IntroducesCycles &&
		len(result.LayerViolations) == 0 &&
		len(result.Errors) == 0
	if result.IsSafe {
		result.State = StateSafe
	} else {
		result.State = StateRedFlagged
	}

	if v.options.Logger != nil {
		v.options.Logger.Debug("edit validated",
			"edits", len(edits),
			"is_safe", result.IsSafe,
			"state", result.State.String(),
			"original_betti_1", result.OriginalBetti1,
			"new_betti_1", result.NewBetti1)
	}
	v.finish(ctx, span, result, start)
	return result
}

// ValidateAll validates candidate batches concurrently.
//
// Results are index-aligned with candidates. Each candidate gets its own
// overlay, so outcomes are independent of scheduling order.
func (v *Validator) ValidateAll(ctx context.Context, candidates [][]Edit, opts ...ValidateOption) []*ValidationResult {
	results := make([]*ValidationResult, len(candidates))

	g, ctx := errgroup.WithContext(ctx)
	for i, edits := range candidates {
		g.Go(func() error {
			results[i] = v.Validate(ctx, edits, opts...)
			return nil
		})
	}
	// Workers never return errors; failures live inside each result.
	_ = g.Wait()
	return results
}

// editDelta is the screened, merged delta across a batch of edits.
type editDelta struct {
	symbols []graph.Symbol
	edges   []graph.Edge
	removed []string
}

// newResult creates an empty pending result.
func newResult() *ValidationResult {
	return &ValidationResult{
		CyclesDetected:  make([][]string, 0),
		LayerViolations: make([]invariant.LayerViolation, 0),
		NewSymbols:      make([]string, 0),
		NewDependencies: make([]string, 0),
		CrossFileIssues: make([]string, 0),
		Warnings:        make([]string, 0),
		Errors:          make([]string, 0),
		State:           StatePending,
	}
}

// screen merges the batch into one delta, folding malformed items into
// the result. A symbol collision short-circuits with
// StateCollisionRejected.
func (v *Validator) screen(edits []Edit, result *ValidationResult) editDelta {
	delta := editDelta{}

	// Removals first: a collision only counts against symbols that
	// survive the edit.
	removedSet := make(map[string]struct{})
	for _, edit := range edits {
		if edit.Operation != "" && !edit.Operation.Valid() {
			result.Errors = append(result.Errors,
				fmt.Sprintf("unknown operation %q for %s", edit.Operation, edit.FilePath))
		}
		for _, id := range edit.RemovedSymbolIDs {
			if !v.base.Contains(id) {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("removed symbol %s does not exist", id))
				continue
			}
			if _, dup := removedSet[id]; !dup {
				removedSet[id] = struct{}{}
				delta.removed = append(delta.removed, id)
			}
		}
	}

	addedSet := make(map[string]struct{})
	for _, edit := range edits {
		for _, sym := range edit.NewSymbols {
			if err := sym.Validate(); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("invalid symbol: %v", err))
				continue
			}
			_, inDelta := addedSet[sym.ID]
			_, removed := removedSet[sym.ID]
			if inDelta || (v.base.Contains(sym.ID) && !removed) {
				result.Errors = append(result.Errors,
					fmt.Sprintf("symbol collision: %s already exists", sym.ID))
				result.IsSafe = false
				result.State = StateCollisionRejected
				return delta
			}
			addedSet[sym.ID] = struct{}{}
			delta.symbols = append(delta.symbols, sym)
		}
	}

	exists := func(id string) bool {
		if _, added := addedSet[id]; added {
			return true
		}
		if _, removed := removedSet[id]; removed {
			return false
		}
		return v.base.Contains(id)
	}
	for _, edit := range edits {
		for _, e := range edit.NewEdges {
			if err := e.Validate(); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("invalid edge: %v", err))
				continue
			}
			if !exists(e.SourceID) || !exists(e.TargetID) {
				result.Errors = append(result.Errors,
					fmt.Sprintf("dangling edge %s -> %s", e.SourceID, e.TargetID))
				continue
			}
			delta.edges = append(delta.edges, e)
		}
	}
	return delta
}

// analyze runs (or looks up) the invariant analysis for a view.
func (v *Validator) analyze(ctx context.Context, view graph.View) (*invariant.Report, error) {
	if v.options.Reports != nil {
		return v.options.Reports.GetOrAnalyze(ctx, view, v.cfg)
	}
	return invariant.Analyze(ctx, view, v.cfg)
}

// describeDelta fills the result's new-symbol, new-dependency, and
// cross-file sections from the accepted delta.
func (v *Validator) describeDelta(delta editDelta, result *ValidationResult) {
	fileOf := func(id string) string {
		for _, sym := range delta.symbols {
			if sym.ID == id {
				return sym.FilePath
			}
		}
		if sym, ok := v.base.Symbol(id); ok {
			return sym.FilePath
		}
		return ""
	}

	for _, sym := range delta.symbols {
		result.NewSymbols = append(result.NewSymbols, sym.ID)
	}
	sort.Strings(result.NewSymbols)

	for _, e := range delta.edges {
		result.NewDependencies = append(result.NewDependencies,
			fmt.Sprintf("%s -> %s", e.SourceID, e.TargetID))

		srcFile, dstFile := fileOf(e.SourceID), fileOf(e.TargetID)
		if srcFile != "" && dstFile != "" && srcFile != dstFile {
			issue := fmt.Sprintf("new edge %s -> %s spans %s and %s",
				e.SourceID, e.TargetID, srcFile, dstFile)
			result.CrossFileIssues = append(result.CrossFileIssues, issue)
			// Cross-file coupling surfaces as a warning, never a failure.
			result.Warnings = append(result.Warnings, issue)
		}
	}
	sort.Strings(result.NewDependencies)
	sort.Strings(result.CrossFileIssues)
}

// newViolations returns overlay violations absent from the base report.
// Pre-existing violations are tolerated.
func newViolations(base, overlay *invariant.Report) []invariant.LayerViolation {
	existing := make(map[invariant.LayerViolation]struct{}, len(base.LayerViolations))
	for _, lv := range base.LayerViolations {
		existing[lv] = struct{}{}
	}

	out := make([]invariant.LayerViolation, 0)
	for _, lv := range overlay.LayerViolations {
		if _, known := existing[lv]; !known {
			out = append(out, lv)
		}
	}
	return out
}

// finish records telemetry for one validation.
func (v *Validator) finish(ctx context.Context, span trace.Span, result *ValidationResult, start time.Time) {
	setValidateSpanResult(span, result)
	recordValidateMetrics(ctx, time.Since(start), result)
}
