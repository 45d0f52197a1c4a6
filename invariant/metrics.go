// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package invariant

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/topology/graph"
)

// Package-level tracer and meter for invariant analysis.
var (
	tracer = otel.Tracer("topology.invariant")
	meter  = otel.Meter("topology.invariant")
)

// Metrics for analysis operations.
var (
	analyzeLatency metric.Float64Histogram
	analyzeTotal   metric.Int64Counter
	cyclesFound    metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		analyzeLatency, err = meter.Float64Histogram(
			"invariant_analyze_duration_seconds",
			metric.WithDescription("Duration of invariant analysis operations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		analyzeTotal, err = meter.Int64Counter(
			"invariant_analyze_total",
			metric.WithDescription("Total number of invariant analyses"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		cyclesFound, err = meter.Int64Histogram(
			"invariant_cycles_detected",
			metric.WithDescription("Number of dependency cycles found per analysis"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordAnalyzeMetrics records metrics for one analysis.
func recordAnalyzeMetrics(ctx context.Context, duration time.Duration, report *Report) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("has_cycles", report.HasCycles()))

	analyzeLatency.Record(ctx, duration.Seconds(), attrs)
	analyzeTotal.Add(ctx, 1, attrs)
	cyclesFound.Record(ctx, int64(len(report.CyclesDetected)))
}

// startAnalyzeSpan creates a span for an analysis operation.
func startAnalyzeSpan(ctx context.Context, view graph.View) (context.Context, trace.Span) {
	return tracer.Start(ctx, "invariant.Analyze",
		trace.WithAttributes(
			attribute.Int("graph.symbol_count", view.SymbolCount()),
			attribute.Int("graph.edge_count", view.EdgeCount()),
			attribute.String("graph.fingerprint", view.Fingerprint()),
		),
	)
}

// setAnalyzeSpanResult sets result attributes on an analysis span.
func setAnalyzeSpanResult(span trace.Span, report *Report) {
	span.SetAttributes(
		attribute.Int("invariant.betti_0", report.Betti0),
		attribute.Int("invariant.betti_1", report.Betti1),
		attribute.Int("invariant.cycles", len(report.CyclesDetected)),
		attribute.Int("invariant.layer_violations", len(report.LayerViolations)),
		attribute.Float64("invariant.solid_score", report.SolidScore),
	)
}
