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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for graph operations.
var (
	tracer = otel.Tracer("topology.graph")
	meter  = otel.Meter("topology.graph")
)

// Metrics for graph building operations.
var (
	buildLatency    metric.Float64Histogram
	buildTotal      metric.Int64Counter
	symbolsInserted metric.Int64Histogram
	edgesInserted   metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		buildLatency, err = meter.Float64Histogram(
			"symbolgraph_build_duration_seconds",
			metric.WithDescription("Duration of symbol graph build operations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		buildTotal, err = meter.Int64Counter(
			"symbolgraph_build_total",
			metric.WithDescription("Total number of symbol graph build operations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		symbolsInserted, err = meter.Int64Histogram(
			"symbolgraph_symbols_inserted",
			metric.WithDescription("Number of symbols inserted per build"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		edgesInserted, err = meter.Int64Histogram(
			"symbolgraph_edges_inserted",
			metric.WithDescription("Number of edges inserted per build"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordBuildMetrics records metrics for a build operation.
func recordBuildMetrics(ctx context.Context, duration time.Duration, symbolCount, edgeCount int, complete bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("complete", complete))

	buildLatency.Record(ctx, duration.Seconds(), attrs)
	buildTotal.Add(ctx, 1, attrs)

	symbolsInserted.Record(ctx, int64(symbolCount))
	edgesInserted.Record(ctx, int64(edgeCount))
}

// startBuildSpan creates a span for a build operation.
func startBuildSpan(ctx context.Context, symbolCount, edgeCount int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Builder.Build",
		trace.WithAttributes(
			attribute.Int("graph.input_symbols", symbolCount),
			attribute.Int("graph.input_edges", edgeCount),
		),
	)
}

// setBuildSpanResult sets the result attributes on a build span.
func setBuildSpanResult(span trace.Span, symbolCount, edgeCount, failures int, incomplete bool) {
	span.SetAttributes(
		attribute.Int("graph.symbol_count", symbolCount),
		attribute.Int("graph.edge_count", edgeCount),
		attribute.Int("graph.failures", failures),
		attribute.Bool("graph.incomplete", incomplete),
	)
}
