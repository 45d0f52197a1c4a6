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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for neighborhood assembly.
var (
	tracer = otel.Tracer("topology.neighborhood")
	meter  = otel.Meter("topology.neighborhood")
)

// Metrics for assembly operations.
var (
	assembleLatency metric.Float64Histogram
	assembleTotal   metric.Int64Counter
	membersSelected metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		assembleLatency, err = meter.Float64Histogram(
			"neighborhood_assemble_duration_seconds",
			metric.WithDescription("Duration of neighborhood assembly operations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		assembleTotal, err = meter.Int64Counter(
			"neighborhood_assemble_total",
			metric.WithDescription("Total number of neighborhood assemblies"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		membersSelected, err = meter.Int64Histogram(
			"neighborhood_members_selected",
			metric.WithDescription("Number of symbols selected per assembly"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordAssembleMetrics records metrics for one assembly.
func recordAssembleMetrics(ctx context.Context, duration time.Duration, members int) {
	if err := initMetrics(); err != nil {
		return
	}
	assembleLatency.Record(ctx, duration.Seconds())
	assembleTotal.Add(ctx, 1)
	membersSelected.Record(ctx, int64(members))
}

// startAssembleSpan creates a span for an assembly operation.
func startAssembleSpan(ctx context.Context, seeds, depth int, threshold float64) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Assembler.Assemble",
		trace.WithAttributes(
			attribute.Int("assemble.seed_count", seeds),
			attribute.Int("assemble.depth", depth),
			attribute.Float64("assemble.strength_threshold", threshold),
		),
	)
}

// setAssembleSpanResult sets result attributes on an assembly span.
func setAssembleSpanResult(span trace.Span, members, betti1 int) {
	span.SetAttributes(
		attribute.Int("assemble.member_count", members),
		attribute.Int("assemble.betti_1", betti1),
	)
}
