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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for edit validation.
var (
	tracer = otel.Tracer("topology.validate")
	meter  = otel.Meter("topology.validate")
)

// Metrics for validation operations.
var (
	validateLatency metric.Float64Histogram
	validateTotal   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		validateLatency, err = meter.Float64Histogram(
			"validate_duration_seconds",
			metric.WithDescription("Duration of virtual-apply validations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		validateTotal, err = meter.Int64Counter(
			"validate_total",
			metric.WithDescription("Total number of virtual-apply validations"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordValidateMetrics records metrics for one validation.
func recordValidateMetrics(ctx context.Context, duration time.Duration, result *ValidationResult) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.Bool("is_safe", result.IsSafe),
		attribute.String("state", result.State.String()),
	)
	validateLatency.Record(ctx, duration.Seconds(), attrs)
	validateTotal.Add(ctx, 1, attrs)
}

// startValidateSpan creates a span for a validation.
func startValidateSpan(ctx context.Context, editCount int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Validator.Validate",
		trace.WithAttributes(attribute.Int("validate.edit_count", editCount)),
	)
}

// setValidateSpanResult sets result attributes on a validation span.
func setValidateSpanResult(span trace.Span, result *ValidationResult) {
	span.SetAttributes(
		attribute.Bool("validate.is_safe", result.IsSafe),
		attribute.String("validate.state", result.State.String()),
		attribute.Bool("validate.introduces_cycles", result.IntroducesCycles),
		attribute.Int("validate.new_betti_1", result.NewBetti1),
		attribute.Int("validate.errors", len(result.Errors)),
	)
}
