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
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/topology/graph"
	"github.com/AleutianAI/topology/layer"
)

// DefaultCacheSize is the default maximum number of cached reports.
const DefaultCacheSize = 256

// ReportCache memoizes analysis reports per graph generation.
//
// Description:
//
//	Analysis is pure, so a report is fully determined by the view's
//	fingerprint and the layer configuration. The cache keys on both,
//	which makes invalidation automatic: a workspace swap produces a new
//	fingerprint and the stale entry simply ages out of the LRU.
//	Concurrent requests for the same key are collapsed through
//	singleflight so a burst of agents analyzing the same generation
//	triggers exactly one computation.
//
// Thread Safety: safe for concurrent use.
type ReportCache struct {
	reports *lru.Cache[string, *Report]
	group   singleflight.Group
}

// NewReportCache creates a cache holding up to size reports.
// Non-positive sizes fall back to DefaultCacheSize.
func NewReportCache(size int) (*ReportCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	reports, err := lru.New[string, *Report](size)
	if err != nil {
		return nil, fmt.Errorf("create report cache: %w", err)
	}
	return &ReportCache{reports: reports}, nil
}

// GetOrAnalyze returns the cached report for the view and configuration,
// computing and caching it on a miss.
//
// The returned report is shared between callers and must not be mutated.
func (c *ReportCache) GetOrAnalyze(ctx context.Context, view graph.View, cfg *layer.Config, opts ...Option) (*Report, error) {
	if view == nil {
		return nil, ErrNilView
	}
	key := cacheKey(view, cfg)

	if report, ok := c.reports.Get(key); ok {
		return report, nil
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		if report, ok := c.reports.Get(key); ok {
			return report, nil
		}
		report, err := Analyze(ctx, view, cfg, opts...)
		if err != nil {
			return nil, err
		}
		c.reports.Add(key, report)
		return report, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Report), nil
}

// Invalidate drops every cached report.
func (c *ReportCache) Invalidate() {
	c.reports.Purge()
}

// Len returns the number of cached reports.
func (c *ReportCache) Len() int {
	return c.reports.Len()
}

// cacheKey combines the view fingerprint with the layer constraint set.
func cacheKey(view graph.View, cfg *layer.Config) string {
	if cfg == nil {
		return view.Fingerprint() + "|nolayers"
	}
	return view.Fingerprint() + "|" + strings.Join(cfg.Describe(), ";")
}
