// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package compiler

import (
	"strings"
	"time"

	"github.com/gomlx/shadergraph/pkg/compiler/diag"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "shadergraph"
	subsystem = "compiler"
)

// Metrics of the compiler. A nil *Metrics records nothing.
type Metrics struct {
	compilationTime *prometheus.HistogramVec
	stagesTotal     *prometheus.CounterVec
	searchNodes     prometheus.Histogram
}

// NewMetrics creates the compiler metrics. Register them with MustRegister.
func NewMetrics() *Metrics {
	return &Metrics{
		compilationTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "compilation_duration_seconds",
				Help:      "Graph compilation time in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12), // 100µs to ~200ms
			},
			[]string{"result"}, // "success" or the error kind.
		),
		stagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stages_total",
				Help:      "Total number of stages emitted, per stage kind.",
			},
			[]string{"kind"},
		),
		searchNodes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "type_search_nodes",
				Help:      "Number of search nodes explored by the type resolver per compilation.",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
	}
}

// MustRegister registers the metrics with the given Prometheus registry.
func (m *Metrics) MustRegister(registry prometheus.Registerer) {
	registry.MustRegister(m.compilationTime, m.stagesTotal, m.searchNodes)
}

// observe records one compilation.
func (m *Metrics) observe(duration time.Duration, result *Result, err error) {
	if m == nil {
		return
	}
	m.compilationTime.WithLabelValues(resultLabel(err)).Observe(duration.Seconds())
	if result == nil {
		return
	}
	m.searchNodes.Observe(float64(result.Stats.SearchNodes))
	for _, stage := range result.Stages {
		m.stagesTotal.WithLabelValues(stage.Kind.String()).Inc()
	}
}

func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	kind, ok := diag.KindOf(err)
	if !ok {
		return "error"
	}
	return strings.ReplaceAll(kind.String(), " ", "_")
}
