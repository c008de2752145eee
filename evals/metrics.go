/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evals

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Global metrics with consistent dimensions
	criterionCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeact_evaluation_criteria_total",
			Help: "Total number of criteria evaluated",
		},
		[]string{"suite", "status"},
	)

	suiteCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeact_evaluation_suites_total",
			Help: "Total number of suite executions",
		},
		[]string{"suite", "passed"},
	)

	suiteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codeact_evaluation_suite_duration_seconds",
			Help:    "Wall-clock duration of suite executions",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"suite"},
	)
)

func recordCriterion(suiteID string, status Status) {
	criterionCounter.With(prometheus.Labels{
		"suite":  suiteID,
		"status": string(status),
	}).Inc()
}

func recordSuite(suiteID string, passed bool, elapsed time.Duration) {
	label := "false"
	if passed {
		label = "true"
	}
	suiteCounter.With(prometheus.Labels{"suite": suiteID, "passed": label}).Inc()
	suiteDuration.With(prometheus.Labels{"suite": suiteID}).Observe(elapsed.Seconds())
}
