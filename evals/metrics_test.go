/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evals

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func gatherValue(t *testing.T, name string, labels map[string]string) (float64, bool) {
	t.Helper()

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err, "gathering metrics")

	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			matched := 0
			for _, label := range metric.GetLabel() {
				if labels[label.GetName()] == label.GetValue() {
					matched++
				}
			}
			if matched != len(labels) {
				continue
			}
			if metric.GetCounter() != nil {
				return metric.GetCounter().GetValue(), true
			}
			if metric.GetHistogram() != nil {
				return float64(metric.GetHistogram().GetSampleCount()), true
			}
		}
	}
	return 0, false
}

func TestRecordCriterion(t *testing.T) {
	recordCriterion("metrics-suite", StatusPassed)
	recordCriterion("metrics-suite", StatusPassed)
	recordCriterion("metrics-suite", StatusFailed)

	passed, ok := gatherValue(t, "codeact_evaluation_criteria_total",
		map[string]string{"suite": "metrics-suite", "status": "PASSED"})
	require.True(t, ok, "passed counter not found")
	require.Equal(t, float64(2), passed)

	failed, ok := gatherValue(t, "codeact_evaluation_criteria_total",
		map[string]string{"suite": "metrics-suite", "status": "FAILED"})
	require.True(t, ok, "failed counter not found")
	require.Equal(t, float64(1), failed)
}

func TestRecordSuite(t *testing.T) {
	recordSuite("metrics-suite-2", true, 120*time.Millisecond)
	recordSuite("metrics-suite-2", false, 40*time.Millisecond)

	passed, ok := gatherValue(t, "codeact_evaluation_suites_total",
		map[string]string{"suite": "metrics-suite-2", "passed": "true"})
	require.True(t, ok, "passed counter not found")
	require.Equal(t, float64(1), passed)

	samples, ok := gatherValue(t, "codeact_evaluation_suite_duration_seconds",
		map[string]string{"suite": "metrics-suite-2"})
	require.True(t, ok, "duration histogram not found")
	require.Equal(t, float64(2), samples)
}
