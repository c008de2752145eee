/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package toolbridge

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const (
	outcomeSuccess  = "success"
	outcomeFailure  = "failure"
	outcomeNotFound = "not_found"
)

// Metrics provides OpenTelemetry metrics for sandbox tool calls. A nil
// *Metrics is valid and records nothing, so wiring it is optional.
type Metrics struct {
	meter metric.Meter
	calls metric.Int64Counter
}

// NewMetrics creates a Metrics instance on the given meter name. Uses
// graceful degradation: if counter creation fails, logs a warning and
// substitutes a no-op counter instead of failing the caller.
func NewMetrics(meterName string) *Metrics {
	meter := otel.Meter(meterName, metric.WithInstrumentationVersion("1.0.0"))

	calls, err := meter.Int64Counter("codeact.tool.calls",
		metric.WithDescription("The number of host tool calls made from sandboxed code"),
		metric.WithUnit("{calls}"))
	if err != nil {
		slog.Warn("Failed to create tool call counter, metrics will be disabled", "error", err, "meter", meterName)
		calls = noop.Int64Counter{}
	}

	return &Metrics{meter: meter, calls: calls}
}

// recordCall counts one tool call with its outcome.
func (m *Metrics) recordCall(ctx context.Context, tool, outcome string) {
	if m == nil {
		return
	}
	m.calls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("outcome", outcome),
	))
}
