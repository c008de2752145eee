/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evals

import (
	"context"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"chainguard.dev/codeact/observation"
	"chainguard.dev/codeact/sidechannel"
)

const (
	// joinNodePrefix marks synchronization pseudo-nodes the graph engine
	// inserts between concurrent waves.
	joinNodePrefix = "join_"
	// frameworkNodePrefix marks internal engine nodes.
	frameworkNodePrefix = "__"

	criterionSpanName = "codeact.evaluation.criterion"
	// resultStateSuffix is where a criterion writes its result into shared
	// state; the snapshot under this key is the fallback when nothing was
	// published on the side channel.
	resultStateSuffix = "_result"
)

// RunConfig identifies one graph execution.
type RunConfig struct {
	// ThreadID scopes node keys so concurrent runs do not collide.
	ThreadID string
}

func (c RunConfig) threadID() string {
	if c.ThreadID == "" {
		return "default"
	}
	return c.ThreadID
}

// Listener bridges the graph engine's node lifecycle to criterion spans.
// Before opens a span for the node, After closes it with the criterion's
// result attributes, OnError closes it failed. Framework pseudo-nodes
// (join_*, __*) are ignored on every path.
type Listener struct {
	registry *observation.Registry
	parents  *observation.ParentContext
	results  *sidechannel.Publisher[CriterionResult]
	cfg      observation.Config
}

// NewListener creates a lifecycle listener. The parent context may be nil
// when criterion spans should only parent through the ambient context.
func NewListener(registry *observation.Registry, parents *observation.ParentContext,
	results *sidechannel.Publisher[CriterionResult], cfg observation.Config) *Listener {
	return &Listener{
		registry: registry,
		parents:  parents,
		results:  results,
		cfg:      cfg,
	}
}

// skippable reports whether nodeID names a framework pseudo-node.
func skippable(nodeID string) bool {
	return strings.HasPrefix(nodeID, joinNodePrefix) || strings.HasPrefix(nodeID, frameworkNodePrefix)
}

// Before opens the span for one criterion node.
func (l *Listener) Before(ctx context.Context, nodeID string, rc RunConfig) {
	if skippable(nodeID) {
		return
	}
	var parent trace.Span
	if l.parents != nil {
		parent = l.parents.Parent()
	}
	key := observation.NodeKey(rc.threadID(), nodeID)
	l.registry.Open(ctx, key, criterionSpanName, trace.SpanKindInternal, parent,
		attribute.String("gen_ai.span_kind_name", "EVALUATOR"),
		attribute.String("gen_ai.operation.name", "evaluate"),
		attribute.String("codeact.evaluation.criterion_name", nodeID),
	)
}

// After closes the span for one criterion node, attaching the result. The
// side channel is consulted first; the state snapshot handed in by the
// engine is a fallback because it may predate the criterion's own writes.
func (l *Listener) After(ctx context.Context, nodeID string, snapshot map[string]any, rc RunConfig) {
	if skippable(nodeID) {
		return
	}
	key := observation.NodeKey(rc.threadID(), nodeID)

	result, ok := l.takeResult(nodeID, snapshot)
	if !ok {
		clog.FromContext(ctx).With("node", nodeID).Warn("criterion completed without a result")
		l.registry.Close(ctx, key, nil)
		return
	}
	l.registry.Close(ctx, key, nil, l.resultAttributes(result)...)
}

// OnError closes the span for one criterion node as failed.
func (l *Listener) OnError(ctx context.Context, nodeID string, err error, rc RunConfig) {
	if skippable(nodeID) {
		return
	}
	key := observation.NodeKey(rc.threadID(), nodeID)
	l.registry.Close(ctx, key, err,
		attribute.String("codeact.evaluation.status", string(StatusError)))
}

// takeResult resolves the criterion's result: side channel wins, snapshot
// is the fallback.
func (l *Listener) takeResult(nodeID string, snapshot map[string]any) (CriterionResult, bool) {
	if l.results != nil {
		if result, ok := l.results.TakeAndClear(nodeID); ok {
			return result, true
		}
	}
	if result, ok := snapshot[nodeID+resultStateSuffix].(CriterionResult); ok {
		return result, true
	}
	return CriterionResult{}, false
}

// resultAttributes maps a criterion result onto span attributes, capping
// free-text fields at the configured limits.
func (l *Listener) resultAttributes(result CriterionResult) []attribute.KeyValue {
	detail := l.cfg.DetailAttributeLimit
	prompt := l.cfg.PromptAttributeLimit

	attrs := []attribute.KeyValue{
		attribute.String("codeact.evaluation.status", string(result.Status)),
	}
	if result.Value != nil {
		attrs = append(attrs, attribute.String("codeact.evaluation.value",
			observation.Truncate(fmt.Sprintf("%v", result.Value), detail)))
	}
	if result.Reason != "" {
		attrs = append(attrs, attribute.String("codeact.evaluation.reason",
			observation.Truncate(result.Reason, detail)))
	}
	if result.RawPrompt != "" {
		attrs = append(attrs, attribute.String("gen_ai.input.messages",
			observation.Truncate(result.RawPrompt, prompt)))
	}
	if result.RawResponse != "" {
		attrs = append(attrs, attribute.String("gen_ai.output.messages",
			observation.Truncate(result.RawResponse, prompt)))
	}
	if result.ErrorMessage != "" {
		attrs = append(attrs, attribute.String("codeact.evaluation.error",
			observation.Truncate(result.ErrorMessage, detail)))
	}
	return attrs
}
