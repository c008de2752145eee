/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package toolbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chainguard-dev/clog"
)

// TraceAppender receives one call-trace entry per tool call, in invocation
// order. Implementations must be safe for concurrent appends.
type TraceAppender interface {
	AppendToolCall(tool string)
}

// ReturnShapeObserver learns the shape of tool results. Observe is best
// effort: the bridge swallows and logs anything it panics with or does
// wrong, so implementations need not be defensive about the primary path.
type ReturnShapeObserver interface {
	Observe(toolName, resultJSON string, success bool)
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithObserver attaches a return-shape observer.
func WithObserver(obs ReturnShapeObserver) Option {
	return func(b *Bridge) { b.observer = obs }
}

// WithMetrics attaches tool-call metrics.
func WithMetrics(m *Metrics) Option {
	return func(b *Bridge) { b.metrics = m }
}

// Bridge is the object exposed into the sandboxed runtime. Sandboxed code
// calls CallTool; everything else is host-side wiring. A Bridge belongs to
// exactly one code execution and appends to that execution's call trace,
// which it does not own.
type Bridge struct {
	ctx      context.Context
	registry Registry
	trace    TraceAppender
	observer ReturnShapeObserver
	metrics  *Metrics
}

// New creates a bridge for one code execution. The context is captured at
// construction because the sandboxed caller cannot thread one through;
// it scopes every tool invocation made during the execution.
func New(ctx context.Context, registry Registry, trace TraceAppender, opts ...Option) *Bridge {
	b := &Bridge{
		ctx:      ctx,
		registry: registry,
		trace:    trace,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// CallTool invokes the named host tool with serialized arguments and
// returns its serialized result. This is the sandbox-facing surface: it
// never panics and never returns a Go error. A missing tool or a failed
// tool yields {"error": "..."} so the agent's generated code can inspect
// and recover. The call is appended to the call trace before the tool
// runs.
func (b *Bridge) CallTool(toolName, argsJSON string) (result string) {
	ctx := b.ctx
	log := clog.FromContext(ctx).With("tool", toolName)

	tool, found := b.registry.Lookup(toolName)
	b.appendTrace(toolName, tool)

	if !found {
		log.Warn("tool not found in registry")
		b.metrics.recordCall(ctx, toolName, outcomeNotFound)
		return errorEnvelope(fmt.Sprintf("tool not found: %s", toolName))
	}

	// A panicking tool must not take the sandbox down with it.
	defer func() {
		if r := recover(); r != nil {
			log.With("panic", r).Error("tool panicked")
			b.metrics.recordCall(ctx, toolName, outcomeFailure)
			result = errorEnvelope(fmt.Sprintf("tool panicked: %v", r))
			b.observe(toolName, result, false)
		}
	}()

	out, err := tool.Invoke(ctx, argsJSON)
	if err != nil {
		log.With("error", err).Error("tool call failed")
		b.metrics.recordCall(ctx, toolName, outcomeFailure)
		envelope := errorEnvelope(err.Error())
		b.observe(toolName, envelope, false)
		return envelope
	}

	b.metrics.recordCall(ctx, toolName, outcomeSuccess)
	b.observe(toolName, out, true)
	return out
}

// appendTrace records the call in the execution's call trace, qualifying
// the tool name with its target type when the tool exposes one.
func (b *Bridge) appendTrace(toolName string, tool Tool) {
	if b.trace == nil {
		return
	}
	identifier := toolName
	if tp, ok := tool.(TargetProvider); ok {
		if target := tp.Target(); target != "" {
			identifier = target + "." + toolName
		}
	}
	b.trace.AppendToolCall(identifier)
}

// observe hands the result to the return-shape observer. Observer errors
// never reach the sandbox.
func (b *Bridge) observe(toolName, resultJSON string, success bool) {
	if b.observer == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			clog.FromContext(b.ctx).With("tool", toolName, "panic", r).
				Warn("return-shape observation failed")
		}
	}()
	b.observer.Observe(toolName, resultJSON, success)
}

// errorEnvelope encodes a failure as the JSON object returned to the
// sandbox. json.Marshal handles escaping of the embedded message.
func errorEnvelope(msg string) string {
	data, err := json.Marshal(map[string]string{"error": msg})
	if err != nil {
		// Marshal of map[string]string cannot fail; keep a literal
		// fallback anyway so the sandbox always gets valid JSON.
		return `{"error": "tool call failed"}`
	}
	return string(data)
}
