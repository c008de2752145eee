/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package observation

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/trace"
)

// parentKey is the context key for an explicitly propagated parent span.
type parentKey struct{}

// WithParent returns a context carrying span as the current parent for
// nested unit-of-work spans. This is the propagation path along a single
// logical call chain; it travels wherever the context travels.
func WithParent(ctx context.Context, span trace.Span) context.Context {
	return context.WithValue(ctx, parentKey{}, span)
}

// ParentFromContext returns the parent span carried by ctx, or nil.
func ParentFromContext(ctx context.Context) trace.Span {
	if span, ok := ctx.Value(parentKey{}).(trace.Span); ok {
		return span
	}
	return nil
}

// ParentContext carries the "current parent span" for a bounded unit of
// work that may fan out to goroutines the orchestration engine schedules
// without threading our context through. Callers set the parent before
// starting such work and clear it after; Parent falls back to the default
// supplied at construction when no per-run value is set.
//
// Contract for asynchronous dispatch: a context value does not cross a
// worker-pool submission boundary by itself. The issuer must capture the
// snapshot before submission and restore it as the first action inside the
// worker (see Snapshot). Failing to do so does not break span formation,
// only inter-goroutine parent linkage.
type ParentContext struct {
	mu      sync.RWMutex
	current trace.Span
	def     trace.Span
}

// NewParentContext creates a propagator with an optional default parent.
func NewParentContext(def trace.Span) *ParentContext {
	return &ParentContext{def: def}
}

// SetParent sets the current parent span for the active run.
func (p *ParentContext) SetParent(span trace.Span) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = span
}

// Parent returns the current parent span, falling back to the default
// supplied at construction. Returns nil when neither is set.
func (p *ParentContext) Parent() trace.Span {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current != nil {
		return p.current
	}
	return p.def
}

// Clear removes the per-run parent. The constructor default remains.
func (p *ParentContext) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = nil
}

// Snapshot captures the current parent span together with the ambient
// trace context so both can be re-established inside a worker goroutine.
type Snapshot struct {
	parent trace.Span
	ctx    context.Context
}

// Capture snapshots the resolved parent and the ambient context at the
// dispatch site. The returned snapshot's context is detached from the
// caller's cancellation so the async work is not torn down with the
// submitting request.
func (p *ParentContext) Capture(ctx context.Context) Snapshot {
	parent := ParentFromContext(ctx)
	if parent == nil {
		parent = p.Parent()
	}
	detached := context.WithoutCancel(ctx)
	if parent != nil {
		detached = trace.ContextWithSpan(detached, parent)
	}
	return Snapshot{parent: parent, ctx: detached}
}

// Restore re-establishes the captured parent inside a worker goroutine and
// returns the context to run under plus a release function that must be
// called when the work finishes (typically via defer).
func (s Snapshot) Restore(p *ParentContext) (context.Context, func()) {
	if s.parent != nil {
		p.SetParent(s.parent)
	}
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if s.parent != nil {
		ctx = WithParent(ctx, s.parent)
	}
	return ctx, p.Clear
}

// Parent returns the captured parent span, or nil.
func (s Snapshot) Parent() trace.Span {
	return s.parent
}
