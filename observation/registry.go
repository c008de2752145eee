/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package observation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// NodeKey builds the composite key identifying one in-flight unit of work:
// the session (or thread) identity joined with the unit identity. The key
// must be unique per concurrently open unit; reuse after Close is safe
// because the Registry removes the entry before ending the span.
func NodeKey(sessionID, unit string) string {
	if sessionID == "" {
		sessionID = "default"
	}
	return sessionID + ":" + unit
}

// spanEntry pairs an open span with its scope: the context that makes the
// span current for nested work until the entry is closed.
type spanEntry struct {
	span  trace.Span
	scope context.Context
	start time.Time
}

// Registry owns the open/close lifecycle of unit-of-work spans, keyed by
// node key. All methods are safe for concurrent use and all of them are
// no-ops when the Registry was built without a tracer.
type Registry struct {
	tracer trace.Tracer

	mu      sync.Mutex
	entries map[string]*spanEntry
}

// NewRegistry creates a span registry. A nil tracer disables tracing:
// Open returns a nil span (which every call site must tolerate silently)
// and Close does nothing.
func NewRegistry(tracer trace.Tracer) *Registry {
	return &Registry{
		tracer:  tracer,
		entries: make(map[string]*spanEntry),
	}
}

// Enabled reports whether a tracer is configured.
func (r *Registry) Enabled() bool {
	return r != nil && r.tracer != nil
}

// Open starts a span for the given node key and makes it current in the
// returned context. The parent is resolved from, in order: the explicit
// parent argument, the parent carried by ctx (see WithParent), or the
// ambient span already current in ctx. Returns (ctx, nil) when tracing is
// disabled.
func (r *Registry) Open(ctx context.Context, nodeKey, name string, kind trace.SpanKind, parent trace.Span, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if !r.Enabled() {
		return ctx, nil
	}

	if parent == nil {
		parent = ParentFromContext(ctx)
	}
	if parent != nil {
		ctx = trace.ContextWithSpan(ctx, parent)
	}

	scope, span := r.tracer.Start(ctx, name,
		trace.WithSpanKind(kind),
		trace.WithAttributes(attrs...))

	r.mu.Lock()
	r.entries[nodeKey] = &spanEntry{span: span, scope: scope, start: time.Now()}
	r.mu.Unlock()

	clog.FromContext(ctx).With("node_key", nodeKey, "span", name).Debug("opened span")
	return scope, span
}

// Close ends the span for nodeKey, attaching the final attributes and, if
// err is non-nil, marking the span failed with the error recorded. The
// entry is removed before the span ends so the same key can be reopened
// immediately by a retried unit of work. Closing an unknown key (double
// close, close without open) logs a warning and returns; it never raises.
func (r *Registry) Close(ctx context.Context, nodeKey string, err error, attrs ...attribute.KeyValue) {
	if !r.Enabled() {
		return
	}

	entry := r.take(nodeKey)
	if entry == nil {
		clog.FromContext(ctx).With("node_key", nodeKey).Warn("no open span for node key")
		return
	}

	entry.span.SetAttributes(attrs...)
	entry.span.SetAttributes(attribute.Int64("duration.ms", time.Since(entry.start).Milliseconds()))
	if err != nil {
		entry.span.SetStatus(codes.Error, err.Error())
		entry.span.RecordError(err)
		entry.span.SetAttributes(attribute.String("error.type", fmt.Sprintf("%T", err)))
	}
	entry.span.End()
}

// take removes and returns the entry for nodeKey, or nil.
func (r *Registry) take(nodeKey string) *spanEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry := r.entries[nodeKey]
	delete(r.entries, nodeKey)
	return entry
}

// Scope returns the context in which the span for nodeKey is current, for
// nested work that wants to parent under it. Returns (nil, false) when the
// key is not open.
func (r *Registry) Scope(nodeKey string) (context.Context, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[nodeKey]
	if !ok {
		return nil, false
	}
	return entry.scope, true
}

// ActiveCount returns the number of currently open spans.
func (r *Registry) ActiveCount() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// CleanupSession ends and removes every open span whose node key starts
// with the given session prefix. Used when a session is torn down while
// units of work never reached their close callback; an unclosed span is a
// leak we would rather end late than never.
func (r *Registry) CleanupSession(ctx context.Context, sessionPrefix string) {
	if !r.Enabled() {
		return
	}

	r.mu.Lock()
	var orphans []string
	for key := range r.entries {
		if strings.HasPrefix(key, sessionPrefix) {
			orphans = append(orphans, key)
		}
	}
	stale := make([]*spanEntry, 0, len(orphans))
	for _, key := range orphans {
		stale = append(stale, r.entries[key])
		delete(r.entries, key)
	}
	r.mu.Unlock()

	log := clog.FromContext(ctx)
	for i, entry := range stale {
		entry.span.End()
		log.With("node_key", orphans[i]).Debug("cleaned up leaked span")
	}
}

// WithSpan runs fn inside a span that is guaranteed to end on every exit
// path, including panics. The wrapped function's own error propagates to
// the caller after being recorded on the span.
func (r *Registry) WithSpan(ctx context.Context, name string, attrs []attribute.KeyValue, fn func(context.Context) error) error {
	if !r.Enabled() {
		return fn(ctx)
	}

	ctx, span := r.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...))
	defer span.End()

	err := fn(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	}
	return err
}
