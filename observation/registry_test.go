/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package observation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newTestRegistry(t *testing.T) (*Registry, *tracetest.SpanRecorder) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	return NewRegistry(tp.Tracer("test")), rec
}

func attrValue(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestNodeKey(t *testing.T) {
	tests := []struct {
		sessionID, unit, want string
	}{
		{"sess-1", "critA", "sess-1:critA"},
		{"", "critA", "default:critA"},
		{"thread-9", "llm", "thread-9:llm"},
	}
	for _, tc := range tests {
		if got := NodeKey(tc.sessionID, tc.unit); got != tc.want {
			t.Errorf("NodeKey(%q, %q): got = %q, wanted = %q", tc.sessionID, tc.unit, got, tc.want)
		}
	}
}

func TestOpenCloseLifecycle(t *testing.T) {
	r, rec := newTestRegistry(t)
	ctx := context.Background()

	_, span := r.Open(ctx, "sess-1:critA", "unit.of.work", trace.SpanKindInternal, nil)
	if span == nil {
		t.Fatal("Open: got = nil span, wanted a live span")
	}
	if got := r.ActiveCount(); got != 1 {
		t.Errorf("ActiveCount after open: got = %d, wanted = 1", got)
	}

	r.Close(ctx, "sess-1:critA", nil, attribute.String("outcome", "ok"))

	if got := r.ActiveCount(); got != 0 {
		t.Errorf("ActiveCount after close: got = %d, wanted = 0", got)
	}
	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans: got = %d, wanted = 1", len(ended))
	}
	if got := ended[0].Name(); got != "unit.of.work" {
		t.Errorf("span name: got = %q, wanted = %q", got, "unit.of.work")
	}
	if v, ok := attrValue(ended[0], "outcome"); !ok || v.AsString() != "ok" {
		t.Errorf("outcome attribute: got = (%v, %t), wanted = (ok, true)", v.AsString(), ok)
	}
	if _, ok := attrValue(ended[0], "duration.ms"); !ok {
		t.Error("duration.ms attribute: got = absent, wanted = present")
	}
}

func TestCloseWithError(t *testing.T) {
	r, rec := newTestRegistry(t)
	ctx := context.Background()

	r.Open(ctx, "sess-1:critA", "unit.of.work", trace.SpanKindInternal, nil)
	r.Close(ctx, "sess-1:critA", errors.New("judge unavailable"))

	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans: got = %d, wanted = 1", len(ended))
	}
	if got := ended[0].Status().Code; got != codes.Error {
		t.Errorf("status code: got = %v, wanted = %v", got, codes.Error)
	}
	if got := len(ended[0].Events()); got == 0 {
		t.Error("recorded error events: got = 0, wanted > 0")
	}
}

func TestDoubleCloseIsSafe(t *testing.T) {
	r, rec := newTestRegistry(t)
	ctx := context.Background()

	r.Open(ctx, "s1:critA", "unit.of.work", trace.SpanKindInternal, nil)
	r.Close(ctx, "s1:critA", nil)
	r.Close(ctx, "s1:critA", nil) // second close must be a no-op

	if got := len(rec.Ended()); got != 1 {
		t.Errorf("ended spans: got = %d, wanted = 1", got)
	}
}

func TestCloseWithoutOpenIsSafe(t *testing.T) {
	r, rec := newTestRegistry(t)

	r.Close(context.Background(), "s1:never-opened", nil)

	if got := len(rec.Ended()); got != 0 {
		t.Errorf("ended spans: got = %d, wanted = 0", got)
	}
}

func TestOpenWithExplicitParent(t *testing.T) {
	r, rec := newTestRegistry(t)
	ctx := context.Background()

	pctx, parent := r.Open(ctx, "s1:parent", "outer", trace.SpanKindInternal, nil)
	r.Open(ctx, "s1:child", "inner", trace.SpanKindInternal, parent)
	r.Close(ctx, "s1:child", nil)
	r.Close(pctx, "s1:parent", nil)

	ended := rec.Ended()
	if len(ended) != 2 {
		t.Fatalf("ended spans: got = %d, wanted = 2", len(ended))
	}
	child := ended[0]
	if got, want := child.Parent().SpanID(), parent.SpanContext().SpanID(); got != want {
		t.Errorf("child parent span ID: got = %s, wanted = %s", got, want)
	}
	if got, want := child.SpanContext().TraceID(), parent.SpanContext().TraceID(); got != want {
		t.Errorf("child trace ID: got = %s, wanted = %s", got, want)
	}
}

func TestOpenWithContextParent(t *testing.T) {
	r, rec := newTestRegistry(t)

	_, parent := r.Open(context.Background(), "s1:parent", "outer", trace.SpanKindInternal, nil)
	ctx := WithParent(context.Background(), parent)
	r.Open(ctx, "s1:child", "inner", trace.SpanKindInternal, nil)
	r.Close(ctx, "s1:child", nil)

	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans: got = %d, wanted = 1", len(ended))
	}
	if got, want := ended[0].Parent().SpanID(), parent.SpanContext().SpanID(); got != want {
		t.Errorf("child parent span ID: got = %s, wanted = %s", got, want)
	}
}

func TestDisabledRegistry(t *testing.T) {
	r := NewRegistry(nil)
	ctx := context.Background()

	if r.Enabled() {
		t.Error("Enabled(): got = true, wanted = false")
	}
	sctx, span := r.Open(ctx, "s1:critA", "unit.of.work", trace.SpanKindInternal, nil)
	if span != nil {
		t.Errorf("Open on disabled registry: got = %v, wanted = nil span", span)
	}
	if sctx != ctx {
		t.Error("Open on disabled registry: got = new context, wanted the input context")
	}
	r.Close(ctx, "s1:critA", nil)
	if got := r.ActiveCount(); got != 0 {
		t.Errorf("ActiveCount: got = %d, wanted = 0", got)
	}
}

func TestScope(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	sctx, _ := r.Open(ctx, "s1:critA", "unit.of.work", trace.SpanKindInternal, nil)

	scope, ok := r.Scope("s1:critA")
	if !ok {
		t.Fatal("Scope(s1:critA): got = absent, wanted = present")
	}
	if scope != sctx {
		t.Error("Scope(s1:critA): got = different context, wanted the open scope")
	}

	r.Close(ctx, "s1:critA", nil)
	if _, ok := r.Scope("s1:critA"); ok {
		t.Error("Scope after close: got = present, wanted = absent")
	}
}

func TestCleanupSession(t *testing.T) {
	r, rec := newTestRegistry(t)
	ctx := context.Background()

	r.Open(ctx, "sess-1:critA", "unit.of.work", trace.SpanKindInternal, nil)
	r.Open(ctx, "sess-1:critB", "unit.of.work", trace.SpanKindInternal, nil)
	r.Open(ctx, "sess-2:critA", "unit.of.work", trace.SpanKindInternal, nil)

	r.CleanupSession(ctx, "sess-1:")

	if got := len(rec.Ended()); got != 2 {
		t.Errorf("ended spans: got = %d, wanted = 2", got)
	}
	if got := r.ActiveCount(); got != 1 {
		t.Errorf("ActiveCount: got = %d, wanted = 1", got)
	}
}

func TestWithSpan(t *testing.T) {
	r, rec := newTestRegistry(t)

	wantErr := errors.New("boom")
	err := r.WithSpan(context.Background(), "wrapped", nil, func(context.Context) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("WithSpan error: got = %v, wanted = %v", err, wantErr)
	}

	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans: got = %d, wanted = 1", len(ended))
	}
	if got := ended[0].Status().Code; got != codes.Error {
		t.Errorf("status code: got = %v, wanted = %v", got, codes.Error)
	}
}
