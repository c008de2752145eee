/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package observation

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// InterceptorType distinguishes the two interceptor families.
type InterceptorType string

const (
	InterceptorModel InterceptorType = "model"
	InterceptorTool  InterceptorType = "tool"
)

// PhaseNodeType distinguishes the react-loop node families.
type PhaseNodeType string

const (
	PhaseLLM  PhaseNodeType = "llm"
	PhaseTool PhaseNodeType = "tool"
)

// statusError carries a failure message reported by a unit of work that
// finished without a Go error (success=false in its context).
type statusError string

func (e statusError) Error() string { return string(e) }

func failure(msg string) error {
	if msg == "" {
		msg = "unit of work reported failure"
	}
	return statusError(msg)
}

// HookContext describes one hook execution for span naming and attributes.
type HookContext struct {
	SessionID    string
	HookName     string
	Position     string // e.g. "before_agent", "after_agent"
	Success      bool
	ErrorMessage string
}

func (c HookContext) spanName() string {
	name := strings.ToLower(c.HookName)
	if name == "" {
		name = "unknown"
	}
	return "codeact.hook." + name
}

func (c HookContext) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("codeact.hook.name", c.HookName),
	}
	if c.Position != "" {
		attrs = append(attrs, attribute.String("codeact.hook.position", c.Position))
	}
	if c.SessionID != "" {
		attrs = append(attrs, attribute.String(KeySessionID, c.SessionID))
	}
	return attrs
}

// OpenHookSpan opens the span for one hook execution under nodeKey.
func (r *Registry) OpenHookSpan(ctx context.Context, nodeKey string, c HookContext) (context.Context, trace.Span) {
	return r.Open(ctx, nodeKey, c.spanName(), trace.SpanKindInternal, nil, c.attributes()...)
}

// CloseHookSpan closes the hook span under nodeKey with the final context.
// A non-nil err marks the span failed; so does success=false, using the
// context's error message.
func (r *Registry) CloseHookSpan(ctx context.Context, nodeKey string, c HookContext, err error) {
	if err == nil && !c.Success {
		err = failure(c.ErrorMessage)
	}
	r.Close(ctx, nodeKey, err, attribute.Bool("codeact.hook.success", c.Success))
}

// InterceptorContext describes one interceptor execution.
type InterceptorContext struct {
	SessionID       string
	InterceptorName string
	Type            InterceptorType
	Success         bool
	ErrorMessage    string

	// Token usage, attached on close for model interceptors.
	InputTokens  int64
	OutputTokens int64
}

func (c InterceptorContext) spanName() string {
	typ := string(c.Type)
	if typ == "" {
		typ = "unknown"
	}
	name := strings.ToLower(c.InterceptorName)
	if name == "" {
		name = "unknown"
	}
	return "codeact.interceptor." + typ + "." + name
}

func (c InterceptorContext) kind() trace.SpanKind {
	if c.Type == InterceptorModel {
		return trace.SpanKindClient
	}
	return trace.SpanKindInternal
}

func (c InterceptorContext) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("codeact.interceptor.name", c.InterceptorName),
		attribute.String("codeact.interceptor.type", string(c.Type)),
	}
	if c.SessionID != "" {
		attrs = append(attrs, attribute.String(KeySessionID, c.SessionID))
	}
	return attrs
}

// OpenInterceptorSpan opens the span for one interceptor execution. Model
// interceptors get a CLIENT span, everything else INTERNAL.
func (r *Registry) OpenInterceptorSpan(ctx context.Context, nodeKey string, c InterceptorContext) (context.Context, trace.Span) {
	return r.Open(ctx, nodeKey, c.spanName(), c.kind(), nil, c.attributes()...)
}

// CloseInterceptorSpan closes the interceptor span, attaching token usage
// when present.
func (r *Registry) CloseInterceptorSpan(ctx context.Context, nodeKey string, c InterceptorContext, err error) {
	attrs := []attribute.KeyValue{
		attribute.Bool("codeact.interceptor.success", c.Success),
	}
	attrs = appendTokenUsage(attrs, c.InputTokens, c.OutputTokens)
	if err == nil && !c.Success {
		err = failure(c.ErrorMessage)
	}
	r.Close(ctx, nodeKey, err, attrs...)
}

// PhaseContext describes one react-loop phase (an LLM call or a tool-node
// step).
type PhaseContext struct {
	SessionID    string
	NodeType     PhaseNodeType
	Success      bool
	ErrorMessage string

	InputTokens  int64
	OutputTokens int64
	FinishReason string
}

func (c PhaseContext) spanName() string {
	typ := string(c.NodeType)
	if typ == "" {
		typ = "unknown"
	}
	return "codeact.react." + typ
}

func (c PhaseContext) kind() trace.SpanKind {
	if c.NodeType == PhaseLLM {
		return trace.SpanKindClient
	}
	return trace.SpanKindInternal
}

func (c PhaseContext) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("codeact.react.node_type", string(c.NodeType)),
	}
	if c.SessionID != "" {
		attrs = append(attrs, attribute.String(KeySessionID, c.SessionID))
	}
	return attrs
}

// OpenPhaseSpan opens the span for one react-loop phase. LLM phases get a
// CLIENT span.
func (r *Registry) OpenPhaseSpan(ctx context.Context, nodeKey string, c PhaseContext) (context.Context, trace.Span) {
	return r.Open(ctx, nodeKey, c.spanName(), c.kind(), nil, c.attributes()...)
}

// ClosePhaseSpan closes the phase span, attaching token usage and finish
// reason when present.
func (r *Registry) ClosePhaseSpan(ctx context.Context, nodeKey string, c PhaseContext, err error) {
	attrs := []attribute.KeyValue{
		attribute.Bool("codeact.react.success", c.Success),
	}
	attrs = appendTokenUsage(attrs, c.InputTokens, c.OutputTokens)
	if c.FinishReason != "" {
		attrs = append(attrs, attribute.String("gen_ai.response.finish_reasons", c.FinishReason))
	}
	if err == nil && !c.Success {
		err = failure(c.ErrorMessage)
	}
	r.Close(ctx, nodeKey, err, attrs...)
}

// appendTokenUsage attaches gen_ai token-usage attributes for values that
// were actually reported.
func appendTokenUsage(attrs []attribute.KeyValue, input, output int64) []attribute.KeyValue {
	if input > 0 {
		attrs = append(attrs, attribute.Int64("gen_ai.usage.input_tokens", input))
	}
	if output > 0 {
		attrs = append(attrs, attribute.Int64("gen_ai.usage.output_tokens", output))
	}
	return attrs
}
