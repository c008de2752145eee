/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package execution

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainguard-dev/clog"

	"chainguard.dev/codeact/toolbridge"
)

// ErrConfiguration indicates an invalid or incomplete executor setup.
var ErrConfiguration = errors.New("configuration error")

// Engine is the external sandboxed interpreter. Implementations run the
// code with the bridge injected as the tool-call surface and return the
// execution's serialized result.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines.
// - Errors: an error means the code execution itself failed; tool failures
//   that the code handled as data do not surface here.
type Engine interface {
	Execute(ctx context.Context, code string, bridge *toolbridge.Bridge) (string, error)
}

// Detailer is an optional error capability for engines that can report a
// stack-like detail of where the sandboxed code failed.
type Detailer interface {
	Detail() string
}

// Params describes one code execution.
type Params struct {
	// FunctionName identifies the generated function being executed.
	FunctionName string
	// Language is the target language tag of the generated code.
	Language string
	// Code is the source to execute.
	Code string
}

// Executor runs sandboxed code executions. It owns the Record of each
// execution and wires a fresh Bridge for every run.
type Executor struct {
	engine   Engine
	registry toolbridge.Registry
	observer toolbridge.ReturnShapeObserver
	metrics  *toolbridge.Metrics
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithReturnShapeObserver attaches a return-shape observer to every
// execution's bridge.
func WithReturnShapeObserver(obs toolbridge.ReturnShapeObserver) ExecutorOption {
	return func(e *Executor) { e.observer = obs }
}

// WithToolMetrics attaches tool-call metrics to every execution's bridge.
func WithToolMetrics(m *toolbridge.Metrics) ExecutorOption {
	return func(e *Executor) { e.metrics = m }
}

// NewExecutor creates an executor around the given engine and registry.
func NewExecutor(engine Engine, registry toolbridge.Registry, opts ...ExecutorOption) (*Executor, error) {
	if engine == nil {
		return nil, fmt.Errorf("%w: engine is required", ErrConfiguration)
	}
	if registry == nil {
		return nil, fmt.Errorf("%w: tool registry is required", ErrConfiguration)
	}
	e := &Executor{engine: engine, registry: registry}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Execute runs one code execution and returns its closed record. The
// engine's own error (if any) is returned alongside the failure record;
// tool-level failures contained by the bridge leave the record successful.
func (e *Executor) Execute(ctx context.Context, p Params) (*Record, error) {
	log := clog.FromContext(ctx).With("function", p.FunctionName, "language", p.Language)

	rec := NewRecord(p.FunctionName, p.Language)
	bridge := toolbridge.New(ctx, e.registry, rec,
		toolbridge.WithObserver(e.observer),
		toolbridge.WithMetrics(e.metrics))

	result, err := e.engine.Execute(ctx, p.Code, bridge)
	if err != nil {
		rec.CloseFailure(err.Error(), errorDetail(err))
		log.With("error", err, "tool_calls", len(rec.CallTrace())).Error("code execution failed")
		return rec, err
	}

	rec.CloseSuccess(result)
	log.With("duration_ms", rec.Duration().Milliseconds(),
		"tool_calls", len(rec.CallTrace())).Info("code execution completed")
	return rec, nil
}

// errorDetail extracts a stack-like detail from the engine error when the
// engine can provide one.
func errorDetail(err error) string {
	var d Detailer
	if errors.As(err, &d) {
		return d.Detail()
	}
	return fmt.Sprintf("%+v", err)
}
