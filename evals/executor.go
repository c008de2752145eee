/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evals

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"chainguard.dev/codeact/observation"
	"chainguard.dev/codeact/retry"
	"chainguard.dev/codeact/sidechannel"
)

// GraphExecutor runs suites as dependency graphs: independent criteria
// evaluate concurrently, dependent criteria wait for their wave. One
// executor serves one logical run at a time when an explicit parent span
// is used; concurrent runs should either share no parent or use separate
// executors.
type GraphExecutor struct {
	listener *Listener
	parents  *observation.ParentContext
	results  *sidechannel.Publisher[CriterionResult]
	cfg      observation.Config

	retryCfg  retry.Config
	retryable func(error) bool
}

// GraphOption configures a GraphExecutor.
type GraphOption func(*GraphExecutor)

// WithRetry sets the backoff bounds applied to retryable criteria.
func WithRetry(cfg retry.Config) GraphOption {
	return func(e *GraphExecutor) { e.retryCfg = cfg }
}

// WithRetryClassifier sets the error classifier for retryable criteria.
// Without one, every error from a retryable criterion is retried.
func WithRetryClassifier(fn func(error) bool) GraphOption {
	return func(e *GraphExecutor) { e.retryable = fn }
}

// NewGraphExecutor creates a graph executor. The listener, parent holder
// and side channel are shared with the caller so results and spans flow
// through one pipeline.
func NewGraphExecutor(listener *Listener, parents *observation.ParentContext,
	results *sidechannel.Publisher[CriterionResult], cfg observation.Config, opts ...GraphOption) *GraphExecutor {
	if parents == nil {
		parents = observation.NewParentContext(nil)
	}
	e := &GraphExecutor{
		listener: listener,
		parents:  parents,
		results:  results,
		cfg:      cfg,
		retryCfg: retry.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the suite to completion. An individual criterion error is
// recorded in that criterion's result and does not abort the suite; the
// returned error covers only suite-level failures such as an invalid
// graph. When parent is non-nil, every criterion span nests under it.
func (e *GraphExecutor) Execute(ctx context.Context, suite Suite, target *Target, parent trace.Span) (Result, error) {
	waves, err := suite.waves()
	if err != nil {
		return Result{}, err
	}

	if parent != nil {
		e.parents.SetParent(parent)
		defer e.parents.Clear()
		ctx = observation.WithParent(ctx, parent)
	}

	start := time.Now()
	rc := RunConfig{ThreadID: sessionOf(target)}
	log := clog.FromContext(ctx).With("suite", suite.ID, "thread", rc.threadID())

	var mu sync.Mutex
	state := make(map[string]any)
	outcomes := make(map[string]CriterionResult, len(suite.Criteria))

	for i, wave := range waves {
		// The snapshot handed to after callbacks is cloned before the wave
		// runs, so it never contains the wave's own writes. Results reach
		// the listener through the side channel instead.
		mu.Lock()
		snapshot := maps.Clone(state)
		mu.Unlock()

		g, gctx := errgroup.WithContext(ctx)
		if e.cfg.AsyncWorkers > 0 {
			g.SetLimit(e.cfg.AsyncWorkers)
		}
		for _, c := range wave {
			g.Go(func() error {
				res := e.runCriterion(gctx, suite.ID, c, target, snapshot, rc)
				mu.Lock()
				state[c.Name+resultStateSuffix] = res
				outcomes[c.Name] = res
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Result{}, err
		}

		// Concurrent waves are joined through a pseudo-node, which the
		// listener must ignore.
		if len(wave) > 1 && i < len(waves)-1 {
			joinID := fmt.Sprintf("%s%d", joinNodePrefix, i)
			e.listener.Before(ctx, joinID, rc)
			e.listener.After(ctx, joinID, snapshot, rc)
		}
	}

	result := Result{
		SuiteID:  suite.ID,
		Passed:   true,
		Criteria: outcomes,
	}
	for _, res := range outcomes {
		if !res.Passed() {
			result.Passed = false
			break
		}
	}

	recordSuite(suite.ID, result.Passed, time.Since(start))
	log.With("passed", result.Passed,
		"criteria", len(outcomes),
		"duration_ms", time.Since(start).Milliseconds()).Info("evaluation suite completed")
	return result, nil
}

// runCriterion evaluates one criterion and drives the listener lifecycle
// around it. The result is published on the side channel before the after
// callback fires, so the listener sees it despite the stale snapshot.
func (e *GraphExecutor) runCriterion(ctx context.Context, suiteID string, c Criterion,
	target *Target, snapshot map[string]any, rc RunConfig) CriterionResult {
	e.listener.Before(ctx, c.Name, rc)

	res, err := e.evaluate(ctx, c, target)
	if err != nil {
		res = CriterionResult{
			CriterionName: c.Name,
			Status:        StatusError,
			ErrorMessage:  err.Error(),
		}
		e.publish(c.Name, res)
		recordCriterion(suiteID, res.Status)
		e.listener.OnError(ctx, c.Name, err, rc)
		return res
	}

	res.CriterionName = c.Name
	e.publish(c.Name, res)
	recordCriterion(suiteID, res.Status)
	e.listener.After(ctx, c.Name, snapshot, rc)
	return res
}

// evaluate invokes the criterion implementation, with backoff for
// retryable criteria.
func (e *GraphExecutor) evaluate(ctx context.Context, c Criterion, target *Target) (CriterionResult, error) {
	if c.Evaluate == nil {
		return CriterionResult{}, fmt.Errorf("%w: criterion %q has no implementation", ErrInvalidSuite, c.Name)
	}
	if !c.Retryable {
		return c.Evaluate(ctx, target)
	}
	return retry.Do(ctx, e.retryCfg, "criterion "+c.Name, e.retryable, func() (CriterionResult, error) {
		return c.Evaluate(ctx, target)
	})
}

func (e *GraphExecutor) publish(name string, res CriterionResult) {
	if e.results != nil {
		e.results.Publish(name, res)
	}
}

func sessionOf(target *Target) string {
	if target == nil {
		return ""
	}
	return target.SessionID
}

// Future is the handle for an asynchronous suite execution.
type Future struct {
	done   chan struct{}
	result Result
	err    error
}

// Wait blocks until the execution finishes or ctx is done.
func (f *Future) Wait(ctx context.Context) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-f.done:
		return f.result, f.err
	}
}

// ExecuteAsync runs the suite in a background goroutine. The parent span
// and ambient trace context are captured at the dispatch site and restored
// inside the worker, because neither crosses the goroutine boundary by
// itself; the captured context is detached from the caller's cancellation.
func (e *GraphExecutor) ExecuteAsync(ctx context.Context, suite Suite, target *Target, parent trace.Span) *Future {
	if parent != nil {
		ctx = observation.WithParent(ctx, parent)
	}
	snap := e.parents.Capture(ctx)

	f := &Future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		wctx, release := snap.Restore(e.parents)
		defer release()
		f.result, f.err = e.Execute(wctx, suite, target, snap.Parent())
	}()
	return f
}
