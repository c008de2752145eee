/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evals

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// Service resolves suites by ID and runs them through a graph executor.
type Service struct {
	suites   *SuiteRegistry
	executor *GraphExecutor
}

// NewService creates an evaluation service over the given suites and
// executor.
func NewService(suites *SuiteRegistry, executor *GraphExecutor) *Service {
	return &Service{suites: suites, executor: executor}
}

// Evaluate runs the registered suite synchronously.
func (s *Service) Evaluate(ctx context.Context, suiteID string, target *Target, parent trace.Span) (Result, error) {
	suite, err := s.suites.Load(suiteID)
	if err != nil {
		return Result{}, err
	}
	return s.executor.Execute(ctx, suite, target, parent)
}

// EvaluateAsync runs the registered suite in the background. Suite lookup
// still happens synchronously so an unknown ID fails fast.
func (s *Service) EvaluateAsync(ctx context.Context, suiteID string, target *Target, parent trace.Span) (*Future, error) {
	suite, err := s.suites.Load(suiteID)
	if err != nil {
		return nil, err
	}
	return s.executor.ExecuteAsync(ctx, suite, target, parent), nil
}
