/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evals

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSuite indicates a suite that cannot be executed: duplicate
// criterion names, dependencies on unknown criteria, or dependency cycles.
var ErrInvalidSuite = errors.New("invalid evaluation suite")

// Status classifies the outcome of one criterion evaluation.
type Status string

const (
	StatusPassed  Status = "PASSED"
	StatusFailed  Status = "FAILED"
	StatusError   Status = "ERROR"
	StatusSkipped Status = "SKIPPED"
)

// Target is the material a suite evaluates: the session it belongs to and
// the values the criteria inspect (agent output, expectations, context).
type Target struct {
	SessionID string
	Values    map[string]any
}

// Value returns a named value from the target, or nil.
func (t *Target) Value(key string) any {
	if t == nil {
		return nil
	}
	return t.Values[key]
}

// CriterionResult is the outcome of one criterion evaluation. RawPrompt
// and RawResponse carry the model exchange for LLM-backed criteria and
// may be empty for deterministic ones.
type CriterionResult struct {
	CriterionName string `json:"criterion_name"`
	Status        Status `json:"status"`
	Value         any    `json:"value,omitempty"`
	Reason        string `json:"reason,omitempty"`
	RawPrompt     string `json:"raw_prompt,omitempty"`
	RawResponse   string `json:"raw_response,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

// Passed reports whether the criterion reached a passing terminal state.
func (r CriterionResult) Passed() bool {
	return r.Status == StatusPassed || r.Status == StatusSkipped
}

// CriterionFunc evaluates one criterion against a target.
type CriterionFunc func(ctx context.Context, target *Target) (CriterionResult, error)

// Criterion is one node of a suite's evaluation graph.
type Criterion struct {
	// Name identifies the criterion; unique within its suite.
	Name string `yaml:"name"`
	// Description is a human-readable statement of what the criterion checks.
	Description string `yaml:"description,omitempty"`
	// DependsOn lists criteria that must complete before this one runs.
	DependsOn []string `yaml:"depends_on,omitempty"`
	// Retryable marks criteria whose evaluation may transiently fail, such
	// as LLM-backed judges hitting rate limits.
	Retryable bool `yaml:"retryable,omitempty"`
	// Evaluate is the criterion implementation, bound at load time.
	Evaluate CriterionFunc `yaml:"-"`
}

// Suite is a named set of criteria forming a dependency graph.
type Suite struct {
	ID       string      `yaml:"id"`
	Name     string      `yaml:"name,omitempty"`
	Criteria []Criterion `yaml:"criteria"`
}

// Validate checks the suite's graph: names must be unique and non-empty,
// dependencies must name criteria in the suite, and the graph must be
// acyclic.
func (s Suite) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: suite id is required", ErrInvalidSuite)
	}
	if len(s.Criteria) == 0 {
		return fmt.Errorf("%w: suite %q has no criteria", ErrInvalidSuite, s.ID)
	}
	seen := make(map[string]bool, len(s.Criteria))
	for _, c := range s.Criteria {
		if c.Name == "" {
			return fmt.Errorf("%w: suite %q has a criterion without a name", ErrInvalidSuite, s.ID)
		}
		if strings.HasPrefix(c.Name, joinNodePrefix) || strings.HasPrefix(c.Name, frameworkNodePrefix) {
			return fmt.Errorf("%w: criterion name %q collides with framework node prefixes", ErrInvalidSuite, c.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("%w: duplicate criterion name %q", ErrInvalidSuite, c.Name)
		}
		seen[c.Name] = true
	}
	for _, c := range s.Criteria {
		for _, dep := range c.DependsOn {
			if !seen[dep] {
				return fmt.Errorf("%w: criterion %q depends on unknown criterion %q", ErrInvalidSuite, c.Name, dep)
			}
		}
	}
	if _, err := s.waves(); err != nil {
		return err
	}
	return nil
}

// waves orders the criteria into dependency waves: every criterion in a
// wave depends only on criteria from earlier waves, so criteria within a
// wave can run concurrently.
func (s Suite) waves() ([][]Criterion, error) {
	pending := make(map[string]Criterion, len(s.Criteria))
	for _, c := range s.Criteria {
		pending[c.Name] = c
	}
	done := make(map[string]bool, len(s.Criteria))

	var waves [][]Criterion
	for len(pending) > 0 {
		var wave []Criterion
		// Deterministic wave membership: scan in declaration order.
		for _, c := range s.Criteria {
			if _, ok := pending[c.Name]; !ok {
				continue
			}
			ready := true
			for _, dep := range c.DependsOn {
				if !done[dep] {
					ready = false
					break
				}
			}
			if ready {
				wave = append(wave, c)
			}
		}
		if len(wave) == 0 {
			return nil, fmt.Errorf("%w: dependency cycle among %d criteria in suite %q",
				ErrInvalidSuite, len(pending), s.ID)
		}
		for _, c := range wave {
			done[c.Name] = true
			delete(pending, c.Name)
		}
		waves = append(waves, wave)
	}
	return waves, nil
}

// Result is the aggregate outcome of one suite execution.
type Result struct {
	SuiteID  string                     `json:"suite_id"`
	Passed   bool                       `json:"passed"`
	Criteria map[string]CriterionResult `json:"criteria"`
}
