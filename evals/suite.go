/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evals

import (
	"errors"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrSuiteNotFound indicates a suite ID with no registered suite.
var ErrSuiteNotFound = errors.New("evaluation suite not found")

// LoadSuite parses a suite definition from YAML and binds each criterion
// to its implementation by name. Every criterion in the definition must
// have an implementation; every suite must validate.
func LoadSuite(data []byte, impls map[string]CriterionFunc) (Suite, error) {
	var suite Suite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return Suite{}, fmt.Errorf("%w: %w", ErrInvalidSuite, err)
	}
	for i, c := range suite.Criteria {
		fn, ok := impls[c.Name]
		if !ok {
			return Suite{}, fmt.Errorf("%w: no implementation for criterion %q", ErrInvalidSuite, c.Name)
		}
		suite.Criteria[i].Evaluate = fn
	}
	if err := suite.Validate(); err != nil {
		return Suite{}, err
	}
	return suite, nil
}

// SuiteRegistry holds the suites known to an evaluation service, keyed by
// suite ID. Safe for concurrent use.
type SuiteRegistry struct {
	mu     sync.RWMutex
	suites map[string]Suite
}

// NewSuiteRegistry creates an empty suite registry.
func NewSuiteRegistry() *SuiteRegistry {
	return &SuiteRegistry{suites: make(map[string]Suite)}
}

// Register validates and stores a suite, replacing any suite with the
// same ID.
func (r *SuiteRegistry) Register(suite Suite) error {
	if err := suite.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.suites[suite.ID] = suite
	return nil
}

// Load returns the suite registered under id.
func (r *SuiteRegistry) Load(id string) (Suite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	suite, ok := r.suites[id]
	if !ok {
		return Suite{}, fmt.Errorf("%w: %q", ErrSuiteNotFound, id)
	}
	return suite, nil
}

// IDs returns the registered suite IDs.
func (r *SuiteRegistry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.suites))
	for id := range r.suites {
		ids = append(ids, id)
	}
	return ids
}
