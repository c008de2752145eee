/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package sidechannel provides an out-of-band store that lets a unit of
// work publish its outcome past a stale state snapshot.
//
// Some orchestration engines hand "after" callbacks a value snapshot of
// shared state captured before the unit of work's own writes became
// visible. A Publisher bypasses that snapshot: the producer publishes its
// result under a short-lived logical name, and the closing step takes it
// back out exactly once.
package sidechannel

import "sync"

// Publisher is a write-once, read-and-remove-once result store keyed by
// unit-of-work name. Publish overwrites any unconsumed prior value for the
// same key; TakeAndClear is the only read path and always removes on read.
//
// A value that is never consumed stays until the same key is published
// again. That leak is acceptable because keys are short-lived logical
// names (e.g. criterion names), not unbounded identifiers. Do not key a
// Publisher by request or session IDs.
type Publisher[T any] struct {
	mu      sync.Mutex
	results map[string]T
}

// NewPublisher creates an empty publisher.
func NewPublisher[T any]() *Publisher[T] {
	return &Publisher[T]{results: make(map[string]T)}
}

// Publish stores the result for key, overwriting any unconsumed value.
func (p *Publisher[T]) Publish(key string, result T) {
	if key == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results[key] = result
}

// TakeAndClear returns the result for key and removes it. The second take
// for the same key reports false until the key is published again.
func (p *Publisher[T]) TakeAndClear(key string) (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	result, ok := p.results[key]
	if ok {
		delete(p.results, key)
	}
	return result, ok
}

// Len returns the number of unconsumed results.
func (p *Publisher[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.results)
}
