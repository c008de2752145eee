/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package toolbridge

import "sync"

// CallLog is a standalone TraceAppender for callers that run several
// attempts through one bridge within a session. Unlike an execution
// record, it can be reset between attempts; each attempt's trace is read
// off with Entries before the reset.
type CallLog struct {
	mu    sync.Mutex
	calls []string
}

// NewCallLog creates an empty call log.
func NewCallLog() *CallLog {
	return &CallLog{}
}

// AppendToolCall implements TraceAppender.
func (l *CallLog) AppendToolCall(tool string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, tool)
}

// Entries returns a copy of the recorded tool identifiers in call order.
func (l *CallLog) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// Len returns the number of recorded calls.
func (l *CallLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

// Reset discards the recorded calls for the next attempt.
func (l *CallLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = nil
}
