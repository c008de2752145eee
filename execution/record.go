/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package execution holds the durable record of one sandboxed code
// execution and the executor that produces it.
package execution

import (
	"encoding/json"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ToolCallRecord is one entry of an execution's call trace. Order is
// 1-based and reflects actual invocation order; the trace is append-only
// and never reordered or deduplicated.
type ToolCallRecord struct {
	Order int    `json:"order"`
	Tool  string `json:"tool"`
}

// Record captures one code execution: outcome, error detail, timing and
// the ordered tool-call trace. It is created open, mutated by the bridge
// while the execution runs, closed exactly once, and read-only afterward.
// The initiating executor owns it; the bridge only appends.
type Record struct {
	mu sync.Mutex

	id           string
	functionName string
	language     string
	executedAt   time.Time

	closed       bool
	success      bool
	result       string
	errorMessage string
	errorDetail  string
	duration     time.Duration
	metadata     map[string]any
	callTrace    []ToolCallRecord
}

// NewRecord creates an open record for one execution of functionName in
// the given target language.
func NewRecord(functionName, language string) *Record {
	return &Record{
		id:           uuid.NewString(),
		functionName: functionName,
		language:     language,
		executedAt:   time.Now(),
		metadata:     make(map[string]any),
	}
}

// ID returns the record's unique identifier.
func (r *Record) ID() string { return r.id }

// FunctionName returns the executed function identifier.
func (r *Record) FunctionName() string { return r.functionName }

// Language returns the target language tag.
func (r *Record) Language() string { return r.language }

// ExecutedAt returns the execution start timestamp.
func (r *Record) ExecutedAt() time.Time { return r.executedAt }

// AppendToolCall appends one call-trace entry with the next 1-based order.
// Safe for concurrent use: a single execution may call tools from more
// than one concurrently-active code path. Appends after close are dropped;
// a closed record is read-only.
func (r *Record) AppendToolCall(tool string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		slog.Warn("tool call after execution closed, dropping trace entry",
			"record", r.id, "tool", tool)
		return
	}
	r.callTrace = append(r.callTrace, ToolCallRecord{
		Order: len(r.callTrace) + 1,
		Tool:  tool,
	})
}

// CloseSuccess closes the record with the execution's result payload.
// Closing is terminal; a second close of either kind is dropped.
func (r *Record) CloseSuccess(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		slog.Warn("execution record already closed", "record", r.id)
		return
	}
	r.closed = true
	r.success = true
	r.result = result
	r.duration = time.Since(r.executedAt)
}

// CloseFailure closes the record with the execution's error message and
// stack-like detail.
func (r *Record) CloseFailure(message, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		slog.Warn("execution record already closed", "record", r.id)
		return
	}
	r.closed = true
	r.success = false
	r.errorMessage = message
	r.errorDetail = detail
	r.duration = time.Since(r.executedAt)
}

// Closed reports whether the record reached a terminal state.
func (r *Record) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Success reports whether the execution closed successfully.
func (r *Record) Success() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.success
}

// Result returns the serialized result payload, if any.
func (r *Record) Result() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

// ErrorMessage returns the failure message, if any.
func (r *Record) ErrorMessage() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errorMessage
}

// ErrorDetail returns the stack-like failure detail, if any.
func (r *Record) ErrorDetail() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errorDetail
}

// Duration returns the execution duration; while the record is open it is
// the time elapsed so far.
func (r *Record) Duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		return time.Since(r.executedAt)
	}
	return r.duration
}

// PutMetadata attaches auxiliary metadata to the record.
func (r *Record) PutMetadata(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metadata[key] = value
}

// Metadata returns a copy of the auxiliary metadata.
func (r *Record) Metadata() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.metadata)
}

// CallTrace returns a copy of the ordered call trace. The copy is frozen:
// later trace activity cannot corrupt a previously returned slice.
func (r *Record) CallTrace() []ToolCallRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ToolCallRecord(nil), r.callTrace...)
}

// Snapshot is the serializable form of a Record.
type Snapshot struct {
	ID           string           `json:"id"`
	FunctionName string           `json:"function_name"`
	Language     string           `json:"language"`
	Success      bool             `json:"success"`
	Result       string           `json:"result,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
	ErrorDetail  string           `json:"error_detail,omitempty"`
	ExecutedAt   time.Time        `json:"executed_at"`
	DurationMs   int64            `json:"duration_ms"`
	Metadata     map[string]any   `json:"metadata,omitempty"`
	CallTrace    []ToolCallRecord `json:"call_trace"`
}

// Snapshot returns a frozen copy of the record's current state.
func (r *Record) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		ID:           r.id,
		FunctionName: r.functionName,
		Language:     r.language,
		Success:      r.success,
		Result:       r.result,
		ErrorMessage: r.errorMessage,
		ErrorDetail:  r.errorDetail,
		ExecutedAt:   r.executedAt,
		DurationMs:   r.duration.Milliseconds(),
		Metadata:     maps.Clone(r.metadata),
		CallTrace:    append([]ToolCallRecord(nil), r.callTrace...),
	}
}

// MarshalJSON serializes the record as its snapshot.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Snapshot())
}
