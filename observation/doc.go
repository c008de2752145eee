/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package observation provides the tracing and telemetry core for code-act
agent executions.

# Overview

A code-act agent satisfies requests by generating short programs and running
them in a sandboxed interpreter with access to host tools. Every unit of
work around such an execution (hooks, interceptors, model/tool phases,
evaluation criteria) is instrumented with an OpenTelemetry span. Some of
those units start on one goroutine and finish on another, and the
orchestration engine that schedules them does not propagate trace context
for us, so this package owns that plumbing:

  - Registry: maps a node key ("session:unit") to an open span and its
    scope, and owns the open/close lifecycle. Safe for concurrent use; a
    nil tracer disables every operation.
  - ParentContext: carries the "current parent span" across goroutine
    boundaries the engine does not cross for us. Asynchronous dispatch
    sites must capture the parent and ambient context before submission
    and restore both inside the worker.
  - State: per-session key/value scratch space for cross-cutting telemetry
    contributed by arbitrary collaborators, with a SessionStore keyed by
    session ID.
  - Span builders for the hook, interceptor and react-phase unit-of-work
    families, attaching gen_ai.* semantic-convention attributes.

# Containment

Instrumentation never affects the primary execution: a Close on an unknown
node key logs and returns, a double Close is a no-op, and span operations
against a disabled Registry silently do nothing. Only the wrapped work's
own errors propagate to its caller.
*/
package observation
