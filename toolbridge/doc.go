/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package toolbridge exposes host tools to sandboxed agent code.

The Bridge is the single object injected into the sandboxed interpreter.
Sandboxed code calls its CallTool method with a tool name and serialized
arguments; the bridge resolves the tool in the host Registry, invokes it,
and hands the raw JSON result back.

Two rules shape everything here:

 1. Tool failures are data, never faults. A missing tool, a tool error, or
    even a tool panic comes back to the sandbox as {"error": "..."} so the
    agent-generated code can branch on it instead of dying. Nothing the
    bridge does can crash the sandbox.

 2. Call order is truth. Every call appends one entry to the execution's
    call trace before the tool runs, so the trace reflects invocation
    order even when a tool later fails or hangs. Appends are atomic;
    concurrent code paths within one execution never lose an entry.

Successful results are additionally handed to an optional return-shape
observer (best effort; observer failures are swallowed and logged).
*/
package toolbridge
