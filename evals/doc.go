/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package evals runs suites of evaluation criteria over agent output as a
dependency graph, with one trace span per criterion.

# Overview

A Suite is a set of named criteria, each optionally depending on other
criteria. The GraphExecutor runs independent criteria concurrently and
dependent ones in topological waves, synchronously or asynchronously.

Each criterion is instrumented through the Listener's before/after/onError
callbacks, which open and close spans in an observation.Registry keyed by
"thread:criterion" node keys. Because the engine hands the after callback
a state snapshot that may predate the criterion's own writes, criterion
results travel through a sidechannel.Publisher keyed by criterion name;
the after callback takes the side-channel value first and only falls back
to the snapshot.

Criteria named with the "join_" or "__" prefixes are framework pseudo-
nodes: no span is opened or closed for them.

# Parent spans

A caller that wants criterion spans nested under its own span passes that
span to Execute, or lets ExecuteAsync capture it: the async path snapshots
the parent and ambient trace context before submission and restores both
inside the worker goroutine, since nothing crosses a goroutine boundary
implicitly.
*/
package evals
