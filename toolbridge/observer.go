/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package toolbridge

import (
	"log/slog"

	"github.com/tidwall/gjson"

	"chainguard.dev/codeact/observation"
)

// shapeKeyPrefix namespaces observed return shapes in observation state.
const shapeKeyPrefix = "tool.return_shape."

// ShapeObserver infers the top-level shape of tool results and records it
// in an observation state, so later runs can show the model what a tool
// actually returns.
//
// The sink is a soft dependency: any collaborator may be handed in, and
// only those exposing the observation.StateCarrier capability are used.
// Everything else makes the observer a silent no-op.
type ShapeObserver struct {
	state *observation.State
}

// NewShapeObserver creates a shape observer writing into sink's
// observation state. A sink without the StateCarrier capability (or a nil
// sink) yields an observer that skips silently.
func NewShapeObserver(sink any) *ShapeObserver {
	if carrier, ok := sink.(observation.StateCarrier); ok {
		return &ShapeObserver{state: carrier.ObservationState()}
	}
	return &ShapeObserver{}
}

// Observe implements ReturnShapeObserver. Failed results are recorded only
// by their error field so one flaky call does not overwrite a learned
// success shape.
func (o *ShapeObserver) Observe(toolName, resultJSON string, success bool) {
	if o == nil || o.state == nil || toolName == "" {
		return
	}

	parsed := gjson.Parse(resultJSON)
	if !parsed.IsObject() {
		o.state.Put(shapeKeyPrefix+toolName, map[string]string{"": kindOf(parsed)})
		return
	}

	shape := make(map[string]string)
	parsed.ForEach(func(key, value gjson.Result) bool {
		shape[key.String()] = kindOf(value)
		return true
	})

	if !success {
		// Keep only the error field for failures.
		if _, ok := shape["error"]; ok {
			shape = map[string]string{"error": "string"}
		}
	}
	o.state.Put(shapeKeyPrefix+toolName, shape)

	slog.Debug("observed tool return shape", "tool", toolName, "fields", len(shape), "success", success)
}

// kindOf names the JSON type of a gjson value.
func kindOf(v gjson.Result) string {
	switch {
	case v.IsObject():
		return "object"
	case v.IsArray():
		return "array"
	case v.Type == gjson.String:
		return "string"
	case v.Type == gjson.Number:
		return "number"
	case v.Type == gjson.True, v.Type == gjson.False:
		return "boolean"
	default:
		return "null"
	}
}
