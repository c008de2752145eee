/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package schema derives JSON schemas for host tool argument types, so a
// tool registry can advertise what the sandboxed code should pass to
// CallTool.
package schema

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// reflector is configured for tool argument schemas: inline (sandboxed
// callers cannot chase $ref pointers), required-by-tag, and tolerant of
// extra properties since agent-generated arguments are best-effort.
var reflector = jsonschema.Reflector{
	RequiredFromJSONSchemaTags: true,
	ExpandedStruct:             true,
	AllowAdditionalProperties:  true,
	DoNotReference:             true,
}

// Reflect returns the JSON schema for the provided value.
func Reflect(v any) *jsonschema.Schema {
	return reflector.Reflect(v)
}

// For allocates a zero value of T and reflects it to a schema.
func For[T any]() *jsonschema.Schema {
	var zero T
	return Reflect(&zero)
}

// JSON renders the schema for T as a compact JSON string, suitable for
// embedding in tool documentation shown to the model.
func JSON[T any]() (string, error) {
	data, err := json.Marshal(For[T]())
	if err != nil {
		return "", err
	}
	return string(data), nil
}
