/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package toolbridge_test

import (
	"context"
	"fmt"

	"chainguard.dev/codeact/toolbridge"
)

// ExampleBridge_CallTool demonstrates the sandbox-facing surface: results
// come back as JSON strings, and failures come back as error envelopes
// the generated code can inspect.
func ExampleBridge_CallTool() {
	registry := toolbridge.NewStaticRegistry(
		toolbridge.NewFuncTool(toolbridge.Definition{Name: "greet"},
			func(_ context.Context, argsJSON string) (string, error) {
				return `{"message": "hello"}`, nil
			}),
	)
	bridge := toolbridge.New(context.Background(), registry, nil)

	fmt.Println(bridge.CallTool("greet", "{}"))
	fmt.Println(bridge.CallTool("missing_tool", "{}"))

	// Output:
	// {"message": "hello"}
	// {"error":"tool not found: missing_tool"}
}
