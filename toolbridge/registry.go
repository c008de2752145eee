/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package toolbridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"

	"chainguard.dev/codeact/schema"
)

// Tool is one host capability callable from sandboxed code.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: a returned error means the tool ran and failed; its message
//   must be meaningful when surfaced to the agent as data.
// - Ownership: argsJSON is read-only; the returned JSON is caller-owned.
type Tool interface {
	// Name returns the tool's registry name.
	Name() string
	// Invoke runs the tool with serialized arguments and returns a
	// serialized result.
	Invoke(ctx context.Context, argsJSON string) (string, error)
}

// TargetProvider is an optional capability for tools that know the host
// type backing them. The bridge uses it to qualify call-trace entries as
// "<target>.<name>".
type TargetProvider interface {
	Target() string
}

// Definition describes a tool to the model: its name, what it does, and
// the JSON schema of its arguments.
type Definition struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Describe builds a Definition whose input schema is derived from the
// argument type T.
func Describe[T any](name, description string) Definition {
	return Definition{
		Name:        name,
		Description: description,
		InputSchema: schema.For[T](),
	}
}

// Registry resolves tool names to tools.
type Registry interface {
	// Lookup returns the tool registered under name, if any.
	Lookup(name string) (Tool, bool)
}

// StaticRegistry is an in-memory Registry populated at wiring time.
type StaticRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewStaticRegistry creates a registry holding the given tools.
func NewStaticRegistry(tools ...Tool) *StaticRegistry {
	r := &StaticRegistry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.tools[t.Name()] = t
	}
	return r
}

// Register adds or replaces a tool.
func (r *StaticRegistry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Lookup implements Registry.
func (r *StaticRegistry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names.
func (r *StaticRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// funcTool adapts a plain function to the Tool interface.
type funcTool struct {
	def    Definition
	target string
	fn     func(ctx context.Context, argsJSON string) (string, error)
}

// NewFuncTool wraps fn as a Tool with the given definition.
func NewFuncTool(def Definition, fn func(ctx context.Context, argsJSON string) (string, error)) Tool {
	return &funcTool{def: def, fn: fn}
}

// NewTargetedFuncTool wraps fn as a Tool that also reports the host type
// backing it, for qualified call-trace entries.
func NewTargetedFuncTool(def Definition, target string, fn func(ctx context.Context, argsJSON string) (string, error)) Tool {
	return &funcTool{def: def, target: target, fn: fn}
}

func (t *funcTool) Name() string { return t.def.Name }

func (t *funcTool) Invoke(ctx context.Context, argsJSON string) (string, error) {
	if t.fn == nil {
		return "", fmt.Errorf("tool %q has no handler", t.def.Name)
	}
	return t.fn(ctx, argsJSON)
}

// Definition returns the tool's definition.
func (t *funcTool) Definition() Definition { return t.def }

// Target implements TargetProvider; empty when the tool is untargeted.
func (t *funcTool) Target() string { return t.target }
