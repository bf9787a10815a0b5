// Package tool implements the Tool Registry, Tool Executor, and Tool Finder
// (spec §4.3-4.5), grounded on the teacher's pkg/tool package and its
// santhosh-tekuri/jsonschema-based validation from the nexus example's
// pluginsdk.
package tool

import "context"

// Handler performs a tool's actual work given validated arguments.
type Handler func(ctx context.Context, args map[string]any) (map[string]any, error)

// Definition describes a registered tool: its identity, the JSON schema its
// arguments must satisfy, and the handler invoked to run it.
type Definition struct {
	Name             string
	Description      string
	ParametersSchema map[string]any
	Handler          Handler
}

// Result is the outcome of one Execute call (spec §4.4). Tool failures are
// always converted into a Result rather than propagated, so callers never
// need to distinguish "tool errored" from "tool returned an error payload".
type Result struct {
	Success bool
	Output  map[string]any
	Error   string
}
