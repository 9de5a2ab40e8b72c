// Package tools implements the bridge's tool registry: the static six-tool
// catalog, JSON Schema validation of caller arguments, workflow allowlist
// enforcement, response filtering, and the run-tracking side effect.
//
// Tool failures that a caller can do something about (unknown tool, invalid
// arguments, allowlist denial, upstream errors) are reported as *ExecError
// and rendered as text by the protocol adapter; anything else propagates as
// an unexpected error.
package tools
