// ABOUTME: Package mcp implements the JSON-RPC 2.0 protocol surface for MCP clients.
// ABOUTME: It adapts initialize, tools/list, and tools/call onto the tool registry.

// Package mcp exposes the bridge's tool registry over the Model Context
// Protocol: JSON-RPC 2.0 messages carried in HTTP POST bodies. Recoverable
// tool failures become successful responses flagged isError so conversational
// clients can read them; protocol violations become JSON-RPC error objects.
package mcp
